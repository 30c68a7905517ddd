package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/anonto42/nearby/backend/internal/services"
	"github.com/anonto42/nearby/backend/pkg/geo"
	"github.com/labstack/echo/v4"
)

// FeedHandler serves the feed, the map and the explore page.
type FeedHandler struct {
	posts PostService
}

func NewFeedHandler(posts PostService) *FeedHandler {
	return &FeedHandler{posts: posts}
}

func (h *FeedHandler) RegisterFeedRoutes(g *echo.Group) {
	g.GET("/feed", h.GetFeed)
	g.GET("/map", h.GetMap)
	g.GET("/explore", h.GetExplore)
}

// GetFeed handles GET /feed?q=&tag=&radius=&lat=&lng=.
func (h *FeedHandler) GetFeed(c echo.Context) error {
	uid, err := currentUserID(c)
	if err != nil {
		return err
	}
	origin, err := queryOrigin(c)
	if err != nil {
		return err
	}
	radius, err := queryRadius(c)
	if err != nil {
		return err
	}

	posts, err := h.posts.Feed(c.Request().Context(), services.FeedInput{
		UserID:   uid,
		Search:   c.QueryParam("q"),
		Tag:      c.QueryParam("tag"),
		Origin:   origin,
		RadiusKm: radius,
	})
	if err != nil {
		return toHTTPError(c, err)
	}
	return respond(c, http.StatusOK, echo.Map{"posts": posts})
}

// GetMap handles GET /map?tags=a,b&radius=&lat=&lng=. The location is
// required.
func (h *FeedHandler) GetMap(c echo.Context) error {
	uid, err := currentUserID(c)
	if err != nil {
		return err
	}
	origin, err := queryOrigin(c)
	if err != nil {
		return err
	}
	if origin == nil {
		return echo.NewHTTPError(http.StatusBadRequest, "lat and lng are required")
	}
	radius, err := queryRadius(c)
	if err != nil {
		return err
	}

	var selected []string
	for _, v := range c.QueryParams()["tags"] {
		selected = append(selected, strings.Split(v, ",")...)
	}

	posts, err := h.posts.Map(c.Request().Context(), services.MapInput{
		UserID:   uid,
		Tags:     selected,
		Origin:   *origin,
		RadiusKm: radius,
	})
	if err != nil {
		return toHTTPError(c, err)
	}
	return respond(c, http.StatusOK, echo.Map{"posts": posts})
}

func (h *FeedHandler) GetExplore(c echo.Context) error {
	result, err := h.posts.Explore(c.Request().Context())
	if err != nil {
		return toHTTPError(c, err)
	}
	return respond(c, http.StatusOK, result)
}

// queryOrigin returns the viewer location, or nil when lat/lng are absent.
func queryOrigin(c echo.Context) (*geo.Point, error) {
	rawLat, rawLng := c.QueryParam("lat"), c.QueryParam("lng")
	if rawLat == "" && rawLng == "" {
		return nil, nil
	}
	lat, errLat := strconv.ParseFloat(rawLat, 64)
	lng, errLng := strconv.ParseFloat(rawLng, 64)
	p := geo.Point{Lat: lat, Lng: lng}
	if errLat != nil || errLng != nil || !p.Valid() {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "Invalid location")
	}
	return &p, nil
}

func queryRadius(c echo.Context) (float64, error) {
	raw := c.QueryParam("radius")
	if raw == "" {
		return 0, nil
	}
	radius, err := strconv.ParseFloat(raw, 64)
	if err != nil || radius <= 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "Invalid radius")
	}
	return radius, nil
}
