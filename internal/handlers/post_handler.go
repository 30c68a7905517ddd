package handlers

import (
	"context"
	"io"
	"net/http"

	"github.com/anonto42/nearby/backend/internal/models"
	"github.com/anonto42/nearby/backend/internal/services"
	"github.com/labstack/echo/v4"
)

const maxImageBytes = 10 << 20

// PostService is the post logic used by the post, feed and user handlers.
// *services.PostService satisfies it.
type PostService interface {
	CreatePost(ctx context.Context, in services.CreatePostInput) (*models.Post, error)
	GetPost(ctx context.Context, viewerID, id string) (*services.FeedPost, error)
	DeletePost(ctx context.Context, uid, id string) error
	ToggleLike(ctx context.Context, uid, postID string) (*services.ReactionResult, error)
	ToggleEyewitness(ctx context.Context, uid, postID string) (*services.ReactionResult, error)
	Repost(ctx context.Context, uid, postID string) (*models.Post, error)
	Feed(ctx context.Context, in services.FeedInput) ([]services.FeedPost, error)
	Map(ctx context.Context, in services.MapInput) ([]services.FeedPost, error)
	Explore(ctx context.Context) (*services.ExploreResult, error)
	ProfilePosts(ctx context.Context, uid, tab string) (*services.ProfilePosts, error)
	PublicPosts(ctx context.Context, uid string) ([]services.FeedPost, error)
}

// PostHandler handles HTTP requests related to posts
type PostHandler struct {
	posts PostService
}

// NewPostHandler creates a new PostHandler
func NewPostHandler(posts PostService) *PostHandler {
	return &PostHandler{posts: posts}
}

// RegisterPostRoutes registers post-related routes
func (h *PostHandler) RegisterPostRoutes(g *echo.Group) {
	g.POST("/posts", h.CreatePost)
	g.GET("/posts/:id", h.GetPost)
	g.DELETE("/posts/:id", h.DeletePost)
	g.POST("/posts/:id/like", h.ToggleLike)
	g.POST("/posts/:id/eyewitness", h.ToggleEyewitness)
	g.POST("/posts/:id/repost", h.Repost)
}

// CreatePost accepts the multipart post form with its image.
func (h *PostHandler) CreatePost(c echo.Context) error {
	uid, err := currentUserID(c)
	if err != nil {
		return err
	}

	var req models.CreatePostRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	file, err := c.FormFile("image")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Image is required")
	}
	if file.Size > maxImageBytes {
		return echo.NewHTTPError(http.StatusRequestEntityTooLarge, "Image is too large")
	}
	src, err := file.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Unreadable image")
	}
	defer src.Close()
	image, err := io.ReadAll(io.LimitReader(src, maxImageBytes+1))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Unreadable image")
	}

	post, err := h.posts.CreatePost(c.Request().Context(), services.CreatePostInput{
		UserID:   uid,
		Request:  req,
		Filename: file.Filename,
		Image:    image,
	})
	if err != nil {
		return toHTTPError(c, err)
	}
	return respond(c, http.StatusCreated, post)
}

func (h *PostHandler) GetPost(c echo.Context) error {
	uid, err := currentUserID(c)
	if err != nil {
		return err
	}
	post, err := h.posts.GetPost(c.Request().Context(), uid, c.Param("id"))
	if err != nil {
		return toHTTPError(c, err)
	}
	return respond(c, http.StatusOK, post)
}

func (h *PostHandler) DeletePost(c echo.Context) error {
	uid, err := currentUserID(c)
	if err != nil {
		return err
	}
	if err := h.posts.DeletePost(c.Request().Context(), uid, c.Param("id")); err != nil {
		return toHTTPError(c, err)
	}
	return respond(c, http.StatusOK, echo.Map{"deleted": true})
}

func (h *PostHandler) ToggleLike(c echo.Context) error {
	uid, err := currentUserID(c)
	if err != nil {
		return err
	}
	res, err := h.posts.ToggleLike(c.Request().Context(), uid, c.Param("id"))
	if err != nil {
		return toHTTPError(c, err)
	}
	return respond(c, http.StatusOK, echo.Map{"liked": res.Active, "post": res.Post})
}

func (h *PostHandler) ToggleEyewitness(c echo.Context) error {
	uid, err := currentUserID(c)
	if err != nil {
		return err
	}
	res, err := h.posts.ToggleEyewitness(c.Request().Context(), uid, c.Param("id"))
	if err != nil {
		return toHTTPError(c, err)
	}
	return respond(c, http.StatusOK, echo.Map{"eyewitnessed": res.Active, "post": res.Post})
}

func (h *PostHandler) Repost(c echo.Context) error {
	uid, err := currentUserID(c)
	if err != nil {
		return err
	}
	post, err := h.posts.Repost(c.Request().Context(), uid, c.Param("id"))
	if err != nil {
		return toHTTPError(c, err)
	}
	return respond(c, http.StatusCreated, post)
}
