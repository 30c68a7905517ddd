package handlers

import (
	"net/http"

	"github.com/anonto42/nearby/backend/internal/models"
	"github.com/anonto42/nearby/backend/internal/services"
	"github.com/labstack/echo/v4"
)

// UserHandler handles HTTP requests related to users
type UserHandler struct {
	users *services.UserService
	posts PostService
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(users *services.UserService, posts PostService) *UserHandler {
	return &UserHandler{users: users, posts: posts}
}

// RegisterProfileRoutes registers user profile-related routes
func (h *UserHandler) RegisterProfileRoutes(g *echo.Group) {
	g.GET("/profile", h.GetProfile)
	g.PUT("/profile", h.UpdateProfile)
	g.GET("/profile/posts", h.GetProfilePosts)
	g.GET("/settings", h.GetSettings)
	g.PUT("/settings", h.UpdateSettings)
	g.GET("/users/search", h.SearchUsers)
	g.GET("/users/:id", h.GetUser)
}

func (h *UserHandler) GetProfile(c echo.Context) error {
	uid, err := currentUserID(c)
	if err != nil {
		return err
	}
	user, err := h.users.GetUser(c.Request().Context(), uid)
	if err != nil {
		return toHTTPError(c, err)
	}
	return respond(c, http.StatusOK, user)
}

func (h *UserHandler) UpdateProfile(c echo.Context) error {
	uid, err := currentUserID(c)
	if err != nil {
		return err
	}
	var req models.UpdateProfileRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	user, err := h.users.UpdateProfile(c.Request().Context(), uid, req)
	if err != nil {
		return toHTTPError(c, err)
	}
	return respond(c, http.StatusOK, user)
}

// GetProfilePosts handles GET /profile/posts?tab=active|expired.
func (h *UserHandler) GetProfilePosts(c echo.Context) error {
	uid, err := currentUserID(c)
	if err != nil {
		return err
	}
	tab := c.QueryParam("tab")
	switch tab {
	case "":
		tab = services.ProfileTabActive
	case services.ProfileTabActive, services.ProfileTabExpired:
	default:
		return echo.NewHTTPError(http.StatusBadRequest, "tab must be active or expired")
	}

	result, err := h.posts.ProfilePosts(c.Request().Context(), uid, tab)
	if err != nil {
		return toHTTPError(c, err)
	}
	return respond(c, http.StatusOK, result)
}

func (h *UserHandler) GetSettings(c echo.Context) error {
	uid, err := currentUserID(c)
	if err != nil {
		return err
	}
	settings, err := h.users.GetSettings(c.Request().Context(), uid)
	if err != nil {
		return toHTTPError(c, err)
	}
	return respond(c, http.StatusOK, settings)
}

func (h *UserHandler) UpdateSettings(c echo.Context) error {
	uid, err := currentUserID(c)
	if err != nil {
		return err
	}
	var req models.UpdateSettingsRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	settings, err := h.users.UpdateSettings(c.Request().Context(), uid, req)
	if err != nil {
		return toHTTPError(c, err)
	}
	return respond(c, http.StatusOK, settings)
}

func (h *UserHandler) SearchUsers(c echo.Context) error {
	users, err := h.users.SearchUsers(c.Request().Context(), c.QueryParam("q"))
	if err != nil {
		return toHTTPError(c, err)
	}
	return respond(c, http.StatusOK, echo.Map{"users": users})
}

// GetUser returns another user's public profile and active posts.
func (h *UserHandler) GetUser(c echo.Context) error {
	id := c.Param("id")
	user, err := h.users.GetUser(c.Request().Context(), id)
	if err != nil {
		return toHTTPError(c, err)
	}
	posts, err := h.posts.PublicPosts(c.Request().Context(), id)
	if err != nil {
		return toHTTPError(c, err)
	}
	return respond(c, http.StatusOK, echo.Map{"user": user.ToCompact(), "bio": user.Bio, "posts": posts})
}
