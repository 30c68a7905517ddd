package handlers

import (
	"net/http"
	"time"

	"github.com/anonto42/nearby/backend/internal/middleware"
	"github.com/anonto42/nearby/backend/internal/models"
	"github.com/anonto42/nearby/backend/internal/services"
	"github.com/anonto42/nearby/backend/internal/session"
	"github.com/labstack/echo/v4"
)

// AuthHandler exchanges Firebase ID tokens for backend sessions.
type AuthHandler struct {
	users    *services.UserService
	sessions *session.Manager
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(users *services.UserService, sessions *session.Manager) *AuthHandler {
	return &AuthHandler{users: users, sessions: sessions}
}

// RegisterAuthRoutes registers the sign-in route. verified must run
// FirebaseAuthMiddleware; authed must resolve sessions.
func (h *AuthHandler) RegisterAuthRoutes(g *echo.Group, verified, authed echo.MiddlewareFunc) {
	g.POST("/session", h.SignIn, verified)
	g.DELETE("/session", h.SignOut, authed)
}

type signInResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
	User      *models.User `json:"user"`
}

// SignIn creates the profile on first sign-in and issues a session token.
func (h *AuthHandler) SignIn(c echo.Context) error {
	token, ok := middleware.FirebaseToken(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "Missing Firebase token")
	}

	identity := services.Identity{UID: token.UID}
	if email, ok := token.Claims["email"].(string); ok {
		identity.Email = email
	}
	if name, ok := token.Claims["name"].(string); ok {
		identity.Name = name
	}
	if picture, ok := token.Claims["picture"].(string); ok {
		identity.PhotoURL = picture
	}

	user, err := h.users.EnsureProfile(c.Request().Context(), identity)
	if err != nil {
		return toHTTPError(c, err)
	}

	signed, sess, err := h.sessions.Issue(user)
	if err != nil {
		return toHTTPError(c, models.NewInternalError(err))
	}

	return respond(c, http.StatusOK, signInResponse{Token: signed, ExpiresAt: sess.ExpiresAt, User: user})
}

// SignOut revokes the current session.
func (h *AuthHandler) SignOut(c echo.Context) error {
	sess, ok := session.From(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "Not signed in")
	}
	if err := h.sessions.Revoke(c.Request().Context(), sess); err != nil {
		return toHTTPError(c, models.NewUpstreamError("Sign-out failed", err))
	}
	return respond(c, http.StatusOK, echo.Map{"signedOut": true})
}
