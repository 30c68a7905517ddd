package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/anonto42/nearby/backend/internal/session"
	"github.com/labstack/echo/v4"
)

// SessionAuthMiddleware resolves the bearer token into a session and stores
// it on the context. Websocket upgrades may pass the token as ?token= since
// browsers cannot set headers on them.
func SessionAuthMiddleware(sessions *session.Manager) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token, err := bearerToken(c)
			if err != nil {
				return err
			}

			sess, err := sessions.Resolve(c.Request().Context(), token)
			if err != nil {
				if errors.Is(err, session.ErrRevoked) {
					return echo.NewHTTPError(http.StatusUnauthorized, "Session has been signed out")
				}
				if errors.Is(err, session.ErrInvalidToken) {
					return echo.NewHTTPError(http.StatusUnauthorized, "Invalid or expired token")
				}
				return echo.NewHTTPError(http.StatusServiceUnavailable, "Unable to verify session")
			}

			session.Set(c, sess)
			return next(c)
		}
	}
}

func bearerToken(c echo.Context) (string, error) {
	authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
	if authHeader == "" {
		if isWebSocketUpgrade(c.Request()) {
			if token := c.QueryParam("token"); token != "" {
				return token, nil
			}
		}
		return "", echo.NewHTTPError(http.StatusUnauthorized, "Missing Authorization header")
	}

	// Expecting "Bearer <token>"
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" || parts[1] == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "Authorization header must be in Bearer format")
	}
	return parts[1], nil
}

func isWebSocketUpgrade(r *http.Request) bool {
	return strings.EqualFold(r.Header.Get("Upgrade"), "websocket")
}
