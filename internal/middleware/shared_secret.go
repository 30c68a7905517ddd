package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/labstack/echo/v4"
)

// VerificationSecretHeader carries the shared secret of the content verifier.
const VerificationSecretHeader = "X-Verification-Secret"

// SharedSecretMiddleware admits requests whose header matches secret. An
// empty secret closes the route.
func SharedSecretMiddleware(header, secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if secret == "" {
				return echo.NewHTTPError(http.StatusServiceUnavailable, "Callback is not configured")
			}
			got := c.Request().Header.Get(header)
			if subtle.ConstantTimeCompare([]byte(got), []byte(secret)) != 1 {
				return echo.NewHTTPError(http.StatusUnauthorized, "Invalid callback secret")
			}
			return next(c)
		}
	}
}
