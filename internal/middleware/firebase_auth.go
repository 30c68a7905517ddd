package middleware

import (
	"context"
	"net/http"

	"firebase.google.com/go/v4/auth"
	"github.com/labstack/echo/v4"
)

// FirebaseTokenKey is the context key of the verified *auth.Token.
const FirebaseTokenKey = "firebaseToken"

// TokenVerifier verifies Firebase ID tokens. *auth.Client and
// *session.Manager satisfy it.
type TokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
}

// FirebaseAuthMiddleware creates an Echo middleware to verify Firebase ID tokens.
// It guards the sign-in exchange, where only a Firebase token is acceptable.
func FirebaseAuthMiddleware(verifier TokenVerifier) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			idToken, err := bearerToken(c)
			if err != nil {
				return err
			}

			// Verify the ID token
			token, err := verifier.VerifyIDToken(c.Request().Context(), idToken)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "Invalid or expired ID token")
			}

			c.Set("firebaseUID", token.UID)
			c.Set(FirebaseTokenKey, token)

			return next(c)
		}
	}
}

// FirebaseToken returns the token stored by FirebaseAuthMiddleware.
func FirebaseToken(c echo.Context) (*auth.Token, bool) {
	token, ok := c.Get(FirebaseTokenKey).(*auth.Token)
	return token, ok && token != nil
}
