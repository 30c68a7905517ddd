package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"firebase.google.com/go/v4/auth"
	"github.com/anonto42/nearby/backend/internal/models"
	"github.com/anonto42/nearby/backend/internal/session"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubVerifier struct {
	tokens map[string]*auth.Token
}

func (s stubVerifier) VerifyIDToken(_ context.Context, idToken string) (*auth.Token, error) {
	if tok, ok := s.tokens[idToken]; ok {
		return tok, nil
	}
	return nil, errors.New("unknown token")
}

func (s stubVerifier) RevokeRefreshTokens(context.Context, string) error { return nil }

func run(t *testing.T, mw echo.MiddlewareFunc, req *http.Request) (echo.Context, bool, error) {
	t.Helper()

	e := echo.New()
	c := e.NewContext(req, httptest.NewRecorder())
	called := false
	err := mw(func(echo.Context) error {
		called = true
		return nil
	})(c)
	return c, called, err
}

func statusOf(t *testing.T, err error) int {
	t.Helper()

	var he *echo.HTTPError
	require.True(t, errors.As(err, &he), "expected echo.HTTPError, got %v", err)
	return he.Code
}

func TestSessionAuthMiddleware(t *testing.T) {
	t.Parallel()

	sessions := session.NewManager("secret", time.Hour, stubVerifier{}, nil)
	token, _, err := sessions.Issue(&models.User{ID: "uid-1"})
	require.NoError(t, err)

	t.Run("bearer header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)

		c, called, err := run(t, SessionAuthMiddleware(sessions), req)
		require.NoError(t, err)
		assert.True(t, called)
		sess, ok := session.From(c)
		require.True(t, ok)
		assert.Equal(t, "uid-1", sess.UserID)
	})

	t.Run("missing header", func(t *testing.T) {
		_, called, err := run(t, SessionAuthMiddleware(sessions), httptest.NewRequest(http.MethodGet, "/", nil))
		assert.False(t, called)
		assert.Equal(t, http.StatusUnauthorized, statusOf(t, err))
	})

	t.Run("malformed header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(echo.HeaderAuthorization, "Token "+token)

		_, called, err := run(t, SessionAuthMiddleware(sessions), req)
		assert.False(t, called)
		assert.Equal(t, http.StatusUnauthorized, statusOf(t, err))
	})

	t.Run("query token only on websocket upgrade", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/ws?token="+token, nil)
		_, called, err := run(t, SessionAuthMiddleware(sessions), req)
		assert.False(t, called)
		assert.Equal(t, http.StatusUnauthorized, statusOf(t, err))

		req = httptest.NewRequest(http.MethodGet, "/ws?token="+token, nil)
		req.Header.Set("Upgrade", "websocket")
		_, called, err = run(t, SessionAuthMiddleware(sessions), req)
		require.NoError(t, err)
		assert.True(t, called)
	})

	t.Run("invalid token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(echo.HeaderAuthorization, "Bearer nope")

		_, called, err := run(t, SessionAuthMiddleware(sessions), req)
		assert.False(t, called)
		assert.Equal(t, http.StatusUnauthorized, statusOf(t, err))
	})
}

func TestFirebaseAuthMiddleware(t *testing.T) {
	t.Parallel()

	verifier := stubVerifier{tokens: map[string]*auth.Token{"good": {UID: "uid-9"}}}

	req := httptest.NewRequest(http.MethodPost, "/auth/session", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer good")
	c, called, err := run(t, FirebaseAuthMiddleware(verifier), req)
	require.NoError(t, err)
	assert.True(t, called)
	tok, ok := FirebaseToken(c)
	require.True(t, ok)
	assert.Equal(t, "uid-9", tok.UID)

	req = httptest.NewRequest(http.MethodPost, "/auth/session", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer bad")
	_, called, err = run(t, FirebaseAuthMiddleware(verifier), req)
	assert.False(t, called)
	assert.Equal(t, http.StatusUnauthorized, statusOf(t, err))
}

func TestSharedSecretMiddleware(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set(VerificationSecretHeader, "s3cret")
	_, called, err := run(t, SharedSecretMiddleware(VerificationSecretHeader, "s3cret"), req)
	require.NoError(t, err)
	assert.True(t, called)

	req = httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set(VerificationSecretHeader, "wrong")
	_, called, err = run(t, SharedSecretMiddleware(VerificationSecretHeader, "s3cret"), req)
	assert.False(t, called)
	assert.Equal(t, http.StatusUnauthorized, statusOf(t, err))

	_, called, err = run(t, SharedSecretMiddleware(VerificationSecretHeader, ""), httptest.NewRequest(http.MethodPost, "/", nil))
	assert.False(t, called)
	assert.Equal(t, http.StatusServiceUnavailable, statusOf(t, err))
}
