package router

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/anonto42/nearby/backend/internal/handlers"
	"github.com/anonto42/nearby/backend/internal/session"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(secret string, checks map[string]handlers.Pinger) *echo.Echo {
	e := echo.New()
	sessions := session.NewManager("test-secret", time.Hour, nil, nil)
	mountRoutes(e, routeSet{
		health:        handlers.NewHealthHandler(checks),
		auth:          handlers.NewAuthHandler(nil, sessions),
		users:         handlers.NewUserHandler(nil, nil),
		posts:         handlers.NewPostHandler(nil),
		feed:          handlers.NewFeedHandler(nil),
		comments:      handlers.NewCommentHandler(nil),
		chats:         handlers.NewChatHandler(nil),
		notifications: handlers.NewNotificationHandler(nil),
		verification:  handlers.NewVerificationHandler(nil),
		chatbot:       handlers.NewChatbotHandler(nil),
		realtime:      handlers.NewRealtimeHandler(nil),

		sessions:           sessions,
		verifiedIdentity:   func(next echo.HandlerFunc) echo.HandlerFunc { return next },
		verificationSecret: secret,
	})
	return e
}

func serve(e *echo.Echo, method, target string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader("{}"))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestMountRoutes_RegistersAPI(t *testing.T) {
	e := newTestServer("s3cret", nil)

	registered := map[string]bool{}
	for _, r := range e.Routes() {
		registered[r.Method+" "+r.Path] = true
	}
	for _, want := range []string{
		"GET /health",
		"GET /metrics",
		"POST /api/v1/auth/session",
		"DELETE /api/v1/auth/session",
		"POST /api/v1/verification/callback",
		"GET /api/v1/feed",
		"GET /api/v1/map",
		"GET /api/v1/explore",
		"POST /api/v1/posts",
		"POST /api/v1/posts/:id/repost",
		"POST /api/v1/posts/:id/comments/:commentId/replies",
		"GET /api/v1/chats/:chatId/messages",
		"GET /api/v1/notifications/unread-count",
		"GET /api/v1/profile/posts",
		"POST /api/v1/chatbot",
		"GET /api/v1/realtime",
	} {
		assert.True(t, registered[want], "missing route %s", want)
	}
}

func TestMountRoutes_ProtectedRoutesNeedToken(t *testing.T) {
	e := newTestServer("s3cret", nil)

	for _, target := range []string{"/api/v1/feed", "/api/v1/profile", "/api/v1/notifications"} {
		rec := serve(e, http.MethodGet, target, nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, target)
	}

	rec := serve(e, http.MethodGet, "/api/v1/feed", map[string]string{echo.HeaderAuthorization: "Token abc"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMountRoutes_CallbackNeedsSecret(t *testing.T) {
	e := newTestServer("s3cret", nil)
	rec := serve(e, http.MethodPost, "/api/v1/verification/callback", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	closed := newTestServer("", nil)
	rec = serve(closed, http.MethodPost, "/api/v1/verification/callback", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMountRoutes_PublicEndpoints(t *testing.T) {
	e := newTestServer("s3cret", map[string]handlers.Pinger{
		"redis": func(context.Context) error { return nil },
	})

	rec := serve(e, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = serve(e, http.MethodGet, "/api/v1/verification/guidelines", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = serve(e, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestMountRoutes_DegradedHealth(t *testing.T) {
	e := newTestServer("s3cret", map[string]handlers.Pinger{
		"mongo": func(context.Context) error { return errors.New("no reachable servers") },
	})
	rec := serve(e, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "degraded")
}

type slowRunner struct {
	finished atomic.Bool
}

func (r *slowRunner) Run(ctx context.Context) {
	<-ctx.Done()
	time.Sleep(50 * time.Millisecond)
	r.finished.Store(true)
}

func TestBackground_WaitJoinsSweeper(t *testing.T) {
	runner := &slowRunner{}
	bg := &Background{Sweeper: runner}

	ctx, cancel := context.WithCancel(context.Background())
	bg.Start(ctx)
	cancel()
	bg.Wait()

	assert.True(t, runner.finished.Load())
}
