package handlers

import (
	"github.com/anonto42/nearby/backend/internal/observability"
	"github.com/anonto42/nearby/backend/internal/realtime"
	"github.com/labstack/echo/v4"
)

type RealtimeHandler struct {
	bridge *realtime.Bridge
}

func NewRealtimeHandler(bridge *realtime.Bridge) *RealtimeHandler {
	return &RealtimeHandler{bridge: bridge}
}

func (h *RealtimeHandler) RegisterRealtimeRoutes(g *echo.Group) {
	g.GET("/realtime", h.Stream)
}

// Stream upgrades to a websocket carrying the signed-in user's events.
func (h *RealtimeHandler) Stream(c echo.Context) error {
	uid, err := currentUserID(c)
	if err != nil {
		return err
	}
	if err := h.bridge.Handle(c.Response(), c.Request(), uid); err != nil {
		// The connection is hijacked once upgraded; only log.
		observability.Logger.Warn("realtime stream ended", "user_id", uid, "error", err)
	}
	return nil
}
