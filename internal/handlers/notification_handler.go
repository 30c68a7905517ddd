package handlers

import (
	"net/http"
	"strconv"

	"github.com/anonto42/nearby/backend/internal/services"
	"github.com/labstack/echo/v4"
)

// NotificationHandler handles notification-related HTTP requests
type NotificationHandler struct {
	notifications *services.NotificationService
}

// NewNotificationHandler creates a new NotificationHandler
func NewNotificationHandler(notifications *services.NotificationService) *NotificationHandler {
	return &NotificationHandler{notifications: notifications}
}

// RegisterNotificationRoutes registers notification routes
func (h *NotificationHandler) RegisterNotificationRoutes(g *echo.Group) {
	g.GET("/notifications", h.GetNotifications)
	g.GET("/notifications/unread-count", h.GetUnreadCount)
	g.POST("/notifications/:id/open", h.Open)
	g.DELETE("/notifications/:id", h.Dismiss)
}

// GetNotifications returns the newest notifications first
func (h *NotificationHandler) GetNotifications(c echo.Context) error {
	uid, err := currentUserID(c)
	if err != nil {
		return err
	}
	limit, err := queryLimit(c)
	if err != nil {
		return err
	}

	notifications, err := h.notifications.List(c.Request().Context(), uid, limit)
	if err != nil {
		return toHTTPError(c, err)
	}
	return respond(c, http.StatusOK, echo.Map{"notifications": notifications})
}

func (h *NotificationHandler) GetUnreadCount(c echo.Context) error {
	uid, err := currentUserID(c)
	if err != nil {
		return err
	}
	count, err := h.notifications.UnreadCount(c.Request().Context(), uid)
	if err != nil {
		return toHTTPError(c, err)
	}
	return respond(c, http.StatusOK, echo.Map{"count": count})
}

// Open consumes a notification and returns the post it points to.
func (h *NotificationHandler) Open(c echo.Context) error {
	uid, err := currentUserID(c)
	if err != nil {
		return err
	}
	id, err := notificationID(c)
	if err != nil {
		return err
	}
	n, err := h.notifications.Open(c.Request().Context(), uid, id)
	if err != nil {
		return toHTTPError(c, err)
	}
	return respond(c, http.StatusOK, echo.Map{"postId": n.PostID, "type": n.Type})
}

func (h *NotificationHandler) Dismiss(c echo.Context) error {
	uid, err := currentUserID(c)
	if err != nil {
		return err
	}
	id, err := notificationID(c)
	if err != nil {
		return err
	}
	if err := h.notifications.Dismiss(c.Request().Context(), uid, id); err != nil {
		return toHTTPError(c, err)
	}
	return respond(c, http.StatusOK, echo.Map{"deleted": true})
}

func notificationID(c echo.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "Invalid notification ID")
	}
	return uint(id), nil
}
