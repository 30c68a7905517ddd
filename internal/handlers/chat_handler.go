package handlers

import (
	"net/http"

	"github.com/anonto42/nearby/backend/internal/models"
	"github.com/anonto42/nearby/backend/internal/services"
	"github.com/labstack/echo/v4"
)

// ChatHandler handles one-to-one chats.
type ChatHandler struct {
	chats *services.ChatService
}

func NewChatHandler(chats *services.ChatService) *ChatHandler {
	return &ChatHandler{chats: chats}
}

func (h *ChatHandler) RegisterChatRoutes(g *echo.Group) {
	g.GET("/chats", h.ListChats)
	g.POST("/chats", h.OpenChat)
	g.GET("/chats/:chatId/messages", h.GetMessages)
	g.POST("/chats/:chatId/messages", h.SendMessage)
	g.POST("/chats/:chatId/read", h.MarkRead)
}

func (h *ChatHandler) ListChats(c echo.Context) error {
	uid, err := currentUserID(c)
	if err != nil {
		return err
	}
	chats, err := h.chats.ListChats(c.Request().Context(), uid)
	if err != nil {
		return toHTTPError(c, err)
	}
	return respond(c, http.StatusOK, echo.Map{"chats": chats})
}

func (h *ChatHandler) OpenChat(c echo.Context) error {
	uid, err := currentUserID(c)
	if err != nil {
		return err
	}
	var req models.OpenChatRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	chat, err := h.chats.OpenChat(c.Request().Context(), uid, req.UserID)
	if err != nil {
		return toHTTPError(c, err)
	}
	return respond(c, http.StatusOK, chat)
}

func (h *ChatHandler) GetMessages(c echo.Context) error {
	uid, err := currentUserID(c)
	if err != nil {
		return err
	}
	limit, err := queryLimit(c)
	if err != nil {
		return err
	}
	messages, err := h.chats.Messages(c.Request().Context(), uid, c.Param("chatId"), limit)
	if err != nil {
		return toHTTPError(c, err)
	}
	return respond(c, http.StatusOK, echo.Map{"messages": messages})
}

func (h *ChatHandler) SendMessage(c echo.Context) error {
	uid, err := currentUserID(c)
	if err != nil {
		return err
	}
	var req models.SendMessageRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	msg, err := h.chats.SendMessage(c.Request().Context(), uid, c.Param("chatId"), req)
	if err != nil {
		return toHTTPError(c, err)
	}
	return respond(c, http.StatusCreated, msg)
}

func (h *ChatHandler) MarkRead(c echo.Context) error {
	uid, err := currentUserID(c)
	if err != nil {
		return err
	}
	if err := h.chats.MarkRead(c.Request().Context(), uid, c.Param("chatId")); err != nil {
		return toHTTPError(c, err)
	}
	return respond(c, http.StatusOK, echo.Map{"read": true})
}
