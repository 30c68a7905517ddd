package handlers

import (
	"net/http"

	"github.com/anonto42/nearby/backend/internal/chatbot"
	"github.com/labstack/echo/v4"
)

type ChatbotHandler struct {
	bot *chatbot.Client
}

func NewChatbotHandler(bot *chatbot.Client) *ChatbotHandler {
	return &ChatbotHandler{bot: bot}
}

func (h *ChatbotHandler) RegisterChatbotRoutes(g *echo.Group) {
	g.POST("/chatbot", h.Ask)
}

// Ask forwards a question about the user's surroundings to the assistant.
func (h *ChatbotHandler) Ask(c echo.Context) error {
	uid, err := currentUserID(c)
	if err != nil {
		return err
	}
	var req chatbot.Request
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	answer, err := h.bot.Ask(c.Request().Context(), uid, req)
	if err != nil {
		return toHTTPError(c, err)
	}
	return respond(c, http.StatusOK, answer)
}
