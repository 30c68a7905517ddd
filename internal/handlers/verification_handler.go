package handlers

import (
	"net/http"

	"github.com/anonto42/nearby/backend/internal/models"
	"github.com/anonto42/nearby/backend/internal/verifier"
	"github.com/labstack/echo/v4"
)

// VerificationHandler receives results from the content verifier and serves
// the community guidelines.
type VerificationHandler struct {
	apply verifier.ApplyFunc
}

func NewVerificationHandler(apply verifier.ApplyFunc) *VerificationHandler {
	return &VerificationHandler{apply: apply}
}

// RegisterVerificationRoutes registers the routes; secret guards the callback.
func (h *VerificationHandler) RegisterVerificationRoutes(g *echo.Group, secret echo.MiddlewareFunc) {
	g.POST("/callback", h.Callback, secret)
	g.GET("/guidelines", h.Guidelines)
}

type callbackRequest struct {
	PostID       string   `json:"postId" validate:"required"`
	Approved     bool     `json:"approved"`
	Message      string   `json:"message"`
	Reasons      []string `json:"reasons" validate:"max=20"`
	ContentLabel string   `json:"contentLabel" validate:"max=100"`
}

// Callback applies a verification result delivered out of band.
func (h *VerificationHandler) Callback(c echo.Context) error {
	var req callbackRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	result := models.VerificationResult{
		PostID:       req.PostID,
		Approved:     req.Approved,
		Message:      req.Message,
		Reasons:      req.Reasons,
		ContentLabel: req.ContentLabel,
	}
	if err := h.apply(c.Request().Context(), &result); err != nil {
		return toHTTPError(c, err)
	}
	return respond(c, http.StatusOK, echo.Map{"postId": result.PostID, "approved": result.Approved})
}

func (h *VerificationHandler) Guidelines(c echo.Context) error {
	return respond(c, http.StatusOK, echo.Map{"guidelines": verifier.Guidelines()})
}
