package handlers

import (
	"net/http"

	"github.com/anonto42/nearby/backend/internal/models"
	"github.com/anonto42/nearby/backend/internal/services"
	"github.com/labstack/echo/v4"
)

// CommentHandler handles comments, replies and comment likes.
type CommentHandler struct {
	comments *services.CommentService
}

func NewCommentHandler(comments *services.CommentService) *CommentHandler {
	return &CommentHandler{comments: comments}
}

func (h *CommentHandler) RegisterCommentRoutes(g *echo.Group) {
	g.GET("/posts/:id/comments", h.ListComments)
	g.POST("/posts/:id/comments", h.AddComment)
	g.POST("/posts/:id/comments/:commentId/replies", h.AddReply)
	g.POST("/posts/:id/comments/:commentId/like", h.ToggleLike)
}

func (h *CommentHandler) ListComments(c echo.Context) error {
	comments, err := h.comments.ListComments(c.Request().Context(), c.Param("id"))
	if err != nil {
		return toHTTPError(c, err)
	}
	return respond(c, http.StatusOK, echo.Map{"comments": comments})
}

func (h *CommentHandler) AddComment(c echo.Context) error {
	uid, err := currentUserID(c)
	if err != nil {
		return err
	}
	var req models.CommentRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	comment, err := h.comments.AddComment(c.Request().Context(), uid, c.Param("id"), req.Text)
	if err != nil {
		return toHTTPError(c, err)
	}
	return respond(c, http.StatusCreated, comment)
}

func (h *CommentHandler) AddReply(c echo.Context) error {
	uid, err := currentUserID(c)
	if err != nil {
		return err
	}
	var req models.CommentRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	reply, err := h.comments.AddReply(c.Request().Context(), uid, c.Param("id"), c.Param("commentId"), req.Text)
	if err != nil {
		return toHTTPError(c, err)
	}
	return respond(c, http.StatusCreated, reply)
}

// ToggleLike likes or unlikes a comment; the id may also name a reply.
func (h *CommentHandler) ToggleLike(c echo.Context) error {
	uid, err := currentUserID(c)
	if err != nil {
		return err
	}
	res, err := h.comments.ToggleCommentLike(c.Request().Context(), uid, c.Param("id"), c.Param("commentId"))
	if err != nil {
		return toHTTPError(c, err)
	}
	return respond(c, http.StatusOK, res)
}
