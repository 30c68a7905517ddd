package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/anonto42/nearby/backend/internal/models"
	"github.com/anonto42/nearby/backend/internal/observability"
	"github.com/anonto42/nearby/backend/internal/session"
	"github.com/labstack/echo/v4"
)

const maxListLimit = 200

func respond(c echo.Context, status int, data interface{}) error {
	return c.JSON(status, echo.Map{"success": true, "data": data})
}

// toHTTPError maps service errors onto HTTP errors. Internal details are
// logged, never returned.
func toHTTPError(c echo.Context, err error) error {
	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		return httpErr
	}

	var appErr *models.AppError
	if !errors.As(err, &appErr) {
		appErr = models.NewInternalError(err)
	}

	switch appErr.Code {
	case models.CodeNotFound:
		return echo.NewHTTPError(http.StatusNotFound, appErr.Message)
	case models.CodeValidation:
		return echo.NewHTTPError(http.StatusBadRequest, appErr.Message)
	case models.CodeUnauthorized:
		return echo.NewHTTPError(http.StatusUnauthorized, appErr.Message)
	case models.CodeForbidden:
		return echo.NewHTTPError(http.StatusForbidden, appErr.Message)
	case models.CodeConflict:
		return echo.NewHTTPError(http.StatusConflict, appErr.Message)
	case models.CodeUpstream:
		observability.Logger.Warn("upstream failure", "path", c.Path(), "error", appErr.Error())
		return echo.NewHTTPError(http.StatusBadGateway, appErr.Message)
	default:
		observability.Logger.Error("request failed", "path", c.Path(), "error", appErr.Error())
		return echo.NewHTTPError(http.StatusInternalServerError, "Internal server error")
	}
}

// currentUserID returns the uid of the signed-in user.
func currentUserID(c echo.Context) (string, error) {
	sess, ok := session.From(c)
	if !ok || sess.UserID == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "Not signed in")
	}
	return sess.UserID, nil
}

func bindAndValidate(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	return c.Validate(req)
}

// queryLimit parses ?limit=, returning 0 (store default) when absent.
func queryLimit(c echo.Context) (int, error) {
	raw := c.QueryParam("limit")
	if raw == "" {
		return 0, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "Invalid limit")
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	return limit, nil
}
