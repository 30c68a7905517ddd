// Package validators plugs go-playground/validator into Echo.
package validators

import (
	"net/http"
	"strings"

	"github.com/anonto42/nearby/backend/internal/models"
	"github.com/anonto42/nearby/backend/pkg/tags"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

// CustomValidator implements echo.Validator.
type CustomValidator struct {
	validator *validator.Validate
}

func NewValidator() *CustomValidator {
	v := validator.New()
	// Registration only fails on an empty tag or a nil func.
	_ = v.RegisterValidation("tags", validateTags)
	_ = v.RegisterValidation("theme", validateTheme)
	return &CustomValidator{validator: v}
}

// Validate returns a 400 HTTP error describing every failed field.
func (cv *CustomValidator) Validate(i interface{}) error {
	if err := cv.validator.Struct(i); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, describe(err))
	}
	return nil
}

// validateTags accepts lists holding at most tags.MaxPerPost distinct tags
// once blanks and case-insensitive duplicates are dropped.
func validateTags(fl validator.FieldLevel) bool {
	in, ok := fl.Field().Interface().([]string)
	if !ok {
		return false
	}
	return len(tags.Clean(in)) <= tags.MaxPerPost
}

func validateTheme(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case models.ThemeDark, models.ThemeLight:
		return true
	}
	return false
}

func describe(err error) string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fieldMessage(fe))
	}
	return strings.Join(msgs, "; ")
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "required_without":
		return fe.Field() + " is required"
	case "max":
		return fe.Field() + " must be at most " + fe.Param()
	case "min":
		return fe.Field() + " must be at least " + fe.Param()
	case "tags":
		return fe.Field() + " must hold at most 3 distinct tags"
	case "theme":
		return fe.Field() + " must be dark or light"
	case "latitude", "longitude":
		return fe.Field() + " must be a valid " + fe.Tag()
	default:
		return fe.Field() + " is invalid (" + fe.Tag() + ")"
	}
}
