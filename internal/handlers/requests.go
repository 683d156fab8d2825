package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/dounie/opshub/internal/domain"
)

// CustomValidator wraps the go-playground/validator library to implement Echo's Validator interface.
type CustomValidator struct {
	validator *validator.Validate
}

// NewValidator creates a CustomValidator sharing the domain's validator.
func NewValidator() *CustomValidator {
	return &CustomValidator{validator: domain.Validator()}
}

// Validate implements the echo.Validator interface.
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}

// CreateNotificationRequest is the body of POST /api/notifications.
type CreateNotificationRequest struct {
	Type    domain.NotificationType `json:"type" validate:"required,oneof=system backup error warning info"`
	Message string                  `json:"message" validate:"required,max=1000"`
}

// SendMessageRequest is the body of POST /api/messages. Omitting To sends a
// broadcast.
type SendMessageRequest struct {
	From     string          `json:"from" validate:"required,max=128"`
	To       string          `json:"to" validate:"max=128"`
	Content  string          `json:"content" validate:"required,max=4000"`
	Priority domain.Priority `json:"priority" validate:"omitempty,oneof=low normal high urgent"`
}

// MarkReadRequest is the body of POST /api/messages/:id/read.
type MarkReadRequest struct {
	UserID string `json:"userId" validate:"required"`
}

// RegisterUserRequest is the body of POST /api/users.
type RegisterUserRequest struct {
	ID       string      `json:"id" validate:"required,max=128"`
	Username string      `json:"username" validate:"max=128"`
	Role     domain.Role `json:"role" validate:"required,oneof=admin manager staff client"`
}

// bindAndValidate decodes the request body into req and validates it.
func bindAndValidate(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}

// queryLimit parses the optional limit query parameter. Zero means the
// caller's default.
func queryLimit(c echo.Context) (int, error) {
	raw := c.QueryParam("limit")
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "limit must be a non-negative integer")
	}
	return n, nil
}
