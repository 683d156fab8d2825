package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/dounie/opshub/internal/domain"
	"github.com/dounie/opshub/internal/middleware"
	"github.com/dounie/opshub/internal/notifications"
)

// NotificationHandler serves the notification endpoints.
type NotificationHandler struct {
	svc *notifications.Service
}

// NewNotificationHandler creates a NotificationHandler.
func NewNotificationHandler(svc *notifications.Service) *NotificationHandler {
	return &NotificationHandler{svc: svc}
}

// List handles GET /api/notifications.
func (h *NotificationHandler) List(c echo.Context) error {
	limit, err := queryLimit(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, newList(h.svc.List(limit)))
}

// Create handles POST /api/notifications.
func (h *NotificationHandler) Create(c echo.Context) error {
	var req CreateNotificationRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	n, err := h.svc.Raise(req.Type, req.Message)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	middleware.FromContext(c.Request().Context()).Info("Notification created via API", "notification_id", n.ID, "type", n.Type)
	return c.JSON(http.StatusCreated, n)
}

// Resolve handles POST /api/notifications/:id/resolve.
func (h *NotificationHandler) Resolve(c echo.Context) error {
	id := c.Param("id")
	if err := h.svc.Resolve(id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "notification not found")
		}
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
