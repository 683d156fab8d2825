package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/dounie/opshub/internal/domain"
	"github.com/dounie/opshub/internal/presence"
)

// UserHandler serves the user directory endpoints.
type UserHandler struct {
	tracker *presence.Tracker
}

// NewUserHandler creates a UserHandler.
func NewUserHandler(tracker *presence.Tracker) *UserHandler {
	return &UserHandler{tracker: tracker}
}

// List handles GET /api/users.
func (h *UserHandler) List(c echo.Context) error {
	return c.JSON(http.StatusOK, newList(h.tracker.All()))
}

// Online handles GET /api/users/online.
func (h *UserHandler) Online(c echo.Context) error {
	return c.JSON(http.StatusOK, newList(h.tracker.Online()))
}

// Register handles POST /api/users.
func (h *UserHandler) Register(c echo.Context) error {
	var req RegisterUserRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	user, err := h.tracker.RegisterUser(domain.User{ID: req.ID, Username: req.Username, Role: req.Role})
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, user)
}
