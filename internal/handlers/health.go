package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/labstack/echo/v4"

	"github.com/dounie/opshub/internal/hub"
)

// HealthHandler reports liveness and a few hub counters.
type HealthHandler struct {
	hub     *hub.Hub
	started time.Time
}

// NewHealthHandler creates a HealthHandler.
func NewHealthHandler(h *hub.Hub) *HealthHandler {
	return &HealthHandler{hub: h, started: time.Now()}
}

// Check handles GET /health.
func (h *HealthHandler) Check(c echo.Context) error {
	monitorState := "disabled"
	if m := h.hub.Monitor(); m != nil {
		monitorState = m.State().String()
	}
	return c.JSON(http.StatusOK, HealthResponse{
		Status:         "ok",
		ConnectedUsers: h.hub.Registry().Count(),
		Messages:       h.hub.Router().Len(),
		Monitor:        monitorState,
		Uptime:         strings.TrimSpace(humanize.RelTime(h.started, time.Now(), "", "")),
	})
}
