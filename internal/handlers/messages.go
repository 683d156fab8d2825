package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/dounie/opshub/internal/domain"
	"github.com/dounie/opshub/internal/messaging"
)

// MessageHandler serves the message endpoints.
type MessageHandler struct {
	router *messaging.Router
}

// NewMessageHandler creates a MessageHandler.
func NewMessageHandler(router *messaging.Router) *MessageHandler {
	return &MessageHandler{router: router}
}

// List handles GET /api/messages?userId=&limit=.
func (h *MessageHandler) List(c echo.Context) error {
	userID := c.QueryParam("userId")
	if userID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "userId is required")
	}
	limit, err := queryLimit(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, newList(h.router.Messages(userID, limit)))
}

// Send handles POST /api/messages.
func (h *MessageHandler) Send(c echo.Context) error {
	var req SendMessageRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	msg, err := h.router.Submit(req.From, domain.InboundFrame{
		To:       req.To,
		Content:  req.Content,
		Priority: req.Priority,
	})
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, msg)
}

// MarkRead handles POST /api/messages/:id/read.
func (h *MessageHandler) MarkRead(c echo.Context) error {
	id := c.Param("id")
	var req MarkReadRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	if _, ok := h.router.Get(id); !ok {
		return echo.NewHTTPError(http.StatusNotFound, "message not found")
	}
	// Marking a message addressed to someone else is a no-op.
	h.router.MarkRead(id, req.UserID)
	return c.NoContent(http.StatusNoContent)
}
