package websocket

import (
	"context"
	"log/slog"
	"slices"
	"time"

	"github.com/coder/websocket"
	"github.com/labstack/echo/v4"
)

// Lifecycle receives the events of every accepted connection. Connect runs
// before the first inbound frame is read; Disconnect runs once, after the
// read loop ends.
type Lifecycle interface {
	Connect(ctx context.Context, client *Client)
	Inbound(ctx context.Context, client *Client, payload []byte)
	Disconnect(ctx context.Context, client *Client)
}

// HandlerOptions tunes accepted connections.
type HandlerOptions struct {
	SendBuffer     int
	WriteTimeout   time.Duration
	MaxMessageSize int64
	// AllowedOrigins are host patterns accepted for cross-origin upgrades.
	// "*" disables the origin check.
	AllowedOrigins []string
}

// Handler upgrades HTTP requests to hub connections.
type Handler struct {
	resolver  *IdentityResolver
	lifecycle Lifecycle
	opts      HandlerOptions
	logger    *slog.Logger
}

// NewHandler creates the upgrade handler.
func NewHandler(resolver *IdentityResolver, lifecycle Lifecycle, opts HandlerOptions) *Handler {
	if opts.MaxMessageSize <= 0 {
		opts.MaxMessageSize = DefaultMaxMessageSize
	}
	return &Handler{
		resolver:  resolver,
		lifecycle: lifecycle,
		opts:      opts,
		logger:    slog.Default().With("component", "ws_handler"),
	}
}

// Serve is the echo handler for the upgrade endpoint. It blocks for the
// lifetime of the connection.
func (h *Handler) Serve(c echo.Context) error {
	identity, ok := h.resolver.Resolve(c)

	acceptOpts := &websocket.AcceptOptions{OriginPatterns: h.opts.AllowedOrigins}
	if slices.Contains(h.opts.AllowedOrigins, "*") {
		acceptOpts.InsecureSkipVerify = true
		acceptOpts.OriginPatterns = nil
	}

	conn, err := websocket.Accept(c.Response(), c.Request(), acceptOpts)
	if err != nil {
		h.logger.Error("Failed to accept websocket connection", "error", err)
		return nil
	}

	if !ok {
		h.logger.Warn("Rejecting connection without identity", "remote_ip", c.RealIP())
		conn.Close(websocket.StatusPolicyViolation, "user identity required")
		return nil
	}

	conn.SetReadLimit(h.opts.MaxMessageSize)
	client := NewClient(identity, conn, h.opts.SendBuffer, h.opts.WriteTimeout)
	go client.writePump()

	ctx := c.Request().Context()
	h.lifecycle.Connect(ctx, client)
	client.readPump(ctx, func(payload []byte) {
		h.lifecycle.Inbound(ctx, client, payload)
	})
	h.lifecycle.Disconnect(context.WithoutCancel(ctx), client)
	client.Close()
	return nil
}
