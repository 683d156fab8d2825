// Package hub owns the hub's components and drives the connection
// lifecycle between them.
package hub

import (
	"context"
	"log/slog"
	"time"

	"github.com/dounie/opshub/internal/messaging"
	"github.com/dounie/opshub/internal/metrics"
	"github.com/dounie/opshub/internal/monitor"
	"github.com/dounie/opshub/internal/notifications"
	"github.com/dounie/opshub/internal/presence"
	"github.com/dounie/opshub/internal/pubsub"
	"github.com/dounie/opshub/internal/websocket"
)

// Deps are the components a Hub coordinates. Monitor and Metrics may be nil.
type Deps struct {
	Registry      *websocket.Registry
	Presence      *presence.Tracker
	Router        *messaging.Router
	Notifications *notifications.Service
	Monitor       *monitor.Monitor
	Metrics       *metrics.Metrics
	Publisher     pubsub.Publisher
	Subscriber    pubsub.Subscriber
}

// Hub is the handle passed to the websocket handler and the HTTP layer.
// On connect it registers the client and replays unread messages; inbound
// frames go to the router; on close the client is unregistered. Presence
// follows through lifecycle events on the bus.
type Hub struct {
	deps   Deps
	logger *slog.Logger
}

// New creates a Hub from its components.
func New(deps Deps) *Hub {
	deps.Registry.OnChange(deps.Metrics.SetConnectedUsers)
	deps.Registry.UseDirectory(deps.Presence)
	return &Hub{
		deps:   deps,
		logger: slog.Default().With("component", "hub"),
	}
}

// Start subscribes presence to lifecycle events and starts the health
// monitor. Both stop when ctx is canceled.
func (h *Hub) Start(ctx context.Context) error {
	if err := h.deps.Presence.Start(ctx, h.deps.Subscriber); err != nil {
		return err
	}
	if h.deps.Monitor != nil {
		go h.deps.Monitor.Run(ctx)
	}
	return nil
}

// Registry returns the connection registry.
func (h *Hub) Registry() *websocket.Registry { return h.deps.Registry }

// Presence returns the presence tracker.
func (h *Hub) Presence() *presence.Tracker { return h.deps.Presence }

// Router returns the message router.
func (h *Hub) Router() *messaging.Router { return h.deps.Router }

// Notifications returns the notification service.
func (h *Hub) Notifications() *notifications.Service { return h.deps.Notifications }

// Monitor returns the health monitor, which may be nil.
func (h *Hub) Monitor() *monitor.Monitor { return h.deps.Monitor }

// Connect implements websocket.Lifecycle.
func (h *Hub) Connect(ctx context.Context, client *websocket.Client) {
	id := client.Identity()
	replayed := h.deps.Router.Attach(id.UserID, client)
	h.logger.Info("Client connected", "user_id", id.UserID, "role", id.Role, "replayed", replayed)

	ev := websocket.LifecycleEvent{
		UserID:    id.UserID,
		Username:  id.Username,
		Role:      id.Role,
		Timestamp: time.Now().UTC(),
	}
	if err := websocket.ClientConnected.Publish(ctx, h.deps.Publisher, id.UserID, ev); err != nil {
		h.logger.Error("Failed to publish connect event", "user_id", id.UserID, "error", err)
		h.deps.Presence.Connected(id)
	}
}

// Inbound implements websocket.Lifecycle. Rejected frames are logged by the
// router and never close the connection.
func (h *Hub) Inbound(_ context.Context, client *websocket.Client, payload []byte) {
	_, _ = h.deps.Router.HandleInbound(client.UserID(), payload)
}

// Disconnect implements websocket.Lifecycle. A client that was already
// replaced by a newer connection leaves the registry and presence alone.
func (h *Hub) Disconnect(ctx context.Context, client *websocket.Client) {
	userID := client.UserID()
	if !h.deps.Registry.Remove(userID, client) {
		h.logger.Debug("Replaced client closed", "user_id", userID)
		return
	}
	h.logger.Info("Client disconnected", "user_id", userID)

	ev := websocket.LifecycleEvent{
		UserID:    userID,
		Reason:    "closed",
		Timestamp: time.Now().UTC(),
	}
	if err := websocket.ClientDisconnected.Publish(ctx, h.deps.Publisher, userID, ev); err != nil {
		h.logger.Error("Failed to publish disconnect event", "user_id", userID, "error", err)
		h.deps.Presence.Disconnected(userID)
	}
}
