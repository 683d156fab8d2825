package websocket

import (
	"time"

	"github.com/dounie/opshub/internal/domain"
	"github.com/dounie/opshub/internal/pubsub"
)

// Connection lifecycle topics published on the event bus by the hub.
const (
	// TopicClientConnected is published after a client is registered.
	TopicClientConnected = "ws.client.connected"
	// TopicClientDisconnected is published after a client is unregistered.
	TopicClientDisconnected = "ws.client.disconnected"
)

// LifecycleEvent is the payload of both lifecycle topics.
type LifecycleEvent struct {
	UserID    string      `json:"userID"`
	Username  string      `json:"username,omitempty"`
	Role      domain.Role `json:"role,omitempty"`
	Reason    string      `json:"reason,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// Typed handles for the lifecycle topics.
var (
	ClientConnected    = pubsub.NewEvent[LifecycleEvent](TopicClientConnected)
	ClientDisconnected = pubsub.NewEvent[LifecycleEvent](TopicClientDisconnected)
)
