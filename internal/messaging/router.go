// Package messaging routes user messages between connections and keeps the
// message log.
package messaging

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dounie/opshub/internal/domain"
	"github.com/dounie/opshub/internal/metrics"
	"github.com/dounie/opshub/internal/store"
	"github.com/dounie/opshub/internal/websocket"
)

const (
	// DefaultRetention is the number of messages kept in the log.
	DefaultRetention = 10000
	// DefaultHistoryLimit is the page size of Messages when none is given.
	DefaultHistoryLimit = 50
)

// Connections is the part of the connection registry the router needs.
type Connections interface {
	Register(userID string, conn websocket.Connection) websocket.Connection
	Get(userID string) (websocket.Connection, bool)
	BroadcastExcept(senderID string, frame []byte) int
}

// Option configures a Router.
type Option func(*Router)

// WithRetention bounds the message log. Zero keeps every message.
func WithRetention(n int) Option {
	return func(r *Router) { r.retention = n }
}

// WithMetrics records routing activity.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Router) { r.metrics = m }
}

// WithClock overrides the message timestamp source.
func WithClock(now func() time.Time) Option {
	return func(r *Router) { r.now = now }
}

// Router validates, records and delivers messages.
//
// Appending a message and delivering it happen under one dispatch lock, as
// do registering a connection and replaying its unread messages. A message
// routed while its recipient connects is therefore delivered exactly once,
// either live or by replay. Everything done under the lock is a
// non-blocking queue push.
type Router struct {
	dispatch sync.Mutex
	log      *store.Log[domain.Message]
	conns    Connections

	retention int
	metrics   *metrics.Metrics
	now       func() time.Time
	logger    *slog.Logger
}

// NewRouter creates a router delivering through conns.
func NewRouter(conns Connections, opts ...Option) *Router {
	r := &Router{
		conns:     conns,
		retention: DefaultRetention,
		now:       func() time.Time { return time.Now().UTC() },
		logger:    slog.Default().With("component", "message_router"),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.log = store.NewLog[domain.Message](r.retention)
	return r
}

// HandleInbound parses a raw client frame from fromUserID and routes it.
// Malformed or invalid frames are logged and dropped; the returned error
// only informs the caller.
func (r *Router) HandleInbound(fromUserID string, raw []byte) (domain.Message, error) {
	in, err := domain.ParseInboundFrame(raw)
	if err != nil {
		reason := "invalid"
		if errors.Is(err, domain.ErrMalformedFrame) {
			reason = "malformed"
		}
		r.metrics.MessageDropped(reason)
		r.logger.Warn("Dropping inbound frame", "user_id", fromUserID, "reason", reason, "error", err)
		return domain.Message{}, err
	}
	return r.route(fromUserID, in), nil
}

// Submit validates in and routes it as if fromUserID had sent it.
func (r *Router) Submit(fromUserID string, in domain.InboundFrame) (domain.Message, error) {
	if fromUserID == "" {
		return domain.Message{}, fmt.Errorf("%w: sender is required", domain.ErrInvalidFrame)
	}
	if err := in.Validate(); err != nil {
		return domain.Message{}, err
	}
	return r.route(fromUserID, in), nil
}

// SendDirect routes a message to a single recipient.
func (r *Router) SendDirect(from, to, content string, priority domain.Priority) (domain.Message, error) {
	if to == "" || to == domain.RecipientAll {
		return domain.Message{}, fmt.Errorf("%w: direct message needs a recipient", domain.ErrInvalidFrame)
	}
	return r.Submit(from, domain.InboundFrame{To: to, Content: content, Type: domain.MessageDirect, Priority: priority})
}

// Broadcast routes a message to every connection except the sender's.
func (r *Router) Broadcast(from, content string, priority domain.Priority) (domain.Message, error) {
	return r.Submit(from, domain.InboundFrame{To: domain.RecipientAll, Content: content, Type: domain.MessageBroadcast, Priority: priority})
}

func (r *Router) route(from string, in domain.InboundFrame) domain.Message {
	to, typ, priority := in.Normalize()
	msg := domain.Message{
		ID:        uuid.NewString(),
		From:      from,
		To:        to,
		Content:   in.Content,
		Type:      typ,
		Timestamp: r.now(),
		Priority:  priority,
	}

	r.dispatch.Lock()
	if r.log.Append(msg) {
		r.logger.Debug("Message log full, evicted oldest entry")
	}
	delivered := r.deliver(msg)
	r.dispatch.Unlock()

	r.metrics.MessageRouted(string(msg.Type), delivered)
	r.logger.Debug("Message routed", "message_id", msg.ID, "from", from, "to", to, "delivered", delivered)
	return msg
}

// deliver must be called with the dispatch lock held.
func (r *Router) deliver(msg domain.Message) int {
	frame, err := websocket.EncodeFrame(websocket.FrameMessage, msg)
	if err != nil {
		r.logger.Error("Failed to encode message", "message_id", msg.ID, "error", err)
		return 0
	}

	if msg.IsBroadcast() {
		return r.conns.BroadcastExcept(msg.From, frame)
	}

	conn, ok := r.conns.Get(msg.To)
	if !ok {
		return 0
	}
	if err := conn.Send(frame); err != nil {
		r.logger.Warn("Direct delivery failed, message stays unread", "message_id", msg.ID, "to", msg.To, "error", err)
		return 0
	}
	return 1
}

// Attach registers conn for userID and replays the user's unread direct
// messages to it. It returns the number of replayed messages.
func (r *Router) Attach(userID string, conn websocket.Connection) int {
	r.dispatch.Lock()
	r.conns.Register(userID, conn)
	n := r.replay(userID)
	r.dispatch.Unlock()

	r.metrics.Replayed(n)
	return n
}

// OnConnect resends every unread message addressed to userID, oldest first.
func (r *Router) OnConnect(userID string) int {
	r.dispatch.Lock()
	n := r.replay(userID)
	r.dispatch.Unlock()

	r.metrics.Replayed(n)
	return n
}

// replay must be called with the dispatch lock held.
func (r *Router) replay(userID string) int {
	conn, ok := r.conns.Get(userID)
	if !ok {
		return 0
	}

	unread := r.log.Filter(func(m domain.Message) bool {
		return m.To == userID && !m.Read
	})
	sent := 0
	for _, msg := range unread {
		frame, err := websocket.EncodeFrame(websocket.FrameMessage, msg)
		if err != nil {
			r.logger.Error("Failed to encode message", "message_id", msg.ID, "error", err)
			continue
		}
		if err := conn.Send(frame); err != nil {
			r.logger.Warn("Replay interrupted", "user_id", userID, "error", err)
			break
		}
		sent++
	}
	if sent > 0 {
		r.logger.Info("Replayed unread messages", "user_id", userID, "count", sent)
	}
	return sent
}

// MarkRead flips the read flag of messageID when userID is its recipient.
// It reports whether such a message exists; marking twice is harmless.
func (r *Router) MarkRead(messageID, userID string) bool {
	return r.log.Update(
		func(m domain.Message) bool { return m.ID == messageID && m.To == userID },
		func(m *domain.Message) { m.Read = true },
	)
}

// Get returns the message with the given ID.
func (r *Router) Get(messageID string) (domain.Message, bool) {
	return r.log.Find(func(m domain.Message) bool { return m.ID == messageID })
}

// Messages returns the user's history, newest first: messages sent to or
// by userID plus every broadcast. A non-positive limit means
// DefaultHistoryLimit.
func (r *Router) Messages(userID string, limit int) []domain.Message {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	history := r.log.Filter(func(m domain.Message) bool {
		return m.To == userID || m.From == userID || m.IsBroadcast()
	})
	slices.Reverse(history)
	if len(history) > limit {
		history = history[:limit]
	}
	return history
}

// Len returns the number of retained messages.
func (r *Router) Len() int {
	return r.log.Len()
}
