package presence

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/dounie/opshub/internal/domain"
	"github.com/dounie/opshub/internal/pubsub"
	"github.com/dounie/opshub/internal/websocket"
)

// Connections is the part of the connection registry the tracker needs.
type Connections interface {
	Get(userID string) (websocket.Connection, bool)
	Broadcast(frame []byte) int
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithClock overrides the time source used for lastSeen.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) {
		t.now = now
	}
}

// Tracker keeps one presence record per known user and tells every
// connection when a user comes or goes.
type Tracker struct {
	mu    sync.RWMutex
	users map[string]domain.User

	conns  Connections
	now    func() time.Time
	logger *slog.Logger
}

// NewTracker creates a tracker that broadcasts through conns.
func NewTracker(conns Connections, opts ...Option) *Tracker {
	t := &Tracker{
		users:  make(map[string]domain.User),
		conns:  conns,
		now:    func() time.Time { return time.Now().UTC() },
		logger: slog.Default().With("service", "presence"),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Start subscribes the tracker to the connection lifecycle topics.
func (t *Tracker) Start(ctx context.Context, sub pubsub.Subscriber) error {
	err := websocket.ClientConnected.Subscribe(ctx, sub, func(_ context.Context, ev websocket.LifecycleEvent) error {
		t.Connected(domain.Identity{UserID: ev.UserID, Username: ev.Username, Role: ev.Role})
		return nil
	})
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", websocket.TopicClientConnected, err)
	}

	err = websocket.ClientDisconnected.Subscribe(ctx, sub, func(_ context.Context, ev websocket.LifecycleEvent) error {
		t.Disconnected(ev.UserID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", websocket.TopicClientDisconnected, err)
	}

	t.logger.Info("Presence tracker subscribed to connection lifecycle")
	return nil
}

// RegisterUser adds or updates a user's profile. Live presence of an
// existing record is kept.
func (t *Tracker) RegisterUser(user domain.User) (domain.User, error) {
	if err := user.Validate(); err != nil {
		return domain.User{}, err
	}

	t.mu.Lock()
	if existing, ok := t.users[user.ID]; ok {
		user.IsOnline = existing.IsOnline
		user.LastSeen = existing.LastSeen
	} else {
		user.IsOnline = false
		user.LastSeen = t.now()
	}
	if user.Username == "" {
		user.Username = user.ID
	}
	t.users[user.ID] = user
	t.mu.Unlock()

	t.logger.Debug("User registered", "user_id", user.ID, "role", user.Role)
	return user, nil
}

// Lookup returns the presence record for userID.
func (t *Tracker) Lookup(userID string) (domain.User, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	u, ok := t.users[userID]
	return u, ok
}

// Connected marks the user online and announces it. Users first seen here
// are created from the connection identity.
func (t *Tracker) Connected(id domain.Identity) domain.User {
	t.mu.Lock()
	user, ok := t.users[id.UserID]
	if !ok {
		user = domain.User{ID: id.UserID, Username: id.Username, Role: id.Role}
		if user.Username == "" {
			user.Username = id.UserID
		}
		if !user.Role.Valid() {
			user.Role = domain.RoleClient
		}
	}
	user.IsOnline = true
	user.LastSeen = t.now()
	t.users[id.UserID] = user
	t.mu.Unlock()

	t.logger.Info("User online", "user_id", user.ID)
	t.announce(user)
	return user
}

// Disconnected marks the user offline and announces it. It reports false
// and changes nothing when the user still has a live connection, which
// happens when a replacement connection registered first.
//
// The registry is checked under t.mu so a Connected for a replacement cannot
// land between the check and the offline write.
func (t *Tracker) Disconnected(userID string) (domain.User, bool) {
	t.mu.Lock()
	if _, live := t.conns.Get(userID); live {
		t.mu.Unlock()
		t.logger.Debug("Ignoring disconnect of replaced connection", "user_id", userID)
		return domain.User{}, false
	}

	user, ok := t.users[userID]
	if !ok {
		t.mu.Unlock()
		return domain.User{}, false
	}
	user.IsOnline = false
	user.LastSeen = t.now()
	t.users[userID] = user
	t.mu.Unlock()

	t.logger.Info("User offline", "user_id", user.ID)
	t.announce(user)
	return user, true
}

// All returns every known user ordered by ID.
func (t *Tracker) All() []domain.User {
	return t.collect(func(domain.User) bool { return true })
}

// Online returns the users that are currently connected, ordered by ID.
func (t *Tracker) Online() []domain.User {
	return t.collect(func(u domain.User) bool { return u.IsOnline })
}

func (t *Tracker) collect(keep func(domain.User) bool) []domain.User {
	t.mu.RLock()
	out := make([]domain.User, 0, len(t.users))
	for _, u := range t.users {
		if keep(u) {
			out = append(out, u)
		}
	}
	t.mu.RUnlock()

	slices.SortFunc(out, func(a, b domain.User) int { return strings.Compare(a.ID, b.ID) })
	return out
}

func (t *Tracker) announce(user domain.User) {
	frame, err := websocket.EncodeFrame(websocket.FrameUserStatus, user)
	if err != nil {
		t.logger.Error("Failed to encode user status", "user_id", user.ID, "error", err)
		return
	}
	t.conns.Broadcast(frame)
}
