package websocket

import (
	"log/slog"
	"sync"

	"github.com/dounie/opshub/internal/domain"
)

// Connection is the registry's view of one live duplex connection.
// Send must not block; a full or closed connection reports an error.
type Connection interface {
	Role() domain.Role
	Send(frame []byte) error
	Close()
}

// Registry owns the live mapping from user ID to connection. A user has at
// most one live connection; registering a new one closes the previous one.
type Registry struct {
	mu     sync.RWMutex
	conns  map[string]Connection
	logger *slog.Logger
	// onChange, if set, is called with the new size after every mutation.
	onChange func(size int)
	// directory, if set, is the source of truth for roles at fan-out time.
	directory Directory
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		conns:  make(map[string]Connection),
		logger: slog.Default().With("component", "connection_registry"),
	}
}

// OnChange installs a callback invoked with the registry size after each
// register or unregister. It is used to feed the connected-users gauge.
func (r *Registry) OnChange(fn func(size int)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onChange = fn
}

// UseDirectory makes role-filtered fan-out read each user's current role
// from dir, so role changes apply to connections that are already open.
// Users unknown to dir keep the role they connected with.
func (r *Registry) UseDirectory(dir Directory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.directory = dir
}

// Register stores conn as the live connection for userID and returns the
// connection it replaced, if any. The replaced connection is closed.
func (r *Registry) Register(userID string, conn Connection) Connection {
	r.mu.Lock()
	prev, replaced := r.conns[userID]
	r.conns[userID] = conn
	size := len(r.conns)
	onChange := r.onChange
	r.mu.Unlock()

	if replaced && prev != conn {
		r.logger.Info("Replacing existing connection", "user_id", userID)
		prev.Close()
	} else {
		prev = nil
	}
	r.logger.Info("Connection registered", "user_id", userID, "total_connections", size)
	if onChange != nil {
		onChange(size)
	}
	return prev
}

// Unregister removes whatever connection is registered for userID.
func (r *Registry) Unregister(userID string) bool {
	r.mu.Lock()
	_, ok := r.conns[userID]
	delete(r.conns, userID)
	size := len(r.conns)
	onChange := r.onChange
	r.mu.Unlock()

	if ok {
		r.logger.Info("Connection unregistered", "user_id", userID, "total_connections", size)
		if onChange != nil {
			onChange(size)
		}
	}
	return ok
}

// Remove unregisters userID only while conn is still its live connection, so
// a connection that was replaced cannot evict its successor.
func (r *Registry) Remove(userID string, conn Connection) bool {
	r.mu.Lock()
	current, ok := r.conns[userID]
	if !ok || current != conn {
		r.mu.Unlock()
		return false
	}
	delete(r.conns, userID)
	size := len(r.conns)
	onChange := r.onChange
	r.mu.Unlock()

	r.logger.Info("Connection unregistered", "user_id", userID, "total_connections", size)
	if onChange != nil {
		onChange(size)
	}
	return true
}

// Get returns the live connection for userID.
func (r *Registry) Get(userID string) (Connection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	conn, ok := r.conns[userID]
	return conn, ok
}

// Count returns the number of live connections.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

// UserIDs returns the IDs of every connected user, in no particular order.
func (r *Registry) UserIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.conns))
	for id := range r.conns {
		ids = append(ids, id)
	}
	return ids
}

// Broadcast sends frame to every connection. It returns the number of
// successful sends.
func (r *Registry) Broadcast(frame []byte) int {
	return r.fanOut(frame, func(string, Connection) bool { return true })
}

// BroadcastExcept sends frame to every connection other than senderID's.
func (r *Registry) BroadcastExcept(senderID string, frame []byte) int {
	return r.fanOut(frame, func(userID string, _ Connection) bool { return userID != senderID })
}

// BroadcastToRoles sends frame only to connections whose user's role is in
// roles.
func (r *Registry) BroadcastToRoles(roles domain.RoleSet, frame []byte) int {
	r.mu.RLock()
	dir := r.directory
	r.mu.RUnlock()

	return r.fanOut(frame, func(userID string, conn Connection) bool {
		role := conn.Role()
		if dir != nil {
			if user, ok := dir.Lookup(userID); ok && user.Role.Valid() {
				role = user.Role
			}
		}
		return roles.Has(role)
	})
}

type target struct {
	userID string
	conn   Connection
}

// fanOut snapshots the connections under the read lock, then filters and
// sends outside of it; include may take other locks. A failing connection
// is logged and skipped.
func (r *Registry) fanOut(frame []byte, include func(string, Connection) bool) int {
	r.mu.RLock()
	targets := make([]target, 0, len(r.conns))
	for userID, conn := range r.conns {
		targets = append(targets, target{userID: userID, conn: conn})
	}
	r.mu.RUnlock()

	delivered := 0
	for _, t := range targets {
		if !include(t.userID, t.conn) {
			continue
		}
		if err := t.conn.Send(frame); err != nil {
			r.logger.Warn("Skipping connection during fan-out", "user_id", t.userID, "error", err)
			continue
		}
		delivered++
	}
	return delivered
}
