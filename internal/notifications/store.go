// Package notifications keeps operator-facing system notifications.
package notifications

import (
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/dounie/opshub/internal/domain"
	"github.com/dounie/opshub/internal/store"
)

const (
	// DefaultRetention is the number of notifications kept.
	DefaultRetention = 1000
	// DefaultListLimit is the page size of List when none is given.
	DefaultListLimit = 100
)

// Store is the in-memory notification log.
type Store struct {
	log *store.Log[domain.SystemNotification]
	now func() time.Time
}

// NewStore creates a store retaining at most retention notifications.
// Zero keeps every notification.
func NewStore(retention int) *Store {
	return &Store{
		log: store.NewLog[domain.SystemNotification](retention),
		now: func() time.Time { return time.Now().UTC() },
	}
}

// Append records n as is.
func (s *Store) Append(n domain.SystemNotification) {
	s.log.Append(n)
}

// Create builds an unresolved notification and appends it.
func (s *Store) Create(typ domain.NotificationType, message string) (domain.SystemNotification, error) {
	if !typ.Valid() {
		return domain.SystemNotification{}, fmt.Errorf("unknown notification type %q", typ)
	}
	if message == "" {
		return domain.SystemNotification{}, fmt.Errorf("notification message is required")
	}
	n := domain.SystemNotification{
		ID:        uuid.NewString(),
		Type:      typ,
		Message:   message,
		Timestamp: s.now(),
	}
	s.Append(n)
	return n, nil
}

// Resolve marks the notification resolved. It reports whether it exists;
// resolving twice is harmless.
func (s *Store) Resolve(id string) bool {
	return s.log.Update(
		func(n domain.SystemNotification) bool { return n.ID == id },
		func(n *domain.SystemNotification) { n.Resolved = true },
	)
}

// Get returns the notification with the given ID.
func (s *Store) Get(id string) (domain.SystemNotification, bool) {
	return s.log.Find(func(n domain.SystemNotification) bool { return n.ID == id })
}

// List returns up to limit notifications, newest first by timestamp. Equal
// timestamps put the later insertion first. A non-positive limit means
// DefaultListLimit.
func (s *Store) List(limit int) []domain.SystemNotification {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	all := s.log.Snapshot()
	slices.Reverse(all)
	slices.SortStableFunc(all, func(a, b domain.SystemNotification) int {
		return b.Timestamp.Compare(a.Timestamp)
	})
	if len(all) > limit {
		all = all[:limit]
	}
	return all
}

// Len returns the number of retained notifications.
func (s *Store) Len() int {
	return s.log.Len()
}
