package notifications

import (
	"fmt"
	"log/slog"

	"github.com/dounie/opshub/internal/domain"
	"github.com/dounie/opshub/internal/metrics"
	"github.com/dounie/opshub/internal/websocket"
)

// Broadcaster delivers frames to connections holding one of the given roles.
type Broadcaster interface {
	BroadcastToRoles(roles domain.RoleSet, frame []byte) int
}

// Service records notifications and pushes each new one to operators.
type Service struct {
	store   *Store
	conns   Broadcaster
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewService creates a notification service. m may be nil.
func NewService(store *Store, conns Broadcaster, m *metrics.Metrics) *Service {
	return &Service{
		store:   store,
		conns:   conns,
		metrics: m,
		logger:  slog.Default().With("service", "notifications"),
	}
}

// Raise creates a notification and broadcasts it to admins and managers.
func (s *Service) Raise(typ domain.NotificationType, message string) (domain.SystemNotification, error) {
	n, err := s.store.Create(typ, message)
	if err != nil {
		return domain.SystemNotification{}, err
	}
	s.metrics.NotificationRaised(string(typ))

	frame, err := websocket.EncodeFrame(websocket.FrameSystemNotification, n)
	if err != nil {
		s.logger.Error("Failed to encode notification", "notification_id", n.ID, "error", err)
		return n, nil
	}
	delivered := s.conns.BroadcastToRoles(domain.OperatorRoles(), frame)
	s.logger.Info("Notification raised", "notification_id", n.ID, "type", n.Type, "delivered", delivered)
	return n, nil
}

// Resolve marks a notification resolved.
func (s *Service) Resolve(id string) error {
	if !s.store.Resolve(id) {
		return fmt.Errorf("notification %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// List returns notifications newest first.
func (s *Service) List(limit int) []domain.SystemNotification {
	return s.store.List(limit)
}

// Get returns a single notification.
func (s *Service) Get(id string) (domain.SystemNotification, bool) {
	return s.store.Get(id)
}
