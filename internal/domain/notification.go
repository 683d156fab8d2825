package domain

import "time"

// NotificationType classifies a system notification.
type NotificationType string

const (
	NotificationSystem  NotificationType = "system"
	NotificationBackup  NotificationType = "backup"
	NotificationError   NotificationType = "error"
	NotificationWarning NotificationType = "warning"
	NotificationInfo    NotificationType = "info"
)

// Valid reports whether t is one of the known notification types.
func (t NotificationType) Valid() bool {
	switch t {
	case NotificationSystem, NotificationBackup, NotificationError, NotificationWarning, NotificationInfo:
		return true
	}
	return false
}

// SystemNotification is an operator alert. Only Resolved changes after creation.
type SystemNotification struct {
	ID        string           `json:"id"`
	Type      NotificationType `json:"type"`
	Message   string           `json:"message"`
	Timestamp time.Time        `json:"timestamp"`
	Resolved  bool             `json:"resolved"`
}

// SystemStatus is one sampling tick's snapshot. It is broadcast and then dropped.
type SystemStatus struct {
	Timestamp      time.Time `json:"timestamp"`
	MemoryUsage    float64   `json:"memoryUsage"`
	DiskUsage      float64   `json:"diskUsage"`
	LoadAverage    float64   `json:"loadAverage"`
	Uptime         float64   `json:"uptime"`
	ConnectedUsers int       `json:"connectedUsers"`
}
