// Package metrics holds the hub's Prometheus collectors. Every recording
// method is safe to call on a nil *Metrics so components can run without
// instrumentation in tests.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "opshub"

// Metrics is the set of hub collectors, registered on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	ConnectedUsers     prometheus.Gauge
	MessagesRouted     *prometheus.CounterVec
	MessagesDropped    *prometheus.CounterVec
	Deliveries         prometheus.Counter
	NotificationsTotal *prometheus.CounterVec
	MemoryUsage        prometheus.Gauge
	DiskUsage          prometheus.Gauge
	LoadAverage        prometheus.Gauge
	MonitorFailures    prometheus.Counter
}

// New creates and registers the hub collectors along with the Go runtime
// and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		ConnectedUsers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connected_users",
			Help:      "Number of users with a live connection.",
		}),
		MessagesRouted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_routed_total",
			Help:      "Messages accepted into the message log, by type.",
		}, []string{"type"}),
		MessagesDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_dropped_total",
			Help:      "Inbound frames dropped before routing, by reason.",
		}, []string{"reason"}),
		Deliveries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "message_deliveries_total",
			Help:      "Frames successfully queued to a connection by the router.",
		}),
		NotificationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "System notifications raised, by type.",
		}, []string{"type"}),
		MemoryUsage: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "host",
			Name:      "memory_usage_percent",
			Help:      "Host memory usage from the last monitor tick.",
		}),
		DiskUsage: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "host",
			Name:      "disk_usage_percent",
			Help:      "Disk usage of the monitored path from the last monitor tick.",
		}),
		LoadAverage: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "host",
			Name:      "load_average_1m",
			Help:      "One-minute load average from the last monitor tick.",
		}),
		MonitorFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "monitor_failures_total",
			Help:      "Monitor ticks whose sampling failed.",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.ConnectedUsers,
		m.MessagesRouted,
		m.MessagesDropped,
		m.Deliveries,
		m.NotificationsTotal,
		m.MemoryUsage,
		m.DiskUsage,
		m.LoadAverage,
		m.MonitorFailures,
	)
	return m
}

// Registry returns the registry holding the collectors.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// SetConnectedUsers records the registry size.
func (m *Metrics) SetConnectedUsers(n int) {
	if m == nil {
		return
	}
	m.ConnectedUsers.Set(float64(n))
}

// MessageRouted counts a message appended to the log.
func (m *Metrics) MessageRouted(messageType string, delivered int) {
	if m == nil {
		return
	}
	m.MessagesRouted.WithLabelValues(messageType).Inc()
	m.Deliveries.Add(float64(delivered))
}

// MessageDropped counts an inbound frame that was rejected.
func (m *Metrics) MessageDropped(reason string) {
	if m == nil {
		return
	}
	m.MessagesDropped.WithLabelValues(reason).Inc()
}

// Replayed counts frames resent on reconnect.
func (m *Metrics) Replayed(n int) {
	if m == nil {
		return
	}
	m.Deliveries.Add(float64(n))
}

// NotificationRaised counts a new system notification.
func (m *Metrics) NotificationRaised(notificationType string) {
	if m == nil {
		return
	}
	m.NotificationsTotal.WithLabelValues(notificationType).Inc()
}

// ObserveHost records one monitor sample.
func (m *Metrics) ObserveHost(memory, disk, load float64) {
	if m == nil {
		return
	}
	m.MemoryUsage.Set(memory)
	m.DiskUsage.Set(disk)
	m.LoadAverage.Set(load)
}

// MonitorFailed counts a failed monitor tick.
func (m *Metrics) MonitorFailed() {
	if m == nil {
		return
	}
	m.MonitorFailures.Inc()
}
