// Package monitor samples host health on a timer, raises threshold
// notifications and pushes status snapshots to operators.
package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/dounie/opshub/internal/domain"
	"github.com/dounie/opshub/internal/metrics"
	"github.com/dounie/opshub/internal/websocket"
)

const (
	// DefaultInterval is the period between samples.
	DefaultInterval = 30 * time.Second
	// DefaultMemoryThreshold is the memory percentage above which a warning is raised.
	DefaultMemoryThreshold = 90.0
	// DefaultDiskThreshold is the disk percentage above which an error is raised.
	DefaultDiskThreshold = 85.0

	failureMessage = "monitoring failure"
)

// State is the monitor's lifecycle state.
type State int32

const (
	StateIdle State = iota
	StateSampling
)

func (s State) String() string {
	if s == StateSampling {
		return "sampling"
	}
	return "idle"
}

// Notifier raises system notifications.
type Notifier interface {
	Raise(typ domain.NotificationType, message string) (domain.SystemNotification, error)
}

// Connections is the part of the connection registry the monitor needs.
type Connections interface {
	Count() int
	BroadcastToRoles(roles domain.RoleSet, frame []byte) int
}

// Options tunes the monitor. Zero values take the defaults.
type Options struct {
	Interval        time.Duration
	MemoryThreshold float64
	DiskThreshold   float64
}

// Monitor is the health sampling loop.
type Monitor struct {
	sampler  Sampler
	notifier Notifier
	conns    Connections
	metrics  *metrics.Metrics
	opts     Options

	started time.Time
	now     func() time.Time
	state   atomic.Int32
	logger  *slog.Logger
}

// New creates a monitor. m may be nil.
func New(sampler Sampler, notifier Notifier, conns Connections, m *metrics.Metrics, opts Options) *Monitor {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.MemoryThreshold <= 0 {
		opts.MemoryThreshold = DefaultMemoryThreshold
	}
	if opts.DiskThreshold <= 0 {
		opts.DiskThreshold = DefaultDiskThreshold
	}
	return &Monitor{
		sampler:  sampler,
		notifier: notifier,
		conns:    conns,
		metrics:  m,
		opts:     opts,
		started:  time.Now(),
		now:      func() time.Time { return time.Now().UTC() },
		logger:   slog.Default().With("component", "health_monitor"),
	}
}

// State reports whether a tick is in progress.
func (m *Monitor) State() State {
	return State(m.state.Load())
}

// Run ticks every interval until ctx is canceled.
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.opts.Interval)
	defer ticker.Stop()

	m.logger.Info("Health monitor started", "interval", m.opts.Interval)
	for {
		select {
		case <-ctx.Done():
			m.logger.Info("Health monitor stopped")
			return
		case <-ticker.C:
			if _, err := m.Tick(ctx); err != nil {
				m.logger.Warn("Health monitor tick failed", "error", err)
			}
		}
	}
}

// Tick samples once, evaluates the thresholds and broadcasts the snapshot.
// A sampling failure raises an error notification and skips the snapshot.
func (m *Monitor) Tick(ctx context.Context) (domain.SystemStatus, error) {
	m.state.Store(int32(StateSampling))
	defer m.state.Store(int32(StateIdle))

	sample, err := m.sampler.Sample(ctx)
	if err != nil {
		m.metrics.MonitorFailed()
		m.raise(domain.NotificationError, failureMessage)
		return domain.SystemStatus{}, fmt.Errorf("sample host: %w", err)
	}
	m.metrics.ObserveHost(sample.MemoryPercent, sample.DiskPercent, sample.LoadAverage)

	status := domain.SystemStatus{
		Timestamp:      m.now(),
		MemoryUsage:    math.Round(sample.MemoryPercent),
		DiskUsage:      math.Round(sample.DiskPercent),
		LoadAverage:    sample.LoadAverage,
		Uptime:         math.Floor(time.Since(m.started).Seconds()),
		ConnectedUsers: m.conns.Count(),
	}

	if sample.MemoryPercent > m.opts.MemoryThreshold {
		m.raise(domain.NotificationWarning, fmt.Sprintf("high memory usage: %s%%", humanize.Ftoa(status.MemoryUsage)))
	}
	if sample.DiskPercent > m.opts.DiskThreshold {
		m.raise(domain.NotificationError, fmt.Sprintf("critical disk usage: %s%%", humanize.Ftoa(status.DiskUsage)))
	}

	frame, err := websocket.EncodeFrame(websocket.FrameSystemStatus, status)
	if err != nil {
		return status, err
	}
	delivered := m.conns.BroadcastToRoles(domain.OperatorRoles(), frame)
	m.logger.Debug("Health sample broadcast",
		"memory", status.MemoryUsage,
		"disk", status.DiskUsage,
		"load", status.LoadAverage,
		"delivered", delivered,
	)
	return status, nil
}

func (m *Monitor) raise(typ domain.NotificationType, message string) {
	if _, err := m.notifier.Raise(typ, message); err != nil {
		m.logger.Error("Failed to raise notification", "type", typ, "error", err)
	}
}
