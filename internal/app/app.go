// Package app is the composition root. It wires the hub's services from
// configuration with a samber/do injector.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/samber/do/v2"
	"github.com/spf13/afero"

	"github.com/dounie/opshub/internal/config"
	"github.com/dounie/opshub/internal/hub"
	"github.com/dounie/opshub/internal/messaging"
	"github.com/dounie/opshub/internal/metrics"
	"github.com/dounie/opshub/internal/monitor"
	"github.com/dounie/opshub/internal/notifications"
	"github.com/dounie/opshub/internal/presence"
	"github.com/dounie/opshub/internal/pubsub"
	"github.com/dounie/opshub/internal/websocket"
)

// NewInjector registers every service provider. Services are built lazily
// on first invocation; tests replace providers with do.Override.
func NewInjector(cfg *config.Config) *do.RootScope {
	i := do.New()

	do.ProvideValue(i, cfg)
	do.ProvideValue[afero.Fs](i, afero.NewOsFs())
	do.Provide(i, func(do.Injector) (*metrics.Metrics, error) {
		return metrics.New(), nil
	})
	do.Provide(i, func(do.Injector) (*pubsub.WatermillBridge, error) {
		return pubsub.NewWatermillBridge(), nil
	})
	do.Provide(i, func(do.Injector) (*websocket.Registry, error) {
		return websocket.NewRegistry(), nil
	})
	do.Provide(i, provideTracker)
	do.Provide(i, provideRouter)
	do.Provide(i, provideNotifications)
	do.Provide(i, func(i do.Injector) (monitor.Sampler, error) {
		cfg := do.MustInvoke[*config.Config](i)
		return monitor.NewHostSampler(cfg.MonitorDiskPath), nil
	})
	do.Provide(i, provideMonitor)
	do.Provide(i, provideHub)
	return i
}

func provideTracker(i do.Injector) (*presence.Tracker, error) {
	return presence.NewTracker(do.MustInvoke[*websocket.Registry](i)), nil
}

func provideRouter(i do.Injector) (*messaging.Router, error) {
	cfg := do.MustInvoke[*config.Config](i)
	return messaging.NewRouter(
		do.MustInvoke[*websocket.Registry](i),
		messaging.WithRetention(cfg.MessageRetention),
		messaging.WithMetrics(do.MustInvoke[*metrics.Metrics](i)),
	), nil
}

func provideNotifications(i do.Injector) (*notifications.Service, error) {
	cfg := do.MustInvoke[*config.Config](i)
	return notifications.NewService(
		notifications.NewStore(cfg.NotificationRetention),
		do.MustInvoke[*websocket.Registry](i),
		do.MustInvoke[*metrics.Metrics](i),
	), nil
}

func provideMonitor(i do.Injector) (*monitor.Monitor, error) {
	cfg := do.MustInvoke[*config.Config](i)
	return monitor.New(
		do.MustInvoke[monitor.Sampler](i),
		do.MustInvoke[*notifications.Service](i),
		do.MustInvoke[*websocket.Registry](i),
		do.MustInvoke[*metrics.Metrics](i),
		monitor.Options{
			Interval:        cfg.MonitorInterval,
			MemoryThreshold: cfg.MonitorMemoryThreshold,
			DiskThreshold:   cfg.MonitorDiskThreshold,
		},
	), nil
}

func provideHub(i do.Injector) (*hub.Hub, error) {
	bus := do.MustInvoke[*pubsub.WatermillBridge](i)
	return hub.New(hub.Deps{
		Registry:      do.MustInvoke[*websocket.Registry](i),
		Presence:      do.MustInvoke[*presence.Tracker](i),
		Router:        do.MustInvoke[*messaging.Router](i),
		Notifications: do.MustInvoke[*notifications.Service](i),
		Monitor:       do.MustInvoke[*monitor.Monitor](i),
		Metrics:       do.MustInvoke[*metrics.Metrics](i),
		Publisher:     bus,
		Subscriber:    bus,
	}), nil
}

// App is the running hub process minus its HTTP server.
type App struct {
	Config  *config.Config
	Hub     *hub.Hub
	Metrics *metrics.Metrics

	bus *pubsub.WatermillBridge
	fs  afero.Fs
}

// New resolves the application from an injector built by NewInjector.
func New(i do.Injector) (*App, error) {
	h, err := do.Invoke[*hub.Hub](i)
	if err != nil {
		return nil, fmt.Errorf("build hub: %w", err)
	}
	return &App{
		Config:  do.MustInvoke[*config.Config](i),
		Hub:     h,
		Metrics: do.MustInvoke[*metrics.Metrics](i),
		bus:     do.MustInvoke[*pubsub.WatermillBridge](i),
		fs:      do.MustInvoke[afero.Fs](i),
	}, nil
}

// Start loads the roster, then starts the hub and, when enabled, the roster
// watcher. Everything stops when ctx is canceled.
func (a *App) Start(ctx context.Context) error {
	if path := a.Config.RosterFile; path != "" {
		if _, err := a.Hub.Presence().ApplyRoster(a.fs, path); err != nil {
			return fmt.Errorf("load roster: %w", err)
		}
		if a.Config.RosterWatch {
			if err := a.Hub.Presence().WatchRoster(ctx, a.fs, path); err != nil {
				slog.Warn("Roster hot reload disabled", "path", path, "error", err)
			}
		}
	}
	return a.Hub.Start(ctx)
}

// Close releases the event bus.
func (a *App) Close() error {
	return a.bus.Close()
}
