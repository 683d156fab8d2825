package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/dounie/opshub/internal/app"
	"github.com/dounie/opshub/internal/config"
	"github.com/dounie/opshub/internal/logging"
	"github.com/dounie/opshub/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the hub",
	Long: `Runs the websocket hub, the REST API and the health monitor. Configuration
comes from the environment and an optional .env file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
			cfg.Addr = addr
		}
		logging.New(cfg.LogFormat, cfg.LogLevel)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return serve(ctx, cfg)
	},
}

func serve(ctx context.Context, cfg *config.Config) error {
	a, err := app.New(app.NewInjector(cfg))
	if err != nil {
		return fmt.Errorf("initialize application: %w", err)
	}
	defer func() {
		if err := a.Close(); err != nil {
			slog.Warn("Event bus did not close cleanly", "error", err)
		}
	}()

	if err := a.Start(ctx); err != nil {
		return fmt.Errorf("start hub: %w", err)
	}

	slog.Info("Starting opshub",
		"version", version,
		"addr", cfg.Addr,
		"monitor_interval", cfg.MonitorInterval,
		"max_message_size", humanize.IBytes(uint64(cfg.WSMaxMessageSize)),
		"message_retention", humanize.Comma(int64(cfg.MessageRetention)),
	)
	return server.New(cfg, a.Hub, a.Metrics).Start(ctx)
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address, overrides HUB_ADDR")
	rootCmd.AddCommand(serveCmd)
}
