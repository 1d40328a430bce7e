package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/beacon-dev/beacon/internal/config"
	"github.com/beacon-dev/beacon/internal/telemetry"
	"github.com/beacon-dev/beacon/pkg/protocol"
	"github.com/beacon-dev/beacon/pkg/server"
)

func serveCmd() *cobra.Command {
	var (
		configPath string
		addr       string
		logLevel   string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the signaling relay",
		Long: `Start the signaling relay.

Configuration is read from beacon.json in the working directory
(or the path given with --config); a missing file uses defaults.
Flags override the file.

Examples:
  beacon serve
  beacon serve --addr=:9000
  beacon serve --config=/etc/beacon/beacon.json --log-level=debug`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(configPath, addr, logLevel)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", config.ConfigFileName, "Path to the configuration file")
	cmd.Flags().StringVarP(&addr, "addr", "a", "", "Listen address (overrides the config file)")
	cmd.Flags().StringVarP(&logLevel, "log-level", "l", "", "Log level: debug, info, warn, error")

	return cmd
}

func runServe(configPath, addr, logLevel string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if addr != "" {
		cfg.Addr = addr
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := newLogger(cfg.Log)
	slog.SetDefault(logger)

	telemetry.InitMetrics(telemetry.WithConstLabels(map[string]string{
		"instance": cfg.Name,
	}))

	s := server.New(&server.Config{
		Addr:           cfg.Addr,
		AllowedOrigins: cfg.Origins,
		Conn: server.ConnConfig{
			WriteTimeout:   cfg.WriteTimeout(),
			PongTimeout:    cfg.PongTimeout(),
			MaxMessageSize: protocol.MaxMessageSize,
			SendBuffer:     256,
		},
		Limits: server.Limits{
			MaxConns:      cfg.Limits.MaxConns,
			MaxConnsPerIP: cfg.Limits.MaxConnsPerIP,
			IdleTimeout:   cfg.IdleTimeout(),
		},
		Logger: logger,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.ListenAndServe()
	}()

	logger.Info("beacon started",
		"name", cfg.Name,
		"addr", cfg.Addr,
		"version", version)

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown incomplete", "error", err)
		return err
	}

	logger.Info("shutdown complete")
	return nil
}

// newLogger builds the process logger from the log configuration.
func newLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	return slog.New(handler)
}
