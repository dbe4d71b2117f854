package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/stranske/tripward/pkg/config"
	"github.com/stranske/tripward/pkg/exception"
	"github.com/stranske/tripward/pkg/policy/engine"
	"github.com/stranske/tripward/pkg/server"
	"github.com/stranske/tripward/pkg/snapshot"
	"github.com/stranske/tripward/pkg/telemetry/metrics"
)

var (
	serveConfigPath string
	serveListen     string
	serveLogLevel   string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the policy check service",
	Long: `Serve runs the HTTP policy check service: stateless checks at
/v1/check, chained audit snapshots at /v1/trips/{trip}/check, exception
request intake at /v1/exceptions, health at /healthz, and prometheus metrics
at /metrics. The rule configuration is hot-reloaded when watching is enabled,
and overdue exception requests are escalated on the configured cron
schedule.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveConfigPath, "config", "tripward.yaml", "path to the application configuration file")
	serveCmd.Flags().StringVarP(&serveListen, "listen", "l", "", "override listen address")
	serveCmd.Flags().StringVar(&serveLogLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.AddCommand(serveCmd)
}

func newLogger(level string) *slog.Logger {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
}

func openSnapshotStore(cfg *config.Config) (snapshot.Store, func() error, error) {
	switch cfg.Snapshots.Backend {
	case config.BackendSQLite:
		store, err := snapshot.NewSQLiteStore(cfg.Snapshots.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("open snapshot database: %w", err)
		}
		return store, store.Close, nil
	default:
		store, err := snapshot.NewFileStore(cfg.Snapshots.Dir)
		if err != nil {
			return nil, nil, fmt.Errorf("open snapshot directory: %w", err)
		}
		return store, func() error { return nil }, nil
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(serveConfigPath)
	if err != nil {
		return err
	}
	if serveListen != "" {
		cfg.Server.Listen = serveListen
	}

	logger := newLogger(serveLogLevel)
	slog.SetDefault(logger)

	manager, err := engine.NewManager(cfg.Policy.Path, logger)
	if err != nil {
		return fmt.Errorf("load policy configuration: %w", err)
	}
	defer manager.Close()
	if cfg.Policy.Watch {
		if err := manager.Watch(); err != nil {
			return err
		}
	}
	logger.Info("policy configuration loaded",
		"path", cfg.Policy.Path,
		"rule_count", manager.Engine().RuleCount(),
		"watch", cfg.Policy.Watch,
	)

	store, closeStore, err := openSnapshotStore(cfg)
	if err != nil {
		return err
	}
	defer closeStore()
	logger.Info("snapshot store opened", "backend", string(cfg.Snapshots.Backend))

	var registry *prometheus.Registry
	var collector *metrics.Collector
	if cfg.Telemetry.Metrics.Enabled {
		registry = prometheus.NewRegistry()
		collector = metrics.NewCollector(
			&metrics.Config{Namespace: cfg.Telemetry.Metrics.Namespace},
			registry,
		)
		manager.SetRecorder(collector)
	}

	exceptions := exception.NewRegistry()
	sweeper := exception.NewSweeper(exceptions, cfg.Escalation.Schedule, escalationRecorder(collector), logger)
	if err := sweeper.Start(); err != nil {
		return err
	}
	defer sweeper.Stop()

	srv := server.New(server.Config{
		Listen:          cfg.Server.Listen,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	}, manager, store, exceptions, snapshotRecorder(collector), registry, logger)

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Start()
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return err
	case sig := <-sigChan:
		logger.Info("shutting down", "signal", sig.String())
		if err := srv.Shutdown(context.Background()); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return <-errChan
	}
}

// escalationRecorder converts a possibly-nil collector to a possibly-nil
// interface without producing a non-nil interface holding a nil pointer.
func escalationRecorder(c *metrics.Collector) exception.EscalationRecorder {
	if c == nil {
		return nil
	}
	return c
}

func snapshotRecorder(c *metrics.Collector) server.SnapshotRecorder {
	if c == nil {
		return nil
	}
	return c
}
