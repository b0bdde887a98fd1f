package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jpalmerr/itemsync"
	"github.com/jpalmerr/itemsync/config"
	"github.com/jpalmerr/itemsync/dashboard"
	"github.com/jpalmerr/itemsync/internal/server"
	"github.com/jpalmerr/itemsync/internal/watch"
)

const (
	shutdownTimeout = 10 * time.Second
)

// serveCmd starts the controller and its HTTP surface.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the controller and HTTP API",
	Long: `Start the itemsync controller and HTTP server.

The server will:
  - Load configuration from the specified YAML or TOML file
  - Load the selected data source into the cache
  - Serve the REST API, change streams and dashboard on the configured port
  - Optionally watch the database for writes by other processes

The server runs until interrupted (Ctrl+C) or receives SIGTERM.

Example:
  itemsync serve -c itemsync.yaml
  itemsync serve --config /etc/itemsync/itemsync.toml`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringP("config", "c", "", "path to config file (required)")
	_ = serveCmd.MarkFlagRequired("config")
}

func runServe(cmd *cobra.Command, args []string) error {
	configFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger, logCloser := newLogger(cfg.Log, os.Stderr)
	defer func() { _ = logCloser.Close() }()

	logger.Info("config loaded",
		"config", configFile,
		"data_source", itemsync.ParseDataSource(cfg.DataSource).String(),
		"database", cfg.Database,
	)

	// cancel on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ctrl, err := itemsync.New(ctx, config.BuildOptions(cfg, logger)...)
	if err != nil {
		return fmt.Errorf("failed to create controller: %w", err)
	}
	if res := ctrl.LastLoad(); res.Failed() {
		logger.Warn("initial load failed, starting with an empty cache",
			"correlation_id", res.CorrelationID,
		)
	}
	ctrl.Start(ctx)

	var watcher *watch.Watcher
	if cfg.WatchDatabase {
		watcher, err = watch.New(cfg.Database, 0, func() { ctrl.SetNeedsRefresh(true) }, logger)
		if err == nil {
			err = watcher.Start(ctx)
		}
		if err != nil {
			_ = ctrl.Close()
			return fmt.Errorf("failed to watch database: %w", err)
		}
	}

	srv := server.NewServer(ctrl, cfg.Port, dashboard.Assets, cfg.Title, logger)
	if err := srv.Start(ctx); err != nil {
		if watcher != nil {
			_ = watcher.Close()
		}
		_ = ctrl.Close()
		return fmt.Errorf("server error: %w", err)
	}

	logger.Info("serving",
		"port", cfg.Port,
		"auto_refresh", cfg.AutoRefresh.Duration().String(),
		"watch_database", cfg.WatchDatabase,
	)

	<-ctx.Done()
	logger.Info("shutting down")

	// wait for graceful shutdown with timeout
	done := make(chan error, 1)
	go func() {
		var errs []error
		if watcher != nil {
			errs = append(errs, watcher.Close())
		}
		errs = append(errs, ctrl.Close())
		done <- errors.Join(errs...)
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		logger.Info("shutdown complete")
		return nil
	case <-time.After(shutdownTimeout):
		logger.Warn("shutdown timed out",
			"timeout", shutdownTimeout.String(),
			"action", "forcing exit",
		)
		return nil
	}
}
