package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/jpalmerr/itemsync"
	"github.com/jpalmerr/itemsync/dashboard"
	"github.com/jpalmerr/itemsync/internal/server"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ctrl, err := itemsync.New(ctx,
		itemsync.WithDatabasePath(filepath.Join(os.TempDir(), "itemsync-example.db")),
		itemsync.WithAutoRefresh(2*time.Second),
		itemsync.WithLogger(logger),
		itemsync.WithLoadCallback(func(res itemsync.LoadResult) {
			logger.Info("cache reloaded",
				"outcome", string(res.Outcome),
				"source", res.Source.String(),
				"count", res.Count,
			)
		}),
	)
	if err != nil {
		slog.Error("failed to create controller", "error", err)
		os.Exit(1)
	}
	defer ctrl.Close()

	ctrl.Start(ctx)

	// simulated producer publishing create/update/delete events (see producer.go)
	go RunProducer(ctx, ctrl, logger)

	srv := server.NewServer(ctrl, 8080, dashboard.Assets, "itemsync demo", logger)
	if err := srv.Start(ctx); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	fmt.Println()
	fmt.Println("  itemsync demo")
	fmt.Println()
	fmt.Println("  Open http://localhost:8080 in your browser")
	fmt.Println("  A simulated producer adds, renames and removes records")
	fmt.Println("  every few seconds; the cache reloads when it goes dirty.")
	fmt.Println()
	fmt.Println("  Press Ctrl+C to stop")
	fmt.Println()

	<-ctx.Done()
}
