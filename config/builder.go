package config

import (
	"log/slog"

	"github.com/jpalmerr/itemsync"
	"github.com/jpalmerr/itemsync/store"
)

// BuildOptions converts parsed configuration into controller options.
//
// logger may be nil, in which case the controller uses slog.Default().
// Watching the database and the HTTP settings are not controller concerns;
// the caller handles those.
func BuildOptions(cfg *Config, logger *slog.Logger) []itemsync.Option {
	opts := []itemsync.Option{
		itemsync.WithDatabasePath(cfg.Database),
		itemsync.WithInitialSource(itemsync.ParseDataSource(cfg.DataSource)),
	}

	if logger != nil {
		opts = append(opts, itemsync.WithLogger(logger))
	}

	if cfg.QueueSize > 0 {
		opts = append(opts, itemsync.WithQueueSize(cfg.QueueSize))
	}

	if cfg.AutoRefresh != 0 {
		opts = append(opts, itemsync.WithAutoRefresh(cfg.AutoRefresh.Duration()))
	}

	if !cfg.SeedDemoRecords() {
		opts = append(opts, itemsync.WithTransientStore(store.NewMemoryStore()))
	}

	return opts
}
