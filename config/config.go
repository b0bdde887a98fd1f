// Package config provides YAML and TOML configuration parsing for itemsync.
//
// This package enables running itemsync as a standalone binary with a
// configuration file, as an alternative to the programmatic SDK approach.
//
// Example configuration (YAML):
//
//	title: Inventory
//	port: 8080
//	data_source: 1
//	database: ${ITEMSYNC_DB:-itemsync.db}
//	auto_refresh: 2s
//	watch_database: true
//
//	log:
//	  level: debug
//	  file: /var/log/itemsync.log
//
// The same keys are accepted in a TOML file; [Load] picks the format from
// the file extension.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultPort is the HTTP port used when none is configured.
	DefaultPort = 8080

	// DefaultDatabase is the SQLite file used when none is configured.
	DefaultDatabase = "itemsync.db"

	// minAutoRefresh keeps the refresh loop from spinning on the store.
	minAutoRefresh = 100 * time.Millisecond
)

// Config is the root configuration structure for itemsync.
//
// Use [Load], [Parse] or [ParseTOML] to create a Config.
type Config struct {
	// Title is the dashboard title. Defaults to "itemsync" if not set.
	Title string `yaml:"title" toml:"title"`

	// Port is the HTTP server port. Defaults to 8080.
	Port int `yaml:"port" toml:"port"`

	// DataSource selects the store loaded at startup: 0 (transient) or 1
	// (persistent).
	DataSource int `yaml:"data_source" toml:"data_source"`

	// Database is the SQLite file behind the persistent store.
	// Supports environment variable substitution: ${VAR} or ${VAR:-default}
	Database string `yaml:"database" toml:"database"`

	// QueueSize is the event queue capacity. Zero uses the library default.
	QueueSize int `yaml:"queue_size" toml:"queue_size"`

	// AutoRefresh reloads the cache at this interval when it is marked
	// dirty. Zero disables it; otherwise it must be at least 100ms.
	AutoRefresh Duration `yaml:"auto_refresh" toml:"auto_refresh"`

	// WatchDatabase marks the cache dirty when another process writes to
	// the database file.
	WatchDatabase bool `yaml:"watch_database" toml:"watch_database"`

	// SeedDemo fills the transient store with demo records. Defaults to true.
	SeedDemo *bool `yaml:"seed_demo" toml:"seed_demo"`

	Log LogConfig `yaml:"log" toml:"log"`
}

// LogConfig controls the CLI's structured logger.
type LogConfig struct {
	// Level is one of debug, info, warn, error. Defaults to info.
	Level string `yaml:"level" toml:"level"`

	// File, when set, sends logs to a size-rotated file instead of stderr.
	File string `yaml:"file" toml:"file"`

	// MaxSizeMB is the size at which the log file is rotated. Defaults to 100.
	MaxSizeMB int `yaml:"max_size_mb" toml:"max_size_mb"`

	// MaxBackups is the number of rotated files kept. Zero keeps all.
	MaxBackups int `yaml:"max_backups" toml:"max_backups"`

	// MaxAgeDays is how long rotated files are kept. Zero keeps them forever.
	MaxAgeDays int `yaml:"max_age_days" toml:"max_age_days"`

	// Compress gzips rotated files.
	Compress bool `yaml:"compress" toml:"compress"`
}

// SlogLevel returns the configured level. Unknown values map to info;
// [Parse] rejects them.
func (l LogConfig) SlogLevel() slog.Level {
	switch strings.ToLower(l.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// SeedDemoRecords reports whether the transient store gets demo records.
func (c *Config) SeedDemoRecords() bool {
	return c.SeedDemo == nil || *c.SeedDemo
}

// Duration wraps time.Duration for YAML and TOML unmarshalling.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	return d.UnmarshalText([]byte(s))
}

// UnmarshalText implements encoding.TextUnmarshaler, used by the TOML decoder.
func (d *Duration) UnmarshalText(text []byte) error {
	s := string(text)
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Duration returns the underlying time.Duration value.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// envVarPattern matches ${VAR} and ${VAR:-default} patterns.
// Group 1: variable name
// Group 2: the ":-default" part (if present, indicates a default was specified)
// Group 3: the default value (may be empty for ${VAR:-})
var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(:-([^}]*))?\}`)

// expandEnvVars replaces ${VAR} and ${VAR:-default} patterns with environment values.
func expandEnvVars(s string) (string, error) {
	var firstErr error

	result := envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		if firstErr != nil {
			return match
		}

		submatches := envVarPattern.FindStringSubmatch(match)
		if len(submatches) < 2 {
			return match
		}

		varName := submatches[1]
		hasDefault := len(submatches) > 2 && submatches[2] != ""
		defaultVal := ""
		if hasDefault && len(submatches) > 3 {
			defaultVal = submatches[3]
		}

		value, exists := os.LookupEnv(varName)
		if !exists {
			if hasDefault {
				return defaultVal
			}
			firstErr = fmt.Errorf("environment variable %q is not set", varName)
			return match
		}
		return value
	})

	if firstErr != nil {
		return "", firstErr
	}
	return result, nil
}

// Load reads and parses a configuration file. Files ending in ".toml" are
// parsed as TOML, everything else as YAML.
//
// Returns an error if the file cannot be read, parsed or validated.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		return ParseTOML(data)
	}
	return Parse(data)
}

// Parse parses YAML configuration data.
//
// Unknown keys are rejected. Environment variables are expanded in Title,
// Database and Log.File. Defaults are applied for Port (8080) and Database
// ("itemsync.db").
func Parse(data []byte) (*Config, error) {
	var cfg Config

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	return finish(&cfg)
}

// ParseTOML parses TOML configuration data with the same rules as [Parse].
func ParseTOML(data []byte) (*Config, error) {
	var cfg Config

	md, err := toml.Decode(string(data), &cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to parse TOML: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		sort.Strings(keys)
		return nil, fmt.Errorf("failed to parse TOML: unknown keys %s", strings.Join(keys, ", "))
	}

	return finish(&cfg)
}

func finish(cfg *Config) (*Config, error) {
	if cfg.Port == 0 {
		cfg.Port = DefaultPort
	}
	if cfg.Database == "" {
		cfg.Database = DefaultDatabase
	}
	if cfg.Log.MaxSizeMB == 0 {
		cfg.Log.MaxSizeMB = 100
	}

	if err := cfg.expandAndValidate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// expandAndValidate expands environment variables and validates the config.
func (c *Config) expandAndValidate() error {
	for _, field := range []struct {
		name string
		val  *string
	}{
		{"title", &c.Title},
		{"database", &c.Database},
		{"log.file", &c.Log.File},
	} {
		expanded, err := expandEnvVars(*field.val)
		if err != nil {
			return fmt.Errorf("%s: %w", field.name, err)
		}
		*field.val = expanded
	}

	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", c.Port)
	}

	if c.DataSource != 0 && c.DataSource != 1 {
		return fmt.Errorf("data_source must be 0 (transient) or 1 (persistent), got %d", c.DataSource)
	}

	if c.Database == "" {
		return errors.New("database cannot be empty")
	}

	if c.QueueSize < 0 {
		return fmt.Errorf("queue_size cannot be negative, got %d", c.QueueSize)
	}

	if c.AutoRefresh != 0 {
		if c.AutoRefresh.Duration() < 0 {
			return fmt.Errorf("auto_refresh cannot be negative, got %s", c.AutoRefresh.Duration())
		}
		if c.AutoRefresh.Duration() < minAutoRefresh {
			return fmt.Errorf("auto_refresh must be at least %s if specified, got %s",
				minAutoRefresh, c.AutoRefresh.Duration())
		}
	}

	switch strings.ToLower(c.Log.Level) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("log.level must be debug, info, warn or error, got %q", c.Log.Level)
	}

	if c.Log.MaxSizeMB < 0 || c.Log.MaxBackups < 0 || c.Log.MaxAgeDays < 0 {
		return errors.New("log rotation limits cannot be negative")
	}

	return nil
}
