package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestParse_EmptyConfig(t *testing.T) {
	cfg, err := Parse(nil)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	// check defaults applied
	if cfg.Port != 8080 {
		t.Errorf("Port = %d, want 8080", cfg.Port)
	}
	if cfg.Database != "itemsync.db" {
		t.Errorf("Database = %q, want itemsync.db", cfg.Database)
	}
	if cfg.DataSource != 0 {
		t.Errorf("DataSource = %d, want 0", cfg.DataSource)
	}
	if !cfg.SeedDemoRecords() {
		t.Error("SeedDemoRecords() = false, want true by default")
	}
	if cfg.Log.SlogLevel() != slog.LevelInfo {
		t.Errorf("Log.SlogLevel() = %v, want info", cfg.Log.SlogLevel())
	}
	if cfg.Log.MaxSizeMB != 100 {
		t.Errorf("Log.MaxSizeMB = %d, want 100", cfg.Log.MaxSizeMB)
	}
}

func TestParse_FullConfig(t *testing.T) {
	yaml := `
title: Inventory
port: 9090
data_source: 1
database: /tmp/items.db
queue_size: 256
auto_refresh: 2s
watch_database: true
seed_demo: false
log:
  level: debug
  file: /tmp/itemsync.log
  max_size_mb: 10
  max_backups: 3
  max_age_days: 7
  compress: true
`
	cfg, err := Parse([]byte(yaml))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if cfg.Title != "Inventory" {
		t.Errorf("Title = %q, want Inventory", cfg.Title)
	}
	if cfg.Port != 9090 {
		t.Errorf("Port = %d, want 9090", cfg.Port)
	}
	if cfg.DataSource != 1 {
		t.Errorf("DataSource = %d, want 1", cfg.DataSource)
	}
	if cfg.Database != "/tmp/items.db" {
		t.Errorf("Database = %q", cfg.Database)
	}
	if cfg.QueueSize != 256 {
		t.Errorf("QueueSize = %d, want 256", cfg.QueueSize)
	}
	if cfg.AutoRefresh.Duration() != 2*time.Second {
		t.Errorf("AutoRefresh = %v, want 2s", cfg.AutoRefresh.Duration())
	}
	if !cfg.WatchDatabase {
		t.Error("WatchDatabase = false, want true")
	}
	if cfg.SeedDemoRecords() {
		t.Error("SeedDemoRecords() = true, want false")
	}
	if cfg.Log.SlogLevel() != slog.LevelDebug {
		t.Errorf("Log.SlogLevel() = %v, want debug", cfg.Log.SlogLevel())
	}
	if cfg.Log.File != "/tmp/itemsync.log" || cfg.Log.MaxSizeMB != 10 ||
		cfg.Log.MaxBackups != 3 || cfg.Log.MaxAgeDays != 7 || !cfg.Log.Compress {
		t.Errorf("Log = %+v", cfg.Log)
	}
}

func TestParseTOML_FullConfig(t *testing.T) {
	data := `
title = "Inventory"
port = 9090
data_source = 1
database = "/tmp/items.db"
auto_refresh = "500ms"
seed_demo = false

[log]
level = "warn"
`
	cfg, err := ParseTOML([]byte(data))
	if err != nil {
		t.Fatalf("ParseTOML() error = %v", err)
	}

	if cfg.Title != "Inventory" || cfg.Port != 9090 || cfg.DataSource != 1 {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.AutoRefresh.Duration() != 500*time.Millisecond {
		t.Errorf("AutoRefresh = %v, want 500ms", cfg.AutoRefresh.Duration())
	}
	if cfg.SeedDemoRecords() {
		t.Error("SeedDemoRecords() = true, want false")
	}
	if cfg.Log.SlogLevel() != slog.LevelWarn {
		t.Errorf("Log.SlogLevel() = %v, want warn", cfg.Log.SlogLevel())
	}
}

func TestParseTOML_Errors(t *testing.T) {
	tests := []struct {
		name        string
		data        string
		wantErrLike string
	}{
		{"syntax", `port = `, "failed to parse TOML"},
		{"unknown key", "port = 80\ncolour = \"red\"", "unknown keys colour"},
		{"bad duration", `auto_refresh = "soon"`, "invalid duration"},
		{"validation", `data_source = 3`, "data_source"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseTOML([]byte(tt.data))
			if err == nil {
				t.Fatal("ParseTOML() expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErrLike) {
				t.Errorf("error = %q, want containing %q", err, tt.wantErrLike)
			}
		})
	}
}

func TestParse_ValidationErrors(t *testing.T) {
	tests := []struct {
		name        string
		yaml        string
		wantErrLike string
	}{
		{"negative port", `port: -1`, "port must be between"},
		{"port too large", `port: 70000`, "port must be between"},
		{"bad data source", `data_source: 2`, "data_source must be 0"},
		{"negative queue", `queue_size: -5`, "queue_size cannot be negative"},
		{"negative auto refresh", `auto_refresh: -1s`, "auto_refresh cannot be negative"},
		{"auto refresh too small", `auto_refresh: 10ms`, "auto_refresh must be at least 100ms"},
		{"bad log level", "log:\n  level: loud", "log.level"},
		{"negative rotation", "log:\n  max_backups: -1", "rotation limits"},
		{"unknown key", `colour: red`, "field colour not found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			if err == nil {
				t.Fatal("Parse() expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErrLike) {
				t.Errorf("error = %q, want containing %q", err, tt.wantErrLike)
			}
		})
	}
}

func TestParse_InvalidYAML(t *testing.T) {
	_, err := Parse([]byte("port: [unclosed"))
	if err == nil {
		t.Fatal("Parse() expected error for invalid YAML")
	}
	if !strings.Contains(err.Error(), "failed to parse YAML") {
		t.Errorf("error = %q, want YAML parse error", err)
	}
}

func TestParse_EnvVarSubstitution(t *testing.T) {
	t.Setenv("ITEMSYNC_TEST_DB", "/data/items.db")

	yaml := `
title: ${ITEMSYNC_TEST_TITLE:-Inventory}
database: ${ITEMSYNC_TEST_DB}
log:
  file: ${ITEMSYNC_TEST_LOG:-}
`
	cfg, err := Parse([]byte(yaml))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if cfg.Database != "/data/items.db" {
		t.Errorf("Database = %q, want /data/items.db", cfg.Database)
	}
	if cfg.Title != "Inventory" {
		t.Errorf("Title = %q, want default Inventory", cfg.Title)
	}
	if cfg.Log.File != "" {
		t.Errorf("Log.File = %q, want empty", cfg.Log.File)
	}
}

func TestParse_EnvVarMissing(t *testing.T) {
	_, err := Parse([]byte(`database: ${ITEMSYNC_DEFINITELY_UNSET}`))
	if err == nil {
		t.Fatal("Parse() expected error for missing env var")
	}
	if !strings.Contains(err.Error(), "database") || !strings.Contains(err.Error(), "ITEMSYNC_DEFINITELY_UNSET") {
		t.Errorf("error = %q, want field and variable named", err)
	}
}

func TestParse_EnvVarEmptyDatabase(t *testing.T) {
	t.Setenv("ITEMSYNC_EMPTY", "")
	if _, err := Parse([]byte(`database: ${ITEMSYNC_EMPTY}`)); err == nil {
		t.Fatal("Parse() expected error for empty database after expansion")
	}
}

func TestDuration_Unmarshal(t *testing.T) {
	tests := []struct {
		input   string
		want    time.Duration
		wantErr bool
	}{
		{"100ms", 100 * time.Millisecond, false},
		{"1m30s", 90 * time.Second, false},
		{"0", 0, false},
		{"ten", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			var d Duration
			err := d.UnmarshalText([]byte(tt.input))
			if tt.wantErr {
				if err == nil {
					t.Fatal("UnmarshalText() expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("UnmarshalText() error = %v", err)
			}
			if d.Duration() != tt.want {
				t.Errorf("Duration() = %v, want %v", d.Duration(), tt.want)
			}
		})
	}
}

func TestLogConfig_SlogLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"":        slog.LevelInfo,
		"DEBUG":   slog.LevelDebug,
		"info":    slog.LevelInfo,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
	}
	for in, want := range tests {
		if got := (LogConfig{Level: in}).SlogLevel(); got != want {
			t.Errorf("SlogLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestLoad_PicksFormatByExtension(t *testing.T) {
	dir := t.TempDir()

	yamlPath := filepath.Join(dir, "itemsync.yaml")
	if err := os.WriteFile(yamlPath, []byte("port: 7000\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	tomlPath := filepath.Join(dir, "itemsync.TOML")
	if err := os.WriteFile(tomlPath, []byte("port = 7001\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(yamlPath)
	if err != nil {
		t.Fatalf("Load(yaml) error = %v", err)
	}
	if cfg.Port != 7000 {
		t.Errorf("yaml Port = %d, want 7000", cfg.Port)
	}

	cfg, err = Load(tomlPath)
	if err != nil {
		t.Fatalf("Load(toml) error = %v", err)
	}
	if cfg.Port != 7001 {
		t.Errorf("toml Port = %d, want 7001", cfg.Port)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil || !strings.Contains(err.Error(), "failed to read config file") {
		t.Errorf("Load() error = %v, want read error", err)
	}
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("TEST_VAR", "value")
	t.Setenv("EMPTY_VAR", "") // set but empty

	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"no vars", "plain text", "plain text", false},
		{"simple var", "${TEST_VAR}", "value", false},
		{"var in text", "prefix ${TEST_VAR} suffix", "prefix value suffix", false},
		{"multiple vars", "${TEST_VAR}-${TEST_VAR}", "value-value", false},
		{"with default (var set)", "${TEST_VAR:-default}", "value", false},
		{"with default (var unset)", "${UNSET:-default}", "default", false},
		{"missing required", "${MISSING}", "", true},
		{"empty default (var unset)", "${UNSET:-}", "", false},
		{"set but empty var", "${EMPTY_VAR}", "", false},
		{"set but empty with default", "${EMPTY_VAR:-fallback}", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := expandEnvVars(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expandEnvVars() expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("expandEnvVars() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("expandEnvVars() = %q, want %q", got, tt.want)
			}
		})
	}
}
