package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jpalmerr/itemsync"
	"github.com/jpalmerr/itemsync/config"
)

// validateCmd validates a config file without starting the server.
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a config file",
	Long: `Validate an itemsync configuration file without starting the server.

This command parses the YAML or TOML, expands environment variables, and
validates all fields. It's useful for CI/CD pipelines or pre-deployment checks.

Exit codes:
  0 - Config is valid
  1 - Config is invalid (error details printed to stderr)

Example:
  itemsync validate -c itemsync.yaml
  itemsync validate --config /etc/itemsync/itemsync.toml`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringP("config", "c", "", "path to config file (required)")
	_ = validateCmd.MarkFlagRequired("config")
}

func runValidate(cmd *cobra.Command, args []string) error {
	configFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	autoRefresh := "disabled"
	if cfg.AutoRefresh != 0 {
		autoRefresh = cfg.AutoRefresh.Duration().String()
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Config is valid!\n")
	fmt.Fprintf(out, "  Port:         %d\n", cfg.Port)
	fmt.Fprintf(out, "  Data source:  %s\n", itemsync.ParseDataSource(cfg.DataSource))
	fmt.Fprintf(out, "  Database:     %s\n", cfg.Database)
	fmt.Fprintf(out, "  Auto refresh: %s\n", autoRefresh)
	fmt.Fprintf(out, "  Watch DB:     %t\n", cfg.WatchDatabase)
	fmt.Fprintf(out, "  Demo records: %t\n", cfg.SeedDemoRecords())

	return nil
}
