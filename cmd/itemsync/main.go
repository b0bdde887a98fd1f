// Package main is the entry point for the itemsync CLI.
//
// itemsync can be embedded as a library or run as a standalone binary with a
// YAML or TOML configuration file. This CLI provides the standalone binary.
//
// Usage:
//
//	itemsync serve -c config.yaml    # Start the controller and HTTP API
//	itemsync validate -c config.yaml # Validate configuration
//	itemsync version                 # Show version info
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information - set at build time via ldflags.
// Example: go build -ldflags "-X main.version=1.0.0"
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// rootCmd is the base command when called without subcommands.
// It just displays help - actual functionality is in subcommands.
var rootCmd = &cobra.Command{
	Use:   "itemsync",
	Short: "A record cache synchronized with pluggable stores",
	Long: `itemsync keeps a sorted, observable cache of records in step with an
in-memory or SQLite store, and applies create/update/delete requests
published over HTTP.

Quick start:
  1. Create a config file (itemsync.yaml)
  2. Run: itemsync serve -c itemsync.yaml
  3. Open http://localhost:8080 in your browser

Example config:
  port: 8080
  data_source: 1
  database: itemsync.db
  auto_refresh: 2s`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		// Cobra already prints the error, just exit with code 1
		os.Exit(1)
	}
}

func main() {
	Execute()
}

// versionCmd prints version information.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Print the version, commit hash, and build date of this itemsync binary.`,
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "itemsync %s\n", version)
		fmt.Fprintf(out, "  commit: %s\n", commit)
		fmt.Fprintf(out, "  built:  %s\n", date)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
