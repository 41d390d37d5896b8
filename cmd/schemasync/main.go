// Package main provides the CLI for schemasync, a declarative schema
// synchronization tool. Table descriptions live in YAML files; schemasync
// diffs them against the last applied snapshot and reconciles the physical
// database schema.
//
// Usage:
//
//	schemasync init          # Create tables/ dir and a starter config
//	schemasync check         # Validate all table description files
//	schemasync plan          # Preview the DDL a sync would run
//	schemasync apply         # Sync the database to the descriptions
//	schemasync watch         # Re-plan (or re-apply) on file changes
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/enfyra/server-sub005/internal/cli"

	// Database drivers
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// version is set via ldflags during build: -ldflags="-X main.version=v1.0.0"
var version = "dev"

// Global flags
var (
	databaseURL string
	configFile  string
	tablesDir   string
	dialectFlag string
	verbose     bool
	jsonOutput  bool
)

// addGlobalFlags registers the flags shared by every subcommand.
func addGlobalFlags(fs *pflag.FlagSet) {
	fs.StringVarP(&databaseURL, "database-url", "d", "", "Database connection URL")
	fs.StringVarP(&configFile, "config", "c", "schemasync.yaml", "Path to config file")
	fs.StringVarP(&tablesDir, "tables-dir", "t", "", "Directory of table description files")
	fs.StringVar(&dialectFlag, "dialect", "", "Override dialect detection (mysql, postgres, sqlite)")
	fs.BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	fs.BoolVar(&jsonOutput, "json", false, "Output structured JSON")
}

func main() {
	rootCmd := &cobra.Command{
		Use:     "schemasync",
		Short:   "Declarative database schema synchronization",
		Long:    `Schemasync reconciles YAML table descriptions with a live database schema across MySQL, PostgreSQL, and SQLite.`,
		Version: version,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if jsonOutput {
				cli.SetDefault(&cli.Config{Mode: cli.ModeJSON, Writer: os.Stdout})
			}
		},
	}

	addGlobalFlags(rootCmd.PersistentFlags())

	rootCmd.AddCommand(
		initCmd(),
		checkCmd(),
		planCmd(),
		applyCmd(),
		watchCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprint(os.Stderr, cli.FormatError(err))
		os.Exit(1)
	}
}
