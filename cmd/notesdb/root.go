package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"notesdb/internal/config"
)

var (
	verbose bool
	dbPath  string
	dbDrv   string

	cfg *config.Config
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "notesdb",
	Short: "Load exported Apple Notes records into a SQLite database",
	Long: `notesdb reads the per-note JSON records written by the export pipeline,
reconciles their loosely-typed fields and stores them in a relational SQLite
database together with links, images, categories and analysis results.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		if cmd.Flags().Changed("db") {
			cfg.DBPath = dbPath
		}
		if cmd.Flags().Changed("driver") {
			cfg.DBDriver = dbDrv
		}
		if verbose {
			cfg.LogLevel = slog.LevelDebug
		}

		opts := &slog.HandlerOptions{
			Level: cfg.LogLevel,
		}
		var handler slog.Handler
		if cfg.LogFormat == "json" {
			handler = slog.NewJSONHandler(os.Stderr, opts)
		} else {
			handler = slog.NewTextHandler(os.Stderr, opts)
		}
		slog.SetDefault(slog.New(handler))
		slog.Debug("Logging configured", "level", cfg.LogLevel.String(), "format", cfg.LogFormat)
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fatal("notesdb", err)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "SQLite database file (overrides NOTES_DB_PATH)")
	rootCmd.PersistentFlags().StringVar(&dbDrv, "driver", "", "sqlite3 (cgo) or sqlite (pure Go) (overrides NOTES_DB_DRIVER)")
}
