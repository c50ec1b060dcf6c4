package main

import (
	"database/sql"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"notesdb/internal/dates"
	"notesdb/internal/report"
	"notesdb/internal/storage"
)

var (
	statsTop    int
	statsFormat string
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print the statistics report of an imported database",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Flags().Changed("top") {
			cfg.TopN = statsTop
		}
		if cmd.Flags().Changed("format") {
			cfg.ReportFormat = statsFormat
		}

		db, err := openExisting()
		if err != nil {
			return err
		}
		defer func() {
			_ = db.Close()
		}()

		rep, err := report.NewReporter(db).Generate(cmd.Context(), cfg.TopN)
		if err != nil {
			return err
		}
		return report.Write(cmd.OutOrStdout(), rep, cfg.ReportFormat)
	},
}

// openExisting opens the configured database without creating it.
func openExisting() (*sql.DB, error) {
	if _, err := os.Stat(cfg.DBPath); err != nil {
		return nil, fmt.Errorf("database %s: %w", cfg.DBPath, err)
	}
	return storage.New(cfg.DBDriver, cfg.DBPath)
}

func fmtTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format(dates.Layout)
}

func init() {
	statsCmd.Flags().IntVar(&statsTop, "top", report.DefaultTopN, "size of the folder and category breakdowns")
	statsCmd.Flags().StringVar(&statsFormat, "format", "", "output format json|yaml (overrides NOTES_REPORT_FORMAT)")
	rootCmd.AddCommand(statsCmd)
}
