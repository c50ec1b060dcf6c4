package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"notesdb/internal/importer"
	"notesdb/internal/report"
	"notesdb/internal/source"
	"notesdb/internal/storage"
)

var (
	importSource   string
	importPattern  string
	importStats    string
	importFormat   string
	importBatch    int
	importConflict string
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import note records into the database",
	Long: `Import scans the record directory, imports every note in batches, then
creates the indexes, fills the account and folder lookup tables and writes a
statistics report.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := applyImportFlags(cmd); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		// Check the source before touching the database.
		dir, err := source.NewDir(cfg.SourceDir, cfg.SourcePattern)
		if err != nil {
			return err
		}
		files, err := dir.Scan(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Found %s note files in %s\n", humanize.Comma(int64(len(files))), dir.Root())

		if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
			return fmt.Errorf("failed to create database directory: %w", err)
		}
		db, err := storage.New(cfg.DBDriver, cfg.DBPath)
		if err != nil {
			return err
		}
		defer func() {
			_ = db.Close()
		}()
		if err := storage.Migrate(ctx, db); err != nil {
			return err
		}
		slog.Info("Database initialized", "path", cfg.DBPath, "driver", cfg.DBDriver)

		repo, err := storage.NewNoteRepo(db, cfg.Policies())
		if err != nil {
			return err
		}

		imp := importer.New(repo, importer.WithBatchSize(cfg.BatchSize))
		stats, err := imp.Run(ctx, scannedSource{Dir: dir, files: files})
		if errors.Is(err, context.Canceled) {
			printImportSummary(cmd.OutOrStdout(), stats, nil)
			return fmt.Errorf("import interrupted: %d notes committed before the interrupt", stats.Notes)
		}
		if err != nil {
			return err
		}

		if err := storage.CreateIndexes(ctx, db); err != nil {
			return err
		}
		lookups, err := storage.NewLookupRepo(db).Populate(ctx)
		if err != nil {
			return err
		}
		slog.Info("Lookup tables populated", "accounts", lookups.Accounts, "folders", lookups.Folders)

		rep, err := report.NewReporter(db).Generate(ctx, cfg.TopN)
		if err != nil {
			return err
		}
		rep.Import = stats
		if err := writeReportFile(cfg.StatsPath, rep, cfg.ReportFormat); err != nil {
			return err
		}

		printImportSummary(cmd.OutOrStdout(), stats, rep)
		if info, err := os.Stat(cfg.DBPath); err == nil {
			fmt.Fprintf(cmd.OutOrStdout(), "Database: %s (%s)\n", cfg.DBPath, humanize.Bytes(uint64(info.Size())))
		}
		return nil
	},
}

// scannedSource replays a scan done before the database was opened.
type scannedSource struct {
	*source.Dir
	files []source.File
}

func (s scannedSource) Scan(ctx context.Context) ([]source.File, error) {
	return s.files, nil
}

func applyImportFlags(cmd *cobra.Command) error {
	flags := cmd.Flags()
	if flags.Changed("source") {
		cfg.SourceDir = importSource
	}
	if flags.Changed("pattern") {
		cfg.SourcePattern = importPattern
	}
	if flags.Changed("stats") {
		cfg.StatsPath = importStats
	}
	if flags.Changed("format") {
		cfg.ReportFormat = importFormat
	}
	if flags.Changed("batch-size") {
		if importBatch <= 0 {
			return fmt.Errorf("--batch-size must be greater than 0")
		}
		cfg.BatchSize = importBatch
	}
	if flags.Changed("on-conflict") {
		p, err := storage.ParseConflictPolicy(importConflict)
		if err != nil {
			return err
		}
		cfg.NoteConflict = p
	}
	return nil
}

func writeReportFile(path string, rep *report.Report, format string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create report file: %w", err)
	}
	if err := report.Write(f, rep, format); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write report: %w", err)
	}
	return f.Close()
}

func printImportSummary(w io.Writer, stats *importer.RunStats, rep *report.Report) {
	rows := []struct {
		label string
		n     int
	}{
		{"Notes imported", stats.Notes},
		{"Notes skipped", stats.Skipped},
		{"Notes failed", stats.Failed},
		{"Links imported", stats.Links},
		{"Images imported", stats.Images},
		{"Categories imported", stats.Categories},
		{"Analyses imported", stats.Analyses},
		{"Tasks imported", stats.Tasks},
		{"Ideas imported", stats.Ideas},
		{"Projects imported", stats.Projects},
		{"Duplicates ignored", stats.Duplicates},
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Import Summary")
	for _, r := range rows {
		fmt.Fprintf(w, "  %-20s %s\n", r.label+":", humanize.Comma(int64(r.n)))
	}
	if n := len(stats.Errors); n > 0 {
		fmt.Fprintf(w, "  %-20s %s (see %s)\n", "Errors:", humanize.Comma(int64(n)), cfg.StatsPath)
	}
	if rep == nil {
		return
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Date Range:")
	dr := rep.DateRanges
	if dr.EarliestCreated == nil && dr.EarliestModified == nil {
		fmt.Fprintln(w, "  (No parsed dates available)")
	} else {
		fmt.Fprintf(w, "  Created:  %s to %s\n", fmtTime(dr.EarliestCreated), fmtTime(dr.LatestCreated))
		fmt.Fprintf(w, "  Modified: %s to %s\n", fmtTime(dr.EarliestModified), fmtTime(dr.LatestModified))
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Accounts:")
	for _, a := range rep.Accounts {
		fmt.Fprintf(w, "  %s: %s notes\n", a.Name, humanize.Comma(a.Count))
	}
}

func init() {
	importCmd.Flags().StringVar(&importSource, "source", "", "record directory (overrides NOTES_SOURCE_DIR)")
	importCmd.Flags().StringVar(&importPattern, "pattern", "", "record glob, doublestar syntax (overrides NOTES_SOURCE_PATTERN)")
	importCmd.Flags().StringVar(&importStats, "stats", "", "report file (overrides NOTES_STATS_PATH)")
	importCmd.Flags().StringVar(&importFormat, "format", "", "report format json|yaml (overrides NOTES_REPORT_FORMAT)")
	importCmd.Flags().IntVar(&importBatch, "batch-size", 0, "notes per commit (overrides NOTES_BATCH_SIZE)")
	importCmd.Flags().StringVar(&importConflict, "on-conflict", "", "existing note rows: reject|ignore|replace (overrides NOTES_NOTE_CONFLICT)")
	rootCmd.AddCommand(importCmd)
}
