// Package report summarizes a finished notes database.
package report

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_generator.go -package=mocks notesdb/internal/report Generator

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"notesdb/internal/dates"
	"notesdb/internal/importer"
)

// DefaultTopN bounds the folder and category breakdowns.
const DefaultTopN = 20

// Output formats accepted by Write.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// Generator produces a Report from the current state of the store.
type Generator interface {
	Generate(ctx context.Context, topN int) (*Report, error)
}

// Report is the statistics artifact written after an import.
type Report struct {
	GeneratedAt time.Time `json:"generated_at" yaml:"generated_at"`
	Totals      Totals    `json:"totals" yaml:"totals"`
	// DateRanges only considers notes whose dates parsed.
	DateRanges        DateRanges     `json:"date_ranges" yaml:"date_ranges"`
	Accounts          []Bucket       `json:"accounts" yaml:"accounts"`
	TopFolders        []FolderBucket `json:"top_folders" yaml:"top_folders"`
	TopCategories     []Bucket       `json:"top_categories" yaml:"top_categories"`
	PrimaryCategories []Bucket       `json:"primary_categories" yaml:"primary_categories"`
	// Import is attached by the caller after a run.
	Import *importer.RunStats `json:"import_stats,omitempty" yaml:"import_stats,omitempty"`
}

// Totals counts rows per entity table.
type Totals struct {
	Notes      int64 `json:"notes" yaml:"notes"`
	Links      int64 `json:"links" yaml:"links"`
	Images     int64 `json:"images" yaml:"images"`
	Categories int64 `json:"categories" yaml:"categories"`
	Analyses   int64 `json:"analyses" yaml:"analyses"`
	Tasks      int64 `json:"tasks" yaml:"tasks"`
	Ideas      int64 `json:"ideas" yaml:"ideas"`
	Projects   int64 `json:"projects" yaml:"projects"`
}

// DateRanges holds the earliest and latest parsed timestamps. Fields are nil
// when no note has a parsed value.
type DateRanges struct {
	EarliestCreated  *time.Time `json:"earliest_created" yaml:"earliest_created"`
	LatestCreated    *time.Time `json:"latest_created" yaml:"latest_created"`
	EarliestModified *time.Time `json:"earliest_modified" yaml:"earliest_modified"`
	LatestModified   *time.Time `json:"latest_modified" yaml:"latest_modified"`
}

// Bucket is one group of a breakdown.
type Bucket struct {
	Name  string `json:"name" yaml:"name"`
	Count int64  `json:"count" yaml:"count"`
}

// FolderBucket is a folder of one account.
type FolderBucket struct {
	Folder  string `json:"folder" yaml:"folder"`
	Account string `json:"account" yaml:"account"`
	Count   int64  `json:"count" yaml:"count"`
}

// Reporter queries a notes database. It implements Generator.
type Reporter struct {
	db *sql.DB
}

// NewReporter creates a new Reporter.
func NewReporter(db *sql.DB) *Reporter {
	return &Reporter{db: db}
}

// Generate builds a report. Account and folder numbers come from the lookup
// tables, so they reflect the last lookup population. topN below 1 means
// DefaultTopN.
func (r *Reporter) Generate(ctx context.Context, topN int) (*Report, error) {
	if topN < 1 {
		topN = DefaultTopN
	}
	rep := &Report{GeneratedAt: time.Now().UTC()}

	totals := []struct {
		table string
		dst   *int64
	}{
		{"notes", &rep.Totals.Notes},
		{"extracted_links", &rep.Totals.Links},
		{"extracted_images", &rep.Totals.Images},
		{"note_categories", &rep.Totals.Categories},
		{"analysis", &rep.Totals.Analyses},
		{"extracted_tasks", &rep.Totals.Tasks},
		{"extracted_ideas", &rep.Totals.Ideas},
		{"extracted_projects", &rep.Totals.Projects},
	}
	for _, t := range totals {
		if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+t.table).Scan(t.dst); err != nil {
			return nil, fmt.Errorf("failed to count %s: %w", t.table, err)
		}
	}

	var err error
	if rep.DateRanges, err = r.dateRanges(ctx); err != nil {
		return nil, err
	}
	if rep.Accounts, err = r.buckets(ctx,
		"SELECT account_name, note_count FROM accounts ORDER BY note_count DESC, account_name"); err != nil {
		return nil, fmt.Errorf("failed to query accounts: %w", err)
	}
	if rep.TopFolders, err = r.folders(ctx, topN); err != nil {
		return nil, fmt.Errorf("failed to query folders: %w", err)
	}
	if rep.TopCategories, err = r.buckets(ctx,
		`SELECT category, COUNT(*) AS n FROM note_categories
		 GROUP BY category ORDER BY n DESC, category LIMIT ?`, topN); err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	if rep.PrimaryCategories, err = r.buckets(ctx,
		`SELECT primary_category, COUNT(*) AS n FROM notes
		 WHERE primary_category IS NOT NULL
		 GROUP BY primary_category ORDER BY n DESC, primary_category`); err != nil {
		return nil, fmt.Errorf("failed to query primary categories: %w", err)
	}

	return rep, nil
}

func (r *Reporter) dateRanges(ctx context.Context) (DateRanges, error) {
	var minC, maxC, minM, maxM sql.NullString
	err := r.db.QueryRowContext(ctx,
		`SELECT MIN(created_datetime), MAX(created_datetime),
		        MIN(modified_datetime), MAX(modified_datetime)
		 FROM notes`,
	).Scan(&minC, &maxC, &minM, &maxM)
	if err != nil {
		return DateRanges{}, fmt.Errorf("failed to query date ranges: %w", err)
	}

	var dr DateRanges
	for _, f := range []struct {
		src sql.NullString
		dst **time.Time
	}{
		{minC, &dr.EarliestCreated},
		{maxC, &dr.LatestCreated},
		{minM, &dr.EarliestModified},
		{maxM, &dr.LatestModified},
	} {
		if !f.src.Valid || f.src.String == "" {
			continue
		}
		t, err := time.Parse(dates.Layout, f.src.String)
		if err != nil {
			return DateRanges{}, fmt.Errorf("failed to parse stored date %q: %w", f.src.String, err)
		}
		*f.dst = &t
	}
	return dr, nil
}

func (r *Reporter) buckets(ctx context.Context, query string, args ...any) ([]Bucket, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = rows.Close()
	}()

	out := []Bucket{}
	for rows.Next() {
		var b Bucket
		if err := rows.Scan(&b.Name, &b.Count); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *Reporter) folders(ctx context.Context, topN int) ([]FolderBucket, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT folder_name, account_name, note_count FROM folders
		 ORDER BY note_count DESC, folder_name, account_name LIMIT ?`, topN)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = rows.Close()
	}()

	out := []FolderBucket{}
	for rows.Next() {
		var b FolderBucket
		if err := rows.Scan(&b.Folder, &b.Account, &b.Count); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// Write encodes v as indented JSON or as YAML.
func Write(w io.Writer, v any, format string) error {
	switch strings.ToLower(format) {
	case "", FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case FormatYAML, "yml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	}
	return fmt.Errorf("unsupported report format %q", format)
}
