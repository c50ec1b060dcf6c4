// Package importer writes reconciled note records into the relational store.
package importer

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"notesdb/internal/contextutil"
	"notesdb/internal/dates"
	"notesdb/internal/htmltext"
	"notesdb/internal/reconcile"
	"notesdb/internal/source"
	"notesdb/internal/storage"
)

// DefaultBatchSize is how many notes share one transaction during Run.
const DefaultBatchSize = 100

const notePoint = "note_import"

// RecordSource lists and reads raw note records.
type RecordSource interface {
	Scan(ctx context.Context) ([]source.File, error)
	Read(f source.File) ([]byte, error)
}

// Importer imports note records one at a time through a NoteStore.
type Importer struct {
	store     storage.NoteStore
	toText    func(string) string
	parseDate func(string) (time.Time, bool)
	batchSize int
}

// Option configures an Importer.
type Option func(*Importer)

// WithBatchSize sets how many notes Run commits at once. Values below 1 are ignored.
func WithBatchSize(n int) Option {
	return func(i *Importer) {
		if n > 0 {
			i.batchSize = n
		}
	}
}

// WithTextConverter replaces the markup to plain text conversion.
func WithTextConverter(fn func(string) string) Option {
	return func(i *Importer) {
		i.toText = fn
	}
}

// WithDateParser replaces the date parser.
func WithDateParser(fn func(string) (time.Time, bool)) Option {
	return func(i *Importer) {
		i.parseDate = fn
	}
}

// New creates a new Importer writing to store.
func New(store storage.NoteStore, opts ...Option) *Importer {
	i := &Importer{
		store:     store,
		toText:    htmltext.ToText,
		parseDate: dates.Parse,
		batchSize: DefaultBatchSize,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Import imports a single raw record in its own transaction.
func (i *Importer) Import(ctx context.Context, data []byte) Result {
	if err := i.store.Begin(ctx); err != nil {
		return Result{Outcome: OutcomeFailed, Err: err}
	}
	res := i.importRecord(ctx, data)
	if err := i.store.Commit(); err != nil {
		_ = i.store.Rollback()
		return Result{NoteID: res.NoteID, Outcome: OutcomeFailed, Err: err}
	}
	return res
}

func (i *Importer) importRecord(ctx context.Context, data []byte) Result {
	note, err := reconcile.Decode(data)
	if err != nil {
		return Result{Outcome: OutcomeFailed, Err: err}
	}
	return i.ImportNote(ctx, note)
}

// ImportNote imports a reconciled note inside the open transaction.
// The note row and its children share a savepoint: if the note row fails
// nothing of the note is kept, while a failed child only loses that child.
func (i *Importer) ImportNote(ctx context.Context, note *reconcile.Note) Result {
	logger := contextutil.LoggerFromContext(ctx)
	res := Result{NoteID: note.NoteID, Warnings: note.Warnings}
	for _, w := range note.Warnings {
		logger.WarnContext(ctx, "irregular note field", "note_id", note.NoteID, "warning", w)
	}

	if err := i.store.Savepoint(ctx, notePoint); err != nil {
		res.Err = err
		return res
	}

	ok, err := i.store.InsertNote(ctx, i.noteRecord(note))
	if err != nil {
		res.Err = err
		if rbErr := i.store.RollbackTo(ctx, notePoint); rbErr != nil {
			res.Err = errors.Join(err, rbErr)
		}
		_ = i.store.Release(ctx, notePoint)
		return res
	}
	if !ok {
		res.Outcome = OutcomeSkipped
		if err := i.store.Release(ctx, notePoint); err != nil {
			res.ChildErrors = append(res.ChildErrors, err)
		}
		logger.DebugContext(ctx, "kept existing note", "note_id", note.NoteID)
		return res
	}
	res.Outcome = OutcomeImported
	res.Counts.Notes = 1

	child := func(counter *int, ignorable bool, inserted bool, err error) {
		switch {
		case err != nil:
			res.ChildErrors = append(res.ChildErrors, err)
		case inserted:
			*counter++
		case ignorable:
			res.Counts.Duplicates++
		}
	}

	for _, l := range note.Links {
		ok, err := i.store.InsertLink(ctx, &storage.LinkRecord{NoteID: note.NoteID, URL: l.URL, Type: l.Type})
		child(&res.Counts.Links, true, ok, err)
	}
	for _, img := range note.Images {
		ok, err := i.store.InsertImage(ctx, &storage.ImageRecord{
			NoteID:       note.NoteID,
			Filename:     img.Filename,
			RelativePath: img.RelativePath,
			Format:       img.Format,
			SizeBytes:    img.SizeBytes,
			Order:        img.Order,
		})
		child(&res.Counts.Images, true, ok, err)
	}
	for _, c := range note.Categories {
		ok, err := i.store.InsertCategory(ctx, note.NoteID, c)
		child(&res.Counts.Categories, true, ok, err)
	}
	if a := note.Analysis; a != nil {
		ok, err := i.store.InsertAnalysis(ctx, &storage.AnalysisRecord{
			NoteID:          note.NoteID,
			Summary:         a.Summary,
			PlainTextSample: a.PlainTextSample,
		})
		child(&res.Counts.Analyses, true, ok, err)
	}
	items := []struct {
		kind    storage.ItemKind
		texts   []string
		counter *int
	}{
		{storage.ItemTask, note.Tasks, &res.Counts.Tasks},
		{storage.ItemIdea, note.Ideas, &res.Counts.Ideas},
		{storage.ItemProject, note.Projects, &res.Counts.Projects},
	}
	for _, it := range items {
		for _, text := range it.texts {
			ok, err := i.store.InsertItem(ctx, it.kind, note.NoteID, text)
			child(it.counter, false, ok, err)
		}
	}

	if err := i.store.Release(ctx, notePoint); err != nil {
		res.ChildErrors = append(res.ChildErrors, err)
	}
	return res
}

func (i *Importer) noteRecord(note *reconcile.Note) *storage.NoteRecord {
	plain := i.toText(note.Content)
	rec := &storage.NoteRecord{
		NoteID:          note.NoteID,
		OriginalIndex:   note.OriginalIndex,
		Title:           note.Title,
		Content:         note.Content,
		ContentCleaned:  note.ContentCleaned,
		PlainText:       plain,
		Folder:          note.Folder,
		Account:         note.Account,
		CoreDataID:      note.CoreDataID,
		CreatedRaw:      note.Created,
		ModifiedRaw:     note.Modified,
		Status:          note.Status,
		Processed:       note.Processed,
		PrimaryCategory: note.PrimaryCategory,
		ContentLength:   utf8.RuneCountInString(plain),
	}
	if t, ok := i.parseDate(note.Created); ok {
		rec.Created = &t
	}
	if t, ok := i.parseDate(note.Modified); ok {
		rec.Modified = &t
	}
	return rec
}

// Run imports every record of src, committing every batchSize notes.
// Per-record failures are collected in the returned stats and never stop the
// run. Scan failures and commit failures are returned as errors. When ctx is
// cancelled the open batch is rolled back and ctx.Err() is returned together
// with the stats of what was committed. The returned stats are never nil.
func (i *Importer) Run(ctx context.Context, src RecordSource) (*RunStats, error) {
	stats := NewRunStats()
	ctx, logger := contextutil.WithAttrs(ctx, "run_id", stats.RunID)

	files, err := src.Scan(ctx)
	if err != nil {
		stats.finish()
		return stats, fmt.Errorf("failed to scan records: %w", err)
	}
	stats.Files = len(files)

	logger.InfoContext(ctx, "starting import", "total_files", len(files), "batch_size", i.batchSize)

	if err := i.store.Begin(ctx); err != nil {
		stats.finish()
		return stats, err
	}

	pending := 0
	for n, f := range files {
		select {
		case <-ctx.Done():
			i.abort(ctx, stats)
			return stats, ctx.Err()
		default:
		}

		data, err := src.Read(f)
		if err != nil {
			stats.AddError(fmt.Sprintf("%s: %v", f.RelPath, err))
			logger.ErrorContext(ctx, "failed to read record", "rel_path", f.RelPath, "error", err)
			continue
		}

		res := i.importRecord(ctx, data)
		stats.Fold(res, f.RelPath)
		switch {
		case res.Err != nil:
			logger.ErrorContext(ctx, "failed to import note", "rel_path", f.RelPath, "note_id", res.NoteID, "error", res.Err)
		case len(res.ChildErrors) > 0:
			logger.WarnContext(ctx, "imported note with errors", "note_id", res.NoteID, "errors", len(res.ChildErrors))
		}

		pending++
		if pending < i.batchSize {
			continue
		}
		if err := i.commit(ctx, stats); err != nil {
			return stats, err
		}
		pending = 0
		logger.InfoContext(ctx, "committed batch", "processed", n+1, "total", len(files), "notes_imported", stats.Notes)
		if err := i.store.Begin(ctx); err != nil {
			return stats, err
		}
	}

	if err := i.commit(ctx, stats); err != nil {
		return stats, err
	}
	stats.finish()

	logger.InfoContext(ctx, "import completed",
		"total_files", len(files),
		"notes_imported", stats.Notes,
		"notes_skipped", stats.Skipped,
		"notes_failed", stats.Failed,
		"errors", len(stats.Errors),
	)
	return stats, nil
}

// commit ends the open batch. A cancelled run never commits its last batch.
func (i *Importer) commit(ctx context.Context, stats *RunStats) error {
	err := ctx.Err()
	if err == nil {
		err = i.store.Commit()
	}
	if err != nil {
		i.abort(ctx, stats)
		return err
	}
	stats.Commit()
	return nil
}

func (i *Importer) abort(ctx context.Context, stats *RunStats) {
	logger := contextutil.LoggerFromContext(ctx)
	if err := i.store.Rollback(); err != nil {
		logger.ErrorContext(ctx, "failed to roll back batch", "error", err)
	}
	if n := stats.Discard(); n > 0 {
		stats.AddError(fmt.Sprintf("rolled back %d uncommitted notes", n))
		logger.WarnContext(ctx, "rolled back uncommitted notes", "notes", n)
	}
	stats.finish()
}
