package storage

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_note_store.go -package=mocks notesdb/internal/storage NoteStore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"time"

	"notesdb/internal/dates"
)

var (
	// ErrNotFound is returned when a record is not found.
	ErrNotFound = errors.New("record not found")
	// ErrNoTransaction is returned by savepoint operations outside Begin/Commit.
	ErrNoTransaction = errors.New("no open transaction")
	// ErrTransactionOpen is returned by Begin when a transaction is already open.
	ErrTransactionOpen = errors.New("transaction already open")
)

// NoteStore defines the write path of an import plus the few reads needed to
// inspect its result. Writes go to the open transaction when there is one.
type NoteStore interface {
	// Begin opens the batch transaction.
	Begin(ctx context.Context) error
	// Commit commits the batch transaction. It is a no-op without one.
	Commit() error
	// Rollback discards the batch transaction. It is a no-op without one.
	Rollback() error

	// Savepoint, RollbackTo and Release bracket the statements of one note.
	Savepoint(ctx context.Context, name string) error
	RollbackTo(ctx context.Context, name string) error
	Release(ctx context.Context, name string) error

	// InsertNote writes the note row under the notes policy.
	// The boolean reports whether a row was inserted or replaced.
	InsertNote(ctx context.Context, note *NoteRecord) (bool, error)
	// InsertLink, InsertImage, InsertCategory and InsertAnalysis report false
	// when the ignore policy absorbed a duplicate.
	InsertLink(ctx context.Context, link *LinkRecord) (bool, error)
	InsertImage(ctx context.Context, image *ImageRecord) (bool, error)
	InsertCategory(ctx context.Context, noteID, category string) (bool, error)
	InsertAnalysis(ctx context.Context, analysis *AnalysisRecord) (bool, error)
	// InsertItem appends a task, idea or project.
	InsertItem(ctx context.Context, kind ItemKind, noteID, text string) (bool, error)

	// GetByID gets a note by its note_id. Returns ErrNotFound if not found.
	GetByID(ctx context.Context, noteID string) (*NoteRecord, error)
	// Delete removes a note; its children go with it. Returns ErrNotFound if not found.
	Delete(ctx context.Context, noteID string) error
}

var savepointName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// NoteRepo provides methods for note operations.
// It implements the NoteStore interface.
type NoteRepo struct {
	db       *sql.DB
	tx       *sql.Tx
	policies Policies
	inserts  map[string]string
}

// NewNoteRepo creates a new NoteRepo that writes according to policies.
func NewNoteRepo(db *sql.DB, policies Policies) (*NoteRepo, error) {
	if err := policies.Validate(); err != nil {
		return nil, err
	}
	inserts := make(map[string]string, len(policies))
	for table, policy := range policies {
		inserts[table] = insertStatement(table, policy)
	}
	return &NoteRepo{db: db, policies: policies, inserts: inserts}, nil
}

// DB returns the underlying database connection.
func (r *NoteRepo) DB() *sql.DB {
	return r.db
}

// Policy returns the conflict policy used for table.
func (r *NoteRepo) Policy(table string) ConflictPolicy {
	return r.policies[table]
}

func (r *NoteRepo) conn() execer {
	if r.tx != nil {
		return r.tx
	}
	return r.db
}

// Begin opens the batch transaction.
func (r *NoteRepo) Begin(ctx context.Context) error {
	if r.tx != nil {
		return ErrTransactionOpen
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	r.tx = tx
	return nil
}

// Commit commits the batch transaction.
func (r *NoteRepo) Commit() error {
	if r.tx == nil {
		return nil
	}
	tx := r.tx
	r.tx = nil
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Rollback discards the batch transaction.
func (r *NoteRepo) Rollback() error {
	if r.tx == nil {
		return nil
	}
	tx := r.tx
	r.tx = nil
	if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return fmt.Errorf("failed to roll back transaction: %w", err)
	}
	return nil
}

func (r *NoteRepo) savepointStmt(ctx context.Context, verb, name string) error {
	if r.tx == nil {
		return ErrNoTransaction
	}
	if !savepointName.MatchString(name) {
		return fmt.Errorf("invalid savepoint name %q", name)
	}
	if _, err := r.tx.ExecContext(ctx, verb+" "+name); err != nil {
		return fmt.Errorf("failed to %s: %w", verb, err)
	}
	return nil
}

// Savepoint opens a named savepoint inside the batch transaction.
func (r *NoteRepo) Savepoint(ctx context.Context, name string) error {
	return r.savepointStmt(ctx, "SAVEPOINT", name)
}

// RollbackTo undoes everything since the named savepoint.
func (r *NoteRepo) RollbackTo(ctx context.Context, name string) error {
	return r.savepointStmt(ctx, "ROLLBACK TO SAVEPOINT", name)
}

// Release folds the named savepoint into the batch transaction.
func (r *NoteRepo) Release(ctx context.Context, name string) error {
	return r.savepointStmt(ctx, "RELEASE SAVEPOINT", name)
}

func (r *NoteRepo) insert(ctx context.Context, table string, args ...any) (bool, error) {
	res, err := r.conn().ExecContext(ctx, r.inserts[table], args...)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// InsertNote writes the note row.
func (r *NoteRepo) InsertNote(ctx context.Context, note *NoteRecord) (bool, error) {
	ok, err := r.insert(ctx, TableNotes,
		note.NoteID,
		note.OriginalIndex,
		note.Title,
		note.Content,
		note.ContentCleaned,
		note.PlainText,
		note.Folder,
		note.Account,
		nullIfEmpty(note.CoreDataID),
		note.CreatedRaw,
		dates.Format(note.Created),
		note.ModifiedRaw,
		dates.Format(note.Modified),
		note.Status,
		note.Processed,
		nullIfEmpty(note.PrimaryCategory),
		note.ContentLength,
	)
	if err != nil {
		return false, fmt.Errorf("failed to insert note: %w", err)
	}
	return ok, nil
}

// InsertLink writes a link row.
func (r *NoteRepo) InsertLink(ctx context.Context, link *LinkRecord) (bool, error) {
	ok, err := r.insert(ctx, TableLinks, link.NoteID, link.URL, link.Type)
	if err != nil {
		return false, fmt.Errorf("failed to insert link: %w", err)
	}
	return ok, nil
}

// InsertImage writes an image row.
func (r *NoteRepo) InsertImage(ctx context.Context, image *ImageRecord) (bool, error) {
	ok, err := r.insert(ctx, TableImages,
		image.NoteID, image.Filename, image.RelativePath, image.Format, image.SizeBytes, image.Order)
	if err != nil {
		return false, fmt.Errorf("failed to insert image: %w", err)
	}
	return ok, nil
}

// InsertCategory writes a category row.
func (r *NoteRepo) InsertCategory(ctx context.Context, noteID, category string) (bool, error) {
	ok, err := r.insert(ctx, TableCategories, noteID, category)
	if err != nil {
		return false, fmt.Errorf("failed to insert category: %w", err)
	}
	return ok, nil
}

// InsertAnalysis writes the analysis row.
func (r *NoteRepo) InsertAnalysis(ctx context.Context, analysis *AnalysisRecord) (bool, error) {
	ok, err := r.insert(ctx, TableAnalysis, analysis.NoteID, analysis.Summary, analysis.PlainTextSample)
	if err != nil {
		return false, fmt.Errorf("failed to insert analysis: %w", err)
	}
	return ok, nil
}

// InsertItem appends a task, idea or project.
func (r *NoteRepo) InsertItem(ctx context.Context, kind ItemKind, noteID, text string) (bool, error) {
	ok, err := r.insert(ctx, kind.table(), noteID, text)
	if err != nil {
		return false, fmt.Errorf("failed to insert %s: %w", kind, err)
	}
	return ok, nil
}

// GetByID gets a note by its note_id.
// Returns nil and ErrNotFound if not found.
func (r *NoteRepo) GetByID(ctx context.Context, noteID string) (*NoteRecord, error) {
	var note NoteRecord
	var (
		contentCleaned, plainText, coreDataID sql.NullString
		created, modified, primaryCategory    sql.NullString
		contentLength                         sql.NullInt64
	)

	err := r.conn().QueryRowContext(ctx,
		`SELECT note_id, original_index, title, content, content_cleaned, plain_text,
		        folder, account, coredata_id, created_raw, created_datetime,
		        modified_raw, modified_datetime, status, processed, primary_category, content_length
		 FROM notes WHERE note_id = ?`,
		noteID,
	).Scan(&note.NoteID, &note.OriginalIndex, &note.Title, &note.Content, &contentCleaned, &plainText,
		&note.Folder, &note.Account, &coreDataID, &note.CreatedRaw, &created,
		&note.ModifiedRaw, &modified, &note.Status, &note.Processed, &primaryCategory, &contentLength)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query note: %w", err)
	}

	note.ContentCleaned = contentCleaned.String
	note.PlainText = plainText.String
	note.CoreDataID = coreDataID.String
	note.PrimaryCategory = primaryCategory.String
	note.ContentLength = int(contentLength.Int64)
	if note.Created, err = parseStored(created); err != nil {
		return nil, fmt.Errorf("failed to parse created_datetime: %w", err)
	}
	if note.Modified, err = parseStored(modified); err != nil {
		return nil, fmt.Errorf("failed to parse modified_datetime: %w", err)
	}

	return &note, nil
}

// Delete removes a note. Foreign keys cascade the delete to every child table.
func (r *NoteRepo) Delete(ctx context.Context, noteID string) error {
	res, err := r.conn().ExecContext(ctx, "DELETE FROM notes WHERE note_id = ?", noteID)
	if err != nil {
		return fmt.Errorf("failed to delete note: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete note: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func parseStored(v sql.NullString) (*time.Time, error) {
	if !v.Valid || v.String == "" {
		return nil, nil
	}
	t, err := time.Parse(dates.Layout, v.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
