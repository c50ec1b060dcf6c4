package storage

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"
)

// Supported database/sql driver names.
const (
	// DriverCGO is github.com/mattn/go-sqlite3.
	DriverCGO = "sqlite3"
	// DriverPureGo is modernc.org/sqlite.
	DriverPureGo = "sqlite"
)

// New opens a SQLite database at path using the named driver.
// Foreign keys are enabled for the lifetime of the connection. The pool is
// pinned to a single connection: the store has exactly one writer, and
// savepoints and PRAGMAs are connection-scoped.
func New(driver, path string) (*sql.DB, error) {
	var dsn string
	switch driver {
	case DriverCGO:
		dsn = path + "?_foreign_keys=on"
	case DriverPureGo:
		dsn = path + "?_pragma=foreign_keys(1)"
	default:
		return nil, fmt.Errorf("unsupported sqlite driver %q", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	// Enable foreign keys (disabled by default in SQLite)
	if _, err := db.Exec("PRAGMA foreign_keys = ON;"); err != nil {
		_ = db.Close()
		return nil, err
	}

	// Verify connection
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}

// schema lists the tables in dependency order: notes first, then every table
// that references it, then the derived lookup tables.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS notes (
		note_id TEXT PRIMARY KEY,
		original_index INTEGER NOT NULL DEFAULT 0,
		title TEXT NOT NULL,
		content TEXT NOT NULL,
		content_cleaned TEXT,
		plain_text TEXT,
		folder TEXT NOT NULL DEFAULT 'Notes',
		account TEXT NOT NULL,
		coredata_id TEXT UNIQUE,
		created_raw TEXT NOT NULL,
		created_datetime TEXT,
		modified_raw TEXT NOT NULL,
		modified_datetime TEXT,
		status TEXT NOT NULL DEFAULT 'pending',
		processed BOOLEAN NOT NULL DEFAULT 0,
		primary_category TEXT,
		content_length INTEGER,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);`,
	`CREATE TABLE IF NOT EXISTS extracted_links (
		link_id INTEGER PRIMARY KEY AUTOINCREMENT,
		note_id TEXT NOT NULL,
		url TEXT NOT NULL,
		link_type TEXT NOT NULL DEFAULT '',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (note_id) REFERENCES notes(note_id) ON DELETE CASCADE,
		UNIQUE (note_id, url, link_type)
	);`,
	`CREATE TABLE IF NOT EXISTS extracted_images (
		image_id INTEGER PRIMARY KEY AUTOINCREMENT,
		note_id TEXT NOT NULL,
		filename TEXT NOT NULL,
		relative_path TEXT NOT NULL,
		image_format TEXT,
		size_bytes INTEGER,
		extraction_order INTEGER,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (note_id) REFERENCES notes(note_id) ON DELETE CASCADE,
		UNIQUE (note_id, filename)
	);`,
	`CREATE TABLE IF NOT EXISTS analysis (
		analysis_id INTEGER PRIMARY KEY AUTOINCREMENT,
		note_id TEXT NOT NULL UNIQUE,
		summary TEXT,
		plain_text_sample TEXT,
		analyzed_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (note_id) REFERENCES notes(note_id) ON DELETE CASCADE
	);`,
	`CREATE TABLE IF NOT EXISTS extracted_tasks (
		task_id INTEGER PRIMARY KEY AUTOINCREMENT,
		note_id TEXT NOT NULL,
		task_text TEXT NOT NULL,
		priority INTEGER,
		completed BOOLEAN DEFAULT 0,
		due_date DATE,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (note_id) REFERENCES notes(note_id) ON DELETE CASCADE
	);`,
	`CREATE TABLE IF NOT EXISTS extracted_ideas (
		idea_id INTEGER PRIMARY KEY AUTOINCREMENT,
		note_id TEXT NOT NULL,
		idea_text TEXT NOT NULL,
		status TEXT DEFAULT 'new',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (note_id) REFERENCES notes(note_id) ON DELETE CASCADE
	);`,
	`CREATE TABLE IF NOT EXISTS extracted_projects (
		project_id INTEGER PRIMARY KEY AUTOINCREMENT,
		note_id TEXT NOT NULL,
		project_name TEXT NOT NULL,
		status TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (note_id) REFERENCES notes(note_id) ON DELETE CASCADE
	);`,
	`CREATE TABLE IF NOT EXISTS note_categories (
		category_id INTEGER PRIMARY KEY AUTOINCREMENT,
		note_id TEXT NOT NULL,
		category TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (note_id) REFERENCES notes(note_id) ON DELETE CASCADE,
		UNIQUE (note_id, category)
	);`,
	`CREATE TABLE IF NOT EXISTS accounts (
		account_id INTEGER PRIMARY KEY AUTOINCREMENT,
		account_name TEXT NOT NULL UNIQUE,
		note_count INTEGER DEFAULT 0,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);`,
	`CREATE TABLE IF NOT EXISTS folders (
		folder_id INTEGER PRIMARY KEY AUTOINCREMENT,
		folder_name TEXT NOT NULL,
		account_name TEXT NOT NULL,
		note_count INTEGER DEFAULT 0,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		UNIQUE (folder_name, account_name)
	);`,
}

// indexes are created after the bulk import; correctness never depends on them.
var indexes = []string{
	"CREATE INDEX IF NOT EXISTS idx_notes_folder ON notes(folder)",
	"CREATE INDEX IF NOT EXISTS idx_notes_account ON notes(account)",
	"CREATE INDEX IF NOT EXISTS idx_notes_status ON notes(status)",
	"CREATE INDEX IF NOT EXISTS idx_notes_primary_category ON notes(primary_category)",
	"CREATE INDEX IF NOT EXISTS idx_notes_created_datetime ON notes(created_datetime)",
	"CREATE INDEX IF NOT EXISTS idx_notes_modified_datetime ON notes(modified_datetime)",
	"CREATE INDEX IF NOT EXISTS idx_notes_title ON notes(title)",
	"CREATE INDEX IF NOT EXISTS idx_links_note_id ON extracted_links(note_id)",
	"CREATE INDEX IF NOT EXISTS idx_links_type ON extracted_links(link_type)",
	"CREATE INDEX IF NOT EXISTS idx_images_note_id ON extracted_images(note_id)",
	"CREATE INDEX IF NOT EXISTS idx_analysis_note_id ON analysis(note_id)",
	"CREATE INDEX IF NOT EXISTS idx_tasks_note_id ON extracted_tasks(note_id)",
	"CREATE INDEX IF NOT EXISTS idx_ideas_note_id ON extracted_ideas(note_id)",
	"CREATE INDEX IF NOT EXISTS idx_projects_note_id ON extracted_projects(note_id)",
	"CREATE INDEX IF NOT EXISTS idx_categories_note_id ON note_categories(note_id)",
}

// Migrate creates the tables. It is idempotent and can be run multiple times safely.
func Migrate(ctx context.Context, db *sql.DB) error {
	return execAll(ctx, db, schema)
}

// CreateIndexes creates the query indexes. Call it once the bulk import is done.
func CreateIndexes(ctx context.Context, db *sql.DB) error {
	return execAll(ctx, db, indexes)
}

func execAll(ctx context.Context, db *sql.DB, stmts []string) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin schema transaction: %w", err)
	}
	for _, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to execute %q: %w", firstLine(stmt), err)
		}
	}
	return tx.Commit()
}

func firstLine(stmt string) string {
	for i, r := range stmt {
		if r == '\n' || r == '(' {
			return stmt[:i]
		}
	}
	return stmt
}
