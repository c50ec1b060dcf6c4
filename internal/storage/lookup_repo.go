package storage

import (
	"context"
	"database/sql"
	"fmt"
)

// LookupCounts reports how many lookup rows a Populate call added.
type LookupCounts struct {
	Accounts int64 `json:"accounts" yaml:"accounts"`
	Folders  int64 `json:"folders" yaml:"folders"`
}

// LookupRepo maintains the derived accounts and folders tables.
type LookupRepo struct {
	db *sql.DB
}

// NewLookupRepo creates a new LookupRepo.
func NewLookupRepo(db *sql.DB) *LookupRepo {
	return &LookupRepo{db: db}
}

// Populate aggregates notes by account and by (folder, account) and inserts
// one row per group. Groups that already have a row keep their stored count.
func (r *LookupRepo) Populate(ctx context.Context) (LookupCounts, error) {
	var counts LookupCounts

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return counts, fmt.Errorf("failed to begin lookup transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// WHERE true keeps SQLite from reading ON CONFLICT as a join constraint
	res, err := tx.ExecContext(ctx,
		`INSERT INTO accounts (account_name, note_count)
		 SELECT account, COUNT(*) FROM notes WHERE true GROUP BY account
		 ON CONFLICT DO NOTHING`)
	if err != nil {
		return counts, fmt.Errorf("failed to populate accounts: %w", err)
	}
	if counts.Accounts, err = res.RowsAffected(); err != nil {
		return counts, fmt.Errorf("failed to populate accounts: %w", err)
	}

	res, err = tx.ExecContext(ctx,
		`INSERT INTO folders (folder_name, account_name, note_count)
		 SELECT folder, account, COUNT(*) FROM notes WHERE true GROUP BY folder, account
		 ON CONFLICT DO NOTHING`)
	if err != nil {
		return counts, fmt.Errorf("failed to populate folders: %w", err)
	}
	if counts.Folders, err = res.RowsAffected(); err != nil {
		return counts, fmt.Errorf("failed to populate folders: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return counts, fmt.Errorf("failed to commit lookup tables: %w", err)
	}
	return counts, nil
}
