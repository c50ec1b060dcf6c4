package storage

import (
	"errors"
	"strings"
	"testing"
)

func TestParseConflictPolicy(t *testing.T) {
	tests := []struct {
		input   string
		want    ConflictPolicy
		wantErr bool
	}{
		{input: "reject", want: PolicyReject},
		{input: "Ignore", want: PolicyIgnore},
		{input: " replace ", want: PolicyReplace},
		{input: "append", want: PolicyAppend},
		{input: "upsert", wantErr: true},
		{input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseConflictPolicy(tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidPolicy) {
					t.Errorf("ParseConflictPolicy(%q) error = %v, want ErrInvalidPolicy", tt.input, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseConflictPolicy(%q) unexpected error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseConflictPolicy(%q) = %v, want %v", tt.input, got, tt.want)
			}
			if got.String() != strings.ToLower(strings.TrimSpace(tt.input)) {
				t.Errorf("String() = %q", got.String())
			}
		})
	}
}

func TestPolicies_Validate(t *testing.T) {
	if err := DefaultPolicies().Validate(); err != nil {
		t.Fatalf("DefaultPolicies().Validate() error = %v", err)
	}

	tests := []struct {
		name   string
		mutate func(Policies)
	}{
		{name: "missing table", mutate: func(p Policies) { delete(p, TableImages) }},
		{name: "append on keyed table", mutate: func(p Policies) { p[TableLinks] = PolicyAppend }},
		{name: "ignore on append-only table", mutate: func(p Policies) { p[TableTasks] = PolicyIgnore }},
		{name: "unknown table", mutate: func(p Policies) { p["bogus"] = PolicyIgnore }},
		{name: "unknown policy", mutate: func(p Policies) { p[TableNotes] = ConflictPolicy(42) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultPolicies()
			tt.mutate(p)
			if err := p.Validate(); !errors.Is(err, ErrInvalidPolicy) {
				t.Errorf("Validate() error = %v, want ErrInvalidPolicy", err)
			}
		})
	}
}

func TestInsertStatement(t *testing.T) {
	tests := []struct {
		name   string
		table  string
		policy ConflictPolicy
		want   string
	}{
		{
			name:   "reject is a plain insert",
			table:  TableCategories,
			policy: PolicyReject,
			want:   "INSERT INTO note_categories (note_id, category) VALUES (?, ?)",
		},
		{
			name:   "ignore",
			table:  TableLinks,
			policy: PolicyIgnore,
			want:   "INSERT INTO extracted_links (note_id, url, link_type) VALUES (?, ?, ?) ON CONFLICT (note_id, url, link_type) DO NOTHING",
		},
		{
			name:   "append",
			table:  TableTasks,
			policy: PolicyAppend,
			want:   "INSERT INTO extracted_tasks (note_id, task_text) VALUES (?, ?)",
		},
		{
			name:   "replace updates non-key columns",
			table:  TableAnalysis,
			policy: PolicyReplace,
			want: "INSERT INTO analysis (note_id, summary, plain_text_sample) VALUES (?, ?, ?)" +
				" ON CONFLICT (note_id) DO UPDATE SET summary = excluded.summary, plain_text_sample = excluded.plain_text_sample",
		},
		{
			name:   "replace with only key columns degrades to ignore",
			table:  TableCategories,
			policy: PolicyReplace,
			want:   "INSERT INTO note_categories (note_id, category) VALUES (?, ?) ON CONFLICT (note_id, category) DO NOTHING",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := insertStatement(tt.table, tt.policy); got != tt.want {
				t.Errorf("insertStatement() =\n%s\nwant\n%s", got, tt.want)
			}
		})
	}
}

func TestInsertStatement_ReplaceNotesTouchesUpdatedAt(t *testing.T) {
	stmt := insertStatement(TableNotes, PolicyReplace)
	if !strings.Contains(stmt, "ON CONFLICT (note_id) DO UPDATE SET") {
		t.Errorf("missing upsert clause: %s", stmt)
	}
	if !strings.HasSuffix(stmt, "updated_at = CURRENT_TIMESTAMP") {
		t.Errorf("replace should touch updated_at: %s", stmt)
	}
	if strings.Contains(stmt, "note_id = excluded.note_id") {
		t.Errorf("key column must not be updated: %s", stmt)
	}
}
