package storage

import (
	"errors"
	"fmt"
	"strings"
)

// ConflictPolicy decides what an insert does when the row's unique key already exists.
type ConflictPolicy int

const (
	// PolicyReject inserts strictly; a duplicate key is an error.
	PolicyReject ConflictPolicy = iota
	// PolicyIgnore makes a duplicate insert a silent no-op.
	PolicyIgnore
	// PolicyReplace overwrites the non-key columns of the existing row.
	PolicyReplace
	// PolicyAppend always inserts. Only valid for tables without a unique key.
	PolicyAppend
)

// ErrInvalidPolicy is returned for unknown policy names or policies a table cannot honor.
var ErrInvalidPolicy = errors.New("invalid conflict policy")

var policyNames = map[ConflictPolicy]string{
	PolicyReject:  "reject",
	PolicyIgnore:  "ignore",
	PolicyReplace: "replace",
	PolicyAppend:  "append",
}

func (p ConflictPolicy) String() string {
	if name, ok := policyNames[p]; ok {
		return name
	}
	return fmt.Sprintf("ConflictPolicy(%d)", int(p))
}

// ParseConflictPolicy parses "reject", "ignore", "replace" or "append".
func ParseConflictPolicy(s string) (ConflictPolicy, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for p, name := range policyNames {
		if name == s {
			return p, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidPolicy, s)
}

// Table names.
const (
	TableNotes      = "notes"
	TableLinks      = "extracted_links"
	TableImages     = "extracted_images"
	TableCategories = "note_categories"
	TableAnalysis   = "analysis"
	TableTasks      = "extracted_tasks"
	TableIdeas      = "extracted_ideas"
	TableProjects   = "extracted_projects"
)

// tableSpec describes the columns an import writes and the unique key they
// conflict on. An empty key means the table is append-only.
type tableSpec struct {
	columns []string
	key     []string
	// touch is set to CURRENT_TIMESTAMP when a row is replaced.
	touch string
}

var tableSpecs = map[string]tableSpec{
	TableNotes: {
		columns: []string{
			"note_id", "original_index", "title", "content", "content_cleaned",
			"plain_text", "folder", "account", "coredata_id",
			"created_raw", "created_datetime", "modified_raw", "modified_datetime",
			"status", "processed", "primary_category", "content_length",
		},
		key:   []string{"note_id"},
		touch: "updated_at",
	},
	TableLinks: {
		columns: []string{"note_id", "url", "link_type"},
		key:     []string{"note_id", "url", "link_type"},
	},
	TableImages: {
		columns: []string{"note_id", "filename", "relative_path", "image_format", "size_bytes", "extraction_order"},
		key:     []string{"note_id", "filename"},
	},
	TableCategories: {
		columns: []string{"note_id", "category"},
		key:     []string{"note_id", "category"},
	},
	TableAnalysis: {
		columns: []string{"note_id", "summary", "plain_text_sample"},
		key:     []string{"note_id"},
	},
	TableTasks:    {columns: []string{"note_id", "task_text"}},
	TableIdeas:    {columns: []string{"note_id", "idea_text"}},
	TableProjects: {columns: []string{"note_id", "project_name"}},
}

// Policies assigns a ConflictPolicy to every imported table.
type Policies map[string]ConflictPolicy

// DefaultPolicies returns the policies used for re-runnable imports: notes are
// upserted, keyed children ignore duplicates, tasks/ideas/projects append.
func DefaultPolicies() Policies {
	return Policies{
		TableNotes:      PolicyReplace,
		TableLinks:      PolicyIgnore,
		TableImages:     PolicyIgnore,
		TableCategories: PolicyIgnore,
		TableAnalysis:   PolicyIgnore,
		TableTasks:      PolicyAppend,
		TableIdeas:      PolicyAppend,
		TableProjects:   PolicyAppend,
	}
}

// Validate checks that every table has a policy it can honor.
func (p Policies) Validate() error {
	for table, spec := range tableSpecs {
		policy, ok := p[table]
		if !ok {
			return fmt.Errorf("%w: no policy for table %s", ErrInvalidPolicy, table)
		}
		keyed := len(spec.key) > 0
		if keyed && policy == PolicyAppend {
			return fmt.Errorf("%w: %s has a unique key and cannot append", ErrInvalidPolicy, table)
		}
		if !keyed && policy != PolicyAppend {
			return fmt.Errorf("%w: %s has no unique key, only append applies", ErrInvalidPolicy, table)
		}
		if _, known := policyNames[policy]; !known {
			return fmt.Errorf("%w: %s for table %s", ErrInvalidPolicy, policy, table)
		}
	}
	for table := range p {
		if _, ok := tableSpecs[table]; !ok {
			return fmt.Errorf("%w: unknown table %s", ErrInvalidPolicy, table)
		}
	}
	return nil
}

// insertStatement renders the INSERT for table under policy.
func insertStatement(table string, policy ConflictPolicy) string {
	spec := tableSpecs[table]
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(spec.columns)), ", ")
	stmt := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		table, strings.Join(spec.columns, ", "), placeholders)

	// Conflicts are targeted at the key, so other unique constraints still fail.
	target := strings.Join(spec.key, ", ")
	switch policy {
	case PolicyIgnore:
		stmt += fmt.Sprintf(" ON CONFLICT (%s) DO NOTHING", target)
	case PolicyReplace:
		isKey := make(map[string]bool, len(spec.key))
		for _, k := range spec.key {
			isKey[k] = true
		}
		var sets []string
		for _, c := range spec.columns {
			if !isKey[c] {
				sets = append(sets, fmt.Sprintf("%s = excluded.%s", c, c))
			}
		}
		if spec.touch != "" {
			sets = append(sets, spec.touch+" = CURRENT_TIMESTAMP")
		}
		if len(sets) == 0 {
			stmt += fmt.Sprintf(" ON CONFLICT (%s) DO NOTHING", target)
		} else {
			stmt += fmt.Sprintf(" ON CONFLICT (%s) DO UPDATE SET %s", target, strings.Join(sets, ", "))
		}
	}
	return stmt
}
