package importer

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Outcome classifies what happened to one note record.
type Outcome int

const (
	// OutcomeFailed means the note row was not written. Nothing of the note persists.
	OutcomeFailed Outcome = iota
	// OutcomeImported means the note row was inserted or replaced.
	OutcomeImported
	// OutcomeSkipped means the ignore policy kept an existing note row untouched.
	OutcomeSkipped
)

func (o Outcome) String() string {
	switch o {
	case OutcomeImported:
		return "imported"
	case OutcomeSkipped:
		return "skipped"
	}
	return "failed"
}

// Counts tallies rows written per entity kind.
type Counts struct {
	Notes      int `json:"notes_imported" yaml:"notes_imported"`
	Links      int `json:"links_imported" yaml:"links_imported"`
	Images     int `json:"images_imported" yaml:"images_imported"`
	Categories int `json:"categories_imported" yaml:"categories_imported"`
	Analyses   int `json:"analyses_imported" yaml:"analyses_imported"`
	Tasks      int `json:"tasks_imported" yaml:"tasks_imported"`
	Ideas      int `json:"ideas_imported" yaml:"ideas_imported"`
	Projects   int `json:"projects_imported" yaml:"projects_imported"`
	// Duplicates counts child rows absorbed by the ignore policy.
	Duplicates int `json:"duplicates_ignored" yaml:"duplicates_ignored"`
}

// Add adds o to c.
func (c *Counts) Add(o Counts) {
	c.Notes += o.Notes
	c.Links += o.Links
	c.Images += o.Images
	c.Categories += o.Categories
	c.Analyses += o.Analyses
	c.Tasks += o.Tasks
	c.Ideas += o.Ideas
	c.Projects += o.Projects
	c.Duplicates += o.Duplicates
}

// Result is the outcome of importing one note record.
type Result struct {
	NoteID  string
	Outcome Outcome
	Counts  Counts
	// Err is why the note failed. Only set with OutcomeFailed.
	Err error
	// ChildErrors are failed child inserts; the note and its other children were kept.
	ChildErrors []error
	// Warnings come from reconciliation and are not errors.
	Warnings []string
}

// Messages renders the result's errors as run log entries tagged with the
// note_id, or with origin when the record had none.
func (r Result) Messages(origin string) []string {
	tag := origin
	if r.NoteID != "" {
		tag = "note " + r.NoteID
	}
	var msgs []string
	if r.Err != nil {
		msgs = append(msgs, fmt.Sprintf("%s: %v", tag, r.Err))
	}
	for _, err := range r.ChildErrors {
		msgs = append(msgs, fmt.Sprintf("%s: %v", tag, err))
	}
	return msgs
}

// RunStats accumulates the results of a whole import run.
type RunStats struct {
	RunID      string    `json:"run_id" yaml:"run_id"`
	StartedAt  time.Time `json:"started_at" yaml:"started_at"`
	FinishedAt time.Time `json:"finished_at" yaml:"finished_at"`
	Files      int       `json:"files" yaml:"files"`
	Failed     int       `json:"notes_failed" yaml:"notes_failed"`
	Skipped    int       `json:"notes_skipped" yaml:"notes_skipped"`
	Counts     `yaml:",inline"`
	Errors     []string `json:"errors" yaml:"errors"`

	// pending holds counts of the open batch until it commits.
	pending Counts
}

// NewRunStats starts a run with a fresh id.
func NewRunStats() *RunStats {
	return &RunStats{
		RunID:     uuid.New().String(),
		StartedAt: time.Now().UTC(),
		Errors:    []string{},
	}
}

// Fold adds one note's result to the run. origin names the record's file.
// Row counts stay pending until Commit.
func (s *RunStats) Fold(r Result, origin string) {
	switch r.Outcome {
	case OutcomeFailed:
		s.Failed++
	case OutcomeSkipped:
		s.Skipped++
	}
	s.pending.Add(r.Counts)
	s.Errors = append(s.Errors, r.Messages(origin)...)
}

// Commit moves the pending counts into the run totals.
func (s *RunStats) Commit() {
	s.Counts.Add(s.pending)
	s.pending = Counts{}
}

// Discard drops the pending counts of a rolled back batch and returns how many
// notes they covered.
func (s *RunStats) Discard() int {
	n := s.pending.Notes
	s.pending = Counts{}
	return n
}

// AddError records a run-level problem such as an unreadable file.
func (s *RunStats) AddError(msg string) {
	s.Errors = append(s.Errors, msg)
}

func (s *RunStats) finish() {
	s.FinishedAt = time.Now().UTC()
}
