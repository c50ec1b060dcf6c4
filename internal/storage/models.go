package storage

import "time"

// NoteRecord is a row of the notes table.
type NoteRecord struct {
	NoteID          string
	OriginalIndex   int
	Title           string
	Content         string // raw markup
	ContentCleaned  string // markup after extraction side effects
	PlainText       string
	Folder          string
	Account         string
	CoreDataID      string // stored as NULL when empty
	CreatedRaw      string
	Created         *time.Time // nil when CreatedRaw did not parse
	ModifiedRaw     string
	Modified        *time.Time
	Status          string
	Processed       bool
	PrimaryCategory string // stored as NULL when empty
	ContentLength   int
}

// LinkRecord is a row of extracted_links. Type is "" for untyped links.
type LinkRecord struct {
	NoteID string
	URL    string
	Type   string
}

// ImageRecord is a row of extracted_images.
type ImageRecord struct {
	NoteID       string
	Filename     string
	RelativePath string
	Format       string
	SizeBytes    int64
	Order        int // 1-based position among the note's images
}

// AnalysisRecord is the single analysis row of a note.
type AnalysisRecord struct {
	NoteID          string
	Summary         string
	PlainTextSample string
}

// ItemKind selects one of the free-text child tables.
type ItemKind int

const (
	ItemTask ItemKind = iota
	ItemIdea
	ItemProject
)

func (k ItemKind) table() string {
	switch k {
	case ItemIdea:
		return TableIdeas
	case ItemProject:
		return TableProjects
	}
	return TableTasks
}

func (k ItemKind) String() string {
	switch k {
	case ItemIdea:
		return "idea"
	case ItemProject:
		return "project"
	}
	return "task"
}
