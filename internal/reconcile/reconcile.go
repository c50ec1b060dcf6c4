// Package reconcile resolves loosely-typed note records into one canonical shape.
//
// Upstream pipeline stages disagree on how optional sub-structures look: links
// arrive as flat lists or as type-keyed mappings, images as bare filenames or as
// metadata objects, tasks/ideas/projects as strings or objects. Decode absorbs
// all of them; callers only ever see Note.
package reconcile

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"unicode/utf8"
)

// Defaults applied to absent fields.
const (
	DefaultTitle    = "Untitled"
	DefaultFolder   = "Notes"
	DefaultAccount  = "Unknown"
	DefaultImageDir = "images"

	// SampleLimit bounds Analysis.PlainTextSample, in characters.
	SampleLimit = 1000
)

// Workflow statuses.
const (
	StatusPending     = "pending"
	StatusAnalyzed    = "analyzed"
	StatusKeep        = "keep"
	StatusDelete      = "delete"
	StatusNeedsReview = "needs-review"
)

var knownStatuses = map[string]bool{
	StatusPending: true, StatusAnalyzed: true, StatusKeep: true,
	StatusDelete: true, StatusNeedsReview: true,
}

var (
	// ErrNotObject is returned when a record is not a JSON object.
	ErrNotObject = errors.New("record is not a JSON object")
	// ErrMissingNoteID is returned when a record has no usable note_id.
	ErrMissingNoteID = errors.New("missing note_id in note data")
)

// Note is the canonical form of one note record.
type Note struct {
	NoteID         string
	OriginalIndex  int
	Title          string
	Content        string
	ContentCleaned string
	Folder         string
	Account        string
	// CoreDataID is the external identifier; empty when absent.
	CoreDataID string
	Created    string
	Modified   string
	Status     string
	Processed  bool
	// PrimaryCategory is empty when absent.
	PrimaryCategory string
	Categories      []string
	Links           []Link
	Images          []Image
	Tasks           []string
	Ideas           []string
	Projects        []string
	// Analysis is nil unless the record carried a non-empty analysis payload.
	Analysis *Analysis
	// Warnings lists entries that were dropped or defaulted. They are not errors.
	Warnings []string
}

// Link is a URL found in a note. Type is empty for untyped links.
type Link struct {
	URL  string
	Type string
}

// Image is an image extracted from a note. Order is 1-based.
type Image struct {
	Filename     string
	RelativePath string
	Format       string
	SizeBytes    int64
	Order        int
}

// Analysis holds the AI-derived summary of a note.
type Analysis struct {
	Summary         string
	PlainTextSample string
}

// object is a JSON object whose members have not been decoded yet.
type object map[string]json.RawMessage

type rawAnalysis struct {
	Summary          json.RawMessage `json:"summary"`
	PlainText        json.RawMessage `json:"plain_text"`
	Tasks            json.RawMessage `json:"tasks"`
	Ideas            json.RawMessage `json:"ideas"`
	Projects         json.RawMessage `json:"projects"`
	LinksCategorized json.RawMessage `json:"links_categorized"`
}

// Decode reconciles one JSON note record. It fails only when data is not a
// JSON object or has no note_id; every other irregularity degrades to a
// default and is recorded in Note.Warnings.
func Decode(data []byte) (*Note, error) {
	var fields object
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotObject, err)
	}
	if fields == nil {
		return nil, ErrNotObject
	}

	d := &decoder{}
	note := &Note{
		NoteID: d.noteID(fields["note_id"]),
	}
	if note.NoteID == "" {
		return nil, ErrMissingNoteID
	}

	note.OriginalIndex = d.integer("original_index", fields["original_index"])
	note.Title = d.str("title", fields["title"], DefaultTitle)
	note.Content = d.str("content", fields["content"], "")
	note.ContentCleaned = d.str("content_cleaned", fields["content_cleaned"], note.Content)
	note.Folder = d.str("folder", fields["folder"], DefaultFolder)
	note.Account = d.str("account", fields["account"], DefaultAccount)
	note.CoreDataID = d.str("id", fields["id"], "")
	note.Created = d.str("created", fields["created"], "")
	note.Modified = d.str("modified", fields["modified"], "")
	note.Status = d.str("status", fields["status"], StatusPending)
	if !knownStatuses[note.Status] {
		d.warn("unknown status %q kept verbatim", note.Status)
	}
	note.Processed = d.boolean("processed", fields["processed"])
	note.PrimaryCategory = d.str("primary_category", fields["primary_category"], "")
	note.Categories = d.categories(fields["categories"])

	extracted := d.object("extracted_data", fields["extracted_data"])
	note.Links = d.links("extracted_data.links", extracted["links"])
	note.Images = d.images(extracted["images"])

	analysis := d.object("analysis", fields["analysis"])
	if len(analysis) > 0 {
		var ra rawAnalysis
		// already known to be an object, and every member is a RawMessage
		_ = json.Unmarshal(fields["analysis"], &ra)

		note.Analysis = &Analysis{
			Summary:         d.str("analysis.summary", ra.Summary, ""),
			PlainTextSample: truncate(d.str("analysis.plain_text", ra.PlainText, ""), SampleLimit),
		}
		note.Links = append(note.Links, d.links("analysis.links_categorized", ra.LinksCategorized)...)
		note.Tasks = d.texts("analysis.tasks", ra.Tasks, "text")
		note.Ideas = d.texts("analysis.ideas", ra.Ideas, "text")
		note.Projects = d.texts("analysis.projects", ra.Projects, "name")
	}

	note.Warnings = d.warnings
	return note, nil
}

// decoder collects warnings while decoding members leniently.
type decoder struct {
	warnings []string
}

func (d *decoder) warn(format string, args ...any) {
	d.warnings = append(d.warnings, fmt.Sprintf(format, args...))
}

func isNull(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) == 0 || bytes.Equal(raw, []byte("null"))
}

func (d *decoder) noteID(raw json.RawMessage) string {
	if isNull(raw) {
		return ""
	}
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s
	}
	// ordinal-derived ids sometimes arrive as numbers
	var n json.Number
	if json.Unmarshal(raw, &n) == nil {
		return n.String()
	}
	return ""
}

func (d *decoder) str(name string, raw json.RawMessage, def string) string {
	if isNull(raw) {
		return def
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		d.warn("%s is not a string, using default", name)
		return def
	}
	return s
}

func (d *decoder) integer(name string, raw json.RawMessage) int {
	if isNull(raw) {
		return 0
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil || f != math.Trunc(f) {
		d.warn("%s is not an integer, using 0", name)
		return 0
	}
	return int(f)
}

func (d *decoder) boolean(name string, raw json.RawMessage) bool {
	if isNull(raw) {
		return false
	}
	var b bool
	if json.Unmarshal(raw, &b) == nil {
		return b
	}
	// upstream flags are sometimes written as 0/1 or "true"/"false"
	var f float64
	if json.Unmarshal(raw, &f) == nil {
		return f != 0
	}
	var s string
	if json.Unmarshal(raw, &s) == nil {
		if v, err := strconv.ParseBool(s); err == nil {
			return v
		}
	}
	d.warn("%s is not a boolean, using false", name)
	return false
}

func (d *decoder) object(name string, raw json.RawMessage) object {
	if isNull(raw) {
		return nil
	}
	var o object
	if err := json.Unmarshal(raw, &o); err != nil {
		d.warn("%s is not an object, ignored", name)
		return nil
	}
	return o
}

func (d *decoder) list(name string, raw json.RawMessage) []json.RawMessage {
	if isNull(raw) {
		return nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		d.warn("%s is not a list, ignored", name)
		return nil
	}
	return items
}

func (d *decoder) categories(raw json.RawMessage) []string {
	var out []string
	for i, item := range d.list("categories", raw) {
		var s string
		if json.Unmarshal(item, &s) != nil || s == "" {
			d.warn("categories[%d] is not a non-empty string, skipped", i)
			continue
		}
		out = append(out, s)
	}
	return out
}

func (d *decoder) links(name string, raw json.RawMessage) []Link {
	if isNull(raw) {
		return nil
	}
	var set linkSet
	_ = json.Unmarshal(raw, &set)
	if set.shape == shapeInvalid {
		d.warn("%s is neither a list nor a mapping, ignored", name)
		return nil
	}
	return set.resolve(func(linkType string) {
		if linkType == "" {
			d.warn("%s: skipped a non-string or empty URL", name)
			return
		}
		d.warn("%s[%s]: skipped a malformed URL entry", name, linkType)
	})
}

func (d *decoder) images(raw json.RawMessage) []Image {
	var out []Image
	for i, item := range d.list("extracted_data.images", raw) {
		var entry imageEntry
		_ = json.Unmarshal(item, &entry)
		img, ok := entry.resolve(i + 1)
		if !ok {
			d.warn("extracted_data.images[%d] has no filename, skipped", i)
			continue
		}
		out = append(out, img)
	}
	return out
}

func (d *decoder) texts(name string, raw json.RawMessage, field string) []string {
	items := d.list(name, raw)
	if len(items) == 0 {
		return nil
	}
	out := make([]string, 0, len(items))
	for i, item := range items {
		var entry textEntry
		_ = json.Unmarshal(item, &entry)
		text, ok := entry.text(field)
		if !ok {
			d.warn("%s[%d] has no %q, stored empty", name, i, field)
		}
		out = append(out, text)
	}
	return out
}

// truncate cuts s to at most n characters without splitting a rune.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}
