package reconcile

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode_Defaults(t *testing.T) {
	note, err := Decode([]byte(`{"note_id": "note_0001", "content": "<p>hi</p>"}`))
	require.NoError(t, err)

	assert.Equal(t, "note_0001", note.NoteID)
	assert.Equal(t, DefaultTitle, note.Title)
	assert.Equal(t, DefaultFolder, note.Folder)
	assert.Equal(t, DefaultAccount, note.Account)
	assert.Equal(t, StatusPending, note.Status)
	assert.Equal(t, "<p>hi</p>", note.ContentCleaned, "content_cleaned falls back to content")
	assert.False(t, note.Processed)
	assert.Empty(t, note.CoreDataID)
	assert.Nil(t, note.Analysis)
	assert.Empty(t, note.Warnings)
}

func TestDecode_Errors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr error
	}{
		{name: "invalid json", input: `{"note_id": `, wantErr: ErrNotObject},
		{name: "array", input: `[1, 2]`, wantErr: ErrNotObject},
		{name: "null", input: `null`, wantErr: ErrNotObject},
		{name: "missing note_id", input: `{"title": "x"}`, wantErr: ErrMissingNoteID},
		{name: "empty note_id", input: `{"note_id": ""}`, wantErr: ErrMissingNoteID},
		{name: "boolean note_id", input: `{"note_id": true}`, wantErr: ErrMissingNoteID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			note, err := Decode([]byte(tt.input))
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Nil(t, note)
		})
	}
}

func TestDecode_NumericNoteID(t *testing.T) {
	note, err := Decode([]byte(`{"note_id": 42}`))
	require.NoError(t, err)
	assert.Equal(t, "42", note.NoteID)
}

func TestDecode_Links(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []Link
	}{
		{
			name:  "flat list is untyped",
			input: `{"note_id": "n", "extracted_data": {"links": ["https://a.com", "https://b.com"]}}`,
			want:  []Link{{URL: "https://a.com"}, {URL: "https://b.com"}},
		},
		{
			name:  "mapping under extracted_data is typed",
			input: `{"note_id": "n", "extracted_data": {"links": {"youtube": ["https://y.com"], "github": ["https://g.com"]}}}`,
			want:  []Link{{URL: "https://g.com", Type: "github"}, {URL: "https://y.com", Type: "youtube"}},
		},
		{
			name: "flat and categorized together",
			input: `{"note_id": "n", "extracted_data": {"links": ["https://a.com"]},
				"analysis": {"links_categorized": {"youtube": ["https://a.com"]}}}`,
			want: []Link{{URL: "https://a.com"}, {URL: "https://a.com", Type: "youtube"}},
		},
		{
			name:  "malformed entries skipped",
			input: `{"note_id": "n", "extracted_data": {"links": ["https://a.com", 7, ""]}}`,
			want:  []Link{{URL: "https://a.com"}},
		},
		{
			name:  "links of the wrong type ignored",
			input: `{"note_id": "n", "extracted_data": {"links": "https://a.com"}}`,
			want:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			note, err := Decode([]byte(tt.input))
			require.NoError(t, err)
			assert.Equal(t, tt.want, note.Links)
		})
	}
}

func TestDecode_Images(t *testing.T) {
	input := `{"note_id": "n", "extracted_data": {"images": [
		"photo.png",
		{"filename": "scan.jpg", "path": "attachments/scan.jpg", "format": "jpeg", "size": 2048},
		{"filename": "bare.gif"},
		{"format": "png"},
		12
	]}}`

	note, err := Decode([]byte(input))
	require.NoError(t, err)

	want := []Image{
		{Filename: "photo.png", RelativePath: "images/photo.png", Order: 1},
		{Filename: "scan.jpg", RelativePath: "attachments/scan.jpg", Format: "jpeg", SizeBytes: 2048, Order: 2},
		{Filename: "bare.gif", RelativePath: "images/bare.gif", Order: 3},
	}
	assert.Equal(t, want, note.Images)
	assert.Len(t, note.Warnings, 2)
}

func TestDecode_ImageSize(t *testing.T) {
	input := `{"note_id": "n", "extracted_data": {"images": [
		{"filename": "a.png", "size": "big"},
		{"filename": "b.png", "size": "4096"},
		{"filename": "c.png", "size": 12.9},
		{"filename": "d.png", "size": null}
	]}}`

	note, err := Decode([]byte(input))
	require.NoError(t, err)
	require.Len(t, note.Images, 4)

	var sizes []int64
	for _, img := range note.Images {
		sizes = append(sizes, img.SizeBytes)
	}
	assert.Equal(t, []int64{0, 4096, 12, 0}, sizes)
	assert.Equal(t, "a.png", note.Images[0].Filename)
	assert.Empty(t, note.Warnings)
}

func TestDecode_TasksIdeasProjects(t *testing.T) {
	input := `{"note_id": "n", "analysis": {
		"tasks": ["Call Bob", {"text": "Buy milk", "priority": 1}, {"title": "no text"}],
		"ideas": [{"text": "Solar roof"}, 3],
		"projects": ["Garden", {"name": "Kitchen"}, {"text": "wrong field"}]
	}}`

	note, err := Decode([]byte(input))
	require.NoError(t, err)

	assert.Equal(t, []string{"Call Bob", "Buy milk", ""}, note.Tasks)
	assert.Equal(t, []string{"Solar roof", ""}, note.Ideas)
	assert.Equal(t, []string{"Garden", "Kitchen", ""}, note.Projects)
	assert.Len(t, note.Warnings, 3)
}

func TestDecode_Analysis(t *testing.T) {
	t.Run("empty payload creates no analysis", func(t *testing.T) {
		note, err := Decode([]byte(`{"note_id": "n", "analysis": {}}`))
		require.NoError(t, err)
		assert.Nil(t, note.Analysis)
	})

	t.Run("payload with summary", func(t *testing.T) {
		note, err := Decode([]byte(`{"note_id": "n", "analysis": {"summary": "short", "plain_text": "body"}}`))
		require.NoError(t, err)
		require.NotNil(t, note.Analysis)
		assert.Equal(t, "short", note.Analysis.Summary)
		assert.Equal(t, "body", note.Analysis.PlainTextSample)
	})

	t.Run("sample is bounded by characters", func(t *testing.T) {
		long := strings.Repeat("é", SampleLimit+50)
		note, err := Decode([]byte(`{"note_id": "n", "analysis": {"plain_text": "` + long + `"}}`))
		require.NoError(t, err)
		require.NotNil(t, note.Analysis)
		assert.Equal(t, strings.Repeat("é", SampleLimit), note.Analysis.PlainTextSample)
	})

	t.Run("payload with only tasks still counts as present", func(t *testing.T) {
		note, err := Decode([]byte(`{"note_id": "n", "analysis": {"tasks": ["x"]}}`))
		require.NoError(t, err)
		require.NotNil(t, note.Analysis)
		assert.Empty(t, note.Analysis.Summary)
		assert.Equal(t, []string{"x"}, note.Tasks)
	})
}

func TestDecode_LenientScalars(t *testing.T) {
	input := `{"note_id": "n", "title": 5, "processed": "yes", "original_index": 3.5,
		"status": "archived", "categories": ["work", 9, "home"], "extracted_data": []}`

	note, err := Decode([]byte(input))
	require.NoError(t, err)

	assert.Equal(t, DefaultTitle, note.Title)
	assert.False(t, note.Processed)
	assert.Equal(t, 0, note.OriginalIndex)
	assert.Equal(t, "archived", note.Status)
	assert.Equal(t, []string{"work", "home"}, note.Categories)
	assert.Len(t, note.Warnings, 6)
}

func TestDecode_Processed(t *testing.T) {
	tests := []struct {
		raw      string
		want     bool
		warnings int
	}{
		{raw: `true`, want: true},
		{raw: `false`, want: false},
		{raw: `1`, want: true},
		{raw: `0`, want: false},
		{raw: `"true"`, want: true},
		{raw: `"0"`, want: false},
		{raw: `null`, want: false},
		{raw: `"yes"`, want: false, warnings: 1},
		{raw: `[1]`, want: false, warnings: 1},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			note, err := Decode([]byte(`{"note_id": "n", "processed": ` + tt.raw + `}`))
			require.NoError(t, err)
			assert.Equal(t, tt.want, note.Processed)
			assert.Len(t, note.Warnings, tt.warnings)
		})
	}
}

func TestDecode_FullRecord(t *testing.T) {
	input := `{
		"note_id": "note_0007",
		"original_index": 7,
		"title": "Trip",
		"content": "<div>Pack</div>",
		"content_cleaned": "<div>Pack</div><img>",
		"folder": "Travel",
		"account": "iCloud",
		"id": "x-coredata://ABC/ICNote/p7",
		"created": "Saturday, November 8, 2025 at 21:59:06",
		"modified": "whenever",
		"status": "keep",
		"processed": true,
		"primary_category": "travel",
		"categories": ["travel"]
	}`

	note, err := Decode([]byte(input))
	require.NoError(t, err)

	assert.Equal(t, 7, note.OriginalIndex)
	assert.Equal(t, "Trip", note.Title)
	assert.Equal(t, "<div>Pack</div><img>", note.ContentCleaned)
	assert.Equal(t, "Travel", note.Folder)
	assert.Equal(t, "iCloud", note.Account)
	assert.Equal(t, "x-coredata://ABC/ICNote/p7", note.CoreDataID)
	assert.Equal(t, "whenever", note.Modified)
	assert.Equal(t, StatusKeep, note.Status)
	assert.True(t, note.Processed)
	assert.Equal(t, "travel", note.PrimaryCategory)
	assert.Empty(t, note.Warnings)
}
