package source

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFiles(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
}

func TestNewDir(t *testing.T) {
	root := t.TempDir()
	file := filepath.Join(root, "plain.txt")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))

	_, err := NewDir(filepath.Join(root, "missing"), "")
	assert.ErrorIs(t, err, ErrSourceNotFound)

	_, err = NewDir(file, "")
	assert.ErrorIs(t, err, ErrSourceNotFound)

	_, err = NewDir(root, "note_[.json")
	assert.Error(t, err)

	d, err := NewDir(root, "")
	require.NoError(t, err)
	assert.Equal(t, DefaultPattern, d.pattern)
	assert.Equal(t, root, d.Root())
}

func TestDir_Scan(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"note_0002.json":        `{"note_id": "2"}`,
		"note_0001.json":        `{"note_id": "1"}`,
		"summary.json":          `{}`,
		"nested/note_0003.json": `{"note_id": "3"}`,
	})
	require.NoError(t, os.Mkdir(filepath.Join(root, "note_dir.json"), 0o755))

	d, err := NewDir(root, "")
	require.NoError(t, err)

	files, err := d.Scan(context.Background())
	require.NoError(t, err)

	var rels []string
	for _, f := range files {
		rels = append(rels, f.RelPath)
	}
	assert.Equal(t, []string{"note_0001.json", "note_0002.json"}, rels)

	data, err := d.Read(files[0])
	require.NoError(t, err)
	assert.JSONEq(t, `{"note_id": "1"}`, string(data))
}

func TestDir_Scan_Recursive(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"a/note_1.json":   `{}`,
		"a/b/note_2.json": `{}`,
	})

	d, err := NewDir(root, "**/note_*.json")
	require.NoError(t, err)

	files, err := d.Scan(context.Background())
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "a/b/note_2.json", files[0].RelPath)
	assert.Equal(t, filepath.Join(root, "a", "b", "note_2.json"), files[0].AbsPath)
}

func TestDir_Scan_Empty(t *testing.T) {
	d, err := NewDir(t.TempDir(), "")
	require.NoError(t, err)

	_, err = d.Scan(context.Background())
	assert.ErrorIs(t, err, ErrNoRecords)
}

func TestDir_Scan_Cancelled(t *testing.T) {
	d, err := NewDir(t.TempDir(), "")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = d.Scan(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDir_Read_Missing(t *testing.T) {
	d, err := NewDir(t.TempDir(), "")
	require.NoError(t, err)

	_, err = d.Read(File{RelPath: "note_9.json", AbsPath: "note_9.json"})
	assert.ErrorIs(t, err, os.ErrNotExist)
}
