// Package source lists and reads the per-note JSON records produced by the
// splitting stage of the export pipeline.
package source

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
)

// DefaultPattern matches the files written by the splitter.
const DefaultPattern = "note_*.json"

var (
	// ErrSourceNotFound is returned when the record directory does not exist.
	ErrSourceNotFound = errors.New("record directory not found")
	// ErrNoRecords is returned when the directory holds no matching files.
	ErrNoRecords = errors.New("no record files found")
)

// File is one record file found during scanning.
type File struct {
	RelPath string // slash-separated, relative to the directory root
	AbsPath string
}

// Dir is a directory of record files selected by a doublestar pattern.
type Dir struct {
	root    string
	pattern string
	fsys    fs.FS
}

// NewDir checks that root is a directory and pattern is a valid glob.
// A missing root yields ErrSourceNotFound.
func NewDir(root, pattern string) (*Dir, error) {
	if pattern == "" {
		pattern = DefaultPattern
	}
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("invalid record pattern %q", pattern)
	}

	info, err := os.Stat(root)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrSourceNotFound, root)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrSourceNotFound, root)
	}

	return &Dir{root: root, pattern: pattern, fsys: os.DirFS(root)}, nil
}

// Root returns the directory being scanned.
func (d *Dir) Root() string {
	return d.root
}

// Scan returns every matching file in path order. An empty result is
// reported as ErrNoRecords.
func (d *Dir) Scan(ctx context.Context) ([]File, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	matches, err := doublestar.Glob(d.fsys, d.pattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", d.root, err)
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("%w: %s in %s", ErrNoRecords, d.pattern, d.root)
	}

	sort.Strings(matches)
	files := make([]File, 0, len(matches))
	for _, rel := range matches {
		files = append(files, File{
			RelPath: path.Clean(rel),
			AbsPath: filepath.Join(d.root, filepath.FromSlash(rel)),
		})
	}
	return files, nil
}

// Read returns the raw contents of f.
func (d *Dir) Read(f File) ([]byte, error) {
	data, err := fs.ReadFile(d.fsys, f.RelPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", f.AbsPath, err)
	}
	return data, nil
}
