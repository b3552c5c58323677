// Package local serves the data set from a folder on disk.
package local

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"recibos/internal/source"
)

// Folder is a source.Fetcher over a directory.
type Folder struct {
	dir string
}

var _ source.Fetcher = (*Folder)(nil)

func NewFolder(dir string) *Folder {
	return &Folder{dir: dir}
}

// New returns a complete source backed by dir.
func New(dir string, opts source.DecodeOptions) *source.Documents {
	return source.NewDocuments(NewFolder(dir), opts)
}

// Dir returns the folder path.
func (f *Folder) Dir() string {
	return f.dir
}

func (f *Folder) Fetch(ctx context.Context, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if name == "" || filepath.Base(name) != name {
		return nil, fmt.Errorf("invalid document name %q", name)
	}
	body, err := os.ReadFile(filepath.Join(f.dir, name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", name, source.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	return body, nil
}

func (f *Folder) List(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(f.dir)
	if err != nil {
		return nil, fmt.Errorf("read dir %s: %w", f.dir, err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Type().IsRegular() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}
