// ABOUTME: File system data source rooted at a directory
// ABOUTME: Resource locators are slash-separated paths below the root

package datasource

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
)

// DirSource reads resources from files below a root directory
type DirSource struct {
	root *os.Root
	dir  string
}

// OpenDir opens a directory data source. Locators cannot escape dir.
func OpenDir(dir string) (*DirSource, error) {
	root, err := os.OpenRoot(dir)
	if err != nil {
		return nil, fmt.Errorf("datasource: open dir: %w", err)
	}
	return &DirSource{root: root, dir: dir}, nil
}

// Open opens the file named by resource
func (s *DirSource) Open(ctx context.Context, resource string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := s.root.Open(resource)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrResourceNotFound, resource)
	}
	if err != nil {
		return nil, fmt.Errorf("datasource: open %s: %w", resource, err)
	}
	return f, nil
}

// Walk returns every regular file below the root as a locator
func (s *DirSource) Walk() ([]string, error) {
	var names []string
	err := fs.WalkDir(s.root.FS(), ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() {
			names = append(names, path)
		}
		return nil
	})
	return names, err
}

// Dir returns the root directory
func (s *DirSource) Dir() string {
	return s.dir
}

// Close releases the root handle
func (s *DirSource) Close() error {
	return s.root.Close()
}
