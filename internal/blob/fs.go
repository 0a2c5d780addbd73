// Package blob abstracts report/file storage. The engine only defines the
// blob's content; where it lands is a collaborator concern.
package blob

import (
	"context"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
)

// Storage persists an opaque blob and returns a URL for retrieval.
type Storage interface {
	Put(ctx context.Context, name string, data []byte) (string, error)
}

// FSStorage writes blobs under a local directory and returns file:// URLs.
type FSStorage struct {
	dir string
}

// NewFSStorage creates an FSStorage rooted at dir, creating it if needed.
func NewFSStorage(dir string) (*FSStorage, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, eris.Wrapf(err, "blob: create dir %s", dir)
	}
	return &FSStorage{dir: dir}, nil
}

// Put writes the blob to dir/name and returns its file:// URL.
func (s *FSStorage) Put(ctx context.Context, name string, data []byte) (string, error) {
	path := filepath.Join(s.dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", eris.Wrapf(err, "blob: write %s", path)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", eris.Wrap(err, "blob: resolve path")
	}
	return "file://" + abs, nil
}
