// Package filestore persists collections as JSON files in a directory.
package filestore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/kozaktomas/face-attendance/internal/store"
)

// Store keeps each collection in <dir>/<collection>.json.
type Store struct {
	dir string
}

// New creates the data directory if needed.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

func (s *Store) path(c store.Collection) string {
	return filepath.Join(s.dir, string(c)+".json")
}

// Load reads a collection file. A missing file is not an error.
func (s *Store) Load(_ context.Context, c store.Collection) ([]byte, error) {
	data, err := os.ReadFile(s.path(c))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", c, err)
	}
	return data, nil
}

// Save writes to a uniquely named temp file in the same directory and renames
// it over the collection file, so readers see either the old or the new
// document and never a partial one.
func (s *Store) Save(_ context.Context, c store.Collection, data []byte) error {
	target := s.path(c)
	tmp := target + ".tmp-" + uuid.NewString()

	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := os.Rename(tmp, target); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replacing %s: %w", c, err)
	}
	return nil
}

// Close is a no-op for the file backend.
func (s *Store) Close() error {
	return nil
}
