// Package assets stores the enrolled reference photos. Photos are addressed
// by a flat file name such as "S001.jpg".
package assets

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// ErrNotFound is returned by Get when no photo has the requested name.
var ErrNotFound = errors.New("asset not found")

// Store is a flat namespace of photo files.
type Store interface {
	// Put writes data under name, replacing any previous content.
	Put(ctx context.Context, name string, data []byte) error
	// Get returns the content stored under name or ErrNotFound.
	Get(ctx context.Context, name string) ([]byte, error)
	// Delete removes name and reports whether it existed.
	Delete(ctx context.Context, name string) (bool, error)
	// List returns all names in lexical order.
	List(ctx context.Context) ([]string, error)
}

// ValidateName rejects names that are empty or would escape the namespace.
func ValidateName(name string) error {
	if name == "" || name == "." || name == ".." {
		return fmt.Errorf("invalid asset name %q", name)
	}
	if strings.ContainsAny(name, `/\`) || filepath.Base(name) != name {
		return fmt.Errorf("invalid asset name %q", name)
	}
	return nil
}
