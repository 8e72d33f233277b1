// Package embedcache remembers face embeddings by photo content hash so
// that rebuilding the identity index does not call the extractor for
// photos it has already seen.
package embedcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
)

// Cache maps a content hash to the first face embedding of that photo.
type Cache interface {
	Get(ctx context.Context, hash string) ([]float32, bool, error)
	Put(ctx context.Context, hash string, embedding []float32) error
}

// Flusher is implemented by caches that buffer writes until Flush.
type Flusher interface {
	Flush() error
}

// Flush persists buffered writes of c, if it buffers any.
func Flush(c Cache) error {
	if f, ok := c.(Flusher); ok {
		return f.Flush()
	}
	return nil
}

// HashImage returns the hex SHA-256 of the raw photo bytes.
func HashImage(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Noop never hits.
type Noop struct{}

func (Noop) Get(context.Context, string) ([]float32, bool, error) { return nil, false, nil }
func (Noop) Put(context.Context, string, []float32) error         { return nil }
