package embedcache

import (
	"context"
	"encoding/gob"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/google/uuid"
)

type storedEmbedding struct {
	Hash      string
	Embedding []float32
}

// FileCache keeps the cache in memory and persists it as a gob file.
// Put only updates memory; Flush writes the file.
type FileCache struct {
	path    string
	mu      sync.RWMutex
	entries map[string][]float32
	dirty   bool
}

// OpenFile loads the cache file at path. A missing or unreadable file
// starts an empty cache.
func OpenFile(path string) (*FileCache, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating cache directory: %w", err)
	}
	c := &FileCache{path: path, entries: make(map[string][]float32)}

	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return c, nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening embedding cache: %w", err)
	}
	defer f.Close()

	var stored []storedEmbedding
	if err := gob.NewDecoder(f).Decode(&stored); err != nil {
		log.Printf("warning: discarding unreadable embedding cache %s: %v", path, err)
		return c, nil
	}
	for _, s := range stored {
		c.entries[s.Hash] = s.Embedding
	}
	return c, nil
}

func (c *FileCache) Get(_ context.Context, hash string) ([]float32, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	emb, ok := c.entries[hash]
	if !ok {
		return nil, false, nil
	}
	return slices.Clone(emb), true, nil
}

func (c *FileCache) Put(_ context.Context, hash string, embedding []float32) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[hash] = slices.Clone(embedding)
	c.dirty = true
	return nil
}

// Flush writes the cache file if anything changed since the last flush.
func (c *FileCache) Flush() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.dirty {
		return nil
	}
	if err := c.save(); err != nil {
		return err
	}
	c.dirty = false
	return nil
}

// Len returns the number of cached embeddings.
func (c *FileCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// save must be called with mu held.
func (c *FileCache) save() error {
	stored := make([]storedEmbedding, 0, len(c.entries))
	for hash, emb := range c.entries {
		stored = append(stored, storedEmbedding{Hash: hash, Embedding: emb})
	}

	tmp := c.path + ".tmp-" + uuid.NewString()
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("failed to create cache file: %w", err)
	}
	if err := gob.NewEncoder(f).Encode(stored); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("failed to encode embeddings: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to close cache file: %w", err)
	}
	if err := os.Rename(tmp, c.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace cache file: %w", err)
	}
	return nil
}
