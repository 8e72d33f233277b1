// Package identity holds the in-memory index of known face embeddings.
package identity

import (
	"slices"
	"sort"
	"sync"

	"github.com/coder/hnsw"

	"github.com/kozaktomas/face-attendance/internal/facematch"
)

// Backend selects how Lookup finds candidates.
type Backend string

const (
	// Linear scans every entry.
	Linear Backend = "linear"
	// HNSW narrows the scan to the approximate nearest neighbours and
	// re-ranks them by exact distance.
	HNSW Backend = "hnsw"
)

const (
	hnswMaxNeighbors     = 16
	defaultHNSWCandidate = 16
)

// Entry is one known embedding. An identity may own several entries.
type Entry struct {
	ID        string
	Embedding []float32
}

type node struct {
	Entry
	seq uint64
}

// Index maps identity ids to embeddings. All methods are safe for
// concurrent use and mutually exclusive; Lookup holds the lock for the
// whole scan.
type Index struct {
	mu         sync.Mutex
	tolerance  float64
	backend    Backend
	candidates int

	nodes   []node // insertion order
	nextSeq uint64

	graph *hnsw.Graph[uint64]
	dims  int
}

// Option configures an Index.
type Option func(*Index)

// WithTolerance overrides facematch.DefaultTolerance.
func WithTolerance(tolerance float64) Option {
	return func(idx *Index) { idx.tolerance = tolerance }
}

// WithHNSW enables the HNSW candidate generator returning up to k
// candidates per lookup.
func WithHNSW(k int) Option {
	return func(idx *Index) {
		idx.backend = HNSW
		if k > 0 {
			idx.candidates = k
		}
	}
}

// NewIndex creates an empty index.
func NewIndex(opts ...Option) *Index {
	idx := &Index{
		tolerance:  facematch.DefaultTolerance,
		backend:    Linear,
		candidates: defaultHNSWCandidate,
	}
	for _, opt := range opts {
		opt(idx)
	}
	return idx
}

// Backend returns the lookup strategy in use.
func (idx *Index) Backend() Backend {
	return idx.backend
}

// Tolerance returns the match tolerance.
func (idx *Index) Tolerance() float64 {
	return idx.tolerance
}

// Insert adds an embedding for id. Duplicate ids are kept as separate
// entries.
func (idx *Index) Insert(id string, embedding []float32) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.insertLocked(id, embedding)
}

func (idx *Index) insertLocked(id string, embedding []float32) {
	n := node{Entry: Entry{ID: id, Embedding: slices.Clone(embedding)}, seq: idx.nextSeq}
	idx.nextSeq++
	idx.nodes = append(idx.nodes, n)
	idx.addToGraph(n)
}

// Remove drops every entry of id and returns how many were removed.
func (idx *Index) Remove(id string) int {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	before := len(idx.nodes)
	idx.nodes = slices.DeleteFunc(idx.nodes, func(n node) bool { return n.ID == id })
	removed := before - len(idx.nodes)
	if removed > 0 {
		idx.rebuildGraph()
	}
	return removed
}

// Replace swaps the whole content of the index.
func (idx *Index) Replace(entries []Entry) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	idx.nodes = make([]node, 0, len(entries))
	idx.graph = nil
	idx.dims = 0
	for _, e := range entries {
		idx.insertLocked(e.ID, e.Embedding)
	}
}

// Lookup returns the closest known identity within tolerance.
func (idx *Index) Lookup(probe []float32) (facematch.Match, bool) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if idx.graph != nil && idx.graph.Len() > 0 && len(probe) == idx.dims {
		return idx.lookupGraph(probe)
	}
	return facematch.Nearest(probe, idx.candidatesLocked(), idx.tolerance)
}

// Len returns the number of entries.
func (idx *Index) Len() int {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	return len(idx.nodes)
}

// IDs returns the distinct identity ids in the index, sorted.
func (idx *Index) IDs() []string {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	seen := make(map[string]bool, len(idx.nodes))
	ids := make([]string, 0, len(idx.nodes))
	for _, n := range idx.nodes {
		if !seen[n.ID] {
			seen[n.ID] = true
			ids = append(ids, n.ID)
		}
	}
	sort.Strings(ids)
	return ids
}

// Contains reports whether id has at least one entry.
func (idx *Index) Contains(id string) bool {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	return slices.ContainsFunc(idx.nodes, func(n node) bool { return n.ID == id })
}

func (idx *Index) candidatesLocked() []facematch.Candidate {
	candidates := make([]facematch.Candidate, len(idx.nodes))
	for i, n := range idx.nodes {
		candidates[i] = facematch.Candidate{ID: n.ID, Embedding: n.Embedding}
	}
	return candidates
}
