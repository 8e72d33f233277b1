package identity

import (
	"log"

	"github.com/coder/hnsw"

	"github.com/kozaktomas/face-attendance/internal/facematch"
)

func newGraph() *hnsw.Graph[uint64] {
	g := hnsw.NewGraph[uint64]()
	g.M = hnswMaxNeighbors
	g.Ml = 1.0 / float64(hnswMaxNeighbors)
	g.Distance = hnsw.EuclideanDistance
	return g
}

// addToGraph must be called with mu held. Entries whose dimension differs
// from the graph stay out of it; they can never match a probe of the
// graph's dimension.
func (idx *Index) addToGraph(n node) {
	if idx.backend != HNSW || len(n.Embedding) == 0 {
		return
	}
	if idx.graph == nil {
		idx.graph = newGraph()
		idx.dims = len(n.Embedding)
	}
	if len(n.Embedding) != idx.dims {
		log.Printf("warning: embedding for %s has %d dimensions, index uses %d", n.ID, len(n.Embedding), idx.dims)
		return
	}
	idx.graph.Add(hnsw.MakeNode(n.seq, n.Embedding))
}

// rebuildGraph must be called with mu held.
func (idx *Index) rebuildGraph() {
	idx.graph = nil
	idx.dims = 0
	for _, n := range idx.nodes {
		idx.addToGraph(n)
	}
}

// lookupGraph must be called with mu held.
func (idx *Index) lookupGraph(probe []float32) (facematch.Match, bool) {
	neighbors := idx.graph.Search(probe, idx.candidates)
	if len(neighbors) == 0 {
		return facematch.Nearest(probe, nil, idx.tolerance)
	}

	found := make(map[uint64]bool, len(neighbors))
	for _, n := range neighbors {
		found[n.Key] = true
	}

	// candidates in insertion order so ties resolve like the linear scan
	positions := make([]int, 0, len(neighbors))
	for i, n := range idx.nodes {
		if found[n.seq] {
			positions = append(positions, i)
		}
	}

	candidates := make([]facematch.Candidate, len(positions))
	for i, p := range positions {
		candidates[i] = facematch.Candidate{ID: idx.nodes[p].ID, Embedding: idx.nodes[p].Embedding}
	}

	m, ok := facematch.Nearest(probe, candidates, idx.tolerance)
	if m.Position >= 0 {
		m.Position = positions[m.Position]
	}
	return m, ok
}
