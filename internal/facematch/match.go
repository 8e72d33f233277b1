// Package facematch decides which known identity, if any, a probe face
// embedding belongs to.
package facematch

import "math"

// DefaultTolerance is the largest Euclidean distance still accepted as the
// same person.
const DefaultTolerance = 0.5

// Candidate is a known identity's embedding.
type Candidate struct {
	ID        string
	Embedding []float32
}

// Match is the closest candidate to a probe.
type Match struct {
	ID       string
	Distance float64
	Position int // index of the candidate in the scanned slice
}

// EuclideanDistance returns the L2 distance between two embeddings.
// Embeddings of different length never match and yield +Inf.
func EuclideanDistance(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return math.Inf(1)
	}
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}

// Nearest scans every candidate and returns the globally closest one.
// It reports a match only when that distance is within tolerance
// (inclusive). Ties keep the earliest candidate.
func Nearest(probe []float32, candidates []Candidate, tolerance float64) (Match, bool) {
	best := Match{Position: -1, Distance: math.Inf(1)}
	for i, c := range candidates {
		if d := EuclideanDistance(probe, c.Embedding); d < best.Distance {
			best = Match{ID: c.ID, Distance: d, Position: i}
		}
	}
	if best.Position < 0 || best.Distance > tolerance {
		return best, false
	}
	return best, true
}
