package facematch

import (
	"math"
	"testing"
)

func TestEuclideanDistance(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 0},
		{"3-4-5", []float32{0, 0}, []float32{3, 4}, 5},
		{"length mismatch", []float32{1}, []float32{1, 2}, math.Inf(1)},
		{"empty", nil, nil, math.Inf(1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := EuclideanDistance(tt.a, tt.b); got != tt.want {
				t.Errorf("EuclideanDistance() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNearest_ToleranceBoundary(t *testing.T) {
	// distances are exact in float32 along one axis
	known := []Candidate{{ID: "S001", Embedding: []float32{0, 0}}}
	const eps = 1e-3

	tests := []struct {
		name      string
		probe     []float32
		tolerance float64
		want      bool
	}{
		{"exactly at tolerance", []float32{0.5, 0}, 0.5, true},
		{"just inside", []float32{0.5 - eps, 0}, 0.5, true},
		{"just outside", []float32{0.5 + eps, 0}, 0.5, false},
		{"identical", []float32{0, 0}, 0.5, true},
		{"zero tolerance exact", []float32{0, 0}, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, ok := Nearest(tt.probe, known, tt.tolerance)
			if ok != tt.want {
				t.Fatalf("Nearest() matched = %v (distance %v), want %v", ok, m.Distance, tt.want)
			}
			if ok && m.ID != "S001" {
				t.Errorf("matched %q, want S001", m.ID)
			}
		})
	}
}

func TestNearest_PicksGlobalMinimum(t *testing.T) {
	candidates := []Candidate{
		{ID: "far", Embedding: []float32{0.45, 0}}, // within tolerance but not closest
		{ID: "near", Embedding: []float32{0.1, 0}},
		{ID: "other", Embedding: []float32{5, 5}},
	}

	m, ok := Nearest([]float32{0, 0}, candidates, DefaultTolerance)
	if !ok {
		t.Fatal("expected a match")
	}
	if m.ID != "near" || m.Position != 1 {
		t.Errorf("got %+v, want near at position 1", m)
	}
}

func TestNearest_TieKeepsFirst(t *testing.T) {
	candidates := []Candidate{
		{ID: "first", Embedding: []float32{0.2, 0}},
		{ID: "second", Embedding: []float32{-0.2, 0}},
	}

	m, ok := Nearest([]float32{0, 0}, candidates, DefaultTolerance)
	if !ok || m.ID != "first" {
		t.Errorf("got %+v (ok=%v), want first", m, ok)
	}
}

func TestNearest_NoCandidates(t *testing.T) {
	if _, ok := Nearest([]float32{0, 0}, nil, DefaultTolerance); ok {
		t.Error("empty candidate set must not match")
	}
}

func TestNearest_DimensionMismatchNeverMatches(t *testing.T) {
	candidates := []Candidate{{ID: "S001", Embedding: []float32{0, 0, 0}}}
	if _, ok := Nearest([]float32{0, 0}, candidates, math.MaxFloat64); ok {
		t.Error("embeddings of different length must not match")
	}
}
