// Package testutil provides deterministic corpora and exact ground truth
// for tests and benchmarks.
package testutil

import (
	"math/rand"
	"sync"

	"github.com/hupe1980/vamana/distance"
	"github.com/hupe1980/vamana/internal/searcher"
)

// RNG encapsulates a seeded random number generator. It is thread-safe.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Reset resets the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand.Seed(r.seed)
}

// Intn returns a non-negative pseudo-random number in [0,n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

// NormFloat32 returns a normally distributed float32.
func (r *RNG) NormFloat32() float32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return float32(r.rand.NormFloat64())
}

// GaussianVectors returns n vectors of dimension d with components drawn
// from the standard normal distribution.
func (r *RNG) GaussianVectors(n, d int) [][]float32 {
	rows := make([][]float32, n)
	for i := range rows {
		row := make([]float32, d)
		for j := range row {
			row[j] = r.NormFloat32()
		}
		rows[i] = row
	}
	return rows
}

// UnitVectors returns n unit-norm vectors of dimension d. Zero-norm draws
// are redrawn.
func (r *RNG) UnitVectors(n, d int) [][]float32 {
	rows := r.GaussianVectors(n, d)
	for i := range rows {
		for !distance.NormalizeL2InPlace(rows[i]) {
			rows[i] = r.GaussianVectors(1, d)[0]
		}
	}
	return rows
}

// SearchResult is one exact nearest neighbor.
type SearchResult struct {
	ID       uint32
	Distance float32
}

// BruteForce returns the exact k nearest neighbors of query under the given
// metric, ascending by distance with ties on the smaller id.
func BruteForce(rows [][]float32, query []float32, k int, metric distance.Metric) []SearchResult {
	distFn, err := distance.Provider(metric)
	if err != nil {
		panic(err)
	}

	if k > len(rows) {
		k = len(rows)
	}

	h := searcher.NewCandidateHeap(k)
	for i, row := range rows {
		h.PushBounded(searcher.Candidate{ID: uint32(i), Distance: distFn(query, row)}, k)
	}

	out := make([]SearchResult, 0, k)
	for _, c := range h.Drain(nil) {
		out = append(out, SearchResult{ID: c.ID, Distance: c.Distance})
	}
	return out
}

// Recall returns |got ∩ want| / |want| over the result id sets.
func Recall(got []uint32, want []SearchResult) float64 {
	if len(want) == 0 {
		return 1
	}
	wantSet := make(map[uint32]struct{}, len(want))
	for _, w := range want {
		wantSet[w.ID] = struct{}{}
	}
	hits := 0
	for _, id := range got {
		if _, ok := wantSet[id]; ok {
			hits++
		}
	}
	return float64(hits) / float64(len(want))
}
