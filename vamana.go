// Package vamana implements an immutable in-memory approximate
// nearest-neighbor index based on the Vamana graph algorithm (DiskANN).
//
// An index is built once over a fixed corpus, optionally persisted in a
// byte-exact binary format, and then serves k-nearest-neighbor queries via
// beam-bounded greedy graph search. Queries are lock-free and any number of
// goroutines may search concurrently, each with its own Searcher scratch.
package vamana

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hupe1980/vamana/distance"
	"github.com/hupe1980/vamana/internal/graph"
	"github.com/hupe1980/vamana/internal/searcher"
	"github.com/hupe1980/vamana/internal/vectorstore"
)

// Result is one (id, distance) pair of a query, ascending by distance.
// The distance is the ranking quantity of the configured metric: squared L2
// for MetricL2, negated dot product for MetricIP, 1-dot for MetricCosine.
type Result struct {
	ID       uint32
	Distance float32
}

// Metadata describes a built index.
type Metadata struct {
	Count  int
	Dim    int
	R      int
	LBuild int
	Alpha  float32
	Metric distance.Metric
	Medoid uint32
	Seed   uint64
}

// Index is an immutable Vamana graph over a fixed vector corpus.
type Index struct {
	store    *vectorstore.Store
	graph    *graph.Graph
	meta     Metadata
	distFunc distance.Func
	opts     options
}

// Meta returns the index metadata.
func (ix *Index) Meta() Metadata {
	return ix.meta
}

// Len returns the number of indexed vectors.
func (ix *Index) Len() int {
	return ix.meta.Count
}

// Dimension returns the vector dimension.
func (ix *Index) Dimension() int {
	return ix.meta.Dim
}

// Vector returns the stored vector for id. The slice aliases index memory
// and must not be mutated.
func (ix *Index) Vector(id uint32) []float32 {
	return ix.store.Row(id)
}

// Searcher is the reusable per-query scratch structure. It is owned
// exclusively by one goroutine for the duration of a query and grows
// monotonically: after the first query at a given beam width the hot path
// performs no allocations.
type Searcher struct {
	s       *searcher.Searcher
	results []Result
}

// NewSearcher creates a scratch structure for repeated queries.
func NewSearcher() *Searcher {
	return &Searcher{s: searcher.NewSearcher(1024, DefaultBeamWidth)}
}

// Ops returns the number of distance computations of the last query.
func (s *Searcher) Ops() int {
	return s.s.OpsPerformed
}

// Search returns the min(k, N) nearest neighbors of query, ascending by
// distance. The beam width is max(k, DefaultBeamWidth). Scratch is taken
// from an internal pool.
func (ix *Index) Search(query []float32, k int) ([]Result, error) {
	w := k
	if w < DefaultBeamWidth {
		w = DefaultBeamWidth
	}
	return ix.SearchWithBeam(query, k, w)
}

// SearchWithBeam is Search with a caller-chosen beam width W >= k.
// Larger W trades latency for recall.
func (ix *Index) SearchWithBeam(query []float32, k, w int) ([]Result, error) {
	s := searcher.Get()
	defer searcher.Put(s)

	return ix.searchInto(query, k, w, s, nil)
}

// SearchWithSearcher is SearchWithBeam using caller-owned scratch. The
// returned slice aliases the scratch result buffer and is valid until the
// next query on the same Searcher.
func (ix *Index) SearchWithSearcher(query []float32, k, w int, scratch *Searcher) ([]Result, error) {
	if scratch == nil {
		return ix.SearchWithBeam(query, k, w)
	}
	return ix.searchInto(query, k, w, scratch.s, scratch)
}

// searchInto runs the query against caller scratch. Validation happens
// before the scratch is touched so a failed call leaves it unchanged.
func (ix *Index) searchInto(query []float32, k, w int, s *searcher.Searcher, owner *Searcher) ([]Result, error) {
	start := time.Now()

	if len(query) != ix.meta.Dim {
		err := &ErrDimensionMismatch{Expected: ix.meta.Dim, Actual: len(query)}
		ix.opts.metrics.RecordSearch(k, 0, time.Since(start), err)
		ix.opts.logger.LogSearch(context.Background(), k, w, 0, err)
		return nil, err
	}
	if k < 0 {
		err := fmt.Errorf("%w: k must be non-negative, got %d", ErrInvalidParameter, k)
		ix.opts.metrics.RecordSearch(k, 0, time.Since(start), err)
		return nil, err
	}
	if w < k {
		err := fmt.Errorf("%w: beam width %d is smaller than k %d", ErrInvalidParameter, w, k)
		ix.opts.metrics.RecordSearch(k, 0, time.Since(start), err)
		return nil, err
	}
	if k == 0 || ix.meta.Count == 0 {
		return []Result{}, nil
	}
	requested := k
	if k > ix.meta.Count {
		k = ix.meta.Count
	}

	s.Reset()
	s.Prepare(ix.meta.Count, w)

	greedySearch(ix.store, ix.graph, ix.distFunc, query, ix.graph.Medoid(), w, s)

	if k > s.Frontier.Len() {
		k = s.Frontier.Len()
	}

	var results []Result
	if owner != nil {
		// Caller-owned scratch: reuse its result buffer, zero allocations
		// once it has grown to k.
		results = owner.results[:0]
	} else {
		results = make([]Result, 0, k)
	}
	for i := 0; i < k; i++ {
		c := s.Frontier.At(i)
		results = append(results, Result{ID: c.ID, Distance: c.Distance})
	}
	if owner != nil {
		owner.results = results
	}

	ix.opts.metrics.RecordSearch(requested, s.OpsPerformed, time.Since(start), nil)
	// The Enabled guard keeps the hot path free of slog argument boxing.
	if ix.opts.logger.Enabled(context.Background(), slog.LevelDebug) {
		ix.opts.logger.LogSearch(context.Background(), requested, w, len(results), nil)
	}
	return results, nil
}

// greedySearch is the best-first traversal shared by the query runtime and
// the builder: insert entry, repeatedly expand the closest unexpanded
// candidate, truncate the frontier to l after each expansion.
//
// The traversal order depends only on (graph, query, entry, l, distance
// function); ties resolve to the smaller id.
func greedySearch(vs *vectorstore.Store, g *graph.Graph, distFn distance.Func, query []float32, entry uint32, l int, s *searcher.Searcher) {
	if l < 1 {
		l = 1
	}

	s.Frontier.Reset()
	s.Visited.Reset()

	s.Visited.MarkVisited(entry)
	s.Frontier.Insert(entry, distFn(query, vs.Row(entry)))
	s.OpsPerformed++

	for {
		c, ok := s.Frontier.PopClosestUnexpanded()
		if !ok {
			break
		}

		for _, w := range g.Neighbors(c.ID) {
			if s.Visited.MarkVisited(w) {
				continue
			}
			s.Frontier.Insert(w, distFn(query, vs.Row(w)))
			s.OpsPerformed++
		}

		s.Frontier.Truncate(l)
	}
}

// Stats summarizes the built graph.
type Stats struct {
	Count             int
	Dim               int
	R                 int
	MaxDegree         int
	AvgDegree         float64
	ReachableFraction float64
}

// Stats walks the graph and reports degree and connectivity figures.
// The reachable fraction is directed BFS coverage from the medoid.
func (ix *Index) Stats() Stats {
	maxDeg, avgDeg := ix.graph.DegreeStats()

	reachable := 0.0
	if ix.meta.Count > 0 {
		reachable = float64(ix.graph.ReachableFromMedoid()) / float64(ix.meta.Count)
	}

	return Stats{
		Count:             ix.meta.Count,
		Dim:               ix.meta.Dim,
		R:                 ix.meta.R,
		MaxDegree:         maxDeg,
		AvgDegree:         avgDeg,
		ReachableFraction: reachable,
	}
}
