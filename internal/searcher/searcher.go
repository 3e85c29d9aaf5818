package searcher

import "sync"

// Searcher is a reusable execution context for a single query. It owns all
// scratch memory required by greedy search, eliminating heap allocations in
// the steady state: buffers grow monotonically to the largest beam seen.
//
// Searcher is NOT thread-safe. It is owned exclusively by the goroutine
// issuing the query for the duration of that query.
type Searcher struct {
	// Visited tracks visited nodes during graph traversal.
	Visited *VisitedSet

	// Frontier is the bounded ordered candidate sequence of the beam.
	Frontier *Frontier

	// Heap is a reusable bounded heap for top-k collection outside the
	// beam path (brute-force rerank, ground-truth tooling).
	Heap *CandidateHeap

	// Results is a reusable buffer for the final (id, distance) pairs.
	Results []Candidate

	// OpsPerformed counts distance computations during the last query.
	OpsPerformed int
}

// NewSearcher creates a searcher with the given initial capacities.
func NewSearcher(visitedCap, beamCap int) *Searcher {
	return &Searcher{
		Visited:  NewVisitedSet(visitedCap),
		Frontier: NewFrontier(beamCap),
		Heap:     NewCandidateHeap(beamCap),
		Results:  make([]Candidate, 0, beamCap),
	}
}

// Reset clears the searcher state for reuse.
func (s *Searcher) Reset() {
	s.Visited.Reset()
	s.Frontier.Reset()
	s.Heap.Reset()
	s.Results = s.Results[:0]
	s.OpsPerformed = 0
}

// Prepare sizes the scratch for a graph of n nodes and a beam of width w.
// Growth is monotonic; repeated queries at the same width allocate nothing.
func (s *Searcher) Prepare(n, w int) {
	s.Visited.EnsureCapacity(n)
	s.Frontier.EnsureCapacity(w)
}

var pool = sync.Pool{
	New: func() any {
		return NewSearcher(1024, 128)
	},
}

// Get returns a Searcher from the package pool.
func Get() *Searcher {
	s := pool.Get().(*Searcher)
	s.Reset()
	return s
}

// Put returns a Searcher to the package pool.
func Put(s *Searcher) {
	pool.Put(s)
}
