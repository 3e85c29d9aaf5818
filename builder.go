package vamana

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/hupe1980/vamana/distance"
	"github.com/hupe1980/vamana/internal/graph"
	"github.com/hupe1980/vamana/internal/searcher"
	"github.com/hupe1980/vamana/internal/vectorstore"
	"github.com/hupe1980/vamana/internal/workerpool"
)

// medoidSampleSize bounds the random sample used for medoid selection.
const medoidSampleSize = 1024

// Builder constructs a Vamana index from vectors. Vectors are accumulated
// with Add/AddBatch and frozen into an Index by Build.
type Builder struct {
	buildOpts *BuildOptions
	opts      options
	distFunc  distance.Func

	mu   sync.Mutex
	dim  int
	rows [][]float32

	progress rate.Sometimes
}

// NewBuilder creates a builder. opts may be nil for defaults.
func NewBuilder(opts *BuildOptions, optFns ...Option) (*Builder, error) {
	if opts == nil {
		opts = DefaultBuildOptions()
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	distFunc, err := distance.Provider(opts.Metric)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidParameter, err)
	}

	return &Builder{
		buildOpts: opts,
		opts:      applyOptions(optFns),
		distFunc:  distFunc,
		progress:  rate.Sometimes{Interval: 5 * time.Second},
	}, nil
}

// Add adds a single vector. The dimension is fixed by the first vector;
// later vectors must match it. Non-finite components are rejected here,
// at build time.
func (b *Builder) Add(vec []float32) (uint32, error) {
	for _, v := range vec {
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			return 0, fmt.Errorf("%w: non-finite vector component", ErrInvalidParameter)
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.rows) == 0 {
		if len(vec) == 0 {
			return 0, fmt.Errorf("%w: empty vector", ErrInvalidParameter)
		}
		b.dim = len(vec)
	} else if len(vec) != b.dim {
		return 0, &ErrDimensionMismatch{Expected: b.dim, Actual: len(vec)}
	}

	id := uint32(len(b.rows))
	row := make([]float32, len(vec))
	copy(row, vec)

	if b.buildOpts.Metric == distance.MetricCosine {
		if !distance.NormalizeL2InPlace(row) {
			return 0, fmt.Errorf("%w: zero-norm vector under cosine metric", ErrInvalidParameter)
		}
	}

	b.rows = append(b.rows, row)
	return id, nil
}

// AddBatch adds multiple vectors, stopping at the first failure.
func (b *Builder) AddBatch(vectors [][]float32) ([]uint32, error) {
	ids := make([]uint32, 0, len(vectors))
	for _, vec := range vectors {
		id, err := b.Add(vec)
		if err != nil {
			return ids, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// Build runs the two-pass Vamana construction and returns the frozen index.
// The builder must not be reused afterwards.
func (b *Builder) Build(ctx context.Context) (*Index, error) {
	start := time.Now()

	ix, err := b.build(ctx)

	b.opts.metrics.RecordBuild(len(b.rows), time.Since(start), err)
	b.opts.logger.LogBuild(ctx, len(b.rows), b.dim, time.Since(start), err)
	return ix, err
}

func (b *Builder) build(ctx context.Context) (*Index, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := len(b.rows)
	if n == 0 {
		return nil, ErrEmptyCorpus
	}

	store, err := vectorstore.FromRows(b.rows)
	if err != nil {
		return nil, translateError(err)
	}

	g, err := graph.New(n, b.buildOpts.R)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidParameter, err)
	}

	rng := rand.New(rand.NewSource(int64(b.buildOpts.Seed)))

	g.SetMedoid(selectMedoid(store, b.distFunc, rng))

	bld := &graphBuilder{
		store:    store,
		graph:    g,
		distFunc: b.distFunc,
		lBuild:   b.buildOpts.LBuild,
		r:        b.buildOpts.R,
	}

	// Pass 1 builds a coarse navigable skeleton cheaply; pass 2 refines it
	// with the configured diversity factor.
	for pass, alpha := range []float32{1.0, b.buildOpts.Alpha} {
		order := rng.Perm(n)
		if err := b.runPass(ctx, bld, order, alpha, pass+1); err != nil {
			return nil, err
		}
	}

	return &Index{
		store:    store,
		graph:    g,
		distFunc: b.distFunc,
		opts:     b.opts,
		meta: Metadata{
			Count:  n,
			Dim:    store.Dimension(),
			R:      b.buildOpts.R,
			LBuild: b.buildOpts.LBuild,
			Alpha:  b.buildOpts.Alpha,
			Metric: b.buildOpts.Metric,
			Medoid: g.Medoid(),
			Seed:   b.buildOpts.Seed,
		},
	}, nil
}

// runPass inserts every node in the given order, serially or on a worker
// pool. Serial passes are bit-exact reproducible; parallel passes are not.
func (b *Builder) runPass(ctx context.Context, bld *graphBuilder, order []int, alpha float32, pass int) error {
	if b.buildOpts.NumWorkers <= 1 {
		s := searcher.Get()
		defer searcher.Put(s)
		s.Prepare(bld.graph.N(), bld.lBuild)

		for i, v := range order {
			if err := ctx.Err(); err != nil {
				return err
			}
			bld.insert(uint32(v), alpha, s)
			b.logProgress(ctx, pass, i+1, len(order))
		}
		return nil
	}

	pool := workerpool.New(b.buildOpts.NumWorkers)
	defer pool.Close()

	var wg sync.WaitGroup
	for _, v := range order {
		v := uint32(v)
		wg.Add(1)
		err := pool.Submit(ctx, func() {
			defer wg.Done()
			s := searcher.Get()
			defer searcher.Put(s)
			s.Prepare(bld.graph.N(), bld.lBuild)
			bld.insert(v, alpha, s)
		})
		if err != nil {
			wg.Done()
			wg.Wait()
			return err
		}
	}
	wg.Wait()
	return ctx.Err()
}

func (b *Builder) logProgress(ctx context.Context, pass, done, total int) {
	b.progress.Do(func() {
		b.opts.logger.DebugContext(ctx, "build progress",
			"pass", pass,
			"inserted", done,
			"total", total,
		)
	})
}

// selectMedoid returns the node whose summed distance to a uniform random
// sample of min(N, 1024) nodes is minimal. Deterministic given the PRNG
// state; cost ties resolve to the smaller id.
func selectMedoid(store *vectorstore.Store, distFn distance.Func, rng *rand.Rand) uint32 {
	n := store.Len()
	sampleSize := n
	if sampleSize > medoidSampleSize {
		sampleSize = medoidSampleSize
	}

	sample := rng.Perm(n)[:sampleSize]

	best := uint32(0)
	bestCost := math.Inf(1)
	for v := 0; v < n; v++ {
		row := store.Row(uint32(v))
		cost := 0.0
		for _, s := range sample {
			cost += float64(distFn(row, store.Row(uint32(s))))
		}
		if cost < bestCost {
			bestCost = cost
			best = uint32(v)
		}
	}
	return best
}

// graphBuilder holds the shared state of one build.
type graphBuilder struct {
	store    *vectorstore.Store
	graph    *graph.Graph
	distFunc distance.Func
	lBuild   int
	r        int
}

// insert wires node v into the graph: greedy candidate search from the
// medoid, RobustPrune, then back-edges with immediate overflow repair.
// Adjacency locks are taken one node at a time, never nested.
func (gb *graphBuilder) insert(v uint32, alpha float32, s *searcher.Searcher) {
	query := gb.store.Row(v)

	greedySearch(gb.store, gb.graph, gb.distFunc, query, gb.graph.Medoid(), gb.lBuild, s)

	// Candidate set: the greedy frontier plus the current neighbors of v.
	// robustPrune dedupes, so overlap between the two is harmless.
	cands := s.Frontier.AppendTo(s.Results[:0])
	for _, w := range gb.graph.Neighbors(v) {
		cands = append(cands, searcher.Candidate{
			ID:       w,
			Distance: gb.distFunc(query, gb.store.Row(w)),
		})
		s.OpsPerformed++
	}
	s.Results = cands

	pruned := gb.robustPrune(v, cands, alpha)

	gb.graph.Lock(v)
	gb.graph.SetNeighbors(v, pruned)
	gb.graph.Unlock(v)

	for _, w := range pruned {
		gb.addBackEdge(w, v, alpha)
	}
}

// addBackEdge adds v to adj(w); when adj(w) is full, w is re-pruned against
// its current neighbors augmented by v.
func (gb *graphBuilder) addBackEdge(w, v uint32, alpha float32) {
	gb.graph.Lock(w)
	defer gb.graph.Unlock(w)

	if !gb.graph.AddEdge(w, v) {
		return
	}

	wRow := gb.store.Row(w)
	cands := make([]searcher.Candidate, 0, gb.graph.Degree(w)+1)
	for _, u := range gb.graph.Neighbors(w) {
		cands = append(cands, searcher.Candidate{
			ID:       u,
			Distance: gb.distFunc(wRow, gb.store.Row(u)),
		})
	}
	cands = append(cands, searcher.Candidate{
		ID:       v,
		Distance: gb.distFunc(wRow, gb.store.Row(v)),
	})

	gb.graph.SetNeighbors(w, gb.robustPrune(w, cands, alpha))
}

// robustPrune selects up to R neighbors for p from cands (distances to p
// already computed), enforcing the alpha diversity rule: once c is chosen,
// every remaining c' with alpha*d(c, c') <= d(p, c') is discarded.
func (gb *graphBuilder) robustPrune(p uint32, cands []searcher.Candidate, alpha float32) []uint32 {
	if len(cands) == 0 {
		return nil
	}

	sorted := make([]searcher.Candidate, 0, len(cands))
	seen := make(map[uint32]struct{}, len(cands))
	for _, c := range cands {
		if c.ID == p {
			continue
		}
		if _, ok := seen[c.ID]; ok {
			continue
		}
		seen[c.ID] = struct{}{}
		sorted = append(sorted, c)
	}
	sort.Slice(sorted, func(i, j int) bool {
		return searcher.Better(sorted[i], sorted[j])
	})

	alive := make([]bool, len(sorted))
	for i := range alive {
		alive[i] = true
	}

	result := make([]uint32, 0, gb.r)
	for i := 0; i < len(sorted) && len(result) < gb.r; i++ {
		if !alive[i] {
			continue
		}
		c := sorted[i]
		result = append(result, c.ID)

		cRow := gb.store.Row(c.ID)
		for j := i + 1; j < len(sorted); j++ {
			if !alive[j] {
				continue
			}
			if alpha*gb.distFunc(cRow, gb.store.Row(sorted[j].ID)) <= sorted[j].Distance {
				alive[j] = false
			}
		}
	}

	return result
}
