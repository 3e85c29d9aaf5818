package vamana

import (
	"context"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/vamana/distance"
	"github.com/hupe1980/vamana/testutil"
)

func buildGaussian(t *testing.T, rng *testutil.RNG, n, d int, mutate func(*BuildOptions)) (*Index, [][]float32) {
	t.Helper()

	rows := rng.GaussianVectors(n, d)
	opts := DefaultBuildOptions()
	opts.R = 32
	opts.LBuild = 64
	if mutate != nil {
		mutate(opts)
	}

	b, err := NewBuilder(opts)
	require.NoError(t, err)
	_, err = b.AddBatch(rows)
	require.NoError(t, err)
	ix, err := b.Build(context.Background())
	require.NoError(t, err)
	return ix, rows
}

func TestSearchResultShape(t *testing.T) {
	rng := testutil.NewRNG(21)
	ix, rows := buildGaussian(t, rng, 500, 16, nil)

	q := rows[7]
	for _, k := range []int{1, 3, 10, 100, 500, 1000} {
		results, err := ix.Search(q, k)
		require.NoError(t, err)

		wantLen := k
		if wantLen > len(rows) {
			wantLen = len(rows)
		}
		assert.Len(t, results, wantLen, "k=%d", k)

		assert.True(t, sort.SliceIsSorted(results, func(i, j int) bool {
			if results[i].Distance != results[j].Distance {
				return results[i].Distance < results[j].Distance
			}
			return results[i].ID < results[j].ID
		}), "ascending distance order, k=%d", k)
	}
}

func TestSearchKZero(t *testing.T) {
	rng := testutil.NewRNG(22)
	ix, rows := buildGaussian(t, rng, 100, 8, nil)

	results, err := ix.Search(rows[0], 0)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearchNegativeK(t *testing.T) {
	rng := testutil.NewRNG(23)
	ix, rows := buildGaussian(t, rng, 100, 8, nil)

	_, err := ix.Search(rows[0], -1)
	require.ErrorIs(t, err, ErrInvalidParameter)
}

func TestSearchBeamSmallerThanK(t *testing.T) {
	rng := testutil.NewRNG(24)
	ix, rows := buildGaussian(t, rng, 100, 8, nil)

	_, err := ix.SearchWithBeam(rows[0], 10, 5)
	require.ErrorIs(t, err, ErrInvalidParameter)
}

func TestSearchDimensionMismatchLeavesScratchUnchanged(t *testing.T) {
	rng := testutil.NewRNG(25)
	ix, rows := buildGaussian(t, rng, 100, 8, nil)

	scratch := NewSearcher()

	// Warm the scratch with a valid query.
	_, err := ix.SearchWithSearcher(rows[1], 5, 16, scratch)
	require.NoError(t, err)
	opsBefore := scratch.Ops()
	require.Positive(t, opsBefore)

	_, err = ix.SearchWithSearcher([]float32{1, 2, 3}, 5, 16, scratch)
	var dm *ErrDimensionMismatch
	require.ErrorAs(t, err, &dm)
	assert.Equal(t, 8, dm.Expected)
	assert.Equal(t, 3, dm.Actual)

	// The failed call happened before any scratch mutation.
	assert.Equal(t, opsBefore, scratch.Ops())
}

func TestSearchDeterministic(t *testing.T) {
	rng := testutil.NewRNG(26)
	ix, rows := buildGaussian(t, rng, 800, 16, nil)

	q := rows[13]
	first, err := ix.SearchWithBeam(q, 10, 32)
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		again, err := ix.SearchWithBeam(q, 10, 32)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestSearchConcurrent(t *testing.T) {
	rng := testutil.NewRNG(27)
	ix, rows := buildGaussian(t, rng, 600, 16, nil)

	q := rows[5]
	want, err := ix.SearchWithBeam(q, 10, 32)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			scratch := NewSearcher()
			for i := 0; i < 50; i++ {
				got, err := ix.SearchWithSearcher(q, 10, 32, scratch)
				assert.NoError(t, err)
				assert.Equal(t, want, got)
			}
		}()
	}
	wg.Wait()
}

func TestSearchWithSearcherZeroAllocSteadyState(t *testing.T) {
	rng := testutil.NewRNG(28)
	ix, rows := buildGaussian(t, rng, 400, 16, nil)

	scratch := NewSearcher()
	q := rows[3]

	// First call grows the scratch.
	_, err := ix.SearchWithSearcher(q, 10, 64, scratch)
	require.NoError(t, err)

	allocs := testing.AllocsPerRun(20, func() {
		_, _ = ix.SearchWithSearcher(q, 10, 64, scratch)
	})
	assert.Zero(t, allocs, "steady-state hot path must not allocate")
}

func TestBeamMonotonicRecall(t *testing.T) {
	rng := testutil.NewRNG(29)
	ix, rows := buildGaussian(t, rng, 2000, 32, nil)

	queries := testutil.NewRNG(30).GaussianVectors(20, 32)

	recallAt := func(w int) float64 {
		total := 0.0
		for _, q := range queries {
			want := testutil.BruteForce(rows, q, 10, distance.MetricL2)
			got, err := ix.SearchWithBeam(q, 10, w)
			require.NoError(t, err)
			ids := make([]uint32, len(got))
			for i, r := range got {
				ids[i] = r.ID
			}
			total += testutil.Recall(ids, want)
		}
		return total / float64(len(queries))
	}

	beams := []int{16, 32, 64, 128}
	prev := 0.0
	for _, w := range beams {
		r := recallAt(w)
		assert.GreaterOrEqual(t, r+0.02, prev, "beam %d", w)
		prev = r
	}
	assert.GreaterOrEqual(t, recallAt(128), recallAt(16))
}

func TestCosineTopOneMatchesExhaustiveDot(t *testing.T) {
	rng := testutil.NewRNG(31)
	rows := rng.UnitVectors(1000, 64)

	opts := DefaultBuildOptions()
	opts.Metric = distance.MetricCosine
	opts.R = 32
	opts.LBuild = 64

	b, err := NewBuilder(opts)
	require.NoError(t, err)
	_, err = b.AddBatch(rows)
	require.NoError(t, err)
	ix, err := b.Build(context.Background())
	require.NoError(t, err)

	queries := testutil.NewRNG(32).UnitVectors(200, 64)
	matches := 0
	for _, q := range queries {
		want := testutil.BruteForce(rows, q, 1, distance.MetricCosine)
		got, err := ix.SearchWithBeam(q, 1, 64)
		require.NoError(t, err)
		require.Len(t, got, 1)
		if got[0].ID == want[0].ID {
			matches++
		}
	}
	// Graph search is approximate; near-exhaustive agreement is expected
	// at this scale.
	assert.GreaterOrEqual(t, matches, 190)
}

func TestConnectivityFromMedoid(t *testing.T) {
	rng := testutil.NewRNG(33)
	ix, _ := buildGaussian(t, rng, 1024, 16, nil)

	stats := ix.Stats()
	assert.GreaterOrEqual(t, stats.ReachableFraction, 0.999)
	assert.LessOrEqual(t, stats.MaxDegree, 32)
	assert.Positive(t, stats.AvgDegree)
}

func TestIPMetricOrdering(t *testing.T) {
	rng := testutil.NewRNG(34)
	rows := rng.GaussianVectors(500, 16)

	opts := DefaultBuildOptions()
	opts.Metric = distance.MetricIP
	opts.R = 24
	opts.LBuild = 48

	b, err := NewBuilder(opts)
	require.NoError(t, err)
	_, err = b.AddBatch(rows)
	require.NoError(t, err)
	ix, err := b.Build(context.Background())
	require.NoError(t, err)

	q := testutil.NewRNG(35).GaussianVectors(1, 16)[0]
	got, err := ix.SearchWithBeam(q, 10, 64)
	require.NoError(t, err)
	require.Len(t, got, 10)

	// Distances are negated dot products, ascending.
	for i := 1; i < len(got); i++ {
		assert.LessOrEqual(t, got[i-1].Distance, got[i].Distance)
	}

	want := testutil.BruteForce(rows, q, 10, distance.MetricIP)
	ids := make([]uint32, len(got))
	for i, r := range got {
		ids[i] = r.ID
	}
	assert.GreaterOrEqual(t, testutil.Recall(ids, want), 0.7)
}

func TestSearcherOpsCount(t *testing.T) {
	rng := testutil.NewRNG(36)
	ix, rows := buildGaussian(t, rng, 200, 8, nil)

	scratch := NewSearcher()
	_, err := ix.SearchWithSearcher(rows[0], 5, 16, scratch)
	require.NoError(t, err)
	assert.Positive(t, scratch.Ops())
}
