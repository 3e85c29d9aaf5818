package distance

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func randVec(rng *rand.Rand, n int) []float32 {
	v := make([]float32, n)
	for i := range v {
		v[i] = rng.Float32()*2 - 1
	}
	return v
}

func TestProvider(t *testing.T) {
	for _, m := range []Metric{MetricL2, MetricIP, MetricCosine} {
		fn, err := Provider(m)
		require.NoError(t, err)
		require.NotNil(t, fn)
	}

	_, err := Provider(Metric(99))
	require.Error(t, err)
}

func TestSymmetry(t *testing.T) {
	rng := rand.New(rand.NewSource(7))

	for _, m := range []Metric{MetricL2, MetricIP, MetricCosine} {
		fn, err := Provider(m)
		require.NoError(t, err)

		for i := 0; i < 100; i++ {
			a := randVec(rng, 1+rng.Intn(256))
			b := randVec(rng, len(a))

			ab := float64(fn(a, b))
			ba := float64(fn(b, a))
			tol := 1e-5 * math.Max(1, math.Abs(ab))
			assert.InDelta(t, ab, ba, tol, "metric %v", m)
		}
	}
}

func TestL2Identity(t *testing.T) {
	rng := rand.New(rand.NewSource(8))
	fn, err := Provider(MetricL2)
	require.NoError(t, err)

	a := randVec(rng, 64)
	assert.Zero(t, fn(a, a))

	b := randVec(rng, 64)
	assert.GreaterOrEqual(t, fn(a, b), float32(0))
}

func TestIPOrdering(t *testing.T) {
	// Larger dot product must rank closer (smaller value).
	fn, err := Provider(MetricIP)
	require.NoError(t, err)

	q := []float32{1, 0}
	near := []float32{2, 0}
	far := []float32{0.5, 0}
	assert.Less(t, fn(q, near), fn(q, far))
}

func TestCosineOnUnitVectors(t *testing.T) {
	fn, err := Provider(MetricCosine)
	require.NoError(t, err)

	a := []float32{1, 0, 0}
	assert.InDelta(t, 0, fn(a, a), 1e-6)

	b := []float32{0, 1, 0}
	assert.InDelta(t, 1, fn(a, b), 1e-6)
}

func TestNonFiniteInputs(t *testing.T) {
	nan := float32(math.NaN())

	for _, m := range []Metric{MetricL2, MetricIP, MetricCosine} {
		fn, err := Provider(m)
		require.NoError(t, err)

		got := fn([]float32{nan, 1}, []float32{0, 1})
		assert.True(t, math.IsInf(float64(got), 1), "metric %v", m)
	}
}

func TestNormalizeL2(t *testing.T) {
	v := []float32{3, 4}
	require.True(t, NormalizeL2InPlace(v))
	assert.InDelta(t, 1, Dot(v, v), 1e-6)

	zero := []float32{0, 0}
	assert.False(t, NormalizeL2InPlace(zero))

	cp, ok := NormalizeL2Copy([]float32{0, 5})
	require.True(t, ok)
	assert.InDelta(t, 1, Dot(cp, cp), 1e-6)
}

func TestParseMetric(t *testing.T) {
	for s, want := range map[string]Metric{"l2": MetricL2, "ip": MetricIP, "cosine": MetricCosine} {
		got, err := ParseMetric(s)
		require.NoError(t, err)
		assert.Equal(t, want, got)
		assert.Equal(t, s, got.String())
	}

	_, err := ParseMetric("hamming")
	assert.Error(t, err)
}
