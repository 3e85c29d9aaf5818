package simd

import (
	"fmt"
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

func TestDotKernelsAgree(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	for _, n := range []int{1, 2, 3, 4, 7, 8, 9, 15, 16, 17, 31, 64, 100, 255, 1024} {
		t.Run(fmt.Sprintf("n=%d", n), func(t *testing.T) {
			a := randVec(rng, n)
			b := randVec(rng, n)

			want := dotGeneric(a, b)
			for name, fn := range map[string]func(a, b []float32) float32{
				"lanes8": dotLanes8,
				"lanes4": dotLanes4,
				"active": Dot,
			} {
				got := fn(a, b)
				assert.InDelta(t, want, got, 1e-4*float64(n), name)
			}
		})
	}
}

func TestSquaredL2KernelsAgree(t *testing.T) {
	rng := rand.New(rand.NewSource(2))

	for _, n := range []int{1, 2, 3, 4, 7, 8, 9, 15, 16, 17, 31, 64, 100, 255, 1024} {
		t.Run(fmt.Sprintf("n=%d", n), func(t *testing.T) {
			a := randVec(rng, n)
			b := randVec(rng, n)

			want := squaredL2Generic(a, b)
			// Components are in [-1, 1], so the agreement bound of
			// 1e-4 * ||a-b||^2 applies directly.
			tol := 1e-4 * float64(want)
			if tol < 1e-7 {
				tol = 1e-7
			}
			for name, fn := range map[string]func(a, b []float32) float32{
				"lanes8": squaredL2Lanes8,
				"lanes4": squaredL2Lanes4,
				"active": SquaredL2,
			} {
				got := fn(a, b)
				assert.InDelta(t, want, got, tol, name)
			}
		})
	}
}

func TestSquaredL2Identity(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	a := randVec(rng, 128)

	assert.Zero(t, squaredL2Generic(a, a))
	assert.Zero(t, squaredL2Lanes8(a, a))
	assert.Zero(t, squaredL2Lanes4(a, a))
}

func TestScaleInPlace(t *testing.T) {
	v := []float32{1, 2, 3, 4}
	ScaleInPlace(v, 0.5)
	assert.Equal(t, []float32{0.5, 1, 1.5, 2}, v)
}

func TestParseISA(t *testing.T) {
	for s, want := range map[string]ISA{
		"generic": Generic,
		"AVX2":    AVX2,
		" neon ":  NEON,
	} {
		got, ok := ParseISA(s)
		require.True(t, ok, s)
		assert.Equal(t, want, got)
	}

	_, ok := ParseISA("sse42")
	assert.False(t, ok)
}

func TestActiveISAAvailable(t *testing.T) {
	assert.True(t, isISAAvailable(ActiveISA()))
}

func BenchmarkSquaredL2(b *testing.B) {
	rng := rand.New(rand.NewSource(4))
	x := randVec(rng, 768)
	y := randVec(rng, 768)

	var sink float32
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		sink += SquaredL2(x, y)
	}
	_ = sink
}

func BenchmarkDot(b *testing.B) {
	rng := rand.New(rand.NewSource(5))
	x := randVec(rng, 768)
	y := randVec(rng, 768)

	var sink float32
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		sink += Dot(x, y)
	}
	_ = sink
}
