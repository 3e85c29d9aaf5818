// Package distance provides the public API for vector distance calculations.
// All distance functions use the vectorized implementations from internal/simd
// when available (AVX2 on x86-64, NEON on ARM64).
package distance

import (
	"fmt"
	"math"
	"slices"

	"github.com/hupe1980/vamana/internal/simd"
)

// Dot calculates the dot product of two vectors.
// Assumes vectors are the same length (caller's responsibility).
// Uses SIMD acceleration when available.
func Dot(a, b []float32) float32 {
	return simd.Dot(a, b)
}

// SquaredL2 calculates the squared L2 (Euclidean) distance between two vectors.
// Assumes vectors are the same length (caller's responsibility).
// Uses SIMD acceleration when available.
//
// The square root is never taken: ranking is order-preserving under monotone
// transforms, and callers wanting Euclidean distance take the root themselves.
func SquaredL2(a, b []float32) float32 {
	return simd.SquaredL2(a, b)
}

// NormalizeL2InPlace L2-normalizes v in place.
// Returns false if v has zero L2 norm.
func NormalizeL2InPlace(v []float32) bool {
	if len(v) == 0 {
		return false
	}
	norm2 := simd.Dot(v, v)
	if norm2 == 0 {
		return false
	}
	inv := 1 / simd.Sqrt(norm2)
	simd.ScaleInPlace(v, inv)
	return true
}

// NormalizeL2Copy returns a normalized copy of src.
// Returns false if src has zero L2 norm.
func NormalizeL2Copy(src []float32) ([]float32, bool) {
	dst := slices.Clone(src)
	if !NormalizeL2InPlace(dst) {
		return nil, false
	}
	return dst, true
}

// Metric represents the distance metric used for vector comparison.
//
// The numeric values are part of the index file format (the distance-kind
// byte) and must not be reordered.
type Metric uint8

const (
	// MetricL2 ranks by squared Euclidean distance.
	MetricL2 Metric = 0
	// MetricIP ranks by negated inner product (larger dot product is closer).
	MetricIP Metric = 1
	// MetricCosine ranks by 1 - dot product on unit-norm inputs.
	MetricCosine Metric = 2
)

func (m Metric) String() string {
	switch m {
	case MetricL2:
		return "l2"
	case MetricIP:
		return "ip"
	case MetricCosine:
		return "cosine"
	default:
		return fmt.Sprintf("Unknown(%d)", uint8(m))
	}
}

// ParseMetric parses a metric name ("l2", "ip", "cosine").
func ParseMetric(s string) (Metric, error) {
	switch s {
	case "l2":
		return MetricL2, nil
	case "ip":
		return MetricIP, nil
	case "cosine":
		return MetricCosine, nil
	default:
		return 0, fmt.Errorf("unsupported metric: %q", s)
	}
}

// Func is a function type for distance calculation. All provided functions
// return values where smaller is closer, regardless of metric.
type Func func(a, b []float32) float32

// Provider returns the distance function for the given metric.
//
// Every returned function guards against non-finite results from the
// vectorized horizontal sum: the pair is recomputed once with the scalar
// kernel, and +Inf is returned if the result is still non-finite.
func Provider(m Metric) (Func, error) {
	switch m {
	case MetricL2:
		return rankedSquaredL2, nil
	case MetricIP:
		return rankedIP, nil
	case MetricCosine:
		return rankedCosine, nil
	default:
		return nil, fmt.Errorf("unsupported metric: %v", m)
	}
}

func rankedSquaredL2(a, b []float32) float32 {
	d := simd.SquaredL2(a, b)
	if !finite(d) {
		d = simd.SquaredL2Generic(a, b)
		if !finite(d) {
			return float32(math.Inf(1))
		}
	}
	return d
}

func rankedIP(a, b []float32) float32 {
	d := -simd.Dot(a, b)
	if !finite(d) {
		d = -simd.DotGeneric(a, b)
		if !finite(d) {
			return float32(math.Inf(1))
		}
	}
	return d
}

func rankedCosine(a, b []float32) float32 {
	d := 1 - simd.Dot(a, b)
	if !finite(d) {
		d = 1 - simd.DotGeneric(a, b)
		if !finite(d) {
			return float32(math.Inf(1))
		}
	}
	return d
}

func finite(f float32) bool {
	return !math.IsNaN(float64(f)) && !math.IsInf(float64(f), 0)
}
