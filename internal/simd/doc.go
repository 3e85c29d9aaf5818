// Package simd provides the distance kernels used by the distance package
// and the query runtime.
//
// Kernels are bound once at init time: a CPU feature probe selects the widest
// implementation available (8-lane on x86-64 with AVX2, 4-lane on arm64 with
// NEON), falling back to a portable scalar loop. The lane kernels are written
// as unrolled independent-accumulator loops that the compiler keeps in vector
// registers on the probed targets.
//
// The active implementation can be forced with the VAMANA_SIMD environment
// variable ("generic", "avx2", "neon").
package simd
