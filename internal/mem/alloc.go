// Package mem provides memory allocation utilities.
package mem

import (
	"unsafe"
)

// Alignment is the byte alignment used for vector rows (32 bytes).
// AVX2 and NEON kernels issue unaligned loads, but keeping rows on a
// 32-byte boundary avoids straddling cache lines on every row.
const Alignment = 32

// AllocAligned allocates a byte slice of the given size with 32-byte alignment.
// The returned slice is guaranteed to start at a memory address divisible by 32.
//
// Note: This function allocates slightly more memory than requested to ensure
// alignment. The underlying array is kept alive by the returned slice.
func AllocAligned(size int) []byte {
	if size == 0 {
		return nil
	}

	// Allocate size + alignment so an aligned offset always exists
	// within the buffer.
	totalSize := size + Alignment
	buf := make([]byte, totalSize)

	ptr := unsafe.Pointer(&buf[0]) //nolint:gosec // unsafe is required for memory alignment
	addr := uintptr(ptr)
	offset := (Alignment - (addr & (Alignment - 1))) & (Alignment - 1)

	return buf[offset : offset+uintptr(size)]
}

// AllocAlignedFloat32 allocates a float32 slice of the given size with 32-byte
// alignment.
func AllocAlignedFloat32(size int) []float32 {
	if size == 0 {
		return nil
	}

	byteSize := size * 4
	byteSlice := AllocAligned(byteSize)

	// Safe because AllocAligned guarantees 32-byte alignment, which is
	// also 4-byte aligned (required for float32).
	ptr := unsafe.Pointer(&byteSlice[0])       //nolint:gosec // unsafe is required for memory alignment
	return unsafe.Slice((*float32)(ptr), size) //nolint:gosec // unsafe is required for memory alignment
}

// IsAligned reports whether the first element of v sits on an Alignment
// boundary. Empty slices are trivially aligned.
func IsAligned(v []float32) bool {
	if len(v) == 0 {
		return true
	}
	return uintptr(unsafe.Pointer(&v[0]))&(Alignment-1) == 0 //nolint:gosec // alignment check only
}
