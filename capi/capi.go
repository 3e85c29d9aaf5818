// Package main exposes the native C ABI for the vamana library.
//
// Build with:
//
//	go build -buildmode=c-shared -o libvamana.so ./capi
//
// Handles are opaque integers backed by cgo handles; results are written
// into caller-provided buffers, and no strings are allocated on the error
// path: every failure is reported as a status code mirroring the library's
// closed error kinds.
package main

/*
#include <stdint.h>

typedef struct {
	uint32_t id;
	float    distance;
} vamana_result_t;

typedef enum {
	VAMANA_OK                        = 0,
	VAMANA_ERR_INVALID_PARAMETER     = 1,
	VAMANA_ERR_DIMENSION_MISMATCH    = 2,
	VAMANA_ERR_EMPTY_CORPUS          = 3,
	VAMANA_ERR_FORMAT_INVALID        = 4,
	VAMANA_ERR_FORMAT_TRUNCATED      = 5,
	VAMANA_ERR_FORMAT_TRAILING_BYTES = 6,
	VAMANA_ERR_CHECKSUM_MISMATCH     = 7,
	VAMANA_ERR_IO                    = 8,
	VAMANA_ERR_OUT_OF_MEMORY         = 9,
} vamana_status_t;
*/
import "C"

import (
	"errors"
	"runtime/cgo"
	"unsafe"

	"github.com/hupe1980/vamana"
)

func statusOf(err error) C.int {
	var dm *vamana.ErrDimensionMismatch
	switch {
	case err == nil:
		return C.VAMANA_OK
	case errors.As(err, &dm):
		return C.VAMANA_ERR_DIMENSION_MISMATCH
	case errors.Is(err, vamana.ErrInvalidParameter):
		return C.VAMANA_ERR_INVALID_PARAMETER
	case errors.Is(err, vamana.ErrEmptyCorpus):
		return C.VAMANA_ERR_EMPTY_CORPUS
	case errors.Is(err, vamana.ErrFormatInvalid):
		return C.VAMANA_ERR_FORMAT_INVALID
	case errors.Is(err, vamana.ErrFormatTruncated):
		return C.VAMANA_ERR_FORMAT_TRUNCATED
	case errors.Is(err, vamana.ErrFormatTrailingBytes):
		return C.VAMANA_ERR_FORMAT_TRAILING_BYTES
	case errors.Is(err, vamana.ErrChecksumMismatch):
		return C.VAMANA_ERR_CHECKSUM_MISMATCH
	case errors.Is(err, vamana.ErrOutOfMemory):
		return C.VAMANA_ERR_OUT_OF_MEMORY
	default:
		return C.VAMANA_ERR_IO
	}
}

//export vamana_create_index_from_file
func vamana_create_index_from_file(path *C.char, out *C.uintptr_t) C.int {
	if path == nil || out == nil {
		return C.VAMANA_ERR_INVALID_PARAMETER
	}

	ix, err := vamana.LoadFile(C.GoString(path))
	if err != nil {
		return statusOf(err)
	}

	*out = C.uintptr_t(cgo.NewHandle(ix))
	return C.VAMANA_OK
}

//export vamana_destroy_index
func vamana_destroy_index(handle C.uintptr_t) {
	if handle != 0 {
		cgo.Handle(handle).Delete()
	}
}

//export vamana_create_scratch
func vamana_create_scratch(out *C.uintptr_t) C.int {
	if out == nil {
		return C.VAMANA_ERR_INVALID_PARAMETER
	}
	*out = C.uintptr_t(cgo.NewHandle(vamana.NewSearcher()))
	return C.VAMANA_OK
}

//export vamana_destroy_scratch
func vamana_destroy_scratch(handle C.uintptr_t) {
	if handle != 0 {
		cgo.Handle(handle).Delete()
	}
}

//export vamana_search
func vamana_search(index C.uintptr_t, query *C.float, queryDim C.uint32_t, k C.uint32_t, beam C.uint32_t, scratch C.uintptr_t, results *C.vamana_result_t, resultsLen *C.uint32_t) C.int {
	if index == 0 || query == nil || results == nil || resultsLen == nil {
		return C.VAMANA_ERR_INVALID_PARAMETER
	}

	ix, ok := cgo.Handle(index).Value().(*vamana.Index)
	if !ok {
		return C.VAMANA_ERR_INVALID_PARAMETER
	}

	var sc *vamana.Searcher
	if scratch != 0 {
		sc, ok = cgo.Handle(scratch).Value().(*vamana.Searcher)
		if !ok {
			return C.VAMANA_ERR_INVALID_PARAMETER
		}
	}

	q := unsafe.Slice((*float32)(unsafe.Pointer(query)), int(queryDim))

	w := int(beam)
	if w < int(k) {
		w = int(k)
	}
	if w < vamana.DefaultBeamWidth {
		w = vamana.DefaultBeamWidth
	}

	found, err := ix.SearchWithSearcher(q, int(k), w, sc)
	if err != nil {
		return statusOf(err)
	}

	capacity := int(*resultsLen)
	if len(found) > capacity {
		found = found[:capacity]
	}

	out := unsafe.Slice(results, capacity)
	for i, r := range found {
		out[i].id = C.uint32_t(r.ID)
		out[i].distance = C.float(r.Distance)
	}
	*resultsLen = C.uint32_t(len(found))

	return C.VAMANA_OK
}

func main() {}
