// Package vectorstore implements contiguous, aligned storage of N x d
// float32 vectors addressed by dense id.
package vectorstore

import (
	"errors"

	"github.com/hupe1980/vamana/internal/mem"
)

var (
	// ErrWrongDimension is returned when a vector doesn't match the store dimension.
	ErrWrongDimension = errors.New("wrong vector dimension")
	// ErrInvalidDimension is returned when the configured dimension is not positive.
	ErrInvalidDimension = errors.New("invalid dimension")
)

// rowStride returns the per-row float count padded so every row starts on a
// 32-byte boundary (8 float32 lanes).
func rowStride(dim int) int {
	return (dim + 7) &^ 7
}

// Store holds N vectors of a fixed dimension in one aligned row-major block.
//
// Rows are padded to a 32-byte stride; Row returns a slice of exactly the
// configured dimension. The store is append-free and fixed-size: the query
// runtime treats it as immutable, the builder fills it once up front.
type Store struct {
	dim    int
	stride int
	count  int
	data   []float32
}

// New allocates a store for count vectors of the given dimension.
func New(dim, count int) (*Store, error) {
	if dim <= 0 {
		return nil, ErrInvalidDimension
	}
	if count < 0 {
		count = 0
	}

	stride := rowStride(dim)
	return &Store{
		dim:    dim,
		stride: stride,
		count:  count,
		data:   mem.AllocAlignedFloat32(count * stride),
	}, nil
}

// FromRows builds a store from row slices. All rows must share the dimension
// of the first row.
func FromRows(rows [][]float32) (*Store, error) {
	if len(rows) == 0 {
		return New(1, 0)
	}

	s, err := New(len(rows[0]), len(rows))
	if err != nil {
		return nil, err
	}
	for i, row := range rows {
		if err := s.SetRow(uint32(i), row); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Dimension returns the vector dimension.
func (s *Store) Dimension() int {
	return s.dim
}

// Len returns the number of vectors.
func (s *Store) Len() int {
	return s.count
}

// Row returns the vector for id. The returned slice aliases store memory and
// must not be mutated by query-path callers. Panics if id is out of range.
func (s *Store) Row(id uint32) []float32 {
	off := int(id) * s.stride
	return s.data[off : off+s.dim : off+s.dim]
}

// SetRow copies v into the row for id. Build-only.
func (s *Store) SetRow(id uint32, v []float32) error {
	if len(v) != s.dim {
		return ErrWrongDimension
	}
	copy(s.Row(id), v)
	return nil
}
