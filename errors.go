package vamana

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/hupe1980/vamana/persistence"
)

// The error kinds form a closed set: every failing operation surfaces
// exactly one of them. Format kinds are shared with the persistence package
// so errors.Is works across layers.
var (
	// ErrInvalidParameter is returned for out-of-range configuration
	// (R=0, alpha<1, negative k, non-finite vector components, ...).
	ErrInvalidParameter = errors.New("invalid-parameter")

	// ErrEmptyCorpus is returned when building over zero vectors.
	ErrEmptyCorpus = errors.New("empty-corpus")

	// ErrIO wraps operating-system level read/write failures.
	ErrIO = errors.New("io-error")

	// ErrOutOfMemory is the out-of-memory kind of the closed set. No
	// operation in this package returns it.
	ErrOutOfMemory = errors.New("out-of-memory")

	// ErrFormatInvalid indicates a malformed header or magic.
	ErrFormatInvalid = persistence.ErrFormatInvalid
	// ErrFormatTruncated indicates a file shorter than its header declares.
	ErrFormatTruncated = persistence.ErrFormatTruncated
	// ErrFormatTrailingBytes indicates bytes beyond the declared payload.
	ErrFormatTrailingBytes = persistence.ErrFormatTrailingBytes
	// ErrChecksumMismatch indicates a trailer CRC that does not match.
	ErrChecksumMismatch = persistence.ErrChecksumMismatch
)

// ErrDimensionMismatch indicates a vector/query dimensionality mismatch.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type ErrDimensionMismatch struct {
	Expected int
	Actual   int
	cause    error
}

func (e *ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("dimension-mismatch: expected %d, got %d", e.Expected, e.Actual)
}

func (e *ErrDimensionMismatch) Unwrap() error { return e.cause }

// translateError maps lower-layer errors onto the closed kind set.
func translateError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, persistence.ErrNonFinite) {
		return fmt.Errorf("%w: %w", ErrInvalidParameter, err)
	}
	if errors.Is(err, persistence.ErrDimensionMismatch) {
		return fmt.Errorf("%w: %w", ErrInvalidParameter, err)
	}

	var pathErr *fs.PathError
	if errors.As(err, &pathErr) || errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %w", ErrIO, err)
	}

	return err
}
