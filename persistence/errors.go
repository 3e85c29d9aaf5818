package persistence

import "errors"

var (
	// ErrFormatInvalid indicates a malformed header or magic.
	ErrFormatInvalid = errors.New("format-invalid")
	// ErrFormatTruncated indicates a file shorter than its header declares.
	ErrFormatTruncated = errors.New("format-truncated")
	// ErrFormatTrailingBytes indicates bytes beyond the declared payload.
	ErrFormatTrailingBytes = errors.New("format-trailing-bytes")
	// ErrChecksumMismatch indicates a CRC trailer that does not match.
	ErrChecksumMismatch = errors.New("checksum-mismatch")
	// ErrNonFinite indicates NaN or Inf components at write time.
	ErrNonFinite = errors.New("non-finite vector component")
	// ErrDimensionMismatch indicates rows of unequal length at write time.
	ErrDimensionMismatch = errors.New("dimension mismatch between rows")
)
