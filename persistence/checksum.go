package persistence

import (
	"hash"
	"io"

	"github.com/minio/crc64nvme"
)

// Checksum utilities for index-file integrity verification.
//
// Uses CRC-64 (NVME polynomial, hardware-accelerated where available).
// CRC-64 is NOT cryptographically secure; it detects accidental corruption,
// not tampering.

// ChecksumWriter wraps an io.Writer and computes a running CRC-64.
type ChecksumWriter struct {
	w    io.Writer
	hash hash.Hash64
}

// NewChecksumWriter creates a new checksumming writer.
func NewChecksumWriter(w io.Writer) *ChecksumWriter {
	return &ChecksumWriter{
		w:    w,
		hash: crc64nvme.New(),
	}
}

// Write implements io.Writer.
func (cw *ChecksumWriter) Write(p []byte) (int, error) {
	if _, err := cw.hash.Write(p); err != nil {
		return 0, err
	}
	return cw.w.Write(p)
}

// Sum returns the current checksum value.
func (cw *ChecksumWriter) Sum() uint64 {
	return cw.hash.Sum64()
}

// Reset resets the checksum to its initial state.
func (cw *ChecksumWriter) Reset() {
	cw.hash.Reset()
}

// ChecksumReader wraps an io.Reader and computes a running CRC-64.
type ChecksumReader struct {
	r    io.Reader
	hash hash.Hash64
}

// NewChecksumReader creates a new checksumming reader.
func NewChecksumReader(r io.Reader) *ChecksumReader {
	return &ChecksumReader{
		r:    r,
		hash: crc64nvme.New(),
	}
}

// Read implements io.Reader.
func (cr *ChecksumReader) Read(p []byte) (int, error) {
	n, err := cr.r.Read(p)
	if n > 0 {
		if _, hashErr := cr.hash.Write(p[:n]); hashErr != nil {
			return n, hashErr
		}
	}
	return n, err
}

// Sum returns the current checksum value.
func (cr *ChecksumReader) Sum() uint64 {
	return cr.hash.Sum64()
}

// Verify returns ErrChecksumMismatch unless the running sum equals expected.
func (cr *ChecksumReader) Verify(expected uint64) error {
	if cr.Sum() != expected {
		return ErrChecksumMismatch
	}
	return nil
}
