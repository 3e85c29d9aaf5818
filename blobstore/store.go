// Package blobstore abstracts where serialized indices live: in memory,
// on the local file system, or in object storage.
package blobstore

import (
	"context"
	"io"
	"os"
)

// ErrNotFound is returned when a blob does not exist.
//
// Implementations should return an error that satisfies
// `errors.Is(err, ErrNotFound)`. The default maps to `os.ErrNotExist`.
var ErrNotFound = os.ErrNotExist

// Store is an abstraction for reading and writing immutable blobs.
// Blobs are written atomically: a Get never observes a partial Put.
type Store interface {
	// Put writes a blob, replacing any previous content under name.
	Put(ctx context.Context, name string, r io.Reader) error

	// Get opens a blob for reading. The caller closes the returned reader.
	Get(ctx context.Context, name string) (io.ReadCloser, error)

	// Delete removes a blob. Deleting a missing blob is not an error.
	Delete(ctx context.Context, name string) error

	// List returns the blob names under prefix, sorted ascending.
	List(ctx context.Context, prefix string) ([]string, error)
}
