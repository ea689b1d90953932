// Package storage implements the artifact/object storage adapter:
// document uploads and processor outputs are addressed by a disk-agnostic
// path and backed by either S3 or the local filesystem.
package storage

import (
	"context"
	"errors"
	"io"
)

// ErrNotExist is returned when a requested object does not exist.
var ErrNotExist = errors.New("storage: object does not exist")

// ObjectStore is the disk-agnostic backend a storage.Adapter wraps.
// Implementations: s3.Store, fs.Store.
type ObjectStore interface {
	// Put writes data at path, returning the number of bytes written.
	Put(ctx context.Context, path string, data io.Reader, contentType string) (int64, error)

	// Get opens path for reading. Callers must Close the returned reader.
	Get(ctx context.Context, path string) (io.ReadCloser, error)

	// Exists reports whether path is present.
	Exists(ctx context.Context, path string) (bool, error)

	// Delete removes path. Deleting a nonexistent path is not an error.
	Delete(ctx context.Context, path string) error

	// URL returns an address a client can use to retrieve path directly
	// (a presigned S3 URL, or a local file:// path for fs.Store), valid
	// for at most ttlSeconds.
	URL(ctx context.Context, path string, ttlSeconds int) (string, error)
}
