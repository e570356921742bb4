// Package filestore archives uploaded datasets in object storage so a
// session's source file can be re-fetched after the session expires.
//
// All callers depend only on the Store interface — never on a specific
// provider package.
//
// Usage:
//
//	cfg := filestore.DefaultConfig("localhost:9000", "minioadmin", "minioadmin")
//	store, err := minio.New(ctx, cfg)
//	if err != nil { ... }
//	defer store.Close()
//
//	info, err := store.Put(ctx, "uploads/bkpf.csv", f, size, "text/csv")
package filestore

import (
	"context"
	"io"
	"time"
)

// Store is the contract every dataset archive backend implements.
type Store interface {
	// Ping verifies the storage backend is reachable.
	Ping(ctx context.Context) error

	// Close releases any held resources.
	Close() error

	// Put uploads a dataset under key. Size may be -1 when unknown.
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (*ObjectInfo, error)

	// Get opens a streaming handle to the dataset at key.
	// The caller MUST call Object.Close() after reading.
	Get(ctx context.Context, key string) (Object, error)

	// Stat returns metadata for the dataset at key without downloading it.
	Stat(ctx context.Context, key string) (*ObjectInfo, error)

	// List returns the archived datasets whose key starts with prefix.
	List(ctx context.Context, prefix string) ([]ObjectInfo, error)

	// Delete removes the dataset at key. Deleting a missing key is not
	// an error.
	Delete(ctx context.Context, key string) error

	// PresignGetURL returns a time-limited URL that allows downloading
	// the dataset at key without credentials.
	PresignGetURL(ctx context.Context, key string, ttl time.Duration) (string, error)
}

// ObjectInfo describes one archived dataset.
type ObjectInfo struct {
	// Key is the full object path within the archive bucket.
	Key string

	// Size is the byte size of the object. -1 if unknown.
	Size int64

	// ContentType is the MIME type, typically "text/csv".
	ContentType string

	// ETag is the object's entity tag as returned by the backend.
	ETag string

	// LastModified is when the object was last written.
	LastModified time.Time
}

// Object is a streaming handle to an archived dataset's content.
type Object interface {
	io.ReadCloser

	// Info returns the metadata for this object.
	Info() *ObjectInfo
}
