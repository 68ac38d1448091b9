package filecenter

import (
	"context"
	"io"
	"time"
)

// BlobInfo represents blob metadata as reported by a driver
type BlobInfo struct {
	Key     string
	Size    int64
	ModTime time.Time
}

// ============================================================================
// Blob Store Interfaces (Interface Segregation)
// ============================================================================

// BlobReader provides read-only access to stored payloads.
type BlobReader interface {
	// Read returns a stream for reading blob content. The caller closes it.
	Read(ctx context.Context, key string) (io.ReadCloser, error)

	// Exists checks if a blob exists at key.
	Exists(ctx context.Context, key string) (bool, error)

	// Stat returns blob metadata.
	Stat(ctx context.Context, key string) (*BlobInfo, error)

	// List returns every blob whose key starts with prefix.
	List(ctx context.Context, prefix string) ([]BlobInfo, error)
}

// BlobWriter provides write operations on stored payloads.
type BlobWriter interface {
	// Write stores content from r under key, replacing any existing blob.
	// It returns the number of bytes written.
	Write(ctx context.Context, key string, r io.Reader) (int64, error)

	// Delete removes a blob.
	Delete(ctx context.Context, key string) error

	// Move renames a blob. The destination is replaced if it exists.
	Move(ctx context.Context, src, dst string) error
}

// BlobStore provides full read-write access to a payload backend.
// The file center keeps metadata in an Index and delegates payload bytes to
// a BlobStore, so any driver can hold the content of large files.
type BlobStore interface {
	BlobReader
	BlobWriter
}

// Closer is implemented by drivers that hold resources
type Closer interface {
	Close() error
}
