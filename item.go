package filecenter

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
)

// FileData is the payload of a file item. Exactly one of Buffer or Stream
// is set. A Stream must be closed by the consumer.
type FileData struct {
	Buffer []byte
	Stream io.ReadCloser
}

// IsBuffer reports whether the payload is resident in memory
func (d FileData) IsBuffer() bool {
	return d.Stream == nil
}

// FileItem is a handle to one stored file. Metadata accessors may be called
// any number of times; IntoFileData hands out the payload exactly once.
type FileItem struct {
	rec *Record
	fc  *FileCenter

	// release drops the blob reference of a one-shot temporary item once
	// its payload has been consumed. Nil for permanent items.
	release func(context.Context)

	mu    sync.Mutex
	taken bool
}

// ID returns the item's identifier
func (f *FileItem) ID() uuid.UUID {
	return f.rec.ID
}

// FileName returns the stored file name, possibly empty
func (f *FileItem) FileName() string {
	return f.rec.FileName
}

// MimeType returns the canonical MIME type
func (f *FileItem) MimeType() string {
	return f.rec.MimeType
}

// FileSize returns the payload size in bytes
func (f *FileItem) FileSize() uint64 {
	return f.rec.Size
}

// CreateTime returns when the item was stored
func (f *FileItem) CreateTime() time.Time {
	return f.rec.CreatedAt
}

// ExpirationTime returns the expiration of a temporary item. ok is false
// for permanent items.
func (f *FileItem) ExpirationTime() (t time.Time, ok bool) {
	if f.rec.ExpiresAt == nil {
		return time.Time{}, false
	}
	return *f.rec.ExpiresAt, true
}

// IntoFileData returns the payload. Payloads up to the file center's buffer
// threshold are returned as a Buffer, larger ones as a Stream that verifies
// the stored checksum when it reaches EOF. A second call fails with
// ErrFileDataTaken.
func (f *FileItem) IntoFileData(ctx context.Context) (FileData, error) {
	f.mu.Lock()
	if f.taken {
		f.mu.Unlock()
		return FileData{}, ErrFileDataTaken
	}
	f.taken = true
	f.mu.Unlock()

	if f.rec.BlobKey == "" {
		defer f.releaseBlob(ctx)
		if err := verifyBuffer(f.rec.Inline, f.rec.XXHash); err != nil {
			return FileData{}, fmt.Errorf("file item %s: %w", f.rec.ID, err)
		}
		return FileData{Buffer: f.rec.Inline}, nil
	}

	rc, err := f.fc.store.Read(ctx, f.rec.BlobKey)
	if err != nil {
		f.releaseBlob(ctx)
		return FileData{}, fmt.Errorf("file item %s: %w", f.rec.ID, err)
	}

	if f.rec.Size <= uint64(f.fc.bufferThreshold) {
		defer f.releaseBlob(ctx)
		defer rc.Close()

		data, err := io.ReadAll(rc)
		if err != nil {
			return FileData{}, fmt.Errorf("file item %s: %w", f.rec.ID, err)
		}
		if err := verifyBuffer(data, f.rec.XXHash); err != nil {
			return FileData{}, fmt.Errorf("file item %s: %w", f.rec.ID, err)
		}
		return FileData{Buffer: data}, nil
	}

	stream := &itemStream{verifyingReader: newVerifyingReader(rc, f.rec.XXHash)}
	if f.release != nil {
		stream.onClose = f.release
	}
	return FileData{Stream: stream}, nil
}

func (f *FileItem) releaseBlob(ctx context.Context) {
	if f.release != nil {
		f.release(ctx)
	}
}
