package filecenter

import (
	"log/slog"
	"time"
)

// PutOption configures a single store operation
type PutOption func(*PutOptions)

// PutOptions contains all possible options for storing a file
type PutOptions struct {
	// FileName is the name reported to downloaders
	FileName string

	// MimeType overrides content detection
	MimeType string

	// ExpiresAt marks the file temporary
	ExpiresAt *time.Time

	// TTL marks the file temporary, relative to the time it is stored
	TTL time.Duration

	// Progress is called as content is read
	Progress ProgressFunc
}

// WithFileName sets the file name stored with the item
func WithFileName(name string) PutOption {
	return func(o *PutOptions) {
		o.FileName = name
	}
}

// WithMimeType sets the MIME type instead of detecting it
func WithMimeType(mimeType string) PutOption {
	return func(o *PutOptions) {
		o.MimeType = mimeType
	}
}

// WithExpiration sets when the file expires
func WithExpiration(t time.Time) PutOption {
	return func(o *PutOptions) {
		o.ExpiresAt = &t
	}
}

// WithTTL sets how long after storing the file expires
func WithTTL(ttl time.Duration) PutOption {
	return func(o *PutOptions) {
		o.TTL = ttl
	}
}

// WithProgress sets a callback receiving the number of bytes read so far
func WithProgress(fn ProgressFunc) PutOption {
	return func(o *PutOptions) {
		o.Progress = fn
	}
}

func processPutOptions(options ...PutOption) *PutOptions {
	opts := &PutOptions{}
	for _, option := range options {
		option(opts)
	}
	return opts
}

// CenterOption configures a FileCenter
type CenterOption func(*FileCenter)

// WithLogger sets the logger used for maintenance messages
func WithLogger(log *slog.Logger) CenterOption {
	return func(fc *FileCenter) {
		fc.log = log
	}
}

// WithBufferThreshold sets the largest payload handed out as a buffer.
// Files up to this size are also stored inline in the index.
func WithBufferThreshold(n int64) CenterOption {
	return func(fc *FileCenter) {
		fc.bufferThreshold = n
	}
}

// WithMaxFileSize rejects files larger than n bytes. Zero means unlimited.
func WithMaxFileSize(n int64) CenterOption {
	return func(fc *FileCenter) {
		fc.maxFileSize = n
	}
}

// WithTemporaryLifetime sets the lifetime of files stored temporarily
func WithTemporaryLifetime(d time.Duration) CenterOption {
	return func(fc *FileCenter) {
		fc.temporaryLifetime = d
	}
}

// WithClock replaces time.Now, mainly for tests
func WithClock(now func() time.Time) CenterOption {
	return func(fc *FileCenter) {
		fc.now = now
	}
}
