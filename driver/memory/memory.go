package memory

import (
	"bytes"
	"context"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gobeaver/filecenter"
)

// memoryBlob represents a blob stored in memory
type memoryBlob struct {
	content []byte
	modTime time.Time
}

// Adapter provides an in-memory implementation of filecenter.BlobStore
// Useful for testing and for file centers that only hold temporary files
type Adapter struct {
	mu      sync.RWMutex
	blobs   map[string]*memoryBlob
	maxSize int64 // Maximum total storage size (0 = unlimited)
	size    int64 // Current total size
}

// Config holds configuration for the memory adapter
type Config struct {
	// MaxSize is the maximum total storage size in bytes (0 = unlimited)
	MaxSize int64
}

// New creates a new in-memory blob store
func New(cfg ...Config) *Adapter {
	var maxSize int64
	if len(cfg) > 0 {
		maxSize = cfg[0].MaxSize
	}

	return &Adapter{
		blobs:   make(map[string]*memoryBlob),
		maxSize: maxSize,
	}
}

// Write implements filecenter.BlobWriter
func (a *Adapter) Write(ctx context.Context, key string, content io.Reader) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	key = normalizeKey(key)
	if !isValidKey(key) {
		return 0, filecenter.NewPathError("write", key, filecenter.ErrNotAllowed)
	}

	// Read content into memory
	data, err := io.ReadAll(content)
	if err != nil {
		return 0, filecenter.NewPathError("write", key, err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	newSize := a.size + int64(len(data))
	if existing, exists := a.blobs[key]; exists {
		newSize -= int64(len(existing.content))
	}

	if a.maxSize > 0 && newSize > a.maxSize {
		return 0, filecenter.NewPathError("write", key, filecenter.ErrFileTooLarge)
	}

	a.blobs[key] = &memoryBlob{
		content: data,
		modTime: time.Now(),
	}
	a.size = newSize

	return int64(len(data)), nil
}

// Read implements filecenter.BlobReader
func (a *Adapter) Read(ctx context.Context, key string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	key = normalizeKey(key)

	a.mu.RLock()
	defer a.mu.RUnlock()

	blob, exists := a.blobs[key]
	if !exists {
		return nil, filecenter.NewPathError("read", key, filecenter.ErrNotExist)
	}

	// Blobs are never mutated in place, sharing the slice is safe
	return io.NopCloser(bytes.NewReader(blob.content)), nil
}

// Delete implements filecenter.BlobWriter
func (a *Adapter) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	key = normalizeKey(key)

	a.mu.Lock()
	defer a.mu.Unlock()

	blob, exists := a.blobs[key]
	if !exists {
		return filecenter.NewPathError("delete", key, filecenter.ErrNotExist)
	}

	a.size -= int64(len(blob.content))
	delete(a.blobs, key)

	return nil
}

// Exists implements filecenter.BlobReader
func (a *Adapter) Exists(ctx context.Context, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	key = normalizeKey(key)

	a.mu.RLock()
	defer a.mu.RUnlock()

	_, exists := a.blobs[key]
	return exists, nil
}

// Stat implements filecenter.BlobReader
func (a *Adapter) Stat(ctx context.Context, key string) (*filecenter.BlobInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	key = normalizeKey(key)

	a.mu.RLock()
	defer a.mu.RUnlock()

	blob, exists := a.blobs[key]
	if !exists {
		return nil, filecenter.NewPathError("stat", key, filecenter.ErrNotExist)
	}

	return &filecenter.BlobInfo{
		Key:     key,
		Size:    int64(len(blob.content)),
		ModTime: blob.modTime,
	}, nil
}

// List implements filecenter.BlobReader
func (a *Adapter) List(ctx context.Context, prefix string) ([]filecenter.BlobInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	prefix = strings.TrimPrefix(prefix, "/")

	a.mu.RLock()
	defer a.mu.RUnlock()

	var blobs []filecenter.BlobInfo
	for key, blob := range a.blobs {
		if strings.HasPrefix(key, prefix) {
			blobs = append(blobs, filecenter.BlobInfo{
				Key:     key,
				Size:    int64(len(blob.content)),
				ModTime: blob.modTime,
			})
		}
	}

	sort.Slice(blobs, func(i, j int) bool {
		return blobs[i].Key < blobs[j].Key
	})

	return blobs, nil
}

// Move implements filecenter.BlobWriter
func (a *Adapter) Move(ctx context.Context, src, dst string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	src = normalizeKey(src)
	dst = normalizeKey(dst)

	if !isValidKey(src) || !isValidKey(dst) {
		return filecenter.NewPathError("move", src, filecenter.ErrNotAllowed)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	blob, exists := a.blobs[src]
	if !exists {
		return filecenter.NewPathError("move", src, filecenter.ErrNotExist)
	}

	if existing, exists := a.blobs[dst]; exists && src != dst {
		a.size -= int64(len(existing.content))
	}

	delete(a.blobs, src)
	blob.modTime = time.Now()
	a.blobs[dst] = blob

	return nil
}

// Clear removes all blobs
// Useful for testing cleanup
func (a *Adapter) Clear() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.blobs = make(map[string]*memoryBlob)
	a.size = 0
}

// Size returns the current total size of all stored blobs
func (a *Adapter) Size() int64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.size
}

// BlobCount returns the number of blobs stored
func (a *Adapter) BlobCount() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.blobs)
}

// normalizeKey strips leading slashes
func normalizeKey(key string) string {
	return strings.TrimLeft(key, "/")
}

// isValidKey rejects empty keys and directory traversal
func isValidKey(key string) bool {
	return key != "" && !strings.Contains(key, "..")
}

// Ensure Adapter implements interfaces
var (
	_ filecenter.BlobStore  = (*Adapter)(nil)
	_ filecenter.BlobReader = (*Adapter)(nil)
	_ filecenter.BlobWriter = (*Adapter)(nil)
)
