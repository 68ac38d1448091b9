package filecenter

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Record is the persisted metadata of one file item
type Record struct {
	ID        uuid.UUID  `json:"id"`
	FileName  string     `json:"file_name"`
	MimeType  string     `json:"mime_type"`
	Size      uint64     `json:"size"`
	SHA256    string     `json:"sha256"`
	XXHash    uint64     `json:"xxhash"`
	Inline    []byte     `json:"inline,omitempty"`
	BlobKey   string     `json:"blob_key,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// Temporary reports whether the record carries an expiration time
func (r *Record) Temporary() bool {
	return r.ExpiresAt != nil
}

// Expired reports whether the record's expiration time is at or before now
func (r *Record) Expired(now time.Time) bool {
	return r.ExpiresAt != nil && !r.ExpiresAt.After(now)
}

// Index stores file item records and reference counts of content-addressed
// blobs. Implementations must be safe for concurrent use.
type Index interface {
	// Get returns the record for id, or ErrNotExist.
	Get(ctx context.Context, id uuid.UUID) (*Record, error)

	// Put inserts a new record. It fails with ErrExist if the id is taken.
	// When rec.BlobKey is set, the blob's reference count is incremented
	// in the same operation.
	Put(ctx context.Context, rec *Record) error

	// Delete removes a record and releases its blob reference. orphaned is
	// true when no other record references the blob any more.
	Delete(ctx context.Context, id uuid.UUID) (rec *Record, orphaned bool, err error)

	// Expired lists ids of records whose expiration is at or before now.
	Expired(ctx context.Context, now time.Time) ([]uuid.UUID, error)

	// BlobRefs returns the reference count of a blob key.
	BlobRefs(ctx context.Context, key string) (int, error)

	// Close releases the index's resources.
	Close() error
}

// MemoryIndex is an Index kept entirely in process memory
type MemoryIndex struct {
	mu      sync.RWMutex
	records map[uuid.UUID]*Record
	refs    map[string]int
	closed  bool
}

// NewMemoryIndex creates an empty in-memory index
func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{
		records: make(map[uuid.UUID]*Record),
		refs:    make(map[string]int),
	}
}

// Get implements Index
func (m *MemoryIndex) Get(ctx context.Context, id uuid.UUID) (*Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrClosed
	}

	rec, ok := m.records[id]
	if !ok {
		return nil, ErrNotExist
	}
	cp := *rec
	return &cp, nil
}

// Put implements Index
func (m *MemoryIndex) Put(ctx context.Context, rec *Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}
	if _, exists := m.records[rec.ID]; exists {
		return ErrExist
	}

	cp := *rec
	m.records[rec.ID] = &cp
	if rec.BlobKey != "" {
		m.refs[rec.BlobKey]++
	}
	return nil
}

// Delete implements Index
func (m *MemoryIndex) Delete(ctx context.Context, id uuid.UUID) (*Record, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, false, ErrClosed
	}

	rec, ok := m.records[id]
	if !ok {
		return nil, false, ErrNotExist
	}
	delete(m.records, id)

	orphaned := false
	if rec.BlobKey != "" {
		m.refs[rec.BlobKey]--
		if m.refs[rec.BlobKey] <= 0 {
			delete(m.refs, rec.BlobKey)
			orphaned = true
		}
	}
	return rec, orphaned, nil
}

// Expired implements Index
func (m *MemoryIndex) Expired(ctx context.Context, now time.Time) ([]uuid.UUID, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrClosed
	}

	var ids []uuid.UUID
	for id, rec := range m.records {
		if rec.Expired(now) {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// BlobRefs implements Index
func (m *MemoryIndex) BlobRefs(ctx context.Context, key string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return 0, ErrClosed
	}
	return m.refs[key], nil
}

// Close implements Index
func (m *MemoryIndex) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

var _ Index = (*MemoryIndex)(nil)
