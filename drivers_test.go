package filecenter

import (
	"bytes"
	"context"
	"io"
	"sort"
	"strings"
	"sync"
	"time"
)

func init() {
	// Register test drivers
	RegisterDriver("memory", func(*Config) (BlobStore, error) {
		return newTestStore(), nil
	})
}

type testBlob struct {
	data    []byte
	modTime time.Time
}

// testStore is a map-backed BlobStore with hooks for tests to age or
// corrupt blobs.
type testStore struct {
	mu     sync.Mutex
	blobs  map[string]*testBlob
	closed bool
}

func newTestStore() *testStore {
	return &testStore{blobs: make(map[string]*testBlob)}
}

func (s *testStore) Write(ctx context.Context, key string, r io.Reader) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return 0, NewPathError("write", key, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[key] = &testBlob{data: data, modTime: time.Now()}
	return int64(len(data)), nil
}

func (s *testStore) Read(ctx context.Context, key string) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.blobs[key]
	if !ok {
		return nil, NewPathError("read", key, ErrNotExist)
	}
	return io.NopCloser(bytes.NewReader(bytes.Clone(b.data))), nil
}

func (s *testStore) Exists(ctx context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.blobs[key]
	return ok, nil
}

func (s *testStore) Stat(ctx context.Context, key string) (*BlobInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.blobs[key]
	if !ok {
		return nil, NewPathError("stat", key, ErrNotExist)
	}
	return &BlobInfo{Key: key, Size: int64(len(b.data)), ModTime: b.modTime}, nil
}

func (s *testStore) List(ctx context.Context, prefix string) ([]BlobInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []BlobInfo
	for key, b := range s.blobs {
		if strings.HasPrefix(key, prefix) {
			out = append(out, BlobInfo{Key: key, Size: int64(len(b.data)), ModTime: b.modTime})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (s *testStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.blobs[key]; !ok {
		return NewPathError("delete", key, ErrNotExist)
	}
	delete(s.blobs, key)
	return nil
}

func (s *testStore) Move(ctx context.Context, src, dst string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.blobs[src]
	if !ok {
		return NewPathError("move", src, ErrNotExist)
	}
	s.blobs[dst] = b
	delete(s.blobs, src)
	return nil
}

func (s *testStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// keys returns every stored key with the given prefix.
func (s *testStore) keys(prefix string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var keys []string
	for key := range s.blobs {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys
}

func (s *testStore) raw(key string) []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b, ok := s.blobs[key]; ok {
		return b.data
	}
	return nil
}

// tamper replaces a blob's bytes without touching its metadata.
func (s *testStore) tamper(key string, fn func([]byte) []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b, ok := s.blobs[key]; ok {
		b.data = fn(bytes.Clone(b.data))
	}
}

func (s *testStore) age(key string, modTime time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b, ok := s.blobs[key]; ok {
		b.modTime = modTime
	}
}

var _ BlobStore = (*testStore)(nil)
