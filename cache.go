package filecenter

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ============================================================================
// Cache Interface
// ============================================================================

// Cache defines the interface for cache backends.
// Implementations should be thread-safe.
type Cache interface {
	// Get retrieves a value from the cache.
	// Returns the value and true if found, nil and false otherwise.
	Get(key string) (any, bool)

	// Set stores a value in the cache with the given TTL.
	// A TTL of 0 means no expiration.
	Set(key string, value any, ttl time.Duration)

	// Delete removes a value from the cache.
	Delete(key string)

	// Clear removes all values from the cache.
	Clear()
}

// CacheStatistics contains cache performance metrics.
type CacheStatistics struct {
	Hits    int64
	Misses  int64
	Size    int64
	HitRate float64
}

// ============================================================================
// In-Memory Cache Implementation
// ============================================================================

type cacheEntry struct {
	value      any
	expiration time.Time
	hasExpiry  bool
}

// MemoryCache is a simple in-memory cache implementation.
// It is thread-safe and supports TTL-based expiration.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]*cacheEntry
	hits    int64
	misses  int64
	now     func() time.Time
}

// NewMemoryCache creates a new in-memory cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		entries: make(map[string]*cacheEntry),
		now:     time.Now,
	}
}

// Get retrieves a value from the cache.
func (c *MemoryCache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, exists := c.entries[key]
	if !exists {
		c.misses++
		return nil, false
	}

	if entry.hasExpiry && c.now().After(entry.expiration) {
		delete(c.entries, key)
		c.misses++
		return nil, false
	}

	c.hits++
	return entry.value, true
}

// Set stores a value in the cache.
func (c *MemoryCache) Set(key string, value any, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry := &cacheEntry{value: value}
	if ttl > 0 {
		entry.expiration = c.now().Add(ttl)
		entry.hasExpiry = true
	}
	c.entries[key] = entry
}

// Delete removes a value from the cache.
func (c *MemoryCache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// Clear removes all values from the cache.
func (c *MemoryCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*cacheEntry)
}

// Stats returns cache statistics.
func (c *MemoryCache) Stats() CacheStatistics {
	c.mu.Lock()
	defer c.mu.Unlock()

	total := c.hits + c.misses
	var hitRate float64
	if total > 0 {
		hitRate = float64(c.hits) / float64(total)
	}

	return CacheStatistics{
		Hits:    c.hits,
		Misses:  c.misses,
		Size:    int64(len(c.entries)),
		HitRate: hitRate,
	}
}

var _ Cache = (*MemoryCache)(nil)

// ============================================================================
// CachingIndex Decorator
// ============================================================================

// CachingIndex wraps an Index to cache record lookups.
// Only successful Get results are cached; misses always reach the backend so
// freshly stored items are visible immediately. Delete invalidates the entry.
//
// Example:
//
//	idx, _ := badgerindex.Open("/var/lib/filecenter/index")
//	cached := filecenter.NewCachingIndex(idx, filecenter.NewMemoryCache(), 5*time.Minute)
type CachingIndex struct {
	Index
	cache Cache
	ttl   time.Duration
}

// NewCachingIndex creates a caching decorator around index.
func NewCachingIndex(index Index, cache Cache, ttl time.Duration) *CachingIndex {
	return &CachingIndex{
		Index: index,
		cache: cache,
		ttl:   ttl,
	}
}

// Unwrap returns the underlying index.
func (c *CachingIndex) Unwrap() Index {
	return c.Index
}

func cacheKey(id uuid.UUID) string {
	return "record:" + id.String()
}

// Get implements Index
func (c *CachingIndex) Get(ctx context.Context, id uuid.UUID) (*Record, error) {
	if v, ok := c.cache.Get(cacheKey(id)); ok {
		cp := *v.(*Record)
		return &cp, nil
	}

	rec, err := c.Index.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	cp := *rec
	c.cache.Set(cacheKey(id), &cp, c.ttl)
	return rec, nil
}

// Delete implements Index
func (c *CachingIndex) Delete(ctx context.Context, id uuid.UUID) (*Record, bool, error) {
	c.cache.Delete(cacheKey(id))
	return c.Index.Delete(ctx, id)
}

// Close implements Index
func (c *CachingIndex) Close() error {
	c.cache.Clear()
	return c.Index.Close()
}

var _ Index = (*CachingIndex)(nil)
