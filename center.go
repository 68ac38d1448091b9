package filecenter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Blob key layout inside the store
const (
	blobPrefix    = "blobs/"
	stagingPrefix = "staging/"

	// staging objects older than this are considered abandoned uploads
	stagingGracePeriod = time.Hour
)

// FileCenter stores files, hands out FileItem handles by id, and encrypts
// ids into tokens that can be given to clients.
//
// Small files are kept inline in the index; larger ones are written to the
// blob store under a content-addressed key and shared between items with
// identical content.
type FileCenter struct {
	store  BlobStore
	index  Index
	tokens *idTokenCipher
	log    *slog.Logger

	bufferThreshold   int64
	maxFileSize       int64
	temporaryLifetime time.Duration
	now               func() time.Time

	// pendingBlobs counts uploads that have decided to reference a blob
	// but have not indexed it yet. blobMu serializes that decision against
	// deleting the blob.
	blobMu       sync.Mutex
	pendingBlobs map[string]int

	mu          sync.Mutex
	closed      bool
	stopSweeper context.CancelFunc
	sweeperDone chan struct{}
}

// NewFileCenter creates a file center over a blob store and an index.
// secret is the key material id tokens are derived from.
func NewFileCenter(store BlobStore, index Index, secret []byte, opts ...CenterOption) (*FileCenter, error) {
	if store == nil {
		return nil, errors.New("blob store is required")
	}
	if index == nil {
		return nil, errors.New("index is required")
	}

	tokens, err := newIDTokenCipher(secret)
	if err != nil {
		return nil, err
	}

	fc := &FileCenter{
		store:             store,
		index:             index,
		tokens:            tokens,
		log:               slog.Default(),
		bufferThreshold:   DefaultBufferThreshold,
		temporaryLifetime: time.Hour,
		now:               time.Now,
		pendingBlobs:      make(map[string]int),
	}
	for _, opt := range opts {
		opt(fc)
	}

	if fc.bufferThreshold < 0 || fc.bufferThreshold > MaxBufferThreshold {
		return nil, fmt.Errorf("buffer threshold must be between 0 and %d (got %d)", MaxBufferThreshold, fc.bufferThreshold)
	}
	if fc.temporaryLifetime <= 0 {
		return nil, fmt.Errorf("temporary lifetime must be positive (got %s)", fc.temporaryLifetime)
	}

	return fc, nil
}

// EncryptID turns an id into an opaque url-safe token.
func (fc *FileCenter) EncryptID(id uuid.UUID) string {
	return fc.tokens.encrypt(id)
}

// DecryptIDToken recovers the id from a token made by EncryptID with the
// same secret. Malformed or forged tokens fail with ErrInvalidIDToken.
func (fc *FileCenter) DecryptIDToken(token string) (uuid.UUID, error) {
	return fc.tokens.decrypt(token)
}

// FileItemByID looks up a file item. It returns (nil, nil) when no file
// with that id exists or the file has expired.
//
// Temporary files can be retrieved once: the lookup removes them from the
// index, and their payload is released after it has been consumed.
func (fc *FileCenter) FileItemByID(ctx context.Context, id uuid.UUID) (*FileItem, error) {
	rec, err := fc.index.Get(ctx, id)
	if err != nil {
		if IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get file item %s: %w", id, err)
	}

	if rec.Expired(fc.now()) {
		if _, err := fc.remove(ctx, id); err != nil {
			return nil, err
		}
		return nil, nil
	}

	item := &FileItem{rec: rec, fc: fc}

	if rec.Temporary() {
		_, orphaned, err := fc.index.Delete(ctx, id)
		if err != nil {
			if IsNotExist(err) {
				// consumed by a concurrent lookup
				return nil, nil
			}
			return nil, fmt.Errorf("consume temporary file item %s: %w", id, err)
		}
		if orphaned {
			key := rec.BlobKey
			item.release = func(ctx context.Context) {
				fc.deleteUnreferencedBlob(ctx, key)
			}
		}
	}

	return item, nil
}

// DeleteFileItemByID removes a file item. It reports whether the item existed.
func (fc *FileCenter) DeleteFileItemByID(ctx context.Context, id uuid.UUID) (bool, error) {
	return fc.remove(ctx, id)
}

func (fc *FileCenter) remove(ctx context.Context, id uuid.UUID) (bool, error) {
	rec, orphaned, err := fc.index.Delete(ctx, id)
	if err != nil {
		if IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("delete file item %s: %w", id, err)
	}

	if orphaned {
		fc.deleteUnreferencedBlob(ctx, rec.BlobKey)
	}
	return true, nil
}

// deleteUnreferencedBlob deletes a blob unless a record or an upload in
// progress still references it. Failures are left to ClearGarbage.
func (fc *FileCenter) deleteUnreferencedBlob(ctx context.Context, key string) {
	if _, err := fc.deleteBlobIfUnreferenced(ctx, key); err != nil {
		fc.log.Warn("failed to delete blob", "key", key, "error", err)
	}
}

func (fc *FileCenter) deleteBlobIfUnreferenced(ctx context.Context, key string) (bool, error) {
	fc.blobMu.Lock()
	defer fc.blobMu.Unlock()

	if fc.pendingBlobs[key] > 0 {
		return false, nil
	}

	refs, err := fc.index.BlobRefs(ctx, key)
	if err != nil {
		return false, fmt.Errorf("count references of %s: %w", key, err)
	}
	if refs > 0 {
		return false, nil
	}

	if err := fc.store.Delete(ctx, key); err != nil {
		if IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// reserveBlob keeps key alive until releaseBlob, covering the window
// between deciding to reuse or commit a blob and indexing the record.
func (fc *FileCenter) reserveBlob(key string) {
	fc.blobMu.Lock()
	defer fc.blobMu.Unlock()
	fc.pendingBlobs[key]++
}

func (fc *FileCenter) releaseBlob(key string) {
	fc.blobMu.Lock()
	defer fc.blobMu.Unlock()
	if fc.pendingBlobs[key]--; fc.pendingBlobs[key] <= 0 {
		delete(fc.pendingBlobs, key)
	}
}

// ClearExpired removes every file item whose expiration time has passed and
// returns how many were removed.
func (fc *FileCenter) ClearExpired(ctx context.Context) (int, error) {
	ids, err := fc.index.Expired(ctx, fc.now())
	if err != nil {
		return 0, fmt.Errorf("list expired file items: %w", err)
	}

	removed := 0
	for _, id := range ids {
		ok, err := fc.remove(ctx, id)
		if err != nil {
			return removed, err
		}
		if ok {
			removed++
		}
	}
	return removed, nil
}

// ClearGarbage deletes blobs no file item references and staging objects
// left behind by interrupted uploads. It returns how many were deleted.
func (fc *FileCenter) ClearGarbage(ctx context.Context) (int, error) {
	deleted := 0

	blobs, err := fc.store.List(ctx, blobPrefix)
	if err != nil {
		return 0, fmt.Errorf("list blobs: %w", err)
	}
	for _, blob := range blobs {
		ok, err := fc.deleteBlobIfUnreferenced(ctx, blob.Key)
		if err != nil {
			return deleted, err
		}
		if ok {
			deleted++
		}
	}

	staged, err := fc.store.List(ctx, stagingPrefix)
	if err != nil {
		return deleted, fmt.Errorf("list staging objects: %w", err)
	}
	cutoff := fc.now().Add(-stagingGracePeriod)
	for _, obj := range staged {
		if obj.ModTime.After(cutoff) {
			continue
		}
		if err := fc.store.Delete(ctx, obj.Key); err != nil && !IsNotExist(err) {
			return deleted, err
		}
		deleted++
	}

	return deleted, nil
}

// StartSweeper runs ClearExpired every interval until ctx is cancelled or
// the file center is closed. Calling it again replaces the running sweeper.
func (fc *FileCenter) StartSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}

	fc.mu.Lock()
	defer fc.mu.Unlock()

	if fc.closed {
		return
	}
	fc.stopSweeperLocked()

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	fc.stopSweeper = cancel
	fc.sweeperDone = done

	go func() {
		defer close(done)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				n, err := fc.ClearExpired(ctx)
				if err != nil {
					if ctx.Err() == nil {
						fc.log.Error("failed to clear expired files", "error", err)
					}
					continue
				}
				if n > 0 {
					fc.log.Info("cleared expired files", "count", n)
				}
			}
		}
	}()
}

func (fc *FileCenter) stopSweeperLocked() {
	if fc.stopSweeper == nil {
		return
	}
	fc.stopSweeper()
	<-fc.sweeperDone
	fc.stopSweeper = nil
	fc.sweeperDone = nil
}

// Close stops the sweeper and closes the index and, if it holds resources,
// the blob store.
func (fc *FileCenter) Close() error {
	fc.mu.Lock()
	defer fc.mu.Unlock()

	if fc.closed {
		return nil
	}
	fc.closed = true
	fc.stopSweeperLocked()

	err := fc.index.Close()
	if c, ok := fc.store.(Closer); ok {
		err = errors.Join(err, c.Close())
	}
	return err
}
