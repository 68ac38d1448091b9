// Package indextest is a conformance suite for filecenter.Index
// implementations.
package indextest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/gobeaver/filecenter"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
)

func record(blobKey string, expiresAt *time.Time) *filecenter.Record {
	return &filecenter.Record{
		ID:        uuid.New(),
		FileName:  "report.pdf",
		MimeType:  "application/pdf",
		Size:      42,
		SHA256:    "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855",
		XXHash:    17241709254077376921,
		BlobKey:   blobKey,
		CreatedAt: time.Now().UTC().Truncate(time.Second),
		ExpiresAt: expiresAt,
	}
}

// Run exercises an index created fresh by newIndex for every subtest.
func Run(t *testing.T, newIndex func(t *testing.T) filecenter.Index) {
	ctx := context.Background()

	t.Run("put then get", func(t *testing.T) {
		req := require.New(t)
		idx := newIndex(t)

		rec := record("", nil)
		rec.Inline = []byte("inline payload")
		req.NoError(idx.Put(ctx, rec))

		got, err := idx.Get(ctx, rec.ID)
		req.NoError(err)
		req.Equal(rec.ID, got.ID)
		req.Equal(rec.FileName, got.FileName)
		req.Equal(rec.MimeType, got.MimeType)
		req.Equal(rec.Size, got.Size)
		req.Equal(rec.SHA256, got.SHA256)
		req.Equal(rec.XXHash, got.XXHash)
		req.Equal(rec.Inline, got.Inline)
		req.True(rec.CreatedAt.Equal(got.CreatedAt))
		req.Nil(got.ExpiresAt)
	})

	t.Run("get missing", func(t *testing.T) {
		idx := newIndex(t)

		_, err := idx.Get(ctx, uuid.New())
		require.ErrorIs(t, err, filecenter.ErrNotExist)
	})

	t.Run("put duplicate id", func(t *testing.T) {
		req := require.New(t)
		idx := newIndex(t)

		rec := record("blobs/a", nil)
		req.NoError(idx.Put(ctx, rec))
		req.ErrorIs(idx.Put(ctx, rec), filecenter.ErrExist)

		refs, err := idx.BlobRefs(ctx, "blobs/a")
		req.NoError(err)
		req.Equal(1, refs, "failed put must not count a reference")
	})

	t.Run("blob reference counting", func(t *testing.T) {
		req := require.New(t)
		idx := newIndex(t)

		first := record("blobs/shared", nil)
		second := record("blobs/shared", nil)
		req.NoError(idx.Put(ctx, first))
		req.NoError(idx.Put(ctx, second))

		refs, err := idx.BlobRefs(ctx, "blobs/shared")
		req.NoError(err)
		req.Equal(2, refs)

		_, orphaned, err := idx.Delete(ctx, first.ID)
		req.NoError(err)
		req.False(orphaned)

		deleted, orphaned, err := idx.Delete(ctx, second.ID)
		req.NoError(err)
		req.True(orphaned)
		req.Equal(second.ID, deleted.ID)

		refs, err = idx.BlobRefs(ctx, "blobs/shared")
		req.NoError(err)
		req.Zero(refs)
	})

	t.Run("delete missing", func(t *testing.T) {
		idx := newIndex(t)

		_, _, err := idx.Delete(ctx, uuid.New())
		require.ErrorIs(t, err, filecenter.ErrNotExist)
	})

	t.Run("inline records never orphan", func(t *testing.T) {
		req := require.New(t)
		idx := newIndex(t)

		rec := record("", nil)
		req.NoError(idx.Put(ctx, rec))

		_, orphaned, err := idx.Delete(ctx, rec.ID)
		req.NoError(err)
		req.False(orphaned)
	})

	t.Run("expired", func(t *testing.T) {
		req := require.New(t)
		idx := newIndex(t)
		now := time.Now()

		past := record("", lo.ToPtr(now.Add(-time.Minute)))
		exact := record("", lo.ToPtr(now))
		future := record("", lo.ToPtr(now.Add(time.Minute)))
		permanent := record("", nil)
		for _, r := range []*filecenter.Record{past, exact, future, permanent} {
			req.NoError(idx.Put(ctx, r))
		}

		ids, err := idx.Expired(ctx, now)
		req.NoError(err)
		req.ElementsMatch([]uuid.UUID{past.ID, exact.ID}, ids)

		_, _, err = idx.Delete(ctx, past.ID)
		req.NoError(err)

		ids, err = idx.Expired(ctx, now)
		req.NoError(err)
		req.Equal([]uuid.UUID{exact.ID}, ids)
	})

	t.Run("concurrent delete has one winner", func(t *testing.T) {
		req := require.New(t)
		idx := newIndex(t)

		rec := record("blobs/once", lo.ToPtr(time.Now().Add(time.Hour)))
		req.NoError(idx.Put(ctx, rec))

		var (
			wg      sync.WaitGroup
			mu      sync.Mutex
			winners int
		)
		for n := 0; n < 8; n++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, _, err := idx.Delete(ctx, rec.ID); err == nil {
					mu.Lock()
					winners++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()

		req.Equal(1, winners)
	})

	t.Run("closed", func(t *testing.T) {
		idx := newIndex(t)
		require.NoError(t, idx.Close())

		_, err := idx.Get(ctx, uuid.New())
		require.ErrorIs(t, err, filecenter.ErrClosed)
	})
}
