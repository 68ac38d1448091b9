// Package badgerindex is a persistent filecenter.Index backed by BadgerDB.
//
// Keys are laid out as:
//
//	item:{uuid}                     JSON encoded filecenter.Record
//	blob:{blob key}                 big-endian uint64 reference count
//	exp:{unix nano padded}:{uuid}   empty, orders temporary items by expiry
//
// The 19-digit zero padding keeps expiration keys in chronological order, so
// Expired is a bounded prefix scan.
package badgerindex

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/gobeaver/filecenter"
	"github.com/google/uuid"
)

const (
	itemPrefix   = "item:"
	blobPrefix   = "blob:"
	expiryPrefix = "exp:"

	maxConflictRetries = 10
)

// Index implements filecenter.Index on a badger database
type Index struct {
	db  *badger.DB
	log *slog.Logger
}

// Open opens or creates a badger database in dir.
func Open(dir string, log *slog.Logger) (*Index, error) {
	if log == nil {
		log = slog.Default()
	}
	db, err := badger.Open(badger.DefaultOptions(dir).WithLogger(newLogger(log)))
	if err != nil {
		return nil, fmt.Errorf("open badger index %s: %w", dir, err)
	}
	return New(db, log), nil
}

// OpenInMemory opens a badger database that never touches disk.
func OpenInMemory(log *slog.Logger) (*Index, error) {
	if log == nil {
		log = slog.Default()
	}
	db, err := badger.Open(badger.DefaultOptions("").WithInMemory(true).WithLogger(newLogger(log)))
	if err != nil {
		return nil, fmt.Errorf("open in-memory badger index: %w", err)
	}
	return New(db, log), nil
}

// New wraps an already open database. Close closes db.
func New(db *badger.DB, log *slog.Logger) *Index {
	if log == nil {
		log = slog.Default()
	}
	return &Index{db: db, log: log}
}

func itemKey(id uuid.UUID) []byte {
	return []byte(itemPrefix + id.String())
}

func blobKey(key string) []byte {
	return []byte(blobPrefix + key)
}

func expiryKey(at time.Time, id uuid.UUID) []byte {
	return []byte(fmt.Sprintf("%s%019d:%s", expiryPrefix, at.UnixNano(), id))
}

// update runs fn in a read-write transaction, retrying on write conflicts.
func (i *Index) update(ctx context.Context, fn func(txn *badger.Txn) error) error {
	var err error
	for attempt := 0; attempt < maxConflictRetries; attempt++ {
		if cerr := ctx.Err(); cerr != nil {
			return cerr
		}
		err = i.db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			return mapError(err)
		}
		i.log.Debug("badger transaction conflict, retrying", "attempt", attempt+1)
	}
	return mapError(err)
}

func (i *Index) view(ctx context.Context, fn func(txn *badger.Txn) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return mapError(i.db.View(fn))
}

func mapError(err error) error {
	if errors.Is(err, badger.ErrDBClosed) {
		return filecenter.ErrClosed
	}
	return err
}

func getRecord(txn *badger.Txn, id uuid.UUID) (*filecenter.Record, error) {
	item, err := txn.Get(itemKey(id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, filecenter.ErrNotExist
	}
	if err != nil {
		return nil, err
	}

	var rec filecenter.Record
	err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, &rec)
	})
	if err != nil {
		return nil, fmt.Errorf("decode record %s: %w", id, err)
	}
	return &rec, nil
}

func getRefs(txn *badger.Txn, key string) (uint64, error) {
	item, err := txn.Get(blobKey(key))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	var refs uint64
	err = item.Value(func(val []byte) error {
		if len(val) != 8 {
			return fmt.Errorf("corrupt reference count for %s", key)
		}
		refs = binary.BigEndian.Uint64(val)
		return nil
	})
	return refs, err
}

func setRefs(txn *badger.Txn, key string, refs uint64) error {
	if refs == 0 {
		return txn.Delete(blobKey(key))
	}
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], refs)
	return txn.Set(blobKey(key), buf[:])
}

// Get implements filecenter.Index
func (i *Index) Get(ctx context.Context, id uuid.UUID) (*filecenter.Record, error) {
	var rec *filecenter.Record
	err := i.view(ctx, func(txn *badger.Txn) error {
		var err error
		rec, err = getRecord(txn, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// Put implements filecenter.Index
func (i *Index) Put(ctx context.Context, rec *filecenter.Record) error {
	val, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode record %s: %w", rec.ID, err)
	}

	return i.update(ctx, func(txn *badger.Txn) error {
		_, err := txn.Get(itemKey(rec.ID))
		if err == nil {
			return filecenter.ErrExist
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}

		if err := txn.Set(itemKey(rec.ID), val); err != nil {
			return err
		}
		if rec.ExpiresAt != nil {
			if err := txn.Set(expiryKey(*rec.ExpiresAt, rec.ID), nil); err != nil {
				return err
			}
		}
		if rec.BlobKey != "" {
			refs, err := getRefs(txn, rec.BlobKey)
			if err != nil {
				return err
			}
			return setRefs(txn, rec.BlobKey, refs+1)
		}
		return nil
	})
}

// Delete implements filecenter.Index
func (i *Index) Delete(ctx context.Context, id uuid.UUID) (*filecenter.Record, bool, error) {
	var (
		rec      *filecenter.Record
		orphaned bool
	)
	err := i.update(ctx, func(txn *badger.Txn) error {
		// Reset on retry
		rec, orphaned = nil, false

		var err error
		rec, err = getRecord(txn, id)
		if err != nil {
			return err
		}

		if err := txn.Delete(itemKey(id)); err != nil {
			return err
		}
		if rec.ExpiresAt != nil {
			if err := txn.Delete(expiryKey(*rec.ExpiresAt, id)); err != nil {
				return err
			}
		}
		if rec.BlobKey == "" {
			return nil
		}

		refs, err := getRefs(txn, rec.BlobKey)
		if err != nil {
			return err
		}
		if refs > 0 {
			refs--
		}
		orphaned = refs == 0
		return setRefs(txn, rec.BlobKey, refs)
	})
	if err != nil {
		return nil, false, err
	}
	return rec, orphaned, nil
}

// Expired implements filecenter.Index
func (i *Index) Expired(ctx context.Context, now time.Time) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := i.view(ctx, func(txn *badger.Txn) error {
		prefix := []byte(expiryPrefix)
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		// Everything up to and including now sorts before this bound
		bound := fmt.Sprintf("%s%019d:", expiryPrefix, now.UnixNano()+1)

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			key := string(it.Item().Key())
			if key >= bound {
				break
			}

			rest := key[len(expiryPrefix):]
			if len(rest) < 21 {
				continue
			}
			id, err := uuid.Parse(rest[20:])
			if err != nil {
				i.log.Warn("skipping malformed expiry key", "key", key, "error", err)
				continue
			}
			ids = append(ids, id)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// BlobRefs implements filecenter.Index
func (i *Index) BlobRefs(ctx context.Context, key string) (int, error) {
	var refs uint64
	err := i.view(ctx, func(txn *badger.Txn) error {
		var err error
		refs, err = getRefs(txn, key)
		return err
	})
	if err != nil {
		return 0, err
	}
	return int(refs), nil
}

// Close implements filecenter.Index
func (i *Index) Close() error {
	return i.db.Close()
}

var _ filecenter.Index = (*Index)(nil)
