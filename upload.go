package filecenter

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// ProgressFunc is a callback function for upload progress
type ProgressFunc func(bytesTransferred int64)

// PutFile stores the content of r and returns a handle to the new item.
func (fc *FileCenter) PutFile(ctx context.Context, r io.Reader, options ...PutOption) (*FileItem, error) {
	opts := processPutOptions(options...)
	if opts.Progress != nil {
		r = &progressReader{reader: r, progress: opts.Progress}
	}

	now := fc.now().UTC()
	rec := &Record{
		ID:        uuid.New(),
		FileName:  opts.FileName,
		CreatedAt: now,
	}
	switch {
	case opts.ExpiresAt != nil:
		expiresAt := opts.ExpiresAt.UTC()
		rec.ExpiresAt = &expiresAt
	case opts.TTL > 0:
		expiresAt := now.Add(opts.TTL)
		rec.ExpiresAt = &expiresAt
	}

	// Read one byte past the threshold to learn whether the file fits inline
	head := make([]byte, fc.bufferThreshold+1)
	n, err := io.ReadFull(r, head)
	inline := errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF)
	if err != nil && !inline {
		return nil, fmt.Errorf("read content: %w", err)
	}
	head = head[:n]

	if opts.MimeType != "" {
		rec.MimeType = CanonicalMimeType(opts.MimeType)
	} else {
		rec.MimeType = GuessMimeType(opts.FileName, head)
	}

	if inline {
		if fc.maxFileSize > 0 && int64(n) > fc.maxFileSize {
			return nil, ErrFileTooLarge
		}
		sums, err := CalculateChecksums(bytes.NewReader(head))
		if err != nil {
			return nil, err
		}
		rec.Inline = head
		rec.Size = uint64(n)
		rec.SHA256 = sums.SHA256
		rec.XXHash = sums.XXHash
	} else {
		if err := fc.putBlob(ctx, rec, io.MultiReader(bytes.NewReader(head), r)); err != nil {
			return nil, err
		}
	}

	err = fc.index.Put(ctx, rec)
	if rec.BlobKey != "" {
		fc.releaseBlob(rec.BlobKey)
		if err != nil {
			fc.deleteUnreferencedBlob(context.WithoutCancel(ctx), rec.BlobKey)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("index file item %s: %w", rec.ID, err)
	}

	return &FileItem{rec: rec, fc: fc}, nil
}

// putBlob streams content to a staging key while hashing it, then moves it
// to its content-addressed key unless an identical blob already exists.
// On success the blob stays reserved; the caller releases it once the
// record is indexed.
func (fc *FileCenter) putBlob(ctx context.Context, rec *Record, content io.Reader) error {
	if fc.maxFileSize > 0 {
		content = io.LimitReader(content, fc.maxFileSize+1)
	}

	sum := newChecksummer()
	staging := stagingPrefix + uuid.NewString()

	written, err := fc.store.Write(ctx, staging, io.TeeReader(content, sum))
	if err != nil {
		fc.discardStaging(staging)
		return fmt.Errorf("write content: %w", err)
	}
	if fc.maxFileSize > 0 && written > fc.maxFileSize {
		fc.discardStaging(staging)
		return ErrFileTooLarge
	}

	sums := sum.Sum()
	key := blobPrefix + sums.SHA256

	fc.reserveBlob(key)

	exists, err := fc.store.Exists(ctx, key)
	if err != nil {
		fc.releaseBlob(key)
		fc.discardStaging(staging)
		return fmt.Errorf("check blob %s: %w", key, err)
	}
	if exists {
		fc.discardStaging(staging)
	} else if err := fc.store.Move(ctx, staging, key); err != nil {
		fc.releaseBlob(key)
		fc.discardStaging(staging)
		return fmt.Errorf("commit blob %s: %w", key, err)
	}

	rec.BlobKey = key
	rec.Size = uint64(written)
	rec.SHA256 = sums.SHA256
	rec.XXHash = sums.XXHash
	return nil
}

func (fc *FileCenter) discardStaging(key string) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := fc.store.Delete(ctx, key); err != nil && !IsNotExist(err) {
		fc.log.Warn("failed to discard staging object", "key", key, "error", err)
	}
}

// PutFileByPath stores a local file. The file's base name is used as the
// item's name unless WithFileName is given.
func (fc *FileCenter) PutFileByPath(ctx context.Context, path string, options ...PutOption) (*FileItem, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &PathError{Op: "putfile", Path: path, Err: err}
	}
	defer f.Close()

	options = append([]PutOption{WithFileName(filepath.Base(path))}, options...)
	return fc.PutFile(ctx, f, options...)
}

// PutFileTemporarily stores a file that expires after the file center's
// temporary lifetime and can be retrieved only once.
func (fc *FileCenter) PutFileTemporarily(ctx context.Context, r io.Reader, options ...PutOption) (*FileItem, error) {
	options = append([]PutOption{WithTTL(fc.temporaryLifetime)}, options...)
	return fc.PutFile(ctx, r, options...)
}

// PutFileByPathTemporarily is PutFileByPath for temporary files.
func (fc *FileCenter) PutFileByPathTemporarily(ctx context.Context, path string, options ...PutOption) (*FileItem, error) {
	options = append([]PutOption{WithTTL(fc.temporaryLifetime)}, options...)
	return fc.PutFileByPath(ctx, path, options...)
}

// progressReader is a reader that reports progress
type progressReader struct {
	reader    io.Reader
	progress  ProgressFunc
	bytesRead int64
}

func (r *progressReader) Read(p []byte) (int, error) {
	n, err := r.reader.Read(p)
	if n > 0 {
		r.bytesRead += int64(n)
		r.progress(r.bytesRead)
	}
	return n, err
}
