package local

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gobeaver/filecenter"
)

// Adapter provides a local filesystem implementation of filecenter.BlobStore.
// Keys map to slash-separated paths below root.
type Adapter struct {
	root string
}

// New creates a new local filesystem adapter
func New(root string) (*Adapter, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	// Ensure the root directory exists
	if err := os.MkdirAll(absRoot, 0755); err != nil {
		return nil, err
	}

	return &Adapter{
		root: absRoot,
	}, nil
}

// Root returns the absolute directory blobs are stored under.
func (a *Adapter) Root() string {
	return a.root
}

// resolve maps a key to its absolute path and rejects keys escaping root.
func (a *Adapter) resolve(op, key string) (string, error) {
	if strings.TrimLeft(key, "/") == "" {
		return "", filecenter.NewPathError(op, key, filecenter.ErrNotAllowed)
	}

	fullPath := filepath.Join(a.root, filepath.FromSlash(filepath.Clean("/"+key)))
	if !isPathUnderRoot(a.root, fullPath) || strings.Contains(key, "..") {
		return "", filecenter.NewPathError(op, key, filecenter.ErrNotAllowed)
	}
	return fullPath, nil
}

// Write implements filecenter.BlobWriter. Content lands in a temporary file
// that is renamed into place, so readers never observe a partial blob.
func (a *Adapter) Write(ctx context.Context, key string, content io.Reader) (int64, error) {
	select {
	case <-ctx.Done():
		return 0, ctx.Err()
	default:
	}

	fullPath, err := a.resolve("write", key)
	if err != nil {
		return 0, err
	}

	dir := filepath.Dir(fullPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return 0, filecenter.NewPathError("write", key, err)
	}

	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return 0, filecenter.NewPathError("write", key, err)
	}
	tmpName := tmp.Name()

	n, err := io.Copy(tmp, &ctxReader{ctx: ctx, r: content})
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(tmpName)
		return n, filecenter.NewPathError("write", key, err)
	}

	if err := os.Chmod(tmpName, 0644); err != nil {
		_ = os.Remove(tmpName)
		return n, filecenter.NewPathError("write", key, err)
	}

	if err := os.Rename(tmpName, fullPath); err != nil {
		_ = os.Remove(tmpName)
		return n, filecenter.NewPathError("write", key, err)
	}

	return n, nil
}

// Read implements filecenter.BlobReader
func (a *Adapter) Read(ctx context.Context, key string) (io.ReadCloser, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	fullPath, err := a.resolve("read", key)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(fullPath)
	if err != nil {
		return nil, mapError("read", key, err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, filecenter.NewPathError("read", key, err)
	}
	if info.IsDir() {
		f.Close()
		return nil, filecenter.NewPathError("read", key, filecenter.ErrNotExist)
	}

	return f, nil
}

// Delete implements filecenter.BlobWriter
func (a *Adapter) Delete(ctx context.Context, key string) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	fullPath, err := a.resolve("delete", key)
	if err != nil {
		return err
	}

	if err := os.Remove(fullPath); err != nil {
		return mapError("delete", key, err)
	}

	a.pruneEmptyDirs(filepath.Dir(fullPath))
	return nil
}

// Exists implements filecenter.BlobReader
func (a *Adapter) Exists(ctx context.Context, key string) (bool, error) {
	select {
	case <-ctx.Done():
		return false, ctx.Err()
	default:
	}

	fullPath, err := a.resolve("exists", key)
	if err != nil {
		return false, err
	}

	info, err := os.Stat(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, filecenter.NewPathError("exists", key, err)
	}

	// Directories are an artifact of key layout, not blobs
	return !info.IsDir(), nil
}

// Stat implements filecenter.BlobReader
func (a *Adapter) Stat(ctx context.Context, key string) (*filecenter.BlobInfo, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	fullPath, err := a.resolve("stat", key)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(fullPath)
	if err != nil {
		return nil, mapError("stat", key, err)
	}
	if info.IsDir() {
		return nil, filecenter.NewPathError("stat", key, filecenter.ErrNotExist)
	}

	return &filecenter.BlobInfo{
		Key:     strings.TrimLeft(key, "/"),
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}, nil
}

// List implements filecenter.BlobReader. Every regular file whose key starts
// with prefix is returned, sorted by key.
func (a *Adapter) List(ctx context.Context, prefix string) ([]filecenter.BlobInfo, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	prefix = strings.TrimLeft(prefix, "/")

	// Walk only the deepest directory the prefix pins down
	walkRoot := a.root
	if i := strings.LastIndex(prefix, "/"); i >= 0 {
		dir, err := a.resolve("list", prefix[:i])
		if err != nil {
			return nil, err
		}
		walkRoot = dir
	}

	var blobs []filecenter.BlobInfo
	err := filepath.WalkDir(walkRoot, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), ".tmp-") {
			return nil
		}

		rel, err := filepath.Rel(a.root, p)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if !strings.HasPrefix(key, prefix) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}

		blobs = append(blobs, filecenter.BlobInfo{
			Key:     key,
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
		return nil
	})
	if err != nil {
		return nil, filecenter.NewPathError("list", prefix, err)
	}

	sort.Slice(blobs, func(i, j int) bool {
		return blobs[i].Key < blobs[j].Key
	})

	return blobs, nil
}

// Move implements filecenter.BlobWriter for native file renaming.
func (a *Adapter) Move(ctx context.Context, src, dst string) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	srcPath, err := a.resolve("move", src)
	if err != nil {
		return err
	}
	dstPath, err := a.resolve("move", dst)
	if err != nil {
		return err
	}

	// Check source exists
	if _, err := os.Stat(srcPath); err != nil {
		return mapError("move", src, err)
	}

	// Create destination directory if needed
	if err := os.MkdirAll(filepath.Dir(dstPath), 0755); err != nil {
		return filecenter.NewPathError("move", dst, err)
	}

	if err := os.Rename(srcPath, dstPath); err != nil {
		return filecenter.NewPathError("move", src, err)
	}

	a.pruneEmptyDirs(filepath.Dir(srcPath))
	return nil
}

// pruneEmptyDirs removes empty parent directories up to, not including, root.
func (a *Adapter) pruneEmptyDirs(dir string) {
	for dir != a.root && isPathUnderRoot(a.root, dir) {
		if err := os.Remove(dir); err != nil {
			return
		}
		dir = filepath.Dir(dir)
	}
}

// isPathUnderRoot checks if a path is under the root directory
func isPathUnderRoot(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}

	return !filepath.IsAbs(rel) && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func mapError(op, key string, err error) error {
	if os.IsNotExist(err) {
		return filecenter.NewPathError(op, key, filecenter.ErrNotExist)
	}
	return filecenter.NewPathError(op, key, err)
}

// ctxReader stops copying once ctx is done.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (r *ctxReader) Read(p []byte) (int, error) {
	if err := r.ctx.Err(); err != nil {
		return 0, err
	}
	return r.r.Read(p)
}

// Ensure Adapter implements interfaces
var (
	_ filecenter.BlobStore = (*Adapter)(nil)
)
