// Package filecenter stores files for later download and hands out opaque
// id tokens that resolve back to them.
//
// Metadata lives in an [Index]; payload bytes live in a [BlobStore]. Files
// up to the buffer threshold are kept inline in the index record, larger
// ones are written to the blob store under a content-addressed key and
// shared between items with identical content.
//
// # Blob Drivers
//
// Drivers register themselves with [RegisterDriver] when imported:
//
//   - In-memory (github.com/gobeaver/filecenter/driver/memory)
//   - Local filesystem (github.com/gobeaver/filecenter/driver/local)
//   - Amazon S3 (github.com/gobeaver/filecenter/driver/s3)
//
// The BadgerDB index (github.com/gobeaver/filecenter/index/badgerindex)
// registers itself with [RegisterIndex] the same way. The in-memory index
// is always available.
//
// # Basic Usage
//
//	fc, err := filecenter.NewFileCenter(memory.New(), filecenter.NewMemoryIndex(), secret)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer fc.Close()
//
//	item, err := fc.PutFile(ctx, r, filecenter.WithFileName("report.pdf"))
//	token := fc.EncryptID(item.ID())
//
//	// later, from a request
//	id, err := fc.DecryptIDToken(token)
//	item, err = fc.FileItemByID(ctx, id) // nil, nil when missing or expired
//	data, err := item.IntoFileData(ctx)
//
// Package github.com/gobeaver/filecenter/download turns a [FileItem] into
// an HTTP download response.
//
// # Temporary Files
//
// [FileCenter.PutFileTemporarily] stores a file that expires after the
// configured lifetime and can be looked up exactly once. Expired files are
// never returned and are removed by [FileCenter.ClearExpired], which the
// sweeper started by [New] runs periodically.
//
// # Decorators
//
//	// Cache index lookups
//	idx := filecenter.NewCachingIndex(index, filecenter.NewMemoryCache(), 5*time.Minute)
//
//	// Encrypt blobs at rest (AES-256-GCM)
//	store, err := filecenter.NewEncryptedStore(store, key)
//
// # Error Handling
//
//	_, err := store.Read(ctx, "blobs/missing")
//	if filecenter.IsNotExist(err) {
//	    // blob does not exist
//	}
//
//	var pathErr *filecenter.PathError
//	if errors.As(err, &pathErr) {
//	    fmt.Printf("Operation: %s, Key: %s\n", pathErr.Op, pathErr.Path)
//	}
//
// # Configuration
//
// [New] builds a file center from a [Config], usually loaded from
// environment variables with the BEAVER_FILECENTER_ prefix:
//
//	BEAVER_FILECENTER_DRIVER=local
//	BEAVER_FILECENTER_LOCAL_BASE_PATH=/var/lib/filecenter/blobs
//	BEAVER_FILECENTER_INDEX=badger
//	BEAVER_FILECENTER_INDEX_PATH=/var/lib/filecenter/index
//	BEAVER_FILECENTER_ID_TOKEN_SECRET=...
//
//	fc, err := filecenter.NewFromEnv()
package filecenter
