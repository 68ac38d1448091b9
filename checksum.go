package filecenter

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"

	"github.com/cespare/xxhash/v2"
)

// Checksums of one payload. SHA256 addresses content for deduplication,
// XXHash is checked whenever the payload is read back.
type Checksums struct {
	SHA256 string
	XXHash uint64
}

// checksummer computes both checksums in a single pass over the data
// written to it.
type checksummer struct {
	sha256 hash.Hash
	xxhash *xxhash.Digest
	w      io.Writer
	n      int64
}

func newChecksummer() *checksummer {
	c := &checksummer{
		sha256: sha256.New(),
		xxhash: xxhash.New(),
	}
	c.w = io.MultiWriter(c.sha256, c.xxhash)
	return c
}

func (c *checksummer) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

// Sum returns the checksums of everything written so far.
func (c *checksummer) Sum() Checksums {
	return Checksums{
		SHA256: hex.EncodeToString(c.sha256.Sum(nil)),
		XXHash: c.xxhash.Sum64(),
	}
}

// CalculateChecksums reads r to the end and returns its checksums.
func CalculateChecksums(r io.Reader) (Checksums, error) {
	c := newChecksummer()
	if _, err := io.Copy(c, r); err != nil {
		return Checksums{}, fmt.Errorf("failed to calculate checksums: %w", err)
	}
	return c.Sum(), nil
}

// verifyBuffer checks data against the expected xxHash64.
func verifyBuffer(data []byte, expected uint64) error {
	if got := xxhash.Sum64(data); got != expected {
		return fmt.Errorf("%w: xxhash %016x, want %016x", ErrChecksumMismatch, got, expected)
	}
	return nil
}

// verifyingReader hashes everything read through it and reports
// ErrChecksumMismatch instead of io.EOF when the content does not match.
type verifyingReader struct {
	r        io.ReadCloser
	digest   *xxhash.Digest
	expected uint64
}

func newVerifyingReader(r io.ReadCloser, expected uint64) *verifyingReader {
	return &verifyingReader{r: r, digest: xxhash.New(), expected: expected}
}

func (v *verifyingReader) Read(p []byte) (int, error) {
	n, err := v.r.Read(p)
	if n > 0 {
		_, _ = v.digest.Write(p[:n])
	}
	if err == io.EOF {
		if got := v.digest.Sum64(); got != v.expected {
			return n, fmt.Errorf("%w: xxhash %016x, want %016x", ErrChecksumMismatch, got, v.expected)
		}
	}
	return n, err
}

func (v *verifyingReader) Close() error {
	return v.r.Close()
}
