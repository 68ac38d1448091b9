package filecenter

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// encryptedChunkSize is the plaintext size of every chunk but the last.
const encryptedChunkSize = 64 * 1024

// EncryptedStore is a BlobStore decorator that encrypts blobs at rest with
// AES-256-GCM.
//
// A blob is a random 12 byte base nonce followed by chunks, each framed as
// a flag byte, a big-endian uint32 ciphertext length and the ciphertext.
// Chunk i is sealed under the base nonce XOR i, and the flag (1 on the
// final chunk) is authenticated, so reordered, truncated or altered blobs
// fail to decrypt.
type EncryptedStore struct {
	BlobStore
	aead cipher.AEAD
}

// NewEncryptedStore wraps store. key must be 32 bytes.
func NewEncryptedStore(store BlobStore, key []byte) (*EncryptedStore, error) {
	if len(key) != 32 {
		return nil, fmt.Errorf("encryption key must be 32 bytes (got %d)", len(key))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	return &EncryptedStore{BlobStore: store, aead: aead}, nil
}

// Unwrap returns the underlying store.
func (e *EncryptedStore) Unwrap() BlobStore {
	return e.BlobStore
}

// Write encrypts content on the fly. The returned count is plaintext bytes.
func (e *EncryptedStore) Write(ctx context.Context, key string, content io.Reader) (int64, error) {
	sr := &sealingReader{aead: e.aead, src: content, plain: make([]byte, encryptedChunkSize)}
	if _, err := e.BlobStore.Write(ctx, key, sr); err != nil {
		return sr.n, err
	}
	return sr.n, nil
}

// Read decrypts the blob as it is read. Authentication failures surface
// as ErrChecksumMismatch.
func (e *EncryptedStore) Read(ctx context.Context, key string) (io.ReadCloser, error) {
	rc, err := e.BlobStore.Read(ctx, key)
	if err != nil {
		return nil, err
	}
	return &openingReader{aead: e.aead, src: rc, key: key}, nil
}

// Close closes the underlying store if it holds resources.
func (e *EncryptedStore) Close() error {
	if c, ok := e.BlobStore.(Closer); ok {
		return c.Close()
	}
	return nil
}

func chunkNonce(base []byte, counter uint64) []byte {
	nonce := make([]byte, len(base))
	copy(nonce, base)
	off := len(nonce) - 8
	binary.BigEndian.PutUint64(nonce[off:], binary.BigEndian.Uint64(nonce[off:])^counter)
	return nonce
}

// sealingReader yields the encrypted form of src.
type sealingReader struct {
	aead    cipher.AEAD
	src     io.Reader
	base    []byte
	counter uint64
	plain   []byte
	out     []byte
	n       int64
	done    bool
}

func (s *sealingReader) Read(p []byte) (int, error) {
	for len(s.out) == 0 {
		if s.done {
			return 0, io.EOF
		}
		if err := s.fill(); err != nil {
			return 0, err
		}
	}
	n := copy(p, s.out)
	s.out = s.out[n:]
	return n, nil
}

func (s *sealingReader) fill() error {
	var frame []byte
	if s.base == nil {
		s.base = make([]byte, s.aead.NonceSize())
		if _, err := io.ReadFull(rand.Reader, s.base); err != nil {
			return err
		}
		frame = append(frame, s.base...)
	}

	n, err := io.ReadFull(s.src, s.plain)
	final := false
	switch {
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		final = true
	case err != nil:
		return err
	}
	s.n += int64(n)

	var flag byte
	if final {
		flag = 1
		s.done = true
	}

	sealed := s.aead.Seal(nil, chunkNonce(s.base, s.counter), s.plain[:n], []byte{flag})
	s.counter++

	var hdr [5]byte
	hdr[0] = flag
	binary.BigEndian.PutUint32(hdr[1:], uint32(len(sealed)))
	frame = append(frame, hdr[:]...)
	s.out = append(frame, sealed...)
	return nil
}

// openingReader yields the plaintext of an encrypted blob.
type openingReader struct {
	aead    cipher.AEAD
	src     io.ReadCloser
	key     string
	base    []byte
	counter uint64
	out     []byte
	done    bool
	err     error
}

func (o *openingReader) Read(p []byte) (int, error) {
	for len(o.out) == 0 {
		if o.done {
			return 0, io.EOF
		}
		if o.err != nil {
			return 0, o.err
		}
		if err := o.next(); err != nil {
			o.err = NewPathError("decrypt", o.key, err)
			return 0, o.err
		}
	}
	n := copy(p, o.out)
	o.out = o.out[n:]
	return n, nil
}

func (o *openingReader) next() error {
	if o.base == nil {
		base := make([]byte, o.aead.NonceSize())
		if _, err := io.ReadFull(o.src, base); err != nil {
			return truncated(err)
		}
		o.base = base
	}

	var hdr [5]byte
	if _, err := io.ReadFull(o.src, hdr[:]); err != nil {
		return truncated(err)
	}
	size := binary.BigEndian.Uint32(hdr[1:])
	if hdr[0] > 1 || size > encryptedChunkSize+uint32(o.aead.Overhead()) {
		return fmt.Errorf("%w: malformed chunk header", ErrChecksumMismatch)
	}

	sealed := make([]byte, size)
	if _, err := io.ReadFull(o.src, sealed); err != nil {
		return truncated(err)
	}

	plain, err := o.aead.Open(sealed[:0], chunkNonce(o.base, o.counter), sealed, hdr[:1])
	if err != nil {
		return fmt.Errorf("%w: chunk %d failed authentication", ErrChecksumMismatch, o.counter)
	}
	o.counter++
	o.out = plain
	o.done = hdr[0] == 1
	return nil
}

func truncated(err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("%w: blob is truncated", ErrChecksumMismatch)
	}
	return err
}

func (o *openingReader) Close() error {
	return o.src.Close()
}

var _ BlobStore = (*EncryptedStore)(nil)
