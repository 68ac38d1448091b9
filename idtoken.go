package filecenter

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"
	"golang.org/x/crypto/hkdf"
)

const idTokenInfo = "filecenter id token v1"

// idTokenCipher encrypts file ids into opaque url-safe tokens with
// AES-256-GCM. A token is base64url(nonce || sealed id) without padding.
type idTokenCipher struct {
	aead cipher.AEAD
}

// newIDTokenCipher derives a 32 byte key from secret with HKDF-SHA256.
func newIDTokenCipher(secret []byte) (*idTokenCipher, error) {
	if len(secret) == 0 {
		return nil, errors.New("id token secret is empty")
	}

	key := make([]byte, 32)
	if _, err := io.ReadFull(hkdf.New(sha256.New, secret, nil, []byte(idTokenInfo)), key); err != nil {
		return nil, fmt.Errorf("failed to derive id token key: %w", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	return &idTokenCipher{aead: aead}, nil
}

func (c *idTokenCipher) encrypt(id uuid.UUID) string {
	nonce := make([]byte, c.aead.NonceSize(), c.aead.NonceSize()+len(id)+c.aead.Overhead())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		// crypto/rand does not fail on supported platforms
		panic(fmt.Sprintf("filecenter: reading random nonce: %v", err))
	}

	sealed := c.aead.Seal(nonce, nonce, id[:], nil)
	return base64.RawURLEncoding.EncodeToString(sealed)
}

func (c *idTokenCipher) decrypt(token string) (uuid.UUID, error) {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %v", ErrInvalidIDToken, err)
	}

	want := c.aead.NonceSize() + len(uuid.UUID{}) + c.aead.Overhead()
	if len(raw) != want {
		return uuid.Nil, fmt.Errorf("%w: length %d, want %d", ErrInvalidIDToken, len(raw), want)
	}

	nonce, sealed := raw[:c.aead.NonceSize()], raw[c.aead.NonceSize():]
	plain, err := c.aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %v", ErrInvalidIDToken, err)
	}

	return uuid.FromBytes(plain)
}
