// Package crypto encrypts drive session tokens at rest using AEAD
// (AES-256-GCM) with a key derived from the process secret via
// PBKDF2-HMAC-SHA256. It is the Go re-expression of this system's
// original Fernet-based token encryption: same key-derivation
// parameters, same "deterministic salt from the secret" trick, same
// lazy-decrypt-on-access usage pattern at the call site, and a format
// signature check that can tell a migrated legacy plaintext token from
// one this package produced.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"
	"sync"

	"golang.org/x/crypto/pbkdf2"
)

const (
	pbkdf2Iterations = 100_000
	keyLen           = 32 // AES-256
	nonceLen         = 12 // GCM standard nonce size

	// formatVersion is the single leading byte every ciphertext this
	// package produces carries, so IsEncrypted can recognize it without
	// attempting a decrypt.
	formatVersion byte = 0x01
)

// TokenCipher encrypts and decrypts tokens for storage. The zero value
// is not usable; construct with New. A TokenCipher is safe for
// concurrent use.
type TokenCipher struct {
	mu    sync.Mutex
	gcm   cipher.AEAD
	ready bool
}

// New derives a key from secret via PBKDF2-HMAC-SHA256 and returns a
// ready TokenCipher. secret is typically config.Config.SecretKey.
func New(secret string) (*TokenCipher, error) {
	if secret == "" {
		return nil, fmt.Errorf("crypto: secret key must not be empty")
	}

	salt := deterministicSalt(secret)
	key := pbkdf2.Key([]byte(secret), salt, pbkdf2Iterations, keyLen, sha256.New)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("crypto: new cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("crypto: new GCM: %w", err)
	}

	return &TokenCipher{gcm: gcm, ready: true}, nil
}

// deterministicSalt derives a fixed 16-byte salt from the secret itself,
// so the same secret always yields the same key across process
// restarts, matching the original's `secret[:16].ljust(16, 0)` scheme.
func deterministicSalt(secret string) []byte {
	salt := make([]byte, 16)
	copy(salt, secret)
	return salt
}

// Encrypt returns a base64-encoded ciphertext for plaintext, or "" if
// plaintext is "". The encoding is: formatVersion byte || nonce ||
// AEAD-sealed(plaintext), all base64 (URL encoding, no padding).
func (c *TokenCipher) Encrypt(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}

	nonce := make([]byte, nonceLen)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("crypto: generate nonce: %w", err)
	}

	c.mu.Lock()
	sealed := c.gcm.Seal(nil, nonce, []byte(plaintext), nil)
	c.mu.Unlock()

	out := make([]byte, 0, 1+len(nonce)+len(sealed))
	out = append(out, formatVersion)
	out = append(out, nonce...)
	out = append(out, sealed...)

	return base64.RawURLEncoding.EncodeToString(out), nil
}

// Decrypt reverses Encrypt. Returns "" for a "" ciphertext.
func (c *TokenCipher) Decrypt(ciphertext string) (string, error) {
	if ciphertext == "" {
		return "", nil
	}

	raw, err := base64.RawURLEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("crypto: decode ciphertext: %w", err)
	}
	if len(raw) < 1+nonceLen || raw[0] != formatVersion {
		return "", fmt.Errorf("crypto: unrecognized ciphertext format")
	}

	nonce := raw[1 : 1+nonceLen]
	sealed := raw[1+nonceLen:]

	c.mu.Lock()
	plaintext, err := c.gcm.Open(nil, nonce, sealed, nil)
	c.mu.Unlock()
	if err != nil {
		return "", fmt.Errorf("crypto: decrypt: %w", err)
	}

	return string(plaintext), nil
}

// IsEncrypted reports whether token looks like ciphertext this package
// produced, by checking the format-signature byte rather than
// attempting a decrypt. Used during migration to tell apart legacy
// plaintext tokens from already-encrypted ones.
func IsEncrypted(token string) bool {
	if token == "" {
		return false
	}
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return false
	}
	return len(raw) >= 1+nonceLen+16 && raw[0] == formatVersion
}
