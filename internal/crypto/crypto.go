// Package crypto implements password-based authenticated encryption for
// backup blobs. It has no knowledge of the data model: both sides of the
// API are opaque byte buffers.
//
// Wire format (fixed-size fields, ciphertext trails to end of buffer):
//
//	salt(16) ‖ nonce(12) ‖ ciphertext ‖ tag(16)
//
// The salt and nonce are stored in the clear beside the ciphertext. This is
// safe by construction: GCM nonces must be unique per key, never secret, and
// PBKDF2 salts are public by design. Storing them inline keeps the format
// self-contained with no outer container or magic number.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"io"

	"golang.org/x/crypto/pbkdf2"

	"sam-backup/internal/errors"
)

const (
	// SaltSize is the PBKDF2 salt length in bytes
	SaltSize = 16
	// NonceSize is the GCM nonce length in bytes
	NonceSize = 12
	// TagSize is the GCM authentication tag length in bytes
	TagSize = 16
	// KeySize is the derived AES key length in bytes (AES-256)
	KeySize = 32
	// Iterations is the PBKDF2 iteration count. Intentionally slow to
	// raise the cost of offline password guessing; callers should run
	// Encrypt/Decrypt off any latency-sensitive thread.
	Iterations = 100000

	// MinBlobSize is the smallest structurally valid blob: full header
	// and tag with an empty ciphertext
	MinBlobSize = SaltSize + NonceSize + TagSize
)

// Engine performs password-based AES-256-GCM encryption and decryption.
// Every call is independent and draws fresh randomness; an Engine is safe
// for concurrent use.
type Engine struct{}

// NewEngine creates a new crypto engine
func NewEngine() *Engine {
	return &Engine{}
}

// Encrypt seals plaintext under a key derived from password. The returned
// blob is exactly SaltSize+NonceSize+TagSize bytes larger than plaintext.
// A fresh salt and nonce are drawn from a cryptographically secure source
// on every call, so encrypting the same input twice yields different blobs.
func (e *Engine) Encrypt(plaintext []byte, password string) ([]byte, error) {
	salt := make([]byte, SaltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, errors.NewSerializationError("failed to generate salt", err)
	}

	nonce := make([]byte, NonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, errors.NewSerializationError("failed to generate nonce", err)
	}

	gcm, err := newGCM(password, salt)
	if err != nil {
		return nil, err
	}

	// Seal appends ciphertext||tag to the header, yielding the final
	// salt||nonce||ciphertext||tag layout in one allocation
	blob := make([]byte, 0, SaltSize+NonceSize+len(plaintext)+TagSize)
	blob = append(blob, salt...)
	blob = append(blob, nonce...)
	blob = gcm.Seal(blob, nonce, plaintext, nil)

	return blob, nil
}

// Decrypt reverses Encrypt. It fails with an invalid-file error if the blob
// is too short to contain the fixed header and tag, and with a
// wrong-password error if authentication fails for any reason. An incorrect
// password and a tampered blob are cryptographically indistinguishable and
// are reported identically.
func (e *Engine) Decrypt(blob []byte, password string) ([]byte, error) {
	if len(blob) < MinBlobSize {
		return nil, errors.NewInvalidFileError("blob too short to contain header and tag", nil).
			WithContext("size", len(blob)).
			WithContext("minimum", MinBlobSize)
	}

	salt := blob[:SaltSize]
	nonce := blob[SaltSize : SaltSize+NonceSize]
	sealed := blob[SaltSize+NonceSize:]

	gcm, err := newGCM(password, salt)
	if err != nil {
		return nil, err
	}

	plaintext, err := gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, errors.NewWrongPasswordError("authentication failed", err)
	}

	// gcm.Open returns nil for empty plaintext; normalize so round trips
	// compare equal
	if plaintext == nil {
		plaintext = []byte{}
	}
	return plaintext, nil
}

// newGCM derives a 256-bit key from password and salt with
// PBKDF2-HMAC-SHA256 and wraps it in an AES-GCM AEAD
func newGCM(password string, salt []byte) (cipher.AEAD, error) {
	key := pbkdf2.Key([]byte(password), salt, Iterations, KeySize, sha256.New)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, errors.NewSerializationError("failed to create AES cipher", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, errors.NewSerializationError("failed to create GCM cipher", err)
	}

	return gcm, nil
}
