// Package adaptive provides adaptive authenticated encryption.
//
// It selects the optimal cipher based on hardware capabilities:
// AES-GCM when hardware AES is available, ChaCha20-Poly1305 otherwise.
// BoardMesh uses it to encrypt document snapshots at rest in the
// embedded store.
package adaptive

import (
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"io"
	"runtime"
)

// CipherType identifies the cipher algorithm.
type CipherType string

const (
	CipherAESGCM   CipherType = "aes-gcm"
	CipherChaCha20 CipherType = "chacha20-poly1305"
)

// KeySize is the required key size in bytes.
const KeySize = 32

// Cipher provides authenticated encryption.
type Cipher interface {
	// Type returns the cipher type.
	Type() CipherType

	// Encrypt encrypts plaintext with additional data.
	Encrypt(plaintext, additionalData []byte) ([]byte, error)

	// Decrypt decrypts ciphertext with additional data.
	Decrypt(ciphertext, additionalData []byte) ([]byte, error)
}

// New creates a new adaptive cipher with the given 32-byte key.
//
// It automatically selects the optimal algorithm for the host.
func New(key []byte) (Cipher, error) {
	if len(key) != KeySize {
		return nil, errors.New("adaptive: key must be 32 bytes")
	}
	if hasHardwareAES() {
		return NewAESGCM(key)
	}
	return NewChaCha20(key)
}

// NewFromHex creates an adaptive cipher from a hex-encoded key, the
// form keys take in configuration files.
func NewFromHex(hexKey string) (Cipher, error) {
	key, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, errors.New("adaptive: key is not valid hex")
	}
	return New(key)
}

// hasHardwareAES checks if AES hardware acceleration is available.
// Go's crypto/aes uses AES-NI on amd64 and the ARM crypto extensions
// on arm64; other architectures prefer ChaCha20.
func hasHardwareAES() bool {
	switch runtime.GOARCH {
	case "amd64", "arm64":
		return true
	default:
		return false
	}
}

// baseCipher provides the nonce-prefixed seal/open common to both AEADs.
type baseCipher struct {
	aead cipher.AEAD
}

func (c *baseCipher) encrypt(plaintext, additionalData []byte) ([]byte, error) {
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	// Nonce is prepended to the ciphertext.
	return c.aead.Seal(nonce, nonce, plaintext, additionalData), nil
}

func (c *baseCipher) decrypt(ciphertext, additionalData []byte) ([]byte, error) {
	if len(ciphertext) < c.aead.NonceSize() {
		return nil, errors.New("adaptive: ciphertext too short")
	}
	nonce := ciphertext[:c.aead.NonceSize()]
	ciphertext = ciphertext[c.aead.NonceSize():]
	return c.aead.Open(nil, nonce, ciphertext, additionalData)
}
