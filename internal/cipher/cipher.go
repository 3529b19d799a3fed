// Package cipher implements the FieldCipher capability: encryption of
// secret fields (ERP API keys, webhook shared secrets) at the store's
// repository boundary.
package cipher

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/pbkdf2"
)

const (
	pbkdf2Salt       = "notorios-poller-field-salt"
	pbkdf2Iterations = 10000
	keyLenBytes      = 32
)

// FieldCipher encrypts and decrypts individual secret field values. It is
// constructed once, from the process-wide POLLER_ENCRYPTION_KEY, and never
// mutated afterward.
type FieldCipher struct {
	key []byte
}

// New derives a 32-byte AES-256 key from the given passphrase via
// PBKDF2-SHA256. The passphrase is whatever POLLER_ENCRYPTION_KEY holds; it
// does not need to already be a raw AES key.
func New(passphrase string) (*FieldCipher, error) {
	if passphrase == "" {
		return nil, errors.New("cipher: encryption key must not be empty")
	}
	key := pbkdf2.Key([]byte(passphrase), []byte(pbkdf2Salt), pbkdf2Iterations, keyLenBytes, sha256.New)
	return &FieldCipher{key: key}, nil
}

// Encrypt returns a base64-encoded ciphertext for plaintext. Empty
// plaintext bypasses encryption entirely and is returned as "".
// Encryption is non-deterministic: encrypting the same plaintext twice
// yields different ciphertexts (fresh random nonce per call), and both
// decrypt back to the original value.
func (c *FieldCipher) Encrypt(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}

	block, err := aes.NewCipher(c.key)
	if err != nil {
		return "", fmt.Errorf("cipher: build aes block: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("cipher: build gcm: %w", err)
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("cipher: read nonce: %w", err)
	}

	ciphertext := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

// Decrypt reverses Encrypt. An empty ciphertext decrypts to "" without
// touching the cipher, matching the empty-plaintext bypass in Encrypt.
func (c *FieldCipher) Decrypt(ciphertext string) (string, error) {
	if ciphertext == "" {
		return "", nil
	}

	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("cipher: decode base64: %w", err)
	}

	block, err := aes.NewCipher(c.key)
	if err != nil {
		return "", fmt.Errorf("cipher: build aes block: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("cipher: build gcm: %w", err)
	}

	nonceSize := gcm.NonceSize()
	if len(raw) < nonceSize {
		return "", errors.New("cipher: ciphertext too short")
	}

	nonce, sealed := raw[:nonceSize], raw[nonceSize:]
	plaintext, err := gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", fmt.Errorf("cipher: decrypt: %w", err)
	}
	return string(plaintext), nil
}
