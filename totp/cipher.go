package totp

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
)

// ErrSecretIntegrity indicates a sealed secret failed to decrypt or
// authenticate. This is a data-integrity fault (corruption or a key
// rotation mismatch), not a user error, and callers must surface it
// distinctly from an invalid code.
var ErrSecretIntegrity = errors.New("totp: secret integrity check failed")

// SecretCipher seals TOTP secrets with AES-GCM before persistence.
// Secrets exist in plaintext only transiently inside a single provisioning
// or verification call.
type SecretCipher struct {
	aead cipher.AEAD
}

// NewSecretCipher builds a cipher from a 16-, 24-, or 32-byte key.
func NewSecretCipher(key []byte) (*SecretCipher, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("totp: secret cipher key: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &SecretCipher{aead: aead}, nil
}

// Seal encrypts plaintext, prepending the random nonce to the ciphertext.
func (c *SecretCipher) Seal(plaintext []byte) ([]byte, error) {
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}
	return c.aead.Seal(nonce, nonce, plaintext, nil), nil
}

// Open decrypts a value produced by Seal. Any tampering, truncation, or
// key mismatch returns ErrSecretIntegrity.
func (c *SecretCipher) Open(sealed []byte) ([]byte, error) {
	if len(sealed) < c.aead.NonceSize() {
		return nil, ErrSecretIntegrity
	}
	nonce, ciphertext := sealed[:c.aead.NonceSize()], sealed[c.aead.NonceSize():]
	plaintext, err := c.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrSecretIntegrity
	}
	return plaintext, nil
}
