package internal

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"math/big"
	"strings"
)

const deviceTokenBytes = 32

// NewCode returns a left-zero-padded numeric one-time code drawn from
// crypto/rand, one uniformly distributed digit at a time.
func NewCode(digits int) (string, error) {
	if digits < 6 || digits > 10 {
		return "", errors.New("invalid code digits")
	}

	var b strings.Builder
	b.Grow(digits)

	max := big.NewInt(10)
	for i := 0; i < digits; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b.WriteByte(byte('0' + n.Int64()))
	}

	code := b.String()
	if len(code) != digits {
		return "", fmt.Errorf("invalid code generation length")
	}
	return code, nil
}

// HashCode returns the one-way digest stored in place of a plaintext code.
// Codes are short-lived and rate-limited; the hash only prevents
// plaintext-in-store exposure.
func HashCode(code string) [32]byte {
	return sha256.Sum256([]byte(code))
}

// VerifyCodeHash compares a submitted code against a stored digest in
// constant time. Both sides are fixed-width digests, so the comparison
// never depends on the submitted input's length.
func VerifyCodeHash(submitted string, stored [32]byte) bool {
	computed := sha256.Sum256([]byte(submitted))
	return subtle.ConstantTimeCompare(computed[:], stored[:]) == 1
}

// NewDeviceToken returns a 256-bit random token for trusted-device grants,
// base64url encoded for client-side storage.
func NewDeviceToken() (string, error) {
	var raw [deviceTokenBytes]byte
	if _, err := rand.Read(raw[:]); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw[:]), nil
}

// HashDeviceToken derives the server-side lookup key for a device token.
// Only the digest is ever persisted.
func HashDeviceToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// IsWellFormedCode reports whether submitted looks like a numeric code of
// the expected width. Malformed input is rejected before any store or
// limiter round-trip.
func IsWellFormedCode(submitted string, digits int) bool {
	if len(submitted) != digits {
		return false
	}
	for i := 0; i < len(submitted); i++ {
		if submitted[i] < '0' || submitted[i] > '9' {
			return false
		}
	}
	return true
}
