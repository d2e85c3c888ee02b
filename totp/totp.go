package totp

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/base32"
	"encoding/binary"
	"errors"
	"fmt"
	"hash"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const secretBytes = 20 // 160 bits, RFC 4226 minimum

// ErrInvalidSecret indicates the supplied secret is empty or not valid
// base32. It is distinct from a failed code comparison.
var ErrInvalidSecret = errors.New("totp: invalid secret")

var b32 = base32.StdEncoding.WithPadding(base32.NoPadding)

// Config tunes code derivation. Zero values fall back to the usual
// authenticator-app defaults (6 digits, 30-second period, SHA1, one step
// of backwards drift).
type Config struct {
	Issuer    string
	Digits    int
	Period    int
	Algorithm string // "SHA1" (default), "SHA256", "SHA512"

	// SkewBack is the number of past time steps accepted in addition to
	// the current one. Future steps are never accepted. Zero means unset
	// and defaults to 1; set a negative value to accept only the current
	// step.
	SkewBack int
}

// Manager derives and validates time-based codes.
type Manager struct {
	config Config
}

// New creates a Manager, filling unset fields with RFC defaults.
func New(cfg Config) *Manager {
	if cfg.Digits <= 0 {
		cfg.Digits = 6
	}
	if cfg.Period <= 0 {
		cfg.Period = 30
	}
	if cfg.Algorithm == "" {
		cfg.Algorithm = "SHA1"
	}
	// Zero means unset and gets the one-step default; a negative value
	// explicitly disables backwards drift.
	if cfg.SkewBack == 0 {
		cfg.SkewBack = 1
	}
	if cfg.SkewBack < 0 {
		cfg.SkewBack = 0
	}
	return &Manager{config: cfg}
}

// GenerateSecret returns a fresh 160-bit secret, base32 encoded for manual
// entry and provisioning URIs.
func (m *Manager) GenerateSecret() (string, error) {
	raw := make([]byte, secretBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	return b32.EncodeToString(raw), nil
}

// ProvisionURI builds the otpauth:// URI consumed by QR renderers and
// authenticator apps.
func (m *Manager) ProvisionURI(secretBase32, account string) string {
	issuer := m.config.Issuer
	label := url.PathEscape(issuer + ":" + account)

	v := url.Values{}
	v.Set("secret", secretBase32)
	v.Set("issuer", issuer)
	v.Set("period", strconv.Itoa(m.config.Period))
	v.Set("digits", strconv.Itoa(m.config.Digits))
	v.Set("algorithm", strings.ToUpper(m.config.Algorithm))

	return "otpauth://totp/" + label + "?" + v.Encode()
}

// CodeAt returns the code valid for the time step containing at.
func (m *Manager) CodeAt(secretBase32 string, at time.Time) (string, error) {
	secret, err := m.decodeSecret(secretBase32)
	if err != nil {
		return "", err
	}
	counter := at.Unix() / int64(m.config.Period)
	return hotpCode(secret, counter, m.config.Digits, m.config.Algorithm)
}

// Verify reports whether code is valid for the step containing at or for
// one of the SkewBack immediately preceding steps. Malformed input returns
// false without reaching the HMAC comparison.
func (m *Manager) Verify(secretBase32, code string, at time.Time) (bool, error) {
	trimmed := strings.TrimSpace(code)
	if len(trimmed) != m.config.Digits || !isNumeric(trimmed) {
		return false, nil
	}

	secret, err := m.decodeSecret(secretBase32)
	if err != nil {
		return false, err
	}

	baseCounter := at.Unix() / int64(m.config.Period)
	for step := -m.config.SkewBack; step <= 0; step++ {
		counter := baseCounter + int64(step)
		if counter < 0 {
			continue
		}
		generated, err := hotpCode(secret, counter, m.config.Digits, m.config.Algorithm)
		if err != nil {
			return false, err
		}
		if subtle.ConstantTimeCompare([]byte(generated), []byte(trimmed)) == 1 {
			return true, nil
		}
	}

	return false, nil
}

func (m *Manager) decodeSecret(secretBase32 string) ([]byte, error) {
	if secretBase32 == "" {
		return nil, ErrInvalidSecret
	}
	secret, err := b32.DecodeString(strings.ToUpper(strings.TrimSpace(secretBase32)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSecret, err)
	}
	if len(secret) == 0 {
		return nil, ErrInvalidSecret
	}
	return secret, nil
}

func isNumeric(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func hotpCode(secret []byte, counter int64, digits int, algorithm string) (string, error) {
	var msg [8]byte
	binary.BigEndian.PutUint64(msg[:], uint64(counter))

	hf, err := hmacFunc(algorithm)
	if err != nil {
		return "", err
	}
	mac := hmac.New(hf, secret)
	_, _ = mac.Write(msg[:])
	sum := mac.Sum(nil)

	offset := sum[len(sum)-1] & 0x0f
	bin := (int(sum[offset])&0x7f)<<24 |
		(int(sum[offset+1])&0xff)<<16 |
		(int(sum[offset+2])&0xff)<<8 |
		(int(sum[offset+3]) & 0xff)

	mod := 1
	for i := 0; i < digits; i++ {
		mod *= 10
	}

	return fmt.Sprintf("%0*d", digits, bin%mod), nil
}

func hmacFunc(algorithm string) (func() hash.Hash, error) {
	switch strings.ToUpper(algorithm) {
	case "", "SHA1":
		return sha1.New, nil
	case "SHA256":
		return sha256.New, nil
	case "SHA512":
		return sha512.New, nil
	default:
		return nil, errors.New("unsupported totp algorithm")
	}
}
