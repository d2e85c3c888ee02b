package token

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const refreshSecretBytes = 32

// SigningMethod selects the JWT signature algorithm.
type SigningMethod string

const (
	// MethodHS256 signs with a shared HMAC key.
	MethodHS256 SigningMethod = "hs256"
	// MethodEd25519 signs with an Ed25519 private key.
	MethodEd25519 SigningMethod = "ed25519"
)

// Config holds issuance parameters. Key and SigningMethod are required;
// TTLs fall back to 15 minutes / 30 days.
type Config struct {
	SigningMethod SigningMethod
	Key           []byte // HMAC secret or ed25519.PrivateKey seed+key bytes
	Issuer        string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
}

// Pair is one issued session: a signed access token, an opaque refresh
// token, and the access token's expiry.
type Pair struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// Claims is the access-token payload.
type Claims struct {
	jwt.RegisteredClaims
}

// Manager issues and parses session tokens.
type Manager struct {
	config Config
	edKey  ed25519.PrivateKey
}

// New validates cfg and returns a Manager.
func New(cfg Config) (*Manager, error) {
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = 15 * time.Minute
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = 30 * 24 * time.Hour
	}

	m := &Manager{config: cfg}
	switch cfg.SigningMethod {
	case MethodHS256:
		if len(cfg.Key) < 32 {
			return nil, errors.New("hs256 requires a key of at least 32 bytes")
		}
	case MethodEd25519:
		if len(cfg.Key) != ed25519.PrivateKeySize {
			return nil, errors.New("ed25519 requires a 64-byte private key")
		}
		m.edKey = ed25519.PrivateKey(cfg.Key)
	default:
		return nil, errors.New("unsupported signing method")
	}

	return m, nil
}

// Issue mints a token pair for userID.
func (m *Manager) Issue(userID string) (*Pair, error) {
	now := time.Now()
	expiresAt := now.Add(m.config.AccessTTL)

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    m.config.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        uuid.NewString(),
		},
	}

	access, err := jwt.NewWithClaims(m.method(), claims).SignedString(m.signKey())
	if err != nil {
		return nil, err
	}

	var secret [refreshSecretBytes]byte
	if _, err := rand.Read(secret[:]); err != nil {
		return nil, err
	}

	return &Pair{
		AccessToken:  access,
		RefreshToken: base64.RawURLEncoding.EncodeToString(secret[:]),
		ExpiresAt:    expiresAt,
	}, nil
}

// Parse validates an access token's signature and expiry and returns the
// subject user ID.
func (m *Manager) Parse(accessToken string) (string, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(accessToken, claims, m.verifyKeyFunc(),
		jwt.WithValidMethods([]string{m.method().Alg()}),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return "", err
	}
	if claims.Subject == "" {
		return "", errors.New("token missing subject")
	}
	return claims.Subject, nil
}

func (m *Manager) method() jwt.SigningMethod {
	if m.config.SigningMethod == MethodEd25519 {
		return jwt.SigningMethodEdDSA
	}
	return jwt.SigningMethodHS256
}

func (m *Manager) signKey() any {
	if m.config.SigningMethod == MethodEd25519 {
		return m.edKey
	}
	return m.config.Key
}

func (m *Manager) verifyKeyFunc() jwt.Keyfunc {
	return func(*jwt.Token) (any, error) {
		if m.config.SigningMethod == MethodEd25519 {
			return m.edKey.Public(), nil
		}
		return m.config.Key, nil
	}
}
