package authgate

import (
	"errors"
	"time"
)

// Config defines the engine's tuning parameters. Config instances are
// intended to be configured during initialization and then treated as
// immutable.
type Config struct {
	Challenge     ChallengeConfig
	TOTP          TOTPConfig
	Lockout       LockoutConfig
	TrustedDevice TrustedDeviceConfig
	Delivery      DeliveryConfig
	Session       SessionConfig
	Audit         AuditConfig
	Metrics       MetricsConfig
}

/*
====================================
CHALLENGE CONFIG
====================================
*/

// ChallengeConfig tunes delivered one-time codes. At most one live
// challenge exists per user and method; reissuing overwrites.
type ChallengeConfig struct {
	TTL    time.Duration
	Digits int
}

/*
====================================
TOTP CONFIG
====================================
*/

// TOTPConfig tunes authenticator-app verification and enrollment.
//
// SecretKey is the AES key (16/24/32 bytes) protecting TOTP secrets at
// rest. When empty, Build generates a process-local key and warns: secrets
// sealed under it do not survive a restart, which is acceptable only for
// development.
type TOTPConfig struct {
	Issuer    string
	Digits    int
	Period    int
	Algorithm string
	// SkewBack is the number of past 30-second steps accepted in addition
	// to the current one. Future steps are never accepted. Zero means
	// unset and defaults to 1.
	SkewBack  int
	SecretKey []byte
	// ProvisionTTL bounds how long a provisioned-but-unconfirmed secret
	// stays redeemable.
	ProvisionTTL time.Duration
}

/*
====================================
LOCKOUT CONFIG
====================================
*/

// LockoutConfig tunes the shared failure counter. Password failures and
// second-factor failures count against the same per-account window.
type LockoutConfig struct {
	Threshold int
	// Window is fixed from the first failure; later failures never extend it.
	Window time.Duration
}

/*
====================================
TRUSTED DEVICE CONFIG
====================================
*/

// TrustedDeviceConfig tunes "remember this device" grants.
type TrustedDeviceConfig struct {
	TTL time.Duration
}

/*
====================================
DELIVERY CONFIG
====================================
*/

// DeliveryConfig bounds calls to delivery collaborators.
type DeliveryConfig struct {
	Timeout time.Duration
}

/*
====================================
SESSION CONFIG
====================================
*/

// SessionConfig configures the built-in JWT session issuer. Ignored when a
// custom [SessionIssuer] is supplied to the builder.
type SessionConfig struct {
	SigningMethod string // "hs256" (default) or "ed25519"
	SigningKey    []byte
	Issuer        string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
}

/*
====================================
AUDIT CONFIG
====================================
*/

// AuditConfig tunes the asynchronous audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	// DropIfFull sheds events instead of blocking the authentication path.
	DropIfFull bool
}

/*
====================================
METRICS CONFIG
====================================
*/

// MetricsConfig enables the in-process atomic counters.
type MetricsConfig struct {
	Enabled bool
}

func defaultConfig() Config {
	return Config{
		Challenge: ChallengeConfig{
			TTL:    5 * time.Minute,
			Digits: 6,
		},
		TOTP: TOTPConfig{
			Issuer:       "authgate",
			Digits:       6,
			Period:       30,
			Algorithm:    "SHA1",
			SkewBack:     1,
			ProvisionTTL: 10 * time.Minute,
		},
		Lockout: LockoutConfig{
			Threshold: 5,
			Window:    15 * time.Minute,
		},
		TrustedDevice: TrustedDeviceConfig{
			TTL: 30 * 24 * time.Hour,
		},
		Delivery: DeliveryConfig{
			Timeout: 5 * time.Second,
		},
		Audit: AuditConfig{
			Enabled:    true,
			BufferSize: 256,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

// normalize fills zero values from defaults and rejects nonsensical
// settings. Called once by Build.
func (c *Config) normalize() error {
	def := defaultConfig()

	if c.Challenge.TTL <= 0 {
		c.Challenge.TTL = def.Challenge.TTL
	}
	if c.Challenge.Digits == 0 {
		c.Challenge.Digits = def.Challenge.Digits
	}
	if c.Challenge.Digits < 6 || c.Challenge.Digits > 10 {
		return errors.New("authgate: challenge digits must be between 6 and 10")
	}

	if c.TOTP.Issuer == "" {
		c.TOTP.Issuer = def.TOTP.Issuer
	}
	if c.TOTP.Digits == 0 {
		c.TOTP.Digits = def.TOTP.Digits
	}
	if c.TOTP.Period == 0 {
		c.TOTP.Period = def.TOTP.Period
	}
	if c.TOTP.Algorithm == "" {
		c.TOTP.Algorithm = def.TOTP.Algorithm
	}
	if c.TOTP.SkewBack < 0 {
		return errors.New("authgate: totp skew cannot be negative")
	}
	if c.TOTP.SkewBack == 0 {
		c.TOTP.SkewBack = def.TOTP.SkewBack
	}
	if c.TOTP.ProvisionTTL <= 0 {
		c.TOTP.ProvisionTTL = def.TOTP.ProvisionTTL
	}

	if c.Lockout.Threshold == 0 {
		c.Lockout.Threshold = def.Lockout.Threshold
	}
	if c.Lockout.Threshold < 0 {
		return errors.New("authgate: lockout threshold cannot be negative")
	}
	if c.Lockout.Window <= 0 {
		c.Lockout.Window = def.Lockout.Window
	}

	if c.TrustedDevice.TTL <= 0 {
		c.TrustedDevice.TTL = def.TrustedDevice.TTL
	}
	if c.Delivery.Timeout <= 0 {
		c.Delivery.Timeout = def.Delivery.Timeout
	}

	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		c.Audit.BufferSize = def.Audit.BufferSize
	}

	return nil
}
