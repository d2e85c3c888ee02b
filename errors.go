package authgate

import (
	"errors"
	"fmt"
	"time"

	"github.com/rebelwithoutacause/authgate/totp"
)

var (
	// ErrInvalidCredentials is returned for any primary-credential failure.
	// It deliberately does not distinguish an unknown user from a wrong
	// password.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountLocked is returned while an account's lockout window is
	// active. The concrete value is a [*LockedError] carrying the
	// retry-after duration.
	ErrAccountLocked = errors.New("account locked")
	// ErrChallengeExpired is returned when no live challenge exists for the
	// user and method, whether it expired, was consumed, or was never issued.
	ErrChallengeExpired = errors.New("challenge expired or not found")
	// ErrInvalidCode is returned when a well-formed code fails comparison.
	ErrInvalidCode = errors.New("invalid code")
	// ErrMalformedCode is returned for input that is not a numeric code of
	// the configured width. Malformed input is rejected before the store or
	// the attempt counter is touched.
	ErrMalformedCode = errors.New("malformed code")
	// ErrTooManyAttempts is returned on the attempt that crosses the
	// lockout threshold.
	ErrTooManyAttempts = errors.New("too many attempts")
	// ErrDeliveryFailure is returned when a delivery collaborator reports
	// an error. The pending challenge has already been written and remains
	// verifiable.
	ErrDeliveryFailure = errors.New("code delivery failed")
	// ErrDeliveryTimeout is returned when a delivery collaborator exceeds
	// the configured timeout. Never retried by this layer.
	ErrDeliveryTimeout = errors.New("code delivery timed out")
	// ErrStoreUnavailable is returned when the ephemeral store cannot be
	// reached. The engine fails closed: this is an inability to
	// authenticate, never "no challenge needed" or "trust granted".
	ErrStoreUnavailable = errors.New("ephemeral store unavailable")
	// ErrTwoFactorNotEnabled is returned by challenge verification and
	// management operations that require an enabled second factor.
	ErrTwoFactorNotEnabled = errors.New("two-factor authentication not enabled")
	// ErrTwoFactorAlreadyEnabled is returned when enabling a second factor
	// over an existing configuration. Disable first.
	ErrTwoFactorAlreadyEnabled = errors.New("two-factor authentication already enabled")
	// ErrTOTPNotConfigured is returned when a TOTP operation finds no
	// provisioned secret.
	ErrTOTPNotConfigured = errors.New("totp not configured")
	// ErrMethodNotSupported is returned for a method outside the closed
	// set, or one that cannot be enabled through the requested operation.
	ErrMethodNotSupported = errors.New("unsupported two-factor method")
	// ErrUserNotFound is returned by [UserProvider] implementations. The
	// login boundary translates it to [ErrInvalidCredentials].
	ErrUserNotFound = errors.New("user not found")
	// ErrEngineNotReady is returned when the engine is used before Build.
	ErrEngineNotReady = errors.New("engine not initialized")
)

// ErrSecretIntegrity indicates a stored TOTP secret failed decryption or
// tag authentication. It is a data-integrity fault, surfaced distinctly
// from ErrInvalidCode and audited at error severity.
var ErrSecretIntegrity = totp.ErrSecretIntegrity

// LockedError is the concrete error for an active lockout window.
// errors.Is(err, ErrAccountLocked) matches it.
type LockedError struct {
	RetryAfter time.Duration
}

func (e *LockedError) Error() string {
	return fmt.Sprintf("account locked: retry after %s", e.RetryAfter.Round(time.Second))
}

func (e *LockedError) Unwrap() error {
	return ErrAccountLocked
}
