package authgate

import (
	"context"
	"errors"
	"time"
)

// Method identifies a second-factor verification channel.
type Method uint8

const (
	// MethodNone means no second factor is configured.
	MethodNone Method = iota
	// MethodEmail delivers one-time codes to the account's email address.
	MethodEmail
	// MethodMessaging delivers one-time codes to a messaging destination
	// (e.g. a chat-bot channel) stored on the security profile.
	MethodMessaging
	// MethodTOTP validates codes from an authenticator app.
	MethodTOTP
)

func (m Method) String() string {
	switch m {
	case MethodEmail:
		return "email"
	case MethodMessaging:
		return "messaging"
	case MethodTOTP:
		return "totp"
	default:
		return "none"
	}
}

// ParseMethod maps the wire name of a method back to its value.
func ParseMethod(s string) (Method, error) {
	switch s {
	case "none", "":
		return MethodNone, nil
	case "email":
		return MethodEmail, nil
	case "messaging":
		return MethodMessaging, nil
	case "totp":
		return MethodTOTP, nil
	default:
		return MethodNone, errors.New("unknown two-factor method: " + s)
	}
}

// SecurityProfile is the per-account two-factor configuration. It is
// mutated only through the engine's enable/disable operations, which
// maintain the invariant that EncryptedTOTPSecret is present exactly when
// Method is [MethodTOTP].
type SecurityProfile struct {
	Enabled              bool
	Method               Method
	EncryptedTOTPSecret  []byte
	MessagingDestination string
}

// UserRecord is the account view the engine needs: identity, the
// credential hash for the pluggable comparer, and the security profile.
type UserRecord struct {
	UserID       string
	Email        string
	PasswordHash string
	Security     SecurityProfile
}

// UserProvider is the repository abstraction callers implement to connect
// the engine to their user database. Implementations return
// [ErrUserNotFound] (or an error wrapping it) for missing accounts.
type UserProvider interface {
	FindByID(ctx context.Context, userID string) (UserRecord, error)
	FindByEmail(ctx context.Context, email string) (UserRecord, error)
	UpdateSecurityProfile(ctx context.Context, userID string, profile SecurityProfile) error
}

// PasswordComparer is the vetted hash-compare primitive for primary
// credentials. The default is the password subpackage's Argon2id
// implementation.
type PasswordComparer interface {
	Compare(password, encodedHash string) (bool, error)
}

// CodeSender delivers a plaintext one-time code to a destination. The
// engine bounds every call with [DeliveryConfig.Timeout] and never hands a
// sender the stored hash. Retry policy belongs to the sender or operator,
// not to the engine.
type CodeSender interface {
	SendCode(ctx context.Context, destination, code string) error
}

// Session is the minted session credential pair returned once a flow
// reaches its authenticated state.
type Session struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// SessionIssuer mints sessions. It is invoked only from the authenticated
// terminal state of a flow, never while a challenge is outstanding.
type SessionIssuer interface {
	IssueSession(ctx context.Context, userID string) (*Session, error)
}

// LoginRequest carries primary credentials and, optionally, a
// trusted-device token from a previous "remember this device" opt-in.
type LoginRequest struct {
	Email       string
	Password    string
	DeviceToken string
}

// LoginResult is returned by [Engine.Login]. Either the session fields are
// populated, or TwoFactorRequired is set and the caller must follow up
// with [Engine.VerifyChallenge].
type LoginResult struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time

	TwoFactorRequired bool
	Method            Method
	UserID            string
}

// VerifyRequest carries a submitted second-factor code. RememberDevice
// requests a trusted-device grant on success.
type VerifyRequest struct {
	UserID         string
	Code           string
	RememberDevice bool
}

// VerifyResult is returned by [Engine.VerifyChallenge] on success.
// DeviceToken is set only when RememberDevice was requested; the server
// keeps no copy of it, only the grant record.
type VerifyResult struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time

	DeviceToken string
}

// TwoFactorStatus is the read-only configuration view for an account.
type TwoFactorStatus struct {
	Enabled bool
	Method  Method
}

// TOTPProvision holds the raw secret (for manual entry) and the otpauth://
// URI (for QR rendering) returned by [Engine.ProvisionTOTP]. Neither is
// retrievable again after provisioning.
type TOTPProvision struct {
	SecretBase32 string
	URI          string
}
