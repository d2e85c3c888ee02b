package authgate

import (
	"context"
	"errors"
	"fmt"

	"github.com/rebelwithoutacause/authgate/internal"
	"github.com/rebelwithoutacause/authgate/store"
)

// pendingTOTPKey holds a provisioned-but-unconfirmed sealed secret. It
// only moves onto the user's profile once ConfirmTOTPSetup proves the
// authenticator was enrolled correctly.
func pendingTOTPKey(userID string) string {
	return "atp:" + userID
}

// EnableTwoFactor turns on a delivered-code second factor for the
// account. Authenticator apps enroll through [Engine.ProvisionTOTP] and
// [Engine.ConfirmTOTPSetup] instead, because a TOTP method is only safe to
// activate after the user has proven they captured the secret.
func (e *Engine) EnableTwoFactor(ctx context.Context, userID string, method Method) error {
	if e == nil {
		return ErrEngineNotReady
	}
	if method == MethodTOTP {
		return fmt.Errorf("%w: totp requires provisioning and confirmation", ErrMethodNotSupported)
	}
	if method != MethodEmail && method != MethodMessaging {
		return fmt.Errorf("%w: %s", ErrMethodNotSupported, method)
	}

	user, err := e.users.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if user.Security.Enabled {
		return ErrTwoFactorAlreadyEnabled
	}
	if method == MethodMessaging && user.Security.MessagingDestination == "" {
		return fmt.Errorf("%w: no messaging destination on profile", ErrMethodNotSupported)
	}

	profile := user.Security
	profile.Enabled = true
	profile.Method = method
	profile.EncryptedTOTPSecret = nil
	if err := e.users.UpdateSecurityProfile(ctx, userID, profile); err != nil {
		return fmt.Errorf("update security profile: %w", err)
	}

	e.emitAudit(ctx, AuditEvent{
		Type:   AuditTwoFactorEnabled,
		UserID: userID,
		Method: method.String(),
	})
	return nil
}

// ProvisionTOTP starts authenticator enrollment. It returns the secret in
// base32 and an otpauth:// URI for QR rendering; the sealed secret is
// parked server-side until ConfirmTOTPSetup redeems it. Provisioning again
// replaces any earlier unconfirmed secret. The account's second-factor
// state is untouched until confirmation.
func (e *Engine) ProvisionTOTP(ctx context.Context, userID string) (*TOTPProvision, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}

	user, err := e.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.Security.Enabled {
		return nil, ErrTwoFactorAlreadyEnabled
	}

	secret, err := e.totp.GenerateSecret()
	if err != nil {
		return nil, fmt.Errorf("generate totp secret: %v", err)
	}
	sealed, err := e.totpCipher.Seal([]byte(secret))
	if err != nil {
		return nil, fmt.Errorf("seal totp secret: %v", err)
	}
	if err := e.store.Put(ctx, pendingTOTPKey(userID), sealed, e.config.TOTP.ProvisionTTL); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	e.emitAudit(ctx, AuditEvent{Type: AuditTOTPProvisioned, UserID: userID})
	return &TOTPProvision{
		SecretBase32: secret,
		URI:          e.totp.ProvisionURI(secret, user.Email),
	}, nil
}

// ConfirmTOTPSetup finishes authenticator enrollment by checking one code
// against the pending secret. On success the sealed secret moves onto the
// profile and the totp method becomes active. An expired provisioning
// window surfaces as ErrTOTPNotConfigured; the user starts over.
func (e *Engine) ConfirmTOTPSetup(ctx context.Context, userID, code string) error {
	if e == nil {
		return ErrEngineNotReady
	}

	user, err := e.users.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if user.Security.Enabled {
		return ErrTwoFactorAlreadyEnabled
	}
	if !internal.IsWellFormedCode(code, e.config.TOTP.Digits) {
		return ErrMalformedCode
	}

	sealed, err := e.store.Get(ctx, pendingTOTPKey(userID))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrTOTPNotConfigured
		}
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	secret, err := e.totpCipher.Open(sealed)
	if err != nil {
		return err
	}
	ok, err := e.totp.Verify(string(secret), code, e.clock.now())
	if err != nil {
		return fmt.Errorf("totp verify: %v", err)
	}
	if !ok {
		// Confirmation is not an authentication attempt; a mistyped
		// code here never locks the account.
		return ErrInvalidCode
	}

	profile := user.Security
	profile.Enabled = true
	profile.Method = MethodTOTP
	profile.EncryptedTOTPSecret = sealed
	if err := e.users.UpdateSecurityProfile(ctx, userID, profile); err != nil {
		return fmt.Errorf("update security profile: %w", err)
	}
	if err := e.store.Delete(ctx, pendingTOTPKey(userID)); err != nil && !errors.Is(err, store.ErrNotFound) {
		e.warn("pending totp cleanup for %s failed: %v", userID, err)
	}

	e.emitAudit(ctx, AuditEvent{
		Type:   AuditTOTPConfirmed,
		UserID: userID,
		Method: MethodTOTP.String(),
	})
	return nil
}

// DisableTwoFactor turns off the second factor and erases the stored TOTP
// secret. Any pending challenge is dropped. Existing trusted-device grants
// become inert immediately because the bypass only applies while a second
// factor is enabled.
func (e *Engine) DisableTwoFactor(ctx context.Context, userID string) error {
	if e == nil {
		return ErrEngineNotReady
	}

	user, err := e.users.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if !user.Security.Enabled {
		return ErrTwoFactorNotEnabled
	}

	oldMethod := user.Security.Method
	profile := user.Security
	profile.Enabled = false
	profile.Method = MethodNone
	profile.EncryptedTOTPSecret = nil
	if err := e.users.UpdateSecurityProfile(ctx, userID, profile); err != nil {
		return fmt.Errorf("update security profile: %w", err)
	}

	if oldMethod == MethodEmail || oldMethod == MethodMessaging {
		if err := e.challenges.Drop(ctx, userID, oldMethod); err != nil {
			e.warn("challenge cleanup for %s failed: %v", userID, err)
		}
	}

	e.emitAudit(ctx, AuditEvent{
		Type:     AuditTwoFactorDisabled,
		Severity: SeverityWarning,
		UserID:   userID,
		Method:   oldMethod.String(),
	})
	return nil
}

// TwoFactorStatus reports the account's current second-factor state.
func (e *Engine) TwoFactorStatus(ctx context.Context, userID string) (TwoFactorStatus, error) {
	if e == nil {
		return TwoFactorStatus{}, ErrEngineNotReady
	}
	user, err := e.users.FindByID(ctx, userID)
	if err != nil {
		return TwoFactorStatus{}, err
	}
	return TwoFactorStatus{
		Enabled: user.Security.Enabled,
		Method:  user.Security.Method,
	}, nil
}

// RevokeTrustedDevice withdraws one device's bypass grant. Revoking a
// token that was never granted, or that already expired, succeeds.
func (e *Engine) RevokeTrustedDevice(ctx context.Context, userID, deviceToken string) error {
	if e == nil {
		return ErrEngineNotReady
	}
	if err := e.devices.Revoke(ctx, userID, deviceToken); err != nil {
		return err
	}
	e.emitAudit(ctx, AuditEvent{Type: AuditTrustRevoked, UserID: userID})
	return nil
}
