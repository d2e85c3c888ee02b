package authgate

import (
	"context"
	"errors"
	"fmt"

	"github.com/rebelwithoutacause/authgate/internal"
)

// VerifyChallenge completes a pending second-factor challenge.
//
// A structurally invalid code (wrong length, non-digits) is rejected with
// ErrMalformedCode before any store access and does not count toward
// lockout. A well-formed wrong code, or a code submitted after the
// challenge expired or was already consumed, counts as a failed attempt.
// Each delivered code is single use: the first verification attempt
// consumes it regardless of outcome.
//
// With RememberDevice set, a successful verification also mints a
// trusted-device token returned in the result. Storing it is the caller's
// job; losing it simply means the next login runs the full flow.
func (e *Engine) VerifyChallenge(ctx context.Context, req VerifyRequest) (*VerifyResult, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}

	user, err := e.users.FindByID(ctx, req.UserID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("user lookup: %w", err)
	}
	if !user.Security.Enabled {
		return nil, ErrTwoFactorNotEnabled
	}

	if !internal.IsWellFormedCode(req.Code, e.codeDigits(user.Security.Method)) {
		return nil, ErrMalformedCode
	}

	if err := e.requireUnlocked(ctx, user.UserID); err != nil {
		return nil, err
	}

	challenger, err := e.challengerFor(user.Security.Method)
	if err != nil {
		return nil, err
	}

	if err := challenger.verify(ctx, user, req.Code); err != nil {
		switch {
		case errors.Is(err, ErrInvalidCode), errors.Is(err, ErrChallengeExpired):
			e.metricInc(MetricChallengeFailure)
			e.emitAudit(ctx, AuditEvent{
				Type:     AuditChallengeFailed,
				Severity: SeverityWarning,
				UserID:   user.UserID,
				Method:   user.Security.Method.String(),
			})
			return nil, e.failAttempt(ctx, user.UserID, err)
		case errors.Is(err, ErrSecretIntegrity):
			e.metricInc(MetricSecretIntegrityFailure)
			e.emitAudit(ctx, AuditEvent{
				Type:     AuditSecretIntegrityFail,
				Severity: SeverityCritical,
				UserID:   user.UserID,
			})
			return nil, err
		default:
			return nil, err
		}
	}

	if err := e.lockout.Reset(ctx, user.UserID); err != nil {
		e.warn("lockout reset for %s failed: %v", user.UserID, err)
	}

	result := &VerifyResult{}
	if req.RememberDevice {
		token, err := e.devices.Trust(ctx, user.UserID)
		if err != nil {
			// Trust is a convenience; its failure must not undo a
			// verified challenge.
			e.warn("trusted device grant for %s failed: %v", user.UserID, err)
		} else {
			result.DeviceToken = token
			e.metricInc(MetricTrustGranted)
			e.emitAudit(ctx, AuditEvent{Type: AuditTrustGranted, UserID: user.UserID})
		}
	}

	session, err := e.sessions.IssueSession(ctx, user.UserID)
	if err != nil {
		return nil, fmt.Errorf("issue session: %w", err)
	}
	result.AccessToken = session.AccessToken
	result.RefreshToken = session.RefreshToken
	result.ExpiresAt = session.ExpiresAt

	e.metricInc(MetricChallengeSuccess)
	e.metricInc(MetricLoginSuccess)
	e.emitAudit(ctx, AuditEvent{
		Type:   AuditChallengeVerified,
		UserID: user.UserID,
		Method: user.Security.Method.String(),
	})
	return result, nil
}

// codeDigits returns the expected code length for a method. TOTP length
// comes from the authenticator configuration, delivered codes from the
// challenge configuration.
func (e *Engine) codeDigits(method Method) int {
	if method == MethodTOTP {
		return e.config.TOTP.Digits
	}
	return e.config.Challenge.Digits
}
