package authgate

import (
	"context"
	"errors"
	"fmt"
)

// Login authenticates the first factor and decides what happens next.
//
// On success the outcome is one of:
//   - the account has no second factor, or the request carried a live
//     trusted-device token: a full session, TwoFactorRequired false.
//   - a second factor is required: TwoFactorRequired true, Method set, no
//     session. For delivered-code methods a code has been sent; the caller
//     completes the flow with [Engine.VerifyChallenge].
//
// A wrong password counts toward the account lockout window. An unknown
// email is reported as ErrInvalidCredentials without touching any counter.
func (e *Engine) Login(ctx context.Context, req LoginRequest) (*LoginResult, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}

	user, err := e.users.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			e.metricInc(MetricLoginFailure)
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("user lookup: %w", err)
	}

	if err := e.requireUnlocked(ctx, user.UserID); err != nil {
		return nil, err
	}

	ok, err := e.password.Compare(req.Password, user.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("password compare: %w", err)
	}
	if !ok {
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, AuditEvent{
			Type:     AuditLoginFailure,
			Severity: SeverityWarning,
			UserID:   user.UserID,
		})
		return nil, e.failAttempt(ctx, user.UserID, ErrInvalidCredentials)
	}

	if !user.Security.Enabled {
		return e.completeLogin(ctx, user, false)
	}

	// Trusted devices skip the second factor, but only while 2FA is
	// actually enabled. The check fails closed on store trouble.
	if req.DeviceToken != "" {
		trusted, err := e.devices.IsTrusted(ctx, user.UserID, req.DeviceToken)
		if err != nil {
			e.metricInc(MetricStoreUnavailable)
			return nil, err
		}
		if trusted {
			e.metricInc(MetricTrustBypass)
			e.emitAudit(ctx, AuditEvent{Type: AuditTrustBypass, UserID: user.UserID})
			return e.completeLogin(ctx, user, false)
		}
	}

	challenger, err := e.challengerFor(user.Security.Method)
	if err != nil {
		return nil, err
	}
	if err := challenger.issue(ctx, user); err != nil {
		if errors.Is(err, ErrDeliveryFailure) || errors.Is(err, ErrDeliveryTimeout) {
			e.metricInc(MetricDeliveryFailure)
			e.emitAudit(ctx, AuditEvent{
				Type:     AuditDeliveryFailed,
				Severity: SeverityWarning,
				UserID:   user.UserID,
				Method:   user.Security.Method.String(),
			})
		}
		return nil, err
	}

	e.metricInc(MetricChallengeIssued)
	e.emitAudit(ctx, AuditEvent{
		Type:   AuditChallengeIssued,
		UserID: user.UserID,
		Method: user.Security.Method.String(),
	})
	return &LoginResult{
		TwoFactorRequired: true,
		Method:            user.Security.Method,
		UserID:            user.UserID,
	}, nil
}

// completeLogin resets the failure counter and mints a session.
func (e *Engine) completeLogin(ctx context.Context, user UserRecord, viaChallenge bool) (*LoginResult, error) {
	if err := e.lockout.Reset(ctx, user.UserID); err != nil {
		e.warn("lockout reset for %s failed: %v", user.UserID, err)
	}
	session, err := e.sessions.IssueSession(ctx, user.UserID)
	if err != nil {
		return nil, fmt.Errorf("issue session: %w", err)
	}
	e.metricInc(MetricLoginSuccess)
	e.emitAudit(ctx, AuditEvent{
		Type:   AuditLoginSuccess,
		UserID: user.UserID,
		Metadata: map[string]string{
			"via_challenge": fmt.Sprintf("%t", viaChallenge),
		},
	})
	return &LoginResult{
		AccessToken:  session.AccessToken,
		RefreshToken: session.RefreshToken,
		ExpiresAt:    session.ExpiresAt,
		UserID:       user.UserID,
	}, nil
}
