package authgate

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/rebelwithoutacause/authgate/store"
	"github.com/rebelwithoutacause/authgate/totp"
)

// clock abstracts time for tests. The zero value is not usable; newClock
// returns one backed by time.Now.
type clock struct {
	now func() time.Time
}

func newClock() clock {
	return clock{now: time.Now}
}

// Engine is the authentication gateway. It owns the challenge lifecycle,
// the lockout counter, trusted-device grants and TOTP enrollment, and
// delegates user lookup, password comparison, code delivery and session
// minting to the collaborators supplied at build time.
//
// Construct it with [New] and the builder's With* methods. An Engine is
// safe for concurrent use.
type Engine struct {
	config Config
	clock  clock

	users    UserProvider
	password PasswordComparer
	sessions SessionIssuer

	store       store.Store
	ownedStore  bool
	challenges  *challengeStore
	lockout     *lockoutTracker
	devices     *trustedDeviceManager
	challengers map[Method]methodChallenger

	totp       *totp.Manager
	totpCipher *totp.SecretCipher

	audit   *auditDispatcher
	metrics *metricSet

	logger *log.Logger
}

// Close releases resources owned by the engine: the audit dispatcher is
// drained and, when the builder created the backing store itself, the
// store is shut down too.
func (e *Engine) Close() error {
	if e.audit != nil {
		e.audit.close()
	}
	if e.ownedStore {
		switch c := e.store.(type) {
		case interface{ Close() error }:
			return c.Close()
		case interface{ Close() }:
			c.Close()
		}
	}
	return nil
}

// MetricsSnapshot returns the current counter values. All zeros when
// metrics are disabled.
func (e *Engine) MetricsSnapshot() map[Metric]uint64 {
	if e.metrics == nil {
		return map[Metric]uint64{}
	}
	return e.metrics.snapshot()
}

// AuditDropped reports how many audit events were shed because the buffer
// was full.
func (e *Engine) AuditDropped() uint64 {
	if e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

func (e *Engine) metricInc(name Metric) {
	if e.metrics != nil {
		e.metrics.inc(name)
	}
}

func (e *Engine) emitAudit(ctx context.Context, event AuditEvent) {
	if e.audit == nil {
		return
	}
	event.Timestamp = e.clock.now()
	if event.ClientIP == "" {
		event.ClientIP = clientIPFromContext(ctx)
	}
	if event.Severity == "" {
		event.Severity = SeverityInfo
	}
	e.audit.emit(event)
}

func (e *Engine) warn(format string, args ...any) {
	if e.logger != nil {
		e.logger.Printf("authgate: "+format, args...)
	}
}

// requireUnlocked fails closed: a store error surfaces as
// ErrStoreUnavailable rather than letting the check pass.
func (e *Engine) requireUnlocked(ctx context.Context, userID string) error {
	locked, retryAfter, err := e.lockout.Status(ctx, userID)
	if err != nil {
		e.metricInc(MetricStoreUnavailable)
		return err
	}
	if locked {
		e.metricInc(MetricLoginLocked)
		e.emitAudit(ctx, AuditEvent{
			Type:     AuditLockedAttempt,
			Severity: SeverityWarning,
			UserID:   userID,
		})
		return &LockedError{RetryAfter: retryAfter}
	}
	return nil
}

// failAttempt records one authentication failure and translates it into
// the caller-facing error: the underlying failure normally, but
// ErrTooManyAttempts on the attempt that crosses the threshold.
func (e *Engine) failAttempt(ctx context.Context, userID string, cause error) error {
	count, locked, err := e.lockout.RecordFailure(ctx, userID)
	if err != nil {
		e.metricInc(MetricStoreUnavailable)
		return err
	}
	if locked && count == int64(e.config.Lockout.Threshold) {
		e.metricInc(MetricLockoutTriggered)
		e.emitAudit(ctx, AuditEvent{
			Type:     AuditLockoutTriggered,
			Severity: SeverityCritical,
			UserID:   userID,
		})
		return fmt.Errorf("%w: %v", ErrTooManyAttempts, cause)
	}
	return cause
}
