package authgate

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"time"
)

// AuditEventType identifies what happened.
type AuditEventType string

const (
	AuditLoginSuccess        AuditEventType = "login_success"
	AuditLoginFailure        AuditEventType = "login_failure"
	AuditChallengeIssued     AuditEventType = "challenge_issued"
	AuditChallengeVerified   AuditEventType = "challenge_verified"
	AuditChallengeFailed     AuditEventType = "challenge_failed"
	AuditLockoutTriggered    AuditEventType = "lockout_triggered"
	AuditLockedAttempt       AuditEventType = "locked_attempt"
	AuditTrustGranted        AuditEventType = "trust_granted"
	AuditTrustBypass         AuditEventType = "trust_bypass"
	AuditTrustRevoked        AuditEventType = "trust_revoked"
	AuditTwoFactorEnabled    AuditEventType = "twofactor_enabled"
	AuditTwoFactorDisabled   AuditEventType = "twofactor_disabled"
	AuditTOTPProvisioned     AuditEventType = "totp_provisioned"
	AuditTOTPConfirmed       AuditEventType = "totp_confirmed"
	AuditDeliveryFailed      AuditEventType = "delivery_failed"
	AuditSecretIntegrityFail AuditEventType = "secret_integrity_failure"
)

// AuditSeverity classifies events for downstream filtering.
type AuditSeverity string

const (
	SeverityInfo     AuditSeverity = "info"
	SeverityWarning  AuditSeverity = "warning"
	SeverityCritical AuditSeverity = "critical"
)

// AuditEvent is a single security-relevant occurrence. Events carry
// identifiers and coarse context only: codes, secrets, tokens and
// passwords must never appear in Metadata.
type AuditEvent struct {
	Type      AuditEventType    `json:"type"`
	Severity  AuditSeverity     `json:"severity"`
	UserID    string            `json:"user_id,omitempty"`
	Method    string            `json:"method,omitempty"`
	ClientIP  string            `json:"client_ip,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// forbidden metadata keys, stripped before dispatch.
var sensitiveMetadataKeys = map[string]struct{}{
	"code":         {},
	"secret":       {},
	"token":        {},
	"device_token": {},
	"password":     {},
}

func sanitizeMetadata(md map[string]string) map[string]string {
	if md == nil {
		return nil
	}
	clean := make(map[string]string, len(md))
	for k, v := range md {
		if _, bad := sensitiveMetadataKeys[k]; bad {
			continue
		}
		clean[k] = v
	}
	if len(clean) == 0 {
		return nil
	}
	return clean
}

// AuditSink receives events from the dispatcher. Write is called from a
// single dispatcher goroutine, so sinks do not need internal locking
// unless they are shared elsewhere.
type AuditSink interface {
	Write(ctx context.Context, event AuditEvent) error
}

/*
====================================
BUILT-IN SINKS
====================================
*/

// NoOpSink discards all events.
type NoOpSink struct{}

func (NoOpSink) Write(context.Context, AuditEvent) error { return nil }

// ChannelSink forwards events to a channel, dropping when the channel is
// full. Useful for tests and for bridging into an existing pipeline.
type ChannelSink struct {
	C chan AuditEvent
}

func NewChannelSink(buffer int) *ChannelSink {
	return &ChannelSink{C: make(chan AuditEvent, buffer)}
}

func (s *ChannelSink) Write(_ context.Context, event AuditEvent) error {
	select {
	case s.C <- event:
	default:
	}
	return nil
}

// JSONWriterSink writes one JSON object per line to an io.Writer.
type JSONWriterSink struct {
	mu sync.Mutex
	w  io.Writer
}

func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return &JSONWriterSink{w: w}
}

func (s *JSONWriterSink) Write(_ context.Context, event AuditEvent) error {
	b, err := json.Marshal(event)
	if err != nil {
		return err
	}
	b = append(b, '\n')
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = s.w.Write(b)
	return err
}
