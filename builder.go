package authgate

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/redis/go-redis/v9"

	"github.com/rebelwithoutacause/authgate/password"
	"github.com/rebelwithoutacause/authgate/store"
	"github.com/rebelwithoutacause/authgate/token"
	"github.com/rebelwithoutacause/authgate/totp"
)

// Builder assembles an [Engine]. Unset collaborators fall back to sensible
// defaults: an in-memory store, Argon2id password hashing, and a JWT
// session issuer driven by [SessionConfig] when a signing key is present.
type Builder struct {
	config Config

	users     UserProvider
	passwords PasswordComparer
	sessions  SessionIssuer

	store      store.Store
	ownedStore bool

	emailSender     CodeSender
	messagingSender CodeSender

	auditSink AuditSink

	logger *log.Logger

	err error
}

// New starts a builder with default configuration.
func New() *Builder {
	return &Builder{config: defaultConfig()}
}

// WithConfig replaces the whole configuration. Zero-valued fields are
// filled from defaults during Build.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cfg
	return b
}

// WithRedis backs the engine's ephemeral state with Redis. The engine
// takes ownership of the client and closes it on [Engine.Close].
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	if client == nil {
		b.fail(errors.New("authgate: nil redis client"))
		return b
	}
	b.store = store.NewRedis(client)
	b.ownedStore = true
	return b
}

// WithStore supplies a custom ephemeral store. The caller keeps ownership
// and is responsible for closing it.
func (b *Builder) WithStore(s store.Store) *Builder {
	if s == nil {
		b.fail(errors.New("authgate: nil store"))
		return b
	}
	b.store = s
	b.ownedStore = false
	return b
}

// WithUserProvider supplies the account lookup backend. Required.
func (b *Builder) WithUserProvider(p UserProvider) *Builder {
	b.users = p
	return b
}

// WithPasswordComparer overrides the default Argon2id comparer, for
// applications whose password hashes use another scheme.
func (b *Builder) WithPasswordComparer(c PasswordComparer) *Builder {
	b.passwords = c
	return b
}

// WithEmailSender enables the email second factor.
func (b *Builder) WithEmailSender(s CodeSender) *Builder {
	b.emailSender = s
	return b
}

// WithMessagingSender enables the messaging second factor.
func (b *Builder) WithMessagingSender(s CodeSender) *Builder {
	b.messagingSender = s
	return b
}

// WithSessionIssuer overrides the built-in JWT issuer.
func (b *Builder) WithSessionIssuer(s SessionIssuer) *Builder {
	b.sessions = s
	return b
}

// WithAuditSink routes audit events to the given sink.
func (b *Builder) WithAuditSink(s AuditSink) *Builder {
	b.auditSink = s
	return b
}

// WithLogger sets the logger for non-fatal warnings. Defaults to stderr.
func (b *Builder) WithLogger(l *log.Logger) *Builder {
	b.logger = l
	return b
}

func (b *Builder) fail(err error) {
	if b.err == nil {
		b.err = err
	}
}

// Build validates the configuration, wires the components and returns a
// ready engine.
func (b *Builder) Build() (*Engine, error) {
	if b.err != nil {
		return nil, b.err
	}
	if b.users == nil {
		return nil, errors.New("authgate: a UserProvider is required")
	}
	if err := b.config.normalize(); err != nil {
		return nil, err
	}

	logger := b.logger
	if logger == nil {
		logger = log.New(os.Stderr, "", log.LstdFlags)
	}

	st := b.store
	owned := b.ownedStore
	if st == nil {
		st = store.NewMemory()
		owned = true
		logger.Printf("authgate: no store configured, using in-memory store (single process only)")
	}

	secretKey := b.config.TOTP.SecretKey
	if len(secretKey) == 0 {
		secretKey = make([]byte, 32)
		if _, err := rand.Read(secretKey); err != nil {
			return nil, fmt.Errorf("authgate: generate totp secret key: %v", err)
		}
		logger.Printf("authgate: no TOTP secret key configured, generated an ephemeral one; enrolled secrets will not survive a restart")
	}
	cipher, err := totp.NewSecretCipher(secretKey)
	if err != nil {
		return nil, fmt.Errorf("authgate: totp secret key: %w", err)
	}

	totpMgr := totp.New(totp.Config{
		Issuer:    b.config.TOTP.Issuer,
		Digits:    b.config.TOTP.Digits,
		Period:    b.config.TOTP.Period,
		Algorithm: b.config.TOTP.Algorithm,
		SkewBack:  b.config.TOTP.SkewBack,
	})

	passwords := b.passwords
	if passwords == nil {
		passwords = password.Default()
	}

	sessions := b.sessions
	if sessions == nil {
		if len(b.config.Session.SigningKey) == 0 {
			return nil, errors.New("authgate: either a SessionIssuer or Session.SigningKey is required")
		}
		method := token.SigningMethod(b.config.Session.SigningMethod)
		if method == "" {
			method = token.MethodHS256
		}
		mgr, err := token.New(token.Config{
			SigningMethod: method,
			Key:           b.config.Session.SigningKey,
			Issuer:        b.config.Session.Issuer,
			AccessTTL:     b.config.Session.AccessTTL,
			RefreshTTL:    b.config.Session.RefreshTTL,
		})
		if err != nil {
			return nil, fmt.Errorf("authgate: session issuer: %w", err)
		}
		sessions = &jwtSessionIssuer{manager: mgr}
	}

	clk := newClock()
	e := &Engine{
		config:     b.config,
		clock:      clk,
		users:      b.users,
		password:   passwords,
		sessions:   sessions,
		store:      st,
		ownedStore: owned,
		totp:       totpMgr,
		totpCipher: cipher,
		logger:     logger,
	}
	e.challenges = &challengeStore{store: st, ttl: b.config.Challenge.TTL, clock: clk}
	e.lockout = &lockoutTracker{store: st, threshold: b.config.Lockout.Threshold, window: b.config.Lockout.Window}
	e.devices = &trustedDeviceManager{store: st, ttl: b.config.TrustedDevice.TTL, clock: clk}

	e.challengers = map[Method]methodChallenger{
		MethodTOTP: &totpChallenger{engine: e},
	}
	if b.emailSender != nil {
		e.challengers[MethodEmail] = &codeChallenger{
			m:           MethodEmail,
			challenges:  e.challenges,
			sender:      b.emailSender,
			destination: func(u UserRecord) string { return u.Email },
			digits:      b.config.Challenge.Digits,
			delivery:    b.config.Delivery,
		}
	}
	if b.messagingSender != nil {
		e.challengers[MethodMessaging] = &codeChallenger{
			m:           MethodMessaging,
			challenges:  e.challenges,
			sender:      b.messagingSender,
			destination: func(u UserRecord) string { return u.Security.MessagingDestination },
			digits:      b.config.Challenge.Digits,
			delivery:    b.config.Delivery,
		}
	}

	if b.config.Metrics.Enabled {
		e.metrics = newMetricSet()
	}
	// An explicitly supplied sink turns auditing on even when the config
	// section was left zeroed.
	if b.config.Audit.Enabled || b.auditSink != nil {
		sink := b.auditSink
		if sink == nil {
			sink = NoOpSink{}
		}
		buffer := b.config.Audit.BufferSize
		if buffer <= 0 {
			buffer = defaultConfig().Audit.BufferSize
		}
		e.audit = newAuditDispatcher(sink, buffer, b.config.Audit.DropIfFull)
	}

	return e, nil
}

// jwtSessionIssuer adapts [token.Manager] to the [SessionIssuer]
// interface.
type jwtSessionIssuer struct {
	manager *token.Manager
}

func (j *jwtSessionIssuer) IssueSession(_ context.Context, userID string) (*Session, error) {
	pair, err := j.manager.Issue(userID)
	if err != nil {
		return nil, err
	}
	return &Session{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresAt:    pair.ExpiresAt,
	}, nil
}
