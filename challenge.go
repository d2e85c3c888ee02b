package authgate

import (
	"context"
	"errors"
	"fmt"

	"github.com/rebelwithoutacause/authgate/internal"
)

// methodChallenger is one second-factor strategy. issue prepares whatever
// the user needs to answer the challenge (for delivered codes, generating
// and sending one; for authenticator apps, nothing). verify checks a
// submitted code and returns ErrInvalidCode, ErrChallengeExpired or
// ErrSecretIntegrity on failure.
type methodChallenger interface {
	method() Method
	issue(ctx context.Context, user UserRecord) error
	verify(ctx context.Context, user UserRecord, code string) error
}

/*
====================================
DELIVERED CODES (EMAIL, MESSAGING)
====================================
*/

// codeChallenger implements the delivered-code flow shared by email and
// messaging. The challenge is persisted before delivery is attempted so a
// code that was sent always has a stored counterpart.
type codeChallenger struct {
	m           Method
	challenges  *challengeStore
	sender      CodeSender
	destination func(UserRecord) string
	digits      int
	delivery    DeliveryConfig
}

func (c *codeChallenger) method() Method { return c.m }

func (c *codeChallenger) issue(ctx context.Context, user UserRecord) error {
	dest := c.destination(user)
	if dest == "" {
		return fmt.Errorf("%w: no destination for %s", ErrMethodNotSupported, c.m)
	}
	code, err := internal.NewCode(c.digits)
	if err != nil {
		return fmt.Errorf("challenge: %v", err)
	}
	if err := c.challenges.Save(ctx, user.UserID, c.m, internal.HashCode(code)); err != nil {
		return err
	}

	sendCtx, cancel := context.WithTimeout(ctx, c.delivery.Timeout)
	defer cancel()
	if err := c.sender.SendCode(sendCtx, dest, code); err != nil {
		// The stored challenge stays live: the provider may have
		// delivered despite reporting failure, and a reissue
		// overwrites it anyway.
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("%w: %v", ErrDeliveryTimeout, err)
		}
		return fmt.Errorf("%w: %v", ErrDeliveryFailure, err)
	}
	return nil
}

func (c *codeChallenger) verify(ctx context.Context, user UserRecord, code string) error {
	rec, err := c.challenges.Consume(ctx, user.UserID, c.m)
	if err != nil {
		return err
	}
	if !internal.VerifyCodeHash(code, rec.CodeHash) {
		return ErrInvalidCode
	}
	return nil
}

/*
====================================
AUTHENTICATOR APPS (TOTP)
====================================
*/

// totpChallenger verifies codes from an enrolled authenticator app. There
// is nothing to issue or deliver; the shared secret on the user's profile
// is the whole challenge.
type totpChallenger struct {
	engine *Engine
}

func (t *totpChallenger) method() Method { return MethodTOTP }

func (t *totpChallenger) issue(context.Context, UserRecord) error { return nil }

func (t *totpChallenger) verify(_ context.Context, user UserRecord, code string) error {
	if len(user.Security.EncryptedTOTPSecret) == 0 {
		return ErrTOTPNotConfigured
	}
	secret, err := t.engine.totpCipher.Open(user.Security.EncryptedTOTPSecret)
	if err != nil {
		// Distinct from a wrong code: the stored secret itself is
		// unreadable and the operator must intervene.
		return err
	}
	ok, err := t.engine.totp.Verify(string(secret), code, t.engine.clock.now())
	if err != nil {
		return fmt.Errorf("totp verify: %v", err)
	}
	if !ok {
		return ErrInvalidCode
	}
	return nil
}

// challengerFor selects the strategy for the user's enrolled method.
func (e *Engine) challengerFor(method Method) (methodChallenger, error) {
	c, ok := e.challengers[method]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMethodNotSupported, method)
	}
	return c, nil
}
