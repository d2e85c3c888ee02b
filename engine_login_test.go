package authgate

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestLoginWithoutTwoFactorIssuesSession(t *testing.T) {
	env := newTestEnv(t, plainUser("u1", "a@example.com", "pw"))

	res, err := env.engine.Login(context.Background(), LoginRequest{Email: "a@example.com", Password: "pw"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if res.TwoFactorRequired {
		t.Fatal("no second factor is enrolled, login should complete directly")
	}
	if res.AccessToken == "" || res.RefreshToken == "" {
		t.Fatal("expected a session")
	}
	if env.email.sent() != 0 {
		t.Fatal("no code should be sent without a second factor")
	}
}

func TestLoginUnknownEmail(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.engine.Login(context.Background(), LoginRequest{Email: "nobody@example.com", Password: "pw"})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("got %v, want ErrInvalidCredentials", err)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	env := newTestEnv(t, plainUser("u1", "a@example.com", "pw"))

	_, err := env.engine.Login(context.Background(), LoginRequest{Email: "a@example.com", Password: "nope"})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("got %v, want ErrInvalidCredentials", err)
	}
}

func TestLoginWithEmailSecondFactorSendsCode(t *testing.T) {
	env := newTestEnv(t, emailUser("u1", "a@example.com", "pw"))

	res, err := env.engine.Login(context.Background(), LoginRequest{Email: "a@example.com", Password: "pw"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if !res.TwoFactorRequired {
		t.Fatal("expected a second-factor challenge")
	}
	if res.Method != MethodEmail {
		t.Fatalf("got method %s, want email", res.Method)
	}
	if res.AccessToken != "" {
		t.Fatal("no session may be issued before the challenge is verified")
	}
	code := env.email.lastCode(t)
	if len(code) != 6 {
		t.Fatalf("got %d-digit code, want 6", len(code))
	}
	if env.email.dests[0] != "a@example.com" {
		t.Fatalf("code sent to %s", env.email.dests[0])
	}
}

func TestLoginWithMessagingSecondFactor(t *testing.T) {
	env := newTestEnv(t, messagingUser("u1", "a@example.com", "pw", "+15551234567"))

	res, err := env.engine.Login(context.Background(), LoginRequest{Email: "a@example.com", Password: "pw"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if res.Method != MethodMessaging {
		t.Fatalf("got method %s, want messaging", res.Method)
	}
	if env.sms.dests[0] != "+15551234567" {
		t.Fatalf("code sent to %s", env.sms.dests[0])
	}
}

func TestLoginDeliveryFailureSurfaces(t *testing.T) {
	env := newTestEnv(t, emailUser("u1", "a@example.com", "pw"))
	env.email.err = errors.New("smtp: connection refused")

	_, err := env.engine.Login(context.Background(), LoginRequest{Email: "a@example.com", Password: "pw"})
	if !errors.Is(err, ErrDeliveryFailure) {
		t.Fatalf("got %v, want ErrDeliveryFailure", err)
	}
}

func TestLoginWrongPasswordsLockAccount(t *testing.T) {
	env := newTestEnv(t, plainUser("u1", "a@example.com", "pw"))
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		_, err := env.engine.Login(ctx, LoginRequest{Email: "a@example.com", Password: "nope"})
		if !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("attempt %d: got %v, want ErrInvalidCredentials", i+1, err)
		}
	}

	// Fifth failure crosses the threshold.
	_, err := env.engine.Login(ctx, LoginRequest{Email: "a@example.com", Password: "nope"})
	if !errors.Is(err, ErrTooManyAttempts) {
		t.Fatalf("threshold attempt: got %v, want ErrTooManyAttempts", err)
	}

	// The right password is rejected too while the window holds.
	_, err = env.engine.Login(ctx, LoginRequest{Email: "a@example.com", Password: "pw"})
	var locked *LockedError
	if !errors.As(err, &locked) {
		t.Fatalf("locked attempt: got %v, want LockedError", err)
	}
	if locked.RetryAfter <= 0 || locked.RetryAfter > 15*time.Minute {
		t.Fatalf("RetryAfter = %v", locked.RetryAfter)
	}

	// Window elapses, access returns.
	env.clock.Advance(15*time.Minute + time.Second)
	if _, err := env.engine.Login(ctx, LoginRequest{Email: "a@example.com", Password: "pw"}); err != nil {
		t.Fatalf("after window: %v", err)
	}
}

func TestLoginSuccessResetsFailureCounter(t *testing.T) {
	env := newTestEnv(t, plainUser("u1", "a@example.com", "pw"))
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		env.engine.Login(ctx, LoginRequest{Email: "a@example.com", Password: "nope"})
	}
	if _, err := env.engine.Login(ctx, LoginRequest{Email: "a@example.com", Password: "pw"}); err != nil {
		t.Fatalf("Login: %v", err)
	}

	// Counter restarted: four more failures stay below the threshold.
	for i := 0; i < 4; i++ {
		_, err := env.engine.Login(ctx, LoginRequest{Email: "a@example.com", Password: "nope"})
		if !errors.Is(err, ErrInvalidCredentials) || errors.Is(err, ErrTooManyAttempts) {
			t.Fatalf("attempt %d after reset: %v", i+1, err)
		}
	}
}

func TestLoginTrustedDeviceSkipsSecondFactor(t *testing.T) {
	env := newTestEnv(t, emailUser("u1", "a@example.com", "pw"))
	ctx := context.Background()

	// Full flow once, remembering the device.
	if _, err := env.engine.Login(ctx, LoginRequest{Email: "a@example.com", Password: "pw"}); err != nil {
		t.Fatalf("Login: %v", err)
	}
	verified, err := env.engine.VerifyChallenge(ctx, VerifyRequest{
		UserID:         "u1",
		Code:           env.email.lastCode(t),
		RememberDevice: true,
	})
	if err != nil {
		t.Fatalf("VerifyChallenge: %v", err)
	}
	if verified.DeviceToken == "" {
		t.Fatal("expected a device token")
	}

	// 29 days later the token still bypasses the challenge.
	env.clock.Advance(29 * 24 * time.Hour)
	sentBefore := env.email.sent()
	res, err := env.engine.Login(ctx, LoginRequest{
		Email:       "a@example.com",
		Password:    "pw",
		DeviceToken: verified.DeviceToken,
	})
	if err != nil {
		t.Fatalf("Login with trusted device: %v", err)
	}
	if res.TwoFactorRequired {
		t.Fatal("trusted device should bypass the second factor")
	}
	if env.email.sent() != sentBefore {
		t.Fatal("no code should be sent for a trusted device")
	}

	// Past 30 days the grant is gone and the full flow returns.
	env.clock.Advance(2 * 24 * time.Hour)
	res, err = env.engine.Login(ctx, LoginRequest{
		Email:       "a@example.com",
		Password:    "pw",
		DeviceToken: verified.DeviceToken,
	})
	if err != nil {
		t.Fatalf("Login with expired device token: %v", err)
	}
	if !res.TwoFactorRequired {
		t.Fatal("expired trust must not bypass the second factor")
	}
}

func TestLoginBogusDeviceTokenFallsThrough(t *testing.T) {
	env := newTestEnv(t, emailUser("u1", "a@example.com", "pw"))

	res, err := env.engine.Login(context.Background(), LoginRequest{
		Email:       "a@example.com",
		Password:    "pw",
		DeviceToken: "not-a-real-token",
	})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if !res.TwoFactorRequired {
		t.Fatal("an unknown device token must not bypass the second factor")
	}
}
