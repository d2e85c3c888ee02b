package authgate

import (
	"context"
	"testing"
)

func TestMetricsTrackLoginOutcomes(t *testing.T) {
	env := newTestEnv(t, emailUser("u1", "a@example.com", "pw"))
	ctx := context.Background()

	env.engine.Login(ctx, LoginRequest{Email: "a@example.com", Password: "nope"})
	code := loginForChallenge(t, env, "a@example.com", "pw")
	if _, err := env.engine.VerifyChallenge(ctx, VerifyRequest{UserID: "u1", Code: code}); err != nil {
		t.Fatalf("VerifyChallenge: %v", err)
	}

	snap := env.engine.MetricsSnapshot()
	if snap[MetricLoginFailure] != 1 {
		t.Fatalf("login_failure = %d, want 1", snap[MetricLoginFailure])
	}
	if snap[MetricChallengeIssued] != 1 {
		t.Fatalf("challenge_issued = %d, want 1", snap[MetricChallengeIssued])
	}
	if snap[MetricChallengeSuccess] != 1 {
		t.Fatalf("challenge_success = %d, want 1", snap[MetricChallengeSuccess])
	}
	if snap[MetricLoginSuccess] != 1 {
		t.Fatalf("login_success = %d, want 1", snap[MetricLoginSuccess])
	}
}

func TestMetricsDisabledSnapshotIsEmpty(t *testing.T) {
	cfg := defaultConfig()
	cfg.Metrics.Enabled = false
	cfg.Audit.Enabled = false
	cfg.TOTP.SecretKey = []byte("0123456789abcdef0123456789abcdef")

	engine, err := New().
		WithConfig(cfg).
		WithUserProvider(newFakeUserProvider(plainUser("u1", "a@example.com", "pw"))).
		WithPasswordComparer(plainComparer{}).
		WithSessionIssuer(&fakeSessionIssuer{}).
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer engine.Close()

	if _, err := engine.Login(context.Background(), LoginRequest{Email: "a@example.com", Password: "pw"}); err != nil {
		t.Fatalf("Login: %v", err)
	}
	if len(engine.MetricsSnapshot()) != 0 {
		t.Fatal("disabled metrics should snapshot empty")
	}
}
