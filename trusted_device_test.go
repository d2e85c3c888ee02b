package authgate

import (
	"context"
	"testing"
	"time"

	"github.com/rebelwithoutacause/authgate/internal"
	"github.com/rebelwithoutacause/authgate/store"
)

func newDeviceFixture(t *testing.T) (*trustedDeviceManager, *testClock, *store.Memory) {
	t.Helper()
	clk := newTestClock()
	mem := store.NewMemory()
	mem.SetClock(clk.Now)
	t.Cleanup(mem.Close)
	mgr := &trustedDeviceManager{
		store: mem,
		ttl:   30 * 24 * time.Hour,
		clock: clock{now: clk.Now},
	}
	return mgr, clk, mem
}

func TestTrustAndCheck(t *testing.T) {
	mgr, _, _ := newDeviceFixture(t)
	ctx := context.Background()

	token, err := mgr.Trust(ctx, "u1")
	if err != nil {
		t.Fatalf("Trust: %v", err)
	}
	if token == "" {
		t.Fatal("empty token")
	}

	trusted, err := mgr.IsTrusted(ctx, "u1", token)
	if err != nil {
		t.Fatalf("IsTrusted: %v", err)
	}
	if !trusted {
		t.Fatal("freshly granted token should be trusted")
	}

	// Tokens are per user.
	trusted, err = mgr.IsTrusted(ctx, "u2", token)
	if err != nil {
		t.Fatalf("IsTrusted other user: %v", err)
	}
	if trusted {
		t.Fatal("a token must not transfer between accounts")
	}
}

func TestTrustExpiry(t *testing.T) {
	mgr, clk, _ := newDeviceFixture(t)
	ctx := context.Background()

	token, err := mgr.Trust(ctx, "u1")
	if err != nil {
		t.Fatalf("Trust: %v", err)
	}

	clk.Advance(29 * 24 * time.Hour)
	if trusted, _ := mgr.IsTrusted(ctx, "u1", token); !trusted {
		t.Fatal("token should still be live at day 29")
	}

	clk.Advance(2 * 24 * time.Hour)
	if trusted, _ := mgr.IsTrusted(ctx, "u1", token); trusted {
		t.Fatal("token should be expired at day 31")
	}
}

func TestTrustTokensAreUnique(t *testing.T) {
	mgr, _, _ := newDeviceFixture(t)
	ctx := context.Background()

	a, err := mgr.Trust(ctx, "u1")
	if err != nil {
		t.Fatalf("Trust: %v", err)
	}
	b, err := mgr.Trust(ctx, "u1")
	if err != nil {
		t.Fatalf("Trust: %v", err)
	}
	if a == b {
		t.Fatal("each grant must mint a distinct token")
	}
	// Both grants are live: trusting a second device does not revoke the
	// first.
	for _, token := range []string{a, b} {
		if trusted, _ := mgr.IsTrusted(ctx, "u1", token); !trusted {
			t.Fatal("both grants should be live")
		}
	}
}

func TestRevoke(t *testing.T) {
	mgr, _, _ := newDeviceFixture(t)
	ctx := context.Background()

	token, _ := mgr.Trust(ctx, "u1")
	if err := mgr.Revoke(ctx, "u1", token); err != nil {
		t.Fatalf("Revoke: %v", err)
	}
	if trusted, _ := mgr.IsTrusted(ctx, "u1", token); trusted {
		t.Fatal("revoked token should not be trusted")
	}
	if err := mgr.Revoke(ctx, "u1", token); err != nil {
		t.Fatalf("double revoke: %v", err)
	}
}

func TestCorruptGrantIsUntrusted(t *testing.T) {
	mgr, _, mem := newDeviceFixture(t)
	ctx := context.Background()

	token, _ := mgr.Trust(ctx, "u1")
	// Overwrite the stored record with garbage.
	key := trustedDeviceKey("u1", internal.HashDeviceToken(token))
	mem.Put(ctx, key, []byte("garbage"), time.Hour)

	if trusted, _ := mgr.IsTrusted(ctx, "u1", token); trusted {
		t.Fatal("a corrupt record must read as untrusted")
	}
}
