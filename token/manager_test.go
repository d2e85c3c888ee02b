package token

import (
	"bytes"
	"crypto/ed25519"
	"testing"
	"time"
)

func hs256Config() Config {
	return Config{
		SigningMethod: MethodHS256,
		Key:           bytes.Repeat([]byte{0x5a}, 32),
		Issuer:        "authgate-test",
		AccessTTL:     time.Minute,
	}
}

func TestIssueAndParseHS256(t *testing.T) {
	m, err := New(hs256Config())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	pair, err := m.Issue("u1")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatal("expected non-empty token pair")
	}
	if !pair.ExpiresAt.After(time.Now()) {
		t.Fatal("expected future expiry")
	}

	subject, err := m.Parse(pair.AccessToken)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if subject != "u1" {
		t.Fatalf("expected subject u1, got %q", subject)
	}
}

func TestIssueAndParseEd25519(t *testing.T) {
	_, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatalf("key generation failed: %v", err)
	}

	m, err := New(Config{
		SigningMethod: MethodEd25519,
		Key:           priv,
		Issuer:        "authgate-test",
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	pair, err := m.Issue("u2")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	subject, err := m.Parse(pair.AccessToken)
	if err != nil || subject != "u2" {
		t.Fatalf("Parse returned %q, %v", subject, err)
	}
}

func TestParseRejectsForeignSignature(t *testing.T) {
	a, err := New(hs256Config())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	other := hs256Config()
	other.Key = bytes.Repeat([]byte{0xa5}, 32)
	b, err := New(other)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	pair, err := a.Issue("u1")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	if _, err := b.Parse(pair.AccessToken); err == nil {
		t.Fatal("expected signature mismatch error")
	}
}

func TestRefreshTokensAreUnique(t *testing.T) {
	m, err := New(hs256Config())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	a, err := m.Issue("u1")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	b, err := m.Issue("u1")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	if a.RefreshToken == b.RefreshToken {
		t.Fatal("expected unique refresh tokens")
	}
}

func TestNewRejectsWeakKeys(t *testing.T) {
	if _, err := New(Config{SigningMethod: MethodHS256, Key: []byte("short")}); err == nil {
		t.Fatal("expected error for short hs256 key")
	}
	if _, err := New(Config{SigningMethod: MethodEd25519, Key: []byte("short")}); err == nil {
		t.Fatal("expected error for invalid ed25519 key")
	}
	if _, err := New(Config{SigningMethod: "rs256"}); err == nil {
		t.Fatal("expected error for unsupported method")
	}
}
