package totp

import (
	"errors"
	"testing"
	"time"
)

func rfcManager(algorithm string) *Manager {
	return New(Config{
		Issuer:    "authgate",
		Digits:    8,
		Period:    30,
		Algorithm: algorithm,
		SkewBack:  0,
	})
}

func TestVerifyRFCVectorsSHA1(t *testing.T) {
	m := rfcManager("SHA1")
	secret := b32.EncodeToString([]byte("12345678901234567890"))
	cases := []struct {
		ts   int64
		code string
	}{
		{59, "94287082"},
		{1111111109, "07081804"},
		{1111111111, "14050471"},
		{1234567890, "89005924"},
		{2000000000, "69279037"},
		{20000000000, "65353130"},
	}

	for _, tc := range cases {
		ok, err := m.Verify(secret, tc.code, time.Unix(tc.ts, 0))
		if err != nil || !ok {
			t.Fatalf("SHA1 vector failed at t=%d, ok=%v err=%v", tc.ts, ok, err)
		}
	}
}

func TestVerifyRFCVectorsSHA256(t *testing.T) {
	m := rfcManager("SHA256")
	secret := b32.EncodeToString([]byte("12345678901234567890123456789012"))
	cases := []struct {
		ts   int64
		code string
	}{
		{59, "46119246"},
		{1111111109, "68084774"},
		{1111111111, "67062674"},
		{1234567890, "91819424"},
		{2000000000, "90698825"},
		{20000000000, "77737706"},
	}

	for _, tc := range cases {
		ok, err := m.Verify(secret, tc.code, time.Unix(tc.ts, 0))
		if err != nil || !ok {
			t.Fatalf("SHA256 vector failed at t=%d, ok=%v err=%v", tc.ts, ok, err)
		}
	}
}

func TestVerifyRFCVectorsSHA512(t *testing.T) {
	m := rfcManager("SHA512")
	secret := b32.EncodeToString([]byte("1234567890123456789012345678901234567890123456789012345678901234"))
	cases := []struct {
		ts   int64
		code string
	}{
		{59, "90693936"},
		{1111111109, "25091201"},
		{1111111111, "99943326"},
		{1234567890, "93441116"},
		{2000000000, "38618901"},
		{20000000000, "47863826"},
	}

	for _, tc := range cases {
		ok, err := m.Verify(secret, tc.code, time.Unix(tc.ts, 0))
		if err != nil || !ok {
			t.Fatalf("SHA512 vector failed at t=%d, ok=%v err=%v", tc.ts, ok, err)
		}
	}
}

func TestVerifyDriftWindow(t *testing.T) {
	m := New(Config{Issuer: "authgate", SkewBack: 1})
	secret, err := m.GenerateSecret()
	if err != nil {
		t.Fatalf("GenerateSecret failed: %v", err)
	}

	// Pick a time well inside a step so +/- one second noise cannot move
	// the counter.
	at := time.Unix(2000000015, 0)

	current, err := m.CodeAt(secret, at)
	if err != nil {
		t.Fatalf("CodeAt failed: %v", err)
	}
	if ok, err := m.Verify(secret, current, at); err != nil || !ok {
		t.Fatalf("expected current-step code to verify, ok=%v err=%v", ok, err)
	}

	previous, err := m.CodeAt(secret, at.Add(-30*time.Second))
	if err != nil {
		t.Fatalf("CodeAt failed: %v", err)
	}
	if ok, err := m.Verify(secret, previous, at); err != nil || !ok {
		t.Fatalf("expected previous-step code to verify, ok=%v err=%v", ok, err)
	}

	// Beyond the one-step drift window.
	if ok, _ := m.Verify(secret, current, at.Add(61*time.Second)); ok {
		t.Fatal("expected code to be rejected 61s past its step")
	}

	// Future steps are never accepted.
	future, err := m.CodeAt(secret, at.Add(30*time.Second))
	if err != nil {
		t.Fatalf("CodeAt failed: %v", err)
	}
	if future != current {
		if ok, _ := m.Verify(secret, future, at); ok {
			t.Fatal("expected future-step code to be rejected")
		}
	}
}

func TestVerifyRejectsMalformedInput(t *testing.T) {
	m := New(Config{Issuer: "authgate"})
	secret, err := m.GenerateSecret()
	if err != nil {
		t.Fatalf("GenerateSecret failed: %v", err)
	}

	for _, code := range []string{"", "12345", "1234567", "12345a", "abcdef"} {
		ok, err := m.Verify(secret, code, time.Now())
		if err != nil {
			t.Fatalf("malformed input %q should not error, got %v", code, err)
		}
		if ok {
			t.Fatalf("malformed input %q must not verify", code)
		}
	}
}

func TestVerifyRejectsInvalidSecret(t *testing.T) {
	m := New(Config{Issuer: "authgate"})

	if _, err := m.Verify("", "123456", time.Now()); !errors.Is(err, ErrInvalidSecret) {
		t.Fatalf("expected ErrInvalidSecret for empty secret, got %v", err)
	}
	if _, err := m.Verify("not-base32!!", "123456", time.Now()); !errors.Is(err, ErrInvalidSecret) {
		t.Fatalf("expected ErrInvalidSecret for bad base32, got %v", err)
	}
}

func TestProvisionURIShape(t *testing.T) {
	m := New(Config{Issuer: "ToolsDirectory"})
	secret, err := m.GenerateSecret()
	if err != nil {
		t.Fatalf("GenerateSecret failed: %v", err)
	}

	uri := m.ProvisionURI(secret, "alice@example.com")
	wantPrefix := "otpauth://totp/ToolsDirectory:alice@example.com?"
	if len(uri) < len(wantPrefix) || uri[:len(wantPrefix)] != wantPrefix {
		t.Fatalf("unexpected provisioning URI %q", uri)
	}
}

func TestZeroConfigDefaultsToOneStepDrift(t *testing.T) {
	m := New(Config{})
	secret, err := m.GenerateSecret()
	if err != nil {
		t.Fatalf("GenerateSecret failed: %v", err)
	}
	at := time.Unix(2000000015, 0)

	previous, err := m.CodeAt(secret, at.Add(-30*time.Second))
	if err != nil {
		t.Fatalf("CodeAt failed: %v", err)
	}
	if ok, err := m.Verify(secret, previous, at); err != nil || !ok {
		t.Fatalf("zero-value config must accept the previous step, ok=%v err=%v", ok, err)
	}
}

func TestNegativeSkewDisablesDrift(t *testing.T) {
	m := New(Config{SkewBack: -1})
	secret, err := m.GenerateSecret()
	if err != nil {
		t.Fatalf("GenerateSecret failed: %v", err)
	}
	at := time.Unix(2000000015, 0)

	current, err := m.CodeAt(secret, at)
	if err != nil {
		t.Fatalf("CodeAt failed: %v", err)
	}
	if ok, err := m.Verify(secret, current, at); err != nil || !ok {
		t.Fatalf("expected current-step code to verify, ok=%v err=%v", ok, err)
	}
	previous, err := m.CodeAt(secret, at.Add(-30*time.Second))
	if err != nil {
		t.Fatalf("CodeAt failed: %v", err)
	}
	if previous != current {
		if ok, _ := m.Verify(secret, previous, at); ok {
			t.Fatal("negative skew must reject the previous step")
		}
	}
}
