package authgate

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/rebelwithoutacause/authgate/internal"
	"github.com/rebelwithoutacause/authgate/store"
)

// trustedDeviceGrant is the stored side of a "remember this device" token.
// The token itself is never persisted; the record lives under a key
// derived from its SHA-256 digest.
type trustedDeviceGrant struct {
	GrantedAt int64
	ExpiresAt int64
}

const trustedDeviceRecordVersion byte = 1

// encode: [version:1][grantedAt:8][expiresAt:8]
func (g trustedDeviceGrant) encode() []byte {
	buf := make([]byte, 1+8+8)
	buf[0] = trustedDeviceRecordVersion
	binary.BigEndian.PutUint64(buf[1:9], uint64(g.GrantedAt))
	binary.BigEndian.PutUint64(buf[9:17], uint64(g.ExpiresAt))
	return buf
}

func decodeTrustedDeviceGrant(data []byte) (trustedDeviceGrant, error) {
	var g trustedDeviceGrant
	if len(data) != 17 {
		return g, fmt.Errorf("trusted device record: unexpected length %d", len(data))
	}
	if data[0] != trustedDeviceRecordVersion {
		return g, fmt.Errorf("trusted device record: unknown version %d", data[0])
	}
	g.GrantedAt = int64(binary.BigEndian.Uint64(data[1:9]))
	g.ExpiresAt = int64(binary.BigEndian.Uint64(data[9:17]))
	return g, nil
}

// trustedDeviceManager issues and checks device trust grants that let a
// returning browser skip the second factor.
type trustedDeviceManager struct {
	store store.Store
	ttl   time.Duration
	clock clock
}

func trustedDeviceKey(userID, tokenHash string) string {
	return "atd:" + userID + ":" + tokenHash
}

// Trust mints a fresh opaque token for the device and records its grant.
// The plaintext token is returned exactly once.
func (m *trustedDeviceManager) Trust(ctx context.Context, userID string) (string, error) {
	token, err := internal.NewDeviceToken()
	if err != nil {
		return "", fmt.Errorf("trusted device: %v", err)
	}
	now := m.clock.now()
	grant := trustedDeviceGrant{
		GrantedAt: now.Unix(),
		ExpiresAt: now.Add(m.ttl).Unix(),
	}
	key := trustedDeviceKey(userID, internal.HashDeviceToken(token))
	if err := m.store.Put(ctx, key, grant.encode(), m.ttl); err != nil {
		return "", fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return token, nil
}

// IsTrusted reports whether the presented token maps to a live grant for
// the user. A corrupt or stale record is removed and treated as untrusted.
func (m *trustedDeviceManager) IsTrusted(ctx context.Context, userID, token string) (bool, error) {
	if token == "" {
		return false, nil
	}
	key := trustedDeviceKey(userID, internal.HashDeviceToken(token))
	data, err := m.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	grant, err := decodeTrustedDeviceGrant(data)
	if err != nil || m.clock.now().Unix() >= grant.ExpiresAt {
		_ = m.store.Delete(ctx, key)
		return false, nil
	}
	return true, nil
}

// Revoke removes the grant for one presented token. Revoking a token that
// was never trusted is not an error.
func (m *trustedDeviceManager) Revoke(ctx context.Context, userID, token string) error {
	if token == "" {
		return nil
	}
	key := trustedDeviceKey(userID, internal.HashDeviceToken(token))
	if err := m.store.Delete(ctx, key); err != nil && !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}
