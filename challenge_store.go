package authgate

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/rebelwithoutacause/authgate/store"
)

// pendingChallenge is the stored form of a delivered one-time code. Only
// the SHA-256 digest of the code is persisted.
type pendingChallenge struct {
	CodeHash  [32]byte
	IssuedAt  int64
	ExpiresAt int64
}

const challengeRecordVersion byte = 1

// encode: [version:1][codeHash:32][issuedAt:8][expiresAt:8]
func (p pendingChallenge) encode() []byte {
	buf := make([]byte, 1+32+8+8)
	buf[0] = challengeRecordVersion
	copy(buf[1:33], p.CodeHash[:])
	binary.BigEndian.PutUint64(buf[33:41], uint64(p.IssuedAt))
	binary.BigEndian.PutUint64(buf[41:49], uint64(p.ExpiresAt))
	return buf
}

func decodeChallenge(data []byte) (pendingChallenge, error) {
	var p pendingChallenge
	if len(data) != 49 {
		return p, fmt.Errorf("challenge record: unexpected length %d", len(data))
	}
	if data[0] != challengeRecordVersion {
		return p, fmt.Errorf("challenge record: unknown version %d", data[0])
	}
	copy(p.CodeHash[:], data[1:33])
	p.IssuedAt = int64(binary.BigEndian.Uint64(data[33:41]))
	p.ExpiresAt = int64(binary.BigEndian.Uint64(data[41:49]))
	return p, nil
}

// challengeStore persists per-user pending challenges. One live challenge
// exists per user and method: Save overwrites unconditionally, and Consume
// removes the record whether or not the submitted code matches it.
type challengeStore struct {
	store store.Store
	ttl   time.Duration
	clock clock
}

func challengeKey(userID string, method Method) string {
	return "a2c:" + userID + ":" + method.String()
}

// Save writes a new challenge, replacing any prior one for the same user
// and method.
func (c *challengeStore) Save(ctx context.Context, userID string, method Method, codeHash [32]byte) error {
	now := c.clock.now()
	rec := pendingChallenge{
		CodeHash:  codeHash,
		IssuedAt:  now.Unix(),
		ExpiresAt: now.Add(c.ttl).Unix(),
	}
	if err := c.store.Put(ctx, challengeKey(userID, method), rec.encode(), c.ttl); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// Consume atomically removes and returns the pending challenge. A missing
// or expired record yields ErrChallengeExpired. The removal happens before
// any code comparison, so a wrong guess burns the challenge.
func (c *challengeStore) Consume(ctx context.Context, userID string, method Method) (pendingChallenge, error) {
	data, err := c.store.GetDel(ctx, challengeKey(userID, method))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return pendingChallenge{}, ErrChallengeExpired
		}
		return pendingChallenge{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	rec, err := decodeChallenge(data)
	if err != nil {
		return pendingChallenge{}, ErrChallengeExpired
	}
	// The backend enforces the TTL, but a skewed backend clock must not
	// extend a challenge's life.
	if c.clock.now().Unix() >= rec.ExpiresAt {
		return pendingChallenge{}, ErrChallengeExpired
	}
	return rec, nil
}

// Drop discards any pending challenge without consuming it for
// verification.
func (c *challengeStore) Drop(ctx context.Context, userID string, method Method) error {
	if err := c.store.Delete(ctx, challengeKey(userID, method)); err != nil && !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}
