package store

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound indicates the key does not exist or has expired.
	ErrNotFound = errors.New("store: key not found")
	// ErrUnavailable indicates the backing store could not be reached.
	// Callers must not treat this as a missing key.
	ErrUnavailable = errors.New("store: backend unavailable")
)

// Store is the ephemeral TTL-based key/value contract shared by the Redis
// and in-memory backends.
//
// Incr sets the TTL only on the write that transitions the key from absent
// to 1. Subsequent increments never reset the TTL, so a counting window has
// a fixed, non-extending duration.
//
// GetDel atomically fetches and removes a key. It is the single-use consume
// primitive: two concurrent callers can never both observe the same value.
type Store interface {
	Put(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Get(ctx context.Context, key string) ([]byte, error)
	GetDel(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
	Incr(ctx context.Context, key string, ttlOnFirstWrite time.Duration) (int64, error)

	// Counter returns the current value of an Incr counter, or 0 when the
	// key is absent.
	Counter(ctx context.Context, key string) (int64, error)

	// TTL returns the remaining lifetime of key, or 0 when the key is
	// absent or has no expiry.
	TTL(ctx context.Context, key string) (time.Duration, error)
}
