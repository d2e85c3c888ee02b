package authgate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rebelwithoutacause/authgate/store"
)

// lockoutTracker counts consecutive authentication failures per account
// inside a fixed window. Password failures and second-factor failures feed
// the same counter, so an attacker cannot reset their budget by switching
// surfaces.
type lockoutTracker struct {
	store     store.Store
	threshold int
	window    time.Duration
}

func lockoutKey(userID string) string {
	return "alo:" + userID
}

// RecordFailure bumps the counter and reports whether the account just
// crossed the threshold. The window starts at the first failure and is
// never extended by later ones.
func (t *lockoutTracker) RecordFailure(ctx context.Context, userID string) (count int64, locked bool, err error) {
	count, err = t.store.Incr(ctx, lockoutKey(userID), t.window)
	if err != nil {
		return 0, false, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return count, count >= int64(t.threshold), nil
}

// Status reports whether the account is currently locked and, if so, how
// long until the window expires. A store failure is reported as
// ErrStoreUnavailable so callers fail closed.
func (t *lockoutTracker) Status(ctx context.Context, userID string) (locked bool, retryAfter time.Duration, err error) {
	count, err := t.store.Counter(ctx, lockoutKey(userID))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return false, 0, nil
		}
		return false, 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if count < int64(t.threshold) {
		return false, 0, nil
	}
	retryAfter, err = t.store.TTL(ctx, lockoutKey(userID))
	if err != nil {
		return true, 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return true, retryAfter, nil
}

// Reset clears the counter. Called on every successful authentication.
func (t *lockoutTracker) Reset(ctx context.Context, userID string) error {
	if err := t.store.Delete(ctx, lockoutKey(userID)); err != nil && !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}
