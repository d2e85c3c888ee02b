package store

import (
	"context"
	"strconv"
	"sync"
	"time"
)

const defaultSweepInterval = time.Minute

type memoryEntry struct {
	value     []byte
	expiresAt time.Time // zero = no expiry
}

// Memory is an in-process [Store] for development and tests. Expired
// entries are treated as absent on read regardless of whether the
// background sweep has physically removed them yet.
type Memory struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time

	done      chan struct{}
	closeOnce sync.Once
}

// NewMemory creates a memory store and starts its expiry sweep goroutine.
// Call Close to stop the sweep.
func NewMemory() *Memory {
	s := &Memory{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
		done:    make(chan struct{}),
	}
	go s.sweep(defaultSweepInterval)
	return s
}

// Close stops the expiry sweep. The store remains usable afterwards.
func (s *Memory) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
	})
}

// SetClock overrides the store's time source. Intended for tests.
func (s *Memory) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *Memory) sweep(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.mu.Lock()
			now := s.now()
			for key, entry := range s.entries {
				if !entry.expiresAt.IsZero() && now.After(entry.expiresAt) {
					delete(s.entries, key)
				}
			}
			s.mu.Unlock()
		case <-s.done:
			return
		}
	}
}

// live returns the entry for key if it exists and has not expired.
// Caller must hold s.mu.
func (s *Memory) live(key string) (memoryEntry, bool) {
	entry, ok := s.entries[key]
	if !ok {
		return memoryEntry{}, false
	}
	if !entry.expiresAt.IsZero() && s.now().After(entry.expiresAt) {
		delete(s.entries, key)
		return memoryEntry{}, false
	}
	return entry, true
}

func (s *Memory) Put(_ context.Context, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry := memoryEntry{value: append([]byte(nil), value...)}
	if ttl > 0 {
		entry.expiresAt = s.now().Add(ttl)
	}
	s.entries[key] = entry
	return nil
}

func (s *Memory) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.live(key)
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), entry.value...), nil
}

func (s *Memory) GetDel(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.live(key)
	if !ok {
		return nil, ErrNotFound
	}
	delete(s.entries, key)
	return append([]byte(nil), entry.value...), nil
}

func (s *Memory) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, key)
	return nil
}

// Incr mirrors the Redis INCR semantics: counters are stored as decimal
// strings and the TTL is armed only on the absent-to-1 transition.
func (s *Memory) Incr(_ context.Context, key string, ttlOnFirstWrite time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var count int64
	entry, ok := s.live(key)
	if ok {
		parsed, err := strconv.ParseInt(string(entry.value), 10, 64)
		if err != nil {
			return 0, ErrUnavailable
		}
		count = parsed + 1
		entry.value = []byte(strconv.FormatInt(count, 10))
		s.entries[key] = entry
		return count, nil
	}

	count = 1
	next := memoryEntry{value: []byte("1")}
	if ttlOnFirstWrite > 0 {
		next.expiresAt = s.now().Add(ttlOnFirstWrite)
	}
	s.entries[key] = next
	return count, nil
}

func (s *Memory) Counter(_ context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.live(key)
	if !ok {
		return 0, nil
	}
	count, err := strconv.ParseInt(string(entry.value), 10, 64)
	if err != nil {
		return 0, ErrUnavailable
	}
	return count, nil
}

func (s *Memory) TTL(_ context.Context, key string) (time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.live(key)
	if !ok || entry.expiresAt.IsZero() {
		return 0, nil
	}
	return entry.expiresAt.Sub(s.now()), nil
}
