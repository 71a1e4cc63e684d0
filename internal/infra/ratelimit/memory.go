package ratelimit

import (
	"context"
	"sync"
	"time"
)

const (
	// Hard cap on tracked keys. Protects against key-spraying abuse;
	// when full, a sweep runs before the new key is inserted.
	defaultMaxKeys = 10000

	sweepInterval = 60 * time.Second
)

type entry struct {
	timestamps   []time.Time
	window       time.Duration
	firstRequest time.Time
}

// MemoryStore is a mutex-guarded sliding-window store. Timestamps outside
// the window are pruned lazily on each check; fully-expired keys are swept
// periodically.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[Key]*entry
	maxKeys int

	lastSweep time.Time
	now       func() time.Time
}

// NewMemoryStore creates a store with the default key cap.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries:   make(map[Key]*entry),
		maxKeys:   defaultMaxKeys,
		lastSweep: time.Now(),
		now:       time.Now,
	}
}

// Allow implements Store.
func (s *MemoryStore) Allow(_ context.Context, key Key, budget Budget) (Decision, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	windowStart := now.Add(-budget.Window)

	if now.Sub(s.lastSweep) >= sweepInterval {
		s.sweep(now)
	}

	e, ok := s.entries[key]
	if !ok {
		if len(s.entries) >= s.maxKeys {
			s.sweep(now)
		}
		e = &entry{firstRequest: now}
		s.entries[key] = e
	}
	// Routes carry different windows; remember this key's own so a sweep
	// triggered from another route judges it correctly.
	e.window = budget.Window

	// Lazy prune: drop timestamps that fell out of the window.
	kept := e.timestamps[:0]
	for _, ts := range e.timestamps {
		if ts.After(windowStart) {
			kept = append(kept, ts)
		}
	}
	e.timestamps = kept

	decision := Decision{Limit: budget.MaxRequests}

	if len(e.timestamps) >= budget.MaxRequests {
		oldest := e.timestamps[0]
		decision.Limited = true
		decision.Remaining = 0
		decision.ResetAt = oldest.Add(budget.Window)
		decision.RetryAfter = decision.ResetAt.Sub(now)
		if decision.RetryAfter < 0 {
			decision.RetryAfter = 0
		}
		return decision, nil
	}

	e.timestamps = append(e.timestamps, now)
	decision.Remaining = budget.MaxRequests - len(e.timestamps)
	decision.ResetAt = e.timestamps[0].Add(budget.Window)
	return decision, nil
}

// Len returns the number of tracked keys.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// sweep removes keys whose every timestamp has expired, each judged
// against its own window. Caller holds mu.
func (s *MemoryStore) sweep(now time.Time) {
	for key, e := range s.entries {
		windowStart := now.Add(-e.window)
		live := false
		for _, ts := range e.timestamps {
			if ts.After(windowStart) {
				live = true
				break
			}
		}
		if !live {
			delete(s.entries, key)
		}
	}
	s.lastSweep = now
}
