// Package ratelimit provides sliding-window admission control for inbound
// requests, keyed by (client, route).
//
// This package contains:
//   - Store: interface for the window bookkeeping
//   - MemoryStore: single-process implementation with bounded key tracking
//   - RedisStore: sorted-set implementation for multi-process deployments
//   - Middleware: HTTP wrapper that surfaces X-RateLimit-* headers
//
// It governs admission of incoming requests only; outgoing calls to the
// completion provider are paced by the dispatcher, not here.
package ratelimit

import (
	"context"
	"fmt"
	"time"
)

// Key identifies one tracked window.
type Key struct {
	ClientID string
	Route    string
}

// Budget is the admission policy for a route.
type Budget struct {
	MaxRequests int           `yaml:"max_requests"`
	Window      time.Duration `yaml:"window"`
}

// UnmarshalYAML accepts the window as a duration string ("30s", "1m").
func (b *Budget) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var raw struct {
		MaxRequests int    `yaml:"max_requests"`
		Window      string `yaml:"window"`
	}
	if err := unmarshal(&raw); err != nil {
		return err
	}
	b.MaxRequests = raw.MaxRequests
	if raw.Window != "" {
		d, err := time.ParseDuration(raw.Window)
		if err != nil {
			return fmt.Errorf("invalid rate limit window %q: %w", raw.Window, err)
		}
		b.Window = d
	}
	return nil
}

// Decision is the outcome of an admission check.
type Decision struct {
	Limited    bool
	Limit      int
	Remaining  int
	ResetAt    time.Time
	RetryAfter time.Duration
}

// Store decides whether a request identified by key is admitted under the
// given budget, recording it if so.
type Store interface {
	Allow(ctx context.Context, key Key, budget Budget) (Decision, error)
}

// Budgets maps routes to their admission policy. Routes without an entry
// use the Default budget.
type Budgets struct {
	Default Budget            `yaml:"default"`
	Routes  map[string]Budget `yaml:"routes"`
}

// For returns the budget for a route.
func (b Budgets) For(route string) Budget {
	if budget, ok := b.Routes[route]; ok {
		return budget
	}
	return b.Default
}

// DefaultBudgets returns the stock policy: strict on the compute-heavy
// enrichment route, loose everywhere else.
func DefaultBudgets() Budgets {
	return Budgets{
		Default: Budget{MaxRequests: 60, Window: time.Minute},
		Routes: map[string]Budget{
			"/api/enrich": {MaxRequests: 5, Window: time.Minute},
		},
	}
}
