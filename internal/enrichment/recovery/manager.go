package recovery

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/minhvu-dev/enricher/internal/core/domain"
	"github.com/minhvu-dev/enricher/internal/enrichment/metrics"
)

// Failure purge policy: entries older than maxFailureAge are dropped on
// every purge tick.
const (
	purgeInterval = time.Hour
	maxFailureAge = 24 * time.Hour
)

// FailureRecord is the last observed failure for a file, kept for
// diagnostics only.
type FailureRecord struct {
	FileID     string
	Op         domain.Operation
	Category   domain.FailureCategory
	Attempts   int
	Message    string
	OccurredAt time.Time
}

// Manager wraps units of work in a classify-and-retry loop and tracks the
// last failure per file. Construct with NewManager and stop with Close;
// there is no package-level singleton.
type Manager struct {
	log *slog.Logger

	mu       sync.Mutex
	failures map[string]FailureRecord

	stopOnce sync.Once
	stop     chan struct{}
}

// NewManager creates a retry manager.
func NewManager(log *slog.Logger) *Manager {
	if log == nil {
		log = slog.Default()
	}
	return &Manager{
		log:      log,
		failures: make(map[string]FailureRecord),
		stop:     make(chan struct{}),
	}
}

// Start runs the periodic purge loop until ctx is cancelled or Close is
// called. Optional: Purge can also be driven directly (tests).
func (m *Manager) Start(ctx context.Context) {
	ticker := time.NewTicker(purgeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-m.stop:
			return
		case <-ticker.C:
			m.Purge(time.Now())
		}
	}
}

// Close stops the purge loop.
func (m *Manager) Close() {
	m.stopOnce.Do(func() { close(m.stop) })
}

// Do executes fn, retrying on transient failures per the classifier's
// strategy. On success the task's attempt counter is reset. On a
// non-retryable failure, or once retries are exhausted, the last error is
// propagated and the failure recorded.
func (m *Manager) Do(ctx context.Context, task *domain.TaskContext, fn func(ctx context.Context) error) error {
	for {
		err := fn(ctx)
		if err == nil {
			task.Attempt = 0
			m.clearFailure(task.FileID)
			return nil
		}

		strategy := Classify(err, task)

		if strategy.Action != domain.ActionRetry || task.Attempt >= strategy.MaxRetries {
			m.recordFailure(task, strategy)
			m.log.Warn("giving up on task",
				"fileID", task.FileID,
				"op", task.Op,
				"category", strategy.Category,
				"attempts", task.Attempt+1,
				"action", strategy.Action)
			return fmt.Errorf("%s failed after %d attempt(s): %w", task.Op, task.Attempt+1, err)
		}

		task.Attempt++
		metrics.RetriesTotal.WithLabelValues(string(strategy.Category)).Inc()
		m.log.Debug("retrying task",
			"fileID", task.FileID,
			"op", task.Op,
			"category", strategy.Category,
			"attempt", task.Attempt,
			"delay", strategy.RetryDelay)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(strategy.RetryDelay):
		}
	}
}

// LastFailure returns the last recorded failure for a file, if any.
func (m *Manager) LastFailure(fileID string) (FailureRecord, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.failures[fileID]
	return rec, ok
}

// Purge drops failure records older than the retention age relative to now.
func (m *Manager) Purge(now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, rec := range m.failures {
		if now.Sub(rec.OccurredAt) > maxFailureAge {
			delete(m.failures, id)
		}
	}
}

func (m *Manager) recordFailure(task *domain.TaskContext, strategy domain.RecoveryStrategy) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[task.FileID] = FailureRecord{
		FileID:     task.FileID,
		Op:         task.Op,
		Category:   strategy.Category,
		Attempts:   task.Attempt + 1,
		Message:    strategy.TechnicalMessage,
		OccurredAt: time.Now(),
	}
}

func (m *Manager) clearFailure(fileID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.failures, fileID)
}
