package recovery

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/minhvu-dev/enricher/internal/core/domain"
	"github.com/minhvu-dev/enricher/internal/enrichment/metrics"
)

func TestManager_AbortAfterSingleAttempt(t *testing.T) {
	m := NewManager(nil)
	defer m.Close()

	calls := 0
	task := &domain.TaskContext{FileID: "f1", Op: domain.OperationTranscribe}
	err := m.Do(context.Background(), task, func(ctx context.Context) error {
		calls++
		return errors.New("file too large: 512MB")
	})

	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("fn called %d times, want 1", calls)
	}
	if task.Attempt != 0 {
		t.Errorf("Attempt = %d, want 0 (never incremented for abort)", task.Attempt)
	}

	rec, ok := m.LastFailure("f1")
	if !ok {
		t.Fatal("failure not recorded")
	}
	if rec.Category != domain.CategoryFileInput {
		t.Errorf("recorded category = %s, want %s", rec.Category, domain.CategoryFileInput)
	}
}

func TestManager_SuccessResetsAttempt(t *testing.T) {
	m := NewManager(nil)
	defer m.Close()

	task := &domain.TaskContext{FileID: "f2", Attempt: 2}
	err := m.Do(context.Background(), task, func(ctx context.Context) error {
		return nil
	})

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if task.Attempt != 0 {
		t.Errorf("Attempt = %d, want 0 after success", task.Attempt)
	}
	if _, ok := m.LastFailure("f2"); ok {
		t.Error("failure record should be cleared on success")
	}
}

func TestManager_CancelStopsRetryLoop(t *testing.T) {
	m := NewManager(nil)
	defer m.Close()

	ctx, cancel := context.WithCancel(context.Background())
	task := &domain.TaskContext{FileID: "f3", Op: domain.OperationPostprocess}

	done := make(chan error, 1)
	go func() {
		done <- m.Do(ctx, task, func(ctx context.Context) error {
			// Retryable category with a 2s+ base delay.
			return errors.New("dial tcp: connection refused")
		})
	}()

	// Let the first attempt fail and enter the backoff sleep, then cancel.
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("err = %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Do did not honor cancellation")
	}
}

func TestManager_UnknownErrorsRetriedOnce(t *testing.T) {
	// Unknown errors are retryable with a single retry and an 8s base
	// delay. Cancelling during the backoff sleep proves the manager chose
	// to retry rather than propagate after the first attempt.
	m := NewManager(nil)
	defer m.Close()

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	task := &domain.TaskContext{FileID: "f4"}

	done := make(chan error, 1)
	go func() {
		done <- m.Do(ctx, task, func(ctx context.Context) error {
			calls++
			return errors.New("spontaneous combustion")
		})
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("err = %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Do did not honor cancellation")
	}
	if calls != 1 {
		t.Errorf("fn called %d times before cancel, want 1", calls)
	}
	if task.Attempt != 1 {
		t.Errorf("Attempt = %d, want 1 (retry scheduled)", task.Attempt)
	}
}

func TestManager_RetryCounterCountsOnlyRetries(t *testing.T) {
	m := NewManager(nil)
	defer m.Close()

	// One scheduled retry increments the counter once; the failed attempt
	// itself does not count. The timeout fires during the backoff sleep.
	counter := metrics.RetriesTotal.WithLabelValues(string(domain.CategoryNetwork))
	before := testutil.ToFloat64(counter)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	task := &domain.TaskContext{FileID: "f5"}
	err := m.Do(ctx, task, func(ctx context.Context) error {
		return errors.New("dial tcp: connection refused")
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want context.DeadlineExceeded", err)
	}
	if got := testutil.ToFloat64(counter) - before; got != 1 {
		t.Errorf("network retries counted = %.0f, want 1", got)
	}

	// An aborting category never schedules a retry and never counts.
	authCounter := metrics.RetriesTotal.WithLabelValues(string(domain.CategoryAuth))
	before = testutil.ToFloat64(authCounter)
	task = &domain.TaskContext{FileID: "f6"}
	_ = m.Do(context.Background(), task, func(ctx context.Context) error {
		return errors.New("401 Unauthorized: invalid api key")
	})
	if got := testutil.ToFloat64(authCounter) - before; got != 0 {
		t.Errorf("auth retries counted = %.0f, want 0", got)
	}
}

func TestManager_PurgeDropsStaleRecords(t *testing.T) {
	m := NewManager(nil)
	defer m.Close()

	task := &domain.TaskContext{FileID: "stale"}
	_ = m.Do(context.Background(), task, func(ctx context.Context) error {
		return errors.New("invalid api key")
	})

	// Fresh record survives a purge at now.
	m.Purge(time.Now())
	if _, ok := m.LastFailure("stale"); !ok {
		t.Fatal("fresh record purged too early")
	}

	// 25 hours later it does not.
	m.Purge(time.Now().Add(25 * time.Hour))
	if _, ok := m.LastFailure("stale"); ok {
		t.Error("stale record not purged")
	}
}
