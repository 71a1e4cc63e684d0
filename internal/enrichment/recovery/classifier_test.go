package recovery

import (
	"errors"
	"testing"
	"time"

	"github.com/minhvu-dev/enricher/internal/core/domain"
)

func TestCategorize(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected domain.FailureCategory
	}{
		{"connection refused", errors.New("dial tcp 10.0.0.1:443: connection refused"), domain.CategoryNetwork},
		{"rate limited", errors.New("429 Too Many Requests"), domain.CategoryRateLimit},
		{"quota", errors.New("you exceeded your current quota"), domain.CategoryRateLimit},
		{"server error", errors.New("502 Bad Gateway"), domain.CategoryServer},
		{"overloaded", errors.New("the model is overloaded"), domain.CategoryServer},
		{"file too large", errors.New("file too large: 120MB"), domain.CategoryFileInput},
		{"bad key", errors.New("401 Unauthorized: invalid api key"), domain.CategoryAuth},
		{"timeout", errors.New("context deadline exceeded"), domain.CategoryTimeout},
		{"unknown", errors.New("spontaneous combustion"), domain.CategoryUnknown},
		{"nil error", nil, domain.CategoryUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Categorize(tt.err); got != tt.expected {
				t.Errorf("Categorize(%v) = %s, want %s", tt.err, got, tt.expected)
			}
		})
	}
}

func TestCategorize_Precedence(t *testing.T) {
	// A rate-limit message that also mentions a timeout must classify as
	// rate-limit: rate-limit patterns are checked first.
	err := errors.New("429 too many requests, request timed out waiting for capacity")
	if got := Categorize(err); got != domain.CategoryRateLimit {
		t.Errorf("Categorize = %s, want %s", got, domain.CategoryRateLimit)
	}

	// Network beats everything.
	err = errors.New("connection reset by peer while reading 500 response")
	if got := Categorize(err); got != domain.CategoryNetwork {
		t.Errorf("Categorize = %s, want %s", got, domain.CategoryNetwork)
	}
}

func TestClassify_NonRetryableCategories(t *testing.T) {
	task := &domain.TaskContext{FileID: "f1", Op: domain.OperationPostprocess}

	for _, tt := range []struct {
		name string
		err  error
	}{
		{"file input", errors.New("unsupported format: .xyz")},
		{"auth", errors.New("403 Forbidden")},
	} {
		t.Run(tt.name, func(t *testing.T) {
			s := Classify(tt.err, task)
			if s.Action != domain.ActionAbort {
				t.Errorf("Action = %s, want abort", s.Action)
			}
			if s.MaxRetries != 0 {
				t.Errorf("MaxRetries = %d, want 0", s.MaxRetries)
			}
			if s.CanRecover {
				t.Error("CanRecover = true, want false")
			}
		})
	}
}

func TestClassify_RetryableCarriesDelay(t *testing.T) {
	task := &domain.TaskContext{FileID: "f1", Attempt: 0}
	s := Classify(errors.New("503 Service Unavailable"), task)

	if s.Action != domain.ActionRetry {
		t.Fatalf("Action = %s, want retry", s.Action)
	}
	if s.RetryDelay <= 0 {
		t.Errorf("RetryDelay = %v, want > 0", s.RetryDelay)
	}
	if s.UserMessage == "" {
		t.Error("UserMessage is empty")
	}
	if s.TechnicalMessage == "" {
		t.Error("TechnicalMessage is empty")
	}
}

func TestClassify_UnknownRetryableWithLongDelay(t *testing.T) {
	task := &domain.TaskContext{FileID: "f1", Attempt: 0}
	s := Classify(errors.New("spontaneous combustion"), task)

	if s.Action != domain.ActionRetry {
		t.Fatalf("Action = %s, want retry", s.Action)
	}
	if s.MaxRetries != 1 {
		t.Errorf("MaxRetries = %d, want 1", s.MaxRetries)
	}
	// Unknown failures back off from an 8s base.
	if s.RetryDelay < 8*time.Second {
		t.Errorf("RetryDelay = %v, want >= 8s", s.RetryDelay)
	}
}

func TestClassify_TotalOverAllCategories(t *testing.T) {
	// Every category must have a policy and a user message.
	for cat := range categoryPolicies {
		if _, ok := userMessages[cat]; !ok {
			t.Errorf("category %s has no user message", cat)
		}
	}
	if len(categoryPolicies) != 7 {
		t.Errorf("expected 7 categories, got %d", len(categoryPolicies))
	}
}
