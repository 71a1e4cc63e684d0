// Package recovery classifies failures from the completion provider and
// drives the retry loop around individual units of work.
package recovery

import (
	"strings"

	"github.com/minhvu-dev/enricher/internal/core/domain"
)

// Per-category retry policy. Base delays seed exponential backoff; a zero
// MaxRetries means the category is not retryable.
var categoryPolicies = map[domain.FailureCategory]policy{
	domain.CategoryNetwork:   {baseDelayMs: 2000, maxRetries: 3, action: domain.ActionRetry},
	domain.CategoryRateLimit: {baseDelayMs: 30000, maxRetries: 2, action: domain.ActionRetry},
	domain.CategoryServer:    {baseDelayMs: 5000, maxRetries: 3, action: domain.ActionRetry},
	domain.CategoryFileInput: {baseDelayMs: 0, maxRetries: 0, action: domain.ActionAbort},
	domain.CategoryAuth:      {baseDelayMs: 0, maxRetries: 0, action: domain.ActionAbort},
	domain.CategoryTimeout:   {baseDelayMs: 10000, maxRetries: 2, action: domain.ActionRetry},
	domain.CategoryUnknown:   {baseDelayMs: 8000, maxRetries: 1, action: domain.ActionRetry},
}

type policy struct {
	baseDelayMs int
	maxRetries  int
	action      domain.RecoveryAction
}

var userMessages = map[domain.FailureCategory]string{
	domain.CategoryNetwork:   "Connection problem. Retrying shortly.",
	domain.CategoryRateLimit: "The service is busy. Waiting before trying again.",
	domain.CategoryServer:    "The service hit a temporary problem. Retrying.",
	domain.CategoryFileInput: "The file could not be processed. Check its size and format.",
	domain.CategoryAuth:      "Invalid credentials. Check the configured API key.",
	domain.CategoryTimeout:   "The request took too long. Retrying with a longer wait.",
	domain.CategoryUnknown:   "Something went wrong. The result falls back to the original text.",
}

// Categorize maps an error to a failure category by matching its message
// against known patterns. Precedence matters: network and rate-limit
// signatures are checked before the generic 5xx match, and file/auth before
// timeout so that "upload timed out due to file size" classifies as input.
func Categorize(err error) domain.FailureCategory {
	if err == nil {
		return domain.CategoryUnknown
	}
	s := strings.ToLower(err.Error())

	switch {
	case containsAny(s, "network", "connection refused", "connection reset",
		"no such host", "econnrefused", "dial tcp", "broken pipe", "eof"):
		return domain.CategoryNetwork

	case containsAny(s, "429", "rate limit", "too many requests", "quota",
		"requests per minute"):
		return domain.CategoryRateLimit

	case containsAny(s, "500", "502", "503", "504", "internal server error",
		"bad gateway", "service unavailable", "overloaded"):
		return domain.CategoryServer

	case containsAny(s, "file too large", "unsupported format", "invalid file",
		"malformed", "decode", "empty file"):
		return domain.CategoryFileInput

	case containsAny(s, "401", "403", "unauthorized", "invalid api key",
		"forbidden", "authentication", "incorrect api key"):
		return domain.CategoryAuth

	case containsAny(s, "timeout", "timed out", "deadline exceeded"):
		return domain.CategoryTimeout

	default:
		return domain.CategoryUnknown
	}
}

// Classify computes a fresh RecoveryStrategy for a failure in the given task
// context. Total: every error maps to a strategy.
func Classify(err error, task *domain.TaskContext) domain.RecoveryStrategy {
	category := Categorize(err)
	pol := categoryPolicies[category]

	attempt := 0
	if task != nil {
		attempt = task.Attempt
	}

	strategy := domain.RecoveryStrategy{
		Category:    category,
		CanRecover:  pol.action == domain.ActionRetry,
		MaxRetries:  pol.maxRetries,
		Action:      pol.action,
		UserMessage: userMessages[category],
	}
	if err != nil {
		strategy.TechnicalMessage = err.Error()
	}
	if pol.action == domain.ActionRetry {
		strategy.RetryDelay = Backoff(pol.baseDelayMs, attempt)
	}
	return strategy
}

func containsAny(s string, patterns ...string) bool {
	for _, p := range patterns {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}
