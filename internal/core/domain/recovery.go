package domain

import "time"

// RecoveryAction determines how a failure is handled.
type RecoveryAction string

const (
	ActionRetry    RecoveryAction = "retry"
	ActionFallback RecoveryAction = "fallback"
	ActionAbort    RecoveryAction = "abort"
)

// FailureCategory is the classifier's verdict on what kind of failure
// occurred. Categories carry fixed recoverability semantics.
type FailureCategory string

const (
	CategoryNetwork   FailureCategory = "network"
	CategoryRateLimit FailureCategory = "rate_limit"
	CategoryServer    FailureCategory = "server"
	CategoryFileInput FailureCategory = "file_input"
	CategoryAuth      FailureCategory = "auth"
	CategoryTimeout   FailureCategory = "timeout"
	CategoryUnknown   FailureCategory = "unknown"
)

// RecoveryStrategy is computed fresh on every failure and never persisted.
type RecoveryStrategy struct {
	Category         FailureCategory
	CanRecover       bool
	RetryDelay       time.Duration
	MaxRetries       int
	Action           RecoveryAction
	UserMessage      string
	TechnicalMessage string
}
