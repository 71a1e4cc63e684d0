package recovery

import (
	"math"
	"math/rand"
	"time"
)

// MaxBackoff caps every computed delay.
const MaxBackoff = 60 * time.Second

// jitterFraction widens each delay by up to 30% to avoid synchronized
// retries from parallel streams.
const jitterFraction = 0.3

// Backoff computes the delay before the given attempt (0-indexed):
// base * 2^attempt, widened by jitter, capped at MaxBackoff.
func Backoff(baseDelayMs int, attempt int) time.Duration {
	base := float64(baseDelayMs) * float64(time.Millisecond)
	delay := base * math.Pow(2, float64(attempt))
	delay *= 1 + rand.Float64()*jitterFraction
	if delay > float64(MaxBackoff) {
		return MaxBackoff
	}
	return time.Duration(delay)
}

// BackoffFloor is Backoff without jitter: the minimum delay the attempt can
// produce. Used where deterministic values matter.
func BackoffFloor(baseDelayMs int, attempt int) time.Duration {
	base := float64(baseDelayMs) * float64(time.Millisecond)
	delay := base * math.Pow(2, float64(attempt))
	if delay > float64(MaxBackoff) {
		return MaxBackoff
	}
	return time.Duration(delay)
}
