package stream

import "time"

// Backoff schedules bounded exponential reconnect delays: Base for the
// first attempt, doubling on every subsequent one, up to MaxAttempts.
type Backoff struct {
	Base        time.Duration
	MaxAttempts int
}

// DefaultBackoff matches the shipped reconnection policy.
func DefaultBackoff() Backoff {
	return Backoff{Base: 2 * time.Second, MaxAttempts: 5}
}

// Delay returns the wait before the given zero-based attempt.
func (b Backoff) Delay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	if attempt > 20 {
		attempt = 20
	}
	return b.Base << uint(attempt)
}

// Exhausted reports whether the attempt budget is spent; the channel then
// enters the failed state and capture continues locally.
func (b Backoff) Exhausted(attempt int) bool {
	return attempt >= b.MaxAttempts
}
