// Package retry provides a bounded retry policy for calls against
// external session-backed services.
package retry

import (
	"context"
	"fmt"
	"time"
)

// Policy bounds how often and how eagerly an operation is retried.
type Policy struct {
	// MaxAttempts caps the total number of attempts, including the first.
	MaxAttempts int
	// Delay is the pause before the second attempt.
	Delay time.Duration
	// Backoff multiplies the delay after each failed attempt. Values
	// below 1 mean a fixed delay.
	Backoff float64
	// MaxDelay caps the grown delay. Zero means uncapped.
	MaxDelay time.Duration
}

// DefaultPolicy matches the connect behavior of the chat session:
// a handful of attempts with a fixed short pause.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 3,
		Delay:       5 * time.Second,
		Backoff:     1,
	}
}

func (p Policy) withDefaults() Policy {
	defaults := DefaultPolicy()
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = defaults.MaxAttempts
	}
	if p.Delay <= 0 {
		p.Delay = defaults.Delay
	}
	if p.Backoff < 1 {
		p.Backoff = 1
	}
	return p
}

// ExhaustedError reports that every attempt failed. It wraps the last
// attempt's error.
type ExhaustedError struct {
	Attempts int
	Last     error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("retries exhausted after %d attempts: %v", e.Attempts, e.Last)
}

func (e *ExhaustedError) Unwrap() error { return e.Last }

// Do runs fn until it succeeds, the policy is exhausted, or ctx is
// canceled. After each failed attempt onFailure is invoked (when
// non-nil) with the 1-based attempt number and the attempt's error,
// letting the caller run recovery actions between attempts.
func (p Policy) Do(ctx context.Context, fn func(ctx context.Context) error, onFailure func(attempt int, err error)) error {
	p = p.withDefaults()

	delay := p.Delay
	var lastErr error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if onFailure != nil {
			onFailure(attempt, lastErr)
		}
		if attempt == p.MaxAttempts {
			break
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		delay = time.Duration(float64(delay) * p.Backoff)
		if p.MaxDelay > 0 && delay > p.MaxDelay {
			delay = p.MaxDelay
		}
	}

	return &ExhaustedError{Attempts: p.MaxAttempts, Last: lastErr}
}
