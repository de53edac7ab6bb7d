// Package retry holds the command attempt policy. Every remote command is
// attempted exactly once by default; a retrying policy is substituted by the
// caller, never hidden inside the state machine.
package retry

import (
	"context"
	"time"
)

// Policy controls how many times a single command is attempted and how long
// to wait between attempts.
type Policy struct {
	Attempts int
	Backoff  time.Duration
}

// Default is the single-attempt policy.
func Default() Policy {
	return Policy{Attempts: 1}
}

// Do runs fn up to p.Attempts times, sleeping p.Backoff between attempts,
// and returns the last error. Context cancellation is honored during the
// backoff wait, not mid-attempt.
func (p Policy) Do(ctx context.Context, fn func() error) error {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for i := 0; i < attempts; i++ {
		if i > 0 && p.Backoff > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(p.Backoff):
			}
		}

		if lastErr = fn(); lastErr == nil {
			return nil
		}
	}
	return lastErr
}
