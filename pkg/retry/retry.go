// Package retry provides a small bounded-retry policy for read paths that
// must return promptly. It is deliberately not a general backoff library:
// a fixed number of attempts with a fixed delay is all the callers need,
// and keeping the policy explicit lets tests inject a fake sleep and
// assert attempt counts deterministically.
package retry

import (
	"context"
	"time"
)

// Policy describes how many times an operation is attempted and how long
// to wait between attempts.
type Policy struct {
	// Attempts is the total number of tries, including the first one.
	// Values below 1 are treated as 1.
	Attempts int

	// Delay is the fixed pause between consecutive attempts.
	Delay time.Duration

	// Sleep is called to wait between attempts. When nil, a
	// context-aware sleep based on time.After is used. Tests replace it
	// to avoid real waiting.
	Sleep func(ctx context.Context, d time.Duration) error
}

// Do runs fn until it succeeds, the policy is exhausted, or ctx is done.
// It returns nil on the first success, the last error when all attempts
// fail, and the context error when canceled mid-wait.
func (p Policy) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}

	sleep := p.Sleep
	if sleep == nil {
		sleep = defaultSleep
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			if err := sleep(ctx, p.Delay); err != nil {
				return err
			}
		}

		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
	}

	return lastErr
}

func defaultSleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
