// Package backoff wraps a retry-on-any-failure operation with
// exponentially-capped delay. It is the Go mapping of the Python
// original's retry decorator (spec.md §4.4, §9 "Retry-forever decorator").
package backoff

import (
	"context"
	"log/slog"
	"time"
)

// Policy configures the delay schedule: base, doubling each attempt, capped
// at capMultiplier*base. With the defaults (base=1s, capMultiplier=8) the
// schedule is 1, 2, 4, 8, 8, 8, ... seconds, matching spec.md §8.
type Policy struct {
	Base          time.Duration
	CapMultiplier time.Duration
}

// DefaultPolicy returns the policy described in spec.md §4.4: base defaults
// to 1 second, capped at 8x base.
func DefaultPolicy(base time.Duration) Policy {
	if base <= 0 {
		base = time.Second
	}

	return Policy{Base: base, CapMultiplier: 8}
}

func (p Policy) delay(attempt int) time.Duration {
	d := p.Base

	for i := 0; i < attempt; i++ {
		d *= 2
		if cap := p.Base * p.CapMultiplier; d > cap {
			return cap
		}
	}

	return d
}

// sleep is swapped out in tests to avoid real delays.
var sleep = func(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Retry attempts op; on any error, logs at error level with label, sleeps
// per the policy's schedule, and retries. It never gives up on its own —
// the only way out short of success is ctx cancellation, which it returns
// immediately as an error.
func Retry(ctx context.Context, logger *slog.Logger, policy Policy, label string, op func(context.Context) error) error {
	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := op(ctx)
		if err == nil {
			return nil
		}

		logger.Error("retrying after failure",
			slog.String("operation", label),
			slog.Int("attempt", attempt+1),
			slog.String("error", err.Error()),
		)

		if sleepErr := sleep(ctx, policy.delay(attempt)); sleepErr != nil {
			return sleepErr
		}
	}
}
