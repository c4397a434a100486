// Package retry handles transient external failures: bounded
// exponential backoff with jitter around calls to the issue source and
// change-request system, plus per-unit attempt bookkeeping for
// diagnostics.
package retry

import (
	"context"
	"math/rand"
	"time"

	"github.com/quell-dev/quell/internal/errors"
)

// Policy describes the backoff schedule.
type Policy struct {
	// MaxAttempts is the total attempt cap, including the first try.
	MaxAttempts int

	// BaseDelay is the delay before the first retry; each further
	// retry doubles it.
	BaseDelay time.Duration

	// MaxDelay caps the per-retry delay.
	MaxDelay time.Duration

	// Jitter adds up to this fraction of the delay as random noise,
	// 0 to 1. Zero disables jitter.
	Jitter float64
}

// DefaultPolicy is the backoff schedule for external calls: up to four
// attempts over roughly fifteen seconds.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 4,
		BaseDelay:   time.Second,
		MaxDelay:    10 * time.Second,
		Jitter:      0.2,
	}
}

// delay computes the backoff before retry n (1-based).
func (p Policy) delay(n int) time.Duration {
	d := p.BaseDelay << (n - 1)
	if p.MaxDelay > 0 && d > p.MaxDelay {
		d = p.MaxDelay
	}
	if p.Jitter > 0 {
		d += time.Duration(rand.Float64() * p.Jitter * float64(d))
	}
	return d
}

// Do calls fn until it succeeds, returns a non-retryable error, or the
// attempt cap is reached. Context cancellation aborts between attempts.
func Do(ctx context.Context, policy Policy, fn func(ctx context.Context) error) error {
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}

	var err error
	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		err = fn(ctx)
		if err == nil {
			return nil
		}
		if !errors.IsRetryable(err) {
			return err
		}
		if attempt == policy.MaxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(policy.delay(attempt)):
		}
	}
	return err
}
