package resilience

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/fairyhunter13/talent-matcher/internal/domain"
)

// RetryPolicy retries a call with exponential backoff and +-10% jitter.
// Delay for attempt n (0-indexed) is min(maxDelay, baseDelay*2^n) scaled by
// uniform(0.9, 1.1). Only listed error classes are retried.
type RetryPolicy struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	RetryOn    []domain.ErrorClass
}

// DefaultRetryPolicy mirrors the retry.default configuration keys.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries: 3,
		BaseDelay:  500 * time.Millisecond,
		MaxDelay:   30 * time.Second,
		RetryOn:    []domain.ErrorClass{domain.ClassTransient, domain.ClassRateLimited},
	}
}

func (p RetryPolicy) retryable(err error) bool {
	cls := domain.Classify(err)
	for _, c := range p.RetryOn {
		if c == cls {
			return true
		}
	}
	return false
}

func (p RetryPolicy) newBackOff() backoff.BackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = p.BaseDelay
	bo.MaxInterval = p.MaxDelay
	bo.Multiplier = 2.0
	bo.RandomizationFactor = 0.1
	bo.MaxElapsedTime = 0 // bounded by attempt count, not wall clock
	bo.Reset()
	return bo
}

// Do runs fn with retries. Retry exhaustion surfaces the last error. Context
// cancellation stops immediately.
func (p RetryPolicy) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	bo := p.newBackOff()
	var lastErr error
	for attempt := 0; ; attempt++ {
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if attempt >= p.MaxRetries || !p.retryable(lastErr) {
			return lastErr
		}
		delay := bo.NextBackOff()
		if delay == backoff.Stop {
			return lastErr
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
}

// Timeout wraps fn with a deadline. Cancellation propagates to sub-operations
// through the derived context.
func Timeout(ctx context.Context, d time.Duration, fn func(ctx context.Context) error) error {
	if d <= 0 {
		return fn(ctx)
	}
	cctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()
	err := fn(cctx)
	if err != nil && cctx.Err() == context.DeadlineExceeded && ctx.Err() == nil {
		// Surface the wrapper deadline as an upstream timeout so the retry
		// layer counts it as one transient failure.
		return domain.ErrUpstreamTimeout
	}
	return err
}

// Guard composes the three wrappers in the canonical order
// Retry(Breaker(Timeout(call))).
type Guard struct {
	Breaker *Breaker
	Retry   RetryPolicy
	Budget  time.Duration
}

// Do executes fn under retry, breaker and timeout.
func (g Guard) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	return g.Retry.Do(ctx, func(ctx context.Context) error {
		if g.Breaker == nil {
			return Timeout(ctx, g.Budget, fn)
		}
		if err := g.Breaker.Allow(); err != nil {
			return err
		}
		err := Timeout(ctx, g.Budget, fn)
		if err != nil {
			g.Breaker.RecordFailure()
			return err
		}
		g.Breaker.RecordSuccess()
		return nil
	})
}
