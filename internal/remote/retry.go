package remote

import (
	"context"
	"errors"
	"math"
	"time"
)

// RetryPolicy controls how rate-limited requests are retried. Only
// *RateLimitError is retryable; every other error is returned at once.
type RetryPolicy struct {
	MaxAttempts  int
	InitialDelay time.Duration
	Multiplier   float64
	MaxDelay     time.Duration

	sleep func(ctx context.Context, d time.Duration) error
}

// DefaultRetryPolicy allows one retry after a 429: 2 attempts, 1s initial
// delay when no Retry-After is given, 2x multiplier, 30s max delay.
func DefaultRetryPolicy() *RetryPolicy {
	return &RetryPolicy{
		MaxAttempts:  2,
		InitialDelay: 1 * time.Second,
		Multiplier:   2.0,
		MaxDelay:     30 * time.Second,
	}
}

// ShouldRetry returns true if err is a rate limit signal and attempt has
// not reached MaxAttempts.
func (p *RetryPolicy) ShouldRetry(err error, attempt int) bool {
	if attempt >= p.MaxAttempts {
		return false
	}
	var rl *RateLimitError
	return errors.As(err, &rl)
}

// NextDelay returns the wait before the next attempt. A Retry-After carried
// by err wins; otherwise the delay is InitialDelay * Multiplier^(attempt-1).
// Either way it is capped at MaxDelay.
func (p *RetryPolicy) NextDelay(attempt int, err error) time.Duration {
	var rl *RateLimitError
	delay := float64(p.InitialDelay) * math.Pow(p.Multiplier, float64(attempt-1))
	if errors.As(err, &rl) && rl.RetryAfter > 0 {
		delay = float64(rl.RetryAfter)
	}
	if delay > float64(p.MaxDelay) {
		return p.MaxDelay
	}
	return time.Duration(delay)
}

// Execute runs fn, retrying while ShouldRetry allows. It returns nil on
// success or the last error.
func (p *RetryPolicy) Execute(ctx context.Context, fn func() error) error {
	var lastErr error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err
		if !p.ShouldRetry(err, attempt) {
			return err
		}
		if err := p.wait(ctx, p.NextDelay(attempt, err)); err != nil {
			return err
		}
	}
	return lastErr
}

func (p *RetryPolicy) wait(ctx context.Context, d time.Duration) error {
	if p.sleep != nil {
		return p.sleep(ctx, d)
	}
	return sleepCtx(ctx, d)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
