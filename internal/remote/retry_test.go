package remote

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRetryPolicy(t *testing.T) {
	policy := DefaultRetryPolicy()

	if !policy.ShouldRetry(&RateLimitError{}, 1) {
		t.Error("expected rate limit error to be retryable")
	}

	if policy.ShouldRetry(&RateLimitError{}, 2) {
		t.Error("should not retry after max attempts")
	}

	delay := policy.NextDelay(1, nil)
	if delay != 1*time.Second {
		t.Errorf("expected 1s delay, got %v", delay)
	}

	delay = policy.NextDelay(2, nil)
	if delay != 2*time.Second {
		t.Errorf("expected 2s delay, got %v", delay)
	}

	delay = policy.NextDelay(1, &RateLimitError{RetryAfter: 3 * time.Second})
	if delay != 3*time.Second {
		t.Errorf("expected Retry-After delay of 3s, got %v", delay)
	}
}

func TestRetryPolicyNonRetryable(t *testing.T) {
	policy := DefaultRetryPolicy()

	if policy.ShouldRetry(&StatusError{Code: 500}, 1) {
		t.Error("expected status error to be non-retryable")
	}
	if policy.ShouldRetry(errors.New("connection refused"), 1) {
		t.Error("expected network error to be non-retryable")
	}
}

func TestRetryPolicyNilError(t *testing.T) {
	policy := DefaultRetryPolicy()
	if policy.ShouldRetry(nil, 1) {
		t.Error("nil error should not be retryable")
	}
}

func TestRetryPolicyMaxDelayCap(t *testing.T) {
	policy := &RetryPolicy{
		MaxAttempts:  10,
		InitialDelay: 1 * time.Second,
		Multiplier:   2.0,
		MaxDelay:     5 * time.Second,
	}

	delay := policy.NextDelay(10, nil)
	if delay != 5*time.Second {
		t.Errorf("expected max delay 5s, got %v", delay)
	}

	delay = policy.NextDelay(1, &RateLimitError{RetryAfter: time.Minute})
	if delay != 5*time.Second {
		t.Errorf("expected Retry-After capped at 5s, got %v", delay)
	}
}

func TestRetryExecuteRetriesOnce(t *testing.T) {
	policy := DefaultRetryPolicy()
	var slept []time.Duration
	policy.sleep = func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}

	attempts := 0
	err := policy.Execute(context.Background(), func() error {
		attempts++
		return &RateLimitError{RetryAfter: 2 * time.Second}
	})

	if attempts != 2 {
		t.Errorf("expected 2 attempts, got %d", attempts)
	}
	var rl *RateLimitError
	if !errors.As(err, &rl) {
		t.Errorf("expected last rate limit error, got %v", err)
	}
	if len(slept) != 1 || slept[0] != 2*time.Second {
		t.Errorf("expected a single 2s sleep, got %v", slept)
	}
}

func TestRetryExecuteSucceedsAfterRateLimit(t *testing.T) {
	policy := DefaultRetryPolicy()
	policy.sleep = func(context.Context, time.Duration) error { return nil }

	attempts := 0
	err := policy.Execute(context.Background(), func() error {
		attempts++
		if attempts == 1 {
			return &RateLimitError{}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if attempts != 2 {
		t.Errorf("expected 2 attempts, got %d", attempts)
	}
}

func TestRetryExecuteNoRetryOnOtherErrors(t *testing.T) {
	policy := DefaultRetryPolicy()
	attempts := 0
	err := policy.Execute(context.Background(), func() error {
		attempts++
		return &StatusError{Code: 400}
	})
	if err == nil || attempts != 1 {
		t.Errorf("expected one failed attempt, got %d (%v)", attempts, err)
	}
}
