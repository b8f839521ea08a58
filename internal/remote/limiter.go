package remote

import (
	"context"
	"sync"
	"time"
)

// Limiter allows at most perSecond calls to Wait to return within any one
// second window. When the budget is spent, Wait blocks until the window
// rolls over and then starts a new one.
type Limiter struct {
	mu          sync.Mutex
	perSecond   int
	windowStart time.Time
	count       int

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// NewLimiter creates a Limiter. perSecond <= 0 disables throttling.
func NewLimiter(perSecond int) *Limiter {
	return &Limiter{perSecond: perSecond, now: time.Now, sleep: sleepCtx}
}

// Wait blocks until a request may be issued.
func (l *Limiter) Wait(ctx context.Context) error {
	if l == nil || l.perSecond <= 0 {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	elapsed := now.Sub(l.windowStart)
	switch {
	case elapsed >= time.Second:
		l.windowStart = now
		l.count = 0
	case l.count >= l.perSecond:
		if err := l.sleep(ctx, time.Second-elapsed); err != nil {
			return err
		}
		l.windowStart = l.now()
		l.count = 0
	}
	l.count++
	return nil
}
