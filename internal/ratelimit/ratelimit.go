package ratelimit

import (
	"context"
	"sync"
	"time"

	"sentiment-trader/internal/logger"
)

// Limiter allows at most maxCalls per fixed window of length interval.
// The window opens on the first call after the previous one closed.
type Limiter struct {
	maxCalls int
	interval time.Duration

	mu          sync.Mutex
	calls       int
	windowStart time.Time
	now         func() time.Time
}

func New(maxCalls int, interval time.Duration) *Limiter {
	if maxCalls < 1 {
		maxCalls = 1
	}
	return &Limiter{
		maxCalls: maxCalls,
		interval: interval,
		now:      time.Now,
	}
}

// PerMinute is shorthand for New(n, time.Minute).
func PerMinute(n int) *Limiter {
	return New(n, time.Minute)
}

// Wait blocks until a call is allowed in the current window or ctx is done.
func (l *Limiter) Wait(ctx context.Context) error {
	for {
		wait := l.reserve()
		if wait <= 0 {
			return nil
		}

		logger.Debug(ctx, "Rate limit reached, waiting", "wait_ms", wait.Milliseconds())

		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
}

// reserve takes a slot and returns 0, or returns how long until the window resets.
func (l *Limiter) reserve() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if l.windowStart.IsZero() || now.Sub(l.windowStart) >= l.interval {
		l.windowStart = now
		l.calls = 0
	}

	if l.calls < l.maxCalls {
		l.calls++
		return 0
	}

	return l.interval - now.Sub(l.windowStart)
}
