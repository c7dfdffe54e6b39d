package backoff

import (
	"context"
	"time"
)

const (
	DefaultBase = 1 * time.Second
	DefaultMax  = 60 * time.Second
)

// Policy computes exponential delays: Base * 2^attempt, capped at Max.
type Policy struct {
	Base time.Duration
	Max  time.Duration
}

func New(base time.Duration) Policy {
	if base <= 0 {
		base = DefaultBase
	}
	return Policy{Base: base, Max: DefaultMax}
}

// Delay returns the wait before the given retry. A negative attempt yields Base.
func (p Policy) Delay(attempt int) time.Duration {
	base, max := p.Base, p.Max
	if base <= 0 {
		base = DefaultBase
	}
	if max <= 0 {
		max = DefaultMax
	}
	if attempt < 0 {
		return base
	}
	// 2^30 times any sane base is already past max.
	if attempt > 30 {
		return max
	}
	d := base * time.Duration(1<<attempt)
	if d > max || d <= 0 {
		return max
	}
	return d
}

// Sleep waits for Delay(attempt) or until ctx is done.
func (p Policy) Sleep(ctx context.Context, attempt int) error {
	t := time.NewTimer(p.Delay(attempt))
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
