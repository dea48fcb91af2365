// Package ratelimit paces outbound sends so total delivery rate stays under
// a configured ceiling. The dispatch engine calls Wait before each recipient
// and never sleeps directly, keeping the throughput policy swappable.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Limiter blocks until the caller may perform one send. Implementations
// must be safe for concurrent use.
type Limiter interface {
	// Wait blocks until a permit is available or the context is done.
	Wait(ctx context.Context) error
}

// IntervalLimiter enforces a fixed minimum interval between permits. With
// an interval of 100ms the outbound ceiling is exactly 10 sends/second
// regardless of burst demand.
type IntervalLimiter struct {
	interval time.Duration

	mu   sync.Mutex
	next time.Time

	now func() time.Time
}

// NewIntervalLimiter creates a blocking limiter with the given minimum
// interval between permits.
func NewIntervalLimiter(interval time.Duration) *IntervalLimiter {
	return &IntervalLimiter{interval: interval, now: time.Now}
}

// Wait blocks until the next permit slot. The first call returns
// immediately.
func (l *IntervalLimiter) Wait(ctx context.Context) error {
	if l.interval <= 0 {
		return ctx.Err()
	}

	l.mu.Lock()
	now := l.now()
	slot := l.next
	if slot.Before(now) {
		slot = now
	}
	l.next = slot.Add(l.interval)
	l.mu.Unlock()

	delay := slot.Sub(now)
	if delay <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
