package gateway

import (
	"context"
	"sync"
	"time"
)

// IntervalLimiter enforces a minimum interval between requests to one
// provider. Callers reserve the next slot under the lock and sleep
// outside it, so concurrent waiters queue up instead of stampeding.
type IntervalLimiter struct {
	mu       sync.Mutex
	interval time.Duration
	next     time.Time
}

// NewIntervalLimiter spaces requests 1/rps apart. rps <= 0 disables
// limiting.
func NewIntervalLimiter(rps int) *IntervalLimiter {
	var interval time.Duration
	if rps > 0 {
		interval = time.Second / time.Duration(rps)
	}
	return &IntervalLimiter{interval: interval}
}

// Wait blocks until the caller's reserved slot arrives or ctx is done.
// A cancelled wait still consumes its slot.
func (l *IntervalLimiter) Wait(ctx context.Context) error {
	if l.interval <= 0 {
		return ctx.Err()
	}

	l.mu.Lock()
	now := time.Now()
	if l.next.Before(now) {
		l.next = now
	}
	wait := l.next.Sub(now)
	l.next = l.next.Add(l.interval)
	l.mu.Unlock()

	if wait <= 0 {
		return ctx.Err()
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(wait):
		return nil
	}
}
