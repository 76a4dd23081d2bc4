package sim

import (
	"context"
	"time"
)

// Clock fires a callback at a configurable interval.
// One timer is re-armed only after the callback returns, so firings never
// overlap; the interval is re-read on every re-arm, which makes interval
// changes take effect from the next firing.
type Clock struct {
	interval func() time.Duration
}

// NewClock creates a Clock reading its interval from fn. Panics on nil fn.
func NewClock(fn func() time.Duration) *Clock {
	if fn == nil {
		panic("NewClock: interval func must not be nil")
	}
	return &Clock{interval: fn}
}

// Run fires tick until it returns false (returns nil) or ctx is done
// (returns ctx.Err()).
func (c *Clock) Run(ctx context.Context, tick func(now time.Time) bool) error {
	timer := time.NewTimer(c.interval())
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-timer.C:
			if !tick(now) {
				return nil
			}
			timer.Reset(c.interval())
		}
	}
}
