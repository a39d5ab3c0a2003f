package tasks

import (
	"context"
	"time"
)

// RateBudget tracks destination API usage for a single run.
//
// It is process-local and never persisted: a fresh run rebuilds it from
// scratch. The clock and sleep functions are injectable so tests can drive
// cooldown behavior synthetically.
type RateBudget struct {
	calls         int
	windowStart   time.Time
	cooldownUntil time.Time
	fallback      time.Duration

	now   func() time.Time
	sleep func(context.Context, time.Duration) error
}

// NewRateBudget creates a budget whose cooldown falls back to the given
// duration when the destination does not advertise a retry delay.
func NewRateBudget(fallback time.Duration) *RateBudget {
	if fallback <= 0 {
		fallback = 15 * time.Minute
	}
	return &RateBudget{
		fallback: fallback,
		now:      time.Now,
		sleep:    sleepContext,
	}
}

// Calls returns the number of destination calls recorded this run.
func (b *RateBudget) Calls() int { return b.calls }

// RecordCall counts one destination call against the budget.
func (b *RateBudget) RecordCall() {
	if b.windowStart.IsZero() {
		b.windowStart = b.now()
	}
	b.calls++
}

// TripCooldown suspends further destination calls for the advertised retry
// delay, or the configured fallback when none was advertised. Returns the
// effective cooldown duration.
func (b *RateBudget) TripCooldown(retryAfter time.Duration) time.Duration {
	d := retryAfter
	if d <= 0 {
		d = b.fallback
	}
	until := b.now().Add(d)
	if until.After(b.cooldownUntil) {
		b.cooldownUntil = until
	}
	return d
}

// Wait blocks until any active cooldown elapses. It must be called before
// every destination call, whichever endpoint that call targets.
func (b *RateBudget) Wait(ctx context.Context) error {
	d := b.cooldownUntil.Sub(b.now())
	if d <= 0 {
		return nil
	}
	return b.sleep(ctx, d)
}

// sleepContext sleeps for d or until the context is cancelled.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
