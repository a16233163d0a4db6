package share

import (
	"context"
	"math"
	"time"
)

// maxBackoffExponent caps base^n so a long failure streak cannot overflow.
const maxBackoffExponent = 16

// MaxBackoff is the longest wait Delay returns.
const MaxBackoff = time.Duration(math.MaxInt64)

// SleepFunc blocks for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Sleep is the default SleepFunc.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Backoff computes and performs exponential waits of base^n units.
type Backoff struct {
	Unit  time.Duration
	Sleep SleepFunc
}

// Delay returns base^n units, saturating at MaxBackoff.
func (b Backoff) Delay(base, n int) time.Duration {
	if n > maxBackoffExponent {
		n = maxBackoffExponent
	}
	d := b.Unit
	for i := 0; i < n && base > 1; i++ {
		if d > MaxBackoff/time.Duration(base) {
			return MaxBackoff
		}
		d *= time.Duration(base)
	}
	return d
}

// Wait sleeps for base^n units.
func (b Backoff) Wait(ctx context.Context, base, n int) error {
	return b.Pause(ctx, b.Delay(base, n))
}

// Pause sleeps for a fixed duration.
func (b Backoff) Pause(ctx context.Context, d time.Duration) error {
	sleep := b.Sleep
	if sleep == nil {
		sleep = Sleep
	}
	return sleep(ctx, d)
}
