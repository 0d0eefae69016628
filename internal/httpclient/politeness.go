package httpclient

import (
	"context"
	"math/rand"
	"time"
)

// PolitenessDelay inserts a small random pause between requests to one
// source. It is a backoff policy, not a correctness requirement, and is
// disabled entirely when max is zero (tests run with no delay).
type PolitenessDelay struct {
	Min time.Duration
	Max time.Duration
}

// NewPolitenessDelay builds a delay in [min, max]. A zero max disables it.
func NewPolitenessDelay(min, max time.Duration) *PolitenessDelay {
	if max < min {
		max = min
	}
	return &PolitenessDelay{Min: min, Max: max}
}

// Wait sleeps for a random duration within the configured range, returning
// early if the context is cancelled.
func (d *PolitenessDelay) Wait(ctx context.Context) error {
	if d == nil || d.Max <= 0 {
		return nil
	}

	span := d.Max - d.Min
	wait := d.Min
	if span > 0 {
		wait += time.Duration(rand.Int63n(int64(span)))
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
