package scanner

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Limiter spaces request starts at least 1/rps apart. Reservations are taken under the
// underlying limiter's lock, so concurrent callers are serialized.
type Limiter struct {
	limiter  *rate.Limiter
	interval time.Duration
}

// NewLimiter creates a limiter for rps requests per second. rps <= 0 disables limiting.
func NewLimiter(rps float64) *Limiter {
	if rps <= 0 {
		return &Limiter{limiter: rate.NewLimiter(rate.Inf, 1)}
	}
	return &Limiter{
		limiter:  rate.NewLimiter(rate.Limit(rps), 1),
		interval: time.Duration(float64(time.Second) / rps),
	}
}

// Wait blocks until the next request may start or ctx is done
func (l *Limiter) Wait(ctx context.Context) error {
	return l.limiter.Wait(ctx)
}

// Interval returns the minimum spacing between request starts
func (l *Limiter) Interval() time.Duration {
	return l.interval
}
