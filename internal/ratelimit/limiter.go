// Package ratelimit throttles calls to the reasoning service.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/dvloznov/ledger-reconciler/internal/metrics"
	"golang.org/x/time/rate"
)

// Limiter grants at most one call per 60/rpm seconds. It is shared by every
// document being processed and is safe for concurrent use; waiters are not
// bounded.
type Limiter struct {
	lim *rate.Limiter
}

// New returns a limiter for callsPerMinute. A zero or negative value disables
// throttling.
func New(callsPerMinute int) *Limiter {
	if callsPerMinute <= 0 {
		return &Limiter{lim: rate.NewLimiter(rate.Inf, 1)}
	}
	return &Limiter{lim: rate.NewLimiter(rate.Every(time.Minute/time.Duration(callsPerMinute)), 1)}
}

// Wait blocks until the next call may proceed or ctx is done.
func (l *Limiter) Wait(ctx context.Context) error {
	start := time.Now()
	if err := l.lim.Wait(ctx); err != nil {
		return fmt.Errorf("ratelimit: %w", err)
	}
	metrics.RateLimitWait.Observe(time.Since(start).Seconds())
	return nil
}

// Interval is the minimum spacing between grants; zero when disabled.
func (l *Limiter) Interval() time.Duration {
	if l.lim.Limit() == rate.Inf {
		return 0
	}
	return time.Duration(float64(time.Second) / float64(l.lim.Limit()))
}
