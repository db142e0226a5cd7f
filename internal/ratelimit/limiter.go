package ratelimit

import (
	"context"

	"golang.org/x/time/rate"

	"github.com/tonglam/notion-syncer/internal/domain"
)

// Limiter bounds outbound API calls to a per-second and a per-minute budget.
// Both windows are token buckets with burst equal to the window budget, so a
// caller issuing M calls with a per-second budget of L is admitted in no less
// than (M/L)-1 seconds.
type Limiter struct {
	perSecond *rate.Limiter
	perMinute *rate.Limiter
}

// New returns a limiter with the given budgets. Non-positive budgets are
// rejected.
func New(perSecond, perMinute int) (*Limiter, error) {
	if perSecond <= 0 {
		return nil, domain.NewValidationError("rate limit per second must be positive, got %d", perSecond)
	}
	if perMinute <= 0 {
		return nil, domain.NewValidationError("rate limit per minute must be positive, got %d", perMinute)
	}

	return &Limiter{
		perSecond: rate.NewLimiter(rate.Limit(perSecond), perSecond),
		perMinute: rate.NewLimiter(rate.Limit(float64(perMinute)/60.0), perMinute),
	}, nil
}

// Wait blocks until both windows admit one call, or the context is done.
func (l *Limiter) Wait(ctx context.Context) error {
	if err := l.perMinute.Wait(ctx); err != nil {
		return err
	}
	return l.perSecond.Wait(ctx)
}

// Do admits one call through the limiter and invokes it. Failures of the
// wrapped call propagate unchanged.
func Do[T any](ctx context.Context, l *Limiter, call func(context.Context) (T, error)) (T, error) {
	if err := l.Wait(ctx); err != nil {
		var zero T
		return zero, err
	}
	return call(ctx)
}
