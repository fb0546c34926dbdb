package exchange

import (
	"context"

	"golang.org/x/time/rate"
)

// AccountLimiter throttles outbound exchange calls per account. All
// strategy loops trading on the same account share one limiter, so
// their combined request rate stays inside the exchange's budget.
type AccountLimiter struct {
	limiter *rate.Limiter
}

// NewAccountLimiter creates a limiter allowing requestsPerSecond
// sustained with a burst of the same size. A non-positive rate means
// no throttling.
func NewAccountLimiter(requestsPerSecond float64) *AccountLimiter {
	if requestsPerSecond <= 0 {
		return &AccountLimiter{limiter: rate.NewLimiter(rate.Inf, 1)}
	}
	burst := int(requestsPerSecond)
	if burst < 1 {
		burst = 1
	}
	return &AccountLimiter{
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), burst),
	}
}

// Wait blocks until a request slot is available or the context ends.
func (l *AccountLimiter) Wait(ctx context.Context) error {
	return l.limiter.Wait(ctx)
}

// Allow reports whether a request slot is available right now.
func (l *AccountLimiter) Allow() bool {
	return l.limiter.Allow()
}
