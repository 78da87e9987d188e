package catalog

import (
	"context"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// adaptiveLimiter paces requests to the backend. Every success raises the
// rate by 20% up to twice the configured rate; a 429 halves it down to a
// quarter of the configured rate. An unlimited limiter never adapts.
type adaptiveLimiter struct {
	mu          sync.Mutex
	limiter     *rate.Limiter
	maxRate     rate.Limit
	minRate     rate.Limit
	currentRate rate.Limit
}

func newAdaptiveLimiter(r rate.Limit, burst int) *adaptiveLimiter {
	if burst < 1 {
		burst = 1
	}
	return &adaptiveLimiter{
		limiter:     rate.NewLimiter(r, burst),
		maxRate:     r * 2,
		minRate:     r / 4,
		currentRate: r,
	}
}

func (a *adaptiveLimiter) Wait(ctx context.Context) error {
	return a.limiter.Wait(ctx)
}

func (a *adaptiveLimiter) onSuccess() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.currentRate == rate.Inf {
		return
	}
	next := min(a.currentRate*1.2, a.maxRate)
	if next == a.currentRate {
		return
	}
	a.currentRate = next
	a.limiter.SetLimit(next)
}

func (a *adaptiveLimiter) onRateLimit() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.currentRate == rate.Inf {
		return
	}
	next := max(a.currentRate*0.5, a.minRate)
	a.currentRate = next
	a.limiter.SetLimit(next)
	zap.L().Warn("catalog: reducing request rate after 429",
		zap.Float64("new_rate", float64(next)),
	)
}

func (a *adaptiveLimiter) limit() rate.Limit {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.currentRate
}
