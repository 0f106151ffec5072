package guardrails

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

// RateLimiter enforces a per-tenant request rate. Idle tenant limiters
// expire from the cache so the set stays bounded.
type RateLimiter struct {
	limit    rate.Limit
	burst    int
	limiters *gocache.Cache
}

// NewRateLimiter allows requestsPerSecond sustained with the given burst
// per tenant.
func NewRateLimiter(requestsPerSecond float64, burst int) *RateLimiter {
	if requestsPerSecond <= 0 {
		requestsPerSecond = 5
	}
	if burst <= 0 {
		burst = 10
	}
	return &RateLimiter{
		limit:    rate.Limit(requestsPerSecond),
		burst:    burst,
		limiters: gocache.New(10*time.Minute, 15*time.Minute),
	}
}

// Allow reports whether the tenant may make a request right now.
func (r *RateLimiter) Allow(tenantID string) bool {
	if tenantID == "" {
		tenantID = "default"
	}
	if cached, ok := r.limiters.Get(tenantID); ok {
		return cached.(*rate.Limiter).Allow()
	}
	limiter := rate.NewLimiter(r.limit, r.burst)
	r.limiters.SetDefault(tenantID, limiter)
	return limiter.Allow()
}
