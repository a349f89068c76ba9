package service

import (
	"sync"

	"github.com/GoPolymarket/unifygate/internal/config"
	"golang.org/x/time/rate"
)

// LimiterRegistry hands out one token bucket per user.
type LimiterRegistry struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter // Key: UserID
	limit    rate.Limit
	burst    int
}

// NewLimiterRegistry treats qps <= 0 as unlimited.
func NewLimiterRegistry(cfg config.RateLimitConfig) *LimiterRegistry {
	limit := rate.Limit(cfg.QPS)
	if cfg.QPS <= 0 {
		limit = rate.Inf
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	return &LimiterRegistry{
		limiters: make(map[string]*rate.Limiter),
		limit:    limit,
		burst:    burst,
	}
}

func (r *LimiterRegistry) Get(userID string) *rate.Limiter {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.limiters[userID]
	if !ok {
		l = rate.NewLimiter(r.limit, r.burst)
		r.limiters[userID] = l
	}
	return l
}

func (r *LimiterRegistry) Allow(userID string) bool {
	return r.Get(userID).Allow()
}
