package limiter

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/time/rate"
)

// RateConfig bounds the request rate of one evaluator endpoint.
type RateConfig struct {
	RequestsPerSecond float64 `json:"requests_per_second" yaml:"requests_per_second"`
	Burst             int     `json:"burst" yaml:"burst"`
}

// RateLimiter manages rate limiting per evaluator endpoint
type RateLimiter struct {
	limiters map[string]*rate.Limiter
	configs  map[string]RateConfig
	mu       sync.Mutex
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter() *RateLimiter {
	return &RateLimiter{
		limiters: make(map[string]*rate.Limiter),
		configs:  make(map[string]RateConfig),
	}
}

// Configure sets the rate of endpoint from now on.
func (rl *RateLimiter) Configure(endpoint string, config RateConfig) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.configs[endpoint] = config
	delete(rl.limiters, endpoint)
}

// GetLimiter returns or creates the rate limiter of an endpoint
func (rl *RateLimiter) GetLimiter(endpoint string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if limiter, exists := rl.limiters[endpoint]; exists {
		return limiter
	}

	config := rl.configs[endpoint]
	limit := rate.Inf
	if config.RequestsPerSecond > 0 {
		limit = rate.Limit(config.RequestsPerSecond)
	}
	burst := config.Burst
	if burst <= 0 {
		burst = 1
	}

	limiter := rate.NewLimiter(limit, burst)
	rl.limiters[endpoint] = limiter
	return limiter
}

// Wait waits for the rate limiter to allow the request
func (rl *RateLimiter) Wait(ctx context.Context, endpoint string) error {
	if err := rl.GetLimiter(endpoint).Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter wait failed: %w", err)
	}
	return nil
}

// Allow checks if the request is allowed without waiting
func (rl *RateLimiter) Allow(endpoint string) bool {
	return rl.GetLimiter(endpoint).Allow()
}

// GetStats returns rate limiter statistics for an endpoint
func (rl *RateLimiter) GetStats(endpoint string) map[string]interface{} {
	limiter := rl.GetLimiter(endpoint)

	return map[string]interface{}{
		"endpoint": endpoint,
		"limit":    float64(limiter.Limit()),
		"burst":    limiter.Burst(),
		"tokens":   limiter.Tokens(),
	}
}
