package limiter

import (
	"context"
	"fmt"
	"log/slog"
)

// EndpointConfig bundles the protection settings of one evaluator endpoint.
type EndpointConfig struct {
	Rate           RateConfig            `json:"rate" yaml:"rate"`
	CircuitBreaker *CircuitBreakerConfig `json:"circuit_breaker,omitempty" yaml:"circuit_breaker,omitempty"`
	Retry          *RetryConfig          `json:"retry,omitempty" yaml:"retry,omitempty"`
}

// ProtectionManager integrates rate limiting, retries, and circuit breaker
type ProtectionManager struct {
	rateLimiter    *RateLimiter
	retryManagers  map[string]*RetryManager
	defaultRetry   *RetryManager
	circuitBreaker *CircuitBreakerManager
}

// NewProtectionManager creates a protection manager for the given endpoints.
// Unknown endpoints get an unlimited rate and the default breaker and retry settings.
func NewProtectionManager(endpoints map[string]EndpointConfig, logger *slog.Logger) *ProtectionManager {
	pm := &ProtectionManager{
		rateLimiter:    NewRateLimiter(),
		retryManagers:  make(map[string]*RetryManager),
		defaultRetry:   NewRetryManager(DefaultRetryConfig()),
		circuitBreaker: NewCircuitBreakerManager(logger),
	}
	for name, cfg := range endpoints {
		pm.rateLimiter.Configure(name, cfg.Rate)
		if cfg.CircuitBreaker != nil {
			pm.circuitBreaker.Configure(name, cfg.CircuitBreaker)
		}
		if cfg.Retry != nil {
			pm.retryManagers[name] = NewRetryManager(cfg.Retry)
		}
	}
	return pm
}

func (pm *ProtectionManager) retryManager(endpoint string) *RetryManager {
	if rm, ok := pm.retryManagers[endpoint]; ok {
		return rm
	}
	return pm.defaultRetry
}

// ExecuteWithProtection executes a function with all protection mechanisms
func (pm *ProtectionManager) ExecuteWithProtection(
	ctx context.Context,
	endpoint string,
	fn func(ctx context.Context) (interface{}, error),
) (interface{}, error) {
	if pm.circuitBreaker.IsOpen(endpoint) {
		return nil, fmt.Errorf("circuit breaker is open for evaluator %s", endpoint)
	}

	if err := pm.rateLimiter.Wait(ctx, endpoint); err != nil {
		return nil, fmt.Errorf("rate limiting failed: %w", err)
	}

	retry := pm.retryManager(endpoint)
	result, err := pm.circuitBreaker.Execute(ctx, endpoint, func() (interface{}, error) {
		return retry.Execute(ctx, fn)
	})
	if err != nil {
		return nil, fmt.Errorf("protected execution failed: %w", err)
	}

	return result, nil
}

// GetStats returns statistics for all protection mechanisms of an endpoint
func (pm *ProtectionManager) GetStats(endpoint string) map[string]interface{} {
	retry := pm.retryManager(endpoint).Config()
	return map[string]interface{}{
		"endpoint":        endpoint,
		"rate_limiter":    pm.rateLimiter.GetStats(endpoint),
		"circuit_breaker": pm.circuitBreaker.GetStats(endpoint),
		"retry_config": map[string]interface{}{
			"max_retries":    retry.MaxRetries,
			"base_delay":     retry.BaseDelay.String(),
			"max_delay":      retry.MaxDelay.String(),
			"backoff_factor": retry.BackoffFactor,
			"jitter":         retry.Jitter,
		},
	}
}
