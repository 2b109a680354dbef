package limiter

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sony/gobreaker"
)

// CircuitBreakerConfig holds circuit breaker configuration
type CircuitBreakerConfig struct {
	Name        string                             `json:"name" yaml:"name"`
	MaxRequests uint32                             `json:"max_requests" yaml:"max_requests"`
	Interval    time.Duration                      `json:"interval" yaml:"interval"`
	Timeout     time.Duration                      `json:"timeout" yaml:"timeout"`
	ReadyToTrip func(counts gobreaker.Counts) bool `json:"-" yaml:"-"`
}

// DefaultCircuitBreakerConfig returns a default circuit breaker configuration
func DefaultCircuitBreakerConfig(name string) *CircuitBreakerConfig {
	return &CircuitBreakerConfig{
		Name:        name,
		MaxRequests: 3,
		Interval:    10 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			// Open circuit if failure rate is > 50% and we have at least 5 requests
			return counts.Requests >= 5 && float64(counts.TotalFailures)/float64(counts.Requests) >= 0.5
		},
	}
}

// CircuitBreakerManager manages one circuit breaker per evaluator endpoint
type CircuitBreakerManager struct {
	breakers map[string]*gobreaker.CircuitBreaker
	configs  map[string]*CircuitBreakerConfig
	logger   *slog.Logger
	mu       sync.Mutex
}

// NewCircuitBreakerManager creates a new circuit breaker manager
func NewCircuitBreakerManager(logger *slog.Logger) *CircuitBreakerManager {
	if logger == nil {
		logger = slog.Default()
	}
	return &CircuitBreakerManager{
		breakers: make(map[string]*gobreaker.CircuitBreaker),
		configs:  make(map[string]*CircuitBreakerConfig),
		logger:   logger,
	}
}

// Configure sets the breaker configuration used for endpoint from now on.
func (cbm *CircuitBreakerManager) Configure(endpoint string, config *CircuitBreakerConfig) {
	cbm.mu.Lock()
	defer cbm.mu.Unlock()

	cbm.configs[endpoint] = config
	delete(cbm.breakers, endpoint)
}

// GetBreaker returns or creates the circuit breaker of an endpoint
func (cbm *CircuitBreakerManager) GetBreaker(endpoint string) *gobreaker.CircuitBreaker {
	cbm.mu.Lock()
	defer cbm.mu.Unlock()

	if breaker, exists := cbm.breakers[endpoint]; exists {
		return breaker
	}

	cbConfig, exists := cbm.configs[endpoint]
	if !exists {
		cbConfig = DefaultCircuitBreakerConfig(fmt.Sprintf("evaluator-%s", endpoint))
		cbm.configs[endpoint] = cbConfig
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        cbConfig.Name,
		MaxRequests: cbConfig.MaxRequests,
		Interval:    cbConfig.Interval,
		Timeout:     cbConfig.Timeout,
		ReadyToTrip: cbConfig.ReadyToTrip,
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			cbm.logger.Warn("circuit breaker state changed",
				"breaker", name,
				"from", from.String(),
				"to", to.String())
		},
	})

	cbm.breakers[endpoint] = breaker
	return breaker
}

// Execute executes a function through the circuit breaker
func (cbm *CircuitBreakerManager) Execute(ctx context.Context, endpoint string, fn func() (interface{}, error)) (interface{}, error) {
	breaker := cbm.GetBreaker(endpoint)

	result, err := breaker.Execute(fn)
	if err != nil {
		return nil, fmt.Errorf("circuit breaker execution failed: %w", err)
	}

	return result, nil
}

// GetState returns the current state of a circuit breaker
func (cbm *CircuitBreakerManager) GetState(endpoint string) gobreaker.State {
	return cbm.GetBreaker(endpoint).State()
}

// GetStats returns circuit breaker statistics for an endpoint
func (cbm *CircuitBreakerManager) GetStats(endpoint string) map[string]interface{} {
	breaker := cbm.GetBreaker(endpoint)
	counts := breaker.Counts()

	return map[string]interface{}{
		"endpoint":             endpoint,
		"state":                breaker.State().String(),
		"requests":             counts.Requests,
		"total_success":        counts.TotalSuccesses,
		"total_failures":       counts.TotalFailures,
		"consecutive_success":  counts.ConsecutiveSuccesses,
		"consecutive_failures": counts.ConsecutiveFailures,
	}
}

// IsOpen checks if the circuit breaker is open for an endpoint
func (cbm *CircuitBreakerManager) IsOpen(endpoint string) bool {
	return cbm.GetState(endpoint) == gobreaker.StateOpen
}
