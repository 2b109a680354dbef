package observability

import (
	"context"
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/snow-ghost/forager/pkg/logging"
	"github.com/snow-ghost/forager/pkg/metrics"
	"github.com/snow-ghost/forager/pkg/tracing"
	"github.com/snow-ghost/forager/stats"
)

// Manager manages all observability components
type Manager struct {
	metrics *metrics.PrometheusMetrics
	tracer  *tracing.Tracer
	logger  *logging.Logger
}

// Config holds observability configuration
type Config struct {
	Logging logging.Config `yaml:"logging"`
	Tracing tracing.Config `yaml:"tracing"`
	// Metrics enables Prometheus metrics on Registerer.
	Metrics    bool                  `yaml:"metrics"`
	Registerer prometheus.Registerer `yaml:"-"`
}

// NewManager creates a new observability manager
func NewManager(config Config) (*Manager, error) {
	logger, err := logging.NewLogger(config.Logging)
	if err != nil {
		return nil, err
	}

	tracer, err := tracing.NewTracer(config.Tracing)
	if err != nil {
		logger.Close()
		return nil, err
	}

	m := &Manager{tracer: tracer, logger: logger}
	if config.Metrics {
		m.metrics = metrics.NewPrometheusMetrics(config.Registerer)
	}
	return m, nil
}

// NewNop returns a manager that records nothing.
func NewNop() *Manager {
	tracer, _ := tracing.NewTracer(tracing.Config{})
	return &Manager{tracer: tracer, logger: logging.NewNop()}
}

// GetMetrics returns the metrics instance, or nil when metrics are disabled
func (m *Manager) GetMetrics() *metrics.PrometheusMetrics {
	return m.metrics
}

// GetTracer returns the tracer instance
func (m *Manager) GetTracer() *tracing.Tracer {
	return m.tracer
}

// GetLogger returns the logger instance
func (m *Manager) GetLogger() *logging.Logger {
	return m.logger
}

// Recorder returns the statistics recorder backed by the metrics, or a no-op one.
func (m *Manager) Recorder() stats.Recorder {
	if m.metrics == nil {
		return stats.NopRecorder{}
	}
	return m.metrics
}

// Shutdown shuts down all observability components
func (m *Manager) Shutdown(ctx context.Context) error {
	return errors.Join(m.tracer.Shutdown(ctx), m.logger.Close())
}

type runIDKey struct{}

// WithRunID adds the run ID to context
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDKey{}, runID)
}

// RunIDFromContext extracts the run ID from context
func RunIDFromContext(ctx context.Context) string {
	if runID, ok := ctx.Value(runIDKey{}).(string); ok {
		return runID
	}
	return ""
}
