package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/snow-ghost/forager/core"
	"github.com/snow-ghost/forager/stats"
)

// PrometheusMetrics holds all Prometheus metrics of the forager. It
// implements stats.Recorder and is safe for concurrent runs.
type PrometheusMetrics struct {
	// Step metrics
	StepsTotal         *prometheus.CounterVec
	MovesSelectedTotal *prometheus.CounterVec
	MovesAdmittedTotal *prometheus.CounterVec
	BucketSize         *prometheus.HistogramVec
	EvaluationLatency  *prometheus.HistogramVec

	// Score metrics
	StepScore      *prometheus.GaugeVec
	ThresholdScore *prometheus.GaugeVec

	// Phase metrics
	PhaseIterations *prometheus.GaugeVec
	PhasesTotal     *prometheus.CounterVec
}

// NewPrometheusMetrics registers the forager metrics on reg. A nil reg uses
// the default registerer.
func NewPrometheusMetrics(reg prometheus.Registerer) *PrometheusMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &PrometheusMetrics{
		StepsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "forager_steps_total",
				Help: "Total number of steps by outcome (committed or replayed)",
			},
			[]string{"policy", "outcome"},
		),

		MovesSelectedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "forager_moves_selected_total",
				Help: "Total number of moves offered to the forager",
			},
			[]string{"policy"},
		),

		MovesAdmittedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "forager_moves_admitted_total",
				Help: "Total number of moves admitted by the acceptor",
			},
			[]string{"policy"},
		),

		BucketSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "forager_bucket_size",
				Help:    "Size of the evaluation bucket the step winner was drawn from",
				Buckets: prometheus.ExponentialBuckets(1, 2, 10),
			},
			[]string{"policy"},
		),

		EvaluationLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "forager_evaluation_seconds",
				Help:    "Neighbourhood evaluation latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"policy"},
		),

		StepScore: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "forager_step_score",
				Help: "Committed score after the last step, per score level",
			},
			[]string{"policy", "level"},
		),

		ThresholdScore: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "forager_threshold_score",
				Help: "Step-counting threshold or water level of the last step, per score level",
			},
			[]string{"policy", "level"},
		),

		PhaseIterations: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "forager_phase_iterations",
				Help: "Iterations of the last finished phase",
			},
			[]string{"policy"},
		),

		PhasesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "forager_phases_total",
				Help: "Total number of finished phases",
			},
			[]string{"policy"},
		),
	}
}

// RecordStep records the statistic of one step
func (m *PrometheusMetrics) RecordStep(policy string, step stats.StepStatistic, evaluation time.Duration) {
	outcome := "replayed"
	if step.FoundNewSolution {
		outcome = "committed"
	}
	m.StepsTotal.WithLabelValues(policy, outcome).Inc()
	m.MovesSelectedTotal.WithLabelValues(policy).Add(float64(step.SelectedMoveCount))
	m.MovesAdmittedTotal.WithLabelValues(policy).Add(float64(step.AdmittedMoveCount))
	if step.BucketSize != nil {
		m.BucketSize.WithLabelValues(policy).Observe(float64(*step.BucketSize))
	}
	if evaluation > 0 {
		m.EvaluationLatency.WithLabelValues(policy).Observe(evaluation.Seconds())
	}
	setLevels(m.StepScore, policy, step.StepScore)
	setLevels(m.ThresholdScore, policy, step.ThresholdScore)
}

// RecordPhase records a finished phase
func (m *PrometheusMetrics) RecordPhase(policy string, phase *stats.PhaseStatistics) {
	m.PhaseIterations.WithLabelValues(policy).Set(float64(phase.Iterations))
	m.PhasesTotal.WithLabelValues(policy).Inc()
}

func setLevels(g *prometheus.GaugeVec, policy string, s core.Score) {
	if s == nil {
		return
	}
	levels := s.Levels()
	for i, v := range levels {
		g.WithLabelValues(policy, levelName(i, len(levels))).Set(v)
	}
}

// levelName names hard/soft levels and numbers any others.
func levelName(i, n int) string {
	if n == 2 {
		return [...]string{"hard", "soft"}[i]
	}
	return strconv.Itoa(i)
}

var _ stats.Recorder = (*PrometheusMetrics)(nil)
