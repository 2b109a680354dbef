// Package phase drives a forager through one phase: it starts the phase,
// runs steps until a termination condition holds, applies committed moves to
// the working solution and reports every step to logs, traces and metrics.
package phase

import (
	"context"
	"fmt"
	"time"

	"github.com/snow-ghost/forager/core"
	"github.com/snow-ghost/forager/forager"
	"github.com/snow-ghost/forager/pkg/logging"
	"github.com/snow-ghost/forager/pkg/observability"
	"github.com/snow-ghost/forager/pkg/tracing"
	"github.com/snow-ghost/forager/stats"
)

// Limits are the termination conditions of a phase; zero disables one. At
// least one must be set.
type Limits struct {
	StepLimit           int           `yaml:"step_limit" validate:"gte=0"`
	TimeLimit           time.Duration `yaml:"time_limit" validate:"gte=0"`
	UnimprovedStepLimit int           `yaml:"unimproved_step_limit" validate:"gte=0"`
}

// StopReason names the condition that ended a phase.
type StopReason string

const (
	StopStepLimit       StopReason = "step-limit"
	StopTimeLimit       StopReason = "time-limit"
	StopUnimprovedLimit StopReason = "unimproved-step-limit"
	StopCancelled       StopReason = "cancelled"
)

// Result describes a finished phase.
type Result struct {
	RunID      string
	Policy     string
	StartScore core.Score
	// BestScore is the best committed score, or StartScore when nothing improved on it.
	BestScore core.Score
	// Best is the snapshot of the best committed winner, nil when nothing improved.
	Best       core.MaterializedSolution
	FinalScore core.Score
	Steps      int
	StopReason StopReason
	Duration   time.Duration
	Summary    stats.Summary
	Statistics stats.PhaseStatistics
}

// Runner runs phases of one forager.
type Runner struct {
	forager  *forager.Forager
	limits   Limits
	logger   *logging.Logger
	tracer   *tracing.Tracer
	recorder stats.Recorder
	now      func() time.Time
}

// NewRunner validates limits. Without an observability manager nothing is recorded.
func NewRunner(f *forager.Forager, limits Limits, obs *observability.Manager) (*Runner, error) {
	if f == nil {
		return nil, fmt.Errorf("%w: forager is required", core.ErrConfiguration)
	}
	if limits.StepLimit < 0 || limits.TimeLimit < 0 || limits.UnimprovedStepLimit < 0 {
		return nil, fmt.Errorf("%w: phase limits must not be negative", core.ErrConfiguration)
	}
	if limits.StepLimit == 0 && limits.TimeLimit == 0 && limits.UnimprovedStepLimit == 0 {
		return nil, fmt.Errorf("%w: set at least one of step_limit, time_limit, unimproved_step_limit", core.ErrConfiguration)
	}
	if obs == nil {
		obs = observability.NewNop()
	}
	return &Runner{
		forager:  f,
		limits:   limits,
		logger:   obs.GetLogger(),
		tracer:   obs.GetTracer(),
		recorder: obs.Recorder(),
		now:      time.Now,
	}, nil
}

// Run searches from the current state of ws with moves from source. ws must
// be the working solution the forager was built with. Cancelling ctx stops
// the phase between steps and is not an error.
func (r *Runner) Run(ctx context.Context, ws core.WorkingSolution, source core.MoveSource) (Result, error) {
	if err := r.forager.CheckSource(source); err != nil {
		return Result{}, err
	}

	kind := string(r.forager.Policy().Kind())
	runID := observability.RunIDFromContext(ctx)
	log := r.logger.WithPolicy(kind)
	if runID != "" {
		log = log.WithRunID(runID)
	}

	ctx, span := r.tracer.StartPhaseSpan(ctx, runID, kind)
	defer span.End()

	res := Result{RunID: runID, Policy: kind, StartScore: ws.CurrentScore()}
	res.BestScore = res.StartScore
	if err := r.forager.StartPhase(res.StartScore); err != nil {
		tracing.RecordSpanError(span, err)
		return res, fmt.Errorf("failed to start phase: %w", err)
	}

	began := r.now()
	log.Info("Phase started",
		"start_score", res.StartScore.String(),
		"step_limit", r.limits.StepLimit,
		"time_limit", r.limits.TimeLimit.String(),
		"unimproved_step_limit", r.limits.UnimprovedStepLimit)

	unimproved := 0
	for {
		if reason, stop := r.shouldStop(ctx, res.Steps, began, unimproved); stop {
			res.StopReason = reason
			break
		}

		gradient := r.timeGradient(res.Steps, began)
		stepCtx, stepSpan := r.tracer.StartStepSpan(ctx, kind, res.Steps+1, gradient)
		out, err := r.forager.RunStep(stepCtx, source, gradient)
		if err == nil && out.Committed {
			err = r.forager.Apply(out.Winner.Move)
		}
		if err != nil {
			tracing.RecordSpanError(stepSpan, err)
			stepSpan.End()
			tracing.RecordSpanError(span, err)
			r.forager.EndPhase()
			res.Steps++
			log.Error("Phase aborted", "step", res.Steps, "error", err)
			return res, fmt.Errorf("step %d: %w", res.Steps, err)
		}
		tracing.RecordStepStatistic(stepSpan, out.Statistic)
		stepSpan.End()

		res.Steps++
		r.recorder.RecordStep(kind, out.Statistic, out.Evaluation)
		log.LogStep(ctx, out.Statistic.StepIndex, out.Statistic.StepScore.String(), out.Committed,
			out.Statistic.SelectedMoveCount, out.Statistic.AdmittedMoveCount, out.Evaluation)

		if out.Committed && out.Winner.Score.Compare(res.BestScore) > 0 {
			res.BestScore = out.Winner.Score
			res.Best = out.Winner.Snapshot
			unimproved = 0
		} else {
			unimproved++
		}
	}

	r.forager.EndPhase()
	statistics := r.forager.Statistics()
	r.recorder.RecordPhase(kind, statistics)

	res.FinalScore = ws.CurrentScore()
	res.Duration = r.now().Sub(began)
	res.Statistics = stats.PhaseStatistics{
		Steps:      append([]stats.StepStatistic(nil), statistics.Steps...),
		Iterations: statistics.Iterations,
	}
	res.Summary = res.Statistics.Summary()

	tracing.AddSpanAttributes(span, map[string]interface{}{
		"forager.steps":       res.Steps,
		"forager.stop_reason": string(res.StopReason),
		"forager.best_score":  res.BestScore.String(),
	})
	tracing.RecordSpanSuccess(span)
	log.LogPhase(ctx, res.Steps, res.Summary.NewSolutions, res.BestScore.String(), string(res.StopReason), res.Duration)
	return res, nil
}

func (r *Runner) shouldStop(ctx context.Context, steps int, began time.Time, unimproved int) (StopReason, bool) {
	switch {
	case ctx.Err() != nil:
		return StopCancelled, true
	case r.limits.StepLimit > 0 && steps >= r.limits.StepLimit:
		return StopStepLimit, true
	case r.limits.TimeLimit > 0 && r.now().Sub(began) >= r.limits.TimeLimit:
		return StopTimeLimit, true
	case r.limits.UnimprovedStepLimit > 0 && unimproved >= r.limits.UnimprovedStepLimit:
		return StopUnimprovedLimit, true
	}
	return "", false
}

// timeGradient is the elapsed fraction of the time limit, else of the step
// limit, else zero.
func (r *Runner) timeGradient(steps int, began time.Time) float64 {
	switch {
	case r.limits.TimeLimit > 0:
		return min(float64(r.now().Sub(began))/float64(r.limits.TimeLimit), 1)
	case r.limits.StepLimit > 0:
		return float64(steps) / float64(r.limits.StepLimit)
	}
	return 0
}
