// Package bench runs independent forager runs concurrently and ranks them.
package bench

import (
	"context"
	"fmt"
	"slices"

	"github.com/google/uuid"
	"github.com/snow-ghost/forager/config"
	"github.com/snow-ghost/forager/core"
	"github.com/snow-ghost/forager/evaluator"
	"github.com/snow-ghost/forager/phase"
	"github.com/snow-ghost/forager/pkg/observability"
	"golang.org/x/sync/errgroup"
)

// RunSpec describes one run. Runs must not share a working solution, a move
// source or a stateful evaluator.
type RunSpec struct {
	Name            string
	Config          config.Config
	WorkingSolution core.WorkingSolution
	Source          core.MoveSource
	Evaluator       core.NeighbourhoodEvaluator
	Validator       core.ConstraintValidator
	// Observability may be shared between runs.
	Observability *observability.Manager
}

// RunResult is the outcome of one run.
type RunResult struct {
	Name string
	Seed int64
	// EvaluatorStats holds the protection statistics of a guarded evaluator.
	EvaluatorStats map[string]interface{}
	phase.Result
}

// RunAll executes specs with at most parallelism runs at a time (unlimited
// when parallelism < 1). The first failing run cancels the others. Results are
// ordered best score first; runs with equal scores keep their input order.
func RunAll(ctx context.Context, specs []RunSpec, parallelism int) ([]RunResult, error) {
	results := make([]RunResult, len(specs))

	g, gCtx := errgroup.WithContext(ctx)
	if parallelism > 0 {
		g.SetLimit(parallelism)
	}
	for i, spec := range specs {
		g.Go(func() error {
			res, err := run(gCtx, spec)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	slices.SortStableFunc(results, func(a, b RunResult) int {
		return b.BestScore.Compare(a.BestScore)
	})
	return results, nil
}

func run(ctx context.Context, spec RunSpec) (RunResult, error) {
	runID := uuid.NewString()
	ctx = observability.WithRunID(ctx, runID)

	c, err := config.Build(spec.Config, config.Deps{
		WorkingSolution: spec.WorkingSolution,
		Evaluator:       spec.Evaluator,
		Validator:       spec.Validator,
		Observability:   spec.Observability,
	})
	if err != nil {
		return RunResult{}, fmt.Errorf("run %s: %w", spec.Name, err)
	}

	res, err := c.Runner.Run(ctx, spec.WorkingSolution, spec.Source)
	if err != nil {
		return RunResult{}, fmt.Errorf("run %s (%s): %w", spec.Name, runID, err)
	}
	out := RunResult{Name: spec.Name, Seed: spec.Config.Seed, Result: res}
	if g, ok := c.Evaluator.(*evaluator.Guarded); ok {
		out.EvaluatorStats = g.Stats()
	}
	return out, nil
}
