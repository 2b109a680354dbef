package evaluator

import (
	"context"
	"fmt"

	"github.com/snow-ghost/forager/core"
	"github.com/snow-ghost/forager/pkg/limiter"
)

// Guarded protects a remote evaluator with rate limiting, a circuit breaker
// and retries. Failures wrap core.ErrEvaluatorUnavailable.
type Guarded struct {
	name       string
	next       core.NeighbourhoodEvaluator
	protection *limiter.ProtectionManager
}

// NewGuarded wraps next; name selects the endpoint settings of protection.
func NewGuarded(name string, next core.NeighbourhoodEvaluator, protection *limiter.ProtectionManager) *Guarded {
	if protection == nil {
		protection = limiter.NewProtectionManager(nil, nil)
	}
	return &Guarded{name: name, next: next, protection: protection}
}

type bestResult struct {
	solution core.MaterializedSolution
	score    core.Score
}

func (g *Guarded) BestOf(ctx context.Context, candidates []core.MaterializedSolution) (core.MaterializedSolution, core.Score, error) {
	res, err := g.protection.ExecuteWithProtection(ctx, g.name, func(ctx context.Context) (interface{}, error) {
		sol, score, err := g.next.BestOf(ctx, candidates)
		if err != nil {
			return nil, err
		}
		return bestResult{solution: sol, score: score}, nil
	})
	if err != nil {
		return nil, nil, g.unavailable("best-of", err)
	}
	best := res.(bestResult)
	return best.solution, best.score, nil
}

func (g *Guarded) AboveThreshold(ctx context.Context, candidates []core.MaterializedSolution, ratio float64) (core.Bucket, error) {
	return g.bucket(ctx, "above-threshold", func(ctx context.Context) (core.Bucket, error) {
		return g.next.AboveThreshold(ctx, candidates, ratio)
	})
}

func (g *Guarded) TopFraction(ctx context.Context, candidates []core.MaterializedSolution, fraction float64) (core.Bucket, error) {
	return g.bucket(ctx, "top-fraction", func(ctx context.Context) (core.Bucket, error) {
		return g.next.TopFraction(ctx, candidates, fraction)
	})
}

func (g *Guarded) bucket(ctx context.Context, call string, fn func(context.Context) (core.Bucket, error)) (core.Bucket, error) {
	res, err := g.protection.ExecuteWithProtection(ctx, g.name, func(ctx context.Context) (interface{}, error) {
		b, err := fn(ctx)
		if err != nil {
			return nil, err
		}
		return b, nil
	})
	if err != nil {
		return core.Bucket{}, g.unavailable(call, err)
	}
	return res.(core.Bucket), nil
}

// Stats reports the rate limiter, circuit breaker and retry state of the endpoint.
func (g *Guarded) Stats() map[string]interface{} {
	return g.protection.GetStats(g.name)
}

func (g *Guarded) unavailable(call string, err error) error {
	return fmt.Errorf("%w: %s %s: %w", core.ErrEvaluatorUnavailable, g.name, call, err)
}
