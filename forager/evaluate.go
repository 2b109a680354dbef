package forager

import (
	"context"
	"fmt"

	"github.com/snow-ghost/forager/core"
)

// evaluate asks the evaluator for the step winner in the configured mode.
// The bucket size is returned for the sampling modes.
func (f *Forager) evaluate(ctx context.Context) (*core.Candidate, *int, error) {
	switch f.cfg.EvaluationMode {
	case EvaluateAboveThreshold:
		bucket, err := f.evaluator.AboveThreshold(ctx, f.snapshots, f.cfg.EvaluationThreshold)
		if err != nil {
			return nil, nil, fmt.Errorf("above-threshold evaluation failed: %w", err)
		}
		return f.sample(bucket)
	case EvaluateTopFraction:
		bucket, err := f.evaluator.TopFraction(ctx, f.snapshots, f.cfg.TopFraction)
		if err != nil {
			return nil, nil, fmt.Errorf("top-fraction evaluation failed: %w", err)
		}
		return f.sample(bucket)
	default:
		solution, score, err := f.evaluator.BestOf(ctx, f.snapshots)
		if err != nil {
			return nil, nil, fmt.Errorf("best-candidate evaluation failed: %w", err)
		}
		if solution == nil {
			return nil, nil, nil
		}
		c, err := f.lookup(solution)
		if err != nil {
			return nil, nil, err
		}
		c.Score = score
		return c, nil, nil
	}
}

// sample draws the winner from bucket and gives it the bucket's average score.
func (f *Forager) sample(bucket core.Bucket) (*core.Candidate, *int, error) {
	if bucket.Empty() {
		return nil, nil, nil
	}
	if bucket.AverageScore == nil {
		return nil, nil, fmt.Errorf("evaluator returned a bucket of %d solutions without an average score", len(bucket.Solutions))
	}
	picked := bucket.Solutions[0]
	if f.cfg.BreakTieRandomly && len(bucket.Solutions) > 1 {
		picked = bucket.Solutions[f.rng.Intn(len(bucket.Solutions))]
	}
	c, err := f.lookup(picked)
	if err != nil {
		return nil, nil, err
	}
	c.Score = bucket.AverageScore
	size := len(bucket.Solutions)
	return c, &size, nil
}

func (f *Forager) lookup(solution core.MaterializedSolution) (*core.Candidate, error) {
	c, ok := f.cache[solution.Fingerprint()]
	if !ok {
		return nil, fmt.Errorf("evaluator returned solution %q that was not offered", solution.Fingerprint())
	}
	return c, nil
}
