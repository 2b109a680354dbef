// Package evaluator provides neighbourhood evaluators: an in-process reference
// ranking and a decorator protecting calls to a remote evaluator.
package evaluator

import (
	"context"
	"fmt"
	"math"
	"slices"

	"github.com/snow-ghost/forager/core"
)

// ScoreFunc scores one materialized solution.
type ScoreFunc func(ctx context.Context, s core.MaterializedSolution) (core.Score, error)

// Local ranks candidates in process with a ScoreFunc.
type Local struct {
	score ScoreFunc
}

// NewLocal returns a Local evaluator.
func NewLocal(score ScoreFunc) *Local {
	return &Local{score: score}
}

type ranked struct {
	solution core.MaterializedSolution
	score    core.Score
}

// rank scores candidates and orders them best first, keeping offer order on ties.
func (l *Local) rank(ctx context.Context, candidates []core.MaterializedSolution) ([]ranked, error) {
	out := make([]ranked, 0, len(candidates))
	for _, c := range candidates {
		s, err := l.score(ctx, c)
		if err != nil {
			return nil, fmt.Errorf("failed to score %s: %w", c.Fingerprint(), err)
		}
		out = append(out, ranked{solution: c, score: s})
	}
	slices.SortStableFunc(out, func(a, b ranked) int {
		return b.score.Compare(a.score)
	})
	return out, nil
}

func (l *Local) BestOf(ctx context.Context, candidates []core.MaterializedSolution) (core.MaterializedSolution, core.Score, error) {
	if len(candidates) == 0 {
		return nil, nil, nil
	}
	r, err := l.rank(ctx, candidates)
	if err != nil {
		return nil, nil, err
	}
	return r[0].solution, r[0].score, nil
}

// AboveThreshold keeps every candidate scoring at least best - |best|*(1-ratio).
func (l *Local) AboveThreshold(ctx context.Context, candidates []core.MaterializedSolution, ratio float64) (core.Bucket, error) {
	if !(ratio > 0 && ratio <= 1) {
		return core.Bucket{}, fmt.Errorf("%w: ratio must be in (0, 1], got %v", core.ErrConfiguration, ratio)
	}
	if len(candidates) == 0 {
		return core.Bucket{}, nil
	}
	r, err := l.rank(ctx, candidates)
	if err != nil {
		return core.Bucket{}, err
	}
	best := r[0].score
	floor := best.Subtract(core.Magnitude(best).Multiply(1 - ratio))
	n := 0
	for n < len(r) && core.IsAtLeast(r[n].score, floor) {
		n++
	}
	return bucketOf(r[:n]), nil
}

// TopFraction keeps the best ceil(fraction*n) candidates, at least one.
func (l *Local) TopFraction(ctx context.Context, candidates []core.MaterializedSolution, fraction float64) (core.Bucket, error) {
	if !(fraction > 0 && fraction <= 1) {
		return core.Bucket{}, fmt.Errorf("%w: fraction must be in (0, 1], got %v", core.ErrConfiguration, fraction)
	}
	if len(candidates) == 0 {
		return core.Bucket{}, nil
	}
	r, err := l.rank(ctx, candidates)
	if err != nil {
		return core.Bucket{}, err
	}
	n := int(math.Ceil(fraction * float64(len(r))))
	n = min(max(n, 1), len(r))
	return bucketOf(r[:n]), nil
}

func bucketOf(r []ranked) core.Bucket {
	b := core.Bucket{Solutions: make([]core.MaterializedSolution, len(r))}
	scores := make([]core.Score, len(r))
	for i, x := range r {
		b.Solutions[i] = x.solution
		scores[i] = x.score
	}
	b.AverageScore = core.Average(scores)
	return b
}
