package evaluator

import (
	"context"

	"github.com/snow-ghost/forager/core"
	"github.com/snow-ghost/forager/pkg/cache"
)

// Memoize returns a ScoreFunc that serves repeated fingerprints from c.
func Memoize(score ScoreFunc, c *cache.ScoreCache) ScoreFunc {
	return func(ctx context.Context, s core.MaterializedSolution) (core.Score, error) {
		return c.GetOrCompute(ctx, s.Fingerprint(), func(ctx context.Context) (core.Score, error) {
			return score(ctx, s)
		})
	}
}
