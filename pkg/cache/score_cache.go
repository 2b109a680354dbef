// Package cache memoizes solution scores by fingerprint. A ScoreCache is safe
// for concurrent use and may be shared by runs over the same problem.
package cache

import (
	"context"
	"fmt"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/snow-ghost/forager/core"
	"golang.org/x/sync/singleflight"
)

// ScoreCache is an LRU cache of scores keyed by solution fingerprint.
// Concurrent misses on the same fingerprint run the computation once.
type ScoreCache struct {
	cache   *lru.Cache[string, core.Score]
	group   singleflight.Group
	maxSize int

	hits      atomic.Int64
	misses    atomic.Int64
	shared    atomic.Int64
	evictions atomic.Int64
}

// NewScoreCache creates a new score cache
func NewScoreCache(config Config) (*ScoreCache, error) {
	if config.MaxSize <= 0 {
		return nil, fmt.Errorf("%w: cache max_size must be positive, got %d", core.ErrConfiguration, config.MaxSize)
	}

	c := &ScoreCache{maxSize: config.MaxSize}
	cache, err := lru.NewWithEvict(config.MaxSize, func(string, core.Score) {
		c.evictions.Add(1)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create LRU cache: %w", err)
	}
	c.cache = cache
	return c, nil
}

// Get retrieves the score of a fingerprint
func (c *ScoreCache) Get(fingerprint string) (core.Score, bool) {
	s, ok := c.cache.Get(fingerprint)
	if ok {
		c.hits.Add(1)
	} else {
		c.misses.Add(1)
	}
	return s, ok
}

// Add stores a score
func (c *ScoreCache) Add(fingerprint string, score core.Score) {
	c.cache.Add(fingerprint, score)
}

// GetOrCompute returns the cached score of fingerprint or computes and stores
// it. Errors are not cached.
func (c *ScoreCache) GetOrCompute(ctx context.Context, fingerprint string, compute func(context.Context) (core.Score, error)) (core.Score, error) {
	if s, ok := c.Get(fingerprint); ok {
		return s, nil
	}

	v, err, shared := c.group.Do(fingerprint, func() (interface{}, error) {
		// a flight that finished since the miss above already stored it
		if s, ok := c.cache.Peek(fingerprint); ok {
			return s, nil
		}
		s, err := compute(ctx)
		if err != nil {
			return nil, err
		}
		c.cache.Add(fingerprint, s)
		return s, nil
	})
	if shared {
		c.shared.Add(1)
	}
	if err != nil {
		return nil, err
	}
	return v.(core.Score), nil
}

// Stats returns cache statistics
func (c *ScoreCache) Stats() Stats {
	stats := Stats{
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Shared:    c.shared.Load(),
		Evictions: c.evictions.Load(),
		Size:      c.cache.Len(),
		MaxSize:   c.maxSize,
	}
	stats.CalculateHitRate()
	return stats
}

// Purge removes all entries and resets the statistics.
func (c *ScoreCache) Purge() {
	c.cache.Purge()
	c.hits.Store(0)
	c.misses.Store(0)
	c.shared.Store(0)
	c.evictions.Store(0)
}

// Len returns the number of items in the cache
func (c *ScoreCache) Len() int {
	return c.cache.Len()
}
