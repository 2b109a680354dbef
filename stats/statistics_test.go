package stats

import (
	"testing"

	"github.com/snow-ghost/forager/core"
	"github.com/stretchr/testify/assert"
)

func TestPhaseStatistics_Summary(t *testing.T) {
	var p PhaseStatistics
	assert.Equal(t, Summary{}, p.Summary())

	bucket := 3
	p.Add(StepStatistic{StepIndex: 1, StepScore: core.NewHardSoftScore(0, 10), FoundNewSolution: true})
	p.Add(StepStatistic{StepIndex: 2, StepScore: core.NewHardSoftScore(0, 10)})
	p.Add(StepStatistic{StepIndex: 3, StepScore: core.NewHardSoftScore(0, 30), FoundNewSolution: true, BucketSize: &bucket})
	p.Add(StepStatistic{StepIndex: 4, StepScore: core.NewHardSoftScore(0, 20), FoundNewSolution: true})

	s := p.Summary()
	assert.Equal(t, 4, s.Steps)
	assert.Equal(t, 3, s.NewSolutions)
	assert.Equal(t, 1, s.Replays)
	assert.InDelta(t, 0.75, s.AcceptedRatio, 1e-12)
	assert.Equal(t, core.NewHardSoftScore(0, 30), s.BestStepScore)

	p.Reset()
	assert.Empty(t, p.Steps)
	assert.Zero(t, p.Iterations)
}
