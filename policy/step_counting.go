package policy

import (
	"fmt"
	"math"

	"github.com/snow-ghost/forager/core"
)

// CountingType selects what advances the step-counting window.
type CountingType string

const (
	CountStep                 CountingType = "step"
	CountSelectedMove         CountingType = "selected-move"
	CountAcceptedMove         CountingType = "accepted-move"
	CountEqualOrImprovingStep CountingType = "equal-or-improving-step"
	CountImprovingStep        CountingType = "improving-step"
)

// CountingTypes lists every supported counting type.
var CountingTypes = []CountingType{CountStep, CountSelectedMove, CountAcceptedMove, CountEqualOrImprovingStep, CountImprovingStep}

type stepCounting struct {
	size         int
	countingType CountingType

	threshold core.Score
	count     int
}

func newStepCounting(size int, countingType CountingType) (*stepCounting, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: step counting hill climbing needs a positive size, got %d", core.ErrMissingParameter, size)
	}
	switch countingType {
	case CountStep, CountSelectedMove, CountAcceptedMove, CountEqualOrImprovingStep, CountImprovingStep:
	case "":
		return nil, fmt.Errorf("%w: step counting hill climbing needs a counting type", core.ErrMissingParameter)
	default:
		return nil, fmt.Errorf("%w: unknown step counting type %q", core.ErrConfiguration, countingType)
	}
	return &stepCounting{size: size, countingType: countingType, count: -1}, nil
}

func (c *stepCounting) phaseStarted(startScore core.Score) {
	c.threshold = startScore
	c.count = 0
}

func (c *stepCounting) isAccepted(step Step, winner *core.Candidate) bool {
	if step.first() {
		c.threshold = winner.Score
		return true
	}
	return core.IsAtLeast(winner.Score, step.LastScore) || core.IsAtLeast(winner.Score, c.threshold)
}

func (c *stepCounting) stepEnded(res StepResult) {
	c.count += c.increment(res)
	if c.count >= c.size {
		c.threshold = res.Score
		c.count = 0
	}
}

func (c *stepCounting) increment(res StepResult) int {
	switch c.countingType {
	case CountSelectedMove:
		return clampCount(res.SelectedMoveCount)
	case CountAcceptedMove:
		return clampCount(res.AdmittedMoveCount)
	case CountEqualOrImprovingStep:
		if res.Score.Compare(res.LastScore) >= 0 {
			return 1
		}
		return 0
	case CountImprovingStep:
		if res.Score.Compare(res.LastScore) > 0 {
			return 1
		}
		return 0
	default:
		return 1
	}
}

func (c *stepCounting) phaseEnded() {
	c.threshold = nil
	c.count = -1
}

func clampCount(n int64) int {
	if n > math.MaxInt32 {
		return math.MaxInt32
	}
	return int(n)
}
