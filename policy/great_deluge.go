package policy

import (
	"fmt"

	"github.com/snow-ghost/forager/core"
)

type deluge struct {
	initial        core.Score
	incrementScore core.Score
	ratio          float64

	starting    core.Score
	level       core.Score
	increment   core.Score
	ratioSum    float64
	initialized bool
}

func newDeluge(initial, incrementScore core.Score, ratio float64) (*deluge, error) {
	if ratio < 0 {
		return nil, fmt.Errorf("%w: great deluge water level increment ratio must not be negative, got %v", core.ErrConfiguration, ratio)
	}
	if incrementScore == nil && ratio == 0 {
		return nil, fmt.Errorf("%w: great deluge needs a water level increment score or ratio", core.ErrMissingParameter)
	}
	return &deluge{initial: initial, incrementScore: incrementScore, ratio: ratio}, nil
}

func (d *deluge) phaseStarted() {
	d.ratioSum = 0
	d.initialized = false
	if d.initial != nil {
		d.start(d.initial)
	}
}

// start sets the starting level and an increment that never lowers the level.
func (d *deluge) start(level core.Score) {
	d.starting = level
	d.level = level
	if d.incrementScore != nil {
		d.increment = core.Magnitude(d.incrementScore)
	} else {
		d.increment = core.Magnitude(level).Multiply(d.ratio)
	}
	d.initialized = true
}

func (d *deluge) isAccepted(step Step, winner *core.Candidate) bool {
	if !d.initialized {
		d.start(winner.Score)
		return true
	}
	if core.IsAtLeast(winner.Score, d.level) {
		return true
	}
	// aspiration
	return winner.Score.Compare(step.LastScore) > 0
}

func (d *deluge) stepEnded() {
	if !d.initialized {
		return
	}
	if d.incrementScore != nil {
		d.level = d.level.Add(d.increment)
		return
	}
	// Recompute from the running ratio: repeated tiny multiplications underflow.
	d.ratioSum += d.ratio
	d.level = d.starting.Add(core.Magnitude(d.starting).Multiply(d.ratioSum))
}

func (d *deluge) phaseEnded() {
	d.starting = nil
	d.level = nil
	d.increment = nil
	d.ratioSum = 0
	d.initialized = false
}
