package policy

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/snow-ghost/forager/core"
)

// TemperatureFloor is the lowest temperature level; it keeps exp(-delta/T) defined.
const TemperatureFloor = 1e-100

type annealing struct {
	starting core.Score

	startingLevels []float64
	levels         []float64
}

func (a *annealing) phaseStarted() error {
	levels := a.starting.Levels()
	for _, l := range levels {
		if l < 0 {
			return fmt.Errorf("%w: starting temperature %s has level %v", core.ErrNegativeTemperature, a.starting, l)
		}
	}
	a.startingLevels = levels
	a.levels = append([]float64(nil), levels...)
	return nil
}

// stepStarted recomputes the temperatures; the time gradient only moves between steps.
func (a *annealing) stepStarted(timeGradient float64) {
	a.levels = temperatureLevels(a.startingLevels, timeGradient)
}

func temperatureLevels(starting []float64, timeGradient float64) []float64 {
	reverse := 1.0 - timeGradient
	levels := make([]float64, len(starting))
	for i, start := range starting {
		t := start * reverse
		if !(t >= TemperatureFloor) {
			t = TemperatureFloor
		}
		levels[i] = t
	}
	return levels
}

func (a *annealing) isAccepted(step Step, winner *core.Candidate, rng *rand.Rand) bool {
	if step.first() || core.IsAtLeast(winner.Score, step.LastScore) {
		return true
	}
	return rng.Float64() < acceptChance(step.LastScore.Subtract(winner.Score).Levels(), a.levels)
}

// acceptChance multiplies exp(-delta/T) over every level where the winner is worse.
func acceptChance(deltas, temperatures []float64) float64 {
	chance := 1.0
	for i, delta := range deltas {
		if i >= len(temperatures) || delta <= 0 {
			continue
		}
		chance *= math.Exp(-delta / temperatures[i])
	}
	return chance
}

func (a *annealing) phaseEnded() {
	a.startingLevels = nil
	a.levels = nil
}
