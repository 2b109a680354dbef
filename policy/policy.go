// Package policy implements the metaheuristic acceptance policies that decide
// whether a step winner becomes the new committed baseline.
//
// The set of policies is closed: a Policy carries its Kind and exactly one
// state struct, and every lifecycle call dispatches on the kind. All state is
// owned by the phase and is reset at PhaseStarted and PhaseEnded.
package policy

import (
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/snow-ghost/forager/core"
)

// Kind names a metaheuristic.
type Kind string

const (
	HillClimbing             Kind = "hill-climbing"
	StepCountingHillClimbing Kind = "step-counting-hill-climbing"
	SimulatedAnnealing       Kind = "simulated-annealing"
	GreatDeluge              Kind = "great-deluge"
	TabuSearch               Kind = "tabu-search"
)

// Kinds lists every supported metaheuristic.
var Kinds = []Kind{HillClimbing, StepCountingHillClimbing, SimulatedAnnealing, GreatDeluge, TabuSearch}

// Config holds the parameters of every metaheuristic; only the fields of the
// selected Kind are read.
type Config struct {
	Kind Kind

	StepCountingSize int
	StepCountingType CountingType

	StartingTemperature core.Score

	InitialWaterLevel        core.Score
	WaterLevelIncrementScore core.Score
	WaterLevelIncrementRatio float64

	TabuListSize int
}

// Step is the read-only view of the current step a policy decides on.
type Step struct {
	// Index is 1-based within the phase.
	Index        int
	TimeGradient float64
	// LastScore is the score of the last committed winner, or the phase
	// starting score while nothing has been committed.
	LastScore         core.Score
	SelectedMoveCount int64
	AdmittedMoveCount int64
}

// first reports whether this is the first step of the phase, whose winner is
// accepted unconditionally by the hill climbing family and annealing.
func (s Step) first() bool { return s.Index == 1 }

// StepResult is handed to StepEnded once the step's verdict is final.
type StepResult struct {
	Step
	// Score is the committed score after the step.
	Score core.Score
	// Snapshots holds every admitted candidate's materialized solution.
	Snapshots []core.MaterializedSolution
}

// Policy is a stateful acceptance decider for one phase at a time.
type Policy struct {
	kind   Kind
	rng    *rand.Rand
	logger *slog.Logger

	counting  *stepCounting
	annealing *annealing
	deluge    *deluge
	tabu      *tabu
}

// New validates cfg and returns the policy it selects. A nil rng is replaced
// by a time-seeded one; a nil logger by slog.Default().
func New(cfg Config, rng *rand.Rand, logger *slog.Logger) (*Policy, error) {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if logger == nil {
		logger = slog.Default()
	}
	p := &Policy{kind: cfg.Kind, rng: rng, logger: logger.With("policy", string(cfg.Kind))}

	switch cfg.Kind {
	case HillClimbing:
	case StepCountingHillClimbing:
		c, err := newStepCounting(cfg.StepCountingSize, cfg.StepCountingType)
		if err != nil {
			return nil, err
		}
		p.counting = c
	case SimulatedAnnealing:
		if cfg.StartingTemperature == nil {
			return nil, fmt.Errorf("%w: simulated annealing needs a starting temperature", core.ErrMissingParameter)
		}
		p.annealing = &annealing{starting: cfg.StartingTemperature}
	case GreatDeluge:
		d, err := newDeluge(cfg.InitialWaterLevel, cfg.WaterLevelIncrementScore, cfg.WaterLevelIncrementRatio)
		if err != nil {
			return nil, err
		}
		p.deluge = d
	case TabuSearch:
		if cfg.TabuListSize <= 0 {
			return nil, fmt.Errorf("%w: tabu search needs a positive tabu list size, got %d", core.ErrMissingParameter, cfg.TabuListSize)
		}
		p.tabu = &tabu{size: cfg.TabuListSize}
	default:
		return nil, fmt.Errorf("%w: unknown policy kind %q", core.ErrConfiguration, cfg.Kind)
	}
	return p, nil
}

// Kind returns the metaheuristic of p.
func (p *Policy) Kind() Kind { return p.kind }

// PhaseStarted resets all state and validates the parameters that depend on
// the score shape. startScore is the working solution's score at phase start.
func (p *Policy) PhaseStarted(startScore core.Score) error {
	switch p.kind {
	case StepCountingHillClimbing:
		p.counting.phaseStarted(startScore)
	case SimulatedAnnealing:
		return p.annealing.phaseStarted()
	case GreatDeluge:
		p.deluge.phaseStarted()
	case TabuSearch:
		return p.tabu.phaseStarted()
	}
	return nil
}

// StepStarted refreshes state that depends on elapsed time.
func (p *Policy) StepStarted(step Step) {
	if p.kind == SimulatedAnnealing {
		p.annealing.stepStarted(step.TimeGradient)
	}
}

// IsAccepted renders the verdict on the step winner. It is consulted exactly
// once per step that produced a winner.
func (p *Policy) IsAccepted(step Step, winner *core.Candidate) bool {
	var accepted bool
	switch p.kind {
	case HillClimbing:
		accepted = step.first() || core.IsAtLeast(winner.Score, step.LastScore)
	case StepCountingHillClimbing:
		accepted = p.counting.isAccepted(step, winner)
	case SimulatedAnnealing:
		accepted = p.annealing.isAccepted(step, winner, p.rng)
	case GreatDeluge:
		accepted = p.deluge.isAccepted(step, winner)
	case TabuSearch:
		accepted = p.tabu.isAccepted(step, winner)
	}
	if accepted {
		p.logger.Debug("step winner accepted", "step", step.Index, "score", winner.Score.String())
	}
	return accepted
}

// StepEnded advances per-step state such as thresholds and tabu history.
func (p *Policy) StepEnded(res StepResult) {
	switch p.kind {
	case StepCountingHillClimbing:
		p.counting.stepEnded(res)
	case GreatDeluge:
		p.deluge.stepEnded()
	case TabuSearch:
		p.tabu.stepEnded(res.Snapshots)
	}
}

// PhaseEnded drops all phase state.
func (p *Policy) PhaseEnded() {
	switch p.kind {
	case StepCountingHillClimbing:
		p.counting.phaseEnded()
	case SimulatedAnnealing:
		p.annealing.phaseEnded()
	case GreatDeluge:
		p.deluge.phaseEnded()
	case TabuSearch:
		p.tabu.phaseEnded()
	}
}

// Threshold returns the current step-counting threshold or great deluge water
// level, and nil for policies without one.
func (p *Policy) Threshold() core.Score {
	switch p.kind {
	case StepCountingHillClimbing:
		return p.counting.threshold
	case GreatDeluge:
		return p.deluge.level
	}
	return nil
}

// Temperatures returns a copy of the current simulated annealing temperature levels.
func (p *Policy) Temperatures() []float64 {
	if p.annealing == nil || p.annealing.levels == nil {
		return nil
	}
	return append([]float64(nil), p.annealing.levels...)
}

// TabuHistory returns the tabu fingerprints, oldest first.
func (p *Policy) TabuHistory() []string {
	if p.tabu == nil || p.tabu.history == nil {
		return nil
	}
	return p.tabu.history.Keys()
}
