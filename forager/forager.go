// Package forager runs the steps of a local search: it collects admitted
// moves, materializes them one at a time against the working solution, asks
// the neighbourhood evaluator for a winner and lets the acceptance policy
// decide whether that winner is committed or the last one replayed.
package forager

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"time"

	"github.com/snow-ghost/forager/acceptor"
	"github.com/snow-ghost/forager/core"
	"github.com/snow-ghost/forager/policy"
	"github.com/snow-ghost/forager/stats"
)

// Unbounded is the accepted count limit that never stops collection.
const Unbounded = math.MaxInt

// EvaluationMode selects how the neighbourhood evaluator picks a step winner.
type EvaluationMode string

const (
	EvaluateBest           EvaluationMode = "best"
	EvaluateAboveThreshold EvaluationMode = "above-threshold"
	EvaluateTopFraction    EvaluationMode = "top-fraction"
)

// Config holds the step-level settings of a Forager.
type Config struct {
	AcceptedCountLimit int
	EvaluationMode     EvaluationMode
	// EvaluationThreshold is the fitness ratio used by EvaluateAboveThreshold.
	EvaluationThreshold float64
	// TopFraction is the share of candidates kept by EvaluateTopFraction.
	TopFraction float64
	// BreakTieRandomly draws the winner uniformly from a bucket; otherwise the
	// first bucket entry wins.
	BreakTieRandomly bool
	// VerifyUndo checks score and fingerprint after every undo.
	VerifyUndo bool
}

// DefaultConfig returns the settings used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		AcceptedCountLimit:  50,
		EvaluationMode:      EvaluateBest,
		EvaluationThreshold: 0.9,
		TopFraction:         0.1,
		BreakTieRandomly:    true,
		VerifyUndo:          true,
	}
}

// Deps are the collaborators of a Forager. Rand and Logger are optional.
type Deps struct {
	WorkingSolution core.WorkingSolution
	Acceptor        acceptor.Acceptor
	Policy          *policy.Policy
	Evaluator       core.NeighbourhoodEvaluator
	Rand            *rand.Rand
	Logger          *slog.Logger
}

// StepOutcome is the result of one step.
type StepOutcome struct {
	// Winner is the committed winner after the step. It is nil only while
	// nothing has been committed in the phase.
	Winner *core.Candidate
	// Committed reports whether Winner was chosen in this step.
	Committed bool
	Statistic stats.StepStatistic
	// Evaluation is the time spent in the neighbourhood evaluator.
	Evaluation time.Duration
}

// Forager owns the step and phase state of one run. It is not safe for
// concurrent use.
type Forager struct {
	cfg       Config
	lease     *lease
	acceptor  acceptor.Acceptor
	policy    *policy.Policy
	evaluator core.NeighbourhoodEvaluator
	rng       *rand.Rand
	logger    *slog.Logger

	iterations    int
	lastCommitted *core.Candidate
	lastScore     core.Score
	phaseStats    stats.PhaseStatistics

	step       policy.Step
	selected   int64
	admitted   int64
	candidates []*core.Candidate
	cache      map[string]*core.Candidate
	snapshots  []core.MaterializedSolution
	current    stats.StepStatistic
	evaluation time.Duration
}

// New validates cfg and wires a Forager.
func New(cfg Config, deps Deps) (*Forager, error) {
	if cfg.AcceptedCountLimit <= 0 {
		return nil, fmt.Errorf("%w: accepted_count_limit must be positive or unbounded, got %d", core.ErrConfiguration, cfg.AcceptedCountLimit)
	}
	switch cfg.EvaluationMode {
	case EvaluateBest:
	case EvaluateAboveThreshold:
		if !(cfg.EvaluationThreshold > 0 && cfg.EvaluationThreshold <= 1) {
			return nil, fmt.Errorf("%w: evaluation_threshold must be in (0, 1], got %v", core.ErrConfiguration, cfg.EvaluationThreshold)
		}
	case EvaluateTopFraction:
		if !(cfg.TopFraction > 0 && cfg.TopFraction <= 1) {
			return nil, fmt.Errorf("%w: top_fraction must be in (0, 1], got %v", core.ErrConfiguration, cfg.TopFraction)
		}
	default:
		return nil, fmt.Errorf("%w: unknown evaluation_mode %q", core.ErrConfiguration, cfg.EvaluationMode)
	}
	if deps.WorkingSolution == nil {
		return nil, fmt.Errorf("%w: working solution is required", core.ErrConfiguration)
	}
	if deps.Acceptor == nil {
		return nil, fmt.Errorf("%w: acceptor is required", core.ErrConfiguration)
	}
	if deps.Policy == nil {
		return nil, fmt.Errorf("%w: policy is required", core.ErrConfiguration)
	}
	if deps.Evaluator == nil {
		return nil, fmt.Errorf("%w: neighbourhood evaluator is required", core.ErrConfiguration)
	}
	rng := deps.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Forager{
		cfg:       cfg,
		lease:     &lease{ws: deps.WorkingSolution, verify: cfg.VerifyUndo},
		acceptor:  deps.Acceptor,
		policy:    deps.Policy,
		evaluator: deps.Evaluator,
		rng:       rng,
		logger:    logger,
		cache:     make(map[string]*core.Candidate),
	}, nil
}

// CheckSource rejects an unbounded limit paired with a never-ending move source.
func (f *Forager) CheckSource(source core.MoveSource) error {
	if f.cfg.AcceptedCountLimit == Unbounded && source.NeverEnding() {
		return fmt.Errorf("%w: set accepted_count_limit to a finite value", core.ErrNeverEndingUnbounded)
	}
	return nil
}

// StartPhase resets all phase state. startScore is the working solution's
// score before the first step.
func (f *Forager) StartPhase(startScore core.Score) error {
	f.selected, f.admitted = 0, 0
	f.resetPool()
	f.lastCommitted = nil
	f.lastScore = startScore
	f.iterations = 0
	f.phaseStats.Reset()
	return f.policy.PhaseStarted(startScore)
}

// StartStep begins a new step. timeGradient is the elapsed fraction of the phase in [0, 1].
func (f *Forager) StartStep(timeGradient float64) {
	f.selected, f.admitted = 0, 0
	f.resetPool()
	f.iterations++
	f.step = policy.Step{
		Index:        f.iterations,
		TimeGradient: timeGradient,
		LastScore:    f.lastScore,
	}
	f.current = stats.StepStatistic{StepIndex: f.iterations}
	f.policy.StepStarted(f.step)
}

// OfferMove counts move as selected and pools it when the acceptor admits it.
func (f *Forager) OfferMove(move core.Move) bool {
	f.selected++
	if !f.acceptor.IsAccepted(move) {
		return false
	}
	f.admitted++
	f.candidates = append(f.candidates, &core.Candidate{Move: move})
	return true
}

// ShouldStopCollecting reports whether the accepted count limit was reached.
func (f *Forager) ShouldStopCollecting() bool {
	return f.admitted >= int64(f.cfg.AcceptedCountLimit)
}

// DecideStepWinner materializes the pooled candidates, has them evaluated and
// returns the committed winner after the verdict. A nil winner means nothing
// has been committed in the phase yet.
func (f *Forager) DecideStepWinner(ctx context.Context) (*core.Candidate, error) {
	f.step.SelectedMoveCount = f.selected
	f.step.AdmittedMoveCount = f.admitted
	f.current.SelectedMoveCount = f.selected
	f.current.AdmittedMoveCount = f.admitted
	f.evaluation = 0

	for _, c := range f.candidates {
		snapshot, err := f.lease.materialize(c.Move)
		if err != nil {
			return nil, fmt.Errorf("failed to materialize candidate at step %d: %w", f.step.Index, err)
		}
		c.Snapshot = snapshot
		key := snapshot.Fingerprint()
		if _, seen := f.cache[key]; seen {
			continue
		}
		f.cache[key] = c
		f.snapshots = append(f.snapshots, snapshot)
	}

	var winner *core.Candidate
	if len(f.snapshots) > 0 {
		start := time.Now()
		w, bucketSize, err := f.evaluate(ctx)
		f.evaluation = time.Since(start)
		if err != nil {
			return nil, err
		}
		winner = w
		f.current.BucketSize = bucketSize
	}

	if winner == nil {
		f.logger.InfoContext(ctx, "no new solution found", "step", f.step.Index)
		f.current.ThresholdScore = f.policy.Threshold()
		f.current.StepScore = f.lastScore
		return f.lastCommitted, nil
	}

	accepted := f.policy.IsAccepted(f.step, winner)
	f.current.ThresholdScore = f.policy.Threshold()
	if accepted {
		f.lastCommitted = winner
		f.lastScore = winner.Score
		f.current.FoundNewSolution = true
	} else {
		f.logger.InfoContext(ctx, "reached local optimum, replaying last committed winner",
			"step", f.step.Index,
			"winner_score", winner.Score.String(),
			"last_score", scoreString(f.lastScore))
	}
	f.current.StepScore = f.lastScore
	return f.lastCommitted, nil
}

// EndStep lets the policy advance its state and returns the step statistic.
func (f *Forager) EndStep() stats.StepStatistic {
	f.policy.StepEnded(policy.StepResult{
		Step:      f.step,
		Score:     f.lastScore,
		Snapshots: f.snapshots,
	})
	st := f.current
	f.phaseStats.Add(st)
	f.resetPool()
	return st
}

// EndPhase records the iteration count and drops policy state.
func (f *Forager) EndPhase() {
	f.phaseStats.Iterations = f.iterations
	f.policy.PhaseEnded()
	f.selected, f.admitted = 0, 0
	f.resetPool()
}

// RunStep pulls moves from source until it is exhausted or the accepted count
// limit is reached, then decides the step winner.
func (f *Forager) RunStep(ctx context.Context, source core.MoveSource, timeGradient float64) (StepOutcome, error) {
	if err := f.CheckSource(source); err != nil {
		return StepOutcome{}, err
	}
	f.StartStep(timeGradient)
	for move := range source.Moves(ctx) {
		f.OfferMove(move)
		if f.ShouldStopCollecting() {
			break
		}
	}
	winner, err := f.DecideStepWinner(ctx)
	if err != nil {
		return StepOutcome{}, err
	}
	evaluation := f.evaluation
	st := f.EndStep()
	return StepOutcome{
		Winner:     winner,
		Committed:  st.FoundNewSolution,
		Statistic:  st,
		Evaluation: evaluation,
	}, nil
}

// Apply performs move on the working solution for good, under the lease.
func (f *Forager) Apply(move core.Move) error {
	return f.lease.apply(move)
}

// LastCommitted returns the committed winner, or nil.
func (f *Forager) LastCommitted() *core.Candidate { return f.lastCommitted }

// LastScore returns the committed score, or the phase starting score.
func (f *Forager) LastScore() core.Score { return f.lastScore }

// Iterations returns the number of steps started in the phase.
func (f *Forager) Iterations() int { return f.iterations }

// SelectedMoveCount returns the moves offered in the current step.
func (f *Forager) SelectedMoveCount() int64 { return f.selected }

// AdmittedMoveCount returns the moves admitted in the current step.
func (f *Forager) AdmittedMoveCount() int64 { return f.admitted }

// Statistics returns the statistics of the current or last phase.
func (f *Forager) Statistics() *stats.PhaseStatistics { return &f.phaseStats }

// Policy returns the acceptance policy.
func (f *Forager) Policy() *policy.Policy { return f.policy }

func (f *Forager) resetPool() {
	f.candidates = nil
	f.snapshots = nil
	clear(f.cache)
}

func scoreString(s core.Score) string {
	if s == nil {
		return ""
	}
	return s.String()
}
