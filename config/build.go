package config

import (
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/snow-ghost/forager/acceptor"
	"github.com/snow-ghost/forager/core"
	"github.com/snow-ghost/forager/evaluator"
	"github.com/snow-ghost/forager/forager"
	"github.com/snow-ghost/forager/phase"
	"github.com/snow-ghost/forager/pkg/limiter"
	"github.com/snow-ghost/forager/pkg/observability"
	"github.com/snow-ghost/forager/policy"
)

// Deps are the collaborators Build cannot construct from configuration.
type Deps struct {
	WorkingSolution core.WorkingSolution
	Evaluator       core.NeighbourhoodEvaluator
	// Validator is required by the hard-constraints acceptor.
	Validator core.ConstraintValidator
	// Rand defaults to a source seeded with Config.Seed.
	Rand *rand.Rand
	// Observability defaults to a manager that records nothing.
	Observability *observability.Manager
}

// Components is everything Build wires together.
type Components struct {
	Acceptor  acceptor.Acceptor
	Policy    *policy.Policy
	Evaluator core.NeighbourhoodEvaluator
	Forager   *forager.Forager
	Runner    *phase.Runner
}

// Build constructs the acceptor, policy, forager and phase runner described
// by c.
func Build(c Config, deps Deps) (*Components, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	obs := deps.Observability
	if obs == nil {
		obs = observability.NewNop()
	}
	logger := obs.GetLogger().GetSlog()
	rng := deps.Rand
	if rng == nil {
		rng = NewRand(c.Seed)
	}

	acc, err := acceptor.New(acceptor.Kind(c.Acceptor.Kind), deps.Validator, acceptor.AssignmentProblemType(c.Acceptor.ProblemType))
	if err != nil {
		return nil, fmt.Errorf("failed to build acceptor: %w", err)
	}

	pcfg, err := c.Policy.PolicyConfig()
	if err != nil {
		return nil, err
	}
	pol, err := policy.New(pcfg, rng, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to build policy: %w", err)
	}

	eval := deps.Evaluator
	if eval != nil && c.Evaluator.Guarded {
		eval = Guard(c.Evaluator, eval, logger)
	}

	f, err := forager.New(c.Forager.ForagerConfig(), forager.Deps{
		WorkingSolution: deps.WorkingSolution,
		Acceptor:        acc,
		Policy:          pol,
		Evaluator:       eval,
		Rand:            rng,
		Logger:          logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build forager: %w", err)
	}

	runner, err := phase.NewRunner(f, c.Phase, obs)
	if err != nil {
		return nil, fmt.Errorf("failed to build phase runner: %w", err)
	}

	return &Components{Acceptor: acc, Policy: pol, Evaluator: eval, Forager: f, Runner: runner}, nil
}

// Guard wraps next with the rate limit, circuit breaker and retry settings of cfg.
func Guard(cfg EvaluatorConfig, next core.NeighbourhoodEvaluator, logger *slog.Logger) *evaluator.Guarded {
	name := cfg.Name
	if name == "" {
		name = "evaluator"
	}
	protection := limiter.NewProtectionManager(map[string]limiter.EndpointConfig{name: cfg.Endpoint}, logger)
	return evaluator.NewGuarded(name, next, protection)
}

// ForagerConfig converts the YAML settings into a forager.Config.
func (c ForagerConfig) ForagerConfig() forager.Config {
	return forager.Config{
		AcceptedCountLimit:  c.ForagerLimit(),
		EvaluationMode:      forager.EvaluationMode(c.EvaluationMode),
		EvaluationThreshold: c.EvaluationThreshold,
		TopFraction:         c.TopFraction,
		BreakTieRandomly:    c.BreakTieRandomly,
		VerifyUndo:          c.VerifyUndo,
	}
}

// PolicyConfig parses the score settings into a policy.Config.
func (c PolicyConfig) PolicyConfig() (policy.Config, error) {
	cfg := policy.Config{
		Kind:                     policy.Kind(c.Kind),
		StepCountingSize:         c.StepCountingSize,
		StepCountingType:         policy.CountingType(c.StepCountingType),
		WaterLevelIncrementRatio: c.WaterLevelIncrementRatio,
		TabuListSize:             c.TabuListSize,
	}
	var err error
	if cfg.StartingTemperature, err = parseScore("starting_temperature", c.StartingTemperature); err != nil {
		return policy.Config{}, err
	}
	if cfg.InitialWaterLevel, err = parseScore("initial_water_level", c.InitialWaterLevel); err != nil {
		return policy.Config{}, err
	}
	if cfg.WaterLevelIncrementScore, err = parseScore("water_level_increment_score", c.WaterLevelIncrementScore); err != nil {
		return policy.Config{}, err
	}
	return cfg, nil
}

func parseScore(field, text string) (core.Score, error) {
	if text == "" {
		return nil, nil
	}
	s, err := core.HardSoftDefinition{}.Parse(text)
	if err != nil {
		return nil, fmt.Errorf("%w: policy.%s: %v", core.ErrConfiguration, field, err)
	}
	return s, nil
}

// Observability returns the observability settings; reg receives the
// metrics when they are enabled.
func (c Config) Observability(reg prometheus.Registerer) observability.Config {
	return observability.Config{
		Logging:    c.Logging,
		Tracing:    c.Tracing,
		Metrics:    c.Metrics.Enabled,
		Registerer: reg,
	}
}

// NewRand returns a source seeded with seed, or with the clock when seed is 0.
func NewRand(seed int64) *rand.Rand {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed))
}
