package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/snow-ghost/forager/core"
	"github.com/snow-ghost/forager/evaluator"
	"github.com/snow-ghost/forager/forager"
	"github.com/snow-ghost/forager/phase"
	"github.com/snow-ghost/forager/policy"
	"github.com/snow-ghost/forager/testkit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 50, cfg.Forager.AcceptedCountLimit)
	assert.Equal(t, "best", cfg.Forager.EvaluationMode)
	assert.True(t, cfg.Forager.BreakTieRandomly)
	assert.Equal(t, "hill-climbing", cfg.Policy.Kind)
}

func TestLoadFromBytes_OverridesDefaults(t *testing.T) {
	cfg, err := LoadFromBytes([]byte(`
seed: 42
forager:
  accepted_count_limit: -1
  evaluation_mode: top-fraction
  top_fraction: 0.25
policy:
  kind: great-deluge
  initial_water_level: 0hard/-40soft
  water_level_increment_score: 0hard/2soft
phase:
  step_limit: 0
  time_limit: 250ms
`))
	require.NoError(t, err)

	assert.Equal(t, int64(42), cfg.Seed)
	assert.Equal(t, forager.Unbounded, cfg.Forager.ForagerLimit())
	assert.Equal(t, 0.25, cfg.Forager.TopFraction)
	assert.Equal(t, 250*time.Millisecond, cfg.Phase.TimeLimit)
	// untouched keys keep their defaults
	assert.True(t, cfg.Forager.VerifyUndo)
	assert.Equal(t, 200, cfg.Phase.UnimprovedStepLimit)

	pcfg, err := cfg.Policy.PolicyConfig()
	require.NoError(t, err)
	assert.Equal(t, policy.GreatDeluge, pcfg.Kind)
	assert.Equal(t, core.NewHardSoftScore(0, -40), pcfg.InitialWaterLevel)
	assert.Equal(t, core.NewHardSoftScore(0, 2), pcfg.WaterLevelIncrementScore)
}

func TestValidate_Rejects(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
		field   string
	}{
		{"zero accepted count limit", func(c *Config) { c.Forager.AcceptedCountLimit = 0 }, core.ErrConfiguration, "forager.accepted_count_limit"},
		{"unknown evaluation mode", func(c *Config) { c.Forager.EvaluationMode = "median" }, core.ErrConfiguration, "forager.evaluation_mode"},
		{"threshold above one", func(c *Config) { c.Forager.EvaluationThreshold = 1.5 }, core.ErrConfiguration, "forager.evaluation_threshold"},
		{"unknown policy", func(c *Config) { c.Policy.Kind = "late-acceptance" }, core.ErrConfiguration, "policy.kind"},
		{"unknown counting type", func(c *Config) { c.Policy.StepCountingType = "moves" }, core.ErrConfiguration, "policy.step_counting_type"},
		{"bad score", func(c *Config) { c.Policy.InitialWaterLevel = "12" }, core.ErrConfiguration, "policy.initial_water_level"},
		{"annealing without temperature", func(c *Config) { c.Policy.Kind = "simulated-annealing" }, core.ErrMissingParameter, "policy.starting_temperature"},
		{"tabu without size", func(c *Config) {
			c.Policy.Kind = "tabu-search"
			c.Policy.TabuListSize = 0
		}, core.ErrMissingParameter, "policy.tabu_list_size"},
		{"deluge without increment", func(c *Config) {
			c.Policy.Kind = "great-deluge"
			c.Policy.WaterLevelIncrementRatio = 0
		}, core.ErrMissingParameter, "water_level_increment"},
		{"no phase limit", func(c *Config) { c.Phase = phase.Limits{} }, core.ErrConfiguration, "phase"},
		{"metrics without address", func(c *Config) {
			c.Metrics.Enabled = true
			c.Metrics.Address = ""
		}, core.ErrConfiguration, "metrics.address"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Contains(t, err.Error(), tt.field)
		})
	}
}

func TestValidate_ReportsFirstBadScore(t *testing.T) {
	cfg := Default()
	cfg.Policy.StartingTemperature = "hot"
	cfg.Policy.InitialWaterLevel = "deep"
	cfg.Policy.WaterLevelIncrementScore = "fast"

	for range 20 {
		err := cfg.Validate()
		require.ErrorIs(t, err, core.ErrConfiguration)
		assert.Contains(t, err.Error(), "policy.starting_temperature")
		assert.NotContains(t, err.Error(), "initial_water_level")
	}
}

func TestLoad_FileAndEnvironment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "forager.yaml")
	require.NoError(t, os.WriteFile(path, []byte("policy:\n  kind: tabu-search\n  tabu_list_size: 7\n"), 0o600))

	t.Setenv("FORAGER_SEED", "99")
	t.Setenv("FORAGER_ACCEPTED_COUNT_LIMIT", "5")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "tabu-search", cfg.Policy.Kind)
	assert.Equal(t, 7, cfg.Policy.TabuListSize)
	assert.Equal(t, int64(99), cfg.Seed)
	assert.Equal(t, 5, cfg.Forager.AcceptedCountLimit)

	t.Setenv("FORAGER_POLICY", "hill-climbing")
	cfg, err = Load(path)
	require.NoError(t, err)
	assert.Equal(t, "hill-climbing", cfg.Policy.Kind)
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default().Forager, cfg.Forager)
}

func TestLoad_BadEnvironment(t *testing.T) {
	t.Setenv("FORAGER_SEED", "soon")
	_, err := Load("")
	assert.ErrorIs(t, err, core.ErrConfiguration)
}

func TestLoad_BadYAML(t *testing.T) {
	_, err := LoadFromBytes([]byte("forager: [1, 2"))
	assert.Error(t, err)
}

func TestBuild_WiresComponents(t *testing.T) {
	problem := testkit.NewProblem([]int{0, 1, 2, 0}, 3, 2)
	ws := problem.NewSolution([]int{2, 2, 2, 2})

	cfg := Default()
	cfg.Seed = 7
	cfg.Policy.Kind = "tabu-search"
	cfg.Policy.TabuListSize = 10
	cfg.Phase.StepLimit = 20
	cfg.Evaluator.Guarded = true

	c, err := Build(cfg, Deps{WorkingSolution: ws, Evaluator: evaluator.NewLocal(testkit.ScoreSnapshot)})
	require.NoError(t, err)
	assert.Equal(t, policy.TabuSearch, c.Policy.Kind())
	assert.IsType(t, &evaluator.Guarded{}, c.Evaluator)

	source := &testkit.RandomSource{Problem: problem, Rand: testkit.NewRand(1), Count: 10, SwapRatio: 0.3}
	res, err := c.Runner.Run(t.Context(), ws, source)
	require.NoError(t, err)
	assert.Equal(t, 20, res.Steps)
	assert.True(t, core.IsAtLeast(res.BestScore, res.StartScore))
	assert.LessOrEqual(t, len(c.Policy.TabuHistory()), 10)
}

func TestBuild_HardConstraintsNeedsValidator(t *testing.T) {
	problem := testkit.NewProblem([]int{0, 1}, 2, 0)
	cfg := Default()
	cfg.Acceptor.Kind = "hard-constraints"

	_, err := Build(cfg, Deps{
		WorkingSolution: problem.NewSolution([]int{0, 0}),
		Evaluator:       evaluator.NewLocal(testkit.ScoreSnapshot),
	})
	assert.ErrorIs(t, err, core.ErrConfiguration)

	c, err := Build(cfg, Deps{
		WorkingSolution: problem.NewSolution([]int{0, 0}),
		Evaluator:       evaluator.NewLocal(testkit.ScoreSnapshot),
		Validator:       core.ConstraintValidatorFunc(func([]any) bool { return true }),
	})
	require.NoError(t, err)
	assert.NotNil(t, c.Acceptor)
}

func TestBuild_MissingEvaluator(t *testing.T) {
	problem := testkit.NewProblem([]int{0}, 1, 0)
	_, err := Build(Default(), Deps{WorkingSolution: problem.NewSolution([]int{0})})
	assert.ErrorIs(t, err, core.ErrConfiguration)
}
