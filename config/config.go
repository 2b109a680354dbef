// Package config loads forager settings from YAML and the environment,
// validates them and builds the acceptor, policy, forager and phase runner
// they describe.
package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/snow-ghost/forager/core"
	"github.com/snow-ghost/forager/forager"
	"github.com/snow-ghost/forager/phase"
	"github.com/snow-ghost/forager/pkg/cache"
	"github.com/snow-ghost/forager/pkg/limiter"
	"github.com/snow-ghost/forager/pkg/logging"
	"github.com/snow-ghost/forager/pkg/tracing"
	"gopkg.in/yaml.v3"
)

// Unbounded is the accepted_count_limit value meaning "no limit".
const Unbounded = -1

// Config is the complete configuration of a forager run.
type Config struct {
	// Seed feeds the random source of every run; 0 picks a time-based seed.
	Seed      int64           `yaml:"seed"`
	Runs      int             `yaml:"runs" validate:"gte=1"`
	Parallel  int             `yaml:"parallel" validate:"gte=0"`
	Forager   ForagerConfig   `yaml:"forager"`
	Acceptor  AcceptorConfig  `yaml:"acceptor"`
	Policy    PolicyConfig    `yaml:"policy"`
	Phase     phase.Limits    `yaml:"phase"`
	Evaluator EvaluatorConfig `yaml:"evaluator"`
	Problem   ProblemConfig   `yaml:"problem"`
	Logging   logging.Config  `yaml:"logging"`
	Tracing   tracing.Config  `yaml:"tracing"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// ForagerConfig holds the step settings.
type ForagerConfig struct {
	AcceptedCountLimit  int     `yaml:"accepted_count_limit" validate:"min=-1,ne=0"`
	EvaluationMode      string  `yaml:"evaluation_mode" validate:"oneof=best above-threshold top-fraction"`
	EvaluationThreshold float64 `yaml:"evaluation_threshold" validate:"gt=0,lte=1"`
	TopFraction         float64 `yaml:"top_fraction" validate:"gt=0,lte=1"`
	BreakTieRandomly    bool    `yaml:"break_tie_randomly"`
	VerifyUndo          bool    `yaml:"verify_undo"`
}

// AcceptorConfig selects the admission filter.
type AcceptorConfig struct {
	Kind        string `yaml:"kind" validate:"oneof=accept-all hard-constraints"`
	ProblemType string `yaml:"problem_type" validate:"omitempty,oneof=unbalanced balanced"`
}

// PolicyConfig selects the metaheuristic. Scores are written as "0hard/500soft".
type PolicyConfig struct {
	Kind                     string  `yaml:"kind" validate:"required,oneof=hill-climbing step-counting-hill-climbing simulated-annealing great-deluge tabu-search"`
	StepCountingSize         int     `yaml:"step_counting_size" validate:"gte=0"`
	StepCountingType         string  `yaml:"step_counting_type" validate:"omitempty,oneof=step selected-move accepted-move equal-or-improving-step improving-step"`
	StartingTemperature      string  `yaml:"starting_temperature"`
	InitialWaterLevel        string  `yaml:"initial_water_level"`
	WaterLevelIncrementScore string  `yaml:"water_level_increment_score"`
	WaterLevelIncrementRatio float64 `yaml:"water_level_increment_ratio" validate:"gte=0"`
	TabuListSize             int     `yaml:"tabu_list_size" validate:"gte=0"`
}

// EvaluatorConfig describes how the neighbourhood evaluator is reached.
type EvaluatorConfig struct {
	Name string `yaml:"name"`
	// Guarded wraps the evaluator with rate limiting, a circuit breaker and retries.
	Guarded  bool                   `yaml:"guarded"`
	Endpoint limiter.EndpointConfig `yaml:"endpoint"`
	// Cache memoizes scores by fingerprint; max_size 0 disables it.
	Cache cache.Config `yaml:"cache"`
}

// ProblemConfig sizes the demo assignment problem of the CLI.
type ProblemConfig struct {
	Entities     int     `yaml:"entities" validate:"gte=1"`
	Slots        int     `yaml:"slots" validate:"gte=1"`
	Capacity     int     `yaml:"capacity" validate:"gte=0"`
	MovesPerStep int     `yaml:"moves_per_step" validate:"gte=0"`
	SwapRatio    float64 `yaml:"swap_ratio" validate:"gte=0,lte=1"`
}

// MetricsConfig enables the Prometheus endpoint of the CLI.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address" validate:"required_if=Enabled true"`
}

// Default returns the configuration used for every key not set explicitly.
func Default() Config {
	return Config{
		Runs: 1,
		Forager: ForagerConfig{
			AcceptedCountLimit:  50,
			EvaluationMode:      string(forager.EvaluateBest),
			EvaluationThreshold: 0.9,
			TopFraction:         0.1,
			BreakTieRandomly:    true,
			VerifyUndo:          true,
		},
		Acceptor: AcceptorConfig{Kind: "accept-all", ProblemType: "unbalanced"},
		Policy: PolicyConfig{
			Kind:                     "hill-climbing",
			StepCountingSize:         20,
			StepCountingType:         "step",
			WaterLevelIncrementRatio: 0.005,
			TabuListSize:             1000,
		},
		Phase:     phase.Limits{StepLimit: 1000, UnimprovedStepLimit: 200},
		Evaluator: EvaluatorConfig{Name: "local"},
		Problem:   ProblemConfig{Entities: 30, Slots: 6, Capacity: 6, MovesPerStep: 100, SwapRatio: 0.3},
		Logging:   logging.DefaultConfig(),
		Tracing:   tracing.Config{ServiceName: "forager"},
		Metrics:   MetricsConfig{Address: ":9090"},
	}
}

// Load reads path over the defaults, applies environment overrides and
// validates the result. FORAGER_CONFIG overrides path; a missing file leaves
// the defaults in place.
func Load(path string) (Config, error) {
	if p := os.Getenv("FORAGER_CONFIG"); p != "" {
		path = p
	}

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return Config{}, fmt.Errorf("failed to read config file %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("failed to parse YAML config %s: %w", path, err)
			}
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadFromBytes parses YAML over the defaults and validates it. The
// environment is not consulted.
func LoadFromBytes(data []byte) (Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse YAML config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	cfg.Policy.Kind = getEnv("FORAGER_POLICY", cfg.Policy.Kind)
	cfg.Logging.Level = getEnv("LOG_LEVEL", cfg.Logging.Level)

	var err error
	if cfg.Seed, err = getEnvInt64("FORAGER_SEED", cfg.Seed); err != nil {
		return err
	}
	limit, err := getEnvInt64("FORAGER_ACCEPTED_COUNT_LIMIT", int64(cfg.Forager.AcceptedCountLimit))
	if err != nil {
		return err
	}
	cfg.Forager.AcceptedCountLimit = int(limit)
	return nil
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt64 gets an integer environment variable with a default value
func getEnvInt64(key string, defaultValue int64) (int64, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer, got %q", core.ErrConfiguration, key, value)
	}
	return n, nil
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("yaml"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks field ranges and the parameters the selected policy needs.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			msgs := make([]string, len(fieldErrs))
			for i, fe := range fieldErrs {
				msgs[i] = describe(fe)
			}
			return fmt.Errorf("%w: %s", core.ErrConfiguration, strings.Join(msgs, "; "))
		}
		return fmt.Errorf("%w: %v", core.ErrConfiguration, err)
	}

	// scores are parsed in declaration order
	if _, err := c.Policy.PolicyConfig(); err != nil {
		return err
	}

	switch c.Policy.Kind {
	case "simulated-annealing":
		if c.Policy.StartingTemperature == "" {
			return fmt.Errorf("%w: policy.starting_temperature is required for simulated-annealing", core.ErrMissingParameter)
		}
	case "step-counting-hill-climbing":
		if c.Policy.StepCountingSize <= 0 {
			return fmt.Errorf("%w: policy.step_counting_size must be positive for step-counting-hill-climbing", core.ErrMissingParameter)
		}
	case "great-deluge":
		if c.Policy.WaterLevelIncrementScore == "" && c.Policy.WaterLevelIncrementRatio == 0 {
			return fmt.Errorf("%w: policy.water_level_increment_score or policy.water_level_increment_ratio is required for great-deluge", core.ErrMissingParameter)
		}
	case "tabu-search":
		if c.Policy.TabuListSize <= 0 {
			return fmt.Errorf("%w: policy.tabu_list_size must be positive for tabu-search", core.ErrMissingParameter)
		}
	}

	if c.Phase.StepLimit == 0 && c.Phase.TimeLimit == 0 && c.Phase.UnimprovedStepLimit == 0 {
		return fmt.Errorf("%w: set at least one of phase.step_limit, phase.time_limit, phase.unimproved_step_limit", core.ErrConfiguration)
	}
	return nil
}

func describe(fe validator.FieldError) string {
	// Namespace starts with the root struct name.
	_, field, _ := strings.Cut(fe.Namespace(), ".")
	if fe.Param() != "" {
		return fmt.Sprintf("%s failed %s=%s (got %v)", field, fe.Tag(), fe.Param(), fe.Value())
	}
	return fmt.Sprintf("%s failed %s (got %v)", field, fe.Tag(), fe.Value())
}

// ForagerLimit maps accepted_count_limit onto the forager's limit.
func (c ForagerConfig) ForagerLimit() int {
	if c.AcceptedCountLimit == Unbounded {
		return forager.Unbounded
	}
	return c.AcceptedCountLimit
}
