// Command forager runs the local-search forager on a generated assignment
// problem, configured from YAML.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/snow-ghost/forager/bench"
	"github.com/snow-ghost/forager/config"
	"github.com/snow-ghost/forager/core"
	"github.com/snow-ghost/forager/evaluator"
	"github.com/snow-ghost/forager/pkg/cache"
	"github.com/snow-ghost/forager/pkg/observability"
	"github.com/snow-ghost/forager/testkit"
	"github.com/spf13/cobra"
)

var configPath string

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "forager",
		Short:         "Local-search step forager",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "forager.yaml", "path to the YAML configuration")

	root.AddCommand(&cobra.Command{
		Use:   "run",
		Short: "Optimise a generated assignment problem",
		RunE:  runCmd,
	})
	root.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Check the configuration and exit",
		RunE:  validateCmd,
	})
	return root
}

func validateCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "configuration OK: policy=%s evaluation=%s runs=%d\n",
		cfg.Policy.Kind, cfg.Forager.EvaluationMode, cfg.Runs)
	return nil
}

func runCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	obs, err := observability.NewManager(cfg.Observability(reg))
	if err != nil {
		return fmt.Errorf("failed to initialize observability: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = obs.Shutdown(shutdownCtx)
	}()
	logger := obs.GetLogger()

	if cfg.Metrics.Enabled {
		srv := &http.Server{Addr: cfg.Metrics.Address, Handler: metricsMux(reg)}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("Metrics server failed", "error", err)
			}
		}()
		defer srv.Close()
		logger.Info("Serving metrics", "address", cfg.Metrics.Address)
	}

	specs, err := demoSpecs(cfg, obs)
	if err != nil {
		return err
	}
	results, err := bench.RunAll(ctx, specs, cfg.Parallel)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%-8s %-36s %6s %-22s %-22s %s\n", "RUN", "ID", "STEPS", "START", "BEST", "STOP")
	for _, r := range results {
		fmt.Fprintf(out, "%-8s %-36s %6d %-22s %-22s %s\n",
			r.Name, r.RunID, r.Steps, r.StartScore, r.BestScore, r.StopReason)
		if r.EvaluatorStats != nil {
			logger.Info("Evaluator protection", "run", r.Name, "run_id", r.RunID, "stats", r.EvaluatorStats)
		}
	}
	return nil
}

func metricsMux(reg *prometheus.Registry) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return mux
}

// demoSpecs builds cfg.Runs runs over one random problem. Run i uses seed
// base+i for both its moves and its policy. The runs share the score cache.
func demoSpecs(cfg config.Config, obs *observability.Manager) ([]bench.RunSpec, error) {
	base := cfg.Seed
	if base == 0 {
		base = time.Now().UnixNano()
	}
	p := cfg.Problem
	problem := testkit.RandomProblem(testkit.NewRand(base), p.Entities, p.Slots, p.Capacity)
	inRange := core.ConstraintValidatorFunc(func(entities []any) bool {
		for _, e := range entities {
			if ent, ok := e.(testkit.Entity); ok && ent.Slot >= p.Slots {
				return false
			}
		}
		return true
	})

	score := evaluator.ScoreFunc(testkit.ScoreSnapshot)
	if cfg.Evaluator.Cache.MaxSize > 0 {
		scores, err := cache.NewScoreCache(cfg.Evaluator.Cache)
		if err != nil {
			return nil, err
		}
		score = evaluator.Memoize(score, scores)
	}

	specs := make([]bench.RunSpec, cfg.Runs)
	for i := range specs {
		runCfg := cfg
		runCfg.Seed = base + int64(i)
		specs[i] = bench.RunSpec{
			Name:            fmt.Sprintf("run-%d", i+1),
			Config:          runCfg,
			WorkingSolution: problem.NewSolution(make([]int, p.Entities)),
			Source: &testkit.RandomSource{
				Problem:   problem,
				Rand:      testkit.NewRand(runCfg.Seed),
				Count:     p.MovesPerStep,
				SwapRatio: p.SwapRatio,
			},
			Evaluator:     evaluator.NewLocal(score),
			Validator:     inRange,
			Observability: obs,
		}
	}
	return specs, nil
}
