// Command trafficgen drives a population of synthetic agents against a
// trust-graph value-transfer ledger across simulated time.
package main

import (
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/talgya/trustflow/internal/agents"
	"github.com/talgya/trustflow/internal/collector"
	"github.com/talgya/trustflow/internal/config"
	"github.com/talgya/trustflow/internal/engine"
	"github.com/talgya/trustflow/internal/ledger"
	"github.com/talgya/trustflow/internal/profile"
)

func main() {
	var (
		configPath string
		seed       int64
		iterations int
		fast       bool
	)

	rootCmd := &cobra.Command{
		Use:           "trafficgen",
		Short:         "Generate synthetic agent traffic against a simulated trust-graph ledger",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("seed") {
				cfg.Seed = seed
			}
			if cmd.Flags().Changed("iterations") {
				cfg.Iterations = iterations
			}
			if cmd.Flags().Changed("fast") {
				cfg.Fast = fast
			}
			return run(cfg)
		},
	}

	rootCmd.Flags().StringVarP(&configPath, "config", "c", "configs/run.yaml", "run configuration file")
	rootCmd.Flags().Int64Var(&seed, "seed", 42, "random seed (overrides config)")
	rootCmd.Flags().IntVar(&iterations, "iterations", 0, "iteration count (overrides config)")
	rootCmd.Flags().BoolVar(&fast, "fast", false, "skip the SQLite collector")

	if err := rootCmd.Execute(); err != nil {
		slog.Error("run failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config) error {
	setupLogging(cfg.LogLevel)
	slog.Info("trustflow traffic generator",
		"seed", cfg.Seed,
		"population", cfg.TargetPopulation,
		"iterations", cfg.Iterations,
	)

	// ── Profiles ──────────────────────────────────────────────────────
	profiles, err := profile.LoadDir(cfg.ProfileDir)
	if err != nil {
		return err
	}
	slog.Info("profiles loaded", "count", len(profiles), "dir", cfg.ProfileDir)

	// ── Collector ─────────────────────────────────────────────────────
	var col collector.Collector = collector.Noop{}
	if !cfg.Fast {
		if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
			return fmt.Errorf("create data dir: %w", err)
		}
		db, err := collector.OpenSQLite(cfg.DBPath)
		if err != nil {
			return err
		}
		defer db.Close()
		col = db
		slog.Info("collector opened", "path", cfg.DBPath)
	} else {
		slog.Info("fast mode — collector disabled")
	}

	// ── Ledger, registry, engine ──────────────────────────────────────
	rng := rand.New(rand.NewSource(cfg.Seed))
	chain := ledger.NewMemory(cfg.Seed + 1)
	reg := agents.NewRegistry(profiles, rng)

	builder := engine.NewBuilder(reg, chain, chain, col, rng)
	if err := builder.BuildInitialPopulation(cfg.TargetPopulation, cfg.AgentDistribution); err != nil {
		return err
	}

	evolver := engine.NewEvolver(reg, chain, chain, col, rng)

	// ── Evolution loop ────────────────────────────────────────────────
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	runStats := engine.NewRunStats()
	for i := 0; i < cfg.Iterations; i++ {
		select {
		case sig := <-sigCh:
			slog.Info("received signal, stopping", "signal", sig, "iteration", i)
			runStats.LogSummary()
			return nil
		default:
		}

		if err := evolver.AdvanceTime(cfg.BlocksPerIteration, cfg.BlockTimeSeconds); err != nil {
			return err
		}
		stats, err := evolver.EvolveIteration(i)
		if err != nil {
			return err
		}
		runStats.Add(stats)
	}

	runStats.LogSummary()
	return nil
}

func setupLogging(level string) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
	slog.SetDefault(logger)
}
