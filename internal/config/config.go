// Package config provides run-level configuration loading for trafficgen.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/talgya/trustflow/internal/profile"
)

// Config contains all run-level settings for one simulation.
type Config struct {
	// Seed drives every random source in the run; the same seed replays
	// the same traffic.
	Seed int64 `yaml:"seed"`

	// ProfileDir holds the agent profile documents.
	ProfileDir string `yaml:"profile_dir"`

	// TargetPopulation is the number of agents to create at bootstrap.
	TargetPopulation int `yaml:"target_population"`

	// AgentDistribution maps profile names to relative weights.
	AgentDistribution map[string]float64 `yaml:"agent_distribution"`

	// Iterations is how many evolution passes to run.
	Iterations int `yaml:"iterations"`

	// BlocksPerIteration is how far the clock advances before each pass.
	BlocksPerIteration int `yaml:"blocks_per_iteration"`

	// BlockTimeSeconds is the simulated duration of one block.
	BlockTimeSeconds int `yaml:"block_time_seconds"`

	// Fast disables the SQLite collector entirely.
	Fast bool `yaml:"fast"`

	// DBPath is where the collector database lives (ignored in fast mode).
	DBPath string `yaml:"db_path"`

	// LogLevel is "debug", "info", "warn", or "error".
	LogLevel string `yaml:"log_level"`
}

// Default returns the baseline configuration.
func Default() Config {
	return Config{
		Seed:               42,
		ProfileDir:         "configs/profiles",
		TargetPopulation:   50,
		Iterations:         100,
		BlocksPerIteration: 25,
		BlockTimeSeconds:   5,
		DBPath:             "data/trafficgen.db",
		LogLevel:           "info",
	}
}

// Load reads a YAML config file over the defaults and validates it.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, &profile.ConfigError{Field: "config", Reason: err.Error()}
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks the settings a run cannot start without.
func (c Config) Validate() error {
	if len(c.AgentDistribution) == 0 {
		return &profile.ConfigError{Field: "agent_distribution", Reason: "missing"}
	}
	if c.TargetPopulation <= 0 {
		return &profile.ConfigError{Field: "target_population", Reason: "must be positive"}
	}
	if c.Iterations <= 0 {
		return &profile.ConfigError{Field: "iterations", Reason: "must be positive"}
	}
	if c.BlocksPerIteration <= 0 {
		return &profile.ConfigError{Field: "blocks_per_iteration", Reason: "must be positive"}
	}
	if c.BlockTimeSeconds <= 0 {
		return &profile.ConfigError{Field: "block_time_seconds", Reason: "must be positive"}
	}
	return nil
}
