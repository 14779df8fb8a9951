// Package config defines service configuration and its loader.
//
// Values are layered defaults -> optional YAML file -> PUMPMATCH_* env vars.
package config

import (
	"fmt"
	"runtime"

	"github.com/okian/pumpmatch/internal/domain/curve"
	"github.com/okian/pumpmatch/internal/domain/matching"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// LogFormat selects text or json output.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// DBPath is the sqlite database file; ":memory:" keeps the catalog in RAM.
	DBPath string `koanf:"db_path"`
	// CatalogPath optionally points at a YAML catalog imported on start.
	CatalogPath string `koanf:"catalog_path"`

	// MatchConvention and CurveConvention name the curve calibration used
	// for scoring and for persisted curve points respectively.
	MatchConvention string `koanf:"match_convention"`
	CurveConvention string `koanf:"curve_convention"`
	// CurveStep is the flow increment between sampled points.
	CurveStep float64 `koanf:"curve_step"`

	// WorkerCount sets the number of curve regeneration workers.
	WorkerCount int `koanf:"worker_count"`
	// QueueSize bounds the regeneration queue.
	QueueSize int `koanf:"queue_size"`

	// ScoreParallelism caps concurrent candidate scoring per request.
	ScoreParallelism int `koanf:"score_parallelism"`
	// MaxResults is the default number of matches returned.
	MaxResults int `koanf:"max_results"`

	// Weights are the diagnostic composite weights; they must sum to 100.
	Weights matching.Weights `koanf:"weights"`
}

// New returns a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:         "info",
		LogFormat:        "text",
		Addr:             ":9080",
		DBPath:           "pumpmatch.db",
		MatchConvention:  curve.ConventionEstimate.String(),
		CurveConvention:  curve.ConventionMaxHead.String(),
		CurveStep:        curve.DefaultStep,
		WorkerCount:      4,
		QueueSize:        10_000,
		ScoreParallelism: runtime.NumCPU(),
		MaxResults:       50,
		Weights:          matching.DefaultWeights(),
	}
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.DBPath == "":
		return fmt.Errorf("%w: db_path must not be empty", ErrInvalidConfig)
	case c.CurveStep <= 0:
		return fmt.Errorf("%w: curve_step must be > 0", ErrInvalidConfig)
	case c.MaxResults <= 0:
		return fmt.Errorf("%w: max_results must be > 0", ErrInvalidConfig)
	}
	if _, err := curve.ParseConvention(c.MatchConvention); err != nil {
		return fmt.Errorf("%w: match_convention: %v", ErrInvalidConfig, err)
	}
	if _, err := curve.ParseConvention(c.CurveConvention); err != nil {
		return fmt.Errorf("%w: curve_convention: %v", ErrInvalidConfig, err)
	}
	if err := c.Weights.Validate(); err != nil {
		return fmt.Errorf("%w: weights: %v", ErrInvalidConfig, err)
	}
	return nil
}

// Conventions returns the parsed match and curve conventions. Call Validate first.
func (c *Config) Conventions() (match, sample curve.Convention) {
	match, _ = curve.ParseConvention(c.MatchConvention)
	sample, _ = curve.ParseConvention(c.CurveConvention)
	return match, sample
}
