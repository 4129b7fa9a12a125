package config

import (
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// weightSumTolerance absorbs float representation noise when checking that
// signal weights sum to 1.
const weightSumTolerance = 1e-9

// Load builds a Config by layering defaults, an optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if HYPETRACK_CONFIG is set
//  3. env (prefix HYPETRACK_)
func Load() (*Config, error) {
	base := New()

	k := koanf.New(".")

	if path := os.Getenv("HYPETRACK_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	// Environment variables: HYPETRACK_ADDR, HYPETRACK_ASSIGN_THRESHOLD, ...
	// mapped to the flat koanf keys on the struct.
	envProvider := env.Provider("HYPETRACK_", ".", func(s string) string {
		s = strings.ToLower(s)
		return strings.TrimPrefix(s, "hypetrack_")
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("load env config: %w", err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the invariants the engine refuses to run without.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	if c.AssignThreshold <= 0 || c.AssignThreshold > 1 {
		return fmt.Errorf("%w: assign_threshold must be in (0, 1], got %v", ErrInvalidConfig, c.AssignThreshold)
	}
	if c.MergeThreshold <= c.AssignThreshold || c.MergeThreshold > 1 {
		return fmt.Errorf("%w: merge_threshold must be in (assign_threshold, 1], got %v", ErrInvalidConfig, c.MergeThreshold)
	}
	if c.TieMargin < 0 {
		return fmt.Errorf("%w: tie_margin must not be negative", ErrInvalidConfig)
	}
	if c.NearDupThreshold <= 0 || c.NearDupThreshold > 1 {
		return fmt.Errorf("%w: near_dup_threshold must be in (0, 1], got %v", ErrInvalidConfig, c.NearDupThreshold)
	}
	if c.TLow <= 0 || c.THigh <= c.TLow {
		return fmt.Errorf("%w: thresholds must satisfy 0 < t_low < t_high, got %v and %v", ErrInvalidConfig, c.TLow, c.THigh)
	}
	if c.MinCoverageFloor < 0 {
		return fmt.Errorf("%w: min_coverage_floor must not be negative", ErrInvalidConfig)
	}
	if c.DefaultCredibility < 0 || c.DefaultCredibility > 1 {
		return fmt.Errorf("%w: default_credibility must be in [0, 1], got %v", ErrInvalidConfig, c.DefaultCredibility)
	}
	if c.DormantAfter <= 0 || c.ArchiveAfter <= c.DormantAfter {
		return fmt.Errorf("%w: inactivity windows must satisfy 0 < dormant_after < archive_after", ErrInvalidConfig)
	}
	if c.WindowSize <= 0 {
		return fmt.Errorf("%w: window_size must be positive", ErrInvalidConfig)
	}
	if c.BaselineWindows < 1 {
		return fmt.Errorf("%w: baseline_windows must be at least 1", ErrInvalidConfig)
	}
	if len(c.SignalWeights) == 0 {
		return fmt.Errorf("%w: signal_weights must not be empty", ErrInvalidConfig)
	}
	var sum float64
	for name, w := range c.SignalWeights {
		if w < 0 {
			return fmt.Errorf("%w: signal weight %s must not be negative", ErrInvalidConfig, name)
		}
		sum += w
	}
	if math.Abs(sum-1) > weightSumTolerance {
		return fmt.Errorf("%w: signal weights must sum to 1, got %v", ErrInvalidConfig, sum)
	}
	switch c.Embedder {
	case "http", "local":
	default:
		return fmt.Errorf("%w: embedder must be http or local, got %q", ErrInvalidConfig, c.Embedder)
	}
	if c.EmbedTimeout <= 0 {
		return fmt.Errorf("%w: embed_timeout must be positive", ErrInvalidConfig)
	}
	return nil
}
