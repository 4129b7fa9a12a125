// Package config defines engine configuration and its loading rules.
//
// Conventions:
// - New returns the defaults; Load layers file and environment on top.
// - Validation is fatal: the engine must not run with an invalid config.
package config

import (
	"runtime"
	"time"
)

// Config contains all externally tunable knobs. Every threshold the engine
// classifies with lives here, never in code.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// QueueSize bounds the in-memory article queue.
	QueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of pipeline workers.
	WorkerCount int `koanf:"worker_count"`

	// DedupeSize bounds the fingerprint index.
	DedupeSize int `koanf:"dedupe_size"`

	// NearDupThreshold is the minhash similarity at which two articles are
	// duplicates despite differing exact hashes.
	NearDupThreshold float64 `koanf:"near_dup_threshold"`

	// AssignThreshold is the minimum centroid cosine similarity for joining
	// an existing cluster.
	AssignThreshold float64 `koanf:"assign_threshold"`

	// MergeThreshold is the centroid similarity at which the lifecycle pass
	// folds two active clusters together. Must exceed AssignThreshold.
	MergeThreshold float64 `koanf:"merge_threshold"`

	// TieMargin is the similarity margin within which assignment prefers
	// the larger cluster.
	TieMargin float64 `koanf:"tie_margin"`

	// DormantAfter and ArchiveAfter are the inactivity windows of the
	// cluster lifecycle.
	DormantAfter time.Duration `koanf:"dormant_after"`
	ArchiveAfter time.Duration `koanf:"archive_after"`

	// LifecycleInterval sets how often the maintenance pass runs.
	LifecycleInterval time.Duration `koanf:"lifecycle_interval"`

	// WindowSize is the scoring window length.
	WindowSize time.Duration `koanf:"window_size"`

	// SignalWeights maps signal type to its share of the combined impact
	// score. Weights must sum to 1.
	SignalWeights map[string]float64 `koanf:"signal_weights"`

	// BaselineWindows sets the trailing window depth for both signal
	// normalization and coverage baselines.
	BaselineWindows int `koanf:"baseline_windows"`

	// TLow and THigh are the default HIR classification thresholds;
	// entities may override them individually.
	TLow  float64 `koanf:"t_low"`
	THigh float64 `koanf:"t_high"`

	// MinCoverageFloor separates ordinary Ignore from possible
	// underreporting when HIR falls below TLow.
	MinCoverageFloor float64 `koanf:"min_coverage_floor"`

	// DefaultCredibility is used for sources missing from the table.
	DefaultCredibility float64 `koanf:"default_credibility"`

	// EntitiesPath and CredibilityPath locate the YAML registry files.
	EntitiesPath    string `koanf:"entities_path"`
	CredibilityPath string `koanf:"credibility_path"`

	// HIRLogPath locates the SQLite record log; ":memory:" for ephemeral.
	HIRLogPath string `koanf:"hir_log_path"`

	// Embedder selects the provider: "http" or "local".
	Embedder string `koanf:"embedder"`

	// EmbedEndpoint and EmbedModel configure the http provider.
	EmbedEndpoint string `koanf:"embed_endpoint"`
	EmbedModel    string `koanf:"embed_model"`
	EmbedDim      int    `koanf:"embed_dim"`

	// EmbedTimeout bounds one embedding call; a timed-out article is
	// deferred to the next batch.
	EmbedTimeout time.Duration `koanf:"embed_timeout"`

	// MinTextChars rejects articles too short to embed meaningfully.
	MinTextChars int `koanf:"min_text_chars"`

	// SnapshotInterval sets how often the cluster read snapshot refreshes.
	SnapshotInterval time.Duration `koanf:"snapshot_interval"`
}

// New returns the default configuration.
func New() *Config {
	return &Config{
		LogLevel:          "info",
		Addr:              ":9080",
		QueueSize:         50_000,
		WorkerCount:       runtime.NumCPU() * 4,
		DedupeSize:        50_000,
		NearDupThreshold:  0.9,
		AssignThreshold:   0.75,
		MergeThreshold:    0.85,
		TieMargin:         0.02,
		DormantAfter:      72 * time.Hour,
		ArchiveAfter:      336 * time.Hour,
		LifecycleInterval: time.Hour,
		WindowSize:        24 * time.Hour,
		SignalWeights: map[string]float64{
			"search_interest": 0.4,
			"market_movement": 0.4,
			"verified_events": 0.2,
		},
		BaselineWindows:    8,
		TLow:               0.8,
		THigh:              2.5,
		MinCoverageFloor:   0.5,
		DefaultCredibility: 0.5,
		EntitiesPath:       "entities.yaml",
		CredibilityPath:    "credibility.yaml",
		HIRLogPath:         "hypetrack.db",
		Embedder:           "local",
		EmbedEndpoint:      "http://localhost:11434",
		EmbedModel:         "mxbai-embed-large",
		EmbedDim:           1024,
		EmbedTimeout:       10 * time.Second,
		MinTextChars:       120,
		SnapshotInterval:   5 * time.Second,
	}
}
