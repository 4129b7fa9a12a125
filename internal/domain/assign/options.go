package assign

import (
	"time"

	"github.com/newslens/hypetrack/pkg/logger"
)

const (
	defaultThreshold = 0.75
	defaultTieMargin = 0.02
)

// Option configures an Engine.
type Option func(*Engine)

// WithThreshold sets the minimum centroid similarity for joining a cluster.
func WithThreshold(t float64) Option {
	return func(e *Engine) {
		if t > 0 && t <= 1 {
			e.threshold = t
		}
	}
}

// WithTieMargin sets the similarity margin within which the deterministic
// tie-break applies.
func WithTieMargin(m float64) Option {
	return func(e *Engine) {
		if m >= 0 {
			e.tieMargin = m
		}
	}
}

// WithLogger sets the engine's logger.
func WithLogger(l logger.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// WithClock overrides the engine's time source, used in tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}
