package scoring

import (
	"time"

	"github.com/newslens/hypetrack/pkg/logger"
)

const (
	defaultTLow             = 0.8
	defaultTHigh            = 2.5
	defaultMinCoverageFloor = 0.5
	defaultBaselineWindows  = 8
	defaultTopSources       = 5
)

// Option configures a Scorer.
type Option func(*Scorer)

// WithThresholds sets the default classification thresholds; entity
// overrides still win.
func WithThresholds(tLow, tHigh float64) Option {
	return func(s *Scorer) {
		if tLow > 0 && tHigh > tLow {
			s.tLow = tLow
			s.tHigh = tHigh
		}
	}
}

// WithMinCoverageFloor sets the coverage intensity below which a low-ratio
// window is ordinary noise rather than possible underreporting.
func WithMinCoverageFloor(f float64) Option {
	return func(s *Scorer) {
		if f >= 0 {
			s.minCoverageFloor = f
		}
	}
}

// WithBaselineWindows sets how many past windows feed each entity's
// trailing coverage baseline.
func WithBaselineWindows(n int) Option {
	return func(s *Scorer) {
		if n > 0 {
			s.baselineWindows = n
		}
	}
}

// WithTopSources sets how many sources the evidence snapshot retains.
func WithTopSources(n int) Option {
	return func(s *Scorer) {
		if n > 0 {
			s.topSources = n
		}
	}
}

// WithLogger sets the scorer's logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Scorer) {
		if l != nil {
			s.log = l
		}
	}
}

// WithClock overrides the scorer's time source, used in tests.
func WithClock(now func() time.Time) Option {
	return func(s *Scorer) {
		if now != nil {
			s.now = now
		}
	}
}
