package lifecycle

import (
	"time"

	"github.com/newslens/hypetrack/pkg/logger"
)

const (
	defaultMergeThreshold = 0.85
	defaultDormantAfter   = 72 * time.Hour
	defaultArchiveAfter   = 336 * time.Hour
	defaultInterval       = time.Hour
)

// Option configures a Manager.
type Option func(*Manager)

// WithMergeThreshold sets the centroid similarity above which two active
// clusters are folded together.
func WithMergeThreshold(t float64) Option {
	return func(m *Manager) {
		if t > 0 && t <= 1 {
			m.mergeThreshold = t
		}
	}
}

// WithDormantAfter sets the inactivity window before an active cluster
// goes dormant.
func WithDormantAfter(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.dormantAfter = d
		}
	}
}

// WithArchiveAfter sets the inactivity window before a dormant cluster
// is archived.
func WithArchiveAfter(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.archiveAfter = d
		}
	}
}

// WithInterval sets how often Run triggers a pass.
func WithInterval(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.interval = d
		}
	}
}

// WithLogger sets the manager's logger.
func WithLogger(l logger.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.log = l
		}
	}
}

// WithClock overrides the manager's time source, used in tests.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}
