package repository

import (
	"time"

	"github.com/newslens/hypetrack/pkg/logger"
)

const defaultSnapshotInterval = 5 * time.Second

// Option configures a Store.
type Option func(*Store)

// WithSnapshotInterval sets how often the read snapshot is republished.
func WithSnapshotInterval(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.snapshotInterval = d
		}
	}
}

// WithLogger sets the store's logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.log = l
		}
	}
}
