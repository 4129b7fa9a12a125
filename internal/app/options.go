package app

import (
	"github.com/newslens/hypetrack/internal/adapters/hirlog"
	"github.com/newslens/hypetrack/internal/domain/credibility"
	"github.com/newslens/hypetrack/internal/domain/embedding"
	"github.com/newslens/hypetrack/internal/domain/entities"
	"github.com/newslens/hypetrack/pkg/logger"
)

// Option configures a Service before wiring.
type Option func(*Service)

// WithRegistry injects a pre-built entity registry instead of loading the
// configured file.
func WithRegistry(r *entities.Registry) Option {
	return func(s *Service) {
		if r != nil {
			s.registry = r
		}
	}
}

// WithCredibility injects a pre-built credibility table.
func WithCredibility(t *credibility.Table) Option {
	return func(s *Service) {
		if t != nil {
			s.credibility = t
		}
	}
}

// WithProvider injects an embedding provider, overriding the configured one.
func WithProvider(p embedding.Provider) Option {
	return func(s *Service) {
		if p != nil {
			s.provider = p
		}
	}
}

// WithHIRLog injects an already-open record log.
func WithHIRLog(l *hirlog.Store) Option {
	return func(s *Service) {
		if l != nil {
			s.hirLog = l
		}
	}
}

// WithLogger sets the service logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}
