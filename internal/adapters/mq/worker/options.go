package worker

import "github.com/newslens/hypetrack/pkg/logger"

// Option configures a Worker.
type Option func(*Worker)

// WithName sets the worker's name, reflected in its log output.
func WithName(name string) Option {
	return func(w *Worker) {
		if name != "" {
			w.name = name
			w.log = logger.Named(name)
		}
	}
}

// WithLogger sets the worker's logger.
func WithLogger(l logger.Logger) Option {
	return func(w *Worker) {
		if l != nil {
			w.log = l
		}
	}
}
