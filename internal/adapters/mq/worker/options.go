package worker

import (
	"github.com/okian/pumpmatch/internal/domain/curve"
	"github.com/okian/pumpmatch/pkg/logger"
)

// Option applies a configuration option to the InMemoryWorker.
type Option func(*InMemoryWorker)

// WithName sets the worker name for identification and logging.
func WithName(name string) Option {
	return func(w *InMemoryWorker) {
		if name != "" {
			w.name = name
		}
	}
}

// WithLogger sets a custom logger for the worker.
func WithLogger(l logger.Logger) Option {
	return func(w *InMemoryWorker) {
		if l != nil {
			w.logger = l
		}
	}
}

// WithConvention selects the curve convention used for sampling.
func WithConvention(c curve.Convention) Option {
	return func(w *InMemoryWorker) {
		w.convention = c
	}
}

// WithStep sets the sampling step. Non-positive values are ignored.
func WithStep(step float64) Option {
	return func(w *InMemoryWorker) {
		if step > 0 {
			w.step = step
		}
	}
}

// WithPending releases each job's pump from p once the worker picks it up.
func WithPending(p Releaser) Option {
	return func(w *InMemoryWorker) {
		w.pending = p
	}
}
