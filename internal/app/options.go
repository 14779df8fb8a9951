package service

import (
	"github.com/okian/pumpmatch/internal/adapters/repository"
	"github.com/okian/pumpmatch/internal/domain/curve"
	"github.com/okian/pumpmatch/internal/domain/matching"
	"github.com/okian/pumpmatch/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithDBPath sets the sqlite file opened on Start.
func WithDBPath(path string) Option {
	return func(s *Service) {
		if path != "" {
			s.dbPath = path
		}
	}
}

// WithStore injects an already opened store. Start will not open another
// one and Stop will still close it.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		s.store = store
	}
}

// WithCatalogPath imports a YAML catalog on Start.
func WithCatalogPath(path string) Option {
	return func(s *Service) {
		s.catalogPath = path
	}
}

// WithWorkerCount sets the number of regeneration workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the regeneration queue capacity.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithScoreParallelism bounds concurrent scoring inside one match.
func WithScoreParallelism(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.parallelism = n
		}
	}
}

// WithConventions selects the curve convention for matching and for stored curves.
func WithConventions(match, sample curve.Convention) Option {
	return func(s *Service) {
		s.matchConvention = match
		s.curveConvention = sample
	}
}

// WithCurveStep sets the sampling step of stored curves.
func WithCurveStep(step float64) Option {
	return func(s *Service) {
		if step > 0 {
			s.curveStep = step
		}
	}
}

// WithWeights overrides the diagnostic weights.
func WithWeights(w matching.Weights) Option {
	return func(s *Service) {
		s.weights = w
	}
}

// WithMaxResults sets the default number of matches returned.
func WithMaxResults(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxResults = n
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}
