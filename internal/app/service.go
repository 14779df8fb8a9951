// Package service wires the catalog store, the curve regeneration pipeline
// and the matching engine behind the operations the HTTP API exposes.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/okian/pumpmatch/internal/adapters/catalogfile"
	"github.com/okian/pumpmatch/internal/adapters/mq/queue"
	"github.com/okian/pumpmatch/internal/adapters/mq/worker"
	"github.com/okian/pumpmatch/internal/adapters/repository"
	"github.com/okian/pumpmatch/internal/domain/curve"
	"github.com/okian/pumpmatch/internal/domain/dedupe"
	"github.com/okian/pumpmatch/internal/domain/matching"
	"github.com/okian/pumpmatch/internal/domain/pump"
	"github.com/okian/pumpmatch/internal/domain/types"
	"github.com/okian/pumpmatch/pkg/logger"
	"github.com/okian/pumpmatch/pkg/metrics"
)

// Service implements the API dependencies for the pump matching system.
type Service struct {
	mu sync.RWMutex

	store   repository.Store
	pending dedupe.Pending
	jobs    *queue.InMemoryQueue
	pool    *worker.Pool
	ranker  *matching.Ranker

	dbPath          string
	catalogPath     string
	workerCount     int
	queueSize       int
	parallelism     int
	matchConvention curve.Convention
	curveConvention curve.Convention
	curveStep       float64
	weights         matching.Weights
	maxResults      int

	started   bool
	startedAt time.Time
	matches   atomic.Int64

	logger logger.Logger
}

// New constructs a Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		dbPath:          "pumpmatch.db",
		workerCount:     4,
		queueSize:       10_000,
		parallelism:     runtime.NumCPU(),
		matchConvention: curve.ConventionEstimate,
		curveConvention: curve.ConventionMaxHead,
		curveStep:       curve.DefaultStep,
		weights:         matching.DefaultWeights(),
		maxResults:      50,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.ranker = matching.NewRanker(
		matching.NewScorer(
			matching.WithConvention(s.matchConvention),
			matching.WithWeights(s.weights),
		),
		matching.WithParallelism(s.parallelism),
	)
	return s
}

// Start opens the store, imports the configured catalog file, if any, and
// then starts the regeneration workers. A failed import leaves the service
// stopped.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	s.logger.Info(ctx, "starting pump matching service...")

	var imported []pump.Spec
	if s.catalogPath != "" {
		specs, err := catalogfile.Load(s.catalogPath)
		if err != nil {
			return fmt.Errorf("import catalog: %w", err)
		}
		imported = specs
	}

	ownStore := s.store == nil
	if ownStore {
		store, err := repository.Open(ctx, s.dbPath)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		s.store = store
		s.logger.Info(ctx, "using sqlite store", logger.String("path", s.dbPath))
	}

	s.pending = dedupe.NewPending(dedupe.WithSizeHint(s.queueSize))
	s.jobs = queue.NewInMemoryQueue(queue.WithCapacity(s.queueSize))

	// Imported pumps queue up before any worker runs.
	for i := range imported {
		if _, err := s.upsert(ctx, imported[i]); err != nil {
			_ = s.jobs.Close()
			if ownStore {
				_ = s.store.Close()
				s.store = nil
			}
			return fmt.Errorf("import catalog: %w", err)
		}
	}

	s.pool = worker.NewPool(s.workerCount, s.jobs, s.store,
		worker.WithConvention(s.curveConvention),
		worker.WithStep(s.curveStep),
		worker.WithPending(s.pending),
	)
	// Workers outlive the start request.
	s.pool.Start(context.WithoutCancel(ctx))

	s.started = true
	s.startedAt = time.Now()

	if s.catalogPath != "" {
		s.logger.Info(ctx, "catalog imported",
			logger.String("path", s.catalogPath),
			logger.Int("pumps", len(imported)),
		)
	}
	s.refreshCatalogGauge(ctx)

	s.logger.Info(ctx, "pump matching service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.String("matchConvention", s.matchConvention.String()),
		logger.String("curveConvention", s.curveConvention.String()),
	)
	return nil
}

// Stop drains pending regenerations and closes the store.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}
	s.logger.Info(ctx, "stopping pump matching service...")

	var errs []error
	if err := s.pool.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := s.store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close store: %w", err))
	}
	s.store = nil
	s.started = false

	s.logger.Info(ctx, "pump matching service stopped")
	return errors.Join(errs...)
}

func (s *Service) running() error {
	if !s.started {
		return ErrNotStarted
	}
	return nil
}

// Match ranks the catalog against req. Pumps are first narrowed by
// req.PumpType when set. limit <= 0 uses the configured maximum.
func (s *Service) Match(ctx context.Context, req pump.Requirement, limit int) (types.MatchResponse, error) {
	start := time.Now()
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.running(); err != nil {
		return types.MatchResponse{}, err
	}
	if err := req.Validate(); err != nil {
		metrics.RecordMatch("invalid", msSince(start))
		return types.MatchResponse{}, err
	}

	catalog, err := s.store.List(ctx, repository.Filter{Type: req.PumpType})
	if err != nil {
		metrics.RecordMatch("error", msSince(start))
		return types.MatchResponse{}, err
	}
	results, err := s.ranker.Rank(&req, catalog)
	if err != nil {
		metrics.RecordMatch("error", msSince(start))
		return types.MatchResponse{}, err
	}

	resp := types.MatchResponse{
		RequestID: uuid.NewString(),
		Total:     len(results),
		Results:   results,
	}
	if limit <= 0 {
		limit = s.maxResults
	}
	if len(resp.Results) > limit {
		resp.Results = resp.Results[:limit]
	}

	s.matches.Add(1)
	metrics.RecordCandidates(len(catalog), len(results))
	if len(results) > 0 {
		metrics.RecordTopScore(results[0].Score)
	}
	metrics.RecordMatch("ok", msSince(start))

	s.logger.Debug(ctx, "match served",
		logger.String("requestID", resp.RequestID),
		logger.Int("evaluated", len(catalog)),
		logger.Int("viable", len(results)),
	)
	return resp, nil
}

// UpsertPump stores spec, assigning an id when it has none, and schedules
// a regeneration of its stored curve.
func (s *Service) UpsertPump(ctx context.Context, spec pump.Spec) (pump.Spec, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.running(); err != nil {
		return pump.Spec{}, err
	}
	saved, err := s.upsert(ctx, spec)
	if err != nil {
		return pump.Spec{}, err
	}
	s.refreshCatalogGauge(ctx)
	return saved, nil
}

func (s *Service) upsert(ctx context.Context, spec pump.Spec) (pump.Spec, error) {
	if spec.ID == "" {
		spec.ID = uuid.NewString()
	}
	if err := s.store.Upsert(ctx, spec); err != nil {
		return pump.Spec{}, err
	}
	// A stored pump without fresh points still gets one on first curve read.
	if err := s.enqueue(ctx, spec.ID); err != nil {
		s.logger.Warn(ctx, "curve regeneration not scheduled",
			logger.String("pump_id", spec.ID),
			logger.Error(err),
		)
	}
	return spec, nil
}

// RegenerateCurve schedules a regeneration of the stored curve of id.
func (s *Service) RegenerateCurve(ctx context.Context, id string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.running(); err != nil {
		return err
	}
	if _, err := s.store.Get(ctx, id); err != nil {
		return err
	}
	return s.enqueue(ctx, id)
}

// enqueue queues a regeneration for id unless one is already pending.
func (s *Service) enqueue(ctx context.Context, id string) error {
	if !s.pending.Claim(ctx, id) {
		return nil
	}
	if err := s.jobs.Enqueue(ctx, queue.Job{PumpID: id}); err != nil {
		s.pending.Release(ctx, id)
		return fmt.Errorf("schedule regeneration of %s: %w", id, err)
	}
	return nil
}

// GetPump returns the stored pump with id.
func (s *Service) GetPump(ctx context.Context, id string) (pump.Spec, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.running(); err != nil {
		return pump.Spec{}, err
	}
	return s.store.Get(ctx, id)
}

// ListPumps returns the catalog, optionally narrowed to pumpType.
func (s *Service) ListPumps(ctx context.Context, pumpType string) ([]pump.Spec, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.running(); err != nil {
		return nil, err
	}
	return s.store.List(ctx, repository.Filter{Type: pumpType})
}

// DeletePump removes a pump and its stored curve.
func (s *Service) DeletePump(ctx context.Context, id string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.running(); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.refreshCatalogGauge(ctx)
	return nil
}

// Curve returns the stored performance curve of id. A pump whose curve was
// never generated is sampled on the spot and the result is stored.
func (s *Service) Curve(ctx context.Context, id string) ([]curve.Point, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.running(); err != nil {
		return nil, err
	}
	spec, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	points, err := s.store.Points(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(points) > 0 {
		return points, nil
	}

	model, err := curve.Build(&spec, s.curveConvention)
	if err != nil {
		return nil, err
	}
	points = curve.Sample(model, s.curveStep)
	if err := s.store.ReplacePoints(ctx, id, points); err != nil {
		return nil, err
	}
	return points, nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats(ctx context.Context) map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]any{
		"started":         s.started,
		"workerCount":     s.workerCount,
		"queueCapacity":   s.queueSize,
		"matchConvention": s.matchConvention.String(),
		"curveConvention": s.curveConvention.String(),
		"matchesServed":   s.matches.Load(),
	}
	if !s.started {
		return stats
	}

	stats["uptimeSeconds"] = time.Since(s.startedAt).Seconds()
	stats["queueLength"] = s.jobs.Len()
	stats["pendingRegenerations"] = s.pending.Size()
	stats["regenerationsProcessed"] = s.pool.Processed()
	stats["regenerationsFailed"] = s.pool.Failed()
	if n, err := s.store.Count(ctx); err == nil {
		stats["totalPumps"] = n
		metrics.UpdateCatalogPumps(n)
	}
	return stats
}

// Started reports whether Start completed.
func (s *Service) Started() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.started
}

func (s *Service) refreshCatalogGauge(ctx context.Context) {
	n, err := s.store.Count(ctx)
	if err != nil {
		s.logger.Warn(ctx, "count pumps", logger.Error(err))
		return
	}
	metrics.UpdateCatalogPumps(n)
}

func msSince(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000
}
