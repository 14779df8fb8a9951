// Package worker regenerates stored performance curves off the request path.
package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/okian/pumpmatch/internal/adapters/mq/queue"
	"github.com/okian/pumpmatch/internal/adapters/repository"
	"github.com/okian/pumpmatch/internal/domain/curve"
	"github.com/okian/pumpmatch/internal/domain/pump"
	"github.com/okian/pumpmatch/pkg/logger"
	"github.com/okian/pumpmatch/pkg/metrics"
)

const poolShutdownTimeout = 30 * time.Second

// Store is the slice of the repository the workers need.
type Store interface {
	Get(ctx context.Context, id string) (pump.Spec, error)
	ReplacePoints(ctx context.Context, pumpID string, points []curve.Point) error
}

// Queue defines how workers receive jobs.
type Queue interface {
	Dequeue() <-chan queue.Job
}

// Releaser frees a pump's pending marker.
type Releaser interface {
	Release(ctx context.Context, id string)
}

// Worker processes regeneration jobs until stopped.
type Worker interface {
	Run(ctx context.Context)
	Shutdown(ctx context.Context) error
}

// InMemoryWorker samples a pump curve and replaces its stored points.
type InMemoryWorker struct {
	queue   Queue
	store   Store
	pending Releaser
	name    string

	convention curve.Convention
	step       float64

	processed atomic.Int64
	failed    atomic.Int64

	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a worker reading from q and writing to store.
func NewInMemoryWorker(q Queue, store Store, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:      q,
		store:      store,
		name:       "worker",
		convention: curve.ConventionMaxHead,
		step:       curve.DefaultStep,
		shutdown:   make(chan struct{}),
		done:       make(chan struct{}),
		logger:     logger.Get().Named("worker"),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.name != "worker" {
		w.logger = w.logger.Named(w.name)
	}
	return w
}

// Run consumes jobs until ctx is done, Shutdown is called or the queue closes.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	jobs := w.queue.Dequeue()
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case job, ok := <-jobs:
			if !ok {
				return
			}
			if err := w.process(ctx, job); err != nil {
				w.failed.Add(1)
				w.logger.Error(ctx, "curve regeneration failed",
					logger.String("pump_id", job.PumpID),
					logger.Error(err),
				)
				continue
			}
			w.processed.Add(1)
		}
	}
}

// Shutdown stops the worker and waits for the current job.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	close(w.shutdown)
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// Processed returns how many jobs completed, including skipped ones.
func (w *InMemoryWorker) Processed() int64 { return w.processed.Load() }

// Failed returns how many jobs returned an error.
func (w *InMemoryWorker) Failed() int64 { return w.failed.Load() }

func (w *InMemoryWorker) process(ctx context.Context, job queue.Job) error {
	start := time.Now()
	// A write that lands while this job runs must be able to queue a fresh one.
	if w.pending != nil {
		w.pending.Release(ctx, job.PumpID)
	}

	spec, err := w.store.Get(ctx, job.PumpID)
	if errors.Is(err, repository.ErrNotFound) {
		metrics.RecordCurveRegeneration("skipped", 0, elapsedMs(start))
		w.logger.Debug(ctx, "pump removed before regeneration", logger.String("pump_id", job.PumpID))
		return nil
	}
	if err != nil {
		metrics.RecordCurveRegeneration("failed", 0, elapsedMs(start))
		metrics.RecordError("worker", "load")
		return fmt.Errorf("load pump: %w", err)
	}

	model, err := curve.Build(&spec, w.convention)
	if err != nil {
		metrics.RecordCurveRegeneration("failed", 0, elapsedMs(start))
		metrics.RecordError("worker", "build")
		return err
	}
	points := curve.Sample(model, w.step)

	if err := w.store.ReplacePoints(ctx, job.PumpID, points); err != nil {
		status := "failed"
		if errors.Is(err, repository.ErrNotFound) {
			status = "skipped"
			err = nil
		} else {
			metrics.RecordError("worker", "store")
		}
		metrics.RecordCurveRegeneration(status, 0, elapsedMs(start))
		if err != nil {
			return fmt.Errorf("store points: %w", err)
		}
		return nil
	}

	metrics.RecordCurveRegeneration("ok", len(points), elapsedMs(start))
	w.logger.Debug(ctx, "curve regenerated",
		logger.String("pump_id", job.PumpID),
		logger.Int("points", len(points)),
	)
	return nil
}

func elapsedMs(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000
}

// Pool manages multiple workers sharing one queue.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue
	logger  logger.Logger
}

// NewPool creates workerCount workers. Non-positive counts use NumCPU.
// opts apply to every worker; each worker is named by its index.
func NewPool(workerCount int, q Queue, store Store, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU()
	}
	p := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		queue:   q,
		logger:  logger.Get().Named("worker-pool"),
	}
	for i := range p.workers {
		wopts := append([]Option{WithName("worker-" + strconv.Itoa(i))}, opts...)
		p.workers[i] = NewInMemoryWorker(q, store, wopts...)
	}
	metrics.UpdateWorkerCount(workerCount)
	return p
}

// Start launches every worker.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Processed sums completed jobs across workers.
func (p *Pool) Processed() int64 {
	var n int64
	for _, w := range p.workers {
		n += w.Processed()
	}
	return n
}

// Failed sums failed jobs across workers.
func (p *Pool) Failed() int64 {
	var n int64
	for _, w := range p.workers {
		n += w.Failed()
	}
	return n
}

// Shutdown closes the queue, lets workers drain it and waits for them.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	var timedOut bool
	for i, w := range p.workers {
		select {
		case <-w.done:
		case <-shutdownCtx.Done():
			timedOut = true
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
		}
	}
	metrics.UpdateWorkerCount(0)
	if timedOut {
		return fmt.Errorf("worker pool shutdown: %w", shutdownCtx.Err())
	}
	return nil
}
