// Package metrics provides Prometheus metrics for the pumpmatch service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every pumpmatch metric.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	// Matching
	matchRequests       *prometheus.CounterVec
	matchLatency        prometheus.Histogram
	candidatesEvaluated prometheus.Counter
	candidatesViable    prometheus.Counter
	topScore            prometheus.Histogram

	// Catalog and curves
	catalogPumps       prometheus.Gauge
	curveRegenerations *prometheus.CounterVec
	curvePointsWritten prometheus.Counter
	curveLatency       prometheus.Histogram
	repositoryLatency  *prometheus.HistogramVec

	// Queue and workers
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	queueEnqueueErrors *prometheus.CounterVec
	workerCount        prometheus.Gauge

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Errors
	errorsByComponent *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
}

var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "pumpmatch",
		subsystem:        "engine",
		histogramBuckets: []float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000},
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
	}, labels)
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
	})
}

func (m *Manager) histogram(name, help string, buckets []float64) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, Buckets: buckets,
	})
}

func (m *Manager) histogramVec(name, help string, labels ...string) *prometheus.HistogramVec {
	return promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, Buckets: m.histogramBuckets,
	}, labels)
}

func (m *Manager) initializeMetrics() {
	m.matchRequests = m.counterVec("match_requests_total", "Matching requests by outcome (ok, invalid, error)", "outcome")
	m.matchLatency = m.histogram("match_latency_milliseconds", "Time to score and rank a catalog", m.histogramBuckets)
	m.candidatesEvaluated = m.counter("candidates_evaluated_total", "Catalog pumps scored against a requirement")
	m.candidatesViable = m.counter("candidates_viable_total", "Scored pumps that passed the range and head gates")
	m.topScore = m.histogram("top_match_score", "Best match score per request", []float64{15, 30, 45, 55, 60, 70, 80, 85, 90, 95, 100})

	m.catalogPumps = m.gauge("catalog_pumps", "Pumps currently in the catalog")
	m.curveRegenerations = m.counterVec("curve_regenerations_total", "Curve regeneration jobs by status", "status")
	m.curvePointsWritten = m.counter("curve_points_written_total", "Performance points persisted by regeneration")
	m.curveLatency = m.histogram("curve_regeneration_latency_milliseconds", "Time to sample and persist one curve", m.histogramBuckets)
	m.repositoryLatency = m.histogramVec("repository_latency_milliseconds", "Repository operation latency", "op")

	m.queueSize = m.gauge("queue_size", "Pending curve regeneration jobs")
	m.queueCapacity = m.gauge("queue_capacity", "Capacity of the regeneration queue")
	m.queueEnqueueErrors = m.counterVec("queue_enqueue_errors_total", "Rejected enqueues by reason", "reason")
	m.workerCount = m.gauge("worker_count", "Curve regeneration workers")

	m.httpRequests = m.counterVec("http_requests_total", "HTTP requests by endpoint and method", "endpoint", "method", "status_code")
	m.httpRequestDuration = m.histogramVec("http_request_duration_milliseconds", "HTTP request duration in milliseconds", "endpoint", "method", "status_code")

	m.errorsByComponent = m.counterVec("errors_total", "Errors by component and kind", "component", "kind")

	m.systemMemoryUsage = m.gauge("system_memory_bytes", "Heap bytes allocated")
	m.systemGoroutineCount = m.gauge("system_goroutines", "Number of goroutines")
}

// RecordMatch records one matching request.
func RecordMatch(outcome string, latencyMs float64) {
	globalManager.matchRequests.WithLabelValues(outcome).Inc()
	globalManager.matchLatency.Observe(latencyMs)
}

// RecordCandidates records how many pumps were scored and how many were viable.
func RecordCandidates(evaluated, viable int) {
	globalManager.candidatesEvaluated.Add(float64(evaluated))
	globalManager.candidatesViable.Add(float64(viable))
}

// RecordTopScore observes the best score of a request.
func RecordTopScore(score float64) {
	globalManager.topScore.Observe(score)
}

// UpdateCatalogPumps sets the catalog size.
func UpdateCatalogPumps(count int) {
	globalManager.catalogPumps.Set(float64(count))
}

// RecordCurveRegeneration records a regeneration job outcome.
func RecordCurveRegeneration(status string, points int, latencyMs float64) {
	globalManager.curveRegenerations.WithLabelValues(status).Inc()
	globalManager.curvePointsWritten.Add(float64(points))
	globalManager.curveLatency.Observe(latencyMs)
}

// RecordRepositoryLatency observes a repository operation.
func RecordRepositoryLatency(op string, latencyMs float64) {
	globalManager.repositoryLatency.WithLabelValues(op).Observe(latencyMs)
}

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// RecordQueueEnqueueError counts a rejected enqueue.
func RecordQueueEnqueueError(reason string) {
	globalManager.queueEnqueueErrors.WithLabelValues(reason).Inc()
}

// UpdateWorkerCount sets the number of workers.
func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

// RecordHTTPRequest records one HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string, durationMs float64) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
}

// RecordError counts an error in component.
func RecordError(component, kind string) {
	globalManager.errorsByComponent.WithLabelValues(component, kind).Inc()
}

// UpdateSystemMemoryUsage sets the heap allocation in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// GetRegistry returns the registry holding pumpmatch metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
