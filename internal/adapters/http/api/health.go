package api

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/okian/pumpmatch/pkg/metrics"
)

// Readiness reports whether the backing service accepts requests.
type Readiness interface {
	Started() bool
}

// HealthHandler serves liveness and Prometheus metrics.
type HealthHandler struct {
	ready   Readiness
	metrics http.Handler
}

// NewHealthHandler creates a new health handler. A nil ready is always healthy.
func NewHealthHandler(ready Readiness) *HealthHandler {
	return &HealthHandler{
		ready:   ready,
		metrics: promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}),
	}
}

// HandleHealth handles GET /healthz requests.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if h.ready != nil && !h.ready.Started() {
		writeJSON(w, http.StatusServiceUnavailable, ackResponse{Status: "starting"})
		return
	}
	writeJSON(w, http.StatusOK, ackResponse{Status: "ok"})
}

// HandleMetrics serves the private Prometheus registry.
func (h *HealthHandler) HandleMetrics(w http.ResponseWriter, r *http.Request) {
	h.metrics.ServeHTTP(w, r)
}
