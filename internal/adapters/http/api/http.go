// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/okian/pumpmatch/internal/domain/curve"
	"github.com/okian/pumpmatch/internal/domain/pump"
	"github.com/okian/pumpmatch/internal/domain/types"
)

const maxBodyBytes = 1 << 20

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	MatchDependencies
	PumpDependencies
}

// MatchDependencies runs a ranking.
type MatchDependencies interface {
	Match(ctx context.Context, req pump.Requirement, limit int) (types.MatchResponse, error)
}

// PumpDependencies manages the catalog and its stored curves.
type PumpDependencies interface {
	UpsertPump(ctx context.Context, spec pump.Spec) (pump.Spec, error)
	GetPump(ctx context.Context, id string) (pump.Spec, error)
	ListPumps(ctx context.Context, pumpType string) ([]pump.Spec, error)
	DeletePump(ctx context.Context, id string) error
	Curve(ctx context.Context, id string) ([]curve.Point, error)
	RegenerateCurve(ctx context.Context, id string) error
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler *HealthHandler
	statsHandler  *StatsHandler
	matchHandler  *MatchHandler
	pumpsHandler  *PumpsHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	var ready Readiness
	if r, ok := statsProvider.(Readiness); ok {
		ready = r
	}
	return &Server{
		healthHandler: NewHealthHandler(ready),
		statsHandler:  NewStatsHandler(statsProvider),
		matchHandler:  NewMatchHandler(deps),
		pumpsHandler:  NewPumpsHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("GET /metrics", s.healthHandler.HandleMetrics)
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))

	mux.HandleFunc("POST /match", MetricsMiddleware(s.matchHandler.HandleMatch, "match"))

	mux.HandleFunc("GET /pumps", MetricsMiddleware(s.pumpsHandler.HandleList, "pumps"))
	mux.HandleFunc("PUT /pumps", MetricsMiddleware(s.pumpsHandler.HandlePut, "pumps"))
	mux.HandleFunc("GET /pumps/{id}", MetricsMiddleware(s.pumpsHandler.HandleGet, "pump"))
	mux.HandleFunc("PUT /pumps/{id}", MetricsMiddleware(s.pumpsHandler.HandlePut, "pump"))
	mux.HandleFunc("DELETE /pumps/{id}", MetricsMiddleware(s.pumpsHandler.HandleDelete, "pump"))
	mux.HandleFunc("GET /pumps/{id}/curve", MetricsMiddleware(s.pumpsHandler.HandleCurve, "curve"))
	mux.HandleFunc("POST /pumps/{id}/curve", MetricsMiddleware(s.pumpsHandler.HandleRegenerate, "curve"))
}

type ackResponse struct {
	Status string `json:"status"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	return json.NewDecoder(r.Body).Decode(v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError derives status and code from err's kind.
func writeError(w http.ResponseWriter, err error) {
	status, code := statusFor(err)
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
