package api

import (
	"net/http"

	"github.com/okian/pumpmatch/internal/domain/pump"
	"github.com/okian/pumpmatch/internal/domain/types"
)

// PumpsHandler handles catalog and curve requests.
type PumpsHandler struct {
	deps PumpDependencies
}

// NewPumpsHandler creates a new pumps handler.
func NewPumpsHandler(deps PumpDependencies) *PumpsHandler {
	return &PumpsHandler{deps: deps}
}

// HandleList handles GET /pumps?type=T.
func (h *PumpsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_pumps"
	specs, err := h.deps.ListPumps(r.Context(), r.URL.Query().Get("type"))
	if err != nil {
		writeError(w, Wrap(op, err))
		return
	}
	if specs == nil {
		specs = []pump.Spec{}
	}
	writeJSON(w, http.StatusOK, specs)
}

// HandlePut handles PUT /pumps and PUT /pumps/{id}. A path id wins over an
// empty body id and must agree with a non-empty one.
func (h *PumpsHandler) HandlePut(w http.ResponseWriter, r *http.Request) {
	const op = "api.put_pump"

	var spec pump.Spec
	if err := decodeJSON(w, r, &spec); err != nil {
		writeError(w, WrapKind(op, ErrBadRequest, err))
		return
	}
	if id := r.PathValue("id"); id != "" {
		if spec.ID != "" && spec.ID != id {
			writeError(w, NewKind(op, ErrIDMismatch))
			return
		}
		spec.ID = id
	}

	saved, err := h.deps.UpsertPump(r.Context(), spec)
	if err != nil {
		writeError(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

// HandleGet handles GET /pumps/{id}.
func (h *PumpsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_pump"
	spec, err := h.deps.GetPump(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, spec)
}

// HandleDelete handles DELETE /pumps/{id}.
func (h *PumpsHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	const op = "api.delete_pump"
	if err := h.deps.DeletePump(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, Wrap(op, err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleCurve handles GET /pumps/{id}/curve.
func (h *PumpsHandler) HandleCurve(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_curve"
	id := r.PathValue("id")
	points, err := h.deps.Curve(r.Context(), id)
	if err != nil {
		writeError(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, types.CurveResponse{PumpID: id, Points: points})
}

// HandleRegenerate handles POST /pumps/{id}/curve.
func (h *PumpsHandler) HandleRegenerate(w http.ResponseWriter, r *http.Request) {
	const op = "api.regenerate_curve"
	if err := h.deps.RegenerateCurve(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusAccepted, ackResponse{Status: "accepted"})
}
