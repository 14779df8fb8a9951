package api_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/okian/pumpmatch/internal/adapters/http/api"
	"github.com/okian/pumpmatch/internal/adapters/mq/queue"
	"github.com/okian/pumpmatch/internal/adapters/repository"
	service "github.com/okian/pumpmatch/internal/app"
	"github.com/okian/pumpmatch/internal/domain/curve"
	"github.com/okian/pumpmatch/internal/domain/matching"
	"github.com/okian/pumpmatch/internal/domain/pump"
	"github.com/okian/pumpmatch/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

type mockDeps struct {
	mu        sync.Mutex
	pumps     map[string]pump.Spec
	lastLimit int
	regenErr  error
	started   bool
}

func newMockDeps() *mockDeps {
	return &mockDeps{pumps: map[string]pump.Spec{}, started: true}
}

func (m *mockDeps) Match(_ context.Context, req pump.Requirement, limit int) (types.MatchResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastLimit = limit
	if err := req.Validate(); err != nil {
		return types.MatchResponse{}, err
	}
	return types.MatchResponse{
		RequestID: "req-1",
		Total:     1,
		Results:   []matching.Result{{PumpID: "cp-25", Score: 85, Viable: true, Tier: matching.TierRecommended}},
	}, nil
}

func (m *mockDeps) UpsertPump(_ context.Context, spec pump.Spec) (pump.Spec, error) {
	if spec.ID == "" {
		spec.ID = "generated"
	}
	if err := spec.Validate(); err != nil {
		return pump.Spec{}, err
	}
	m.mu.Lock()
	m.pumps[spec.ID] = spec
	m.mu.Unlock()
	return spec, nil
}

func (m *mockDeps) GetPump(_ context.Context, id string) (pump.Spec, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.started {
		return pump.Spec{}, service.ErrNotStarted
	}
	spec, ok := m.pumps[id]
	if !ok {
		return pump.Spec{}, fmt.Errorf("%w: %s", repository.ErrNotFound, id)
	}
	return spec, nil
}

func (m *mockDeps) ListPumps(_ context.Context, pumpType string) ([]pump.Spec, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []pump.Spec
	for _, s := range m.pumps {
		if pumpType == "" || strings.EqualFold(s.Type, pumpType) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *mockDeps) DeletePump(ctx context.Context, id string) error {
	if _, err := m.GetPump(ctx, id); err != nil {
		return err
	}
	m.mu.Lock()
	delete(m.pumps, id)
	m.mu.Unlock()
	return nil
}

func (m *mockDeps) Curve(ctx context.Context, id string) ([]curve.Point, error) {
	spec, err := m.GetPump(ctx, id)
	if err != nil {
		return nil, err
	}
	model, err := curve.Build(&spec, curve.ConventionMaxHead)
	if err != nil {
		return nil, err
	}
	return curve.Sample(model, 5), nil
}

func (m *mockDeps) RegenerateCurve(ctx context.Context, id string) error {
	if _, err := m.GetPump(ctx, id); err != nil {
		return err
	}
	return m.regenErr
}

func (m *mockDeps) GetStats(context.Context) map[string]any {
	return map[string]any{"started": m.started, "totalPumps": len(m.pumps)}
}

func (m *mockDeps) Started() bool { return m.started }

func newMux(deps *mockDeps) *http.ServeMux {
	mux := http.NewServeMux()
	api.NewServer(deps, deps).Register(mux)
	return mux
}

func do(mux http.Handler, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func errorCode(w *httptest.ResponseRecorder) string {
	var resp struct {
		Code string `json:"code"`
	}
	_ = json.NewDecoder(w.Body).Decode(&resp)
	return resp.Code
}

func TestServer_Health(t *testing.T) {
	Convey("Given a registered server", t, func() {
		deps := newMockDeps()
		mux := newMux(deps)

		Convey("When the service is running", func() {
			w := do(mux, http.MethodGet, "/healthz", "")

			Convey("Then healthz reports ok", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldContainSubstring, `"status":"ok"`)
			})
		})

		Convey("When the service has not started", func() {
			deps.started = false
			w := do(mux, http.MethodGet, "/healthz", "")

			Convey("Then healthz reports unavailable", func() {
				So(w.Code, ShouldEqual, http.StatusServiceUnavailable)
			})

			Convey("Then catalog reads report unavailable too", func() {
				w := do(mux, http.MethodGet, "/pumps/cp-25", "")
				So(w.Code, ShouldEqual, http.StatusServiceUnavailable)
				So(w.Body.String(), ShouldContainSubstring, "not_started")
			})
		})

		Convey("When metrics are scraped", func() {
			do(mux, http.MethodGet, "/healthz", "")
			w := do(mux, http.MethodGet, "/metrics", "")

			Convey("Then the Prometheus registry is exposed", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldContainSubstring, "pumpmatch_")
			})
		})

		Convey("When stats are requested", func() {
			w := do(mux, http.MethodGet, "/stats", "")

			Convey("Then service counters are returned as JSON", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var stats map[string]any
				So(json.NewDecoder(w.Body).Decode(&stats), ShouldBeNil)
				So(stats["started"], ShouldEqual, true)
			})
		})

		Convey("When an unknown route is requested", func() {
			w := do(mux, http.MethodGet, "/unknown", "")

			Convey("Then it is not found", func() {
				So(w.Code, ShouldEqual, http.StatusNotFound)
			})
		})
	})
}

func TestServer_Match(t *testing.T) {
	Convey("Given a registered server", t, func() {
		deps := newMockDeps()
		mux := newMux(deps)

		Convey("When a valid requirement is posted", func() {
			w := do(mux, http.MethodPost, "/match?limit=5", `{"required_flow":25,"required_head":30}`)

			Convey("Then ranked results are returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var resp types.MatchResponse
				So(json.NewDecoder(w.Body).Decode(&resp), ShouldBeNil)
				So(resp.RequestID, ShouldEqual, "req-1")
				So(resp.Results[0].PumpID, ShouldEqual, "cp-25")
				So(resp.Results[0].Tier, ShouldEqual, matching.TierRecommended)
				So(deps.lastLimit, ShouldEqual, 5)
			})
		})

		Convey("When the requirement is invalid", func() {
			w := do(mux, http.MethodPost, "/match", `{"required_flow":0,"required_head":30}`)

			Convey("Then it is rejected as unprocessable", func() {
				So(w.Code, ShouldEqual, http.StatusUnprocessableEntity)
				So(errorCode(w), ShouldEqual, "invalid_input")
			})
		})

		Convey("When the body is not JSON", func() {
			w := do(mux, http.MethodPost, "/match", `{nope`)

			Convey("Then it is a bad request", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(errorCode(w), ShouldEqual, "bad_request")
			})
		})

		Convey("When the limit is malformed", func() {
			w := do(mux, http.MethodPost, "/match?limit=-2", `{"required_flow":25,"required_head":30}`)

			Convey("Then it is a bad request", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When match is called with GET", func() {
			w := do(mux, http.MethodGet, "/match", "")

			Convey("Then the method is not allowed", func() {
				So(w.Code, ShouldEqual, http.StatusMethodNotAllowed)
			})
		})
	})
}

func TestServer_Pumps(t *testing.T) {
	Convey("Given a registered server", t, func() {
		deps := newMockDeps()
		mux := newMux(deps)
		body := `{"id":"cp-25","type":"centrifugal","rated_flow":25,"rated_head":32,"max_head":42}`

		Convey("When a pump is put", func() {
			w := do(mux, http.MethodPut, "/pumps", body)
			So(w.Code, ShouldEqual, http.StatusOK)

			Convey("Then it can be fetched", func() {
				w := do(mux, http.MethodGet, "/pumps/cp-25", "")
				So(w.Code, ShouldEqual, http.StatusOK)
				var spec pump.Spec
				So(json.NewDecoder(w.Body).Decode(&spec), ShouldBeNil)
				So(spec.MaxHead, ShouldEqual, 42)
			})

			Convey("Then it is listed and filtered by type", func() {
				w := do(mux, http.MethodGet, "/pumps?type=centrifugal", "")
				So(w.Code, ShouldEqual, http.StatusOK)
				var specs []pump.Spec
				So(json.NewDecoder(w.Body).Decode(&specs), ShouldBeNil)
				So(len(specs), ShouldEqual, 1)

				w = do(mux, http.MethodGet, "/pumps?type=submersible", "")
				So(strings.TrimSpace(w.Body.String()), ShouldEqual, "[]")
			})

			Convey("Then its curve is served", func() {
				w := do(mux, http.MethodGet, "/pumps/cp-25/curve", "")
				So(w.Code, ShouldEqual, http.StatusOK)
				var resp types.CurveResponse
				So(json.NewDecoder(w.Body).Decode(&resp), ShouldBeNil)
				So(resp.PumpID, ShouldEqual, "cp-25")
				So(resp.Points[0].Head, ShouldEqual, 42)
			})

			Convey("Then a regeneration is accepted", func() {
				w := do(mux, http.MethodPost, "/pumps/cp-25/curve", "")
				So(w.Code, ShouldEqual, http.StatusAccepted)
			})

			Convey("Then a regeneration under backpressure is refused", func() {
				deps.regenErr = fmt.Errorf("schedule: %w", queue.ErrFull)
				w := do(mux, http.MethodPost, "/pumps/cp-25/curve", "")
				So(w.Code, ShouldEqual, http.StatusTooManyRequests)
				So(errorCode(w), ShouldEqual, "backpressure")
			})

			Convey("Then it can be deleted once", func() {
				So(do(mux, http.MethodDelete, "/pumps/cp-25", "").Code, ShouldEqual, http.StatusNoContent)
				So(do(mux, http.MethodDelete, "/pumps/cp-25", "").Code, ShouldEqual, http.StatusNotFound)
			})
		})

		Convey("When a pump is put under a path id", func() {
			w := do(mux, http.MethodPut, "/pumps/from-path", `{"rated_flow":10,"rated_head":20}`)

			Convey("Then the path id is used", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldContainSubstring, `"id":"from-path"`)
			})
		})

		Convey("When body and path ids disagree", func() {
			w := do(mux, http.MethodPut, "/pumps/other", body)

			Convey("Then it is a bad request", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When an invalid pump is put", func() {
			w := do(mux, http.MethodPut, "/pumps", `{"id":"x","rated_flow":0,"rated_head":20}`)

			Convey("Then it is unprocessable", func() {
				So(w.Code, ShouldEqual, http.StatusUnprocessableEntity)
			})
		})

		Convey("When an unknown pump is fetched", func() {
			w := do(mux, http.MethodGet, "/pumps/ghost", "")

			Convey("Then it is not found", func() {
				So(w.Code, ShouldEqual, http.StatusNotFound)
				So(errorCode(w), ShouldEqual, "not_found")
			})
		})
	})
}
