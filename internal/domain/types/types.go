// Package types contains response shapes shared by the service and the API.
package types

import (
	"github.com/okian/pumpmatch/internal/domain/curve"
	"github.com/okian/pumpmatch/internal/domain/matching"
)

// MatchResponse is the outcome of one matching run. Total counts every
// viable pump; Results may be truncated by the caller's limit.
type MatchResponse struct {
	RequestID string            `json:"request_id"`
	Total     int               `json:"total"`
	Results   []matching.Result `json:"results"`
}

// CurveResponse carries the stored performance curve of one pump.
type CurveResponse struct {
	PumpID string        `json:"pump_id"`
	Points []curve.Point `json:"points"`
}

// Top returns the best result, if any.
func (m *MatchResponse) Top() (matching.Result, bool) {
	if len(m.Results) == 0 {
		return matching.Result{}, false
	}
	return m.Results[0], true
}
