// Package matching scores catalog pumps against a hydraulic requirement and
// ranks the viable candidates.
package matching

import (
	"math"

	"github.com/okian/pumpmatch/internal/domain/curve"
	"github.com/okian/pumpmatch/internal/domain/pump"
)

// Reasons a candidate is not viable.
const (
	ReasonFlowOutOfRange = "flow_out_of_range"
	ReasonHeadTooLow     = "head_too_low"
)

// Option applies a configuration option to the Scorer.
type Option func(*Scorer)

// WithConvention sets the curve calibration used for scoring.
func WithConvention(c curve.Convention) Option {
	return func(s *Scorer) {
		s.convention = c
	}
}

// WithWeights sets the diagnostic weights. Invalid weights are ignored.
func WithWeights(w Weights) Option {
	return func(s *Scorer) {
		if w.Validate() == nil {
			s.weights = w
		}
	}
}

// Result is the outcome of scoring one pump.
type Result struct {
	PumpID   string `json:"pump_id"`
	PumpName string `json:"pump_name,omitempty"`
	PumpType string `json:"pump_type,omitempty"`

	CurveHead        float64 `json:"curve_head_at_required_flow"`
	HeadRatio        float64 `json:"head_ratio"`
	Score            float64 `json:"match_score"`
	Viable           bool    `json:"viable"`
	Reason           string  `json:"reason,omitempty"`
	ApplicationMatch bool    `json:"application_match"`
	FluidMatch       bool    `json:"fluid_match"`

	Tier       Tier       `json:"recommendation"`
	Diagnostic Diagnostic `json:"diagnostic"`
}

// Scorer computes the primary match score and the diagnostic composite.
// It holds no mutable state and is safe for concurrent use.
type Scorer struct {
	convention curve.Convention
	weights    Weights
}

// NewScorer creates a scorer using the estimate convention and default weights.
func NewScorer(opts ...Option) *Scorer {
	s := &Scorer{
		convention: curve.ConventionEstimate,
		weights:    DefaultWeights(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Convention returns the curve calibration used for scoring.
func (s *Scorer) Convention() curve.Convention { return s.convention }

// Score evaluates spec against req. Invalid input is returned as an error
// wrapping pump.ErrInvalidRequirement or pump.ErrInvalidPump; a valid pump
// that cannot serve req yields a zero-score, non-viable Result.
func (s *Scorer) Score(spec *pump.Spec, req *pump.Requirement) (Result, error) {
	if err := req.Validate(); err != nil {
		return Result{}, err
	}
	m, err := curve.Build(spec, s.convention)
	if err != nil {
		return Result{}, err
	}

	res := Result{
		PumpID:           spec.ID,
		PumpName:         spec.Name,
		PumpType:         spec.Type,
		CurveHead:        m.HeadAt(req.Flow),
		ApplicationMatch: spec.HasApplication(req.Application),
		FluidMatch:       spec.HandlesFluid(req.Fluid),
	}
	res.HeadRatio = res.CurveHead / req.Head
	res.Diagnostic = diagnose(m, req, s.weights)
	res.Tier = res.Diagnostic.Tier

	if !m.InRange(req.Flow) {
		res.Reason = ReasonFlowOutOfRange
		return res, nil
	}
	if res.CurveHead < req.Head {
		res.Reason = ReasonHeadTooLow
		return res, nil
	}

	score := inRangePoints + HeadMarginPoints(res.HeadRatio)
	if res.ApplicationMatch {
		score += applicationBonus
	}
	if res.FluidMatch {
		score += fluidBonus
	}
	res.Score = round1(math.Min(maxScore, score))
	res.Viable = res.Score > 0
	return res, nil
}
