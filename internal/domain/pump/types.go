// Package pump contains the catalog and requirement records consumed by the
// curve and matching engine.
package pump

import (
	"fmt"
	"math"
	"strings"
)

// Envelope factors applied to rated flow when min_flow or max_flow is absent.
const (
	MinFlowFactor = 0.4
	MaxFlowFactor = 1.8
)

// Spec is a catalog entry's hydraulic identity. Optional numeric fields use
// zero for "absent".
type Spec struct {
	ID   string `json:"id" yaml:"id"`
	Name string `json:"name,omitempty" yaml:"name"`
	Type string `json:"type,omitempty" yaml:"type"`

	RatedFlow float64 `json:"rated_flow" yaml:"rated_flow"` // m3/h
	RatedHead float64 `json:"rated_head" yaml:"rated_head"` // m
	MinFlow   float64 `json:"min_flow,omitempty" yaml:"min_flow"`
	MaxFlow   float64 `json:"max_flow,omitempty" yaml:"max_flow"`
	MaxHead   float64 `json:"max_head,omitempty" yaml:"max_head"`

	RatedPower      float64 `json:"rated_power,omitempty" yaml:"rated_power"`           // kW
	RatedEfficiency float64 `json:"rated_efficiency,omitempty" yaml:"rated_efficiency"` // percent

	Applications []string `json:"applications,omitempty" yaml:"applications"`
	Fluids       []string `json:"fluids,omitempty" yaml:"fluids"`
}

// Validate reports whether s can be turned into a curve.
func (s *Spec) Validate() error {
	switch {
	case !positive(s.RatedFlow):
		return fmt.Errorf("%w: pump %q: rated_flow must be > 0", ErrInvalidPump, s.ID)
	case !positive(s.RatedHead):
		return fmt.Errorf("%w: pump %q: rated_head must be > 0", ErrInvalidPump, s.ID)
	case s.MinFlow < 0 || s.MaxFlow < 0 || s.MaxHead < 0 || s.RatedPower < 0:
		return fmt.Errorf("%w: pump %q: optional values must not be negative", ErrInvalidPump, s.ID)
	case s.RatedEfficiency < 0 || s.RatedEfficiency > 100:
		return fmt.Errorf("%w: pump %q: rated_efficiency must be within 0-100", ErrInvalidPump, s.ID)
	}
	if lo, hi := s.Envelope(); lo >= hi {
		return fmt.Errorf("%w: pump %q: operating envelope %.4g-%.4g is empty", ErrInvalidPump, s.ID, lo, hi)
	}
	return nil
}

// Envelope returns the operating flow range, deriving absent bounds from
// rated flow.
func (s *Spec) Envelope() (minFlow, maxFlow float64) {
	minFlow = s.MinFlow
	if minFlow == 0 {
		minFlow = s.RatedFlow * MinFlowFactor
	}
	maxFlow = s.MaxFlow
	if maxFlow == 0 {
		maxFlow = s.RatedFlow * MaxFlowFactor
	}
	return minFlow, maxFlow
}

// HasApplication reports whether the pump is tagged for application.
func (s *Spec) HasApplication(application string) bool {
	return containsFold(s.Applications, application)
}

// HandlesFluid reports whether the pump is tagged for fluid. Any two plain
// water spellings are considered the same fluid.
func (s *Spec) HandlesFluid(fluid string) bool {
	if containsFold(s.Fluids, fluid) {
		return true
	}
	if !IsPlainWater(fluid) {
		return false
	}
	for _, f := range s.Fluids {
		if IsPlainWater(f) {
			return true
		}
	}
	return false
}

// Requirement is the user's hydraulic ask for one matching run.
type Requirement struct {
	Flow           float64 `json:"required_flow"`
	Head           float64 `json:"required_head"`
	Application    string  `json:"application_type,omitempty"`
	Fluid          string  `json:"fluid_type,omitempty"`
	PumpType       string  `json:"pump_type,omitempty"`
	PreferredPower float64 `json:"preferred_power,omitempty"`
}

// Validate rejects non-positive or non-finite flow and head.
func (r *Requirement) Validate() error {
	switch {
	case !positive(r.Flow):
		return fmt.Errorf("%w: required_flow must be > 0", ErrInvalidRequirement)
	case !positive(r.Head):
		return fmt.Errorf("%w: required_head must be > 0", ErrInvalidRequirement)
	case r.PreferredPower < 0 || math.IsNaN(r.PreferredPower):
		return fmt.Errorf("%w: preferred_power must not be negative", ErrInvalidRequirement)
	}
	return nil
}

var plainWater = map[string]struct{}{
	"water":         {},
	"clean water":   {},
	"clear water":   {},
	"potable water": {},
	"fresh water":   {},
}

// IsPlainWater reports whether fluid names ordinary water.
func IsPlainWater(fluid string) bool {
	f := strings.ToLower(strings.TrimSpace(fluid))
	f = strings.NewReplacer("_", " ", "-", " ").Replace(f)
	_, ok := plainWater[f]
	return ok
}

func positive(v float64) bool {
	return v > 0 && !math.IsInf(v, 0)
}

func containsFold(set []string, v string) bool {
	v = strings.TrimSpace(v)
	if v == "" {
		return false
	}
	for _, s := range set {
		if strings.EqualFold(strings.TrimSpace(s), v) {
			return true
		}
	}
	return false
}
