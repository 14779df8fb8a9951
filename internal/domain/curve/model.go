// Package curve reconstructs a pump's head-vs-flow curve from nameplate values
// and samples it into discrete performance points.
//
// The curve is the quadratic head(q) = max(0, shutOff - k*q^2), calibrated so
// it passes through (0, shutOff) and (maxFlow, floor). Two calibrations exist
// in the field and are selected explicitly with a Convention.
package curve

import (
	"fmt"
	"math"
	"strings"

	"github.com/okian/pumpmatch/internal/domain/pump"
)

// Envelope and calibration factors applied to nameplate values.
const (
	MinFlowFactor = pump.MinFlowFactor
	MaxFlowFactor = pump.MaxFlowFactor
	ShutOffFactor = 1.25

	// degenerateFlow is the largest maxFlow treated as "no envelope".
	degenerateFlow = 1e-9
)

// Convention selects how shut-off head and the curve floor are derived.
type Convention int

const (
	// ConventionEstimate derives shut-off head as ratedHead*1.25 and anchors
	// the curve at (maxFlow, ratedHead). Used for catalog matching.
	ConventionEstimate Convention = iota
	// ConventionMaxHead uses the nameplate maximum head as shut-off head and
	// lets the curve reach zero at maxFlow. Used for curve regeneration.
	ConventionMaxHead
)

func (c Convention) String() string {
	switch c {
	case ConventionEstimate:
		return "estimate"
	case ConventionMaxHead:
		return "max_head"
	default:
		return fmt.Sprintf("convention(%d)", int(c))
	}
}

// ParseConvention accepts "estimate" or "max_head" (case-insensitive, "-" allowed).
func ParseConvention(s string) (Convention, error) {
	switch strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_") {
	case "estimate", "":
		return ConventionEstimate, nil
	case "max_head", "maxhead":
		return ConventionMaxHead, nil
	default:
		return 0, fmt.Errorf("unknown curve convention %q", s)
	}
}

// Model is a derived, immutable head-vs-flow curve.
type Model struct {
	Convention  Convention
	ShutOffHead float64
	HeadFloor   float64
	MinFlow     float64
	MaxFlow     float64
	K           float64

	// Nameplate values kept for power/efficiency interpolation.
	RatedFlow       float64
	RatedHead       float64
	RatedPower      float64
	RatedEfficiency float64
}

// New calibrates a curve through (0, shutOffHead) and (maxFlow, headFloor).
// A maxFlow at or below zero yields a flat curve.
func New(shutOffHead, headFloor, minFlow, maxFlow float64) Model {
	m := Model{
		ShutOffHead: shutOffHead,
		HeadFloor:   headFloor,
		MinFlow:     minFlow,
		MaxFlow:     maxFlow,
	}
	if maxFlow > degenerateFlow {
		m.K = math.Max(0, (shutOffHead-headFloor)/(maxFlow*maxFlow))
	}
	return m
}

// Build derives the curve for spec under convention c.
func Build(spec *pump.Spec, c Convention) (Model, error) {
	if err := spec.Validate(); err != nil {
		return Model{}, err
	}

	minFlow, maxFlow := spec.Envelope()

	var shutOff, floor float64
	switch c {
	case ConventionEstimate:
		shutOff = spec.RatedHead * ShutOffFactor
		floor = spec.RatedHead
	case ConventionMaxHead:
		shutOff = spec.MaxHead
		if shutOff == 0 {
			shutOff = spec.RatedHead * ShutOffFactor
		}
	default:
		return Model{}, fmt.Errorf("build curve for pump %q: %s", spec.ID, c)
	}

	m := New(shutOff, floor, minFlow, maxFlow)
	m.Convention = c
	m.RatedFlow = spec.RatedFlow
	m.RatedHead = spec.RatedHead
	m.RatedPower = spec.RatedPower
	m.RatedEfficiency = spec.RatedEfficiency
	return m, nil
}

// HeadAt evaluates the curve at flow. Negative flow is treated as zero.
func (m Model) HeadAt(flow float64) float64 {
	if flow < 0 {
		flow = 0
	}
	return math.Max(0, m.ShutOffHead-m.K*flow*flow)
}

// InRange reports whether flow lies within the operating envelope.
func (m Model) InRange(flow float64) bool {
	return flow >= m.MinFlow && flow <= m.MaxFlow
}
