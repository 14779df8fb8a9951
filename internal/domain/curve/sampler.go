package curve

import "math"

// DefaultStep is the default flow increment between sampled points (m3/h).
const DefaultStep = 0.1

// Heuristic interpolation shape. Power ramps linearly from powerAtZero to
// powerAtZero+powerSpan times rated power; efficiency is a parabola peaking
// at bepFraction of maxFlow.
const (
	powerAtZero = 0.3
	powerSpan   = 0.9
	bepFraction = 0.6

	flowPrecision = 1e6
)

// Point is one sampled row of a performance curve.
type Point struct {
	Flow       float64  `json:"flow_rate" db:"flow_rate"`
	Head       float64  `json:"head" db:"head"`
	Power      *float64 `json:"power,omitempty" db:"power"`
	Efficiency *float64 `json:"efficiency,omitempty" db:"efficiency"`
}

// Sample walks m from zero to MaxFlow in increments of step. Points whose
// head is not positive are dropped, except the one at zero flow. A
// non-positive step falls back to DefaultStep.
func Sample(m Model, step float64) []Point {
	if step <= 0 || math.IsNaN(step) || math.IsInf(step, 0) {
		step = DefaultStep
	}

	n := 0
	if m.MaxFlow > 0 {
		n = int(math.Floor(m.MaxFlow/step + 1e-9))
	}

	points := make([]Point, 0, n+1)
	for i := 0; i <= n; i++ {
		flow := math.Round(float64(i)*step*flowPrecision) / flowPrecision
		head := m.HeadAt(flow)
		if i > 0 && head <= 0 {
			break
		}
		p := Point{Flow: flow, Head: head}
		if power, ok := m.PowerAt(flow); ok {
			p.Power = &power
		}
		if eff, ok := m.EfficiencyAt(flow); ok {
			p.Efficiency = &eff
		}
		points = append(points, p)
	}
	return points
}

// BEPFlow is the flow of the best-efficiency region.
func (m Model) BEPFlow() float64 {
	return bepFraction * m.MaxFlow
}

// PowerAt interpolates shaft power at flow. ok is false when rated power is unknown.
func (m Model) PowerAt(flow float64) (power float64, ok bool) {
	if m.RatedPower <= 0 {
		return 0, false
	}
	return m.RatedPower * (powerAtZero + powerSpan*m.fraction(flow)), true
}

// EfficiencyAt interpolates efficiency (percent) at flow. ok is false when
// rated efficiency is unknown.
func (m Model) EfficiencyAt(flow float64) (eff float64, ok bool) {
	if m.RatedEfficiency <= 0 {
		return 0, false
	}
	d := (m.fraction(flow) - bepFraction) / bepFraction
	return m.RatedEfficiency * math.Max(0, 1-d*d), true
}

// fraction maps flow onto [0, 1] of the envelope's upper bound.
func (m Model) fraction(flow float64) float64 {
	if m.MaxFlow <= degenerateFlow {
		return 0
	}
	return math.Min(1, math.Max(0, flow/m.MaxFlow))
}
