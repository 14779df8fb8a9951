package matching

import (
	"fmt"
	"math"
	"sort"
)

// Breakpoint is one (x, score) knot of a piecewise-linear table.
type Breakpoint struct {
	X     float64
	Score float64
}

// Table maps a measurement to a 0-100 score by linear interpolation between
// breakpoints sorted by X. Inputs outside the table clamp to the end scores.
type Table []Breakpoint

// Eval scores x.
func (t Table) Eval(x float64) float64 {
	if len(t) == 0 || math.IsNaN(x) {
		return 0
	}
	if x <= t[0].X {
		return t[0].Score
	}
	last := t[len(t)-1]
	if x >= last.X {
		return last.Score
	}
	i := sort.Search(len(t), func(i int) bool { return t[i].X >= x })
	lo, hi := t[i-1], t[i]
	if hi.X == lo.X {
		return hi.Score
	}
	return lo.Score + (hi.Score-lo.Score)*(x-lo.X)/(hi.X-lo.X)
}

// Diagnostic scoring tables. X values are percentages.
var (
	// FlowMarginTable scores (ratedFlow - requiredFlow) / requiredFlow.
	FlowMarginTable = Table{
		{-40, 0}, {-20, 40}, {-10, 70}, {0, 90}, {10, 100}, {20, 95}, {40, 75}, {80, 40}, {150, 0},
	}
	// HeadMarginTable scores (curveHead - requiredHead) / requiredHead.
	HeadMarginTable = Table{
		{-10, 0}, {0, 70}, {5, 100}, {15, 95}, {30, 75}, {50, 50}, {100, 20}, {200, 0},
	}
	// EfficiencyTable scores the interpolated efficiency at the duty point.
	EfficiencyTable = Table{
		{0, 0}, {30, 20}, {50, 50}, {65, 80}, {75, 95}, {85, 100},
	}
	// BEPProximityTable scores |requiredFlow - bepFlow| / bepFlow.
	BEPProximityTable = Table{
		{0, 100}, {10, 95}, {20, 80}, {35, 55}, {50, 30}, {80, 0},
	}
	// PowerMarginTable scores (ratedPower - requiredPower) / requiredPower.
	PowerMarginTable = Table{
		{-20, 0}, {0, 50}, {10, 90}, {20, 100}, {40, 80}, {80, 50}, {150, 20},
	}
)

// Neutral scores for factors whose nameplate input is missing.
const (
	unknownEfficiencyScore = 60
	unknownPowerScore      = 60
)

// Weights is the relative importance of each diagnostic factor. They must
// sum to 100.
type Weights struct {
	FlowMargin   float64 `koanf:"flow_margin"`
	HeadMargin   float64 `koanf:"head_margin"`
	Efficiency   float64 `koanf:"efficiency"`
	BEPProximity float64 `koanf:"bep_proximity"`
	PowerMargin  float64 `koanf:"power_margin"`
}

// DefaultWeights returns the 20/20/30/20/10 split.
func DefaultWeights() Weights {
	return Weights{
		FlowMargin:   20,
		HeadMargin:   20,
		Efficiency:   30,
		BEPProximity: 20,
		PowerMargin:  10,
	}
}

// Sum returns the total weight.
func (w Weights) Sum() float64 {
	return w.FlowMargin + w.HeadMargin + w.Efficiency + w.BEPProximity + w.PowerMargin
}

// Validate checks that weights are non-negative and sum to 100.
func (w Weights) Validate() error {
	for _, v := range []float64{w.FlowMargin, w.HeadMargin, w.Efficiency, w.BEPProximity, w.PowerMargin} {
		if v < 0 {
			return fmt.Errorf("negative weight: %g", v)
		}
	}
	if math.Abs(w.Sum()-100) > 0.001 {
		return fmt.Errorf("weights sum to %.3f, must sum to 100", w.Sum())
	}
	return nil
}

// headBand awards points to curve/required head ratios up to MaxRatio.
type headBand struct {
	MaxRatio float64
	Points   float64
}

// Primary score policy.
const (
	inRangePoints    = 40
	oversizedPoints  = 15
	applicationBonus = 5
	fluidBonus       = 3
	maxScore         = 100
)

// headMarginBands implement "select larger, never smaller": the closer the
// delivered head is to the requirement from above, the higher the score.
var headMarginBands = []headBand{
	{MaxRatio: 1.05, Points: 60},
	{MaxRatio: 1.15, Points: 55},
	{MaxRatio: 1.30, Points: 45},
	{MaxRatio: 1.50, Points: 30},
}

// HeadMarginPoints returns the head-margin share of the primary score.
func HeadMarginPoints(ratio float64) float64 {
	for _, b := range headMarginBands {
		if ratio <= b.MaxRatio {
			return b.Points
		}
	}
	return oversizedPoints
}
