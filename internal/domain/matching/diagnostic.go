package matching

import (
	"math"

	"github.com/okian/pumpmatch/internal/domain/curve"
	"github.com/okian/pumpmatch/internal/domain/pump"
)

// Hydraulic power estimate: kW = Q[m3/h] * H[m] / (367.2 * efficiency).
const (
	hydraulicConstant = 367.2
	assumedEfficiency = 0.7
	percent           = 100.0
)

// Diagnostic is the reporting-path breakdown of how well a pump fits. It is
// computed independently of the primary match score.
type Diagnostic struct {
	FlowMarginPct   float64 `json:"flow_margin_pct"`
	HeadMarginPct   float64 `json:"head_margin_pct"`
	EfficiencyPct   float64 `json:"efficiency_pct,omitempty"`
	BEPDeviationPct float64 `json:"bep_deviation_pct"`
	PowerMarginPct  float64 `json:"power_margin_pct,omitempty"`

	FlowMarginScore   float64 `json:"flow_margin_score"`
	HeadMarginScore   float64 `json:"head_margin_score"`
	EfficiencyScore   float64 `json:"efficiency_score"`
	BEPProximityScore float64 `json:"bep_proximity_score"`
	PowerMarginScore  float64 `json:"power_margin_score"`

	Composite float64 `json:"composite"`
	Tier      Tier    `json:"tier"`
}

// diagnose scores m against req with weights w.
func diagnose(m curve.Model, req *pump.Requirement, w Weights) Diagnostic {
	var d Diagnostic

	d.FlowMarginPct = (m.RatedFlow - req.Flow) / req.Flow * percent
	d.FlowMarginScore = FlowMarginTable.Eval(d.FlowMarginPct)

	d.HeadMarginPct = (m.HeadAt(req.Flow) - req.Head) / req.Head * percent
	d.HeadMarginScore = HeadMarginTable.Eval(d.HeadMarginPct)

	eff, hasEff := m.EfficiencyAt(req.Flow)
	if hasEff {
		d.EfficiencyPct = eff
		d.EfficiencyScore = EfficiencyTable.Eval(eff)
	} else {
		d.EfficiencyScore = unknownEfficiencyScore
	}

	if bep := m.BEPFlow(); bep > 0 {
		d.BEPDeviationPct = math.Abs(req.Flow-bep) / bep * percent
	}
	d.BEPProximityScore = BEPProximityTable.Eval(d.BEPDeviationPct)

	if m.RatedPower > 0 {
		required := requiredPower(req, eff, hasEff)
		d.PowerMarginPct = (m.RatedPower - required) / required * percent
		d.PowerMarginScore = PowerMarginTable.Eval(d.PowerMarginPct)
	} else {
		d.PowerMarginScore = unknownPowerScore
	}

	total := w.Sum()
	if total > 0 {
		composite := (d.FlowMarginScore*w.FlowMargin +
			d.HeadMarginScore*w.HeadMargin +
			d.EfficiencyScore*w.Efficiency +
			d.BEPProximityScore*w.BEPProximity +
			d.PowerMarginScore*w.PowerMargin) / total
		d.Composite = round1(composite)
	}
	d.Tier = TierFor(d.Composite)
	return d
}

// requiredPower is the caller's preferred power, or the hydraulic power at
// the duty point when none was given.
func requiredPower(req *pump.Requirement, eff float64, hasEff bool) float64 {
	if req.PreferredPower > 0 {
		return req.PreferredPower
	}
	eta := assumedEfficiency
	if hasEff && eff > 0 {
		eta = eff / percent
	}
	return req.Flow * req.Head / (hydraulicConstant * eta)
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
