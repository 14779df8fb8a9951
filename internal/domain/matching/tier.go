package matching

// Tier is the recommendation derived from the diagnostic composite.
type Tier string

// Recommendation tiers, best first.
const (
	TierBestChoice  Tier = "best_choice"
	TierRecommended Tier = "recommended"
	TierAlternative Tier = "alternative"
	TierCaution     Tier = "caution"
)

// TierFor maps a diagnostic composite to its tier.
func TierFor(composite float64) Tier {
	switch {
	case composite >= 90:
		return TierBestChoice
	case composite >= 80:
		return TierRecommended
	case composite >= 65:
		return TierAlternative
	default:
		return TierCaution
	}
}

// Label returns the human-readable tier name.
func (t Tier) Label() string {
	switch t {
	case TierBestChoice:
		return "best choice"
	case TierRecommended:
		return "recommended"
	case TierAlternative:
		return "alternative"
	default:
		return "caution"
	}
}
