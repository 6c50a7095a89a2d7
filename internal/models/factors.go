package models

// Factor identifies a named confidence sub-score.
type Factor string

const (
	FactorTechnical Factor = "technical"
	FactorVolume    Factor = "volume"
	FactorLiquidity Factor = "liquidity"
	FactorMarket    Factor = "market"
	FactorRisk      Factor = "risk"
	FactorTiming    Factor = "timing"
	FactorPattern   Factor = "pattern"
	FactorSentiment Factor = "sentiment"
)

// ConfidenceFactors maps each computed factor to its sub-score in [0,100].
// A factor that could not be derived from the signal is simply absent;
// the scorer normalizes by the weights actually present.
type ConfidenceFactors map[Factor]float64

// Set clamps value to [0,100] and records it under the given factor.
func (f ConfidenceFactors) Set(factor Factor, value float64) {
	if value < 0 {
		value = 0
	}
	if value > 100 {
		value = 100
	}
	f[factor] = value
}
