// Package scoring derives multi-factor confidence scores from token signals.
package scoring

import (
	"math"

	"alpha-sniper/internal/models"
)

// FactorWeights defines the weight of each factor in the composite score.
type FactorWeights struct {
	Technical float64
	Volume    float64
	Liquidity float64
	Market    float64
	Risk      float64
	Timing    float64
	Pattern   float64
	Sentiment float64
}

// DefaultWeights returns the default factor weights.
func DefaultWeights() FactorWeights {
	return FactorWeights{
		Technical: 0.20,
		Volume:    0.18,
		Liquidity: 0.15,
		Market:    0.12,
		Risk:      0.15,
		Timing:    0.10,
		Pattern:   0.05,
		Sentiment: 0.05,
	}
}

// ConfidenceScorer combines per-factor sub-scores into a composite
// confidence score. It is a pure function of its input: identical
// signal and tags always produce identical output.
type ConfidenceScorer struct {
	weights FactorWeights
}

// NewConfidenceScorer creates a scorer with the default weights.
func NewConfidenceScorer() *ConfidenceScorer {
	return &ConfidenceScorer{weights: DefaultWeights()}
}

// NewConfidenceScorerWithWeights creates a scorer with custom weights.
func NewConfidenceScorerWithWeights(weights FactorWeights) *ConfidenceScorer {
	return &ConfidenceScorer{weights: weights}
}

// Score calculates the composite confidence score for a signal.
// Returns an integer in [0,100] and the factor breakdown, each factor
// clamped to [0,100]. The score is normalized by the sum of weights for
// the factors actually present, so a missing factor never drags the
// composite toward zero.
func (s *ConfidenceScorer) Score(signal models.TokenSignal, tags []string) (int, models.ConfidenceFactors) {
	signal = signal.Normalize()

	factors := make(models.ConfidenceFactors)
	factors.Set(models.FactorTechnical, technicalScore(signal))
	factors.Set(models.FactorVolume, volumeScore(signal))
	factors.Set(models.FactorLiquidity, liquidityScore(signal))
	factors.Set(models.FactorMarket, marketScore(signal))
	factors.Set(models.FactorRisk, float64(100-RiskScore(signal)))
	factors.Set(models.FactorTiming, timingScore(signal))
	factors.Set(models.FactorPattern, patternScore(signal))
	if score, ok := sentimentScore(tags); ok {
		factors.Set(models.FactorSentiment, score)
	}

	var totalScore, totalWeight float64
	for factor, value := range factors {
		w := s.weightFor(factor)
		totalScore += value * w
		totalWeight += w
	}

	var final float64
	if totalWeight > 0 {
		final = totalScore / totalWeight
	}

	return int(math.Round(clamp(final, 0, 100))), factors
}

func (s *ConfidenceScorer) weightFor(factor models.Factor) float64 {
	switch factor {
	case models.FactorTechnical:
		return s.weights.Technical
	case models.FactorVolume:
		return s.weights.Volume
	case models.FactorLiquidity:
		return s.weights.Liquidity
	case models.FactorMarket:
		return s.weights.Market
	case models.FactorRisk:
		return s.weights.Risk
	case models.FactorTiming:
		return s.weights.Timing
	case models.FactorPattern:
		return s.weights.Pattern
	case models.FactorSentiment:
		return s.weights.Sentiment
	default:
		return 0
	}
}

// clamp restricts a value to the given range.
func clamp(value, minVal, maxVal float64) float64 {
	if value < minVal {
		return minVal
	}
	if value > maxVal {
		return maxVal
	}
	return value
}
