package scoring

import (
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"alpha-sniper/internal/models"
)

// Property: for any signal, the composite confidence score and the risk
// score stay within [0,100], and scoring the same signal twice yields
// the same result.
func TestProperty_ScoreAlwaysBounded(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)
	scorer := NewConfidenceScorer()

	signalGen := gopter.CombineGens(
		gen.Float64Range(0, 10),            // price
		gen.Float64Range(0, 1e9),           // volume
		gen.Float64Range(0, 1e9),           // market cap
		gen.Float64Range(0, 1e8),           // liquidity
		gen.IntRange(0, 100000),            // holders
		gen.Float64Range(-100, 1000),       // 1h change
		gen.Float64Range(-100, 1000),       // 24h change
		gen.Float64Range(-100, 1000),       // 7d change
	).Map(func(values []interface{}) models.TokenSignal {
		return models.TokenSignal{
			Mint:           testMint,
			Symbol:         "PROP",
			Price:          values[0].(float64),
			Volume24h:      values[1].(float64),
			MarketCap:      values[2].(float64),
			Liquidity:      values[3].(float64),
			Holders:        values[4].(int),
			PriceChange1h:  values[5].(float64),
			PriceChange24h: values[6].(float64),
			PriceChange7d:  values[7].(float64),
			Source:         "test",
		}
	})

	properties.Property("composite score within [0,100] and deterministic", prop.ForAll(
		func(signal models.TokenSignal) bool {
			first, _ := scorer.Score(signal, signal.Tags)
			second, _ := scorer.Score(signal, signal.Tags)
			return first >= 0 && first <= 100 && first == second
		},
		signalGen,
	))

	properties.Property("risk score within [0,100]", prop.ForAll(
		func(signal models.TokenSignal) bool {
			risk := RiskScore(signal)
			return risk >= 0 && risk <= 100
		},
		signalGen,
	))

	properties.TestingRun(t)
}
