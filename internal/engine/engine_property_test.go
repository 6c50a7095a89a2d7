package engine

import (
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/rs/zerolog"

	"alpha-sniper/internal/config"
	"alpha-sniper/internal/ledger"
	"alpha-sniper/internal/models"
)

// Property: no sequence of evaluations can push the adaptive threshold
// outside its configured bounds, and the decision action always matches
// the gate the inputs fall into.
func TestProperty_ThresholdAlwaysBounded(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	evalGen := gopter.CombineGens(
		gen.IntRange(0, 100), // confidence
		gen.IntRange(0, 100), // risk score
	)

	properties.Property("threshold stays within [floor, ceiling]", prop.ForAll(
		func(evals [][]interface{}) bool {
			cfg := config.Default()
			capital := ledger.New(cfg.Capital.TotalCapital, cfg.Capital.MaxPositionFraction, cfg.Capital.RiskBudget)
			e := New(cfg.Engine, capital, cfg.Capital.MaxActivePositions, zerolog.Nop())

			signal := models.TokenSignal{
				Mint:   "So11111111111111111111111111111111111111112",
				Symbol: "PROP",
				Price:  0.001,
				Source: "test",
			}
			for _, ev := range evals {
				confidence := ev[0].(int)
				riskScore := ev[1].(int)
				d := e.Evaluate(signal, confidence, riskScore)

				switch {
				case riskScore > cfg.Engine.RiskCeiling:
					if d.Action != models.ActionReject {
						return false
					}
				case confidence < cfg.Engine.MinConfidence:
					if d.Action != models.ActionReject {
						return false
					}
				}
				if d.Action == models.ActionBuy && d.Buy == nil {
					return false
				}
				if d.Action != models.ActionBuy && d.Buy != nil {
					return false
				}

				threshold := e.Threshold()
				if threshold < cfg.Engine.ThresholdFloor || threshold > cfg.Engine.ThresholdCeiling {
					return false
				}
			}
			return true
		},
		gen.SliceOf(evalGen),
	))

	properties.TestingRun(t)
}
