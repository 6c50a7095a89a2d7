package ledger

import (
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// Property: no sequence of reserve/release/commit operations, whether
// each succeeds or fails, can violate the ledger invariants.
func TestProperty_InvariantsHoldUnderAnyOpSequence(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	opGen := gopter.CombineGens(
		gen.IntRange(0, 2),      // op selector
		gen.Float64Range(-1, 5), // amount, deliberately includes invalid values
	)

	properties.Property("available >= 0 and available+reserved <= total", prop.ForAll(
		func(ops [][]interface{}) bool {
			l := New(10, 0.15, 0.5)
			for _, op := range ops {
				amount := op[1].(float64)
				switch op[0].(int) {
				case 0:
					l.ReserveForBuy(amount)
				case 1:
					l.ReleaseReserve(amount)
				case 2:
					l.CommitBuy(amount)
				}

				snap := l.GetSnapshot()
				if snap.AvailableCapital < -1e-9 {
					return false
				}
				if snap.AvailableCapital+snap.ReservedCapital > snap.TotalCapital+1e-9 {
					return false
				}
				if snap.ActivePositions < 0 {
					return false
				}
			}
			return true
		},
		gen.SliceOf(opGen),
	))

	properties.TestingRun(t)
}
