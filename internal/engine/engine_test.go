package engine

import (
	"math"
	"testing"

	"github.com/rs/zerolog"

	"alpha-sniper/internal/config"
	"alpha-sniper/internal/ledger"
	"alpha-sniper/internal/models"
)

const testMint = "So11111111111111111111111111111111111111112"

func testSignal(price float64) models.TokenSignal {
	return models.TokenSignal{
		Mint:   testMint,
		Symbol: "ALPHA",
		Price:  price,
		Source: "test",
	}
}

func newTestEngine() (*DecisionEngine, *ledger.CapitalLedger) {
	cfg := config.Default()
	capital := ledger.New(cfg.Capital.TotalCapital, cfg.Capital.MaxPositionFraction, cfg.Capital.RiskBudget)
	return New(cfg.Engine, capital, cfg.Capital.MaxActivePositions, zerolog.Nop()), capital
}

func TestEvaluateBuy(t *testing.T) {
	e, _ := newTestEngine()

	d := e.Evaluate(testSignal(0.0004), 82, 40)
	if d.Action != models.ActionBuy {
		t.Fatalf("action = %s, want BUY (%s)", d.Action, d.Reasoning)
	}
	if d.Buy == nil {
		t.Fatal("buy decision missing plan")
	}

	// tier(82) = 0.12, scaled by (100-40)/100
	wantSize := 0.12 * 0.6
	if math.Abs(d.Buy.PositionSizeFraction-wantSize) > 1e-9 {
		t.Errorf("size = %f, want %f", d.Buy.PositionSizeFraction, wantSize)
	}
	if math.Abs(d.Buy.StopLoss-0.0004*0.96) > 1e-12 {
		t.Errorf("stop loss = %f, want %f", d.Buy.StopLoss, 0.0004*0.96)
	}
	if math.Abs(d.Buy.TakeProfit-0.0004*1.41) > 1e-12 {
		t.Errorf("take profit = %f, want %f", d.Buy.TakeProfit, 0.0004*1.41)
	}
	if d.Buy.RiskLevel != models.RiskLow {
		t.Errorf("risk level = %s, want LOW", d.Buy.RiskLevel)
	}
}

func TestEvaluateRejectLowConfidence(t *testing.T) {
	e, _ := newTestEngine()

	d := e.Evaluate(testSignal(1), 48, 30)
	if d.Action != models.ActionReject {
		t.Fatalf("action = %s, want REJECT", d.Action)
	}
	if d.Reasoning != "low confidence score: 48" {
		t.Errorf("reasoning = %q", d.Reasoning)
	}
	if d.Buy != nil {
		t.Error("non-buy decision carries a buy plan")
	}
}

func TestEvaluateDeferBelowThreshold(t *testing.T) {
	e, _ := newTestEngine()

	d := e.Evaluate(testSignal(1), 60, 30)
	if d.Action != models.ActionDefer {
		t.Fatalf("action = %s, want DEFER", d.Action)
	}
	if d.Reasoning != "confidence 60 below threshold 75" {
		t.Errorf("reasoning = %q", d.Reasoning)
	}
}

func TestEvaluateRejectHighRisk(t *testing.T) {
	e, _ := newTestEngine()

	// Risk gate fires before the confidence gates.
	d := e.Evaluate(testSignal(1), 95, 85)
	if d.Action != models.ActionReject {
		t.Fatalf("action = %s, want REJECT", d.Action)
	}
	if d.Reasoning != "risk score too high: 85" {
		t.Errorf("reasoning = %q", d.Reasoning)
	}
}

func TestEvaluateInactive(t *testing.T) {
	e, _ := newTestEngine()
	e.Deactivate()

	d := e.Evaluate(testSignal(1), 95, 10)
	if d.Action != models.ActionReject {
		t.Fatalf("action = %s, want REJECT", d.Action)
	}
	if d.Reasoning != "engine inactive" {
		t.Errorf("reasoning = %q", d.Reasoning)
	}

	e.Activate()
	d = e.Evaluate(testSignal(1), 95, 10)
	if d.Action != models.ActionBuy {
		t.Errorf("action after reactivation = %s, want BUY", d.Action)
	}
}

func TestEvaluateDeferMaxPositions(t *testing.T) {
	e, capital := newTestEngine()

	for i := 0; i < 5; i++ {
		if err := capital.ReserveForBuy(0.1); err != nil {
			t.Fatal(err)
		}
		if err := capital.CommitBuy(0.1); err != nil {
			t.Fatal(err)
		}
	}

	d := e.Evaluate(testSignal(1), 95, 10)
	if d.Action != models.ActionDefer {
		t.Fatalf("action = %s, want DEFER", d.Action)
	}
	if d.Reasoning != "max positions reached" {
		t.Errorf("reasoning = %q", d.Reasoning)
	}
}

func TestSizeCappedByAvailableCapital(t *testing.T) {
	e, capital := newTestEngine()

	// Commit most of the capital so the available fraction binds first.
	if err := capital.ReserveForBuy(9.5); err != nil {
		t.Fatal(err)
	}
	if err := capital.CommitBuy(9.5); err != nil {
		t.Fatal(err)
	}

	d := e.Evaluate(testSignal(1), 95, 0)
	if d.Action != models.ActionBuy {
		t.Fatalf("action = %s, want BUY (%s)", d.Action, d.Reasoning)
	}
	if d.Buy.PositionSizeFraction > capital.AvailableFraction()+1e-9 {
		t.Errorf("size %f exceeds available fraction %f",
			d.Buy.PositionSizeFraction, capital.AvailableFraction())
	}
}

func TestBaseSizeFractionTiers(t *testing.T) {
	cases := []struct {
		confidence int
		want       float64
	}{
		{95, 0.15}, {90, 0.15},
		{89, 0.12}, {80, 0.12},
		{79, 0.08}, {70, 0.08},
		{69, 0.05}, {60, 0.05},
		{59, 0.02}, {0, 0.02},
	}
	for _, tc := range cases {
		if got := baseSizeFraction(tc.confidence); got != tc.want {
			t.Errorf("baseSizeFraction(%d) = %f, want %f", tc.confidence, got, tc.want)
		}
	}
}

func TestThresholdDecreasesOnHighBuyRatio(t *testing.T) {
	e, _ := newTestEngine()

	// Every decision a buy: once history has min entries the buy ratio
	// is 1.0 and each further evaluation steps the threshold down.
	for i := 0; i < 10; i++ {
		e.Evaluate(testSignal(1), 95, 10)
	}
	if got := e.Threshold(); got != 73 {
		t.Errorf("threshold after 10 buys = %d, want 73", got)
	}

	for i := 0; i < 50; i++ {
		e.Evaluate(testSignal(1), 95, 10)
	}
	if got := e.Threshold(); got != 65 {
		t.Errorf("threshold should floor at 65, got %d", got)
	}
}

func TestThresholdIncreasesOnLowBuyRatio(t *testing.T) {
	e, _ := newTestEngine()

	for i := 0; i < 10; i++ {
		e.Evaluate(testSignal(1), 55, 10) // all rejects
	}
	if got := e.Threshold(); got != 77 {
		t.Errorf("threshold after 10 rejects = %d, want 77", got)
	}

	for i := 0; i < 50; i++ {
		e.Evaluate(testSignal(1), 55, 10)
	}
	if got := e.Threshold(); got != 85 {
		t.Errorf("threshold should cap at 85, got %d", got)
	}
}

func TestThresholdStableBeforeMinHistory(t *testing.T) {
	e, _ := newTestEngine()

	for i := 0; i < 9; i++ {
		e.Evaluate(testSignal(1), 95, 10)
	}
	if got := e.Threshold(); got != 75 {
		t.Errorf("threshold moved before min history: %d", got)
	}
}

func TestSnapshot(t *testing.T) {
	e, _ := newTestEngine()

	e.Evaluate(testSignal(1), 95, 10)
	e.Evaluate(testSignal(1), 40, 10)
	e.RecordOutcome(0.5)
	e.RecordOutcome(-0.2)

	snap := e.GetSnapshot(5)
	if !snap.Active {
		t.Error("snapshot reports inactive engine")
	}
	if snap.HistoryLen != 2 {
		t.Errorf("history len = %d, want 2", snap.HistoryLen)
	}
	if snap.Wins != 1 || snap.Losses != 1 {
		t.Errorf("wins/losses = %d/%d, want 1/1", snap.Wins, snap.Losses)
	}
	if len(snap.Recent) != 2 {
		t.Errorf("recent = %d decisions, want 2", len(snap.Recent))
	}
}
