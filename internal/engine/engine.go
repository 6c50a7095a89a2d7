// Package engine implements the adaptive buy/defer/reject decision engine.
package engine

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"alpha-sniper/internal/config"
	"alpha-sniper/internal/ledger"
	"alpha-sniper/internal/models"
)

// DecisionEngine evaluates scored signals through a fixed gate sequence
// and self-tunes its confidence threshold from recent decision history.
//
// For a fixed engine state and input the output is deterministic; the
// state (threshold, history) mutates exactly once per processed signal,
// after the decision has been computed.
type DecisionEngine struct {
	mu sync.Mutex

	cfg          config.EngineConfig
	ledger       *ledger.CapitalLedger
	logger       zerolog.Logger
	threshold    int
	history      *History
	active       bool
	maxPositions int

	// Realized-outcome tallies from settlement feedback. Tracked for
	// introspection; the threshold controller runs on the decision-rate
	// heuristic, not on these.
	wins   int
	losses int
}

// Snapshot is a read-only view of the engine for dashboards and CLIs.
type Snapshot struct {
	Active     bool
	Threshold  int
	HistoryLen int
	BuyRatio   float64
	Wins       int
	Losses     int
	Recent     []models.Decision
}

// New creates a decision engine seeded with the configured defaults.
func New(cfg config.EngineConfig, capital *ledger.CapitalLedger, maxPositions int, logger zerolog.Logger) *DecisionEngine {
	return &DecisionEngine{
		cfg:          cfg,
		ledger:       capital,
		logger:       logger,
		threshold:    cfg.DefaultThreshold,
		history:      NewHistory(cfg.HistorySize),
		active:       true,
		maxPositions: maxPositions,
	}
}

// Evaluate runs the gate sequence for one scored signal and returns the
// decision. Gates short-circuit in fixed order; buy-only fields appear
// only on buy decisions.
func (e *DecisionEngine) Evaluate(signal models.TokenSignal, confidence, riskScore int) models.Decision {
	e.mu.Lock()
	defer e.mu.Unlock()

	decision := e.evaluate(signal, confidence, riskScore)
	e.record(decision)
	return decision
}

func (e *DecisionEngine) evaluate(signal models.TokenSignal, confidence, riskScore int) models.Decision {
	if !e.active {
		return models.NewRejectDecision(signal.Mint, signal.Symbol, confidence, "engine inactive")
	}

	if riskScore > e.cfg.RiskCeiling {
		return models.NewRejectDecision(signal.Mint, signal.Symbol, confidence,
			fmt.Sprintf("risk score too high: %d", riskScore))
	}

	if confidence < e.cfg.MinConfidence {
		return models.NewRejectDecision(signal.Mint, signal.Symbol, confidence,
			fmt.Sprintf("low confidence score: %d", confidence))
	}

	if confidence < e.threshold {
		return models.NewDeferDecision(signal.Mint, signal.Symbol, confidence,
			fmt.Sprintf("confidence %d below threshold %d", confidence, e.threshold))
	}

	if e.ledger.ActivePositions() >= e.maxPositions {
		return models.NewDeferDecision(signal.Mint, signal.Symbol, confidence, "max positions reached")
	}

	plan := e.buildBuyPlan(signal, confidence, riskScore)
	return models.NewBuyDecision(signal.Mint, signal.Symbol, confidence, plan,
		fmt.Sprintf("confidence %d at or above threshold %d", confidence, e.threshold))
}

// buildBuyPlan sizes the position and derives the exit levels.
// Documented deterministic formulas:
//
//	size     = tier(confidence) * (100-risk)/100, capped
//	stopLoss = entry * (1 - risk/1000)
//	take     = entry * (1 + confidence/200)
func (e *DecisionEngine) buildBuyPlan(signal models.TokenSignal, confidence, riskScore int) models.BuyPlan {
	base := baseSizeFraction(confidence)
	size := base * float64(100-riskScore) / 100

	limit := e.ledger.MaxPositionFraction()
	if avail := e.ledger.AvailableFraction(); avail < limit {
		limit = avail
	}
	if size > limit {
		size = limit
	}

	entry := signal.Normalize().Price
	return models.BuyPlan{
		PositionSizeFraction: size,
		EntryPrice:           entry,
		StopLoss:             entry * (1 - float64(riskScore)/1000),
		TakeProfit:           entry * (1 + float64(confidence)/200),
		RiskLevel:            models.RiskLevelFor(riskScore),
	}
}

// baseSizeFraction maps a confidence bracket to its base position size.
func baseSizeFraction(confidence int) float64 {
	switch {
	case confidence >= 90:
		return 0.15
	case confidence >= 80:
		return 0.12
	case confidence >= 70:
		return 0.08
	case confidence >= 60:
		return 0.05
	default:
		return 0.02
	}
}

// record appends the decision to history and runs the threshold
// controller. Callers hold the lock.
func (e *DecisionEngine) record(d models.Decision) {
	e.history.Append(d)

	if e.history.Len() < e.cfg.MinHistory {
		return
	}

	// Proportional control on the trailing buy rate: a high buy ratio
	// lowers the threshold, a low ratio raises it, always bounded.
	ratio := e.history.BuyRatio(e.cfg.WindowSize)
	before := e.threshold
	switch {
	case ratio > e.cfg.BuyRatioUpper:
		e.threshold -= e.cfg.AdjustStep
		if e.threshold < e.cfg.ThresholdFloor {
			e.threshold = e.cfg.ThresholdFloor
		}
	case ratio < e.cfg.BuyRatioLower:
		e.threshold += e.cfg.AdjustStep
		if e.threshold > e.cfg.ThresholdCeiling {
			e.threshold = e.cfg.ThresholdCeiling
		}
	}
	if e.threshold != before {
		e.logger.Debug().
			Float64("buy_ratio", ratio).
			Int("threshold", e.threshold).
			Msg("Adaptive threshold adjusted")
	}
}

// RecordOutcome feeds a realized settlement result back to the engine.
// Tallied for introspection only; see the threshold controller note.
func (e *DecisionEngine) RecordOutcome(pnl float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if pnl >= 0 {
		e.wins++
	} else {
		e.losses++
	}
}

// Activate enables decision making.
func (e *DecisionEngine) Activate() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.active = true
}

// Deactivate halts decision making; signals evaluated while inactive
// are rejected.
func (e *DecisionEngine) Deactivate() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.active = false
}

// Threshold returns the current adaptive threshold.
func (e *DecisionEngine) Threshold() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.threshold
}

// GetSnapshot returns a point-in-time view of the engine with the last
// n decisions.
func (e *DecisionEngine) GetSnapshot(n int) Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Snapshot{
		Active:     e.active,
		Threshold:  e.threshold,
		HistoryLen: e.history.Len(),
		BuyRatio:   e.history.BuyRatio(e.cfg.WindowSize),
		Wins:       e.wins,
		Losses:     e.losses,
		Recent:     e.history.Last(n),
	}
}
