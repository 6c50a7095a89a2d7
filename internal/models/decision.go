package models

import "time"

// Action is the decision variant tag.
type Action string

const (
	ActionBuy    Action = "BUY"
	ActionDefer  Action = "DEFER"
	ActionReject Action = "REJECT"
	ActionSell   Action = "SELL"
	ActionHold   Action = "HOLD"
)

// RiskLevel is the coarse risk bucket attached to a buy decision.
type RiskLevel string

const (
	RiskLow     RiskLevel = "LOW"
	RiskMedium  RiskLevel = "MEDIUM"
	RiskHigh    RiskLevel = "HIGH"
	RiskExtreme RiskLevel = "EXTREME"
)

// BuyPlan carries the fields that only exist on a buy decision.
type BuyPlan struct {
	PositionSizeFraction float64
	EntryPrice           float64
	StopLoss             float64
	TakeProfit           float64
	RiskLevel            RiskLevel
}

// Decision is the engine's verdict for a single signal. Immutable once
// created; Buy is non-nil only when Action is ActionBuy, so buy-only
// fields can never leak onto reject or defer records.
type Decision struct {
	Action     Action
	Mint       string
	Symbol     string
	Confidence int
	Reasoning  string
	Timestamp  time.Time
	Buy        *BuyPlan
}

// NewBuyDecision creates a buy decision with its plan.
func NewBuyDecision(mint, symbol string, confidence int, plan BuyPlan, reasoning string) Decision {
	return Decision{
		Action:     ActionBuy,
		Mint:       mint,
		Symbol:     symbol,
		Confidence: confidence,
		Reasoning:  reasoning,
		Timestamp:  time.Now(),
		Buy:        &plan,
	}
}

// NewDeferDecision creates a defer decision.
func NewDeferDecision(mint, symbol string, confidence int, reasoning string) Decision {
	return Decision{
		Action:     ActionDefer,
		Mint:       mint,
		Symbol:     symbol,
		Confidence: confidence,
		Reasoning:  reasoning,
		Timestamp:  time.Now(),
	}
}

// NewRejectDecision creates a reject decision.
func NewRejectDecision(mint, symbol string, confidence int, reasoning string) Decision {
	return Decision{
		Action:     ActionReject,
		Mint:       mint,
		Symbol:     symbol,
		Confidence: confidence,
		Reasoning:  reasoning,
		Timestamp:  time.Now(),
	}
}

// NewSellDecision creates a sell decision.
func NewSellDecision(mint, symbol string, confidence int, reasoning string) Decision {
	return Decision{
		Action:     ActionSell,
		Mint:       mint,
		Symbol:     symbol,
		Confidence: confidence,
		Reasoning:  reasoning,
		Timestamp:  time.Now(),
	}
}

// NewHoldDecision creates a hold decision.
func NewHoldDecision(mint, symbol string, confidence int, reasoning string) Decision {
	return Decision{
		Action:     ActionHold,
		Mint:       mint,
		Symbol:     symbol,
		Confidence: confidence,
		Reasoning:  reasoning,
		Timestamp:  time.Now(),
	}
}

// IsBuy reports whether the decision is an actionable buy.
func (d Decision) IsBuy() bool {
	return d.Action == ActionBuy && d.Buy != nil
}

// RiskLevelFor buckets a risk score into a coarse risk level.
func RiskLevelFor(riskScore int) RiskLevel {
	switch {
	case riskScore > 80:
		return RiskExtreme
	case riskScore > 60:
		return RiskHigh
	case riskScore > 40:
		return RiskMedium
	default:
		return RiskLow
	}
}
