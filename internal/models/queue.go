package models

import (
	"time"

	"alpha-sniper/internal/errors"
)

// Priority is the coarse scheduling class of a queued execution.
type Priority string

const (
	PriorityHigh   Priority = "HIGH"
	PriorityMedium Priority = "MEDIUM"
	PriorityLow    Priority = "LOW"
)

// Rank orders priorities for drain sorting; lower ranks drain first.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 0
	case PriorityMedium:
		return 1
	default:
		return 2
	}
}

// ExecStatus is a queued execution's lifecycle state.
type ExecStatus string

const (
	StatusQueued    ExecStatus = "QUEUED"
	StatusAnalyzing ExecStatus = "ANALYZING"
	StatusExecuting ExecStatus = "EXECUTING"
	StatusCompleted ExecStatus = "COMPLETED"
	StatusRejected  ExecStatus = "REJECTED"
)

// IsTerminal reports whether the status permits no further transitions.
func (s ExecStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusRejected
}

// Settlement carries the details of a completed trade.
type Settlement struct {
	Venue     string
	Price     float64
	SizeSOL   float64
	Reference string
	Time      time.Time
}

// QueuedExecution is a buy decision admitted for execution.
// Status moves QUEUED -> ANALYZING (optional) -> EXECUTING -> {COMPLETED | REJECTED}.
type QueuedExecution struct {
	ID               string
	Mint             string
	Symbol           string
	Decision         Decision
	SignalConfidence int
	Priority         Priority
	DiscoveryTime    time.Time
	ScheduledTime    time.Time
	Status           ExecStatus
	Reasoning        string
	Settlement       *Settlement
	CompletedAt      time.Time
}

var allowedTransitions = map[ExecStatus][]ExecStatus{
	StatusQueued:    {StatusAnalyzing, StatusExecuting},
	StatusAnalyzing: {StatusExecuting},
	StatusExecuting: {StatusCompleted, StatusRejected},
}

// Transition moves the entry to the target status, enforcing the state
// machine. Terminal states permit no exit.
func (q *QueuedExecution) Transition(to ExecStatus) error {
	for _, allowed := range allowedTransitions[q.Status] {
		if allowed == to {
			q.Status = to
			if to.IsTerminal() {
				q.CompletedAt = time.Now()
			}
			return nil
		}
	}
	return errors.Wrapf(errors.ErrInvalidTransition, "%s -> %s for entry %s", q.Status, to, q.ID)
}

// PriorityFor derives the scheduling tier from the token-signal confidence
// and the decision confidence: HIGH requires both at or above 85, MEDIUM
// both at or above 75, anything else drains LOW.
func PriorityFor(signalConfidence, decisionConfidence int) Priority {
	if signalConfidence >= 85 && decisionConfidence >= 85 {
		return PriorityHigh
	}
	if signalConfidence >= 75 && decisionConfidence >= 75 {
		return PriorityMedium
	}
	return PriorityLow
}
