// Package ledger tracks available and reserved capital and open position
// count. All mutation goes through invariant-checked operations; no
// caller touches the fields directly.
package ledger

import (
	"fmt"
	"sync"
	"time"

	"alpha-sniper/internal/errors"
)

// CapitalLedger is the process-wide capital bookkeeping singleton.
// Invariants, enforced after every operation:
//
//	available >= 0
//	available + reserved <= total
//	activePositions >= 0
type CapitalLedger struct {
	mu sync.Mutex

	total               float64
	available           float64
	reserved            float64
	activePositions     int
	maxPositionFraction float64
	riskBudget          float64
}

// Snapshot is a read-only view of the ledger for dashboards and CLIs.
type Snapshot struct {
	TotalCapital        float64
	AvailableCapital    float64
	ReservedCapital     float64
	ActivePositions     int
	MaxPositionFraction float64
	RiskBudget          float64
	Taken               time.Time
}

// New creates a ledger with the full capital available.
func New(totalCapital, maxPositionFraction, riskBudget float64) *CapitalLedger {
	return &CapitalLedger{
		total:               totalCapital,
		available:           totalCapital,
		maxPositionFraction: maxPositionFraction,
		riskBudget:          riskBudget,
	}
}

// ReserveForBuy moves amount from available to reserved capital ahead of
// an execution attempt. Fails with an InsufficientCapital error when the
// amount exceeds availability.
func (l *CapitalLedger) ReserveForBuy(amount float64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if amount <= 0 {
		return errors.NewValidationError("amount", amount, "reserve amount must be positive")
	}
	if amount > l.available {
		return errors.NewCapitalError("reserve", amount, l.available)
	}

	l.available -= amount
	l.reserved += amount
	return l.checkInvariants("reserve")
}

// ReleaseReserve returns a failed reservation to available capital.
func (l *CapitalLedger) ReleaseReserve(amount float64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if amount <= 0 || amount > l.reserved {
		return errors.NewValidationError("amount", amount, "release amount exceeds reservation")
	}

	l.reserved -= amount
	l.available += amount
	return l.checkInvariants("release")
}

// CommitBuy consumes a reservation into an open position. Called exactly
// once per settled buy.
func (l *CapitalLedger) CommitBuy(amount float64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if amount <= 0 || amount > l.reserved {
		return errors.NewCapitalError("commit-buy", amount, l.reserved)
	}

	l.reserved -= amount
	l.activePositions++
	return l.checkInvariants("commit-buy")
}

// CommitSell returns sale proceeds to available capital and closes a
// position. The realized pnl adjusts total capital; the position count
// is floored at zero.
func (l *CapitalLedger) CommitSell(amount, pnl float64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if amount < 0 {
		return errors.NewValidationError("amount", amount, "sell amount must be non-negative")
	}

	l.available += amount
	l.total += pnl
	l.activePositions--
	if l.activePositions < 0 {
		l.activePositions = 0
	}
	return l.checkInvariants("commit-sell")
}

// checkInvariants verifies the ledger invariants; callers hold the lock.
// A violation means a bookkeeping bug, not a recoverable condition.
func (l *CapitalLedger) checkInvariants(op string) error {
	const epsilon = 1e-9
	if l.available < -epsilon {
		return fmt.Errorf("ledger invariant violated after %s: available %.6f < 0", op, l.available)
	}
	if l.available+l.reserved > l.total+epsilon {
		return fmt.Errorf("ledger invariant violated after %s: available %.6f + reserved %.6f > total %.6f",
			op, l.available, l.reserved, l.total)
	}
	if l.activePositions < 0 {
		return fmt.Errorf("ledger invariant violated after %s: active positions %d < 0", op, l.activePositions)
	}
	return nil
}

// ActivePositions returns the open position count.
func (l *CapitalLedger) ActivePositions() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.activePositions
}

// AvailableFraction returns available capital as a fraction of total.
func (l *CapitalLedger) AvailableFraction() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.total == 0 {
		return 0
	}
	return l.available / l.total
}

// MaxPositionFraction returns the configured position size cap.
func (l *CapitalLedger) MaxPositionFraction() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.maxPositionFraction
}

// PositionSize converts a position fraction into a capital amount.
func (l *CapitalLedger) PositionSize(fraction float64) float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.total * fraction
}

// GetSnapshot returns a point-in-time view of the ledger.
func (l *CapitalLedger) GetSnapshot() Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()
	return Snapshot{
		TotalCapital:        l.total,
		AvailableCapital:    l.available,
		ReservedCapital:     l.reserved,
		ActivePositions:     l.activePositions,
		MaxPositionFraction: l.maxPositionFraction,
		RiskBudget:          l.riskBudget,
		Taken:               time.Now(),
	}
}

// Restore replaces the ledger state from a persisted snapshot, after
// checking it satisfies the invariants. Used by the store's load hook.
func (l *CapitalLedger) Restore(s Snapshot) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if s.AvailableCapital < 0 || s.AvailableCapital+s.ReservedCapital > s.TotalCapital || s.ActivePositions < 0 {
		return errors.Wrap(errors.ErrConfigInvalid, "persisted ledger snapshot violates invariants")
	}

	l.total = s.TotalCapital
	l.available = s.AvailableCapital
	l.reserved = s.ReservedCapital
	l.activePositions = s.ActivePositions
	if s.MaxPositionFraction > 0 {
		l.maxPositionFraction = s.MaxPositionFraction
	}
	if s.RiskBudget > 0 {
		l.riskBudget = s.RiskBudget
	}
	return nil
}
