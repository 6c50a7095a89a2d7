// Package store provides data persistence implementations.
package store

import (
	"context"

	"alpha-sniper/internal/ledger"
	"alpha-sniper/internal/models"
)

// DecisionStore persists the engine's decision log.
type DecisionStore interface {
	SaveDecision(ctx context.Context, d models.Decision) error
	RecentDecisions(ctx context.Context, limit int) ([]models.Decision, error)
}

// TradeStore persists settled and rejected executions.
type TradeStore interface {
	SaveExecution(ctx context.Context, e *models.QueuedExecution) error
}

// LedgerStore persists capital ledger snapshots; the pipeline uses it as
// the ledger's load/save hook.
type LedgerStore interface {
	SaveLedgerSnapshot(ctx context.Context, s ledger.Snapshot) error
	LoadLedgerSnapshot(ctx context.Context) (ledger.Snapshot, bool, error)
}

// Store is the combined persistence surface.
type Store interface {
	DecisionStore
	TradeStore
	LedgerStore
	Close() error
}
