// Package notify delivers settlement and rejection notifications.
package notify

import (
	"context"

	"alpha-sniper/internal/models"
)

// Notifier receives terminal pipeline events.
type Notifier interface {
	TradeSettled(ctx context.Context, e *models.QueuedExecution)
	TradeRejected(ctx context.Context, e *models.QueuedExecution)
	PipelineError(ctx context.Context, err error, scope string)
}

// Nop is a no-op notifier.
type Nop struct{}

func (Nop) TradeSettled(context.Context, *models.QueuedExecution)  {}
func (Nop) TradeRejected(context.Context, *models.QueuedExecution) {}
func (Nop) PipelineError(context.Context, error, string)           {}
