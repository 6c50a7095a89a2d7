// Package scanner discovers candidate tokens from market data sources.
package scanner

import (
	"context"

	"alpha-sniper/internal/models"
)

// Scanner produces a batch of token signals per invocation. Implementations
// normalize raw source data and stamp Source before returning.
type Scanner interface {
	Name() string
	Scan(ctx context.Context) ([]models.TokenSignal, error)
}

// Stream is a push-based signal source. Signals arrive on the handler
// until Disconnect or context cancellation.
type Stream interface {
	Connect(ctx context.Context) error
	Disconnect() error
	OnSignal(handler func(models.TokenSignal))
	OnError(handler func(error))
	IsConnected() bool
}
