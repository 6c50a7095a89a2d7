// Package positions tracks open positions between settlement and exit.
package positions

import (
	"sync"
	"time"
)

// Position is one settled buy awaiting its exit.
type Position struct {
	QueueID    string
	Mint       string
	Symbol     string
	SizeSOL    float64
	EntryPrice float64
	StopLoss   float64
	TakeProfit float64
	OpenedAt   time.Time
}

// Book holds the open positions, keyed by the queue id that opened them.
type Book struct {
	mu   sync.RWMutex
	open map[string]Position
}

// NewBook creates an empty position book.
func NewBook() *Book {
	return &Book{open: make(map[string]Position)}
}

// Open records a position. A second open for the same queue id replaces
// the first; settlement is already idempotent upstream.
func (b *Book) Open(p Position) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.open[p.QueueID] = p
}

// Close removes and returns the position for the queue id.
func (b *Book) Close(queueID string) (Position, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	p, ok := b.open[queueID]
	if ok {
		delete(b.open, queueID)
	}
	return p, ok
}

// Snapshot returns a copy of the open positions.
func (b *Book) Snapshot() []Position {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]Position, 0, len(b.open))
	for _, p := range b.open {
		out = append(out, p)
	}
	return out
}

// Len returns the number of open positions.
func (b *Book) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.open)
}
