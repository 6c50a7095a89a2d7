package notify

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"alpha-sniper/internal/models"
)

// TerminalNotifier prints pipeline events to a writer, stdout by default.
type TerminalNotifier struct {
	mu  sync.Mutex
	out io.Writer
}

// NewTerminalNotifier creates a terminal notifier writing to stdout.
func NewTerminalNotifier() *TerminalNotifier {
	return &TerminalNotifier{out: os.Stdout}
}

// NewTerminalNotifierTo creates a terminal notifier writing to out.
func NewTerminalNotifierTo(out io.Writer) *TerminalNotifier {
	return &TerminalNotifier{out: out}
}

// TradeSettled prints a settlement summary.
func (t *TerminalNotifier) TradeSettled(_ context.Context, e *models.QueuedExecution) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if e.Settlement == nil {
		return
	}
	fmt.Fprintf(t.out, "✅ SETTLED %s (%s) via %s: %.4f SOL @ %.9f [%s]\n",
		e.Symbol, e.Mint, e.Settlement.Venue, e.Settlement.SizeSOL, e.Settlement.Price, e.Settlement.Reference)
}

// TradeRejected prints a rejection summary with its reasoning.
func (t *TerminalNotifier) TradeRejected(_ context.Context, e *models.QueuedExecution) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintf(t.out, "❌ REJECTED %s (%s): %s\n", e.Symbol, e.Mint, e.Reasoning)
}

// PipelineError prints a pipeline error.
func (t *TerminalNotifier) PipelineError(_ context.Context, err error, scope string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintf(t.out, "⚠️  ERROR [%s]: %v\n", scope, err)
}
