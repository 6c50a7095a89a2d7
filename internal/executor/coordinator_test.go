package executor

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alpha-sniper/internal/config"
	"alpha-sniper/internal/dex"
	"alpha-sniper/internal/errors"
	"alpha-sniper/internal/ledger"
	"alpha-sniper/internal/models"
	"alpha-sniper/internal/positions"
)

const testMint = "So11111111111111111111111111111111111111112"

func testExecutorConfig() config.ExecutorConfig {
	cfg := config.Default().Executor
	cfg.BackoffBase = time.Millisecond
	cfg.BackoffMax = 5 * time.Millisecond
	return cfg
}

func executingEntry(fraction float64) *models.QueuedExecution {
	decision := models.NewBuyDecision(testMint, "ALPHA", 82, models.BuyPlan{
		PositionSizeFraction: fraction,
		EntryPrice:           0.0004,
		StopLoss:             0.0004 * 0.96,
		TakeProfit:           0.0004 * 1.41,
		RiskLevel:            models.RiskLow,
	}, "test buy")

	return &models.QueuedExecution{
		ID:               "entry-1",
		Mint:             testMint,
		Symbol:           "ALPHA",
		Decision:         decision,
		SignalConfidence: 82,
		Priority:         models.PriorityMedium,
		Status:           models.StatusExecuting,
	}
}

func newTestCoordinator(venues ...dex.Venue) (*Coordinator, *ledger.CapitalLedger) {
	capital := ledger.New(10, 0.15, 0.5)
	c := New(testExecutorConfig(), venues, dex.PaperSigner{}, capital,
		250, zerolog.Nop(), Options{Positions: positions.NewBook()})
	return c, capital
}

// flakyVenue fails its quote step a set number of times before
// delegating to an inner venue.
type flakyVenue struct {
	*dex.PaperVenue
	failures    int
	rateLimited bool
	calls       int
}

func (f *flakyVenue) Quote(ctx context.Context, req dex.QuoteRequest) (*dex.Quote, error) {
	f.calls++
	if f.calls <= f.failures {
		return nil, errors.NewEndpointError(f.Name(), "quote", f.rateLimited, fmt.Errorf("injected failure %d", f.calls))
	}
	return f.PaperVenue.Quote(ctx, req)
}

func TestExecuteSuccess(t *testing.T) {
	venue := dex.NewPaperVenue("paper")
	c, capital := newTestCoordinator(venue)
	entry := executingEntry(0.072)

	require.NoError(t, c.Execute(context.Background(), entry))

	assert.Equal(t, models.StatusCompleted, entry.Status)
	require.NotNil(t, entry.Settlement)
	assert.Equal(t, "paper", entry.Settlement.Venue)
	assert.NotEmpty(t, entry.Settlement.Reference)

	snap := capital.GetSnapshot()
	assert.InDelta(t, 10-0.72, snap.AvailableCapital, 1e-9)
	assert.InDelta(t, 0, snap.ReservedCapital, 1e-9)
	assert.Equal(t, 1, snap.ActivePositions)
	assert.Equal(t, 1, venue.Submissions())
}

func TestExecuteAllVenuesFailLeavesLedgerUntouched(t *testing.T) {
	first := dex.NewPaperVenue("jupiter")
	first.FailWith("quote", fmt.Errorf("quote endpoint down"))
	second := dex.NewPaperVenue("raydium")
	second.FailWith("swap", fmt.Errorf("swap endpoint down"))

	c, capital := newTestCoordinator(first, second)
	before := capital.GetSnapshot()
	entry := executingEntry(0.072)

	err := c.Execute(context.Background(), entry)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrRetriesExhausted))

	var execErr *errors.ExecutionError
	require.True(t, errors.As(err, &execErr))
	assert.Equal(t, []string{"jupiter", "raydium"}, execErr.Venues)

	assert.Equal(t, models.StatusRejected, entry.Status)
	assert.Contains(t, entry.Reasoning, "jupiter")
	assert.Contains(t, entry.Reasoning, "raydium")
	assert.Nil(t, entry.Settlement)

	after := capital.GetSnapshot()
	assert.Equal(t, before.AvailableCapital, after.AvailableCapital)
	assert.Equal(t, before.ReservedCapital, after.ReservedCapital)
	assert.Equal(t, before.ActivePositions, after.ActivePositions)
}

func TestExecuteRateLimitRetriesSameVenue(t *testing.T) {
	venue := &flakyVenue{PaperVenue: dex.NewPaperVenue("jupiter"), failures: 2, rateLimited: true}
	c, capital := newTestCoordinator(venue)
	entry := executingEntry(0.072)

	require.NoError(t, c.Execute(context.Background(), entry))
	assert.Equal(t, models.StatusCompleted, entry.Status)
	assert.Equal(t, 3, venue.calls)
	assert.Equal(t, 1, capital.ActivePositions())
}

func TestExecuteNonRateLimitAdvancesImmediately(t *testing.T) {
	failing := &flakyVenue{PaperVenue: dex.NewPaperVenue("jupiter"), failures: 10, rateLimited: false}
	fallback := dex.NewPaperVenue("raydium")
	c, _ := newTestCoordinator(failing, fallback)
	entry := executingEntry(0.072)

	require.NoError(t, c.Execute(context.Background(), entry))
	assert.Equal(t, models.StatusCompleted, entry.Status)
	assert.Equal(t, "raydium", entry.Settlement.Venue)
	// One attempt on the failing venue, no in-venue retries.
	assert.Equal(t, 1, failing.calls)
}

func TestExecuteRateLimitBoundedPerVenue(t *testing.T) {
	limited := &flakyVenue{PaperVenue: dex.NewPaperVenue("jupiter"), failures: 10, rateLimited: true}
	fallback := dex.NewPaperVenue("raydium")
	c, _ := newTestCoordinator(limited, fallback)
	entry := executingEntry(0.072)

	require.NoError(t, c.Execute(context.Background(), entry))
	assert.Equal(t, "raydium", entry.Settlement.Venue)
	assert.Equal(t, testExecutorConfig().MaxAttemptsPerVenue, limited.calls)
}

func TestExecuteDuplicateInflight(t *testing.T) {
	c, _ := newTestCoordinator(dex.NewPaperVenue("paper"))
	entry := executingEntry(0.072)

	require.NoError(t, c.acquire(entry.ID))
	err := c.Execute(context.Background(), entry)
	assert.True(t, errors.Is(err, errors.ErrDuplicateExecution))
	assert.Equal(t, models.StatusExecuting, entry.Status)
}

func TestExecuteRejectsNonExecutingEntry(t *testing.T) {
	c, capital := newTestCoordinator(dex.NewPaperVenue("paper"))
	entry := executingEntry(0.072)
	entry.Status = models.StatusQueued

	err := c.Execute(context.Background(), entry)
	assert.True(t, errors.Is(err, errors.ErrInvalidTransition))
	assert.InDelta(t, 10, capital.GetSnapshot().AvailableCapital, 1e-9)
}

func TestExecuteCommitsExactlyOnce(t *testing.T) {
	venue := dex.NewPaperVenue("paper")
	c, capital := newTestCoordinator(venue)
	entry := executingEntry(0.072)

	require.NoError(t, c.Execute(context.Background(), entry))

	// A replay of a settled queue id must abort before touching the
	// venue or the ledger: no second submission, no dangling reserve.
	entry.Status = models.StatusExecuting
	err := c.Execute(context.Background(), entry)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrDuplicateExecution))
	assert.Equal(t, 1, venue.Submissions())

	snap := capital.GetSnapshot()
	assert.InDelta(t, 0, snap.ReservedCapital, 1e-9)
	assert.Equal(t, 1, snap.ActivePositions)
}

// cancelingVenue cancels the execution context from inside its quote
// step, then reports a rate-limit failure to force a backoff sleep.
type cancelingVenue struct {
	*dex.PaperVenue
	cancel context.CancelFunc
}

func (v *cancelingVenue) Quote(ctx context.Context, req dex.QuoteRequest) (*dex.Quote, error) {
	v.cancel()
	return nil, errors.NewEndpointError(v.Name(), "quote", true, errors.ErrRateLimited)
}

func TestExecuteCanceledIsNotExhaustion(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	venue := &cancelingVenue{PaperVenue: dex.NewPaperVenue("jupiter"), cancel: cancel}
	c, capital := newTestCoordinator(venue)
	before := capital.GetSnapshot()
	entry := executingEntry(0.072)

	err := c.Execute(ctx, entry)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.False(t, errors.Is(err, errors.ErrRetriesExhausted))

	assert.Equal(t, models.StatusRejected, entry.Status)
	assert.Contains(t, entry.Reasoning, "aborted")
	assert.NotContains(t, entry.Reasoning, "all endpoints exhausted")

	after := capital.GetSnapshot()
	assert.Equal(t, before.AvailableCapital, after.AvailableCapital)
	assert.Equal(t, before.ReservedCapital, after.ReservedCapital)
}

func TestCheckExitsTakeProfit(t *testing.T) {
	venue := dex.NewPaperVenue("paper")
	c, capital := newTestCoordinator(venue)
	entry := executingEntry(0.072)
	require.NoError(t, c.Execute(context.Background(), entry))
	require.Equal(t, 1, c.positions.Len())

	// Entry filled at 0.0004 * 1.01; a 0.0006 mark quotes at 0.000606,
	// past the 0.000564 take-profit level.
	venue.SetMark(0.0006)
	exits := c.CheckExits(context.Background())
	require.Len(t, exits, 1)
	assert.Equal(t, "take profit", exits[0].Reason)
	assert.InDelta(t, 0.36, exits[0].PnL, 1e-9)

	assert.Equal(t, 0, c.positions.Len())
	snap := capital.GetSnapshot()
	assert.Equal(t, 0, snap.ActivePositions)
	assert.InDelta(t, 10.36, snap.AvailableCapital, 1e-9)
	assert.InDelta(t, 10.36, snap.TotalCapital, 1e-9)
}

func TestCheckExitsStopLoss(t *testing.T) {
	venue := dex.NewPaperVenue("paper")
	c, capital := newTestCoordinator(venue)
	entry := executingEntry(0.072)
	require.NoError(t, c.Execute(context.Background(), entry))

	venue.SetMark(0.0002)
	exits := c.CheckExits(context.Background())
	require.Len(t, exits, 1)
	assert.Equal(t, "stop loss", exits[0].Reason)
	assert.InDelta(t, -0.36, exits[0].PnL, 1e-9)

	snap := capital.GetSnapshot()
	assert.Equal(t, 0, snap.ActivePositions)
	assert.InDelta(t, 9.64, snap.TotalCapital, 1e-9)
}

func TestCheckExitsHoldsWithinBand(t *testing.T) {
	venue := dex.NewPaperVenue("paper")
	c, capital := newTestCoordinator(venue)
	entry := executingEntry(0.072)
	require.NoError(t, c.Execute(context.Background(), entry))

	// No mark set: the quote prices off the entry, between both levels.
	exits := c.CheckExits(context.Background())
	assert.Empty(t, exits)
	assert.Equal(t, 1, c.positions.Len())
	assert.Equal(t, 1, capital.ActivePositions())
}

func TestCheckExitsQuoteFailureLeavesPositionOpen(t *testing.T) {
	venue := dex.NewPaperVenue("paper")
	c, _ := newTestCoordinator(venue)
	entry := executingEntry(0.072)
	require.NoError(t, c.Execute(context.Background(), entry))

	venue.FailWith("quote", fmt.Errorf("quote endpoint down"))
	exits := c.CheckExits(context.Background())
	assert.Empty(t, exits)
	assert.Equal(t, 1, c.positions.Len())
}

func TestForgetAllowsReuseAfterPurge(t *testing.T) {
	c, _ := newTestCoordinator(dex.NewPaperVenue("paper"))
	entry := executingEntry(0.072)

	require.NoError(t, c.Execute(context.Background(), entry))
	c.Forget([]string{entry.ID})

	c.mu.Lock()
	_, committed := c.committed[entry.ID]
	c.mu.Unlock()
	assert.False(t, committed)
}
