package pipeline

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alpha-sniper/internal/config"
	"alpha-sniper/internal/dex"
	"alpha-sniper/internal/engine"
	"alpha-sniper/internal/executor"
	"alpha-sniper/internal/ledger"
	"alpha-sniper/internal/models"
	"alpha-sniper/internal/positions"
	"alpha-sniper/internal/queue"
	"alpha-sniper/internal/scanner"
	"alpha-sniper/internal/scoring"
)

const (
	strongMint = "So11111111111111111111111111111111111111112"
	weakMint   = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
)

// stubScanner serves a fixed batch of signals.
type stubScanner struct {
	signals []models.TokenSignal
}

func (s *stubScanner) Name() string { return "stub" }

func (s *stubScanner) Scan(ctx context.Context) ([]models.TokenSignal, error) {
	return s.signals, nil
}

func strongSignal() models.TokenSignal {
	return models.TokenSignal{
		Mint:           strongMint,
		Symbol:         "ALPHA",
		Price:          0.00045,
		Volume24h:      900000,
		MarketCap:      600000,
		Liquidity:      200000,
		Holders:        6000,
		PriceChange1h:  12,
		PriceChange24h: 40,
		PriceChange7d:  80,
		Source:         "stub",
	}
}

func weakSignal() models.TokenSignal {
	return models.TokenSignal{
		Mint:           weakMint,
		Symbol:         "DUST",
		Price:          0.0000001,
		Volume24h:      500,
		MarketCap:      80000,
		Liquidity:      1500,
		Holders:        20,
		PriceChange1h:  -30,
		PriceChange24h: -60,
		PriceChange7d:  -80,
		Source:         "stub",
	}
}

type testHarness struct {
	pipeline *Pipeline
	queue    *queue.ExecutionQueue
	engine   *engine.DecisionEngine
	capital  *ledger.CapitalLedger
	venue    *dex.PaperVenue
}

func newHarness(t *testing.T, signals ...models.TokenSignal) *testHarness {
	t.Helper()

	cfg := config.Default()
	// Zero tier delays so drained batches are eligible immediately.
	cfg.Queue.HighDelay = 0
	cfg.Queue.MediumDelay = 0
	cfg.Queue.LowDelay = 0

	logger := zerolog.Nop()
	capital := ledger.New(cfg.Capital.TotalCapital, cfg.Capital.MaxPositionFraction, cfg.Capital.RiskBudget)
	decisionEngine := engine.New(cfg.Engine, capital, cfg.Capital.MaxActivePositions, logger)
	execQueue := queue.New(cfg.Queue, logger)
	venue := dex.NewPaperVenue("paper")

	coordinator := executor.New(cfg.Executor, []dex.Venue{venue}, dex.PaperSigner{},
		capital, cfg.Trading.SlippageBps, logger, executor.Options{Positions: positions.NewBook()})

	p := New(cfg, Deps{
		Scanners:    []scanner.Scanner{&stubScanner{signals: signals}},
		Scorer:      scoring.NewConfidenceScorer(),
		Engine:      decisionEngine,
		Queue:       execQueue,
		Coordinator: coordinator,
		Capital:     capital,
	}, logger)

	return &testHarness{
		pipeline: p,
		queue:    execQueue,
		engine:   decisionEngine,
		capital:  capital,
		venue:    venue,
	}
}

func TestHuntQueuesStrongSignal(t *testing.T) {
	h := newHarness(t, strongSignal())

	h.pipeline.HuntOnce(context.Background())

	snap := h.queue.GetSnapshot()
	require.Equal(t, 1, snap.Total)
	assert.Equal(t, 1, snap.ByStatus[models.StatusQueued])
}

func TestHuntIgnoresWeakSignal(t *testing.T) {
	h := newHarness(t, weakSignal())

	h.pipeline.HuntOnce(context.Background())

	assert.Equal(t, 0, h.queue.GetSnapshot().Total)
	assert.Equal(t, 0, h.capital.ActivePositions())
}

func TestHuntDeduplicatesRepeatScans(t *testing.T) {
	h := newHarness(t, strongSignal())

	h.pipeline.HuntOnce(context.Background())
	h.pipeline.HuntOnce(context.Background())

	assert.Equal(t, 1, h.queue.GetSnapshot().Total)
}

func TestDrainSettlesQueuedBuy(t *testing.T) {
	h := newHarness(t, strongSignal())
	ctx := context.Background()

	h.pipeline.HuntOnce(ctx)
	h.pipeline.DrainOnce(ctx)

	snap := h.queue.GetSnapshot()
	assert.Equal(t, 1, snap.ByStatus[models.StatusCompleted])
	assert.Equal(t, 1, h.capital.ActivePositions())
	assert.Equal(t, 1, h.venue.Submissions())

	ledgerSnap := h.capital.GetSnapshot()
	assert.Less(t, ledgerSnap.AvailableCapital, ledgerSnap.TotalCapital)
	assert.InDelta(t, 0, ledgerSnap.ReservedCapital, 1e-9)
}

func TestFailedExecutionLeavesLedgerIntact(t *testing.T) {
	h := newHarness(t, strongSignal())
	h.venue.FailWith("submit", context.DeadlineExceeded)
	ctx := context.Background()

	h.pipeline.HuntOnce(ctx)
	before := h.capital.GetSnapshot()
	h.pipeline.DrainOnce(ctx)

	snap := h.queue.GetSnapshot()
	assert.Equal(t, 1, snap.ByStatus[models.StatusRejected])

	after := h.capital.GetSnapshot()
	assert.Equal(t, before.AvailableCapital, after.AvailableCapital)
	assert.Equal(t, before.ActivePositions, after.ActivePositions)
}

func TestCleanupTrimsSettledEntries(t *testing.T) {
	h := newHarness(t, strongSignal())
	ctx := context.Background()

	h.pipeline.HuntOnce(ctx)
	h.pipeline.DrainOnce(ctx)
	h.pipeline.CleanupOnce()

	// Within retention: the settled entry survives cleanup.
	assert.Equal(t, 1, h.queue.GetSnapshot().Total)
}

func TestMonitorClosesProfitablePosition(t *testing.T) {
	h := newHarness(t, strongSignal())
	ctx := context.Background()

	h.pipeline.HuntOnce(ctx)
	h.pipeline.DrainOnce(ctx)
	require.Equal(t, 1, h.capital.ActivePositions())

	// Push the simulated price past the take-profit level.
	h.venue.SetMark(0.001)
	h.pipeline.MonitorOnce(ctx)

	assert.Equal(t, 0, h.capital.ActivePositions())
	snap := h.capital.GetSnapshot()
	assert.Greater(t, snap.AvailableCapital, 10.0)
	assert.InDelta(t, 0, snap.ReservedCapital, 1e-9)

	engineSnap := h.engine.GetSnapshot(0)
	assert.Equal(t, 1, engineSnap.Wins)
	assert.Equal(t, 0, engineSnap.Losses)
}

func TestMonitorHoldsPositionWithinBand(t *testing.T) {
	h := newHarness(t, strongSignal())
	ctx := context.Background()

	h.pipeline.HuntOnce(ctx)
	h.pipeline.DrainOnce(ctx)

	// No mark movement: the position stays open and the engine sees no
	// realized outcome.
	h.pipeline.MonitorOnce(ctx)

	assert.Equal(t, 1, h.capital.ActivePositions())
	engineSnap := h.engine.GetSnapshot(0)
	assert.Equal(t, 0, engineSnap.Wins+engineSnap.Losses)
}

func TestHandleSignalDirect(t *testing.T) {
	h := newHarness(t)

	h.pipeline.HandleSignal(context.Background(), strongSignal())
	assert.Equal(t, 1, h.queue.GetSnapshot().Total)
}
