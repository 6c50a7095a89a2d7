// Package pipeline wires signal discovery, scoring, decisioning, and
// execution into the hunt/drain/monitor/cleanup loop.
package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"alpha-sniper/internal/config"
	"alpha-sniper/internal/engine"
	"alpha-sniper/internal/executor"
	"alpha-sniper/internal/ledger"
	"alpha-sniper/internal/logging"
	"alpha-sniper/internal/metrics"
	"alpha-sniper/internal/models"
	"alpha-sniper/internal/notify"
	"alpha-sniper/internal/queue"
	"alpha-sniper/internal/scanner"
	"alpha-sniper/internal/scoring"
	"alpha-sniper/internal/store"
)

// Pipeline drives the full decision flow: scanners produce signals, the
// scorer and engine turn them into decisions, buys are queued, and the
// coordinator settles drained batches against the venues.
type Pipeline struct {
	cfg         *config.Config
	scanners    []scanner.Scanner
	stream      scanner.Stream
	scorer      *scoring.ConfidenceScorer
	engine      *engine.DecisionEngine
	queue       *queue.ExecutionQueue
	coordinator *executor.Coordinator
	capital     *ledger.CapitalLedger
	store       store.Store
	notifier    notify.Notifier
	metrics     *metrics.Metrics
	logger      zerolog.Logger

	mu       sync.Mutex
	draining bool
}

// Deps carries the pipeline's collaborators. Store, Stream, Notifier,
// and Metrics are optional.
type Deps struct {
	Scanners    []scanner.Scanner
	Stream      scanner.Stream
	Scorer      *scoring.ConfidenceScorer
	Engine      *engine.DecisionEngine
	Queue       *queue.ExecutionQueue
	Coordinator *executor.Coordinator
	Capital     *ledger.CapitalLedger
	Store       store.Store
	Notifier    notify.Notifier
	Metrics     *metrics.Metrics
}

// New creates a pipeline from its collaborators.
func New(cfg *config.Config, deps Deps, logger zerolog.Logger) *Pipeline {
	notifier := deps.Notifier
	if notifier == nil {
		notifier = notify.Nop{}
	}
	return &Pipeline{
		cfg:         cfg,
		scanners:    deps.Scanners,
		stream:      deps.Stream,
		scorer:      deps.Scorer,
		engine:      deps.Engine,
		queue:       deps.Queue,
		coordinator: deps.Coordinator,
		capital:     deps.Capital,
		store:       deps.Store,
		notifier:    notifier,
		metrics:     deps.Metrics,
		logger:      logger,
	}
}

// Restore loads the last persisted ledger snapshot, if any.
func (p *Pipeline) Restore(ctx context.Context) error {
	if p.store == nil {
		return nil
	}
	snap, found, err := p.store.LoadLedgerSnapshot(ctx)
	if err != nil {
		return err
	}
	if !found {
		return nil
	}
	if err := p.capital.Restore(snap); err != nil {
		return err
	}
	p.logger.Info().
		Float64("available", snap.AvailableCapital).
		Float64("reserved", snap.ReservedCapital).
		Int("positions", snap.ActivePositions).
		Msg("Ledger restored from snapshot")
	return nil
}

// Run starts the hunt/drain/monitor/cleanup tickers and the launch
// stream, and blocks until the context is cancelled.
func (p *Pipeline) Run(ctx context.Context) error {
	p.engine.Activate()
	defer p.engine.Deactivate()

	if p.stream != nil {
		p.stream.OnSignal(func(signal models.TokenSignal) {
			p.HandleSignal(ctx, signal)
		})
		p.stream.OnError(func(err error) {
			p.logger.Warn().Err(err).Msg("Stream error")
			p.notifier.PipelineError(ctx, err, "launch stream")
		})
		if err := p.stream.Connect(ctx); err != nil {
			// Polling scanners still run without the stream.
			p.logger.Warn().Err(err).Msg("Stream connect failed")
			p.notifier.PipelineError(ctx, err, "launch stream connect")
		}
		defer p.stream.Disconnect()
	}

	hunt := time.NewTicker(p.cfg.Scanner.HuntInterval)
	drain := time.NewTicker(p.cfg.Scanner.DrainInterval)
	monitor := time.NewTicker(p.cfg.Scanner.MonitorInterval)
	cleanup := time.NewTicker(p.cfg.Scanner.CleanupInterval)
	defer hunt.Stop()
	defer drain.Stop()
	defer monitor.Stop()
	defer cleanup.Stop()

	p.logger.Info().
		Int("threshold", p.engine.Threshold()).
		Int("scanners", len(p.scanners)).
		Msg("Pipeline running")

	for {
		select {
		case <-ctx.Done():
			p.persistLedger(context.Background())
			return ctx.Err()
		case <-hunt.C:
			p.HuntOnce(ctx)
		case <-drain.C:
			p.DrainOnce(ctx)
		case <-monitor.C:
			p.MonitorOnce(ctx)
		case <-cleanup.C:
			p.CleanupOnce()
		}
	}
}

// HuntOnce runs every scanner once and feeds the signals through the
// decision flow. Scanner failures are logged, not fatal.
func (p *Pipeline) HuntOnce(ctx context.Context) {
	for _, s := range p.scanners {
		signals, err := s.Scan(ctx)
		if err != nil {
			p.logger.Warn().Err(err).Str("scanner", s.Name()).Msg("Scan failed")
			p.notifier.PipelineError(ctx, err, "scanner "+s.Name())
			continue
		}
		for _, signal := range signals {
			p.HandleSignal(ctx, signal)
		}
	}
	p.updateMetrics()
}

// HandleSignal scores one signal, evaluates it, and admits buys to the
// execution queue.
func (p *Pipeline) HandleSignal(ctx context.Context, signal models.TokenSignal) {
	confidence, _ := p.scorer.Score(signal, signal.Tags)
	riskScore := scoring.RiskScore(signal)
	decision := p.engine.Evaluate(signal, confidence, riskScore)

	logging.LogDecision(p.logger, signal.Mint, signal.Symbol,
		string(decision.Action), decision.Confidence, decision.Reasoning)
	p.metrics.ObserveDecision(string(decision.Action))

	if p.store != nil {
		if err := p.store.SaveDecision(ctx, decision); err != nil {
			p.logger.Error().Err(err).Str("mint", signal.Mint).Msg("Saving decision failed")
		}
	}

	if !decision.IsBuy() {
		return
	}
	entry, admitted := p.queue.Admit(decision, signal, confidence)
	if !admitted {
		return
	}
	p.logger.Info().
		Str("queue_id", entry.ID).
		Str("mint", entry.Mint).
		Str("priority", string(entry.Priority)).
		Time("scheduled", entry.ScheduledTime).
		Msg("Buy queued")
}

// DrainOnce pulls the next eligible batch and settles it concurrently.
// Overlapping drains are skipped rather than stacked.
func (p *Pipeline) DrainOnce(ctx context.Context) {
	p.mu.Lock()
	if p.draining {
		p.mu.Unlock()
		return
	}
	p.draining = true
	p.mu.Unlock()
	defer func() {
		p.mu.Lock()
		p.draining = false
		p.mu.Unlock()
	}()

	batch := p.queue.Drain()
	if len(batch) == 0 {
		return
	}
	p.logger.Info().Int("batch", len(batch)).Msg("Draining executions")

	var wg sync.WaitGroup
	for _, entry := range batch {
		wg.Add(1)
		go func(entry *models.QueuedExecution) {
			defer wg.Done()
			if err := p.coordinator.Execute(ctx, entry); err != nil {
				p.logger.Warn().
					Err(err).
					Str("queue_id", entry.ID).
					Str("mint", entry.Mint).
					Msg("Execution failed")
			}
		}(entry)
	}
	wg.Wait()

	p.persistLedger(ctx)
	p.updateMetrics()
}

// MonitorOnce checks open positions against their exit levels and feeds
// realized results back to the engine.
func (p *Pipeline) MonitorOnce(ctx context.Context) {
	exits := p.coordinator.CheckExits(ctx)
	if len(exits) == 0 {
		return
	}
	for _, exit := range exits {
		p.engine.RecordOutcome(exit.PnL)
		p.logger.Info().
			Str("mint", exit.Position.Mint).
			Str("reason", exit.Reason).
			Float64("pnl", exit.PnL).
			Msg("Position exited")
	}
	p.persistLedger(ctx)
	p.updateMetrics()
}

// CleanupOnce purges settled entries past retention and trims the
// coordinator's idempotency records for them.
func (p *Pipeline) CleanupOnce() {
	purged := p.queue.Cleanup()
	if len(purged) > 0 {
		p.coordinator.Forget(purged)
	}
	p.updateMetrics()
}

func (p *Pipeline) persistLedger(ctx context.Context) {
	if p.store == nil {
		return
	}
	if err := p.store.SaveLedgerSnapshot(ctx, p.capital.GetSnapshot()); err != nil {
		p.logger.Error().Err(err).Msg("Persisting ledger snapshot failed")
	}
}

func (p *Pipeline) updateMetrics() {
	if p.metrics == nil {
		return
	}
	snap := p.queue.GetSnapshot()
	for status, depth := range snap.ByStatus {
		p.metrics.SetQueueDepth(string(status), depth)
	}
	ls := p.capital.GetSnapshot()
	p.metrics.SetCapital(ls.AvailableCapital, ls.ReservedCapital, ls.ActivePositions)
	p.metrics.SetThreshold(p.engine.Threshold())
}
