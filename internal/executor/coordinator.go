// Package executor settles queued executions against an ordered list of
// swap venues with retry, backoff, and failover.
package executor

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"alpha-sniper/internal/config"
	"alpha-sniper/internal/dex"
	"alpha-sniper/internal/errors"
	"alpha-sniper/internal/ledger"
	"alpha-sniper/internal/logging"
	"alpha-sniper/internal/metrics"
	"alpha-sniper/internal/models"
	"alpha-sniper/internal/notify"
	"alpha-sniper/internal/positions"
	"alpha-sniper/internal/store"
	"alpha-sniper/pkg/utils"
)

// Coordinator settles one QueuedExecution at a time per id. Endpoint
// failures stay contained in its retry loop; the ledger is committed at
// most once per queue id, and left untouched when every venue fails.
type Coordinator struct {
	cfg       config.ExecutorConfig
	venues    []dex.Venue
	signer    dex.Signer
	capital   *ledger.CapitalLedger
	trades    store.TradeStore
	notifier  notify.Notifier
	metrics   *metrics.Metrics
	positions *positions.Book
	logger    zerolog.Logger

	slippageBps int

	mu        sync.Mutex
	inflight  map[string]struct{}
	committed map[string]bool
}

// Options carries the coordinator's optional collaborators.
type Options struct {
	Trades    store.TradeStore
	Notifier  notify.Notifier
	Metrics   *metrics.Metrics
	Positions *positions.Book
}

// New creates a coordinator over the ordered venue list.
func New(cfg config.ExecutorConfig, venues []dex.Venue, signer dex.Signer,
	capital *ledger.CapitalLedger, slippageBps int, logger zerolog.Logger, opts Options) *Coordinator {
	notifier := opts.Notifier
	if notifier == nil {
		notifier = notify.Nop{}
	}
	return &Coordinator{
		cfg:         cfg,
		venues:      venues,
		signer:      signer,
		capital:     capital,
		trades:      opts.Trades,
		notifier:    notifier,
		metrics:     opts.Metrics,
		positions:   opts.Positions,
		logger:      logger,
		slippageBps: slippageBps,
		inflight:    make(map[string]struct{}),
		committed:   make(map[string]bool),
	}
}

// Execute settles the entry to a terminal status. Exactly one invocation
// may be in flight per queue id; a concurrent duplicate is a bug in the
// caller and aborts without touching the entry. A replay of an already
// committed id aborts here too, before any capital is reserved or any
// transaction is built.
func (c *Coordinator) Execute(ctx context.Context, entry *models.QueuedExecution) error {
	if err := c.acquire(entry.ID); err != nil {
		c.logger.Error().Str("queue_id", entry.ID).Msg("Duplicate execution attempt aborted")
		return err
	}
	defer c.release(entry.ID)

	if c.alreadyCommitted(entry.ID) {
		c.logger.Error().Str("queue_id", entry.ID).Msg("Replayed execution aborted")
		return errors.Wrapf(errors.ErrDuplicateExecution, "entry %s already committed", entry.ID)
	}

	if entry.Status != models.StatusExecuting {
		return errors.Wrapf(errors.ErrInvalidTransition, "entry %s is %s, not EXECUTING", entry.ID, entry.Status)
	}
	if !entry.Decision.IsBuy() {
		return errors.NewValidationError("decision", entry.Decision.Action, "only buy decisions are executable")
	}

	amount := c.capital.PositionSize(entry.Decision.Buy.PositionSizeFraction)
	if err := c.capital.ReserveForBuy(amount); err != nil {
		c.reject(ctx, entry, fmt.Sprintf("capital reservation failed: %v", err))
		return err
	}

	settlement, attempted, attempts, err := c.tryVenues(ctx, entry, amount)
	if err != nil {
		// Reservation released; the ledger ends numerically unchanged.
		if relErr := c.capital.ReleaseReserve(amount); relErr != nil {
			c.logger.Error().Err(relErr).Str("queue_id", entry.ID).Msg("Reserve release failed")
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			// Cancellation, not exhaustion: the remaining venues were
			// never tried and the reasoning must not claim they were.
			c.reject(context.WithoutCancel(ctx), entry, fmt.Sprintf("execution aborted: %v", ctxErr))
			return errors.NewExecutionError(entry.ID, entry.Mint, attempted, attempts, ctxErr)
		}
		c.reject(ctx, entry, fmt.Sprintf("all endpoints exhausted: [%s]", strings.Join(attempted, " ")))
		return errors.NewExecutionError(entry.ID, entry.Mint, attempted, attempts, errors.ErrRetriesExhausted)
	}

	if err := c.commit(ctx, entry, amount, settlement); err != nil {
		return err
	}
	return nil
}

// tryVenues walks the ordered venue list. A rate-limit-class failure
// backs off and retries the same venue up to the configured bound; any
// other failure advances immediately.
func (c *Coordinator) tryVenues(ctx context.Context, entry *models.QueuedExecution, amount float64) (*models.Settlement, []string, int, error) {
	req := dex.QuoteRequest{
		Mint:           entry.Mint,
		AmountSOL:      amount,
		SlippageBps:    c.slippageBps,
		ReferencePrice: entry.Decision.Buy.EntryPrice,
	}
	minOut := amount / entry.Decision.Buy.EntryPrice * c.cfg.MinOutputFraction

	var attempted []string
	totalAttempts := 0

	for _, venue := range c.venues {
		attempted = append(attempted, venue.Name())
		log := logging.WithVenue(logging.WithQueueID(c.logger, entry.ID), venue.Name())

		for attempt := 0; attempt < c.cfg.MaxAttemptsPerVenue; attempt++ {
			totalAttempts++

			settlement, err := c.attempt(ctx, venue, req, minOut)
			if err == nil {
				return settlement, attempted, totalAttempts, nil
			}

			log.Warn().Err(err).Int("attempt", attempt+1).Msg("Venue attempt failed")

			if !errors.IsRateLimited(err) {
				break // advance to the next venue
			}
			if attempt == c.cfg.MaxAttemptsPerVenue-1 {
				break
			}
			backoff := utils.CalculateBackoff(attempt, c.cfg.BackoffBase, c.cfg.BackoffMax, 2.0)
			if err := utils.Sleep(ctx, backoff); err != nil {
				return nil, attempted, totalAttempts, err
			}
		}
	}

	return nil, attempted, totalAttempts, errors.ErrRetriesExhausted
}

// attempt runs one quote -> swap -> sign -> submit sequence against a
// single venue. Confirmation runs asynchronously after submission.
func (c *Coordinator) attempt(ctx context.Context, venue dex.Venue, req dex.QuoteRequest, minOut float64) (*models.Settlement, error) {
	quoteCtx, cancel := context.WithTimeout(ctx, c.cfg.RequestTimeout)
	quote, err := venue.Quote(quoteCtx, req)
	cancel()
	if err != nil {
		return nil, err
	}
	if quote.OutAmount < minOut {
		return nil, errors.NewEndpointError(venue.Name(), "quote", false,
			errors.Wrapf(errors.ErrQuoteBelowMinimum, "out %.6f below minimum %.6f", quote.OutAmount, minOut))
	}

	swapCtx, cancel := context.WithTimeout(ctx, c.cfg.RequestTimeout)
	tx, err := venue.Swap(swapCtx, quote)
	cancel()
	if err != nil {
		return nil, err
	}

	signed, err := c.signer.Sign(ctx, tx.Payload)
	if err != nil {
		return nil, errors.NewEndpointError(venue.Name(), "sign", false, err)
	}
	tx.Signed = signed

	submitCtx, cancel := context.WithTimeout(ctx, c.cfg.RequestTimeout)
	submission, err := venue.Submit(submitCtx, tx)
	cancel()
	if err != nil {
		return nil, err
	}

	// Optimistic success: confirmation must not block the caller.
	go c.confirmAsync(venue, submission.Signature)

	return &models.Settlement{
		Venue:     venue.Name(),
		Price:     quote.Price,
		SizeSOL:   quote.InAmount,
		Reference: submission.Signature,
		Time:      submission.SubmittedAt,
	}, nil
}

func (c *Coordinator) confirmAsync(venue dex.Venue, signature string) {
	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.ConfirmTimeout)
	defer cancel()

	if err := venue.Confirm(ctx, signature); err != nil {
		c.logger.Warn().
			Err(err).
			Str("venue", venue.Name()).
			Str("signature", signature).
			Msg("Confirmation failed")
		return
	}
	c.logger.Debug().Str("signature", signature).Msg("Transaction confirmed")
}

// commit settles the ledger for this queue id and moves the entry to
// COMPLETED. Replays never reach here; Execute aborts them up front.
func (c *Coordinator) commit(ctx context.Context, entry *models.QueuedExecution, amount float64, settlement *models.Settlement) error {
	c.mu.Lock()
	c.committed[entry.ID] = true
	c.mu.Unlock()

	if err := c.capital.CommitBuy(amount); err != nil {
		return err
	}

	entry.Settlement = settlement
	entry.Reasoning = fmt.Sprintf("filled %.4f SOL via %s at %.9f", settlement.SizeSOL, settlement.Venue, settlement.Price)
	if err := entry.Transition(models.StatusCompleted); err != nil {
		return err
	}

	if c.positions != nil {
		c.positions.Open(positions.Position{
			QueueID:    entry.ID,
			Mint:       entry.Mint,
			Symbol:     entry.Symbol,
			SizeSOL:    settlement.SizeSOL,
			EntryPrice: settlement.Price,
			StopLoss:   entry.Decision.Buy.StopLoss,
			TakeProfit: entry.Decision.Buy.TakeProfit,
			OpenedAt:   settlement.Time,
		})
	}

	logging.LogSettlement(c.logger, entry.ID, entry.Mint, settlement.Venue,
		settlement.Price, settlement.SizeSOL, settlement.Reference)
	c.metrics.ObserveExecution("completed", settlement.Venue)
	c.notifier.TradeSettled(ctx, entry)
	c.persist(ctx, entry)
	return nil
}

// Exit is one closed position with its realized result.
type Exit struct {
	Position  positions.Position
	ExitPrice float64
	Proceeds  float64
	PnL       float64
	Reason    string
}

// CheckExits marks every open position against a fresh quote and closes
// the ones past their stop-loss or take-profit level, settling the
// proceeds into the ledger. Quote failures leave the position open for
// the next pass.
func (c *Coordinator) CheckExits(ctx context.Context) []Exit {
	if c.positions == nil || len(c.venues) == 0 {
		return nil
	}
	venue := c.venues[0]

	var exits []Exit
	for _, pos := range c.positions.Snapshot() {
		quoteCtx, cancel := context.WithTimeout(ctx, c.cfg.RequestTimeout)
		quote, err := venue.Quote(quoteCtx, dex.QuoteRequest{
			Mint:           pos.Mint,
			AmountSOL:      pos.SizeSOL,
			SlippageBps:    c.slippageBps,
			ReferencePrice: pos.EntryPrice,
		})
		cancel()
		if err != nil {
			c.logger.Warn().Err(err).Str("mint", pos.Mint).Msg("Exit quote failed")
			continue
		}

		var reason string
		switch {
		case quote.Price <= pos.StopLoss:
			reason = "stop loss"
		case quote.Price >= pos.TakeProfit:
			reason = "take profit"
		default:
			continue
		}

		if _, ok := c.positions.Close(pos.QueueID); !ok {
			continue
		}
		pnl := (quote.Price/pos.EntryPrice - 1) * pos.SizeSOL
		proceeds := pos.SizeSOL + pnl
		if err := c.capital.CommitSell(proceeds, pnl); err != nil {
			c.logger.Error().Err(err).Str("queue_id", pos.QueueID).Msg("Sell commit failed")
			continue
		}

		c.logger.Info().
			Str("queue_id", pos.QueueID).
			Str("mint", pos.Mint).
			Str("reason", reason).
			Float64("entry", pos.EntryPrice).
			Float64("exit", quote.Price).
			Float64("pnl", pnl).
			Msg("Position closed")
		c.metrics.ObserveExecution("sold", venue.Name())
		exits = append(exits, Exit{
			Position:  pos,
			ExitPrice: quote.Price,
			Proceeds:  proceeds,
			PnL:       pnl,
			Reason:    reason,
		})
	}
	return exits
}

func (c *Coordinator) reject(ctx context.Context, entry *models.QueuedExecution, reasoning string) {
	entry.Reasoning = reasoning
	if err := entry.Transition(models.StatusRejected); err != nil {
		c.logger.Error().Err(err).Str("queue_id", entry.ID).Msg("Reject transition failed")
		return
	}
	c.metrics.ObserveExecution("rejected", "")
	c.notifier.TradeRejected(ctx, entry)
	c.persist(ctx, entry)
}

func (c *Coordinator) persist(ctx context.Context, entry *models.QueuedExecution) {
	if c.trades == nil {
		return
	}
	if err := c.trades.SaveExecution(ctx, entry); err != nil {
		c.logger.Error().Err(err).Str("queue_id", entry.ID).Msg("Persisting execution failed")
	}
}

func (c *Coordinator) acquire(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.inflight[id]; exists {
		return errors.Wrapf(errors.ErrDuplicateExecution, "entry %s already in flight", id)
	}
	c.inflight[id] = struct{}{}
	return nil
}

func (c *Coordinator) alreadyCommitted(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.committed[id]
}

func (c *Coordinator) release(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.inflight, id)
}

// Forget drops the idempotency records for purged entries so the map
// does not grow without bound.
func (c *Coordinator) Forget(ids []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, id := range ids {
		delete(c.committed, id)
	}
}
