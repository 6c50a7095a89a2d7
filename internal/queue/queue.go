package queue

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"alpha-sniper/internal/config"
	"alpha-sniper/internal/errors"
	"alpha-sniper/internal/models"
)

// ExecutionQueue dedups accepted buy decisions and drains them in
// priority order with a per-tick batch cap. The tier delay between
// admission and eligibility is an intentional throttle window allowing
// re-validation and preventing endpoint overload.
type ExecutionQueue struct {
	mu sync.Mutex

	cfg       config.QueueConfig
	discovery *DiscoverySet
	entries   map[string]*models.QueuedExecution
	order     map[string]uint64
	seq       uint64
	logger    zerolog.Logger
	now       func() time.Time
}

// Snapshot summarizes the queue for dashboards and CLIs.
type Snapshot struct {
	Total      int
	ByStatus   map[models.ExecStatus]int
	ByPriority map[models.Priority]int
	Discovery  int
}

// New creates an execution queue.
func New(cfg config.QueueConfig, logger zerolog.Logger) *ExecutionQueue {
	return &ExecutionQueue{
		cfg:       cfg,
		discovery: NewDiscoverySet(cfg.DiscoveryRetention),
		entries:   make(map[string]*models.QueuedExecution),
		order:     make(map[string]uint64),
		logger:    logger,
		now:       time.Now,
	}
}

// Discovery exposes the dedup set.
func (q *ExecutionQueue) Discovery() *DiscoverySet {
	return q.discovery
}

// Admit wraps an accepted buy decision into a QueuedExecution. Returns
// false when the decision is dropped: not a buy, a lower-confidence
// duplicate of a tracked token, or a token with a live entry already in
// the queue.
func (q *ExecutionQueue) Admit(decision models.Decision, signal models.TokenSignal, signalConfidence int) (*models.QueuedExecution, bool) {
	if !decision.IsBuy() {
		return nil, false
	}

	if !q.discovery.Observe(signal, signalConfidence) {
		q.logger.Debug().Str("mint", signal.Mint).Msg("Duplicate discovery dropped")
		return nil, false
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	for _, existing := range q.entries {
		if existing.Mint == signal.Mint && !existing.Status.IsTerminal() {
			return nil, false
		}
	}

	now := q.now()
	priority := models.PriorityFor(signalConfidence, decision.Confidence)
	entry := &models.QueuedExecution{
		ID:               uuid.NewString(),
		Mint:             signal.Mint,
		Symbol:           signal.Symbol,
		Decision:         decision,
		SignalConfidence: signalConfidence,
		Priority:         priority,
		DiscoveryTime:    now,
		ScheduledTime:    now.Add(q.tierDelay(priority)),
		Status:           models.StatusQueued,
	}

	q.seq++
	q.entries[entry.ID] = entry
	q.order[entry.ID] = q.seq

	q.logger.Info().
		Str("queue_id", entry.ID).
		Str("mint", entry.Mint).
		Str("priority", string(priority)).
		Time("scheduled", entry.ScheduledTime).
		Msg("Execution queued")
	return entry, true
}

func (q *ExecutionQueue) tierDelay(p models.Priority) time.Duration {
	switch p {
	case models.PriorityHigh:
		return q.cfg.HighDelay
	case models.PriorityMedium:
		return q.cfg.MediumDelay
	default:
		return q.cfg.LowDelay
	}
}

// Drain selects waiting entries whose scheduled time has arrived, sorted
// by priority tier then FIFO within tier, capped to the batch size. The
// selected entries are marked EXECUTING and returned for the
// coordinator.
func (q *ExecutionQueue) Drain() []*models.QueuedExecution {
	q.mu.Lock()
	defer q.mu.Unlock()

	now := q.now()
	var eligible []*models.QueuedExecution
	for _, entry := range q.entries {
		waiting := entry.Status == models.StatusQueued || entry.Status == models.StatusAnalyzing
		if waiting && !entry.ScheduledTime.After(now) {
			eligible = append(eligible, entry)
		}
	}

	sort.Slice(eligible, func(i, j int) bool {
		ri, rj := eligible[i].Priority.Rank(), eligible[j].Priority.Rank()
		if ri != rj {
			return ri < rj
		}
		return q.order[eligible[i].ID] < q.order[eligible[j].ID]
	})

	if len(eligible) > q.cfg.BatchSize {
		eligible = eligible[:q.cfg.BatchSize]
	}

	for _, entry := range eligible {
		// Both waiting states transition legally to EXECUTING.
		_ = entry.Transition(models.StatusExecuting)
	}
	return eligible
}

// MarkAnalyzing moves a queued entry into the optional re-validation state.
func (q *ExecutionQueue) MarkAnalyzing(id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	entry, ok := q.entries[id]
	if !ok {
		return errors.ErrEntryNotFound
	}
	return entry.Transition(models.StatusAnalyzing)
}

// Cancel removes an entry that has not started executing. Once an entry
// is EXECUTING it runs to a terminal outcome.
func (q *ExecutionQueue) Cancel(id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	entry, ok := q.entries[id]
	if !ok {
		return errors.ErrEntryNotFound
	}
	if entry.Status != models.StatusQueued {
		return errors.Wrapf(errors.ErrEntryNotCancellable, "entry %s is %s", id, entry.Status)
	}
	delete(q.entries, id)
	delete(q.order, id)
	return nil
}

// Get returns the entry with the given id.
func (q *ExecutionQueue) Get(id string) (*models.QueuedExecution, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	entry, ok := q.entries[id]
	return entry, ok
}

// Cleanup purges terminal entries older than the retention window and
// evicts stale discovery records. Returns the ids of purged entries.
func (q *ExecutionQueue) Cleanup() []string {
	q.mu.Lock()
	cutoff := q.now().Add(-q.cfg.Retention)
	var purged []string
	for id, entry := range q.entries {
		if entry.Status.IsTerminal() && entry.CompletedAt.Before(cutoff) {
			delete(q.entries, id)
			delete(q.order, id)
			purged = append(purged, id)
		}
	}
	q.mu.Unlock()

	evicted := q.discovery.Evict()
	if len(purged) > 0 || evicted > 0 {
		q.logger.Debug().Int("purged", len(purged)).Int("evicted", evicted).Msg("Queue cleanup")
	}
	return purged
}

// GetSnapshot returns queue counts by status and priority.
func (q *ExecutionQueue) GetSnapshot() Snapshot {
	q.mu.Lock()
	defer q.mu.Unlock()

	snap := Snapshot{
		Total:      len(q.entries),
		ByStatus:   make(map[models.ExecStatus]int),
		ByPriority: make(map[models.Priority]int),
		Discovery:  q.discovery.Len(),
	}
	for _, entry := range q.entries {
		snap.ByStatus[entry.Status]++
		snap.ByPriority[entry.Priority]++
	}
	return snap
}
