package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"alpha-sniper/internal/ledger"
	"alpha-sniper/internal/models"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite-based store.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	schema := `
	-- Decision log from the engine
	CREATE TABLE IF NOT EXISTS decisions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp DATETIME NOT NULL,
		mint TEXT NOT NULL,
		symbol TEXT NOT NULL,
		action TEXT NOT NULL,
		confidence INTEGER NOT NULL,
		reasoning TEXT,
		position_fraction REAL,
		entry_price REAL,
		stop_loss REAL,
		take_profit REAL,
		risk_level TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_decisions_mint ON decisions(mint);
	CREATE INDEX IF NOT EXISTS idx_decisions_timestamp ON decisions(timestamp);

	-- Settled and rejected executions
	CREATE TABLE IF NOT EXISTS executions (
		id TEXT PRIMARY KEY,
		mint TEXT NOT NULL,
		symbol TEXT NOT NULL,
		priority TEXT NOT NULL,
		status TEXT NOT NULL,
		confidence INTEGER NOT NULL,
		reasoning TEXT,
		venue TEXT,
		fill_price REAL,
		size_sol REAL,
		reference TEXT,
		discovered_at DATETIME,
		completed_at DATETIME,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_executions_mint ON executions(mint);

	-- Ledger snapshots; the latest row is the load hook's source
	CREATE TABLE IF NOT EXISTS ledger_snapshots (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		total_capital REAL NOT NULL,
		available_capital REAL NOT NULL,
		reserved_capital REAL NOT NULL,
		active_positions INTEGER NOT NULL,
		max_position_fraction REAL NOT NULL,
		risk_budget REAL NOT NULL,
		taken DATETIME NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// SaveDecision inserts one decision record.
func (s *SQLiteStore) SaveDecision(ctx context.Context, d models.Decision) error {
	var fraction, entry, stop, take sql.NullFloat64
	var riskLevel sql.NullString
	if d.IsBuy() {
		fraction = sql.NullFloat64{Float64: d.Buy.PositionSizeFraction, Valid: true}
		entry = sql.NullFloat64{Float64: d.Buy.EntryPrice, Valid: true}
		stop = sql.NullFloat64{Float64: d.Buy.StopLoss, Valid: true}
		take = sql.NullFloat64{Float64: d.Buy.TakeProfit, Valid: true}
		riskLevel = sql.NullString{String: string(d.Buy.RiskLevel), Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO decisions (timestamp, mint, symbol, action, confidence, reasoning,
			position_fraction, entry_price, stop_loss, take_profit, risk_level)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.Timestamp, d.Mint, d.Symbol, string(d.Action), d.Confidence, d.Reasoning,
		fraction, entry, stop, take, riskLevel)
	if err != nil {
		return fmt.Errorf("saving decision: %w", err)
	}
	return nil
}

// RecentDecisions returns the most recent decisions, newest first.
func (s *SQLiteStore) RecentDecisions(ctx context.Context, limit int) ([]models.Decision, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT timestamp, mint, symbol, action, confidence, reasoning,
			position_fraction, entry_price, stop_loss, take_profit, risk_level
		FROM decisions ORDER BY timestamp DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying decisions: %w", err)
	}
	defer rows.Close()

	var out []models.Decision
	for rows.Next() {
		var d models.Decision
		var action string
		var fraction, entry, stop, take sql.NullFloat64
		var riskLevel sql.NullString
		if err := rows.Scan(&d.Timestamp, &d.Mint, &d.Symbol, &action, &d.Confidence, &d.Reasoning,
			&fraction, &entry, &stop, &take, &riskLevel); err != nil {
			return nil, fmt.Errorf("scanning decision: %w", err)
		}
		d.Action = models.Action(action)
		if d.Action == models.ActionBuy && fraction.Valid {
			d.Buy = &models.BuyPlan{
				PositionSizeFraction: fraction.Float64,
				EntryPrice:           entry.Float64,
				StopLoss:             stop.Float64,
				TakeProfit:           take.Float64,
				RiskLevel:            models.RiskLevel(riskLevel.String),
			}
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// SaveExecution upserts one execution record.
func (s *SQLiteStore) SaveExecution(ctx context.Context, e *models.QueuedExecution) error {
	var venue, reference sql.NullString
	var fillPrice, sizeSOL sql.NullFloat64
	if e.Settlement != nil {
		venue = sql.NullString{String: e.Settlement.Venue, Valid: true}
		reference = sql.NullString{String: e.Settlement.Reference, Valid: true}
		fillPrice = sql.NullFloat64{Float64: e.Settlement.Price, Valid: true}
		sizeSOL = sql.NullFloat64{Float64: e.Settlement.SizeSOL, Valid: true}
	}

	var completed sql.NullTime
	if !e.CompletedAt.IsZero() {
		completed = sql.NullTime{Time: e.CompletedAt, Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO executions (id, mint, symbol, priority, status, confidence, reasoning,
			venue, fill_price, size_sol, reference, discovered_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			reasoning = excluded.reasoning,
			venue = excluded.venue,
			fill_price = excluded.fill_price,
			size_sol = excluded.size_sol,
			reference = excluded.reference,
			completed_at = excluded.completed_at`,
		e.ID, e.Mint, e.Symbol, string(e.Priority), string(e.Status), e.Decision.Confidence,
		e.Reasoning, venue, fillPrice, sizeSOL, reference, e.DiscoveryTime, completed)
	if err != nil {
		return fmt.Errorf("saving execution: %w", err)
	}
	return nil
}

// SaveLedgerSnapshot appends one ledger snapshot.
func (s *SQLiteStore) SaveLedgerSnapshot(ctx context.Context, snap ledger.Snapshot) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO ledger_snapshots (total_capital, available_capital, reserved_capital,
			active_positions, max_position_fraction, risk_budget, taken)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		snap.TotalCapital, snap.AvailableCapital, snap.ReservedCapital,
		snap.ActivePositions, snap.MaxPositionFraction, snap.RiskBudget, snap.Taken)
	if err != nil {
		return fmt.Errorf("saving ledger snapshot: %w", err)
	}
	return nil
}

// LoadLedgerSnapshot returns the most recent ledger snapshot, if any.
func (s *SQLiteStore) LoadLedgerSnapshot(ctx context.Context) (ledger.Snapshot, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT total_capital, available_capital, reserved_capital,
			active_positions, max_position_fraction, risk_budget, taken
		FROM ledger_snapshots ORDER BY id DESC LIMIT 1`)

	var snap ledger.Snapshot
	err := row.Scan(&snap.TotalCapital, &snap.AvailableCapital, &snap.ReservedCapital,
		&snap.ActivePositions, &snap.MaxPositionFraction, &snap.RiskBudget, &snap.Taken)
	if err == sql.ErrNoRows {
		return ledger.Snapshot{}, false, nil
	}
	if err != nil {
		return ledger.Snapshot{}, false, fmt.Errorf("loading ledger snapshot: %w", err)
	}
	return snap, true, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
