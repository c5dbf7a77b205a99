package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"cryptoSignalBot/internal/domain"
	"cryptoSignalBot/internal/ports"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// Repository is the event journal. It implements ports.EventSink and ports.TradeJournal using SQLite.
type Repository struct {
	db     *sql.DB
	logger ports.Logger
}

// Config holds configuration for the SQLite journal.
type Config struct {
	DBPath string
	Logger ports.Logger
}

// NewRepository opens (or creates) the journal database and makes sure the schema exists.
func NewRepository(cfg Config) (*Repository, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for SQLite repository")
	}
	dbPath := cfg.DBPath
	if dbPath == "" {
		dbPath = "./data/signal_bot.db"
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		err = fmt.Errorf("failed to create data directory '%s': %w: %w", filepath.Dir(dbPath), ports.ErrDBConnection, err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		err = fmt.Errorf("failed to open database at '%s': %w: %w", dbPath, ports.ErrDBConnection, err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		err = fmt.Errorf("failed to ping database at '%s': %w: %w", dbPath, ports.ErrDBConnection, err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	// Every agent publishes through this one handle; SQLite serialises writers anyway.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	repo := &Repository{db: db, logger: cfg.Logger}
	if err := repo.initializeSchema(context.Background()); err != nil {
		db.Close()
		err = fmt.Errorf("failed to initialize database schema: %w", err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}
	cfg.Logger.Info(context.Background(), "SQLite journal ready", map[string]interface{}{"path": dbPath})

	return repo, nil
}

func (r *Repository) initializeSchema(ctx context.Context) error {
	const schema = `
	CREATE TABLE IF NOT EXISTS signals (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		agent_id TEXT NOT NULL,
		strategy TEXT NOT NULL,
		product TEXT NOT NULL,
		direction TEXT NOT NULL,
		reason TEXT NOT NULL,
		price REAL NOT NULL,
		stop_price REAL NULL,
		target_price REAL NULL,
		created_at TIMESTAMP NOT NULL
	);

	CREATE TABLE IF NOT EXISTS trades (
		id TEXT PRIMARY KEY,
		agent_id TEXT NOT NULL,
		strategy TEXT NOT NULL,
		product TEXT NOT NULL,
		entry_price REAL NOT NULL,
		quantity REAL NOT NULL,
		entry_fee REAL NOT NULL,
		exit_price REAL NULL,
		exit_fee REAL NULL,
		min_price REAL NOT NULL,
		max_price REAL NOT NULL,
		hard_stop REAL NULL,
		hard_sell REAL NULL,
		sell_reason TEXT NULL,
		result TEXT NULL,
		profit REAL NOT NULL DEFAULT 0,
		buy_tries INTEGER NOT NULL DEFAULT 0,
		sell_tries INTEGER NOT NULL DEFAULT 0,
		funds_after REAL NOT NULL,
		opened_at TIMESTAMP NOT NULL,
		closed_at TIMESTAMP NULL
	);

	CREATE TABLE IF NOT EXISTS stop_events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		agent_id TEXT NOT NULL,
		product TEXT NOT NULL,
		funds REAL NOT NULL,
		high_water_mark REAL NOT NULL,
		threshold REAL NOT NULL,
		created_at TIMESTAMP NOT NULL
	);

	CREATE TABLE IF NOT EXISTS abandoned_orders (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		agent_id TEXT NOT NULL,
		product TEXT NOT NULL,
		order_id TEXT NOT NULL,
		side TEXT NOT NULL,
		attempts INTEGER NOT NULL,
		created_at TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_signals_agent_created ON signals (agent_id, created_at);
	CREATE INDEX IF NOT EXISTS idx_trades_product_closed ON trades (product, closed_at);
	CREATE INDEX IF NOT EXISTS idx_stop_events_agent ON stop_events (agent_id);
	`
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to execute schema initialization: %w: %w", ports.ErrQueryFailed, err)
	}
	return nil
}

// Close closes the database connection.
func (r *Repository) Close() error {
	if r.db != nil {
		r.logger.Info(context.Background(), "Closing SQLite database connection")
		return r.db.Close()
	}
	return nil
}

// --- EventSink Implementation ---

// Publish writes one agent event to its table. Unknown event kinds are ignored.
func (r *Repository) Publish(ctx context.Context, event domain.Event) error {
	switch e := event.(type) {
	case domain.SignalEvent:
		return r.insertSignal(ctx, e)
	case domain.TradeOpenedEvent:
		return r.upsertTrade(ctx, e.EventSource, e.Trade, e.Wallet)
	case domain.TradeClosedEvent:
		return r.upsertTrade(ctx, e.EventSource, e.Trade, e.Wallet)
	case domain.StopTradingEvent:
		return r.insertStop(ctx, e)
	case domain.OrderAbandonedEvent:
		return r.insertAbandoned(ctx, e)
	default:
		r.logger.Debug(ctx, "Ignoring unknown event kind", map[string]interface{}{"kind": event.Kind()})
		return nil
	}
}

func (r *Repository) insertSignal(ctx context.Context, e domain.SignalEvent) error {
	const query = `
	INSERT INTO signals (agent_id, strategy, product, direction, reason, price, stop_price, target_price, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query,
		e.AgentID, e.Strategy, e.Product, string(e.Signal.Direction), e.Signal.Reason, e.Price,
		nullFloat(e.Signal.StopPrice), nullFloat(e.Signal.TargetPrice), e.Time)
	if err != nil {
		return fmt.Errorf("failed to insert signal for %s: %w: %w", e.AgentID, ports.ErrInsertFailed, err)
	}
	r.logger.Debug(ctx, "Signal journaled", map[string]interface{}{"agentID": e.AgentID, "direction": e.Signal.Direction})
	return nil
}

// upsertTrade inserts the trade when it opens and completes the same row when it closes.
func (r *Repository) upsertTrade(ctx context.Context, src domain.EventSource, t domain.Trade, w domain.Wallet) error {
	const query = `
	INSERT INTO trades (id, agent_id, strategy, product, entry_price, quantity, entry_fee, exit_price, exit_fee,
	                    min_price, max_price, hard_stop, hard_sell, sell_reason, result, profit,
	                    buy_tries, sell_tries, funds_after, opened_at, closed_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		exit_price = excluded.exit_price,
		exit_fee = excluded.exit_fee,
		min_price = excluded.min_price,
		max_price = excluded.max_price,
		hard_stop = excluded.hard_stop,
		hard_sell = excluded.hard_sell,
		sell_reason = excluded.sell_reason,
		result = excluded.result,
		profit = excluded.profit,
		sell_tries = excluded.sell_tries,
		funds_after = excluded.funds_after,
		closed_at = excluded.closed_at`

	if t.ID == "" {
		return fmt.Errorf("trade for %s has no id: %w", src.AgentID, ports.ErrInvalidRequest)
	}

	var exitPrice, exitFee sql.NullFloat64
	if exit, ok := t.Exit.Get(); ok {
		exitPrice = sql.NullFloat64{Float64: exit.Price, Valid: true}
		exitFee = sql.NullFloat64{Float64: exit.Fee, Valid: true}
	}
	var closedAt sql.NullTime
	if t.IsClosed() {
		closedAt = sql.NullTime{Time: t.ClosedAt, Valid: true}
	}

	_, err := r.db.ExecContext(ctx, query,
		t.ID, src.AgentID, t.Strategy, t.Product, t.Entry.Price, t.Entry.Quantity, t.Entry.Fee, exitPrice, exitFee,
		t.MinPrice, t.MaxPrice, nullFloat(t.HardStop), nullFloat(t.HardSell), nullString(t.Reason), nullString(t.Result),
		t.Profit, t.BuyTries, t.SellTries, w.Funds, t.OpenedAt, closedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert trade %s: %w: %w", t.ID, ports.ErrInsertFailed, err)
	}
	r.logger.Debug(ctx, "Trade journaled", map[string]interface{}{"tradeID": t.ID, "closed": closedAt.Valid})
	return nil
}

func (r *Repository) insertStop(ctx context.Context, e domain.StopTradingEvent) error {
	const query = `
	INSERT INTO stop_events (agent_id, product, funds, high_water_mark, threshold, created_at)
	VALUES (?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query, e.AgentID, e.Product, e.Wallet.Funds, e.Wallet.HighWaterMark, e.Threshold, e.Time)
	if err != nil {
		return fmt.Errorf("failed to insert stop event for %s: %w: %w", e.AgentID, ports.ErrInsertFailed, err)
	}
	return nil
}

func (r *Repository) insertAbandoned(ctx context.Context, e domain.OrderAbandonedEvent) error {
	const query = `
	INSERT INTO abandoned_orders (agent_id, product, order_id, side, attempts, created_at)
	VALUES (?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query, e.AgentID, e.Product, e.OrderID, string(e.Side), e.Attempts, e.Time)
	if err != nil {
		return fmt.Errorf("failed to insert abandoned order %s: %w: %w", e.OrderID, ports.ErrInsertFailed, err)
	}
	return nil
}

// --- TradeJournal Implementation ---

// FindClosedTrades retrieves the most recent closed trades for a product, newest first.
// An empty product matches every product.
func (r *Repository) FindClosedTrades(ctx context.Context, product string, limit int) ([]domain.Trade, error) {
	const query = `
	SELECT id, strategy, product, entry_price, quantity, entry_fee, exit_price, exit_fee,
	       min_price, max_price, hard_stop, hard_sell, sell_reason, result, profit,
	       buy_tries, sell_tries, opened_at, closed_at
	FROM trades
	WHERE result IS NOT NULL AND (? = '' OR product = ?)
	ORDER BY closed_at DESC LIMIT ?`

	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}
	rows, err := r.db.QueryContext(ctx, query, product, product, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query closed trades for %q: %w: %w", product, ports.ErrQueryFailed, err)
	}
	defer rows.Close()

	trades := make([]domain.Trade, 0)
	for rows.Next() {
		t, err := scanTrade(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan closed trade: %w: %w", ports.ErrQueryFailed, err)
		}
		trades = append(trades, t)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating trade rows: %w: %w", ports.ErrQueryFailed, err)
	}
	return trades, nil
}

// CountStopEvents counts circuit-breaker trips recorded for an agent.
func (r *Repository) CountStopEvents(ctx context.Context, agentID string) (int, error) {
	const query = `SELECT COUNT(*) FROM stop_events WHERE agent_id = ?`
	var count int
	if err := r.db.QueryRowContext(ctx, query, agentID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count stop events for %s: %w: %w", agentID, ports.ErrQueryFailed, err)
	}
	return count, nil
}

// CountSignals counts journaled signals for an agent, optionally filtered by direction.
func (r *Repository) CountSignals(ctx context.Context, agentID string, direction domain.Direction) (int, error) {
	const query = `SELECT COUNT(*) FROM signals WHERE agent_id = ? AND (? = '' OR direction = ?)`
	var count int
	if err := r.db.QueryRowContext(ctx, query, agentID, string(direction), string(direction)).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count signals for %s: %w: %w", agentID, ports.ErrQueryFailed, err)
	}
	return count, nil
}

// --- Helper Scan Functions ---

// scanner defines an interface compatible with *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanTrade(s scanner) (domain.Trade, error) {
	var (
		t                  domain.Trade
		exitPrice, exitFee sql.NullFloat64
		hardStop, hardSell sql.NullFloat64
		reason, result     sql.NullString
		closedAt           sql.NullTime
	)
	err := s.Scan(
		&t.ID, &t.Strategy, &t.Product, &t.Entry.Price, &t.Entry.Quantity, &t.Entry.Fee, &exitPrice, &exitFee,
		&t.MinPrice, &t.MaxPrice, &hardStop, &hardSell, &reason, &result, &t.Profit,
		&t.BuyTries, &t.SellTries, &t.OpenedAt, &closedAt)
	if err != nil {
		return domain.Trade{}, err
	}

	t.Entry.Time = t.OpenedAt
	if closedAt.Valid {
		t.ClosedAt = closedAt.Time
		t.Duration = t.ClosedAt.Sub(t.OpenedAt)
	}
	if exitPrice.Valid {
		t.Exit = domain.Some(domain.Fill{
			Price:    exitPrice.Float64,
			Quantity: t.Entry.Quantity,
			Fee:      exitFee.Float64,
			Time:     t.ClosedAt,
		})
	}
	if hardStop.Valid {
		t.HardStop = domain.Some(hardStop.Float64)
	}
	if hardSell.Valid {
		t.HardSell = domain.Some(hardSell.Float64)
	}
	if reason.Valid {
		t.Reason = domain.Some(domain.SellReason(reason.String))
	}
	if result.Valid {
		t.Result = domain.Some(domain.TradeResult(result.String))
	}
	return t, nil
}

func nullFloat(o domain.Optional[float64]) sql.NullFloat64 {
	v, ok := o.Get()
	return sql.NullFloat64{Float64: v, Valid: ok}
}

func nullString[T ~string](o domain.Optional[T]) sql.NullString {
	v, ok := o.Get()
	return sql.NullString{String: string(v), Valid: ok}
}
