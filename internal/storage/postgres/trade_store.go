package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/raysyhuang/gemini-STST/internal/domain"
	"github.com/raysyhuang/gemini-STST/internal/storage"
)

// TradeStore implements storage.TradeStore using PostgreSQL.
type TradeStore struct {
	pool *Pool
}

// NewTradeStore creates a new TradeStore.
func NewTradeStore(pool *Pool) *TradeStore {
	return &TradeStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TradeStore = (*TradeStore)(nil)

const tradeColumns = `
	id, ticker_id, strategy, signal_date, position_size, quality_score, status,
	entry_date, entry_price, shares, highest_high_since_entry, stop_level, planned_exit_date,
	actual_exit_date, exit_price, exit_reason, pnl_dollars, pnl_pct
`

const insertTradeQuery = `
	INSERT INTO paper_trades (
		ticker_id, strategy, signal_date, position_size, quality_score, status,
		entry_date, entry_price, shares, highest_high_since_entry, stop_level, planned_exit_date,
		actual_exit_date, exit_price, exit_reason, pnl_dollars, pnl_pct
	) VALUES (
		$1, $2, $3, $4, $5, $6,
		$7, $8, $9, $10, $11, $12,
		$13, $14, $15, $16, $17
	)
	RETURNING id
`

const updateTradeQuery = `
	UPDATE paper_trades SET
		position_size = $2,
		quality_score = $3,
		status = $4,
		entry_date = $5,
		entry_price = $6,
		shares = $7,
		highest_high_since_entry = $8,
		stop_level = $9,
		planned_exit_date = $10,
		actual_exit_date = $11,
		exit_price = $12,
		exit_reason = $13,
		pnl_dollars = $14,
		pnl_pct = $15
	WHERE id = $1
`

// Insert adds a new trade and sets t.ID. Returns ErrDuplicateKey if a trade
// already exists for (ticker_id, signal_date, strategy).
func (s *TradeStore) Insert(ctx context.Context, t *domain.PaperTrade) error {
	if t == nil || t.TickerID == 0 || t.SignalDate.IsZero() || !t.Strategy.Valid() {
		return storage.ErrInvalidInput
	}

	err := s.pool.QueryRow(ctx, insertTradeQuery, insertArgs(t)...).Scan(&t.ID)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert paper trade: %w", err)
	}
	return nil
}

// InsertBulk adds multiple trades atomically. Fails the entire batch on any
// duplicate.
func (s *TradeStore) InsertBulk(ctx context.Context, trades []*domain.PaperTrade) error {
	if len(trades) == 0 {
		return nil
	}
	for _, t := range trades {
		if t == nil || t.TickerID == 0 || t.SignalDate.IsZero() || !t.Strategy.Valid() {
			return storage.ErrInvalidInput
		}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, t := range trades {
		err := tx.QueryRow(ctx, insertTradeQuery, insertArgs(t)...).Scan(&t.ID)
		if err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert paper trade in bulk: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

// Update overwrites a trade by ID. Returns ErrNotFound if not exists.
func (s *TradeStore) Update(ctx context.Context, t *domain.PaperTrade) error {
	if t == nil || t.ID == 0 {
		return storage.ErrInvalidInput
	}

	tag, err := s.pool.Exec(ctx, updateTradeQuery, updateArgs(t)...)
	if err != nil {
		return fmt.Errorf("update paper trade: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// UpdateBulk overwrites multiple trades atomically. A batch that would
// partially fail applies no mutation at all.
func (s *TradeStore) UpdateBulk(ctx context.Context, trades []*domain.PaperTrade) error {
	if len(trades) == 0 {
		return nil
	}
	for _, t := range trades {
		if t == nil || t.ID == 0 {
			return storage.ErrInvalidInput
		}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, t := range trades {
		tag, err := tx.Exec(ctx, updateTradeQuery, updateArgs(t)...)
		if err != nil {
			return fmt.Errorf("update paper trade in bulk: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return storage.ErrNotFound
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

// GetByID retrieves a trade by ID. Returns ErrNotFound if not exists.
func (s *TradeStore) GetByID(ctx context.Context, id int64) (*domain.PaperTrade, error) {
	query := `SELECT ` + tradeColumns + ` FROM paper_trades WHERE id = $1`

	row := s.pool.QueryRow(ctx, query, id)
	t, err := scanTrade(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get paper trade by id: %w", err)
	}
	return t, nil
}

// FindByNaturalKey retrieves a trade by (ticker_id, signal_date, strategy).
func (s *TradeStore) FindByNaturalKey(ctx context.Context, tickerID int64, signalDate time.Time, strategy domain.Strategy) (*domain.PaperTrade, error) {
	query := `SELECT ` + tradeColumns + ` FROM paper_trades
		WHERE ticker_id = $1 AND signal_date = $2 AND strategy = $3`

	row := s.pool.QueryRow(ctx, query, tickerID, domain.Day(signalDate), strategy)
	t, err := scanTrade(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get paper trade by natural key: %w", err)
	}
	return t, nil
}

// ListByStatus retrieves all trades with the given status, ordered by
// signal_date ASC, id ASC.
func (s *TradeStore) ListByStatus(ctx context.Context, status domain.TradeStatus) ([]*domain.PaperTrade, error) {
	query := `SELECT ` + tradeColumns + ` FROM paper_trades
		WHERE status = $1
		ORDER BY signal_date ASC, id ASC`

	rows, err := s.pool.Query(ctx, query, status)
	if err != nil {
		return nil, fmt.Errorf("list paper trades by status: %w", err)
	}
	defer rows.Close()

	return scanTrades(rows)
}

// ListAll retrieves every trade, ordered by signal_date DESC, id DESC.
func (s *TradeStore) ListAll(ctx context.Context) ([]*domain.PaperTrade, error) {
	query := `SELECT ` + tradeColumns + ` FROM paper_trades
		ORDER BY signal_date DESC, id DESC`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list all paper trades: %w", err)
	}
	defer rows.Close()

	return scanTrades(rows)
}

func insertArgs(t *domain.PaperTrade) []any {
	return []any{
		t.TickerID, t.Strategy, domain.Day(t.SignalDate), t.PositionSize, t.QualityScore, t.Status,
		t.EntryDate, t.EntryPrice, t.Shares, t.HighestHighSinceEntry, t.StopLevel, t.PlannedExitDate,
		t.ActualExitDate, t.ExitPrice, t.ExitReason, t.PnLDollars, t.PnLPct,
	}
}

func updateArgs(t *domain.PaperTrade) []any {
	return []any{
		t.ID, t.PositionSize, t.QualityScore, t.Status,
		t.EntryDate, t.EntryPrice, t.Shares, t.HighestHighSinceEntry, t.StopLevel, t.PlannedExitDate,
		t.ActualExitDate, t.ExitPrice, t.ExitReason, t.PnLDollars, t.PnLPct,
	}
}

// scanTrade scans a single row into a PaperTrade.
func scanTrade(row pgx.Row) (*domain.PaperTrade, error) {
	var t domain.PaperTrade

	err := row.Scan(
		&t.ID, &t.TickerID, &t.Strategy, &t.SignalDate, &t.PositionSize, &t.QualityScore, &t.Status,
		&t.EntryDate, &t.EntryPrice, &t.Shares, &t.HighestHighSinceEntry, &t.StopLevel, &t.PlannedExitDate,
		&t.ActualExitDate, &t.ExitPrice, &t.ExitReason, &t.PnLDollars, &t.PnLPct,
	)
	if err != nil {
		return nil, err
	}

	normalizeTradeDates(&t)
	return &t, nil
}

// scanTrades scans multiple rows into a slice of PaperTrade.
func scanTrades(rows pgx.Rows) ([]*domain.PaperTrade, error) {
	var trades []*domain.PaperTrade

	for rows.Next() {
		var t domain.PaperTrade

		err := rows.Scan(
			&t.ID, &t.TickerID, &t.Strategy, &t.SignalDate, &t.PositionSize, &t.QualityScore, &t.Status,
			&t.EntryDate, &t.EntryPrice, &t.Shares, &t.HighestHighSinceEntry, &t.StopLevel, &t.PlannedExitDate,
			&t.ActualExitDate, &t.ExitPrice, &t.ExitReason, &t.PnLDollars, &t.PnLPct,
		)
		if err != nil {
			return nil, fmt.Errorf("scan paper trade row: %w", err)
		}

		normalizeTradeDates(&t)
		trades = append(trades, &t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate paper trade rows: %w", err)
	}

	return trades, nil
}

// normalizeTradeDates pins DATE columns back to UTC midnight. pgx scans DATE
// into time.Time with a UTC location already, but normalizing keeps
// comparisons against domain.Day values exact.
func normalizeTradeDates(t *domain.PaperTrade) {
	t.SignalDate = domain.Day(t.SignalDate)
	if t.EntryDate != nil {
		d := domain.Day(*t.EntryDate)
		t.EntryDate = &d
	}
	if t.PlannedExitDate != nil {
		d := domain.Day(*t.PlannedExitDate)
		t.PlannedExitDate = &d
	}
	if t.ActualExitDate != nil {
		d := domain.Day(*t.ActualExitDate)
		t.ActualExitDate = &d
	}
}
