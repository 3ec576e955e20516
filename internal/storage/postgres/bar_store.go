package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/raysyhuang/gemini-STST/internal/domain"
	"github.com/raysyhuang/gemini-STST/internal/storage"
)

// BarStore implements storage.BarStore using PostgreSQL.
type BarStore struct {
	pool *Pool
}

// NewBarStore creates a new BarStore.
func NewBarStore(pool *Pool) *BarStore {
	return &BarStore{pool: pool}
}

// Compile-time interface check.
var _ storage.BarStore = (*BarStore)(nil)

// UpsertBulk inserts bars, replacing any existing (ticker_id, date) rows.
// The whole batch is applied in a single transaction.
func (s *BarStore) UpsertBulk(ctx context.Context, bars []*domain.DailyBar) error {
	if len(bars) == 0 {
		return nil
	}
	for _, b := range bars {
		if b == nil || b.TickerID == 0 || b.Date.IsZero() {
			return storage.ErrInvalidInput
		}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO daily_bars (ticker_id, date, open, high, low, close, volume)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (ticker_id, date) DO UPDATE SET
			open = EXCLUDED.open,
			high = EXCLUDED.high,
			low = EXCLUDED.low,
			close = EXCLUDED.close,
			volume = EXCLUDED.volume
	`

	for _, b := range bars {
		_, err := tx.Exec(ctx, query,
			b.TickerID, domain.Day(b.Date), b.Open, b.High, b.Low, b.Close, b.Volume,
		)
		if err != nil {
			return fmt.Errorf("upsert daily bar: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

// GetOnDate retrieves the bar for a ticker on an exact date.
func (s *BarStore) GetOnDate(ctx context.Context, tickerID int64, date time.Time) (*domain.DailyBar, error) {
	query := `
		SELECT ticker_id, date, open, high, low, close, volume
		FROM daily_bars
		WHERE ticker_id = $1 AND date = $2
	`

	row := s.pool.QueryRow(ctx, query, tickerID, domain.Day(date))
	b, err := scanBar(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get bar on date: %w", err)
	}
	return b, nil
}

// GetFirstAfter retrieves the earliest bar strictly after the given date.
func (s *BarStore) GetFirstAfter(ctx context.Context, tickerID int64, after time.Time) (*domain.DailyBar, error) {
	query := `
		SELECT ticker_id, date, open, high, low, close, volume
		FROM daily_bars
		WHERE ticker_id = $1 AND date > $2
		ORDER BY date ASC
		LIMIT 1
	`

	row := s.pool.QueryRow(ctx, query, tickerID, domain.Day(after))
	b, err := scanBar(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get first bar after date: %w", err)
	}
	return b, nil
}

// GetRange retrieves bars within [start, end] inclusive, ordered by date ASC.
func (s *BarStore) GetRange(ctx context.Context, tickerID int64, start, end time.Time) ([]*domain.DailyBar, error) {
	query := `
		SELECT ticker_id, date, open, high, low, close, volume
		FROM daily_bars
		WHERE ticker_id = $1 AND date >= $2 AND date <= $3
		ORDER BY date ASC
	`

	rows, err := s.pool.Query(ctx, query, tickerID, domain.Day(start), domain.Day(end))
	if err != nil {
		return nil, fmt.Errorf("get bar range: %w", err)
	}
	defer rows.Close()

	return scanBars(rows)
}

// TradingDaysAfter returns up to n bar dates strictly after the given date,
// ordered ASC.
func (s *BarStore) TradingDaysAfter(ctx context.Context, tickerID int64, after time.Time, n int) ([]time.Time, error) {
	if n <= 0 {
		return nil, nil
	}

	query := `
		SELECT date
		FROM daily_bars
		WHERE ticker_id = $1 AND date > $2
		ORDER BY date ASC
		LIMIT $3
	`

	rows, err := s.pool.Query(ctx, query, tickerID, domain.Day(after), n)
	if err != nil {
		return nil, fmt.Errorf("get trading days after date: %w", err)
	}
	defer rows.Close()

	var dates []time.Time
	for rows.Next() {
		var d time.Time
		if err := rows.Scan(&d); err != nil {
			return nil, fmt.Errorf("scan trading day row: %w", err)
		}
		dates = append(dates, domain.Day(d))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trading day rows: %w", err)
	}

	return dates, nil
}

// scanBar scans a single row into a DailyBar.
func scanBar(row pgx.Row) (*domain.DailyBar, error) {
	var b domain.DailyBar
	if err := row.Scan(&b.TickerID, &b.Date, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume); err != nil {
		return nil, err
	}
	b.Date = domain.Day(b.Date)
	return &b, nil
}

// scanBars scans multiple rows into a slice of DailyBar.
func scanBars(rows pgx.Rows) ([]*domain.DailyBar, error) {
	var bars []*domain.DailyBar

	for rows.Next() {
		var b domain.DailyBar
		if err := rows.Scan(&b.TickerID, &b.Date, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume); err != nil {
			return nil, fmt.Errorf("scan bar row: %w", err)
		}
		b.Date = domain.Day(b.Date)
		bars = append(bars, &b)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate bar rows: %w", err)
	}

	return bars, nil
}
