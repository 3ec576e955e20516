package clickhouse

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"github.com/raysyhuang/gemini-STST/internal/domain"
	"github.com/raysyhuang/gemini-STST/internal/storage"
)

// BarStore implements storage.BarStore using ClickHouse. It backs the
// backtester, where range scans over years of daily bars dominate and
// Postgres row-at-a-time access is the bottleneck.
//
// daily_bars uses ReplacingMergeTree keyed on (ticker_id, date), so upserts
// are plain inserts and reads go through FINAL to collapse replaced rows.
type BarStore struct {
	conn *Conn
}

// NewBarStore creates a new BarStore.
func NewBarStore(conn *Conn) *BarStore {
	return &BarStore{conn: conn}
}

// Compile-time interface check.
var _ storage.BarStore = (*BarStore)(nil)

// UpsertBulk inserts bars. Later inserts for the same (ticker_id, date)
// replace earlier rows at merge time.
func (s *BarStore) UpsertBulk(ctx context.Context, bars []*domain.DailyBar) error {
	if len(bars) == 0 {
		return nil
	}
	for _, b := range bars {
		if b == nil || b.TickerID == 0 || b.Date.IsZero() {
			return storage.ErrInvalidInput
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO daily_bars (ticker_id, date, open, high, low, close, volume)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, b := range bars {
		err = batch.Append(
			b.TickerID, domain.Day(b.Date), b.Open, b.High, b.Low, b.Close, b.Volume,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetOnDate retrieves the bar for a ticker on an exact date.
func (s *BarStore) GetOnDate(ctx context.Context, tickerID int64, date time.Time) (*domain.DailyBar, error) {
	query := `
		SELECT ticker_id, date, open, high, low, close, volume
		FROM daily_bars FINAL
		WHERE ticker_id = ? AND date = ?
		LIMIT 1
	`

	rows, err := s.conn.Query(ctx, query, tickerID, domain.Day(date))
	if err != nil {
		return nil, fmt.Errorf("get bar on date: %w", err)
	}
	defer rows.Close()

	bars, err := scanBars(rows)
	if err != nil {
		return nil, err
	}
	if len(bars) == 0 {
		return nil, storage.ErrNotFound
	}
	return bars[0], nil
}

// GetFirstAfter retrieves the earliest bar strictly after the given date.
func (s *BarStore) GetFirstAfter(ctx context.Context, tickerID int64, after time.Time) (*domain.DailyBar, error) {
	query := `
		SELECT ticker_id, date, open, high, low, close, volume
		FROM daily_bars FINAL
		WHERE ticker_id = ? AND date > ?
		ORDER BY date ASC
		LIMIT 1
	`

	rows, err := s.conn.Query(ctx, query, tickerID, domain.Day(after))
	if err != nil {
		return nil, fmt.Errorf("get first bar after date: %w", err)
	}
	defer rows.Close()

	bars, err := scanBars(rows)
	if err != nil {
		return nil, err
	}
	if len(bars) == 0 {
		return nil, storage.ErrNotFound
	}
	return bars[0], nil
}

// GetRange retrieves bars within [start, end] inclusive, ordered by date ASC.
func (s *BarStore) GetRange(ctx context.Context, tickerID int64, start, end time.Time) ([]*domain.DailyBar, error) {
	query := `
		SELECT ticker_id, date, open, high, low, close, volume
		FROM daily_bars FINAL
		WHERE ticker_id = ? AND date >= ? AND date <= ?
		ORDER BY date ASC
	`

	rows, err := s.conn.Query(ctx, query, tickerID, domain.Day(start), domain.Day(end))
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
		FROM daily_bars FINAL
		WHERE ticker_id = ? AND date > ?
		ORDER BY date ASC
		LIMIT ?
	`

	rows, err := s.conn.Query(ctx, query, tickerID, domain.Day(after), n)
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

func scanBars(rows driver.Rows) ([]*domain.DailyBar, error) {
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
