package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/raysyhuang/gemini-STST/internal/domain"
	"github.com/raysyhuang/gemini-STST/internal/storage"
)

// TickerStore implements storage.TickerStore using PostgreSQL.
type TickerStore struct {
	pool *Pool
}

// NewTickerStore creates a new TickerStore.
func NewTickerStore(pool *Pool) *TickerStore {
	return &TickerStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TickerStore = (*TickerStore)(nil)

// Upsert inserts a ticker or updates it by symbol. Sets t.ID.
func (s *TickerStore) Upsert(ctx context.Context, t *domain.Ticker) error {
	if t == nil || t.Symbol == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO tickers (symbol, exchange, company_name, is_active)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (symbol) DO UPDATE SET
			exchange = EXCLUDED.exchange,
			company_name = EXCLUDED.company_name,
			is_active = EXCLUDED.is_active
		RETURNING id
	`

	err := s.pool.QueryRow(ctx, query,
		strings.ToUpper(t.Symbol), t.Exchange, t.CompanyName, t.IsActive,
	).Scan(&t.ID)
	if err != nil {
		return fmt.Errorf("upsert ticker: %w", err)
	}
	return nil
}

// GetByID retrieves a ticker by ID. Returns ErrNotFound if not exists.
func (s *TickerStore) GetByID(ctx context.Context, id int64) (*domain.Ticker, error) {
	query := `
		SELECT id, symbol, exchange, company_name, is_active
		FROM tickers
		WHERE id = $1
	`

	row := s.pool.QueryRow(ctx, query, id)
	t, err := scanTicker(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get ticker by id: %w", err)
	}
	return t, nil
}

// GetBySymbol retrieves a ticker by symbol. Returns ErrNotFound if not exists.
func (s *TickerStore) GetBySymbol(ctx context.Context, symbol string) (*domain.Ticker, error) {
	query := `
		SELECT id, symbol, exchange, company_name, is_active
		FROM tickers
		WHERE symbol = $1
	`

	row := s.pool.QueryRow(ctx, query, strings.ToUpper(symbol))
	t, err := scanTicker(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get ticker by symbol: %w", err)
	}
	return t, nil
}

// ListActive retrieves all active tickers ordered by symbol ASC.
func (s *TickerStore) ListActive(ctx context.Context) ([]*domain.Ticker, error) {
	query := `
		SELECT id, symbol, exchange, company_name, is_active
		FROM tickers
		WHERE is_active = TRUE
		ORDER BY symbol ASC
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list active tickers: %w", err)
	}
	defer rows.Close()

	var tickers []*domain.Ticker
	for rows.Next() {
		var t domain.Ticker
		if err := rows.Scan(&t.ID, &t.Symbol, &t.Exchange, &t.CompanyName, &t.IsActive); err != nil {
			return nil, fmt.Errorf("scan ticker row: %w", err)
		}
		tickers = append(tickers, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ticker rows: %w", err)
	}

	return tickers, nil
}

// scanTicker scans a single row into a Ticker.
func scanTicker(row pgx.Row) (*domain.Ticker, error) {
	var t domain.Ticker
	if err := row.Scan(&t.ID, &t.Symbol, &t.Exchange, &t.CompanyName, &t.IsActive); err != nil {
		return nil, err
	}
	return &t, nil
}
