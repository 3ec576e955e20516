package storage

import (
	"context"
	"time"

	"github.com/raysyhuang/gemini-STST/internal/domain"
)

// TickerStore provides access to tickers storage.
type TickerStore interface {
	// Upsert inserts a ticker or updates it by symbol. Sets t.ID.
	Upsert(ctx context.Context, t *domain.Ticker) error

	// GetByID retrieves a ticker by ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, id int64) (*domain.Ticker, error)

	// GetBySymbol retrieves a ticker by symbol. Returns ErrNotFound if not exists.
	GetBySymbol(ctx context.Context, symbol string) (*domain.Ticker, error)

	// ListActive retrieves all active tickers ordered by symbol ASC.
	ListActive(ctx context.Context) ([]*domain.Ticker, error)
}

// BarStore provides access to daily OHLCV bars.
type BarStore interface {
	// UpsertBulk inserts bars, replacing any existing (ticker_id, date) rows.
	// The whole batch is applied atomically.
	UpsertBulk(ctx context.Context, bars []*domain.DailyBar) error

	// GetOnDate retrieves the bar for a ticker on an exact date.
	// Returns ErrNotFound if no bar exists for that date.
	GetOnDate(ctx context.Context, tickerID int64, date time.Time) (*domain.DailyBar, error)

	// GetFirstAfter retrieves the earliest bar strictly after the given date.
	// Returns ErrNotFound if no later bar exists yet.
	GetFirstAfter(ctx context.Context, tickerID int64, after time.Time) (*domain.DailyBar, error)

	// GetRange retrieves bars within [start, end] inclusive, ordered by date ASC.
	GetRange(ctx context.Context, tickerID int64, start, end time.Time) ([]*domain.DailyBar, error)

	// TradingDaysAfter returns up to n bar dates strictly after the given
	// date, ordered ASC. Fewer than n dates may be returned.
	TradingDaysAfter(ctx context.Context, tickerID int64, after time.Time, n int) ([]time.Time, error)
}

// SignalStore provides access to screener signal storage.
type SignalStore interface {
	// UpsertMomentum writes momentum signals, replacing existing
	// (ticker_id, date) rows. Applied atomically.
	UpsertMomentum(ctx context.Context, signals []*domain.MomentumSignal) error

	// UpsertReversion writes reversion signals, replacing existing
	// (ticker_id, date) rows. Applied atomically.
	UpsertReversion(ctx context.Context, signals []*domain.ReversionSignal) error

	// MomentumByDate retrieves all momentum signals for a date, ordered by
	// ticker_id ASC.
	MomentumByDate(ctx context.Context, date time.Time) ([]*domain.MomentumSignal, error)

	// ReversionByDate retrieves all reversion signals for a date, ordered by
	// ticker_id ASC.
	ReversionByDate(ctx context.Context, date time.Time) ([]*domain.ReversionSignal, error)

	// LatestSignalDate returns the most recent date carrying a signal of the
	// given strategy. Returns ErrNotFound when no signals exist.
	LatestSignalDate(ctx context.Context, strategy domain.Strategy) (time.Time, error)
}

// TradeStore provides access to paper trade storage. Trades are append-only
// at the record level (never deleted) but mutate through the forward-only
// status lifecycle.
type TradeStore interface {
	// Insert adds a new trade and sets t.ID. Returns ErrDuplicateKey if a
	// trade already exists for (ticker_id, signal_date, strategy).
	Insert(ctx context.Context, t *domain.PaperTrade) error

	// InsertBulk adds multiple trades atomically. Fails the entire batch on
	// any duplicate.
	InsertBulk(ctx context.Context, trades []*domain.PaperTrade) error

	// Update overwrites a trade by ID. Returns ErrNotFound if not exists.
	Update(ctx context.Context, t *domain.PaperTrade) error

	// UpdateBulk overwrites multiple trades atomically. A batch that would
	// partially fail applies no mutation at all.
	UpdateBulk(ctx context.Context, trades []*domain.PaperTrade) error

	// GetByID retrieves a trade by ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, id int64) (*domain.PaperTrade, error)

	// FindByNaturalKey retrieves a trade by its dedup key.
	// Returns ErrNotFound if not exists.
	FindByNaturalKey(ctx context.Context, tickerID int64, signalDate time.Time, strategy domain.Strategy) (*domain.PaperTrade, error)

	// ListByStatus retrieves all trades with the given status, ordered by
	// signal_date ASC, id ASC.
	ListByStatus(ctx context.Context, status domain.TradeStatus) ([]*domain.PaperTrade, error)

	// ListAll retrieves every trade, ordered by signal_date DESC, id DESC.
	ListAll(ctx context.Context) ([]*domain.PaperTrade, error)
}
