// Package screener generates daily momentum and mean-reversion entry signals
// from stored OHLCV bars and persists them for the paper-trading engine.
package screener

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/raysyhuang/gemini-STST/internal/domain"
	"github.com/raysyhuang/gemini-STST/internal/indicator"
	"github.com/raysyhuang/gemini-STST/internal/storage"
)

// Filter thresholds shared by both screens.
const (
	MinPrice = 5.0
	MinADV   = 1_500_000.0

	// Momentum screen
	MinATRPct = 8.0
	MinRVOL   = 2.0

	// Reversion screen
	MaxRSI2          = 10.0
	MaxDrawdown3DPct = -5.0
)

// At least 20 trading days of history are needed for the 20-day indicators;
// a 60-calendar-day window covers that with room for holidays.
const (
	LookbackCalendarDays = 60
	MinHistoryBars       = 20

	// A ticker whose latest bar is older than this many calendar days is
	// considered stale and skipped. Handles weekends and short halts.
	MaxStaleDays = 5
)

// Screener runs the daily filter chains over all active tickers.
type Screener struct {
	tickers storage.TickerStore
	bars    storage.BarStore
	signals storage.SignalStore
	log     zerolog.Logger
}

// New creates a Screener over the given stores.
func New(tickers storage.TickerStore, bars storage.BarStore, signals storage.SignalStore, log zerolog.Logger) *Screener {
	return &Screener{tickers: tickers, bars: bars, signals: signals, log: log}
}

// history returns a ticker's bars for the lookback window ending at
// screenDate, oldest first.
func (s *Screener) history(ctx context.Context, tickerID int64, screenDate time.Time) ([]*domain.DailyBar, error) {
	start := screenDate.AddDate(0, 0, -LookbackCalendarDays)
	return s.bars.GetRange(ctx, tickerID, start, screenDate)
}

// stale reports whether the latest bar is too old relative to screenDate.
func stale(latest *domain.DailyBar, screenDate time.Time) bool {
	return int(screenDate.Sub(latest.Date).Hours()/24) > MaxStaleDays
}

// Regime returns the current SPY/QQQ market regime. Missing index tickers or
// thin history degrade to Unknown rather than erroring.
func (s *Screener) Regime(ctx context.Context, screenDate time.Time) (domain.MarketRegime, error) {
	unknown := domain.MarketRegime{Regime: domain.RegimeUnknown}

	spyBars, err := s.indexHistory(ctx, "SPY", screenDate)
	if err != nil {
		return unknown, err
	}
	qqqBars, err := s.indexHistory(ctx, "QQQ", screenDate)
	if err != nil {
		return unknown, err
	}
	if len(spyBars) < MinHistoryBars || len(qqqBars) < MinHistoryBars {
		return unknown, nil
	}
	return indicator.DetectRegime(spyBars, qqqBars), nil
}

func (s *Screener) indexHistory(ctx context.Context, symbol string, screenDate time.Time) ([]*domain.DailyBar, error) {
	ticker, err := s.tickers.GetBySymbol(ctx, symbol)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup %s: %w", symbol, err)
	}
	bars, err := s.history(ctx, ticker.ID, screenDate)
	if err != nil {
		return nil, fmt.Errorf("load %s history: %w", symbol, err)
	}
	return bars, nil
}

func last(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	return values[len(values)-1]
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }
func round2(v float64) float64 { return math.Round(v*100) / 100 }
