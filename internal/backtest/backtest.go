// Package backtest replays the momentum entry rule over historical bars and
// reports per-ticker performance with an equity curve.
package backtest

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/raysyhuang/gemini-STST/internal/domain"
	"github.com/raysyhuang/gemini-STST/internal/indicator"
	"github.com/raysyhuang/gemini-STST/internal/observability"
	"github.com/raysyhuang/gemini-STST/internal/storage"
)

// Simulation parameters. Entry mirrors the momentum screen; the exits are a
// simplified protocol: a hard percentage stop instead of the live engine's
// trailing chandelier, plus the same 7-day time exit.
const (
	HoldDays    = 7
	StopLoss    = 0.03
	FeeRate     = 0.001
	InitialCash = 10_000.0

	MinEntryRVOL   = 2.0
	MinEntryATRPct = 8.0

	// MinBars is the minimum history needed for a meaningful run: indicator
	// warm-up plus room for at least one full trade.
	MinBars = 30

	DefaultYearsBack = 2
)

// ErrInsufficientData is returned when a ticker has too little history to
// simulate.
var ErrInsufficientData = errors.New("backtest: insufficient history")

// EquityPoint is one equity curve sample, shaped for charting frontends.
type EquityPoint struct {
	Time  string  `json:"time"` // YYYY-MM-DD
	Value float64 `json:"value"`
}

// Result is the per-ticker outcome of a simulation run.
type Result struct {
	Ticker         string        `json:"ticker"`
	TotalReturnPct float64       `json:"total_return_pct"`
	MaxDrawdownPct float64       `json:"max_drawdown_pct"`
	WinRate        float64       `json:"win_rate"`
	ProfitFactor   float64       `json:"profit_factor"` // 0.0 with no losing trades
	TotalTrades    int           `json:"total_trades"`
	EquityCurve    []EquityPoint `json:"equity_curve"`
}

// Engine runs bar-loop simulations against any bar store.
type Engine struct {
	tickers storage.TickerStore
	bars    storage.BarStore
	log     zerolog.Logger
}

// NewEngine creates an Engine.
func NewEngine(tickers storage.TickerStore, bars storage.BarStore, log zerolog.Logger) *Engine {
	return &Engine{tickers: tickers, bars: bars, log: log}
}

// RunSymbol simulates a single ticker by symbol over the trailing yearsBack
// years ending at asOf. Returns storage.ErrNotFound for unknown symbols and
// ErrInsufficientData when under MinBars of history exist.
func (e *Engine) RunSymbol(ctx context.Context, symbol string, asOf time.Time, yearsBack int) (*Result, error) {
	ticker, err := e.tickers.GetBySymbol(ctx, symbol)
	if err != nil {
		return nil, fmt.Errorf("lookup %s: %w", symbol, err)
	}

	to := domain.Day(asOf)
	from := to.AddDate(-yearsBack, 0, 0)
	bars, err := e.bars.GetRange(ctx, ticker.ID, from, to)
	if err != nil {
		return nil, fmt.Errorf("load bars for %s: %w", symbol, err)
	}
	if len(bars) < MinBars {
		return nil, fmt.Errorf("%s: %w", symbol, ErrInsufficientData)
	}

	result := simulate(ticker.Symbol, bars)
	observability.RecordBacktestRun()
	e.log.Info().
		Str("ticker", ticker.Symbol).
		Int("bars", len(bars)).
		Int("trades", result.TotalTrades).
		Float64("total_return_pct", result.TotalReturnPct).
		Msg("backtest complete")
	return result, nil
}

type openPosition struct {
	shares    float64
	cost      float64 // cash committed including entry fee
	stopPrice float64
	exitIdx   int // bar index of the scheduled time exit
}

// simulate runs the single-position bar loop. Entries trigger at the signal
// bar's close with all available cash; the stop is evaluated on closes and
// exits at the stop price. A position still open at the end of history is
// closed on the final bar.
func simulate(symbol string, bars []*domain.DailyBar) *Result {
	rvol := indicator.RVOL(bars, indicator.DefaultSMAPeriod)
	atrPct := indicator.ATRPct(bars, indicator.DefaultATRPeriod)

	cash := InitialCash
	var pos *openPosition
	var tradePnLs []float64

	curve := make([]EquityPoint, 0, len(bars))
	peak := InitialCash
	maxDD := 0.0

	closePosition := func(price float64) {
		proceeds := pos.shares * price * (1 - FeeRate)
		tradePnLs = append(tradePnLs, proceeds-pos.cost)
		cash += proceeds
		pos = nil
	}

	for i, bar := range bars {
		if pos != nil {
			switch {
			case bar.Close <= pos.stopPrice:
				closePosition(pos.stopPrice)
			case i >= pos.exitIdx || i == len(bars)-1:
				closePosition(bar.Close)
			}
		}

		if pos == nil && i < len(bars)-1 &&
			!math.IsNaN(rvol[i]) && rvol[i] > MinEntryRVOL &&
			!math.IsNaN(atrPct[i]) && atrPct[i] > MinEntryATRPct &&
			bar.Close > 0 {
			shares := cash * (1 - FeeRate) / bar.Close
			pos = &openPosition{
				shares:    shares,
				cost:      cash,
				stopPrice: bar.Close * (1 - StopLoss),
				exitIdx:   i + HoldDays,
			}
			cash = 0
		}

		equity := cash
		if pos != nil {
			equity += pos.shares * bar.Close
		}
		if equity > peak {
			peak = equity
		}
		if dd := (peak - equity) / peak * 100; dd > maxDD {
			maxDD = dd
		}
		curve = append(curve, EquityPoint{
			Time:  bar.Date.Format("2006-01-02"),
			Value: round2(equity),
		})
	}

	final := cash
	if pos != nil {
		final += pos.shares * bars[len(bars)-1].Close
	}

	result := &Result{
		Ticker:         symbol,
		TotalReturnPct: round2((final - InitialCash) / InitialCash * 100),
		MaxDrawdownPct: round2(maxDD),
		TotalTrades:    len(tradePnLs),
		EquityCurve:    curve,
	}

	if len(tradePnLs) > 0 {
		wins := 0
		var grossProfit, grossLoss float64
		for _, pnl := range tradePnLs {
			if pnl > 0 {
				wins++
				grossProfit += pnl
			} else {
				grossLoss += -pnl
			}
		}
		result.WinRate = round1(float64(wins) / float64(len(tradePnLs)) * 100)
		if grossLoss > 0 {
			result.ProfitFactor = round2(grossProfit / grossLoss)
		}
	}

	return result
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }
func round2(v float64) float64 { return math.Round(v*100) / 100 }
