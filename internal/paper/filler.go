package paper

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/raysyhuang/gemini-STST/internal/domain"
	"github.com/raysyhuang/gemini-STST/internal/storage"
)

// plannedExitFallbackFactor converts trading days to calendar days when the
// bar store does not yet have enough future dates to count forward.
const plannedExitFallbackFactor = 1.5

// Filler opens pending trades once the first post-signal bar arrives.
type Filler struct {
	trades storage.TradeStore
	bars   storage.BarStore
	stops  *StopCalculator
	log    zerolog.Logger
}

// NewFiller creates a Filler.
func NewFiller(trades storage.TradeStore, bars storage.BarStore, stops *StopCalculator, log zerolog.Logger) *Filler {
	return &Filler{trades: trades, bars: bars, stops: stops, log: log}
}

// FillPendingTrades fills every pending trade that has a bar after its signal
// date: entry at the next bar's open plus slippage, shares sized from the
// position, the initial stop from the strategy's stop policy, and a planned
// exit on the Nth trading day after entry. Trades without a next bar stay
// pending for a later run. All fills are committed in a single UpdateBulk at
// the end, so a failure part-way leaves every trade pending. Returns the
// number of trades filled.
func (f *Filler) FillPendingTrades(ctx context.Context) (int, error) {
	pending, err := f.trades.ListByStatus(ctx, domain.StatusPending)
	if err != nil {
		return 0, fmt.Errorf("list pending trades: %w", err)
	}
	if len(pending) == 0 {
		return 0, nil
	}

	batch := make([]*domain.PaperTrade, 0, len(pending))
	for _, trade := range pending {
		nextBar, err := f.bars.GetFirstAfter(ctx, trade.TickerID, trade.SignalDate)
		if errors.Is(err, storage.ErrNotFound) {
			continue // no data yet, keep pending
		}
		if err != nil {
			return 0, fmt.Errorf("next bar for ticker %d: %w", trade.TickerID, err)
		}

		entryPrice := round4(nextBar.Open * (1 + Slippage))
		shares := round4(trade.PositionSize / entryPrice)
		entryDate := nextBar.Date
		highestHigh := nextBar.High

		var stopLevel float64
		if trade.Strategy == domain.StrategyMomentum {
			stopLevel, err = f.stops.ChandelierStop(ctx, trade.TickerID, entryDate, highestHigh)
			if err != nil {
				return 0, fmt.Errorf("stop for ticker %d: %w", trade.TickerID, err)
			}
		} else {
			stopLevel = f.stops.ReversionStop(entryPrice)
		}

		holdDays := MomentumHoldDays
		if trade.Strategy == domain.StrategyReversion {
			holdDays = ReversionHoldDays
		}
		plannedExit, err := f.plannedExitDate(ctx, trade.TickerID, entryDate, holdDays)
		if err != nil {
			return 0, fmt.Errorf("planned exit for ticker %d: %w", trade.TickerID, err)
		}

		trade.Status = domain.StatusOpen
		trade.EntryDate = &entryDate
		trade.EntryPrice = &entryPrice
		trade.Shares = &shares
		trade.HighestHighSinceEntry = &highestHigh
		trade.StopLevel = &stopLevel
		trade.PlannedExitDate = &plannedExit
		batch = append(batch, trade)
	}

	if len(batch) == 0 {
		return 0, nil
	}
	if err := f.trades.UpdateBulk(ctx, batch); err != nil {
		return 0, fmt.Errorf("open filled trades: %w", err)
	}

	f.log.Info().Int("filled", len(batch)).Msg("filled pending trades")
	return len(batch), nil
}

// plannedExitDate returns the nth trading day after entry, or a calendar
// approximation (ceil of n*1.5 days) when the bar store has fewer than n
// future dates.
func (f *Filler) plannedExitDate(ctx context.Context, tickerID int64, entryDate time.Time, n int) (time.Time, error) {
	dates, err := f.bars.TradingDaysAfter(ctx, tickerID, entryDate, n)
	if err != nil {
		return time.Time{}, fmt.Errorf("trading days after entry: %w", err)
	}
	if len(dates) == n {
		return dates[n-1], nil
	}
	calendarDays := int(math.Ceil(float64(n) * plannedExitFallbackFactor))
	return domain.Day(entryDate).AddDate(0, 0, calendarDays), nil
}
