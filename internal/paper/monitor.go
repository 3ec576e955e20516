package paper

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/raysyhuang/gemini-STST/internal/domain"
	"github.com/raysyhuang/gemini-STST/internal/observability"
	"github.com/raysyhuang/gemini-STST/internal/storage"
)

// Monitor advances open trades once per trading day.
type Monitor struct {
	trades storage.TradeStore
	bars   storage.BarStore
	stops  *StopCalculator
	log    zerolog.Logger
}

// NewMonitor creates a Monitor.
func NewMonitor(trades storage.TradeStore, bars storage.BarStore, stops *StopCalculator, log zerolog.Logger) *Monitor {
	return &Monitor{trades: trades, bars: bars, stops: stops, log: log}
}

// CheckOpenTrades evaluates every open trade against its ticker's bar on
// checkDate. Trades without a bar for that date are left untouched.
//
// Per trade, in this order:
//
//  1. Stop check (exclusive): if the bar's low touches the stop, the trade
//     closes at stop_level and nothing else runs. The pre-update stop is
//     used, never one ratcheted by today's high.
//  2. Trailing update (momentum only): a new highest high ratchets the
//     chandelier stop upward.
//  3. Time exit: once checkDate reaches planned_exit_date the trade closes
//     at the bar's close less slippage. This runs even when step 2 just
//     moved the stop.
//
// Every mutation — closes and trailing-stop ratchets alike — is committed in
// a single UpdateBulk at the end of the pass, so a failure leaves all open
// trades untouched. Returns the number of trades closed.
func (m *Monitor) CheckOpenTrades(ctx context.Context, checkDate time.Time) (int, error) {
	checkDate = domain.Day(checkDate)

	open, err := m.trades.ListByStatus(ctx, domain.StatusOpen)
	if err != nil {
		return 0, fmt.Errorf("list open trades: %w", err)
	}

	var (
		batch       []*domain.PaperTrade
		exitReasons []string
	)
	for _, trade := range open {
		bar, err := m.bars.GetOnDate(ctx, trade.TickerID, checkDate)
		if errors.Is(err, storage.ErrNotFound) {
			continue
		}
		if err != nil {
			return 0, fmt.Errorf("bar for ticker %d: %w", trade.TickerID, err)
		}

		// 1. Stop hit
		if trade.StopLevel != nil && bar.Low <= *trade.StopLevel {
			reason := domain.ExitReasonStopLoss
			if trade.Strategy == domain.StrategyMomentum {
				reason = domain.ExitReasonTrailingStop
			}
			closeTrade(trade, *trade.StopLevel, checkDate, reason)
			batch = append(batch, trade)
			exitReasons = append(exitReasons, reason)
			continue
		}

		dirty := false

		// 2. Momentum trailing stop update
		if trade.Strategy == domain.StrategyMomentum && trade.EntryDate != nil {
			prevHigh := 0.0
			if trade.HighestHighSinceEntry != nil {
				prevHigh = *trade.HighestHighSinceEntry
			}
			if bar.High > prevHigh {
				newHigh := bar.High
				stop, err := m.stops.ChandelierStop(ctx, trade.TickerID, *trade.EntryDate, newHigh)
				if err != nil {
					return 0, fmt.Errorf("trailing stop for trade %d: %w", trade.ID, err)
				}
				trade.HighestHighSinceEntry = &newHigh
				trade.StopLevel = &stop
				dirty = true
			}
		}

		// 3. Time exit
		if trade.PlannedExitDate != nil && !checkDate.Before(*trade.PlannedExitDate) {
			exitPrice := round4(bar.Close * (1 - Slippage))
			closeTrade(trade, exitPrice, checkDate, domain.ExitReasonTimeExit)
			batch = append(batch, trade)
			exitReasons = append(exitReasons, domain.ExitReasonTimeExit)
			continue
		}

		if dirty {
			batch = append(batch, trade)
		}
	}

	if len(batch) == 0 {
		return 0, nil
	}
	if err := m.trades.UpdateBulk(ctx, batch); err != nil {
		return 0, fmt.Errorf("commit daily trade pass: %w", err)
	}
	for _, reason := range exitReasons {
		observability.RecordTradeClosed(reason)
	}

	closed := len(exitReasons)
	if closed > 0 {
		m.log.Info().Int("closed", closed).Str("date", checkDate.Format("2006-01-02")).Msg("closed open trades")
	}
	return closed, nil
}
