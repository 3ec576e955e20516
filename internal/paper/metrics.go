package paper

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/raysyhuang/gemini-STST/internal/domain"
	"github.com/raysyhuang/gemini-STST/internal/storage"
)

// Aggregator computes portfolio metrics and API views over paper trades.
type Aggregator struct {
	trades  storage.TradeStore
	tickers storage.TickerStore
}

// NewAggregator creates an Aggregator.
func NewAggregator(trades storage.TradeStore, tickers storage.TickerStore) *Aggregator {
	return &Aggregator{trades: trades, tickers: tickers}
}

// Metrics summarizes performance across all closed trades. With no closed
// trades every rate and ratio is 0.0 (never NaN); trade counts still include
// open positions.
func (a *Aggregator) Metrics(ctx context.Context) (*domain.MetricsReport, error) {
	closed, err := a.trades.ListByStatus(ctx, domain.StatusClosed)
	if err != nil {
		return nil, fmt.Errorf("list closed trades: %w", err)
	}
	open, err := a.trades.ListByStatus(ctx, domain.StatusOpen)
	if err != nil {
		return nil, fmt.Errorf("list open trades: %w", err)
	}

	report := &domain.MetricsReport{
		TotalTrades:  len(closed) + len(open),
		OpenTrades:   len(open),
		ClosedTrades: len(closed),
	}
	if len(closed) == 0 {
		return report, nil
	}

	var winners, losers []*domain.PaperTrade
	for _, t := range closed {
		if pnlOf(t) > 0 {
			winners = append(winners, t)
		} else {
			losers = append(losers, t)
		}
	}

	report.WinRate = round1(float64(len(winners)) / float64(len(closed)) * 100)
	report.TotalPnL = round2(sumPnL(closed))
	report.AvgReturnPct = round2(sumPnLPct(closed) / float64(len(closed)))

	grossProfit := sumPnL(winners)
	grossLoss := math.Abs(sumPnL(losers))
	if grossLoss > 0 {
		report.ProfitFactor = round2(grossProfit / grossLoss)
	}

	var holdSum, holdCount float64
	best := math.Inf(-1)
	worst := math.Inf(1)
	for _, t := range closed {
		if t.EntryDate != nil && t.ActualExitDate != nil {
			holdSum += t.ActualExitDate.Sub(*t.EntryDate).Hours() / 24
			holdCount++
		}
		pct := pnlPctOf(t)
		best = math.Max(best, pct)
		worst = math.Min(worst, pct)
	}
	if holdCount > 0 {
		report.AvgHoldDays = round1(holdSum / holdCount)
	}
	report.BestTradePct = best
	report.WorstTradePct = worst

	report.Momentum = strategyBreakdown(closed, domain.StrategyMomentum)
	report.Reversion = strategyBreakdown(closed, domain.StrategyReversion)

	return report, nil
}

// ListTrades returns trades joined with ticker symbols for API consumption,
// newest signal first, optionally filtered by status ("" or "all" disables
// the filter). Hold days for open trades count from entry to now. Symbols
// are resolved with one ListActive call; only trades on delisted tickers
// fall back to a per-ID fetch.
func (a *Aggregator) ListTrades(ctx context.Context, status string, now time.Time) ([]*domain.TradeView, error) {
	trades, err := a.trades.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list trades: %w", err)
	}

	active, err := a.tickers.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("list active tickers: %w", err)
	}
	symbols := make(map[int64]string, len(active))
	for _, ticker := range active {
		symbols[ticker.ID] = ticker.Symbol
	}

	views := make([]*domain.TradeView, 0, len(trades))
	for _, t := range trades {
		if status != "" && status != "all" && string(t.Status) != status {
			continue
		}

		symbol, ok := symbols[t.TickerID]
		if !ok {
			ticker, err := a.tickers.GetByID(ctx, t.TickerID)
			if err != nil {
				return nil, fmt.Errorf("ticker %d for trade %d: %w", t.TickerID, t.ID, err)
			}
			symbol = ticker.Symbol
			symbols[t.TickerID] = symbol
		}

		view := &domain.TradeView{
			ID:              t.ID,
			Ticker:          symbol,
			Strategy:        t.Strategy,
			SignalDate:      t.SignalDate,
			EntryDate:       t.EntryDate,
			EntryPrice:      t.EntryPrice,
			Shares:          t.Shares,
			PositionSize:    t.PositionSize,
			QualityScore:    t.QualityScore,
			StopLevel:       t.StopLevel,
			PlannedExitDate: t.PlannedExitDate,
			ActualExitDate:  t.ActualExitDate,
			ExitPrice:       t.ExitPrice,
			ExitReason:      t.ExitReason,
			PnLDollars:      t.PnLDollars,
			PnLPct:          t.PnLPct,
			Status:          t.Status,
		}
		if days, ok := t.HoldDays(now); ok {
			view.HoldDays = &days
		}
		views = append(views, view)
	}

	return views, nil
}

func strategyBreakdown(closed []*domain.PaperTrade, strategy domain.Strategy) domain.StrategyBreakdown {
	var subset []*domain.PaperTrade
	for _, t := range closed {
		if t.Strategy == strategy {
			subset = append(subset, t)
		}
	}
	if len(subset) == 0 {
		return domain.StrategyBreakdown{}
	}

	wins := 0
	for _, t := range subset {
		if pnlOf(t) > 0 {
			wins++
		}
	}

	return domain.StrategyBreakdown{
		TotalTrades:  len(subset),
		WinRate:      round1(float64(wins) / float64(len(subset)) * 100),
		AvgReturnPct: round2(sumPnLPct(subset) / float64(len(subset))),
		TotalPnL:     round2(sumPnL(subset)),
	}
}

func pnlOf(t *domain.PaperTrade) float64 {
	if t.PnLDollars == nil {
		return 0
	}
	return *t.PnLDollars
}

func pnlPctOf(t *domain.PaperTrade) float64 {
	if t.PnLPct == nil {
		return 0
	}
	return *t.PnLPct
}

func sumPnL(trades []*domain.PaperTrade) float64 {
	var sum float64
	for _, t := range trades {
		sum += pnlOf(t)
	}
	return sum
}

func sumPnLPct(trades []*domain.PaperTrade) float64 {
	var sum float64
	for _, t := range trades {
		sum += pnlPctOf(t)
	}
	return sum
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
