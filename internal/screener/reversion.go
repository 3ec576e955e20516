package screener

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/raysyhuang/gemini-STST/internal/domain"
	"github.com/raysyhuang/gemini-STST/internal/indicator"
)

// drawdownBars is the lookback for the short-term drawdown filter: the close
// three trading days ago is the reference.
const drawdownBars = 3

// ReversionResult is one mean-reversion screen run.
type ReversionResult struct {
	Date     time.Time                 `json:"date"`
	Screened int                       `json:"screened"`
	Signals  []*domain.ReversionSignal `json:"signals"`
}

// RunReversion screens all active tickers for oversold snap-back candidates
// on screenDate: close above $5, 20-day average volume above 1.5M, RSI(2)
// below 10, and a 3-day drawdown of at least 5%. The distance from the
// 20-day SMA is recorded on each signal for downstream scoring. Signals are
// upserted by (ticker, date).
func (s *Screener) RunReversion(ctx context.Context, screenDate time.Time) (*ReversionResult, error) {
	screenDate = domain.Day(screenDate)

	tickers, err := s.tickers.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("list active tickers: %w", err)
	}

	var signals []*domain.ReversionSignal
	for _, ticker := range tickers {
		bars, err := s.history(ctx, ticker.ID, screenDate)
		if err != nil {
			return nil, fmt.Errorf("history for %s: %w", ticker.Symbol, err)
		}
		if len(bars) < MinHistoryBars {
			continue
		}

		latest := bars[len(bars)-1]
		if stale(latest, screenDate) {
			continue
		}
		if latest.Close <= MinPrice {
			continue
		}

		adv := last(indicator.ADV(bars, indicator.DefaultSMAPeriod))
		if math.IsNaN(adv) || adv <= MinADV {
			continue
		}
		rsi2 := last(indicator.RSI(bars, indicator.DefaultRSIPeriod))
		if math.IsNaN(rsi2) || rsi2 >= MaxRSI2 {
			continue
		}
		drawdown := drawdown3D(bars)
		if math.IsNaN(drawdown) || drawdown > MaxDrawdown3DPct {
			continue
		}

		sma := last(indicator.SMA(bars, indicator.DefaultSMAPeriod))
		smaDistance := math.NaN()
		if !math.IsNaN(sma) && sma != 0 {
			smaDistance = (latest.Close - sma) / sma * 100
		}

		sig := &domain.ReversionSignal{
			TickerID:      ticker.ID,
			Date:          latest.Date,
			TriggerPrice:  round2(latest.Close),
			RSI2AtTrigger: round1(rsi2),
			Drawdown3DPct: round1(drawdown),
		}
		if !math.IsNaN(smaDistance) {
			sig.SMADistancePct = round2(smaDistance)
		}
		signals = append(signals, sig)
	}

	if err := s.signals.UpsertReversion(ctx, signals); err != nil {
		return nil, fmt.Errorf("save reversion signals: %w", err)
	}

	s.log.Info().
		Int("screened", len(tickers)).
		Int("signals", len(signals)).
		Str("date", screenDate.Format("2006-01-02")).
		Msg("reversion screen complete")

	return &ReversionResult{Date: screenDate, Screened: len(tickers), Signals: signals}, nil
}

// drawdown3D returns the percent change from the close drawdownBars trading
// days ago to the latest close, or NaN with insufficient history.
func drawdown3D(bars []*domain.DailyBar) float64 {
	if len(bars) <= drawdownBars {
		return math.NaN()
	}
	ref := bars[len(bars)-1-drawdownBars].Close
	if ref == 0 {
		return math.NaN()
	}
	return (bars[len(bars)-1].Close - ref) / ref * 100
}
