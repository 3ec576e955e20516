package screener

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/raysyhuang/gemini-STST/internal/domain"
	"github.com/raysyhuang/gemini-STST/internal/indicator"
)

// MomentumResult is one momentum screen run: the regime at screen time plus
// the signals that passed the filter chain, already persisted.
type MomentumResult struct {
	Date     time.Time                `json:"date"`
	Regime   domain.MarketRegime      `json:"regime"`
	Screened int                      `json:"screened"`
	Signals  []*domain.MomentumSignal `json:"signals"`
}

// RunMomentum screens all active tickers for high-volume volatile breakouts
// on screenDate. The filter chain, in order: close above $5, 20-day average
// volume above 1.5M shares, projected weekly ATR% above 8, relative
// volume above 2x. Tickers with under 20 bars of recent history or a stale
// latest bar are skipped. Passing signals are upserted, so re-running a day
// refreshes rather than duplicates.
func (s *Screener) RunMomentum(ctx context.Context, screenDate time.Time) (*MomentumResult, error) {
	screenDate = domain.Day(screenDate)

	regime, err := s.Regime(ctx, screenDate)
	if err != nil {
		return nil, err
	}
	if regime.Regime == domain.RegimeBearish {
		s.log.Warn().Msg("bearish regime: SPY and QQQ below 20-day SMA")
	}

	tickers, err := s.tickers.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("list active tickers: %w", err)
	}

	var signals []*domain.MomentumSignal
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
		atrPct := last(indicator.ATRPct(bars, indicator.DefaultATRPeriod))
		if math.IsNaN(atrPct) || atrPct <= MinATRPct {
			continue
		}
		rvol := last(indicator.RVOL(bars, indicator.DefaultSMAPeriod))
		if math.IsNaN(rvol) || rvol <= MinRVOL {
			continue
		}

		signals = append(signals, &domain.MomentumSignal{
			TickerID:        ticker.ID,
			Date:            latest.Date,
			TriggerPrice:    round2(latest.Close),
			RVOLAtTrigger:   round2(rvol),
			ATRPctAtTrigger: round1(atrPct),
		})
	}

	if err := s.signals.UpsertMomentum(ctx, signals); err != nil {
		return nil, fmt.Errorf("save momentum signals: %w", err)
	}

	s.log.Info().
		Int("screened", len(tickers)).
		Int("signals", len(signals)).
		Str("regime", regime.Regime).
		Str("date", screenDate.Format("2006-01-02")).
		Msg("momentum screen complete")

	return &MomentumResult{Date: screenDate, Regime: regime, Screened: len(tickers), Signals: signals}, nil
}
