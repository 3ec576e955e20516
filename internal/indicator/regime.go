package indicator

import (
	"math"

	"github.com/raysyhuang/gemini-STST/internal/domain"
)

// DetectRegime classifies the broad market from SPY and QQQ daily bars.
// Bullish when both indexes close above their 20-day SMA, Bearish when both
// close below, Mixed otherwise. If either index lacks enough history the
// regime is Unknown and the corresponding indicator pointer stays nil.
func DetectRegime(spyBars, qqqBars []*domain.DailyBar) domain.MarketRegime {
	spyAbove := aboveSMA(spyBars, DefaultSMAPeriod)
	qqqAbove := aboveSMA(qqqBars, DefaultSMAPeriod)

	regime := domain.MarketRegime{
		SPYAboveSMA20: spyAbove,
		QQQAboveSMA20: qqqAbove,
		Regime:        domain.RegimeUnknown,
	}
	if spyAbove == nil || qqqAbove == nil {
		return regime
	}

	switch {
	case *spyAbove && *qqqAbove:
		regime.Regime = domain.RegimeBullish
	case !*spyAbove && !*qqqAbove:
		regime.Regime = domain.RegimeBearish
	default:
		regime.Regime = domain.RegimeMixed
	}
	return regime
}

func aboveSMA(bars []*domain.DailyBar, period int) *bool {
	if len(bars) < period {
		return nil
	}
	sma := SMA(bars, period)
	last := sma[len(sma)-1]
	if math.IsNaN(last) {
		return nil
	}
	above := bars[len(bars)-1].Close > last
	return &above
}
