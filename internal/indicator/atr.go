// Package indicator provides the rolling technical indicators the screeners
// and stop policy are built on. All functions take bars sorted by date
// ascending and return a slice of the same length, with math.NaN() in the
// warmup positions where the window is not yet full.
package indicator

import (
	"math"

	"github.com/raysyhuang/gemini-STST/internal/domain"
)

// DefaultATRPeriod is the lookback used for volatility screening and stops.
const DefaultATRPeriod = 14

// TrueRanges computes the per-bar true range. The first bar has no previous
// close, so its true range is high minus low.
func TrueRanges(bars []*domain.DailyBar) []float64 {
	tr := make([]float64, len(bars))
	for i, b := range bars {
		hl := b.High - b.Low
		if i == 0 {
			tr[i] = hl
			continue
		}
		prevClose := bars[i-1].Close
		tr[i] = math.Max(hl, math.Max(math.Abs(b.High-prevClose), math.Abs(b.Low-prevClose)))
	}
	return tr
}

// ATR computes the Average True Range as a rolling simple mean of true range
// over period bars. Positions before the window fills are NaN.
func ATR(bars []*domain.DailyBar, period int) []float64 {
	atr := make([]float64, len(bars))
	for i := range atr {
		atr[i] = math.NaN()
	}
	if period <= 0 || len(bars) < period {
		return atr
	}

	tr := TrueRanges(bars)
	var sum float64
	for i, v := range tr {
		sum += v
		if i >= period {
			sum -= tr[i-period]
		}
		if i >= period-1 {
			atr[i] = sum / float64(period)
		}
	}
	return atr
}

// ATRPct expresses ATR as a percentage of the close, projected from a daily
// to a weekly move by sqrt-of-time scaling.
func ATRPct(bars []*domain.DailyBar, period int) []float64 {
	atr := ATR(bars, period)
	pct := make([]float64, len(bars))
	for i, b := range bars {
		if math.IsNaN(atr[i]) || b.Close == 0 {
			pct[i] = math.NaN()
			continue
		}
		pct[i] = atr[i] / b.Close * math.Sqrt(5) * 100
	}
	return pct
}
