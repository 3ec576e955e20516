package indicator

import (
	"math"

	"github.com/raysyhuang/gemini-STST/internal/domain"
)

// DefaultSMAPeriod is the moving-average window for trend and regime checks.
const DefaultSMAPeriod = 20

// SMA computes a simple moving average of closes over period bars.
func SMA(bars []*domain.DailyBar, period int) []float64 {
	return rollingMean(bars, period, func(b *domain.DailyBar) float64 { return b.Close })
}

// ADV computes the average daily volume over period bars.
func ADV(bars []*domain.DailyBar, period int) []float64 {
	return rollingMean(bars, period, func(b *domain.DailyBar) float64 { return float64(b.Volume) })
}

// RVOL computes relative volume: each bar's volume divided by the rolling
// average volume over period bars including the bar itself.
func RVOL(bars []*domain.DailyBar, period int) []float64 {
	avg := ADV(bars, period)
	rvol := make([]float64, len(bars))
	for i, b := range bars {
		if math.IsNaN(avg[i]) || avg[i] == 0 {
			rvol[i] = math.NaN()
			continue
		}
		rvol[i] = float64(b.Volume) / avg[i]
	}
	return rvol
}

func rollingMean(bars []*domain.DailyBar, period int, value func(*domain.DailyBar) float64) []float64 {
	out := make([]float64, len(bars))
	for i := range out {
		out[i] = math.NaN()
	}
	if period <= 0 || len(bars) < period {
		return out
	}

	var sum float64
	for i, b := range bars {
		sum += value(b)
		if i >= period {
			sum -= value(bars[i-period])
		}
		if i >= period-1 {
			out[i] = sum / float64(period)
		}
	}
	return out
}
