package indicator

import (
	"math"

	"github.com/raysyhuang/gemini-STST/internal/domain"
)

// DefaultRSIPeriod is the fast RSI window the reversion screener keys on.
const DefaultRSIPeriod = 2

// RSI computes the Wilder-smoothed Relative Strength Index of closes.
// The first period positions are NaN. A window with no losses reads 100,
// one with no gains reads 0.
func RSI(bars []*domain.DailyBar, period int) []float64 {
	rsi := make([]float64, len(bars))
	for i := range rsi {
		rsi[i] = math.NaN()
	}
	if period <= 0 || len(bars) <= period {
		return rsi
	}

	var avgGain, avgLoss float64
	for i := 1; i <= period; i++ {
		change := bars[i].Close - bars[i-1].Close
		if change > 0 {
			avgGain += change
		} else {
			avgLoss -= change
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)
	rsi[period] = rsiValue(avgGain, avgLoss)

	for i := period + 1; i < len(bars); i++ {
		change := bars[i].Close - bars[i-1].Close
		gain, loss := 0.0, 0.0
		if change > 0 {
			gain = change
		} else {
			loss = -change
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
		rsi[i] = rsiValue(avgGain, avgLoss)
	}

	return rsi
}

func rsiValue(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}
