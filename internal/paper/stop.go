package paper

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/raysyhuang/gemini-STST/internal/domain"
	"github.com/raysyhuang/gemini-STST/internal/indicator"
	"github.com/raysyhuang/gemini-STST/internal/storage"
)

const (
	// chandelierLookbackDays is the calendar window of bars loaded to
	// estimate ATR for the trailing stop.
	chandelierLookbackDays = 60

	// chandelierMinBars is the minimum bar count below which the stop
	// falls back to a flat 10% below the highest high.
	chandelierMinBars = 15

	// chandelierMultiple is the ATR multiple trailed below the highest high.
	chandelierMultiple = 2.0

	// chandelierFallback is the flat stop fraction used when ATR cannot
	// be estimated.
	chandelierFallback = 0.10
)

// StopCalculator derives stop levels from stored price history.
type StopCalculator struct {
	bars storage.BarStore
}

// NewStopCalculator creates a StopCalculator reading from the given bar store.
func NewStopCalculator(bars storage.BarStore) *StopCalculator {
	return &StopCalculator{bars: bars}
}

// ChandelierStop computes the trailing stop for a momentum trade: the highest
// high since entry, trailed down by twice the daily ATR fraction. The ATR
// window always ends at the entry date, so later recomputations move the stop
// only through a new highest high, never through a volatility change.
//
// Falls back to a flat 10% below the highest high when history is thin or the
// ATR is not yet defined.
func (c *StopCalculator) ChandelierStop(ctx context.Context, tickerID int64, entryDate time.Time, highestHigh float64) (float64, error) {
	start := domain.Day(entryDate).AddDate(0, 0, -chandelierLookbackDays)
	rows, err := c.bars.GetRange(ctx, tickerID, start, entryDate)
	if err != nil {
		return 0, fmt.Errorf("load bars for chandelier stop: %w", err)
	}
	if len(rows) < chandelierMinBars {
		return round4(highestHigh * (1 - chandelierFallback)), nil
	}

	atrPct := indicator.ATRPct(rows, indicator.DefaultATRPeriod)
	last := atrPct[len(atrPct)-1]
	if math.IsNaN(last) {
		return round4(highestHigh * (1 - chandelierFallback)), nil
	}

	// ATR% is a weekly projection; undo the sqrt(5) scaling to get the
	// daily fraction before applying the trail multiple.
	trailFrac := chandelierMultiple * last / (math.Sqrt(5) * 100)
	return round4(highestHigh * (1 - trailFrac)), nil
}

// ReversionStop computes the fixed stop for a reversion trade.
func (c *StopCalculator) ReversionStop(entryPrice float64) float64 {
	return round4(entryPrice * (1 - ReversionStop))
}
