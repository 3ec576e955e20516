package paper

import (
	"context"
	"testing"
	"time"

	"github.com/raysyhuang/gemini-STST/internal/domain"
	"github.com/raysyhuang/gemini-STST/internal/storage/memory"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// seedConstantRangeBars inserts n consecutive daily bars ending at end, each
// with high=close+1, low=close-1 (true range 2).
func seedConstantRangeBars(t *testing.T, bars *memory.BarStore, tickerID int64, end time.Time, n int, close float64) {
	t.Helper()
	batch := make([]*domain.DailyBar, 0, n)
	for i := n - 1; i >= 0; i-- {
		batch = append(batch, &domain.DailyBar{
			TickerID: tickerID,
			Date:     end.AddDate(0, 0, -i),
			Open:     close,
			High:     close + 1,
			Low:      close - 1,
			Close:    close,
			Volume:   1_000_000,
		})
	}
	if err := bars.UpsertBulk(context.Background(), batch); err != nil {
		t.Fatalf("seed bars: %v", err)
	}
}

func TestChandelierStop_ATRBased(t *testing.T) {
	bars := memory.NewBarStore()
	entry := day(2024, 3, 4)

	// Constant TR of 2 on a $100 close: daily ATR fraction = 0.02, so the
	// chandelier trails 2x that = 4% below the highest high.
	seedConstantRangeBars(t, bars, 1, entry, 20, 100)

	stops := NewStopCalculator(bars)
	stop, err := stops.ChandelierStop(context.Background(), 1, entry, 105)
	if err != nil {
		t.Fatalf("ChandelierStop failed: %v", err)
	}
	if stop != 100.8 { // 105 * 0.96
		t.Errorf("stop = %f, want 100.8", stop)
	}
}

func TestChandelierStop_ThinHistoryFallback(t *testing.T) {
	bars := memory.NewBarStore()
	entry := day(2024, 3, 4)

	// 14 bars is below the 15-bar minimum.
	seedConstantRangeBars(t, bars, 1, entry, 14, 100)

	stops := NewStopCalculator(bars)
	stop, err := stops.ChandelierStop(context.Background(), 1, entry, 105)
	if err != nil {
		t.Fatalf("ChandelierStop failed: %v", err)
	}
	if stop != 94.5 { // 105 * 0.90
		t.Errorf("stop = %f, want 94.5 (flat fallback)", stop)
	}
}

func TestChandelierStop_NaNATRFallback(t *testing.T) {
	bars := memory.NewBarStore()
	entry := day(2024, 3, 4)

	// 15 bars clears the bar-count minimum; zero closes make ATR% undefined.
	batch := make([]*domain.DailyBar, 0, 15)
	for i := 14; i >= 0; i-- {
		batch = append(batch, &domain.DailyBar{
			TickerID: 1,
			Date:     entry.AddDate(0, 0, -i),
			High:     1, Low: 0.5, Close: 0,
			Volume: 1,
		})
	}
	if err := bars.UpsertBulk(context.Background(), batch); err != nil {
		t.Fatalf("seed bars: %v", err)
	}

	stops := NewStopCalculator(bars)
	stop, err := stops.ChandelierStop(context.Background(), 1, entry, 10)
	if err != nil {
		t.Fatalf("ChandelierStop failed: %v", err)
	}
	if stop != 9.0 { // 10 * 0.90
		t.Errorf("stop = %f, want 9.0 (NaN fallback)", stop)
	}
}

func TestReversionStop(t *testing.T) {
	stops := NewStopCalculator(memory.NewBarStore())

	if got := stops.ReversionStop(41.2863); got != 39.222 {
		t.Errorf("ReversionStop = %f, want 39.222", got)
	}
}
