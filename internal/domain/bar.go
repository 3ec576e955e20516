package domain

import "time"

// DailyBar is one day of OHLCV data for a ticker.
// Corresponds to the daily_bars table; (ticker_id, date) is unique.
type DailyBar struct {
	TickerID int64
	Date     time.Time // UTC midnight
	Open     float64
	High     float64
	Low      float64
	Close    float64
	Volume   int64
}

// Day normalizes a timestamp to a UTC calendar date.
// All bar and trade dates in the system are stored in this form.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// SameDay reports whether two timestamps fall on the same UTC calendar date.
func SameDay(a, b time.Time) bool {
	return Day(a).Equal(Day(b))
}
