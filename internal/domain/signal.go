package domain

import "time"

// Strategy identifies which setup produced a signal or trade.
type Strategy string

// Strategy constants.
const (
	StrategyMomentum  Strategy = "momentum"
	StrategyReversion Strategy = "reversion"
)

// Valid reports whether s is a known strategy tag.
func (s Strategy) Valid() bool {
	return s == StrategyMomentum || s == StrategyReversion
}

// Signal is an entry opportunity for a ticker on a date.
// Momentum and reversion signals carry different trigger context but are
// consumed polymorphically by the position sizer and trade creator.
type Signal interface {
	// SignalTickerID returns the ticker the signal fired for.
	SignalTickerID() int64

	// SignalDate returns the date the signal fired (UTC midnight).
	SignalDate() time.Time

	// StrategyTag returns the strategy variant.
	StrategyTag() Strategy

	// VolatilityPct returns the weekly-projected ATR percentage at trigger
	// time, or ok=false when the signal carries no volatility reading.
	VolatilityPct() (pct float64, ok bool)

	// QualityScore returns the 0-100 setup quality score, or ok=false when
	// the signal was not scored.
	QualityScore() (score float64, ok bool)
}

// MomentumSignal is a high-volume breakout candidate.
// Corresponds to the momentum_signals table; (ticker_id, date) is unique.
type MomentumSignal struct {
	TickerID        int64
	Date            time.Time
	TriggerPrice    float64
	RVOLAtTrigger   float64
	ATRPctAtTrigger float64
	Quality         *float64
}

func (s *MomentumSignal) SignalTickerID() int64 { return s.TickerID }
func (s *MomentumSignal) SignalDate() time.Time { return s.Date }
func (s *MomentumSignal) StrategyTag() Strategy { return StrategyMomentum }

func (s *MomentumSignal) VolatilityPct() (float64, bool) {
	return s.ATRPctAtTrigger, s.ATRPctAtTrigger > 0
}

func (s *MomentumSignal) QualityScore() (float64, bool) {
	if s.Quality == nil {
		return 0, false
	}
	return *s.Quality, true
}

// ReversionSignal is an oversold snap-back candidate.
// Corresponds to the reversion_signals table; (ticker_id, date) is unique.
type ReversionSignal struct {
	TickerID       int64
	Date           time.Time
	TriggerPrice   float64
	RSI2AtTrigger  float64
	Drawdown3DPct  float64
	SMADistancePct float64
	Quality        *float64
}

func (s *ReversionSignal) SignalTickerID() int64 { return s.TickerID }
func (s *ReversionSignal) SignalDate() time.Time { return s.Date }
func (s *ReversionSignal) StrategyTag() Strategy { return StrategyReversion }

// VolatilityPct always reports ok=false: reversion signals are qualified on
// RSI and drawdown, not ATR, so sizing falls back to the default fraction.
func (s *ReversionSignal) VolatilityPct() (float64, bool) { return 0, false }

func (s *ReversionSignal) QualityScore() (float64, bool) {
	if s.Quality == nil {
		return 0, false
	}
	return *s.Quality, true
}

// Compile-time interface checks.
var (
	_ Signal = (*MomentumSignal)(nil)
	_ Signal = (*ReversionSignal)(nil)
)
