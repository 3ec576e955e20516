// Package paper manages the simulated trade lifecycle: screener signals
// become pending trades, pending trades fill at the next day's open, and
// open trades run until a stop hit or a time exit closes them.
package paper

import "math"

// Lifecycle constants. The backtester uses the same values so paper results
// stay comparable to simulated ones.
const (
	// MomentumHoldDays is the planned holding period for momentum trades,
	// in trading days.
	MomentumHoldDays = 7

	// ReversionHoldDays is the planned holding period for reversion trades,
	// in trading days.
	ReversionHoldDays = 5

	// ReversionStop is the fixed stop distance for reversion trades,
	// as a fraction below entry.
	ReversionStop = 0.05

	// Slippage is applied against the trader on both entry and exit fills.
	Slippage = 0.002

	// Fees is the commission rate charged on each leg.
	Fees = 0.001
)

// Volatility-scaled position sizing.
const (
	// AccountSize is the notional account the sizing fractions apply to.
	AccountSize = 10_000

	// TargetRisk is the fraction of the account put at risk per trade.
	TargetRisk = 0.01

	// MinSizeFrac and MaxSizeFrac clamp the scaled position fraction.
	MinSizeFrac = 0.05
	MaxSizeFrac = 0.20

	// DefaultSizeFrac is used when a signal carries no volatility reading.
	DefaultSizeFrac = 0.10
)

// round2 rounds to cents. Money amounts are stored at this precision.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// round4 rounds to 4 decimal places. Prices, shares and stop levels are
// stored at this precision.
func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
