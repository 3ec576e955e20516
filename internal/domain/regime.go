package domain

// Market regime labels derived from SPY/QQQ vs their 20-day SMA.
const (
	RegimeBullish = "Bullish"
	RegimeBearish = "Bearish"
	RegimeMixed   = "Mixed"
	RegimeUnknown = "Unknown"
)

// MarketRegime is the current broad-market state. The indicator booleans are
// nil when the underlying index history is unavailable.
type MarketRegime struct {
	SPYAboveSMA20 *bool  `json:"spy_above_sma20"`
	QQQAboveSMA20 *bool  `json:"qqq_above_sma20"`
	Regime        string `json:"regime"`
}
