package domain

import "time"

// StrategyBreakdown holds per-strategy performance over closed trades.
type StrategyBreakdown struct {
	TotalTrades  int     `json:"total_trades"`
	WinRate      float64 `json:"win_rate"`
	AvgReturnPct float64 `json:"avg_return_pct"`
	TotalPnL     float64 `json:"total_pnl"`
}

// MetricsReport is the portfolio-level performance summary across all paper
// trades. Rate and ratio metrics are 0.0 (never NaN) when no trades have
// closed; counts still reflect open trades.
type MetricsReport struct {
	TotalTrades  int `json:"total_trades"`
	OpenTrades   int `json:"open_trades"`
	ClosedTrades int `json:"closed_trades"`

	WinRate       float64 `json:"win_rate"`       // % of closed trades with pnl > 0
	ProfitFactor  float64 `json:"profit_factor"`  // gross profit / |gross loss|, 0.0 if no losers
	AvgReturnPct  float64 `json:"avg_return_pct"`
	TotalPnL      float64 `json:"total_pnl"`
	AvgHoldDays   float64 `json:"avg_hold_days"`
	BestTradePct  float64 `json:"best_trade_pct"`
	WorstTradePct float64 `json:"worst_trade_pct"`

	Momentum  StrategyBreakdown `json:"momentum"`
	Reversion StrategyBreakdown `json:"reversion"`
}

// TradeView is a paper trade joined with its ticker symbol and a derived
// hold-day count, shaped for API consumption.
type TradeView struct {
	ID              int64       `json:"id"`
	Ticker          string      `json:"ticker"`
	Strategy        Strategy    `json:"strategy"`
	SignalDate      time.Time   `json:"signal_date"`
	EntryDate       *time.Time  `json:"entry_date"`
	EntryPrice      *float64    `json:"entry_price"`
	Shares          *float64    `json:"shares"`
	PositionSize    float64     `json:"position_size"`
	QualityScore    *float64    `json:"quality_score"`
	StopLevel       *float64    `json:"stop_level"`
	PlannedExitDate *time.Time  `json:"planned_exit_date"`
	ActualExitDate  *time.Time  `json:"actual_exit_date"`
	ExitPrice       *float64    `json:"exit_price"`
	ExitReason      *string     `json:"exit_reason"`
	PnLDollars      *float64    `json:"pnl_dollars"`
	PnLPct          *float64    `json:"pnl_pct"`
	Status          TradeStatus `json:"status"`
	HoldDays        *int        `json:"hold_days"`
}
