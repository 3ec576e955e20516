package domain

import "time"

// TradeStatus is the lifecycle state of a paper trade.
// Transitions are strictly forward: pending → open → closed.
type TradeStatus string

// Trade status constants.
const (
	StatusPending TradeStatus = "pending"
	StatusOpen    TradeStatus = "open"
	StatusClosed  TradeStatus = "closed"
)

// Exit reason codes.
const (
	ExitReasonTrailingStop = "trailing_stop" // momentum chandelier stop hit
	ExitReasonStopLoss     = "stop_loss"     // reversion fixed stop hit
	ExitReasonTimeExit     = "time_exit"     // planned holding period elapsed
)

// PaperTrade represents a simulated trade through its full lifecycle.
// Corresponds to the paper_trades table; (ticker_id, signal_date, strategy)
// is unique.
//
// Nullable fields are pointers: entry fields are nil while pending and set
// exactly once at fill; exit fields are nil until closed. For momentum trades
// StopLevel and HighestHighSinceEntry may be updated repeatedly while open
// (ratchet only — the stop never moves against the holder).
type PaperTrade struct {
	ID         int64
	TickerID   int64
	Strategy   Strategy
	SignalDate time.Time

	PositionSize float64 // currency units, fixed at creation
	QualityScore *float64

	Status TradeStatus

	// Entry (set at fill)
	EntryDate             *time.Time
	EntryPrice            *float64
	Shares                *float64
	HighestHighSinceEntry *float64 // momentum only, monotonically non-decreasing
	StopLevel             *float64
	PlannedExitDate       *time.Time

	// Exit (set at close)
	ActualExitDate *time.Time
	ExitPrice      *float64
	ExitReason     *string
	PnLDollars     *float64
	PnLPct         *float64
}

// HoldDays returns realized hold length for closed trades, or days since
// entry (relative to asOf) for open ones. ok=false while pending.
func (t *PaperTrade) HoldDays(asOf time.Time) (int, bool) {
	if t.EntryDate == nil {
		return 0, false
	}
	end := Day(asOf)
	if t.ActualExitDate != nil {
		end = *t.ActualExitDate
	}
	return int(end.Sub(*t.EntryDate).Hours() / 24), true
}
