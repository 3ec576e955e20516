package paper

import (
	"time"

	"github.com/raysyhuang/gemini-STST/internal/domain"
)

// closeTrade finalizes a trade at the given exit price and computes realized
// PnL. Gross PnL is price movement times shares; commissions are charged on
// both legs at the notional actually traded.
func closeTrade(trade *domain.PaperTrade, exitPrice float64, exitDate time.Time, reason string) {
	exitDate = domain.Day(exitDate)
	trade.Status = domain.StatusClosed
	trade.ExitPrice = &exitPrice
	trade.ActualExitDate = &exitDate
	trade.ExitReason = &reason

	if trade.EntryPrice == nil || trade.Shares == nil {
		return
	}
	entryPrice, shares := *trade.EntryPrice, *trade.Shares

	gross := (exitPrice - entryPrice) * shares
	entryFees := entryPrice * shares * Fees
	exitFees := exitPrice * shares * Fees

	pnl := round2(gross - entryFees - exitFees)
	pnlPct := round2(pnl / trade.PositionSize * 100)
	trade.PnLDollars = &pnl
	trade.PnLPct = &pnlPct
}
