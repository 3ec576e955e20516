package reporting

import (
	"fmt"
	"strings"
	"time"

	"github.com/raysyhuang/gemini-STST/internal/domain"
)

// RenderCSV renders the trade log as a CSV string.
func RenderCSV(trades []*domain.TradeView) string {
	var sb strings.Builder

	sb.WriteString("id,ticker,strategy,status,signal_date,entry_date,entry_price,shares,position_size,")
	sb.WriteString("stop_level,planned_exit_date,actual_exit_date,exit_price,exit_reason,pnl_dollars,pnl_pct,hold_days\n")

	for _, t := range trades {
		sb.WriteString(fmt.Sprintf("%d,%s,%s,%s,%s,%s,%s,%s,%.2f,%s,%s,%s,%s,%s,%s,%s,%s\n",
			t.ID, t.Ticker, t.Strategy, t.Status,
			t.SignalDate.Format("2006-01-02"),
			csvDate(t.EntryDate),
			csvFloat(t.EntryPrice, 4),
			csvFloat(t.Shares, 4),
			t.PositionSize,
			csvFloat(t.StopLevel, 4),
			csvDate(t.PlannedExitDate),
			csvDate(t.ActualExitDate),
			csvFloat(t.ExitPrice, 4),
			csvStr(t.ExitReason),
			csvFloat(t.PnLDollars, 2),
			csvFloat(t.PnLPct, 2),
			csvInt(t.HoldDays)))
	}

	return sb.String()
}

func csvDate(v *time.Time) string {
	if v == nil {
		return ""
	}
	return v.Format("2006-01-02")
}

func csvFloat(v *float64, decimals int) string {
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%.*f", decimals, *v)
}

func csvInt(v *int) string {
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%d", *v)
}

func csvStr(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
