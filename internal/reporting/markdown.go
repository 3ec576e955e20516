package reporting

import (
	"fmt"
	"strings"
	"time"

	"github.com/raysyhuang/gemini-STST/internal/domain"
)

// RenderMarkdown renders the report as a Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	sb.WriteString("# Paper Trading Performance Report\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))

	m := r.Metrics
	sb.WriteString("## Portfolio Summary\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Total Trades | %d |\n", m.TotalTrades))
	sb.WriteString(fmt.Sprintf("| Open Trades | %d |\n", m.OpenTrades))
	sb.WriteString(fmt.Sprintf("| Closed Trades | %d |\n", m.ClosedTrades))
	sb.WriteString(fmt.Sprintf("| Win Rate | %.1f%% |\n", m.WinRate))
	sb.WriteString(fmt.Sprintf("| Profit Factor | %.2f |\n", m.ProfitFactor))
	sb.WriteString(fmt.Sprintf("| Total PnL | $%.2f |\n", m.TotalPnL))
	sb.WriteString(fmt.Sprintf("| Avg Return | %.2f%% |\n", m.AvgReturnPct))
	sb.WriteString(fmt.Sprintf("| Avg Hold | %.1f days |\n", m.AvgHoldDays))
	sb.WriteString(fmt.Sprintf("| Best Trade | %.2f%% |\n", m.BestTradePct))
	sb.WriteString(fmt.Sprintf("| Worst Trade | %.2f%% |\n", m.WorstTradePct))
	sb.WriteString("\n")

	sb.WriteString("## Strategy Breakdown\n\n")
	sb.WriteString("| Strategy | Trades | Win Rate | Avg Return | Total PnL |\n")
	sb.WriteString("|----------|--------|----------|------------|----------|\n")
	writeBreakdown(&sb, "Momentum", m.Momentum)
	writeBreakdown(&sb, "Reversion", m.Reversion)
	sb.WriteString("\n")

	sb.WriteString("## Trades\n\n")
	if len(r.Trades) == 0 {
		sb.WriteString("No trades recorded.\n")
		return sb.String()
	}

	sb.WriteString("| Ticker | Strategy | Status | Signal Date | Entry | Exit | PnL | PnL% | Hold | Exit Reason |\n")
	sb.WriteString("|--------|----------|--------|-------------|-------|------|-----|------|------|-------------|\n")
	for _, t := range r.Trades {
		sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s | %s | %s | %s | %s | %s | %s |\n",
			t.Ticker, t.Strategy, t.Status,
			t.SignalDate.Format("2006-01-02"),
			fmtPrice(t.EntryPrice), fmtPrice(t.ExitPrice),
			fmtMoney(t.PnLDollars), fmtPct(t.PnLPct),
			fmtHold(t.HoldDays), fmtStr(t.ExitReason)))
	}
	sb.WriteString("\n")

	return sb.String()
}

func writeBreakdown(sb *strings.Builder, name string, b domain.StrategyBreakdown) {
	sb.WriteString(fmt.Sprintf("| %s | %d | %.1f%% | %.2f%% | $%.2f |\n",
		name, b.TotalTrades, b.WinRate, b.AvgReturnPct, b.TotalPnL))
}

func fmtPrice(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%.4f", *v)
}

func fmtMoney(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("$%.2f", *v)
}

func fmtPct(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%.2f%%", *v)
}

func fmtHold(v *int) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%dd", *v)
}

func fmtStr(v *string) string {
	if v == nil {
		return "-"
	}
	return *v
}
