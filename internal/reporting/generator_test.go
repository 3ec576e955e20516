package reporting

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/raysyhuang/gemini-STST/internal/domain"
	"github.com/raysyhuang/gemini-STST/internal/paper"
	"github.com/raysyhuang/gemini-STST/internal/storage/memory"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func seedReportData(t *testing.T) *paper.Aggregator {
	t.Helper()
	ctx := context.Background()
	tickers := memory.NewTickerStore()
	trades := memory.NewTradeStore()

	acme := &domain.Ticker{Symbol: "ACME", IsActive: true}
	if err := tickers.Upsert(ctx, acme); err != nil {
		t.Fatal(err)
	}

	entryDate := day(2024, 3, 5)
	exitDate := day(2024, 3, 12)
	entryPrice := 50.1
	shares := 19.96
	exitPrice := 55.0
	stop := 47.0
	reason := domain.ExitReasonTimeExit
	pnl := 95.71
	pnlPct := 9.57
	closed := &domain.PaperTrade{
		TickerID: acme.ID, Strategy: domain.StrategyMomentum,
		SignalDate: day(2024, 3, 4), PositionSize: 1000, Status: domain.StatusClosed,
		EntryDate: &entryDate, EntryPrice: &entryPrice, Shares: &shares,
		StopLevel: &stop, ActualExitDate: &exitDate, ExitPrice: &exitPrice,
		ExitReason: &reason, PnLDollars: &pnl, PnLPct: &pnlPct,
	}
	if err := trades.Insert(ctx, closed); err != nil {
		t.Fatal(err)
	}

	pending := &domain.PaperTrade{
		TickerID: acme.ID, Strategy: domain.StrategyReversion,
		SignalDate: day(2024, 3, 10), PositionSize: 1000, Status: domain.StatusPending,
	}
	if err := trades.Insert(ctx, pending); err != nil {
		t.Fatal(err)
	}

	return paper.NewAggregator(trades, tickers)
}

func TestGenerate_Markdown(t *testing.T) {
	gen := NewGenerator(seedReportData(t))

	report, err := gen.Generate(context.Background(), day(2024, 3, 15))
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if len(report.Trades) != 2 {
		t.Fatalf("len(Trades) = %d, want 2", len(report.Trades))
	}

	md := RenderMarkdown(report)
	for _, want := range []string{
		"# Paper Trading Performance Report",
		"| Total Trades | 1 |", // open trades count; pending excluded
		"| Closed Trades | 1 |",
		"| Win Rate | 100.0% |",
		"| Total PnL | $95.71 |",
		"| Momentum | 1 | 100.0% |",
		"| ACME | momentum | closed | 2024-03-04 | 50.1000 | 55.0000 | $95.71 | 9.57% | 7d | time_exit |",
		"| ACME | reversion | pending | 2024-03-10 | - | - | - | - | - | - |",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q\n%s", want, md)
		}
	}
}

func TestRenderCSV(t *testing.T) {
	gen := NewGenerator(seedReportData(t))
	report, err := gen.Generate(context.Background(), day(2024, 3, 15))
	if err != nil {
		t.Fatal(err)
	}

	csv := RenderCSV(report.Trades)
	lines := strings.Split(strings.TrimRight(csv, "\n"), "\n")
	if len(lines) != 3 { // header + 2 trades
		t.Fatalf("csv lines = %d, want 3\n%s", len(lines), csv)
	}
	if !strings.HasPrefix(lines[0], "id,ticker,strategy,status,signal_date") {
		t.Errorf("header = %s", lines[0])
	}
	// Newest signal first: the pending reversion trade leads.
	if !strings.Contains(lines[1], "ACME,reversion,pending,2024-03-10,,,,1000.00") {
		t.Errorf("pending row = %s", lines[1])
	}
	if !strings.Contains(lines[2], "ACME,momentum,closed,2024-03-04,2024-03-05,50.1000,19.9600,1000.00,47.0000,,2024-03-12,55.0000,time_exit,95.71,9.57,7") {
		t.Errorf("closed row = %s", lines[2])
	}
}

func TestRenderMarkdown_Empty(t *testing.T) {
	report := &Report{
		GeneratedAt: day(2024, 3, 15),
		Metrics:     &domain.MetricsReport{},
	}

	md := RenderMarkdown(report)
	if !strings.Contains(md, "No trades recorded.") {
		t.Errorf("empty report missing placeholder\n%s", md)
	}
}
