package notify

import (
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/raysyhuang/gemini-STST/internal/domain"
	"github.com/raysyhuang/gemini-STST/internal/news"
	"github.com/raysyhuang/gemini-STST/internal/screener"
)

func summaryFixtures() (*screener.MomentumResult, *screener.ReversionResult, map[int64]string) {
	date := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	momentum := &screener.MomentumResult{
		Date:   date,
		Regime: domain.MarketRegime{Regime: domain.RegimeBullish},
		Signals: []*domain.MomentumSignal{
			{TickerID: 1, Date: date, TriggerPrice: 10.5, RVOLAtTrigger: 3.48, ATRPctAtTrigger: 44.7},
		},
	}
	reversion := &screener.ReversionResult{
		Date: date,
		Signals: []*domain.ReversionSignal{
			{TickerID: 2, Date: date, TriggerPrice: 9, RSI2AtTrigger: 0, Drawdown3DPct: -10},
		},
	}
	symbols := map[int64]string{1: "HOT", 2: "DIP"}
	return momentum, reversion, symbols
}

func TestBuildDailySummary_Sections(t *testing.T) {
	momentum, reversion, symbols := summaryFixtures()
	headlines := map[string][]news.Article{
		"HOT": {
			{Headline: "HOT soars 40%"},
			{Headline: "Insiders sell HOT"},
			{Headline: "Third headline never shown"},
		},
	}

	msg := buildDailySummary(momentum, reversion, symbols, headlines)

	for _, want := range []string{
		"*QuantScreener Daily Report*",
		"Date: 2024\\-03\\-15",
		"Market Regime: *Bullish*",
		"*— MOMENTUM BREAKOUTS \\(1\\) —*",
		"*HOT* — $10\\.5",
		"RVOL: 3\\.48 \\| ATR: 44\\.7%",
		"HOT soars 40%",
		"*— OVERSOLD REVERSIONS \\(1\\) —*",
		"*DIP* — $9",
		"RSI\\(2\\): 0 \\| 3d Drop: \\-10%",
	} {
		if !strings.Contains(msg, want) {
			t.Errorf("summary missing %q\n%s", want, msg)
		}
	}
	if strings.Contains(msg, "Third headline") {
		t.Error("more than two headlines rendered per signal")
	}
}

func TestBuildDailySummary_EmptyDay(t *testing.T) {
	momentum := &screener.MomentumResult{
		Date:   time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
		Regime: domain.MarketRegime{Regime: domain.RegimeBearish},
	}

	msg := buildDailySummary(momentum, nil, nil, nil)

	for _, want := range []string{
		"Bearish Regime",
		"*— MOMENTUM BREAKOUTS \\(0\\) —*",
		"No momentum signals today\\.",
		"*— OVERSOLD REVERSIONS \\(0\\) —*",
		"No oversold reversals today\\.",
	} {
		if !strings.Contains(msg, want) {
			t.Errorf("summary missing %q\n%s", want, msg)
		}
	}
}

func TestNewNotifier_UnconfiguredIsNil(t *testing.T) {
	n, err := NewNotifier("", 0, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewNotifier failed: %v", err)
	}
	if n != nil {
		t.Fatal("unconfigured notifier should be nil")
	}

	// A nil notifier silently no-ops.
	momentum, reversion, symbols := summaryFixtures()
	if err := n.SendDailySummary(momentum, reversion, symbols, nil); err != nil {
		t.Errorf("nil notifier send = %v, want nil", err)
	}
}
