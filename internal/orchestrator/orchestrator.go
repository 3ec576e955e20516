// Package orchestrator coordinates the daily pipeline.
// Flow: screen → create trades → fill → monitor → metrics → notify
package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/raysyhuang/gemini-STST/internal/domain"
	"github.com/raysyhuang/gemini-STST/internal/news"
	"github.com/raysyhuang/gemini-STST/internal/notify"
	"github.com/raysyhuang/gemini-STST/internal/observability"
	"github.com/raysyhuang/gemini-STST/internal/paper"
	"github.com/raysyhuang/gemini-STST/internal/screener"
	"github.com/raysyhuang/gemini-STST/internal/storage"
)

// headlineLimit is how many articles to fetch per momentum pick.
const headlineLimit = 3

// Orchestrator runs the end-to-end daily pipeline. Every phase is
// idempotent, so re-running a day after a partial failure is safe: signals
// upsert, trade creation deduplicates, fills and monitoring only touch
// trades still in the matching status.
type Orchestrator struct {
	screener   *screener.Screener
	creator    *paper.Creator
	filler     *paper.Filler
	monitor    *paper.Monitor
	aggregator *paper.Aggregator
	tickers    storage.TickerStore

	newsClient *news.Client
	notifier   *notify.Notifier

	log zerolog.Logger
}

// Options for creating an Orchestrator. NewsClient and Notifier are
// optional; the rest are required.
type Options struct {
	Screener   *screener.Screener
	Creator    *paper.Creator
	Filler     *paper.Filler
	Monitor    *paper.Monitor
	Aggregator *paper.Aggregator
	Tickers    storage.TickerStore

	NewsClient *news.Client
	Notifier   *notify.Notifier

	Log zerolog.Logger
}

// New creates an Orchestrator.
func New(opts Options) *Orchestrator {
	return &Orchestrator{
		screener:   opts.Screener,
		creator:    opts.Creator,
		filler:     opts.Filler,
		monitor:    opts.Monitor,
		aggregator: opts.Aggregator,
		tickers:    opts.Tickers,
		newsClient: opts.NewsClient,
		notifier:   opts.Notifier,
		log:        opts.Log,
	}
}

// RunResult summarizes one pipeline run.
type RunResult struct {
	Date   time.Time `json:"date"`
	Regime string    `json:"regime"`

	MomentumSignals  int `json:"momentum_signals"`
	ReversionSignals int `json:"reversion_signals"`
	TradesCreated    int `json:"trades_created"`
	TradesFilled     int `json:"trades_filled"`
	TradesClosed     int `json:"trades_closed"`
	OpenTrades       int `json:"open_trades"`

	// Errors collects non-fatal phase failures (lifecycle and notification
	// problems); screening failures abort the run instead.
	Errors []string `json:"errors,omitempty"`
}

// Run executes the full pipeline for runDate.
// Phases:
//  1. Momentum + reversion screens (fatal on failure)
//  2. Create pending trades from today's signals
//  3. Fill pending trades
//  4. Monitor open trades
//  5. Metrics snapshot
//  6. Telegram summary (best effort)
func (o *Orchestrator) Run(ctx context.Context, runDate time.Time) (*RunResult, error) {
	runDate = domain.Day(runDate)
	result := &RunResult{Date: runDate}

	// Phase 1: screens
	momentum, err := o.phaseScreenMomentum(ctx, runDate)
	if err != nil {
		return nil, fmt.Errorf("momentum screen: %w", err)
	}
	result.MomentumSignals = len(momentum.Signals)
	result.Regime = momentum.Regime.Regime

	reversion, err := o.phaseScreenReversion(ctx, runDate)
	if err != nil {
		return nil, fmt.Errorf("reversion screen: %w", err)
	}
	result.ReversionSignals = len(reversion.Signals)

	// Phase 2: create pending trades
	signals := make([]domain.Signal, 0, len(momentum.Signals)+len(reversion.Signals))
	for _, s := range momentum.Signals {
		signals = append(signals, s)
	}
	for _, s := range reversion.Signals {
		signals = append(signals, s)
	}
	o.runPhase("create", func() error {
		created, err := o.creator.CreatePendingTrades(ctx, signals)
		result.TradesCreated = created
		observability.RecordTradesCreated(created)
		return err
	}, result)

	// Phase 3: fill
	o.runPhase("fill", func() error {
		filled, err := o.filler.FillPendingTrades(ctx)
		result.TradesFilled = filled
		observability.RecordTradesFilled(filled)
		return err
	}, result)

	// Phase 4: monitor
	o.runPhase("monitor", func() error {
		closed, err := o.monitor.CheckOpenTrades(ctx, runDate)
		result.TradesClosed = closed
		return err
	}, result)

	// Phase 5: metrics snapshot
	o.runPhase("metrics", func() error {
		report, err := o.aggregator.Metrics(ctx)
		if err != nil {
			return err
		}
		result.OpenTrades = report.OpenTrades
		observability.UpdateOpenTrades(report.OpenTrades)
		return nil
	}, result)

	// Phase 6: notification
	o.runPhase("notify", func() error {
		return o.sendSummary(ctx, momentum, reversion)
	}, result)

	o.log.Info().
		Str("date", runDate.Format("2006-01-02")).
		Str("regime", result.Regime).
		Int("momentum_signals", result.MomentumSignals).
		Int("reversion_signals", result.ReversionSignals).
		Int("created", result.TradesCreated).
		Int("filled", result.TradesFilled).
		Int("closed", result.TradesClosed).
		Int("errors", len(result.Errors)).
		Msg("pipeline run complete")

	if len(result.Errors) == 0 {
		observability.RecordPipelineSuccess(float64(time.Now().Unix()))
	}

	return result, nil
}

func (o *Orchestrator) phaseScreenMomentum(ctx context.Context, runDate time.Time) (*screener.MomentumResult, error) {
	started := time.Now()
	result, err := o.screener.RunMomentum(ctx, runDate)
	observability.RecordPipelineRun("screen_momentum", statusOf(err), time.Since(started).Seconds())
	if err == nil {
		observability.RecordSignals(string(domain.StrategyMomentum), result.Screened, len(result.Signals))
	}
	return result, err
}

func (o *Orchestrator) phaseScreenReversion(ctx context.Context, runDate time.Time) (*screener.ReversionResult, error) {
	started := time.Now()
	result, err := o.screener.RunReversion(ctx, runDate)
	observability.RecordPipelineRun("screen_reversion", statusOf(err), time.Since(started).Seconds())
	if err == nil {
		observability.RecordSignals(string(domain.StrategyReversion), result.Screened, len(result.Signals))
	}
	return result, err
}

// runPhase executes a non-fatal phase, recording duration and collecting any
// error into the result.
func (o *Orchestrator) runPhase(name string, fn func() error, result *RunResult) {
	started := time.Now()
	err := fn()
	observability.RecordPipelineRun(name, statusOf(err), time.Since(started).Seconds())
	if err != nil {
		o.log.Error().Err(err).Str("phase", name).Msg("pipeline phase failed")
		result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", name, err))
	}
}

// sendSummary delivers the Telegram daily report, enriched with headlines
// when a news client is configured.
func (o *Orchestrator) sendSummary(ctx context.Context, momentum *screener.MomentumResult, reversion *screener.ReversionResult) error {
	if o.notifier == nil {
		return nil
	}

	symbols := make(map[int64]string)
	for _, sig := range momentum.Signals {
		if err := o.resolveSymbol(ctx, sig.TickerID, symbols); err != nil {
			return err
		}
	}
	for _, sig := range reversion.Signals {
		if err := o.resolveSymbol(ctx, sig.TickerID, symbols); err != nil {
			return err
		}
	}

	headlines := make(map[string][]news.Article)
	if o.newsClient != nil {
		for _, sig := range momentum.Signals {
			symbol := symbols[sig.TickerID]
			headlines[symbol] = o.newsClient.FetchNews(ctx, symbol, headlineLimit)
		}
	}

	return o.notifier.SendDailySummary(momentum, reversion, symbols, headlines)
}

func (o *Orchestrator) resolveSymbol(ctx context.Context, tickerID int64, symbols map[int64]string) error {
	if _, ok := symbols[tickerID]; ok {
		return nil
	}
	ticker, err := o.tickers.GetByID(ctx, tickerID)
	if err != nil {
		return fmt.Errorf("resolve ticker %d: %w", tickerID, err)
	}
	symbols[tickerID] = ticker.Symbol
	return nil
}

func statusOf(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
