// Package main runs the unified service: HTTP API, Prometheus metrics, and
// the scheduled daily pipeline (screen → trade lifecycle → notify).
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/raysyhuang/gemini-STST/internal/api"
	"github.com/raysyhuang/gemini-STST/internal/backtest"
	"github.com/raysyhuang/gemini-STST/internal/config"
	"github.com/raysyhuang/gemini-STST/internal/domain"
	"github.com/raysyhuang/gemini-STST/internal/news"
	"github.com/raysyhuang/gemini-STST/internal/notify"
	"github.com/raysyhuang/gemini-STST/internal/orchestrator"
	"github.com/raysyhuang/gemini-STST/internal/paper"
	"github.com/raysyhuang/gemini-STST/internal/screener"
	"github.com/raysyhuang/gemini-STST/internal/storage"
	chstore "github.com/raysyhuang/gemini-STST/internal/storage/clickhouse"
	"github.com/raysyhuang/gemini-STST/internal/storage/memory"
	"github.com/raysyhuang/gemini-STST/internal/storage/migrations"
	pgstore "github.com/raysyhuang/gemini-STST/internal/storage/postgres"
)

type stores struct {
	tickers storage.TickerStore
	bars    storage.BarStore
	signals storage.SignalStore
	trades  storage.TradeStore
}

func main() {
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL")
	addr := flag.String("addr", "", "HTTP listen address (overrides PORT)")
	pipelineInterval := flag.Duration("pipeline-interval", 24*time.Hour, "Scheduled pipeline interval (0 disables; external cron can POST /api/pipeline/run instead)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	log := newLogger(cfg.LogLevel).With().Str("component", "server").Logger()

	if !*useMemory {
		if err := cfg.RequireDatabase(); err != nil {
			log.Fatal().Err(err).Msg("invalid configuration")
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st, cleanup, err := openStores(ctx, cfg, *useMemory, log)
	if err != nil {
		log.Fatal().Err(err).Msg("open stores")
	}
	defer cleanup()

	server, runState, orch := buildServer(cfg, st, log)

	listenAddr := *addr
	if listenAddr == "" {
		listenAddr = ":" + cfg.Port
	}

	httpServer := &http.Server{
		Addr:         listenAddr,
		Handler:      server.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	errCh := make(chan error, 2)
	go func() {
		log.Info().Str("addr", listenAddr).Msg("http server listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	if *pipelineInterval > 0 {
		go runPipelineSchedule(ctx, orch, runState, *pipelineInterval, log)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info().Str("signal", sig.String()).Msg("shutting down")
	case err := <-errCh:
		log.Error().Err(err).Msg("fatal error")
	}

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}
	log.Info().Msg("shutdown complete")
}

// newLogger builds the process logger at the configured level.
func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		Level(lvl).
		With().Timestamp().Logger()
}

// openStores wires storage backends. Bars live in ClickHouse when
// CLICKHOUSE_DSN is set, otherwise in Postgres alongside everything else.
func openStores(ctx context.Context, cfg config.Config, useMemory bool, log zerolog.Logger) (*stores, func(), error) {
	if useMemory {
		log.Warn().Msg("using in-memory storage, all state is lost on exit")
		return &stores{
			tickers: memory.NewTickerStore(),
			bars:    memory.NewBarStore(),
			signals: memory.NewSignalStore(),
			trades:  memory.NewTradeStore(),
		}, func() {}, nil
	}

	pool, err := pgstore.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("postgres migrations: %w", err)
	}

	st := &stores{
		tickers: pgstore.NewTickerStore(pool),
		bars:    pgstore.NewBarStore(pool),
		signals: pgstore.NewSignalStore(pool),
		trades:  pgstore.NewTradeStore(pool),
	}
	cleanup := func() { pool.Close() }

	if cfg.ClickhouseDSN != "" {
		conn, err := migrations.RunClickhouseMigrations(ctx, cfg.ClickhouseDSN)
		if err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("clickhouse migrations: %w", err)
		}
		st.bars = chstore.NewBarStore(conn)
		cleanup = func() {
			conn.Close()
			pool.Close()
		}
		log.Info().Msg("daily bars backed by clickhouse")
	}

	return st, cleanup, nil
}

// buildServer assembles the domain components and the HTTP server.
func buildServer(cfg config.Config, st *stores, log zerolog.Logger) (*api.Server, *orchestrator.RunState, *orchestrator.Orchestrator) {
	scr := screener.New(st.tickers, st.bars, st.signals, log)
	stops := paper.NewStopCalculator(st.bars)
	aggregator := paper.NewAggregator(st.trades, st.tickers)

	var newsClient *news.Client
	if cfg.FinnhubAPIKey != "" {
		newsClient = news.NewClient(cfg.FinnhubAPIKey, log)
	}

	notifier, err := notify.NewNotifier(cfg.TelegramBotToken, cfg.TelegramChatID, log)
	if err != nil {
		log.Warn().Err(err).Msg("telegram disabled")
	}

	orch := orchestrator.New(orchestrator.Options{
		Screener:   scr,
		Creator:    paper.NewCreator(st.trades, log),
		Filler:     paper.NewFiller(st.trades, st.bars, stops, log),
		Monitor:    paper.NewMonitor(st.trades, st.bars, stops, log),
		Aggregator: aggregator,
		Tickers:    st.tickers,
		NewsClient: newsClient,
		Notifier:   notifier,
		Log:        log,
	})

	runState := orchestrator.NewRunState()

	server := api.NewServer(api.Options{
		Orchestrator: orch,
		RunState:     runState,
		Screener:     scr,
		Backtester:   backtest.NewEngine(st.tickers, st.bars, log),
		Aggregator:   aggregator,
		Tickers:      st.tickers,
		Signals:      st.signals,
		EngineKey:    cfg.EngineAPIKey,
		Log:          log,
	})

	return server, runState, orch
}

// runPipelineSchedule triggers the pipeline on a fixed interval, sharing the
// single-flight run state with the HTTP trigger.
func runPipelineSchedule(ctx context.Context, orch *orchestrator.Orchestrator, runState *orchestrator.RunState, interval time.Duration, log zerolog.Logger) {
	log.Info().Dur("interval", interval).Msg("pipeline scheduler started")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			runID, started := runState.TryStart()
			if !started {
				log.Warn().Str("run_id", runID).Msg("pipeline already running, skipping scheduled run")
				continue
			}
			_, err := orch.Run(ctx, domain.Day(time.Now().UTC()))
			runState.Finish(err)
			if err != nil {
				log.Error().Err(err).Str("run_id", runID).Msg("scheduled pipeline run failed")
			}
		}
	}
}
