// Package main runs the daily pipeline once and exits. Intended for cron or
// manual reruns; every phase is idempotent so repeating a day is safe.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

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

func main() {
	dateFlag := flag.String("date", "", "Run date as YYYY-MM-DD (default: today UTC)")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL")
	timeout := flag.Duration("timeout", 30*time.Minute, "Overall run timeout")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	log := newLogger(cfg.LogLevel).With().Str("component", "pipeline").Logger()

	if !*useMemory {
		if err := cfg.RequireDatabase(); err != nil {
			log.Fatal().Err(err).Msg("invalid configuration")
		}
	}

	runDate := domain.Day(time.Now().UTC())
	if *dateFlag != "" {
		runDate, err = time.Parse("2006-01-02", *dateFlag)
		if err != nil {
			log.Fatal().Err(err).Str("date", *dateFlag).Msg("invalid --date")
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	tickers, bars, signals, trades, cleanup, err := openStores(ctx, cfg, *useMemory)
	if err != nil {
		log.Fatal().Err(err).Msg("open stores")
	}
	defer cleanup()

	scr := screener.New(tickers, bars, signals, log)
	stops := paper.NewStopCalculator(bars)

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
		Creator:    paper.NewCreator(trades, log),
		Filler:     paper.NewFiller(trades, bars, stops, log),
		Monitor:    paper.NewMonitor(trades, bars, stops, log),
		Aggregator: paper.NewAggregator(trades, tickers),
		Tickers:    tickers,
		NewsClient: newsClient,
		Notifier:   notifier,
		Log:        log,
	})

	result, err := orch.Run(ctx, runDate)
	if err != nil {
		log.Fatal().Err(err).Msg("pipeline run failed")
	}

	out, _ := json.MarshalIndent(result, "", "  ")
	fmt.Println(string(out))

	if len(result.Errors) > 0 {
		os.Exit(1)
	}
}

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		Level(lvl).
		With().Timestamp().Logger()
}

func openStores(ctx context.Context, cfg config.Config, useMemory bool) (storage.TickerStore, storage.BarStore, storage.SignalStore, storage.TradeStore, func(), error) {
	if useMemory {
		return memory.NewTickerStore(), memory.NewBarStore(), memory.NewSignalStore(), memory.NewTradeStore(), func() {}, nil
	}

	pool, err := pgstore.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, nil, nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, nil, nil, nil, fmt.Errorf("postgres migrations: %w", err)
	}

	var bars storage.BarStore = pgstore.NewBarStore(pool)
	cleanup := func() { pool.Close() }

	if cfg.ClickhouseDSN != "" {
		conn, err := migrations.RunClickhouseMigrations(ctx, cfg.ClickhouseDSN)
		if err != nil {
			pool.Close()
			return nil, nil, nil, nil, nil, fmt.Errorf("clickhouse migrations: %w", err)
		}
		bars = chstore.NewBarStore(conn)
		cleanup = func() {
			conn.Close()
			pool.Close()
		}
	}

	return pgstore.NewTickerStore(pool), bars, pgstore.NewSignalStore(pool), pgstore.NewTradeStore(pool), cleanup, nil
}
