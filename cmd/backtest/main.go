// Package main backtests the momentum rule over stored history for one or
// more tickers and prints the results as JSON.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/raysyhuang/gemini-STST/internal/backtest"
	"github.com/raysyhuang/gemini-STST/internal/config"
	"github.com/raysyhuang/gemini-STST/internal/storage"
	chstore "github.com/raysyhuang/gemini-STST/internal/storage/clickhouse"
	"github.com/raysyhuang/gemini-STST/internal/storage/migrations"
	pgstore "github.com/raysyhuang/gemini-STST/internal/storage/postgres"
)

func main() {
	years := flag.Int("years", backtest.DefaultYearsBack, "Years of history to simulate")
	asOfFlag := flag.String("as-of", "", "Backtest end date as YYYY-MM-DD (default: today UTC)")
	curve := flag.Bool("curve", false, "Include the equity curve in the output")
	flag.Parse()

	if flag.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "usage: backtest [flags] TICKER [TICKER...]")
		flag.PrintDefaults()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		Level(zerolog.WarnLevel).
		With().Timestamp().Logger()

	if err := cfg.RequireDatabase(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	asOf := time.Now().UTC()
	if *asOfFlag != "" {
		asOf, err = time.Parse("2006-01-02", *asOfFlag)
		if err != nil {
			fmt.Fprintf(os.Stderr, "invalid --as-of %q: %v\n", *asOfFlag, err)
			os.Exit(2)
		}
	}

	ctx := context.Background()

	pool, err := pgstore.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "connect to postgres: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	var bars storage.BarStore = pgstore.NewBarStore(pool)
	if cfg.ClickhouseDSN != "" {
		conn, err := migrations.RunClickhouseMigrations(ctx, cfg.ClickhouseDSN)
		if err != nil {
			fmt.Fprintf(os.Stderr, "connect to clickhouse: %v\n", err)
			os.Exit(1)
		}
		defer conn.Close()
		bars = chstore.NewBarStore(conn)
	}

	engine := backtest.NewEngine(pgstore.NewTickerStore(pool), bars, log)

	failed := false
	results := make([]*backtest.Result, 0, flag.NArg())
	for _, arg := range flag.Args() {
		symbol := strings.ToUpper(arg)
		result, err := engine.RunSymbol(ctx, symbol, asOf, *years)
		switch {
		case errors.Is(err, storage.ErrNotFound):
			fmt.Fprintf(os.Stderr, "%s: unknown ticker\n", symbol)
			failed = true
			continue
		case errors.Is(err, backtest.ErrInsufficientData):
			fmt.Fprintf(os.Stderr, "%s: not enough history\n", symbol)
			failed = true
			continue
		case err != nil:
			fmt.Fprintf(os.Stderr, "%s: %v\n", symbol, err)
			failed = true
			continue
		}
		if !*curve {
			result.EquityCurve = nil
		}
		results = append(results, result)
	}

	out, _ := json.MarshalIndent(results, "", "  ")
	fmt.Println(string(out))

	if failed {
		os.Exit(1)
	}
}
