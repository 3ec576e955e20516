// Package main imports OHLCV history from CSV files into storage.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/raysyhuang/gemini-STST/internal/config"
	"github.com/raysyhuang/gemini-STST/internal/ingestion"
	"github.com/raysyhuang/gemini-STST/internal/storage"
	chstore "github.com/raysyhuang/gemini-STST/internal/storage/clickhouse"
	"github.com/raysyhuang/gemini-STST/internal/storage/migrations"
	pgstore "github.com/raysyhuang/gemini-STST/internal/storage/postgres"
)

func main() {
	flag.Parse()

	if flag.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "usage: ingest FILE.csv [FILE.csv...]")
		fmt.Fprintln(os.Stderr, "each file needs a symbol,date,open,high,low,close,volume header")
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.RequireDatabase(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Timestamp().Str("component", "ingest").Logger()

	ctx := context.Background()

	pool, err := pgstore.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("connect to postgres")
	}
	defer pool.Close()
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		log.Fatal().Err(err).Msg("postgres migrations")
	}

	var bars storage.BarStore = pgstore.NewBarStore(pool)
	if cfg.ClickhouseDSN != "" {
		conn, err := migrations.RunClickhouseMigrations(ctx, cfg.ClickhouseDSN)
		if err != nil {
			log.Fatal().Err(err).Msg("connect to clickhouse")
		}
		defer conn.Close()
		bars = chstore.NewBarStore(conn)
	}

	loader := ingestion.NewLoader(pgstore.NewTickerStore(pool), bars, log)

	for _, path := range flag.Args() {
		f, err := os.Open(path)
		if err != nil {
			log.Fatal().Err(err).Str("file", path).Msg("open input")
		}

		result, err := loader.LoadCSV(ctx, f)
		f.Close()
		if err != nil {
			log.Fatal().Err(err).Str("file", path).Msg("load failed")
		}

		log.Info().
			Str("file", path).
			Int("tickers", result.Tickers).
			Int("bars", result.Bars).
			Int("skipped", result.Skipped).
			Msg("loaded")
	}
}
