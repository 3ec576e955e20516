// Package main generates the paper-trading performance report (markdown)
// and the trade log (CSV) from stored trades.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/raysyhuang/gemini-STST/internal/config"
	"github.com/raysyhuang/gemini-STST/internal/paper"
	"github.com/raysyhuang/gemini-STST/internal/reporting"
	pgstore "github.com/raysyhuang/gemini-STST/internal/storage/postgres"
)

func main() {
	outputDir := flag.String("output-dir", "output", "Directory for generated report files")
	flag.Parse()

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
		With().Timestamp().Str("component", "report").Logger()

	ctx := context.Background()

	pool, err := pgstore.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("connect to postgres")
	}
	defer pool.Close()

	aggregator := paper.NewAggregator(pgstore.NewTradeStore(pool), pgstore.NewTickerStore(pool))
	generator := reporting.NewGenerator(aggregator)

	report, err := generator.Generate(ctx, time.Now().UTC())
	if err != nil {
		log.Fatal().Err(err).Msg("generate report")
	}

	if err := os.MkdirAll(*outputDir, 0o755); err != nil {
		log.Fatal().Err(err).Msg("create output dir")
	}

	mdPath := filepath.Join(*outputDir, "PERFORMANCE.md")
	if err := os.WriteFile(mdPath, []byte(reporting.RenderMarkdown(report)), 0o644); err != nil {
		log.Fatal().Err(err).Msg("write markdown report")
	}

	csvPath := filepath.Join(*outputDir, "trades.csv")
	if err := os.WriteFile(csvPath, []byte(reporting.RenderCSV(report.Trades)), 0o644); err != nil {
		log.Fatal().Err(err).Msg("write trade csv")
	}

	log.Info().
		Str("markdown", mdPath).
		Str("csv", csvPath).
		Int("trades", len(report.Trades)).
		Msg("report generated")
}
