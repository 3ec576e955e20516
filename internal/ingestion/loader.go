// Package ingestion loads market data into the ticker and bar stores.
package ingestion

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/raysyhuang/gemini-STST/internal/domain"
	"github.com/raysyhuang/gemini-STST/internal/storage"
)

// upsertBatchSize bounds the bar batch written per store call.
const upsertBatchSize = 1000

// Loader imports OHLCV history from CSV exports. Unknown symbols are
// registered as active tickers on first sight.
type Loader struct {
	tickers storage.TickerStore
	bars    storage.BarStore
	log     zerolog.Logger
}

// NewLoader creates a Loader.
func NewLoader(tickers storage.TickerStore, bars storage.BarStore, log zerolog.Logger) *Loader {
	return &Loader{tickers: tickers, bars: bars, log: log}
}

// LoadResult summarizes one import.
type LoadResult struct {
	Tickers int // distinct symbols seen
	Bars    int // bars written
	Skipped int // malformed rows dropped
}

// column indexes resolved from the CSV header.
type columns struct {
	symbol, date, open, high, low, clos, volume int
}

// LoadCSV reads rows of symbol,date,open,high,low,close,volume (any column
// order, header required) and upserts them. Malformed rows are logged and
// skipped; load order within a symbol does not matter since bars upsert by
// (ticker_id, date).
func (l *Loader) LoadCSV(ctx context.Context, r io.Reader) (*LoadResult, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, errors.New("empty input")
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	cols, err := resolveColumns(header)
	if err != nil {
		return nil, err
	}

	result := &LoadResult{}
	tickerIDs := make(map[string]int64)
	pending := make([]*domain.DailyBar, 0, upsertBatchSize)

	flush := func() error {
		if len(pending) == 0 {
			return nil
		}
		if err := l.bars.UpsertBulk(ctx, pending); err != nil {
			return fmt.Errorf("upsert bars: %w", err)
		}
		result.Bars += len(pending)
		pending = pending[:0]
		return nil
	}

	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		bar, symbol, err := parseRow(record, cols)
		if err != nil {
			l.log.Warn().Err(err).Int("line", line).Msg("skipping row")
			result.Skipped++
			continue
		}

		id, ok := tickerIDs[symbol]
		if !ok {
			id, err = l.tickerID(ctx, symbol)
			if err != nil {
				return nil, err
			}
			tickerIDs[symbol] = id
		}
		bar.TickerID = id

		pending = append(pending, bar)
		if len(pending) >= upsertBatchSize {
			if err := flush(); err != nil {
				return nil, err
			}
		}
	}

	if err := flush(); err != nil {
		return nil, err
	}
	result.Tickers = len(tickerIDs)

	l.log.Info().
		Int("tickers", result.Tickers).
		Int("bars", result.Bars).
		Int("skipped", result.Skipped).
		Msg("csv load complete")

	return result, nil
}

// tickerID resolves a symbol, registering it when unknown.
func (l *Loader) tickerID(ctx context.Context, symbol string) (int64, error) {
	ticker, err := l.tickers.GetBySymbol(ctx, symbol)
	if err == nil {
		return ticker.ID, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return 0, fmt.Errorf("lookup ticker %s: %w", symbol, err)
	}

	ticker = &domain.Ticker{Symbol: symbol, IsActive: true}
	if err := l.tickers.Upsert(ctx, ticker); err != nil {
		return 0, fmt.Errorf("register ticker %s: %w", symbol, err)
	}
	return ticker.ID, nil
}

func resolveColumns(header []string) (columns, error) {
	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.ToLower(strings.TrimSpace(name))] = i
	}

	cols := columns{symbol: -1, date: -1, open: -1, high: -1, low: -1, clos: -1, volume: -1}
	required := map[string]*int{
		"symbol": &cols.symbol,
		"date":   &cols.date,
		"open":   &cols.open,
		"high":   &cols.high,
		"low":    &cols.low,
		"close":  &cols.clos,
		"volume": &cols.volume,
	}
	for name, dst := range required {
		i, ok := index[name]
		if !ok {
			return columns{}, fmt.Errorf("missing column %q in header", name)
		}
		*dst = i
	}
	return cols, nil
}

func parseRow(record []string, cols columns) (*domain.DailyBar, string, error) {
	need := cols.volume
	for _, i := range []int{cols.symbol, cols.date, cols.open, cols.high, cols.low, cols.clos} {
		if i > need {
			need = i
		}
	}
	if len(record) <= need {
		return nil, "", fmt.Errorf("want at least %d fields, got %d", need+1, len(record))
	}

	symbol := strings.ToUpper(strings.TrimSpace(record[cols.symbol]))
	if symbol == "" {
		return nil, "", errors.New("empty symbol")
	}

	date, err := time.Parse("2006-01-02", strings.TrimSpace(record[cols.date]))
	if err != nil {
		return nil, "", fmt.Errorf("parse date: %w", err)
	}

	bar := &domain.DailyBar{Date: domain.Day(date)}
	for _, f := range []struct {
		name string
		idx  int
		dst  *float64
	}{
		{"open", cols.open, &bar.Open},
		{"high", cols.high, &bar.High},
		{"low", cols.low, &bar.Low},
		{"close", cols.clos, &bar.Close},
	} {
		v, err := strconv.ParseFloat(strings.TrimSpace(record[f.idx]), 64)
		if err != nil {
			return nil, "", fmt.Errorf("parse %s: %w", f.name, err)
		}
		if v <= 0 {
			return nil, "", fmt.Errorf("non-positive %s", f.name)
		}
		*f.dst = v
	}

	volume, err := strconv.ParseInt(strings.TrimSpace(record[cols.volume]), 10, 64)
	if err != nil {
		return nil, "", fmt.Errorf("parse volume: %w", err)
	}
	if volume < 0 {
		return nil, "", errors.New("negative volume")
	}
	bar.Volume = volume

	return bar, symbol, nil
}
