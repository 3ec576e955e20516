package paper

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/raysyhuang/gemini-STST/internal/domain"
	"github.com/raysyhuang/gemini-STST/internal/storage"
)

// Creator turns screener signals into pending paper trades.
type Creator struct {
	trades storage.TradeStore
	log    zerolog.Logger
}

// NewCreator creates a Creator writing to the given trade store.
func NewCreator(trades storage.TradeStore, log zerolog.Logger) *Creator {
	return &Creator{trades: trades, log: log}
}

// CreatePendingTrades records one pending trade per signal. The natural key
// (ticker, signal date, strategy) deduplicates: a signal that already
// produced a trade is skipped silently, so re-running a pipeline day never
// double-books. The whole batch is committed in one InsertBulk, so a store
// failure creates zero trades. Returns the number of trades created.
func (c *Creator) CreatePendingTrades(ctx context.Context, signals []domain.Signal) (int, error) {
	type naturalKey struct {
		tickerID int64
		date     int64
		strategy domain.Strategy
	}
	staged := make(map[naturalKey]struct{}, len(signals))

	batch := make([]*domain.PaperTrade, 0, len(signals))
	for _, sig := range signals {
		if sig == nil || sig.SignalTickerID() == 0 || sig.SignalDate().IsZero() {
			continue
		}

		signalDate := domain.Day(sig.SignalDate())
		k := naturalKey{sig.SignalTickerID(), signalDate.Unix(), sig.StrategyTag()}
		if _, ok := staged[k]; ok {
			continue
		}
		staged[k] = struct{}{}

		_, err := c.trades.FindByNaturalKey(ctx, sig.SignalTickerID(), signalDate, sig.StrategyTag())
		if err == nil {
			continue // already booked on an earlier run
		}
		if !errors.Is(err, storage.ErrNotFound) {
			return 0, fmt.Errorf("dedup check for ticker %d: %w", sig.SignalTickerID(), err)
		}

		trade := &domain.PaperTrade{
			TickerID:     sig.SignalTickerID(),
			Strategy:     sig.StrategyTag(),
			SignalDate:   signalDate,
			PositionSize: PositionSize(sig),
			Status:       domain.StatusPending,
		}
		if score, ok := sig.QualityScore(); ok {
			trade.QualityScore = &score
		}
		batch = append(batch, trade)
	}

	if len(batch) == 0 {
		return 0, nil
	}
	if err := c.trades.InsertBulk(ctx, batch); err != nil {
		return 0, fmt.Errorf("create pending trades: %w", err)
	}

	c.log.Info().Int("created", len(batch)).Msg("created pending paper trades")
	return len(batch), nil
}
