package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/raysyhuang/gemini-STST/internal/domain"
	"github.com/raysyhuang/gemini-STST/internal/storage"
)

// SignalStore implements storage.SignalStore using PostgreSQL.
type SignalStore struct {
	pool *Pool
}

// NewSignalStore creates a new SignalStore.
func NewSignalStore(pool *Pool) *SignalStore {
	return &SignalStore{pool: pool}
}

// Compile-time interface check.
var _ storage.SignalStore = (*SignalStore)(nil)

// UpsertMomentum writes momentum signals, replacing existing
// (ticker_id, date) rows. Applied in a single transaction.
func (s *SignalStore) UpsertMomentum(ctx context.Context, signals []*domain.MomentumSignal) error {
	if len(signals) == 0 {
		return nil
	}
	for _, sig := range signals {
		if sig == nil || sig.TickerID == 0 || sig.Date.IsZero() {
			return storage.ErrInvalidInput
		}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO momentum_signals (ticker_id, date, trigger_price, rvol_at_trigger, atr_pct_at_trigger, quality_score)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (ticker_id, date) DO UPDATE SET
			trigger_price = EXCLUDED.trigger_price,
			rvol_at_trigger = EXCLUDED.rvol_at_trigger,
			atr_pct_at_trigger = EXCLUDED.atr_pct_at_trigger,
			quality_score = EXCLUDED.quality_score
	`

	for _, sig := range signals {
		_, err := tx.Exec(ctx, query,
			sig.TickerID, domain.Day(sig.Date), sig.TriggerPrice,
			sig.RVOLAtTrigger, sig.ATRPctAtTrigger, sig.Quality,
		)
		if err != nil {
			return fmt.Errorf("upsert momentum signal: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

// UpsertReversion writes reversion signals, replacing existing
// (ticker_id, date) rows. Applied in a single transaction.
func (s *SignalStore) UpsertReversion(ctx context.Context, signals []*domain.ReversionSignal) error {
	if len(signals) == 0 {
		return nil
	}
	for _, sig := range signals {
		if sig == nil || sig.TickerID == 0 || sig.Date.IsZero() {
			return storage.ErrInvalidInput
		}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO reversion_signals (ticker_id, date, trigger_price, rsi2_at_trigger, drawdown_3d_pct, sma_distance_pct, quality_score)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (ticker_id, date) DO UPDATE SET
			trigger_price = EXCLUDED.trigger_price,
			rsi2_at_trigger = EXCLUDED.rsi2_at_trigger,
			drawdown_3d_pct = EXCLUDED.drawdown_3d_pct,
			sma_distance_pct = EXCLUDED.sma_distance_pct,
			quality_score = EXCLUDED.quality_score
	`

	for _, sig := range signals {
		_, err := tx.Exec(ctx, query,
			sig.TickerID, domain.Day(sig.Date), sig.TriggerPrice,
			sig.RSI2AtTrigger, sig.Drawdown3DPct, sig.SMADistancePct, sig.Quality,
		)
		if err != nil {
			return fmt.Errorf("upsert reversion signal: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

// MomentumByDate retrieves all momentum signals for a date, ordered by
// ticker_id ASC.
func (s *SignalStore) MomentumByDate(ctx context.Context, date time.Time) ([]*domain.MomentumSignal, error) {
	query := `
		SELECT ticker_id, date, trigger_price, rvol_at_trigger, atr_pct_at_trigger, quality_score
		FROM momentum_signals
		WHERE date = $1
		ORDER BY ticker_id ASC
	`

	rows, err := s.pool.Query(ctx, query, domain.Day(date))
	if err != nil {
		return nil, fmt.Errorf("get momentum signals by date: %w", err)
	}
	defer rows.Close()

	var signals []*domain.MomentumSignal
	for rows.Next() {
		var sig domain.MomentumSignal
		err := rows.Scan(&sig.TickerID, &sig.Date, &sig.TriggerPrice,
			&sig.RVOLAtTrigger, &sig.ATRPctAtTrigger, &sig.Quality)
		if err != nil {
			return nil, fmt.Errorf("scan momentum signal row: %w", err)
		}
		sig.Date = domain.Day(sig.Date)
		signals = append(signals, &sig)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate momentum signal rows: %w", err)
	}

	return signals, nil
}

// ReversionByDate retrieves all reversion signals for a date, ordered by
// ticker_id ASC.
func (s *SignalStore) ReversionByDate(ctx context.Context, date time.Time) ([]*domain.ReversionSignal, error) {
	query := `
		SELECT ticker_id, date, trigger_price, rsi2_at_trigger, drawdown_3d_pct, sma_distance_pct, quality_score
		FROM reversion_signals
		WHERE date = $1
		ORDER BY ticker_id ASC
	`

	rows, err := s.pool.Query(ctx, query, domain.Day(date))
	if err != nil {
		return nil, fmt.Errorf("get reversion signals by date: %w", err)
	}
	defer rows.Close()

	var signals []*domain.ReversionSignal
	for rows.Next() {
		var sig domain.ReversionSignal
		err := rows.Scan(&sig.TickerID, &sig.Date, &sig.TriggerPrice,
			&sig.RSI2AtTrigger, &sig.Drawdown3DPct, &sig.SMADistancePct, &sig.Quality)
		if err != nil {
			return nil, fmt.Errorf("scan reversion signal row: %w", err)
		}
		sig.Date = domain.Day(sig.Date)
		signals = append(signals, &sig)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reversion signal rows: %w", err)
	}

	return signals, nil
}

// LatestSignalDate returns the most recent date carrying a signal of the
// given strategy. Returns ErrNotFound when no signals exist.
func (s *SignalStore) LatestSignalDate(ctx context.Context, strategy domain.Strategy) (time.Time, error) {
	var table string
	switch strategy {
	case domain.StrategyMomentum:
		table = "momentum_signals"
	case domain.StrategyReversion:
		table = "reversion_signals"
	default:
		return time.Time{}, storage.ErrInvalidInput
	}

	query := fmt.Sprintf(`SELECT MAX(date) FROM %s`, table)

	var latest *time.Time
	if err := s.pool.QueryRow(ctx, query).Scan(&latest); err != nil {
		return time.Time{}, fmt.Errorf("get latest signal date: %w", err)
	}
	if latest == nil {
		return time.Time{}, storage.ErrNotFound
	}

	return domain.Day(*latest), nil
}
