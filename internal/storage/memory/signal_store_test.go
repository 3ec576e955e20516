package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/raysyhuang/gemini-STST/internal/domain"
	"github.com/raysyhuang/gemini-STST/internal/storage"
)

func TestSignalStore_UpsertMomentumAndQuery(t *testing.T) {
	store := NewSignalStore()
	ctx := context.Background()

	quality := 72.5
	signals := []*domain.MomentumSignal{
		{TickerID: 2, Date: day(2024, 3, 4), TriggerPrice: 50.25, RVOLAtTrigger: 3.1, ATRPctAtTrigger: 9.4},
		{TickerID: 1, Date: day(2024, 3, 4), TriggerPrice: 12.80, RVOLAtTrigger: 2.4, ATRPctAtTrigger: 11.2, Quality: &quality},
		{TickerID: 1, Date: day(2024, 3, 5), TriggerPrice: 13.10, RVOLAtTrigger: 2.1, ATRPctAtTrigger: 10.8},
	}
	if err := store.UpsertMomentum(ctx, signals); err != nil {
		t.Fatalf("UpsertMomentum failed: %v", err)
	}

	got, err := store.MomentumByDate(ctx, day(2024, 3, 4))
	if err != nil {
		t.Fatalf("MomentumByDate failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Expected 2 signals, got %d", len(got))
	}
	if got[0].TickerID != 1 || got[1].TickerID != 2 {
		t.Errorf("Not ordered by ticker_id: got %d, %d", got[0].TickerID, got[1].TickerID)
	}
	if got[0].Quality == nil || *got[0].Quality != 72.5 {
		t.Error("Quality score not preserved")
	}
}

func TestSignalStore_UpsertMomentumReplaces(t *testing.T) {
	store := NewSignalStore()
	ctx := context.Background()

	first := &domain.MomentumSignal{TickerID: 1, Date: day(2024, 3, 4), RVOLAtTrigger: 2.0}
	if err := store.UpsertMomentum(ctx, []*domain.MomentumSignal{first}); err != nil {
		t.Fatalf("First upsert failed: %v", err)
	}

	revised := &domain.MomentumSignal{TickerID: 1, Date: day(2024, 3, 4), RVOLAtTrigger: 2.7}
	if err := store.UpsertMomentum(ctx, []*domain.MomentumSignal{revised}); err != nil {
		t.Fatalf("Second upsert failed: %v", err)
	}

	got, err := store.MomentumByDate(ctx, day(2024, 3, 4))
	if err != nil {
		t.Fatalf("MomentumByDate failed: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("Expected 1 signal after replace, got %d", len(got))
	}
	if got[0].RVOLAtTrigger != 2.7 {
		t.Errorf("Upsert did not replace: got %f", got[0].RVOLAtTrigger)
	}
}

func TestSignalStore_UpsertReversionAndQuery(t *testing.T) {
	store := NewSignalStore()
	ctx := context.Background()

	signals := []*domain.ReversionSignal{
		{TickerID: 3, Date: day(2024, 3, 4), TriggerPrice: 41.20, RSI2AtTrigger: 4.2, Drawdown3DPct: -7.5, SMADistancePct: -6.1},
	}
	if err := store.UpsertReversion(ctx, signals); err != nil {
		t.Fatalf("UpsertReversion failed: %v", err)
	}

	got, err := store.ReversionByDate(ctx, day(2024, 3, 4))
	if err != nil {
		t.Fatalf("ReversionByDate failed: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("Expected 1 signal, got %d", len(got))
	}
	if got[0].RSI2AtTrigger != 4.2 {
		t.Errorf("RSI mismatch: got %f", got[0].RSI2AtTrigger)
	}

	// Momentum side is untouched.
	mom, err := store.MomentumByDate(ctx, day(2024, 3, 4))
	if err != nil {
		t.Fatalf("MomentumByDate failed: %v", err)
	}
	if len(mom) != 0 {
		t.Errorf("Expected no momentum signals, got %d", len(mom))
	}
}

func TestSignalStore_LatestSignalDate(t *testing.T) {
	store := NewSignalStore()
	ctx := context.Background()

	_, err := store.LatestSignalDate(ctx, domain.StrategyMomentum)
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound when empty, got %v", err)
	}

	signals := []*domain.MomentumSignal{
		{TickerID: 1, Date: day(2024, 3, 4)},
		{TickerID: 1, Date: day(2024, 3, 8)},
		{TickerID: 2, Date: day(2024, 3, 6)},
	}
	if err := store.UpsertMomentum(ctx, signals); err != nil {
		t.Fatalf("UpsertMomentum failed: %v", err)
	}

	latest, err := store.LatestSignalDate(ctx, domain.StrategyMomentum)
	if err != nil {
		t.Fatalf("LatestSignalDate failed: %v", err)
	}
	if !latest.Equal(day(2024, 3, 8)) {
		t.Errorf("Expected Mar 8, got %v", latest)
	}

	_, err = store.LatestSignalDate(ctx, domain.Strategy("bogus"))
	if !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput for unknown strategy, got %v", err)
	}
}

func TestSignalStore_InvalidInput(t *testing.T) {
	store := NewSignalStore()
	ctx := context.Background()

	err := store.UpsertMomentum(ctx, []*domain.MomentumSignal{nil})
	if !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput for nil momentum, got %v", err)
	}

	err = store.UpsertReversion(ctx, []*domain.ReversionSignal{{TickerID: 0}})
	if !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput for zero ticker, got %v", err)
	}
}
