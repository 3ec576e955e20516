package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raysyhuang/gemini-STST/internal/domain"
	"github.com/raysyhuang/gemini-STST/internal/storage"
)

func createTestTrade(tickerID int64, strategy domain.Strategy) *domain.PaperTrade {
	return &domain.PaperTrade{
		TickerID:     tickerID,
		Strategy:     strategy,
		SignalDate:   testDay(2024, 3, 4),
		PositionSize: 1000,
		QualityScore: ptr(70.0),
		Status:       domain.StatusPending,
	}
}

func TestTradeStore_InsertAndGetByID(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewTradeStore(pool)

	trade := createTestTrade(1, domain.StrategyMomentum)
	require.NoError(t, store.Insert(ctx, trade))
	require.NotZero(t, trade.ID)

	retrieved, err := store.GetByID(ctx, trade.ID)
	require.NoError(t, err)
	assert.Equal(t, trade.TickerID, retrieved.TickerID)
	assert.Equal(t, domain.StrategyMomentum, retrieved.Strategy)
	assert.True(t, retrieved.SignalDate.Equal(testDay(2024, 3, 4)))
	assert.InDelta(t, 1000.0, retrieved.PositionSize, 0.0001)
	require.NotNil(t, retrieved.QualityScore)
	assert.InDelta(t, 70.0, *retrieved.QualityScore, 0.0001)
	assert.Equal(t, domain.StatusPending, retrieved.Status)
	assert.Nil(t, retrieved.EntryDate)
	assert.Nil(t, retrieved.ExitReason)
}

func TestTradeStore_DuplicateNaturalKey(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewTradeStore(pool)

	require.NoError(t, store.Insert(ctx, createTestTrade(1, domain.StrategyMomentum)))

	err := store.Insert(ctx, createTestTrade(1, domain.StrategyMomentum))
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	// Same key under a different strategy is a distinct trade.
	require.NoError(t, store.Insert(ctx, createTestTrade(1, domain.StrategyReversion)))
}

func TestTradeStore_InsertBulkAllOrNothing(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewTradeStore(pool)

	require.NoError(t, store.Insert(ctx, createTestTrade(1, domain.StrategyMomentum)))

	batch := []*domain.PaperTrade{
		createTestTrade(2, domain.StrategyMomentum),
		createTestTrade(1, domain.StrategyMomentum), // duplicate
	}
	err := store.InsertBulk(ctx, batch)
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	all, err := store.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestTradeStore_UpdateLifecycle(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewTradeStore(pool)

	trade := createTestTrade(1, domain.StrategyMomentum)
	require.NoError(t, store.Insert(ctx, trade))

	// Fill
	trade.Status = domain.StatusOpen
	trade.EntryDate = ptr(testDay(2024, 3, 5))
	trade.EntryPrice = ptr(50.10)
	trade.Shares = ptr(19.96)
	trade.HighestHighSinceEntry = ptr(51.0)
	trade.StopLevel = ptr(47.5)
	trade.PlannedExitDate = ptr(testDay(2024, 3, 14))
	require.NoError(t, store.Update(ctx, trade))

	// Close
	trade.Status = domain.StatusClosed
	trade.ActualExitDate = ptr(testDay(2024, 3, 8))
	trade.ExitPrice = ptr(47.5)
	trade.ExitReason = ptr(domain.ExitReasonTrailingStop)
	trade.PnLDollars = ptr(-51.9)
	trade.PnLPct = ptr(-5.19)
	require.NoError(t, store.Update(ctx, trade))

	retrieved, err := store.GetByID(ctx, trade.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusClosed, retrieved.Status)
	require.NotNil(t, retrieved.ActualExitDate)
	assert.True(t, retrieved.ActualExitDate.Equal(testDay(2024, 3, 8)))
	require.NotNil(t, retrieved.ExitReason)
	assert.Equal(t, domain.ExitReasonTrailingStop, *retrieved.ExitReason)
	require.NotNil(t, retrieved.PnLDollars)
	assert.InDelta(t, -51.9, *retrieved.PnLDollars, 0.0001)
}

func TestTradeStore_UpdateNotFound(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewTradeStore(pool)

	ghost := createTestTrade(1, domain.StrategyMomentum)
	ghost.ID = 424242
	err := store.Update(ctx, ghost)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestTradeStore_FindByNaturalKeyAndListings(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewTradeStore(pool)

	early := createTestTrade(1, domain.StrategyMomentum)
	late := createTestTrade(2, domain.StrategyMomentum)
	late.SignalDate = testDay(2024, 3, 6)
	require.NoError(t, store.InsertBulk(ctx, []*domain.PaperTrade{early, late}))

	found, err := store.FindByNaturalKey(ctx, 1, testDay(2024, 3, 4), domain.StrategyMomentum)
	require.NoError(t, err)
	assert.Equal(t, early.ID, found.ID)

	_, err = store.FindByNaturalKey(ctx, 1, testDay(2024, 3, 4), domain.StrategyReversion)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	pending, err := store.ListByStatus(ctx, domain.StatusPending)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.True(t, pending[0].SignalDate.Before(pending[1].SignalDate))

	all, err := store.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.True(t, all[0].SignalDate.After(all[1].SignalDate))
}
