package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/raysyhuang/gemini-STST/internal/domain"
	"github.com/raysyhuang/gemini-STST/internal/storage"
)

type tradeKey struct {
	tickerID   int64
	signalDate int64
	strategy   domain.Strategy
}

// TradeStore is an in-memory implementation of storage.TradeStore.
type TradeStore struct {
	mu     sync.RWMutex
	data   map[int64]*domain.PaperTrade
	byKey  map[tradeKey]int64
	nextID int64
}

// NewTradeStore creates a new in-memory trade store.
func NewTradeStore() *TradeStore {
	return &TradeStore{
		data:   make(map[int64]*domain.PaperTrade),
		byKey:  make(map[tradeKey]int64),
		nextID: 1,
	}
}

func keyOf(t *domain.PaperTrade) tradeKey {
	return tradeKey{t.TickerID, domain.Day(t.SignalDate).Unix(), t.Strategy}
}

// cloneTrade deep-copies a trade so callers cannot mutate stored state
// through the nullable pointer fields.
func cloneTrade(t *domain.PaperTrade) *domain.PaperTrade {
	c := *t
	c.QualityScore = cloneFloat(t.QualityScore)
	c.EntryDate = cloneTime(t.EntryDate)
	c.EntryPrice = cloneFloat(t.EntryPrice)
	c.Shares = cloneFloat(t.Shares)
	c.HighestHighSinceEntry = cloneFloat(t.HighestHighSinceEntry)
	c.StopLevel = cloneFloat(t.StopLevel)
	c.PlannedExitDate = cloneTime(t.PlannedExitDate)
	c.ActualExitDate = cloneTime(t.ActualExitDate)
	c.ExitPrice = cloneFloat(t.ExitPrice)
	c.ExitReason = cloneString(t.ExitReason)
	c.PnLDollars = cloneFloat(t.PnLDollars)
	c.PnLPct = cloneFloat(t.PnLPct)
	return &c
}

func cloneFloat(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneTime(p *time.Time) *time.Time {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneString(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// Insert adds a new trade and sets t.ID. Returns ErrDuplicateKey if a trade
// already exists for the natural key.
func (s *TradeStore) Insert(_ context.Context, t *domain.PaperTrade) error {
	if t == nil || t.TickerID == 0 || t.SignalDate.IsZero() || !t.Strategy.Valid() {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.insertLocked(t)
}

func (s *TradeStore) insertLocked(t *domain.PaperTrade) error {
	k := keyOf(t)
	if _, exists := s.byKey[k]; exists {
		return storage.ErrDuplicateKey
	}

	t.ID = s.nextID
	s.nextID++

	stored := cloneTrade(t)
	stored.SignalDate = domain.Day(t.SignalDate)
	s.data[t.ID] = stored
	s.byKey[k] = t.ID
	return nil
}

// InsertBulk adds multiple trades atomically. Fails the entire batch on any
// duplicate.
func (s *TradeStore) InsertBulk(_ context.Context, trades []*domain.PaperTrade) error {
	if len(trades) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// First pass: check for duplicates (existing + intra-batch).
	batchKeys := make(map[tradeKey]struct{}, len(trades))
	for _, t := range trades {
		if t == nil || t.TickerID == 0 || t.SignalDate.IsZero() || !t.Strategy.Valid() {
			return storage.ErrInvalidInput
		}
		k := keyOf(t)
		if _, exists := s.byKey[k]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[k]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[k] = struct{}{}
	}

	// Second pass: insert all.
	for _, t := range trades {
		if err := s.insertLocked(t); err != nil {
			return err
		}
	}
	return nil
}

// Update overwrites a trade by ID. Returns ErrNotFound if not exists.
func (s *TradeStore) Update(_ context.Context, t *domain.PaperTrade) error {
	if t == nil || t.ID == 0 {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.updateLocked(t)
}

func (s *TradeStore) updateLocked(t *domain.PaperTrade) error {
	if _, exists := s.data[t.ID]; !exists {
		return storage.ErrNotFound
	}

	stored := cloneTrade(t)
	stored.SignalDate = domain.Day(t.SignalDate)
	s.data[t.ID] = stored
	return nil
}

// UpdateBulk overwrites multiple trades atomically.
func (s *TradeStore) UpdateBulk(_ context.Context, trades []*domain.PaperTrade) error {
	if len(trades) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// First pass: every target must exist so the batch applies all-or-nothing.
	for _, t := range trades {
		if t == nil || t.ID == 0 {
			return storage.ErrInvalidInput
		}
		if _, exists := s.data[t.ID]; !exists {
			return storage.ErrNotFound
		}
	}

	for _, t := range trades {
		if err := s.updateLocked(t); err != nil {
			return err
		}
	}
	return nil
}

// GetByID retrieves a trade by ID. Returns ErrNotFound if not exists.
func (s *TradeStore) GetByID(_ context.Context, id int64) (*domain.PaperTrade, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, exists := s.data[id]
	if !exists {
		return nil, storage.ErrNotFound
	}
	return cloneTrade(t), nil
}

// FindByNaturalKey retrieves a trade by (ticker_id, signal_date, strategy).
func (s *TradeStore) FindByNaturalKey(_ context.Context, tickerID int64, signalDate time.Time, strategy domain.Strategy) (*domain.PaperTrade, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, exists := s.byKey[tradeKey{tickerID, domain.Day(signalDate).Unix(), strategy}]
	if !exists {
		return nil, storage.ErrNotFound
	}
	return cloneTrade(s.data[id]), nil
}

// ListByStatus retrieves all trades with the given status, ordered by
// signal_date ASC, id ASC.
func (s *TradeStore) ListByStatus(_ context.Context, status domain.TradeStatus) ([]*domain.PaperTrade, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.PaperTrade
	for _, t := range s.data {
		if t.Status == status {
			result = append(result, cloneTrade(t))
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].SignalDate.Equal(result[j].SignalDate) {
			return result[i].SignalDate.Before(result[j].SignalDate)
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

// ListAll retrieves every trade, ordered by signal_date DESC, id DESC.
func (s *TradeStore) ListAll(_ context.Context) ([]*domain.PaperTrade, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.PaperTrade, 0, len(s.data))
	for _, t := range s.data {
		result = append(result, cloneTrade(t))
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].SignalDate.Equal(result[j].SignalDate) {
			return result[i].SignalDate.After(result[j].SignalDate)
		}
		return result[i].ID > result[j].ID
	})
	return result, nil
}

// Compile-time interface check.
var _ storage.TradeStore = (*TradeStore)(nil)
