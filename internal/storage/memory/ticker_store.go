package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/raysyhuang/gemini-STST/internal/domain"
	"github.com/raysyhuang/gemini-STST/internal/storage"
)

// TickerStore is an in-memory implementation of storage.TickerStore.
type TickerStore struct {
	mu       sync.RWMutex
	data     map[int64]*domain.Ticker
	bySymbol map[string]int64
	nextID   int64
}

// NewTickerStore creates a new in-memory ticker store.
func NewTickerStore() *TickerStore {
	return &TickerStore{
		data:     make(map[int64]*domain.Ticker),
		bySymbol: make(map[string]int64),
		nextID:   1,
	}
}

// Upsert inserts a ticker or updates it by symbol. Sets t.ID.
func (s *TickerStore) Upsert(_ context.Context, t *domain.Ticker) error {
	if t == nil || t.Symbol == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	symbol := strings.ToUpper(t.Symbol)
	if id, exists := s.bySymbol[symbol]; exists {
		t.ID = id
	} else {
		t.ID = s.nextID
		s.nextID++
		s.bySymbol[symbol] = t.ID
	}

	stored := *t
	stored.Symbol = symbol
	s.data[t.ID] = &stored
	return nil
}

// GetByID retrieves a ticker by ID. Returns ErrNotFound if not exists.
func (s *TickerStore) GetByID(_ context.Context, id int64) (*domain.Ticker, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, exists := s.data[id]
	if !exists {
		return nil, storage.ErrNotFound
	}

	stored := *t
	return &stored, nil
}

// GetBySymbol retrieves a ticker by symbol. Returns ErrNotFound if not exists.
func (s *TickerStore) GetBySymbol(_ context.Context, symbol string) (*domain.Ticker, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, exists := s.bySymbol[strings.ToUpper(symbol)]
	if !exists {
		return nil, storage.ErrNotFound
	}

	stored := *s.data[id]
	return &stored, nil
}

// ListActive retrieves all active tickers ordered by symbol ASC.
func (s *TickerStore) ListActive(_ context.Context) ([]*domain.Ticker, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Ticker
	for _, t := range s.data {
		if t.IsActive {
			stored := *t
			result = append(result, &stored)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Symbol < result[j].Symbol
	})

	return result, nil
}

// Compile-time interface check.
var _ storage.TickerStore = (*TickerStore)(nil)
