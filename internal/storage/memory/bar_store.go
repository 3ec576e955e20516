package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/raysyhuang/gemini-STST/internal/domain"
	"github.com/raysyhuang/gemini-STST/internal/storage"
)

// BarStore is an in-memory implementation of storage.BarStore.
type BarStore struct {
	mu   sync.RWMutex
	data map[int64]map[int64]*domain.DailyBar // ticker_id → date(unix) → bar
}

// NewBarStore creates a new in-memory bar store.
func NewBarStore() *BarStore {
	return &BarStore{
		data: make(map[int64]map[int64]*domain.DailyBar),
	}
}

// UpsertBulk inserts bars, replacing any existing (ticker_id, date) rows.
func (s *BarStore) UpsertBulk(_ context.Context, bars []*domain.DailyBar) error {
	if len(bars) == 0 {
		return nil
	}

	// Validate before mutating so a bad batch applies nothing.
	for _, b := range bars {
		if b == nil || b.TickerID == 0 || b.Date.IsZero() {
			return storage.ErrInvalidInput
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, b := range bars {
		stored := *b
		stored.Date = domain.Day(b.Date)

		byDate, exists := s.data[b.TickerID]
		if !exists {
			byDate = make(map[int64]*domain.DailyBar)
			s.data[b.TickerID] = byDate
		}
		byDate[stored.Date.Unix()] = &stored
	}

	return nil
}

// GetOnDate retrieves the bar for a ticker on an exact date.
func (s *BarStore) GetOnDate(_ context.Context, tickerID int64, date time.Time) (*domain.DailyBar, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, exists := s.data[tickerID][domain.Day(date).Unix()]
	if !exists {
		return nil, storage.ErrNotFound
	}

	stored := *b
	return &stored, nil
}

// GetFirstAfter retrieves the earliest bar strictly after the given date.
func (s *BarStore) GetFirstAfter(_ context.Context, tickerID int64, after time.Time) (*domain.DailyBar, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cutoff := domain.Day(after)
	var best *domain.DailyBar
	for _, b := range s.data[tickerID] {
		if !b.Date.After(cutoff) {
			continue
		}
		if best == nil || b.Date.Before(best.Date) {
			best = b
		}
	}
	if best == nil {
		return nil, storage.ErrNotFound
	}

	stored := *best
	return &stored, nil
}

// GetRange retrieves bars within [start, end] inclusive, ordered by date ASC.
func (s *BarStore) GetRange(_ context.Context, tickerID int64, start, end time.Time) ([]*domain.DailyBar, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	startDay := domain.Day(start)
	endDay := domain.Day(end)

	var result []*domain.DailyBar
	for _, b := range s.data[tickerID] {
		if b.Date.Before(startDay) || b.Date.After(endDay) {
			continue
		}
		stored := *b
		result = append(result, &stored)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Date.Before(result[j].Date)
	})

	return result, nil
}

// TradingDaysAfter returns up to n bar dates strictly after the given date,
// ordered ASC.
func (s *BarStore) TradingDaysAfter(_ context.Context, tickerID int64, after time.Time, n int) ([]time.Time, error) {
	if n <= 0 {
		return nil, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	cutoff := domain.Day(after)
	var dates []time.Time
	for _, b := range s.data[tickerID] {
		if b.Date.After(cutoff) {
			dates = append(dates, b.Date)
		}
	}

	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	if len(dates) > n {
		dates = dates[:n]
	}

	return dates, nil
}

// Compile-time interface check.
var _ storage.BarStore = (*BarStore)(nil)
