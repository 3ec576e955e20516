package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/raysyhuang/gemini-STST/internal/domain"
	"github.com/raysyhuang/gemini-STST/internal/storage"
)

type signalKey struct {
	tickerID int64
	date     int64
}

// SignalStore is an in-memory implementation of storage.SignalStore.
type SignalStore struct {
	mu        sync.RWMutex
	momentum  map[signalKey]*domain.MomentumSignal
	reversion map[signalKey]*domain.ReversionSignal
}

// NewSignalStore creates a new in-memory signal store.
func NewSignalStore() *SignalStore {
	return &SignalStore{
		momentum:  make(map[signalKey]*domain.MomentumSignal),
		reversion: make(map[signalKey]*domain.ReversionSignal),
	}
}

// UpsertMomentum writes momentum signals, replacing existing rows.
func (s *SignalStore) UpsertMomentum(_ context.Context, signals []*domain.MomentumSignal) error {
	for _, sig := range signals {
		if sig == nil || sig.TickerID == 0 || sig.Date.IsZero() {
			return storage.ErrInvalidInput
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, sig := range signals {
		stored := *sig
		stored.Date = domain.Day(sig.Date)
		if sig.Quality != nil {
			q := *sig.Quality
			stored.Quality = &q
		}
		s.momentum[signalKey{sig.TickerID, stored.Date.Unix()}] = &stored
	}
	return nil
}

// UpsertReversion writes reversion signals, replacing existing rows.
func (s *SignalStore) UpsertReversion(_ context.Context, signals []*domain.ReversionSignal) error {
	for _, sig := range signals {
		if sig == nil || sig.TickerID == 0 || sig.Date.IsZero() {
			return storage.ErrInvalidInput
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, sig := range signals {
		stored := *sig
		stored.Date = domain.Day(sig.Date)
		if sig.Quality != nil {
			q := *sig.Quality
			stored.Quality = &q
		}
		s.reversion[signalKey{sig.TickerID, stored.Date.Unix()}] = &stored
	}
	return nil
}

// MomentumByDate retrieves all momentum signals for a date, ordered by ticker_id ASC.
func (s *SignalStore) MomentumByDate(_ context.Context, date time.Time) ([]*domain.MomentumSignal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	day := domain.Day(date).Unix()
	var result []*domain.MomentumSignal
	for k, sig := range s.momentum {
		if k.date == day {
			stored := *sig
			result = append(result, &stored)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].TickerID < result[j].TickerID
	})
	return result, nil
}

// ReversionByDate retrieves all reversion signals for a date, ordered by ticker_id ASC.
func (s *SignalStore) ReversionByDate(_ context.Context, date time.Time) ([]*domain.ReversionSignal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	day := domain.Day(date).Unix()
	var result []*domain.ReversionSignal
	for k, sig := range s.reversion {
		if k.date == day {
			stored := *sig
			result = append(result, &stored)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].TickerID < result[j].TickerID
	})
	return result, nil
}

// LatestSignalDate returns the most recent date carrying a signal of the
// given strategy.
func (s *SignalStore) LatestSignalDate(_ context.Context, strategy domain.Strategy) (time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest int64
	switch strategy {
	case domain.StrategyMomentum:
		for k := range s.momentum {
			if k.date > latest {
				latest = k.date
			}
		}
	case domain.StrategyReversion:
		for k := range s.reversion {
			if k.date > latest {
				latest = k.date
			}
		}
	default:
		return time.Time{}, storage.ErrInvalidInput
	}

	if latest == 0 {
		return time.Time{}, storage.ErrNotFound
	}
	return time.Unix(latest, 0).UTC(), nil
}

// Compile-time interface check.
var _ storage.SignalStore = (*SignalStore)(nil)
