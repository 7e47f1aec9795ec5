// Package memory is an in-process storage backend for tests and file-based runs.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/bostonrobbie/Manus-Dashboard-sub003/internal/contracts"
	"github.com/bostonrobbie/Manus-Dashboard-sub003/internal/storage"
)

// Store implements TradeStore, TradeWriter and ReportRunStore.
type Store struct {
	mu     sync.RWMutex
	trades map[string]contracts.Trade
	runs   map[string][]storage.ReportRun // strategy_id -> runs in insert order
}

// Compile-time interface checks.
var (
	_ storage.TradeStore     = (*Store)(nil)
	_ storage.TradeWriter    = (*Store)(nil)
	_ storage.ReportRunStore = (*Store)(nil)
)

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{
		trades: make(map[string]contracts.Trade),
		runs:   make(map[string][]storage.ReportRun),
	}
}

// InsertTrades adds trades whose id is not yet present
func (s *Store) InsertTrades(_ context.Context, trades []contracts.Trade) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	inserted := 0
	for _, t := range trades {
		if t.ID == "" {
			return inserted, fmt.Errorf("%w: trade without id", storage.ErrInvalidInput)
		}
		if _, ok := s.trades[t.ID]; ok {
			continue
		}
		s.trades[t.ID] = t
		inserted++
	}
	return inserted, nil
}

// ListTrades returns matching trades ordered by exit_time then id
func (s *Store) ListTrades(_ context.Context, filter storage.TradeFilter) ([]contracts.Trade, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]contracts.Trade, 0)
	for _, t := range s.trades {
		if filter.Matches(t) {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].ExitTime.Equal(out[j].ExitTime) {
			return out[i].ExitTime.Before(out[j].ExitTime)
		}
		return out[i].ID < out[j].ID
	})
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

// ListStrategyIDs returns strategies with at least one trade, sorted
func (s *Store) ListStrategyIDs(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]struct{})
	for _, t := range s.trades {
		seen[t.StrategyID] = struct{}{}
	}
	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// SaveRun appends a report run
func (s *Store) SaveRun(_ context.Context, run *storage.ReportRun) error {
	if run == nil || run.ID == "" || run.StrategyID == "" {
		return fmt.Errorf("%w: report run needs id and strategy_id", storage.ErrInvalidInput)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[run.StrategyID] = append(s.runs[run.StrategyID], *run)
	return nil
}

// LatestRun returns the most recently created run of a strategy
func (s *Store) LatestRun(_ context.Context, strategyID string) (*storage.ReportRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	runs := s.runs[strategyID]
	if len(runs) == 0 {
		return nil, storage.ErrNotFound
	}
	latest := runs[0]
	for _, r := range runs[1:] {
		if !r.CreatedAt.Before(latest.CreatedAt) {
			latest = r
		}
	}
	return &latest, nil
}

// ListRuns returns up to limit runs, newest first (limit <= 0 means all)
func (s *Store) ListRuns(_ context.Context, strategyID string, limit int) ([]storage.ReportRun, error) {
	s.mu.RLock()
	runs := append([]storage.ReportRun(nil), s.runs[strategyID]...)
	s.mu.RUnlock()

	sort.SliceStable(runs, func(i, j int) bool { return runs[i].CreatedAt.After(runs[j].CreatedAt) })
	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}
