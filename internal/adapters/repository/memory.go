package repository

import (
	"context"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/okian/goalcast/internal/domain/dedupe"
	"github.com/okian/goalcast/internal/domain/model"
)

// MemoryStore is an in-process Store.
type MemoryStore struct {
	mu      sync.RWMutex
	records []model.Observation
	next    int64
	days    *dayLocks
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{days: newDayLocks()}
}

func (s *MemoryStore) Append(_ context.Context, _ uuid.UUID, obs []model.Observation) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range obs {
		o.Seq = s.next
		s.next++
		s.records = append(s.records, o)
	}
	return len(obs), nil
}

func (s *MemoryStore) All(_ context.Context) ([]model.Observation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.records), nil
}

func (s *MemoryStore) Dedupe(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out, removed := dedupe.KeepLast(s.records)
	s.records = slices.Clone(out)
	return removed, nil
}

func (s *MemoryStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records), nil
}

func (s *MemoryStore) LockDay(ctx context.Context, day model.Day) (func(), error) {
	return s.days.lock(ctx, day)
}

func (s *MemoryStore) Close() error { return nil }
