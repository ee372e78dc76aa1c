package sequence

import (
	"context"
	"sync"
)

// MemoryStore is a process-local Store for tests and development.
type MemoryStore struct {
	mu       sync.Mutex
	counters map[Kind]int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{counters: make(map[Kind]int64)}
}

func (s *MemoryStore) Next(ctx context.Context, kind Kind, floor FloorFunc) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.counters[kind]
	if !ok {
		f, err := floor(ctx)
		if err != nil {
			return 0, err
		}
		cur = f
	}
	cur++
	s.counters[kind] = cur
	return cur, nil
}

func (s *MemoryStore) Current(_ context.Context, kind Kind) (int64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.counters[kind]
	return v, ok, nil
}
