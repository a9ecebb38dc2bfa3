package memory

import (
	"context"
	"sync"

	"github.com/utafrali/babo/internal/domain"
)

// BreakdownStore implements repository.BreakdownStore in process memory.
type BreakdownStore struct {
	mu    sync.RWMutex
	books map[string]domain.Breakdown
}

// NewBreakdownStore creates an empty in-memory store.
func NewBreakdownStore() *BreakdownStore {
	return &BreakdownStore{books: make(map[string]domain.Breakdown)}
}

func (s *BreakdownStore) Get(_ context.Context, isbn string) (domain.Breakdown, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.books[isbn], nil
}

func (s *BreakdownStore) Add(_ context.Context, isbn string, delta domain.Breakdown) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b := s.books[isbn]
	b.Merge(delta)
	s.books[isbn] = b
	return nil
}

func (s *BreakdownStore) Replace(_ context.Context, isbn string, b domain.Breakdown) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.books[isbn] = b
	return nil
}
