package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/shared-expense-ledger/internal/domain/idempotency"
)

// IdempotencyStore keeps idempotency keys in process memory. Entries never
// expire.
type IdempotencyStore struct {
	mu      sync.Mutex
	entries map[string][]uuid.UUID
	pending map[string]struct{}
}

var _ idempotency.Store = (*IdempotencyStore)(nil)

func NewIdempotencyStore() *IdempotencyStore {
	return &IdempotencyStore{
		entries: make(map[string][]uuid.UUID),
		pending: make(map[string]struct{}),
	}
}

func (s *IdempotencyStore) Reserve(_ context.Context, key string) ([]uuid.UUID, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ids, ok := s.entries[key]; ok {
		return append([]uuid.UUID(nil), ids...), false, nil
	}
	if _, ok := s.pending[key]; ok {
		return nil, false, idempotency.ErrInProgress
	}
	s.pending[key] = struct{}{}
	return nil, true, nil
}

func (s *IdempotencyStore) Complete(_ context.Context, key string, ids []uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.pending, key)
	s.entries[key] = append([]uuid.UUID(nil), ids...)
	return nil
}

func (s *IdempotencyStore) Release(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.pending, key)
	delete(s.entries, key)
	return nil
}
