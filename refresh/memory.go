package refresh

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-process Store. It is the zero-dependency adapter
// used for embedding and tests; production deployments use RedisStore or
// PostgresStore.
type MemoryStore struct {
	mu     sync.RWMutex
	rows   map[string]Token
	owners map[string]map[string]struct{}
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		rows:   make(map[string]Token),
		owners: make(map[string]map[string]struct{}),
	}
}

// Put inserts a new non-revoked row, failing with ErrConflict when the
// token string is already present.
func (s *MemoryStore) Put(_ context.Context, t Token) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.rows[t.Token]; exists {
		return ErrConflict
	}

	t.Revoked = false
	s.rows[t.Token] = t

	owned, ok := s.owners[t.OwnerID]
	if !ok {
		owned = make(map[string]struct{})
		s.owners[t.OwnerID] = owned
	}
	owned[t.Token] = struct{}{}

	return nil
}

// Find returns a copy of the row for token, or ErrNotFound. Expired rows
// are returned as-is; the engine performs the expiry check.
func (s *MemoryStore) Find(_ context.Context, token string) (*Token, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row, ok := s.rows[token]
	if !ok {
		return nil, ErrNotFound
	}

	return &row, nil
}

// Revoke marks the row revoked. Absent or already-revoked rows are a
// no-op, not an error.
func (s *MemoryStore) Revoke(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.rows[token]
	if !ok {
		return nil
	}

	row.Revoked = true
	s.rows[token] = row

	return nil
}

// RevokeAllForOwner marks every row owned by ownerID revoked.
func (s *MemoryStore) RevokeAllForOwner(_ context.Context, ownerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for token := range s.owners[ownerID] {
		row, ok := s.rows[token]
		if !ok {
			continue
		}
		row.Revoked = true
		s.rows[token] = row
	}

	return nil
}

// PurgeExpired drops rows past their expiry and returns how many were
// removed. Callers may run it periodically; correctness does not depend
// on it.
func (s *MemoryStore) PurgeExpired(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	purged := 0
	for token, row := range s.rows {
		if !row.Expired(now) {
			continue
		}
		delete(s.rows, token)
		if owned, ok := s.owners[row.OwnerID]; ok {
			delete(owned, token)
			if len(owned) == 0 {
				delete(s.owners, row.OwnerID)
			}
		}
		purged++
	}

	return purged
}
