package identity

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hermesgsc/authcore"
)

// MemoryStore is an in-memory IdentityStore keyed by id with a secondary
// index on normalized email. Safe for concurrent use.
type MemoryStore struct {
	mu     sync.RWMutex
	rows   map[string]authcore.Identity
	emails map[string]string // normalized email -> id
	now    func() time.Time
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		rows:   make(map[string]authcore.Identity),
		emails: make(map[string]string),
		now:    time.Now,
	}
}

func (s *MemoryStore) Create(ctx context.Context, input authcore.CreateIdentityInput) (*authcore.Identity, error) {
	email := authcore.NormalizeEmail(input.Email)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.emails[email]; exists {
		return nil, authcore.ErrEmailConflict
	}

	ident := authcore.Identity{
		ID:           uuid.NewString(),
		Name:         input.Name,
		Email:        email,
		PasswordHash: input.PasswordHash,
		Role:         input.Role,
		CreatedAt:    s.now().UTC(),
	}
	s.rows[ident.ID] = ident
	s.emails[email] = ident.ID

	out := ident
	return &out, nil
}

func (s *MemoryStore) GetByID(ctx context.Context, id string) (*authcore.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ident, ok := s.rows[id]
	if !ok {
		return nil, authcore.ErrIdentityNotFound
	}
	out := ident
	return &out, nil
}

func (s *MemoryStore) GetByEmail(ctx context.Context, email string) (*authcore.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.emails[authcore.NormalizeEmail(email)]
	if !ok {
		return nil, authcore.ErrIdentityNotFound
	}
	out := s.rows[id]
	return &out, nil
}

func (s *MemoryStore) Update(ctx context.Context, id string, patch authcore.IdentityPatch) (*authcore.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ident, ok := s.rows[id]
	if !ok {
		return nil, authcore.ErrIdentityNotFound
	}

	if patch.Email != nil {
		email := authcore.NormalizeEmail(*patch.Email)
		if owner, taken := s.emails[email]; taken && owner != id {
			return nil, authcore.ErrEmailConflict
		}
		if email != ident.Email {
			delete(s.emails, ident.Email)
			s.emails[email] = id
			ident.Email = email
		}
	}
	if patch.Name != nil {
		ident.Name = *patch.Name
	}
	if patch.PasswordHash != nil {
		ident.PasswordHash = *patch.PasswordHash
	}
	if patch.Role != nil {
		ident.Role = *patch.Role
	}

	s.rows[id] = ident
	out := ident
	return &out, nil
}

func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ident, ok := s.rows[id]
	if !ok {
		return authcore.ErrIdentityNotFound
	}
	delete(s.emails, ident.Email)
	delete(s.rows, id)
	return nil
}

// List returns all identities ordered by creation time, then id for
// records created in the same instant.
func (s *MemoryStore) List(ctx context.Context) ([]authcore.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]authcore.Identity, 0, len(s.rows))
	for _, ident := range s.rows {
		out = append(out, ident)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}
