package refresh

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned by Find when no row matches the token string.
	ErrNotFound = errors.New("refresh token not found")
	// ErrConflict is returned by Put when the token string already exists.
	// Signature uniqueness makes this practically unreachable, but adapters
	// must detect it rather than silently overwrite.
	ErrConflict = errors.New("refresh token already exists")
)

// Token is one persisted refresh-token row. The token string acts as the
// primary key.
type Token struct {
	Token     string
	OwnerID   string
	IssuedAt  time.Time
	ExpiresAt time.Time
	Revoked   bool
}

// Expired reports whether the row is past its natural expiry at now.
func (t Token) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

// Store is the persistence abstraction the engine consumes.
//
// Revoke and RevokeAllForOwner succeed on absent or already-revoked rows;
// logout must never fail visibly because of replayed or garbage input.
// Adapters may drop expired rows lazily or keep them for the engine's own
// expiry check; both are acceptable.
type Store interface {
	Put(ctx context.Context, t Token) error
	Find(ctx context.Context, token string) (*Token, error)
	Revoke(ctx context.Context, token string) error
	RevokeAllForOwner(ctx context.Context, ownerID string) error
}
