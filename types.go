package authcore

import (
	"context"
	"strings"
	"time"
)

// Role is the access level attached to an identity.
type Role string

const (
	// RoleUser is the default role assigned on registration.
	RoleUser Role = "USER"
	// RoleAdmin gates the administrative surface.
	RoleAdmin Role = "ADMIN"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// Identity is the account record owned by the identity store. The engine
// reads id and role, writes role only on admin-initiated updates, and
// never serializes PasswordHash outward.
type Identity struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         Role
	CreatedAt    time.Time
}

// RequestIdentity is the request-scoped identity derived from a verified
// access token. It is rebuilt per request from token claims and never
// persisted.
type RequestIdentity struct {
	ID   string
	Role Role
}

// Credentials is returned by Register and Login: the identity plus a
// freshly issued access/refresh token pair.
type Credentials struct {
	Identity     Identity
	AccessToken  string
	RefreshToken string
}

// CreateIdentityInput is the input for IdentityStore.Create. Email arrives
// already normalized and the password already hashed.
type CreateIdentityInput struct {
	Name         string
	Email        string
	PasswordHash string
	Role         Role
}

// IdentityPatch is the partial update applied by IdentityStore.Update.
// Nil fields are left untouched.
type IdentityPatch struct {
	Name         *string
	Email        *string
	PasswordHash *string
	Role         *Role
}

// UpdateRequest is the client-facing shape consumed by
// Engine.UpdateIdentity. Password is plaintext here; the engine passes it
// through the hash primitive before it reaches any store.
type UpdateRequest struct {
	Name     *string
	Email    *string
	Password *string
	Role     *Role
}

// IdentityStore is the external identity collaborator. Implementations
// must return ErrIdentityNotFound for missing ids/emails and
// ErrEmailConflict for uniqueness violations; any other error is treated
// as an internal failure.
type IdentityStore interface {
	Create(ctx context.Context, input CreateIdentityInput) (*Identity, error)
	GetByID(ctx context.Context, id string) (*Identity, error)
	GetByEmail(ctx context.Context, email string) (*Identity, error)
	Update(ctx context.Context, id string, patch IdentityPatch) (*Identity, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]Identity, error)
}

// PasswordHasher is the credential-verification primitive. Satisfied by
// [github.com/hermesgsc/authcore/password.Argon2].
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, encodedHash string) (bool, error)
}

// NormalizeEmail lowercases and trims an email address. All uniqueness
// checks and lookups go through this, so accounts cannot differ only by
// case.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
