package refresh

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testToken(token, owner string, ttl time.Duration) Token {
	now := time.Now().UTC()
	return Token{
		Token:     token,
		OwnerID:   owner,
		IssuedAt:  now,
		ExpiresAt: now.Add(ttl),
	}
}

func TestMemoryPutFind(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	in := testToken("tok-1", "owner-1", time.Hour)
	require.NoError(t, s.Put(ctx, in))

	got, err := s.Find(ctx, "tok-1")
	require.NoError(t, err)
	assert.Equal(t, "tok-1", got.Token)
	assert.Equal(t, "owner-1", got.OwnerID)
	assert.False(t, got.Revoked)
}

func TestMemoryFindUnknown(t *testing.T) {
	s := NewMemoryStore()

	_, err := s.Find(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryPutConflict(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	require.NoError(t, s.Put(ctx, testToken("tok-1", "owner-1", time.Hour)))
	err := s.Put(ctx, testToken("tok-1", "owner-2", time.Hour))
	assert.ErrorIs(t, err, ErrConflict)
}

func TestMemoryRevoke(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	require.NoError(t, s.Put(ctx, testToken("tok-1", "owner-1", time.Hour)))
	require.NoError(t, s.Revoke(ctx, "tok-1"))

	got, err := s.Find(ctx, "tok-1")
	require.NoError(t, err)
	assert.True(t, got.Revoked)

	// Idempotent, and safe on absent tokens.
	assert.NoError(t, s.Revoke(ctx, "tok-1"))
	assert.NoError(t, s.Revoke(ctx, "never-existed"))

	got, err = s.Find(ctx, "tok-1")
	require.NoError(t, err)
	assert.True(t, got.Revoked, "revocation must be one-way")
}

func TestMemoryRevokeAllForOwner(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	require.NoError(t, s.Put(ctx, testToken("tok-1", "owner-1", time.Hour)))
	require.NoError(t, s.Put(ctx, testToken("tok-2", "owner-1", time.Hour)))
	require.NoError(t, s.Put(ctx, testToken("tok-3", "owner-2", time.Hour)))

	require.NoError(t, s.RevokeAllForOwner(ctx, "owner-1"))

	for _, token := range []string{"tok-1", "tok-2"} {
		got, err := s.Find(ctx, token)
		require.NoError(t, err)
		assert.True(t, got.Revoked, token)
	}

	other, err := s.Find(ctx, "tok-3")
	require.NoError(t, err)
	assert.False(t, other.Revoked, "other owners must be untouched")

	// Absent owner is a no-op.
	assert.NoError(t, s.RevokeAllForOwner(ctx, "owner-3"))
}

func TestMemoryFindReturnsExpiredRows(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	require.NoError(t, s.Put(ctx, testToken("tok-1", "owner-1", -time.Minute)))

	got, err := s.Find(ctx, "tok-1")
	require.NoError(t, err)
	assert.True(t, got.Expired(time.Now().UTC()))
}

func TestMemoryPurgeExpired(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	require.NoError(t, s.Put(ctx, testToken("live", "owner-1", time.Hour)))
	require.NoError(t, s.Put(ctx, testToken("dead-1", "owner-1", -time.Minute)))
	require.NoError(t, s.Put(ctx, testToken("dead-2", "owner-2", -time.Minute)))

	purged := s.PurgeExpired(time.Now().UTC())
	assert.Equal(t, 2, purged)

	_, err := s.Find(ctx, "dead-1")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.Find(ctx, "live")
	assert.NoError(t, err)
}

func TestMemoryPutStripsRevokedFlag(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	in := testToken("tok-1", "owner-1", time.Hour)
	in.Revoked = true
	require.NoError(t, s.Put(ctx, in))

	got, err := s.Find(ctx, "tok-1")
	require.NoError(t, err)
	assert.False(t, got.Revoked, "new rows always start live")
}
