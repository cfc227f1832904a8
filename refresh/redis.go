package refresh

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultRedisPrefix = "ac:"

// putScript inserts the row, its TTL, and the owner-index entry in one
// atomic step. Returns 0 when the token key already exists.
var putScript = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 1 then
  return 0
end
redis.call("HSET", KEYS[1],
  "token", ARGV[1],
  "owner", ARGV[2],
  "issued_at", ARGV[3],
  "expires_at", ARGV[4],
  "revoked", "0")
redis.call("PEXPIREAT", KEYS[1], ARGV[5])
redis.call("SADD", KEYS[2], KEYS[1])
redis.call("PEXPIREAT", KEYS[2], ARGV[5])
return 1
`)

// revokeScript flips revoked on an existing key and leaves absent keys
// alone, so revocation never resurrects an expired row.
var revokeScript = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 1 then
  redis.call("HSET", KEYS[1], "revoked", "1")
end
return 1
`)

// revokeOwnerScript walks the owner index, revoking live rows and pruning
// index entries whose keys have since expired.
var revokeOwnerScript = redis.NewScript(`
local members = redis.call("SMEMBERS", KEYS[1])
local revoked = 0
for _, key in ipairs(members) do
  if redis.call("EXISTS", key) == 1 then
    redis.call("HSET", key, "revoked", "1")
    revoked = revoked + 1
  else
    redis.call("SREM", KEYS[1], key)
  end
end
return revoked
`)

// RedisStore persists refresh tokens as Redis hashes with native TTLs, so
// expired rows vanish without a sweeper. Rows are keyed by a digest of the
// token string; the raw token is stored as a field for Find.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore creates a RedisStore on client. An empty prefix selects
// the default "ac:".
func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = defaultRedisPrefix
	}
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) tokenKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return s.prefix + "rt:" + base64.RawURLEncoding.EncodeToString(sum[:])
}

func (s *RedisStore) ownerKey(ownerID string) string {
	return s.prefix + "own:" + ownerID
}

// Put inserts a new non-revoked row with a TTL matching its expiry.
func (s *RedisStore) Put(ctx context.Context, t Token) error {
	keys := []string{s.tokenKey(t.Token), s.ownerKey(t.OwnerID)}
	argv := []interface{}{
		t.Token,
		t.OwnerID,
		strconv.FormatInt(t.IssuedAt.UnixMilli(), 10),
		strconv.FormatInt(t.ExpiresAt.UnixMilli(), 10),
		strconv.FormatInt(t.ExpiresAt.UnixMilli(), 10),
	}

	inserted, err := putScript.Run(ctx, s.client, keys, argv...).Int64()
	if err != nil {
		return fmt.Errorf("redis put: %w", err)
	}
	if inserted == 0 {
		return ErrConflict
	}

	return nil
}

// Find returns the row for token, or ErrNotFound once Redis has expired it.
func (s *RedisStore) Find(ctx context.Context, token string) (*Token, error) {
	fields, err := s.client.HGetAll(ctx, s.tokenKey(token)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis find: %w", err)
	}
	if len(fields) == 0 {
		return nil, ErrNotFound
	}

	issuedAt, err := strconv.ParseInt(fields["issued_at"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("redis find: corrupt issued_at: %w", err)
	}
	expiresAt, err := strconv.ParseInt(fields["expires_at"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("redis find: corrupt expires_at: %w", err)
	}

	return &Token{
		Token:     fields["token"],
		OwnerID:   fields["owner"],
		IssuedAt:  time.UnixMilli(issuedAt),
		ExpiresAt: time.UnixMilli(expiresAt),
		Revoked:   fields["revoked"] == "1",
	}, nil
}

// Revoke marks the row revoked; absent rows are a no-op.
func (s *RedisStore) Revoke(ctx context.Context, token string) error {
	if err := revokeScript.Run(ctx, s.client, []string{s.tokenKey(token)}).Err(); err != nil {
		return fmt.Errorf("redis revoke: %w", err)
	}
	return nil
}

// RevokeAllForOwner marks every live row owned by ownerID revoked.
func (s *RedisStore) RevokeAllForOwner(ctx context.Context, ownerID string) error {
	if err := revokeOwnerScript.Run(ctx, s.client, []string{s.ownerKey(ownerID)}).Err(); err != nil {
		return fmt.Errorf("redis revoke all: %w", err)
	}
	return nil
}
