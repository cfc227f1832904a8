package refresh

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/hermesgsc/authcore/refresh/migrations"
)

const pgUniqueViolation = "23505"

// PostgresStore persists refresh tokens in a refresh_tokens table. All
// operations are single statements, so concurrency safety comes from the
// database's row-level atomicity.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore wraps an existing connection pool. The schema must
// already be in place; see Migrate.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// OpenPostgresStore opens a pgx-backed pool for dsn and runs pending
// migrations before returning the store.
func OpenPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres open: %w", err)
	}

	if err := Migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &PostgresStore{db: db}, nil
}

// Migrate applies the embedded goose migrations for the refresh-token
// schema.
func Migrate(ctx context.Context, db *sql.DB) error {
	if err := migrations.Up(ctx, db); err != nil {
		return fmt.Errorf("postgres migrate: %w", err)
	}
	return nil
}

// Close releases the underlying pool.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// Put inserts a new non-revoked row, mapping a primary-key violation to
// ErrConflict.
func (s *PostgresStore) Put(ctx context.Context, t Token) error {
	query := `
		INSERT INTO refresh_tokens (token, owner_id, issued_at, expires_at, revoked)
		VALUES ($1, $2, $3, $4, false)
	`
	if _, err := s.db.ExecContext(ctx, query, t.Token, t.OwnerID, t.IssuedAt.UTC(), t.ExpiresAt.UTC()); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return ErrConflict
		}
		return fmt.Errorf("postgres put: %w", err)
	}

	return nil
}

// Find returns the row for token, or ErrNotFound.
func (s *PostgresStore) Find(ctx context.Context, token string) (*Token, error) {
	query := `
		SELECT token, owner_id, issued_at, expires_at, revoked
		FROM refresh_tokens
		WHERE token = $1
	`
	row := &Token{}
	err := s.db.QueryRowContext(ctx, query, token).
		Scan(&row.Token, &row.OwnerID, &row.IssuedAt, &row.ExpiresAt, &row.Revoked)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("postgres find: %w", err)
	}

	return row, nil
}

// Revoke marks the row revoked. The predicate only ever flips false to
// true, so the flag stays one-way regardless of call order.
func (s *PostgresStore) Revoke(ctx context.Context, token string) error {
	query := `UPDATE refresh_tokens SET revoked = true WHERE token = $1`
	if _, err := s.db.ExecContext(ctx, query, token); err != nil {
		return fmt.Errorf("postgres revoke: %w", err)
	}
	return nil
}

// RevokeAllForOwner marks every row owned by ownerID revoked in a single
// statement, so it is atomic with respect to concurrent refreshes.
func (s *PostgresStore) RevokeAllForOwner(ctx context.Context, ownerID string) error {
	query := `UPDATE refresh_tokens SET revoked = true WHERE owner_id = $1`
	if _, err := s.db.ExecContext(ctx, query, ownerID); err != nil {
		return fmt.Errorf("postgres revoke all: %w", err)
	}
	return nil
}

// DeleteExpired garbage-collects rows past their expiry and returns the
// number removed. Correctness does not depend on running it; Find callers
// reject expired rows regardless.
func (s *PostgresStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM refresh_tokens WHERE expires_at < $1`, now.UTC())
	if err != nil {
		return 0, fmt.Errorf("postgres delete expired: %w", err)
	}
	return res.RowsAffected()
}
