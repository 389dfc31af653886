package credentials

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is the subset of pgx used by PostgresStore. *pgxpool.Pool and pgx.Tx satisfy it.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore keeps the Config in the user_credentials table, one row per store key.
// The key separates clients sharing the database, e.g. one per API key and device.
type PostgresStore struct {
	db  DBTX
	key string
}

// NewPostgresStore creates a PostgresStore for key. The table is created by the db migrations.
func NewPostgresStore(db DBTX, key string) *PostgresStore {
	return &PostgresStore{db: db, key: key}
}

const (
	selectCredentials = `
SELECT user_id, user_token, user_name, is_anonymous
FROM user_credentials
WHERE store_key = $1`

	upsertCredentials = `
INSERT INTO user_credentials (store_key, user_id, user_token, user_name, is_anonymous, updated_at)
VALUES ($1, $2, $3, $4, $5, now())
ON CONFLICT (store_key) DO UPDATE
SET user_id = EXCLUDED.user_id,
    user_token = EXCLUDED.user_token,
    user_name = EXCLUDED.user_name,
    is_anonymous = EXCLUDED.is_anonymous,
    updated_at = now()`

	deleteCredentials = `DELETE FROM user_credentials WHERE store_key = $1`
)

func (s *PostgresStore) Get(ctx context.Context) (*Config, error) {
	var cfg Config

	err := s.db.QueryRow(ctx, selectCredentials, s.key).
		Scan(&cfg.UserID, &cfg.UserToken, &cfg.UserName, &cfg.IsAnonymous)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load credentials: %w", err)
	}

	return &cfg, nil
}

func (s *PostgresStore) Put(ctx context.Context, cfg Config) error {
	if _, err := s.db.Exec(ctx, upsertCredentials, s.key, cfg.UserID, cfg.UserToken, cfg.UserName, cfg.IsAnonymous); err != nil {
		return fmt.Errorf("failed to store credentials: %w", err)
	}
	return nil
}

func (s *PostgresStore) Clear(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, deleteCredentials, s.key); err != nil {
		return fmt.Errorf("failed to clear credentials: %w", err)
	}
	return nil
}
