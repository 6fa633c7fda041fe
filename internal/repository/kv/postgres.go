package kv

import (
	"context"
	"errors"
	"io"
	"log"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type postgresRepo struct {
	pool   *pgxpool.Pool
	scope  string
	logger *log.Logger
}

// NewPostgres stores entries in the kv_entries table under scope.
func NewPostgres(pool *pgxpool.Pool, scope string, logger *log.Logger) Repository {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &postgresRepo{pool: pool, scope: scopeOrDefault(scope), logger: logger}
}

func (r *postgresRepo) Get(ctx context.Context, key string) (string, bool, error) {
	const q = `
SELECT value
FROM kv_entries
WHERE scope = $1 AND key = $2
`
	var value string
	if err := r.pool.QueryRow(ctx, q, r.scope, key).Scan(&value); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", false, nil
		}
		r.logger.Printf("kv repo: get failed scope=%s key=%s error=%v", r.scope, key, err)
		return "", false, err
	}
	return value, true, nil
}

func (r *postgresRepo) Set(ctx context.Context, key, value string) error {
	const q = `
INSERT INTO kv_entries (scope, key, value, updated_at)
VALUES ($1, $2, $3, now())
ON CONFLICT (scope, key) DO UPDATE
SET value = EXCLUDED.value, updated_at = now()
`
	if _, err := r.pool.Exec(ctx, q, r.scope, key, value); err != nil {
		r.logger.Printf("kv repo: set failed scope=%s key=%s error=%v", r.scope, key, err)
		return err
	}
	return nil
}

func (r *postgresRepo) Remove(ctx context.Context, key string) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM kv_entries WHERE scope = $1 AND key = $2`, r.scope, key); err != nil {
		r.logger.Printf("kv repo: remove failed scope=%s key=%s error=%v", r.scope, key, err)
		return err
	}
	return nil
}
