package store

import (
	"context"
	"database/sql"
	"time"
)

// KeyValueRepository backs collab.KeyValueStore: a flat opaque-key
// table used for idempotency records (one row per processed message
// ID) with an expires_at column so stale rows can be reaped.
type KeyValueRepository struct {
	db *sql.DB
}

func (r *KeyValueRepository) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	expiresAt := time.Now().Add(ttl)
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO kv_store (key, value, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, expires_at = EXCLUDED.expires_at
	`, key, value, expiresAt)
	return err
}

func (r *KeyValueRepository) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var value []byte
	var expiresAt time.Time
	err := r.db.QueryRowContext(ctx, `
		SELECT value, expires_at FROM kv_store WHERE key = $1
	`, key).Scan(&value, &expiresAt)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if time.Now().After(expiresAt) {
		return nil, false, nil
	}
	return value, true, nil
}

// PutIfAbsent implements the "create if absent" pattern used for
// at-most-once idempotency keys: ON CONFLICT DO NOTHING tells us
// whether our row, or a concurrent writer's, won the insert.
func (r *KeyValueRepository) PutIfAbsent(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	expiresAt := time.Now().Add(ttl)
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO kv_store (key, value, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (key) DO NOTHING
	`, key, value, expiresAt)
	if err != nil {
		return false, err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows == 1, nil
}
