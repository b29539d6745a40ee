package store

import (
	"context"
	"database/sql"

	"github.com/advisorflow/scheduling-agent/internal/linkstore"
)

// LinkRepository implements linkstore.Backend against the
// availability_links table, giving package linkstore real "create if
// absent" and "claim exactly once" semantics via Postgres's
// ON CONFLICT and a conditional UPDATE.
type LinkRepository struct {
	db *sql.DB
}

func (r *LinkRepository) PutIfAbsent(ctx context.Context, token string, record linkstore.Record) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO availability_links (token, link_id, created_at, expires_at, claimed)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (token) DO NOTHING
	`, token, record.LinkID, record.CreatedAt, record.ExpiresAt, record.Claimed)
	if err != nil {
		return false, err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows == 1, nil
}

func (r *LinkRepository) Get(ctx context.Context, token string) (linkstore.Record, bool, error) {
	var rec linkstore.Record
	err := r.db.QueryRowContext(ctx, `
		SELECT link_id, created_at, expires_at, claimed FROM availability_links WHERE token = $1
	`, token).Scan(&rec.LinkID, &rec.CreatedAt, &rec.ExpiresAt, &rec.Claimed)
	if err == sql.ErrNoRows {
		return linkstore.Record{}, false, nil
	}
	if err != nil {
		return linkstore.Record{}, false, err
	}
	return rec, true, nil
}

// MarkClaimed flips claimed to true only from an unclaimed row, so two
// concurrent claims against the same token race on this single UPDATE
// and exactly one sees RowsAffected() == 1.
func (r *LinkRepository) MarkClaimed(ctx context.Context, token string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE availability_links SET claimed = true WHERE token = $1 AND claimed = false
	`, token)
	if err != nil {
		return false, err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows == 1, nil
}
