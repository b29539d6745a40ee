package store

import (
	"context"
	"database/sql"
)

// ConnectionRepository persists a calendar-provider OAuth binding per
// advisor. The token itself never lives here, only the name of the
// secret that holds it.
type ConnectionRepository struct {
	db *sql.DB
}

func (r *ConnectionRepository) Create(ctx context.Context, c *Connection) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO connections (id, advisor_id, provider, remote_calendar_id, token_secret_name, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, c.ID, c.AdvisorID, c.Provider, c.RemoteCalendarID, c.TokenSecretName, c.CreatedAt, c.UpdatedAt)
	return err
}

func (r *ConnectionRepository) GetByAdvisorAndProvider(ctx context.Context, advisorID, provider string) (*Connection, error) {
	c := &Connection{}
	err := r.db.QueryRowContext(ctx, `
		SELECT id, advisor_id, provider, remote_calendar_id, token_secret_name, created_at, updated_at
		FROM connections WHERE advisor_id = $1 AND provider = $2
	`, advisorID, provider).Scan(&c.ID, &c.AdvisorID, &c.Provider, &c.RemoteCalendarID, &c.TokenSecretName, &c.CreatedAt, &c.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return c, err
}

func (r *ConnectionRepository) GetByAdvisorID(ctx context.Context, advisorID string) ([]*Connection, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, advisor_id, provider, remote_calendar_id, token_secret_name, created_at, updated_at
		FROM connections WHERE advisor_id = $1
	`, advisorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Connection
	for rows.Next() {
		c := &Connection{}
		if err := rows.Scan(&c.ID, &c.AdvisorID, &c.Provider, &c.RemoteCalendarID, &c.TokenSecretName, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *ConnectionRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM connections WHERE id = $1`, id)
	return err
}
