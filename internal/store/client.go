package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/lib/pq"
)

// ClientRepository persists Client records scoped to an advisor.
type ClientRepository struct {
	db *sql.DB
}

func (r *ClientRepository) Create(ctx context.Context, c *Client) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO clients (id, advisor_id, email, display_name, access_state, advising_weekdays, policy_id, interaction_count, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, c.ID, c.AdvisorID, c.Email, c.DisplayName, c.AccessState,
		nullableWeekdays(c.AdvisingWeekdays), c.PolicyID, c.InteractionCount, c.CreatedAt, c.UpdatedAt)
	return err
}

func (r *ClientRepository) GetByID(ctx context.Context, id string) (*Client, error) {
	return r.scanOne(ctx, `
		SELECT id, advisor_id, email, display_name, access_state, advising_weekdays, policy_id, interaction_count, created_at, updated_at
		FROM clients WHERE id = $1
	`, id)
}

func (r *ClientRepository) GetByAdvisorAndEmail(ctx context.Context, advisorID, email string) (*Client, error) {
	return r.scanOne(ctx, `
		SELECT id, advisor_id, email, display_name, access_state, advising_weekdays, policy_id, interaction_count, created_at, updated_at
		FROM clients WHERE advisor_id = $1 AND email = $2
	`, advisorID, email)
}

func (r *ClientRepository) scanOne(ctx context.Context, query string, args ...any) (*Client, error) {
	c := &Client{}
	var weekdays pq.Int64Array
	err := r.db.QueryRowContext(ctx, query, args...).Scan(
		&c.ID, &c.AdvisorID, &c.Email, &c.DisplayName, &c.AccessState,
		&weekdays, &c.PolicyID, &c.InteractionCount, &c.CreatedAt, &c.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if len(weekdays) > 0 {
		c.AdvisingWeekdays = intsToWeekdays(weekdays)
	}
	return c, nil
}

func (r *ClientRepository) UpdateAccessState(ctx context.Context, id string, state AccessState) error {
	_, err := r.db.ExecContext(ctx, `UPDATE clients SET access_state = $1, updated_at = NOW() WHERE id = $2`, state, id)
	return err
}

// IncrementInteractionCount is the best-effort counter bump from spec
// step 14; callers swallow its error rather than fail the request.
func (r *ClientRepository) IncrementInteractionCount(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE clients SET interaction_count = interaction_count + 1, updated_at = NOW() WHERE id = $1
	`, id)
	return err
}

func nullableWeekdays(days []time.Weekday) any {
	if len(days) == 0 {
		return nil
	}
	return pq.Array(weekdaysToInts(days))
}
