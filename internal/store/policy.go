package store

import (
	"context"
	"database/sql"

	"github.com/lib/pq"
)

// PolicyRepository persists named advising-day presets an advisor can
// assign to a group of clients.
type PolicyRepository struct {
	db *sql.DB
}

func (r *PolicyRepository) Create(ctx context.Context, p *Policy) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO policies (id, advisor_id, name, advising_weekdays, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, p.ID, p.AdvisorID, p.Name, pq.Array(weekdaysToInts(p.AdvisingWeekdays)), p.CreatedAt, p.UpdatedAt)
	return err
}

func (r *PolicyRepository) GetByID(ctx context.Context, id string) (*Policy, error) {
	p := &Policy{}
	var weekdays pq.Int64Array
	err := r.db.QueryRowContext(ctx, `
		SELECT id, advisor_id, name, advising_weekdays, created_at, updated_at
		FROM policies WHERE id = $1
	`, id).Scan(&p.ID, &p.AdvisorID, &p.Name, &weekdays, &p.CreatedAt, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	p.AdvisingWeekdays = intsToWeekdays(weekdays)
	return p, nil
}

func (r *PolicyRepository) GetByAdvisorID(ctx context.Context, advisorID string) ([]*Policy, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, advisor_id, name, advising_weekdays, created_at, updated_at
		FROM policies WHERE advisor_id = $1 ORDER BY name
	`, advisorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Policy
	for rows.Next() {
		p := &Policy{}
		var weekdays pq.Int64Array
		if err := rows.Scan(&p.ID, &p.AdvisorID, &p.Name, &weekdays, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		p.AdvisingWeekdays = intsToWeekdays(weekdays)
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *PolicyRepository) Update(ctx context.Context, p *Policy) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE policies SET name = $1, advising_weekdays = $2, updated_at = $3 WHERE id = $4
	`, p.Name, pq.Array(weekdaysToInts(p.AdvisingWeekdays)), p.UpdatedAt, p.ID)
	return err
}

func (r *PolicyRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM policies WHERE id = $1`, id)
	return err
}
