package store

import (
	"context"
	"database/sql"

	"github.com/lib/pq"
)

// AdvisorRepository persists Advisor records, the same one-struct-
// per-table shape as the teacher's HostRepository.
type AdvisorRepository struct {
	db *sql.DB
}

func (r *AdvisorRepository) Create(ctx context.Context, a *Advisor) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO advisors (id, email, display_name, timezone, advising_weekdays, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, a.ID, a.Email, a.DisplayName, a.Timezone, pq.Array(weekdaysToInts(a.AdvisingWeekdays)), a.CreatedAt, a.UpdatedAt)
	return err
}

func (r *AdvisorRepository) GetByID(ctx context.Context, id string) (*Advisor, error) {
	return r.scanOne(ctx, `
		SELECT id, email, display_name, timezone, advising_weekdays, created_at, updated_at
		FROM advisors WHERE id = $1
	`, id)
}

func (r *AdvisorRepository) GetByEmail(ctx context.Context, email string) (*Advisor, error) {
	return r.scanOne(ctx, `
		SELECT id, email, display_name, timezone, advising_weekdays, created_at, updated_at
		FROM advisors WHERE email = $1
	`, email)
}

func (r *AdvisorRepository) scanOne(ctx context.Context, query string, arg any) (*Advisor, error) {
	a := &Advisor{}
	var weekdays pq.Int64Array
	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&a.ID, &a.Email, &a.DisplayName, &a.Timezone, &weekdays, &a.CreatedAt, &a.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	a.AdvisingWeekdays = intsToWeekdays(weekdays)
	return a, nil
}

func (r *AdvisorRepository) Update(ctx context.Context, a *Advisor) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE advisors SET display_name = $1, timezone = $2, advising_weekdays = $3, updated_at = $4
		WHERE id = $5
	`, a.DisplayName, a.Timezone, pq.Array(weekdaysToInts(a.AdvisingWeekdays)), a.UpdatedAt, a.ID)
	return err
}

func (r *AdvisorRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM advisors WHERE id = $1`, id)
	return err
}
