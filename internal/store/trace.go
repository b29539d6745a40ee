package store

import (
	"context"
	"database/sql"
	"time"
)

// TraceRecord is one orchestrator run's audit trail: every pipeline
// step's outcome, kept for support and debugging. Steps is a JSON blob
// rather than a normalized table since its shape varies per run and
// nothing queries into it.
type TraceRecord struct {
	ID        string
	RequestID string
	Steps     []byte
	CreatedAt time.Time
}

// TraceRepository persists orchestrator run traces, grounded on the
// teacher's AuditLogRepository: writes are fire-and-forget from the
// orchestrator's perspective (see package orchestrator's trace
// emission), so a write failure here is logged, never propagated.
type TraceRepository struct {
	db *sql.DB
}

// Create inserts a trace, or overwrites its steps in place when the id
// already exists — the feedback path re-saves the same trace id after
// attaching a FeedbackRecord to it.
func (r *TraceRepository) Create(ctx context.Context, rec TraceRecord) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO traces (id, request_id, steps, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET steps = EXCLUDED.steps
	`, rec.ID, rec.RequestID, rec.Steps, rec.CreatedAt)
	return err
}

func (r *TraceRepository) GetByRequestID(ctx context.Context, requestID string) (*TraceRecord, error) {
	rec := &TraceRecord{}
	err := r.db.QueryRowContext(ctx, `
		SELECT id, request_id, steps, created_at FROM traces WHERE request_id = $1
	`, requestID).Scan(&rec.ID, &rec.RequestID, &rec.Steps, &rec.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return rec, err
}
