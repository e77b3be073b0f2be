package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/credflow/credflow-backend/pkg/database"
	"github.com/credflow/credflow-backend/pkg/errors"
)

// ReviewRun is one audit row per reviewed document. Field values are
// never persisted here, only identifiers, outcomes and reasons.
type ReviewRun struct {
	ID             string         `db:"id" json:"id"`
	DocumentID     string         `db:"document_id" json:"document_id"`
	Filename       string         `db:"filename" json:"filename"`
	Status         string         `db:"status" json:"status"`
	FieldCount     int            `db:"field_count" json:"field_count"`
	RejectedFields pq.StringArray `db:"rejected_fields" json:"rejected_fields"`
	Reasons        pq.StringArray `db:"reasons" json:"reasons"`
	MinConfidence  float64        `db:"min_confidence" json:"min_confidence"`
	MeanConfidence float64        `db:"mean_confidence" json:"mean_confidence"`
	DurationMs     int64          `db:"duration_ms" json:"duration_ms"`
	CreatedAt      time.Time      `db:"created_at" json:"created_at"`
}

// ReviewRepository handles review-run persistence
type ReviewRepository struct {
	db *database.DB
}

// NewReviewRepository creates a new review repository
func NewReviewRepository(db *database.DB) *ReviewRepository {
	return &ReviewRepository{db: db}
}

// Create writes one audit row for a completed review
func (r *ReviewRepository) Create(ctx context.Context, run *ReviewRun) error {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}

	query := `
		INSERT INTO review_runs (
			id, document_id, filename, status, field_count, rejected_fields,
			reasons, min_confidence, mean_confidence, duration_ms
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at
	`

	return r.db.QueryRowxContext(ctx, query,
		run.ID, run.DocumentID, run.Filename, run.Status, run.FieldCount,
		run.RejectedFields, run.Reasons, run.MinConfidence, run.MeanConfidence,
		run.DurationMs,
	).Scan(&run.CreatedAt)
}

// GetByDocumentID returns the most recent run for a document
func (r *ReviewRepository) GetByDocumentID(ctx context.Context, documentID string) (*ReviewRun, error) {
	var run ReviewRun
	query := `SELECT * FROM review_runs WHERE document_id = $1 ORDER BY created_at DESC LIMIT 1`
	if err := r.db.GetContext(ctx, &run, query, documentID); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("review run")
		}
		return nil, err
	}
	return &run, nil
}

// ListRecent returns the latest runs, newest first
func (r *ReviewRepository) ListRecent(ctx context.Context, limit int) ([]*ReviewRun, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	var runs []*ReviewRun
	query := `SELECT * FROM review_runs ORDER BY created_at DESC LIMIT $1`
	if err := r.db.SelectContext(ctx, &runs, query, limit); err != nil {
		return nil, err
	}
	return runs, nil
}

// CountByStatus returns how many runs ended in the given status since a
// cutoff time. Used for the reviewer dashboard.
func (r *ReviewRepository) CountByStatus(ctx context.Context, status string, since time.Time) (int64, error) {
	var count int64
	query := `SELECT COUNT(*) FROM review_runs WHERE status = $1 AND created_at >= $2`
	if err := r.db.GetContext(ctx, &count, query, status, since); err != nil {
		return 0, err
	}
	return count, nil
}
