package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/pesio-ai/be-pd-compliance/internal/database"
	"github.com/pesio-ai/be-pd-compliance/internal/errors"
)

// DeliverableRepository reads deliverables and maintains the cached
// compliance progress projection.
type DeliverableRepository struct {
	db *database.DB
}

// NewDeliverableRepository creates a new DeliverableRepository.
func NewDeliverableRepository(db *database.DB) *DeliverableRepository {
	return &DeliverableRepository{db: db}
}

// GetByID retrieves a deliverable.
func (r *DeliverableRepository) GetByID(ctx context.Context, id string) (*Deliverable, error) {
	query := `
		SELECT id, project_id, name, compliance_progress, created_at, updated_at
		FROM deliverables
		WHERE id = $1
	`

	d := &Deliverable{}
	err := r.db.QueryRow(ctx, query, id).Scan(
		&d.ID,
		&d.ProjectID,
		&d.Name,
		&d.ComplianceProgress,
		&d.CreatedAt,
		&d.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, errors.NotFound("deliverable", id)
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to get deliverable")
	}
	return d, nil
}

// UpdateProgress writes the recomputed progress projection. The value is
// always derived from step statuses, never accepted from a caller.
func (r *DeliverableRepository) UpdateProgress(ctx context.Context, id string, progress int) error {
	query := `
		UPDATE deliverables
		SET compliance_progress = $2,
		    updated_at          = NOW()
		WHERE id = $1
		RETURNING id
	`

	var returnedID string
	err := r.db.QueryRow(ctx, query, id, progress).Scan(&returnedID)
	if err == pgx.ErrNoRows {
		return errors.NotFound("deliverable", id)
	}
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to update compliance progress")
	}
	return nil
}
