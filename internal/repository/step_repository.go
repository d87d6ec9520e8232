package repository

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5"

	"github.com/pesio-ai/be-pd-compliance/internal/database"
	"github.com/pesio-ai/be-pd-compliance/internal/errors"
	"github.com/pesio-ai/be-pd-compliance/internal/workflow"
)

// StepRepository handles reads and updates on compliance steps. Step creation
// happens when a workflow is configured for a deliverable, outside this
// service's mutation surface.
type StepRepository struct {
	db *database.DB
}

// NewStepRepository creates a new StepRepository.
func NewStepRepository(db *database.DB) *StepRepository {
	return &StepRepository{db: db}
}

const stepColumns = `
	id, deliverable_id, position, name, description,
	step_type, status,
	form_data, checklist_items, dynamic_list_data,
	file_url, admin_feedback, reviewed_at,
	created_at, updated_at
`

// GetByDeliverableID returns all steps of a deliverable ordered by position.
func (r *StepRepository) GetByDeliverableID(ctx context.Context, deliverableID string) ([]*ComplianceStep, error) {
	query := `
		SELECT ` + stepColumns + `
		FROM compliance_steps
		WHERE deliverable_id = $1
		ORDER BY position ASC
	`

	rows, err := r.db.Query(ctx, query, deliverableID)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to get compliance steps")
	}
	defer rows.Close()

	return r.scanRows(rows)
}

// GetByID retrieves a single step.
func (r *StepRepository) GetByID(ctx context.Context, id string) (*ComplianceStep, error) {
	query := `
		SELECT ` + stepColumns + `
		FROM compliance_steps
		WHERE id = $1
	`

	step, err := r.scanStep(r.db.QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, errors.NotFound("compliance_step", id)
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to get compliance step")
	}
	return step, nil
}

// SaveContent persists edited content and moves the step into the given
// editable status. Admin feedback is cleared: it only exists while the step
// is displayed as rejected.
func (r *StepRepository) SaveContent(ctx context.Context, id string, status workflow.Status, c workflow.Content) error {
	formJSON, checklistJSON, listJSON, fileURL, err := marshalContent(c)
	if err != nil {
		return err
	}

	query := `
		UPDATE compliance_steps
		SET status            = $2::compliance_step_status,
		    form_data         = $3,
		    checklist_items   = $4,
		    dynamic_list_data = $5,
		    file_url          = COALESCE($6, file_url),
		    admin_feedback    = NULL,
		    updated_at        = NOW()
		WHERE id = $1
		RETURNING id
	`

	var returnedID string
	err = r.db.QueryRow(ctx, query, id, status, formJSON, checklistJSON, listJSON, fileURL).Scan(&returnedID)
	if err == pgx.ErrNoRows {
		return errors.NotFound("compliance_step", id)
	}
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to save step content")
	}
	return nil
}

// Submit persists the submitted content snapshot and flips the step to
// submitted in one statement.
func (r *StepRepository) Submit(ctx context.Context, id string, c workflow.Content) error {
	formJSON, checklistJSON, listJSON, fileURL, err := marshalContent(c)
	if err != nil {
		return err
	}

	query := `
		UPDATE compliance_steps
		SET status            = 'submitted'::compliance_step_status,
		    form_data         = $2,
		    checklist_items   = $3,
		    dynamic_list_data = $4,
		    file_url          = COALESCE($5, file_url),
		    admin_feedback    = NULL,
		    updated_at        = NOW()
		WHERE id = $1
		RETURNING id
	`

	var returnedID string
	err = r.db.QueryRow(ctx, query, id, formJSON, checklistJSON, listJSON, fileURL).Scan(&returnedID)
	if err == pgx.ErrNoRows {
		return errors.NotFound("compliance_step", id)
	}
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to submit step")
	}
	return nil
}

// Approve marks a step approved and records the review time.
func (r *StepRepository) Approve(ctx context.Context, id string) error {
	query := `
		UPDATE compliance_steps
		SET status         = 'approved'::compliance_step_status,
		    admin_feedback = NULL,
		    reviewed_at    = NOW(),
		    updated_at     = NOW()
		WHERE id = $1
		RETURNING id
	`

	var returnedID string
	err := r.db.QueryRow(ctx, query, id).Scan(&returnedID)
	if err == pgx.ErrNoRows {
		return errors.NotFound("compliance_step", id)
	}
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to approve step")
	}
	return nil
}

// Reject marks a step rejected with mandatory feedback. Feedback validation
// happens in the service layer.
func (r *StepRepository) Reject(ctx context.Context, id, feedback string) error {
	query := `
		UPDATE compliance_steps
		SET status         = 'rejected'::compliance_step_status,
		    admin_feedback = $2,
		    reviewed_at    = NULL,
		    updated_at     = NOW()
		WHERE id = $1
		RETURNING id
	`

	var returnedID string
	err := r.db.QueryRow(ctx, query, id, feedback).Scan(&returnedID)
	if err == pgx.ErrNoRows {
		return errors.NotFound("compliance_step", id)
	}
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to reject step")
	}
	return nil
}

// marshalContent serializes the content union into the three JSONB columns
// plus the optional file_url.
func marshalContent(c workflow.Content) (formJSON, checklistJSON, listJSON []byte, fileURL *string, err error) {
	c.Normalize()

	form := map[string]string{}
	switch c.Type {
	case workflow.StepFormText, workflow.StepFormTextarea:
		form["value"] = c.Value
	}
	if formJSON, err = json.Marshal(form); err != nil {
		return nil, nil, nil, nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to marshal form data")
	}

	items := c.Items
	if items == nil {
		items = []workflow.ChecklistItem{}
	}
	if checklistJSON, err = json.Marshal(items); err != nil {
		return nil, nil, nil, nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to marshal checklist items")
	}

	entries := c.Entries
	if entries == nil {
		entries = []workflow.ListEntry{}
	}
	if listJSON, err = json.Marshal(entries); err != nil {
		return nil, nil, nil, nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to marshal list entries")
	}

	if c.FileURL != "" {
		url := c.FileURL
		fileURL = &url
	}
	return formJSON, checklistJSON, listJSON, fileURL, nil
}

// ── scan helpers ──────────────────────────────────────────────────────────────

type stepScanner interface {
	Scan(dest ...any) error
}

func (r *StepRepository) scanStep(row stepScanner) (*ComplianceStep, error) {
	s := &ComplianceStep{}
	var formJSON, checklistJSON, listJSON []byte

	err := row.Scan(
		&s.ID,
		&s.DeliverableID,
		&s.Position,
		&s.Name,
		&s.Description,
		&s.StepType,
		&s.Status,
		&formJSON,
		&checklistJSON,
		&listJSON,
		&s.FileURL,
		&s.AdminFeedback,
		&s.ReviewedAt,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := unmarshalStepContent(s, formJSON, checklistJSON, listJSON); err != nil {
		return nil, err
	}
	return s, nil
}

func (r *StepRepository) scanRows(rows pgx.Rows) ([]*ComplianceStep, error) {
	var steps []*ComplianceStep
	for rows.Next() {
		s, err := r.scanStep(rows)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to scan compliance step")
		}
		steps = append(steps, s)
	}
	return steps, nil
}

func unmarshalStepContent(s *ComplianceStep, formJSON, checklistJSON, listJSON []byte) error {
	if len(formJSON) > 0 {
		if err := json.Unmarshal(formJSON, &s.FormData); err != nil {
			return errors.Wrap(err, errors.ErrCodeInternal, "failed to unmarshal form data")
		}
	}
	if len(checklistJSON) > 0 {
		if err := json.Unmarshal(checklistJSON, &s.ChecklistItems); err != nil {
			return errors.Wrap(err, errors.ErrCodeInternal, "failed to unmarshal checklist items")
		}
	}
	if len(listJSON) > 0 {
		if err := json.Unmarshal(listJSON, &s.DynamicListData); err != nil {
			return errors.Wrap(err, errors.ErrCodeInternal, "failed to unmarshal list entries")
		}
	}
	return nil
}
