package service

import (
	"context"
	"strings"

	"github.com/pesio-ai/be-pd-compliance/internal/errors"
	"github.com/pesio-ai/be-pd-compliance/internal/logger"
	"github.com/pesio-ai/be-pd-compliance/internal/repository"
	"github.com/pesio-ai/be-pd-compliance/internal/workflow"
)

// Workflow event types published after status changes.
const (
	EventStepSubmitted   = "step_submitted"
	EventStepApproved    = "step_approved"
	EventStepRejected    = "step_rejected"
	EventProgressChanged = "progress_changed"
	EventUploadUnlocked  = "upload_unlocked"
)

// StepStore is the persistence surface the service needs for steps.
type StepStore interface {
	GetByDeliverableID(ctx context.Context, deliverableID string) ([]*repository.ComplianceStep, error)
	GetByID(ctx context.Context, id string) (*repository.ComplianceStep, error)
	SaveContent(ctx context.Context, id string, status workflow.Status, c workflow.Content) error
	Submit(ctx context.Context, id string, c workflow.Content) error
	Approve(ctx context.Context, id string) error
	Reject(ctx context.Context, id, feedback string) error
}

// DeliverableStore is the persistence surface for the progress projection.
type DeliverableStore interface {
	GetByID(ctx context.Context, id string) (*repository.Deliverable, error)
	UpdateProgress(ctx context.Context, id string, progress int) error
}

// EventPublisher emits workflow events to interested observers. The real
// implementation is the NATS publisher in internal/client.
type EventPublisher interface {
	Publish(eventType, deliverableID, stepID string, progress int, payload map[string]interface{})
}

// WorkflowService orchestrates one deliverable's compliance workflow: it
// loads and orders steps, enforces the step state machine and role
// capabilities on every mutation, recomputes the progress projection after
// each status change, and exposes the deliverable-level upload gate.
type WorkflowService struct {
	steps        StepStore
	deliverables DeliverableStore
	events       EventPublisher
	log          *logger.Logger
}

// NewWorkflowService creates a new WorkflowService.
func NewWorkflowService(
	steps StepStore,
	deliverables DeliverableStore,
	events EventPublisher,
	log *logger.Logger,
) *WorkflowService {
	return &WorkflowService{
		steps:        steps,
		deliverables: deliverables,
		events:       events,
		log:          log,
	}
}

// WorkflowView is the loaded workflow with its derived projections.
type WorkflowView struct {
	DeliverableID  string
	Steps          []*repository.ComplianceStep
	Progress       int
	ActionableStep *repository.ComplianceStep // nil when nothing is actionable
	UploadUnlocked bool
}

// GetSteps loads the ordered workflow for a deliverable. A deliverable with
// no configured steps has no workflow and yields NOT_FOUND; that is a
// configuration error to surface upstream, never an auto-unlock.
func (s *WorkflowService) GetSteps(ctx context.Context, deliverableID string, role workflow.Role) (*WorkflowView, error) {
	if !role.Valid() {
		return nil, errors.InvalidInput("role", "unknown actor role")
	}
	if _, err := s.deliverables.GetByID(ctx, deliverableID); err != nil {
		return nil, err
	}

	steps, err := s.steps.GetByDeliverableID(ctx, deliverableID)
	if err != nil {
		return nil, err
	}
	if len(steps) == 0 {
		return nil, errors.NotFound("compliance_workflow", deliverableID)
	}

	view := &WorkflowView{DeliverableID: deliverableID, Steps: steps}
	view.Progress = workflow.ComputeProgress(statusesOf(steps))
	view.UploadUnlocked = workflow.IsUploadUnlocked(view.Progress)
	if i := workflow.SelectActionable(statusesOf(steps)); i >= 0 {
		view.ActionableStep = steps[i]
	}
	return view, nil
}

// GetStep loads a single step.
func (s *WorkflowService) GetStep(ctx context.Context, stepID string) (*repository.ComplianceStep, error) {
	return s.steps.GetByID(ctx, stepID)
}

// SaveDraft persists in-progress content for a step and moves it into draft.
// Saving repeatedly is idempotent; a rejected step becomes a draft again on
// its first edit, which also clears the admin feedback.
func (s *WorkflowService) SaveDraft(ctx context.Context, stepID string, role workflow.Role, content workflow.Content) (*repository.ComplianceStep, error) {
	step, err := s.editableStep(ctx, stepID, role, content)
	if err != nil {
		return nil, err
	}

	next, err := workflow.BeginEdit(step.Status)
	if err != nil {
		return nil, err
	}

	if err := s.steps.SaveContent(ctx, stepID, next, content); err != nil {
		return nil, err
	}

	s.log.Debug().
		Str("step_id", stepID).
		Str("deliverable_id", step.DeliverableID).
		Msg("Draft saved")

	return s.steps.GetByID(ctx, stepID)
}

// Submit persists the submitted content snapshot and flips the step to
// submitted. The caller supplies the freshest content; submission never
// waits on a pending autosave.
func (s *WorkflowService) Submit(ctx context.Context, stepID string, role workflow.Role, content workflow.Content) (*repository.ComplianceStep, error) {
	step, err := s.editableStep(ctx, stepID, role, content)
	if err != nil {
		return nil, err
	}

	if _, err := workflow.Submit(step.Status); err != nil {
		return nil, err
	}

	if err := s.steps.Submit(ctx, stepID, content); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("step_id", stepID).
		Str("deliverable_id", step.DeliverableID).
		Str("step_type", string(step.StepType)).
		Msg("Step submitted")

	progress := s.recomputeProgress(ctx, step.DeliverableID)
	s.events.Publish(EventStepSubmitted, step.DeliverableID, stepID, progress, map[string]interface{}{
		"step_name": step.Name,
	})

	return s.steps.GetByID(ctx, stepID)
}

// Approve records terminal approval of a submitted step and stamps the
// review time. Approving an already approved step is a tolerated no-op.
func (s *WorkflowService) Approve(ctx context.Context, stepID string, role workflow.Role) (*repository.ComplianceStep, error) {
	if !role.CanDecide() {
		return nil, errors.New(errors.ErrCodeUnauthorized, "only the reviewing party can approve steps")
	}

	step, err := s.steps.GetByID(ctx, stepID)
	if err != nil {
		return nil, err
	}
	if step.Status.Terminal() {
		// Re-approval is not an error.
		return step, nil
	}
	if _, err := workflow.Approve(step.Status); err != nil {
		return nil, err
	}

	if err := s.steps.Approve(ctx, stepID); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("step_id", stepID).
		Str("deliverable_id", step.DeliverableID).
		Msg("Step approved")

	progress := s.recomputeProgress(ctx, step.DeliverableID)
	s.events.Publish(EventStepApproved, step.DeliverableID, stepID, progress, nil)
	if workflow.IsUploadUnlocked(progress) {
		s.events.Publish(EventUploadUnlocked, step.DeliverableID, "", progress, nil)
	}

	return s.steps.GetByID(ctx, stepID)
}

// Reject returns a submitted step to the submitting party with mandatory
// feedback. Empty or whitespace-only feedback fails validation with no
// mutation.
func (s *WorkflowService) Reject(ctx context.Context, stepID string, role workflow.Role, feedback string) (*repository.ComplianceStep, error) {
	if !role.CanDecide() {
		return nil, errors.New(errors.ErrCodeUnauthorized, "only the reviewing party can reject steps")
	}
	if strings.TrimSpace(feedback) == "" {
		return nil, errors.InvalidInput("feedback", "rejection feedback is required")
	}

	step, err := s.steps.GetByID(ctx, stepID)
	if err != nil {
		return nil, err
	}
	if _, err := workflow.Reject(step.Status); err != nil {
		return nil, err
	}

	if err := s.steps.Reject(ctx, stepID, feedback); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("step_id", stepID).
		Str("deliverable_id", step.DeliverableID).
		Msg("Step rejected")

	progress := s.recomputeProgress(ctx, step.DeliverableID)
	s.events.Publish(EventStepRejected, step.DeliverableID, stepID, progress, map[string]interface{}{
		"feedback": feedback,
	})

	return s.steps.GetByID(ctx, stepID)
}

// GetProgress returns the current progress projection and the upload gate.
func (s *WorkflowService) GetProgress(ctx context.Context, deliverableID string) (progress int, uploadUnlocked bool, err error) {
	steps, err := s.steps.GetByDeliverableID(ctx, deliverableID)
	if err != nil {
		return 0, false, err
	}
	progress = workflow.ComputeProgress(statusesOf(steps))
	return progress, workflow.IsUploadUnlocked(progress), nil
}

// ── internal helpers ──────────────────────────────────────────────────────────

// editableStep loads a step and checks every precondition shared by content
// mutations: actor capability, vendor-editable type, editable status, and
// content validity for the step's type.
func (s *WorkflowService) editableStep(ctx context.Context, stepID string, role workflow.Role, content workflow.Content) (*repository.ComplianceStep, error) {
	if !role.CanEdit() {
		return nil, errors.New(errors.ErrCodeUnauthorized, "only the submitting party can edit step content")
	}

	step, err := s.steps.GetByID(ctx, stepID)
	if err != nil {
		return nil, err
	}
	if !step.StepType.VendorEditable() {
		return nil, errors.InvalidTransition("edit", string(step.StepType)+" step")
	}
	if content.Type != step.StepType {
		return nil, errors.InvalidInput("content", "content type does not match the step type")
	}
	if err := content.Validate(); err != nil {
		return nil, err
	}
	return step, nil
}

// recomputeProgress refreshes the cached projection and notifies observers.
// Failures are logged, not surfaced: the cache is derived state and the next
// status change recomputes it.
func (s *WorkflowService) recomputeProgress(ctx context.Context, deliverableID string) int {
	steps, err := s.steps.GetByDeliverableID(ctx, deliverableID)
	if err != nil {
		s.log.Warn().Err(err).Str("deliverable_id", deliverableID).Msg("Failed to reload steps for progress recompute")
		return 0
	}

	progress := workflow.ComputeProgress(statusesOf(steps))
	if err := s.deliverables.UpdateProgress(ctx, deliverableID, progress); err != nil {
		s.log.Warn().Err(err).Str("deliverable_id", deliverableID).Msg("Failed to cache compliance progress")
	}

	s.events.Publish(EventProgressChanged, deliverableID, "", progress, nil)
	return progress
}

func statusesOf(steps []*repository.ComplianceStep) []workflow.Status {
	statuses := make([]workflow.Status, len(steps))
	for i, step := range steps {
		statuses[i] = step.Status
	}
	return statuses
}
