// Package workflow holds the compliance workflow domain: step statuses and
// their transition rules, the per-type step content model, and the progress
// projection. Everything here is pure; persistence and transport live in the
// repository and handler layers.
package workflow

import (
	"github.com/pesio-ai/be-pd-compliance/internal/errors"
)

// Status is the lifecycle state of a compliance step.
type Status string

const (
	StatusLocked    Status = "locked"
	StatusPending   Status = "pending"
	StatusDraft     Status = "draft"
	StatusSubmitted Status = "submitted"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
	// StatusCompleted is an accepted legacy spelling of terminal success.
	// It is never written by this service but may exist on configured steps.
	StatusCompleted Status = "completed"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusLocked, StatusPending, StatusDraft, StatusSubmitted,
		StatusApproved, StatusRejected, StatusCompleted:
		return true
	}
	return false
}

// Editable reports whether the submitting party may change step content.
// A rejected step is editable again; it keeps its rejected status for
// display until the first edit lands.
func (s Status) Editable() bool {
	return s == StatusPending || s == StatusDraft || s == StatusRejected
}

// Terminal reports whether the step counts as successfully finished.
func (s Status) Terminal() bool {
	return s == StatusApproved || s == StatusCompleted
}

// Actionable reports whether the step is the kind the submitter should be
// pointed at next.
func (s Status) Actionable() bool {
	return s == StatusPending || s == StatusDraft
}

// BeginEdit returns the status a step takes when the submitter edits its
// content. Editing is idempotent: a draft stays a draft.
func BeginEdit(s Status) (Status, error) {
	if !s.Editable() {
		return s, errors.InvalidTransition("edit", string(s))
	}
	return StatusDraft, nil
}

// Submit returns the status a step takes on explicit submission.
// Submission from rejected is allowed; it is an edit and a submit in one
// action, since a rejected step is editable again.
func Submit(s Status) (Status, error) {
	if !s.Editable() {
		return s, errors.InvalidTransition("submit", string(s))
	}
	return StatusSubmitted, nil
}

// Approve returns the status a step takes when the reviewer approves it.
// Re-approving an already terminal step is a tolerated no-op; callers check
// Terminal first.
func Approve(s Status) (Status, error) {
	if s != StatusSubmitted {
		return s, errors.InvalidTransition("approve", string(s))
	}
	return StatusApproved, nil
}

// Reject returns the status a step takes when the reviewer rejects it.
// Feedback validation belongs to the service layer.
func Reject(s Status) (Status, error) {
	if s != StatusSubmitted {
		return s, errors.InvalidTransition("reject", string(s))
	}
	return StatusRejected, nil
}

// Role is the capability class of the acting party.
type Role string

const (
	RoleVendor Role = "vendor"
	RoleAdmin  Role = "admin"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleVendor || r == RoleAdmin
}

// CanEdit reports whether the role may change step content and submit.
func (r Role) CanEdit() bool {
	return r == RoleVendor
}

// CanDecide reports whether the role may approve or reject submitted steps.
func (r Role) CanDecide() bool {
	return r == RoleAdmin
}
