package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComputeProgressZeroStepFloor(t *testing.T) {
	assert.Equal(t, 0, ComputeProgress(nil))
	assert.Equal(t, 0, ComputeProgress([]Status{}))
	assert.False(t, IsUploadUnlocked(0))
}

func TestComputeProgressScenario(t *testing.T) {
	// 4 steps: form_text, checklist, file_upload, approval.
	statuses := []Status{StatusApproved, StatusApproved, StatusApproved, StatusSubmitted}
	progress := ComputeProgress(statuses)
	assert.Equal(t, 75, progress)
	assert.False(t, IsUploadUnlocked(progress))

	statuses[3] = StatusApproved
	progress = ComputeProgress(statuses)
	assert.Equal(t, 100, progress)
	assert.True(t, IsUploadUnlocked(progress))
}

func TestComputeProgressCompletedCountsAsApproved(t *testing.T) {
	statuses := []Status{StatusCompleted, StatusApproved}
	assert.Equal(t, 100, ComputeProgress(statuses))
}

func TestComputeProgressRounds(t *testing.T) {
	assert.Equal(t, 33, ComputeProgress([]Status{StatusApproved, StatusPending, StatusPending}))
	assert.Equal(t, 67, ComputeProgress([]Status{StatusApproved, StatusApproved, StatusPending}))
}

func TestComputeProgressMonotonicUnderApproval(t *testing.T) {
	statuses := []Status{StatusApproved, StatusSubmitted, StatusPending, StatusSubmitted, StatusRejected}
	before := ComputeProgress(statuses)
	for i, s := range statuses {
		if s != StatusSubmitted {
			continue
		}
		next := make([]Status, len(statuses))
		copy(next, statuses)
		next[i] = StatusApproved
		assert.GreaterOrEqual(t, ComputeProgress(next), before)
	}
}

func TestSelectActionable(t *testing.T) {
	assert.Equal(t, -1, SelectActionable(nil))

	statuses := []Status{StatusApproved, StatusSubmitted, StatusDraft, StatusPending}
	assert.Equal(t, 2, SelectActionable(statuses))

	// Rejected steps await an explicit edit; they are not auto-focused.
	assert.Equal(t, -1, SelectActionable([]Status{StatusApproved, StatusRejected, StatusSubmitted}))

	assert.Equal(t, -1, SelectActionable([]Status{StatusLocked, StatusApproved, StatusCompleted}))
}
