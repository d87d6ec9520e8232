package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pesio-ai/be-pd-compliance/internal/logger"
	"github.com/pesio-ai/be-pd-compliance/internal/workflow"
)

const (
	testQuiet   = 30 * time.Millisecond
	testTimeout = time.Second
)

type recordingSaver struct {
	mu      sync.Mutex
	calls   []workflow.Content
	err     error
	release chan struct{} // when non-nil, SaveDraft blocks until it closes
}

func (r *recordingSaver) SaveDraft(_ context.Context, _ string, content workflow.Content) error {
	r.mu.Lock()
	release := r.release
	r.mu.Unlock()
	if release != nil {
		<-release
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, content)
	return r.err
}

func (r *recordingSaver) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

func (r *recordingSaver) call(i int) workflow.Content {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[i]
}

func (r *recordingSaver) lastCall() workflow.Content {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[len(r.calls)-1]
}

func formText(value string) workflow.Content {
	return workflow.Content{Type: workflow.StepFormText, Value: value}
}

func newTestAutosaver(saver DraftSaver) *StepAutosaver {
	return NewStepAutosaver("s1", workflow.StatusPending,
		workflow.NewContent(workflow.StepFormText), saver, logger.Nop(), testQuiet, testTimeout)
}

func TestAutosaveDebouncesToFinalSnapshot(t *testing.T) {
	saver := &recordingSaver{}
	a := newTestAutosaver(saver)
	defer a.Close()

	// Three edits within the quiet period: only the last one persists.
	a.Snapshot(formText("v1"))
	time.Sleep(testQuiet / 3)
	a.Snapshot(formText("v2"))
	time.Sleep(testQuiet / 3)
	a.Snapshot(formText("v3"))

	require.Eventually(t, func() bool { return saver.callCount() == 1 },
		time.Second, 5*time.Millisecond)
	assert.Equal(t, "v3", saver.lastCall().Value)

	// No trailing second write.
	time.Sleep(3 * testQuiet)
	assert.Equal(t, 1, saver.callCount())
}

func TestAutosaveSameSnapshotTwiceIsOneCall(t *testing.T) {
	saver := &recordingSaver{}
	a := newTestAutosaver(saver)
	defer a.Close()

	a.Snapshot(formText("same"))
	a.Snapshot(formText("same"))

	require.Eventually(t, func() bool { return saver.callCount() == 1 },
		time.Second, 5*time.Millisecond)
	time.Sleep(3 * testQuiet)
	assert.Equal(t, 1, saver.callCount())
}

func TestAutosaveSkipsWhenContentMatchesBaseline(t *testing.T) {
	saver := &recordingSaver{}
	a := newTestAutosaver(saver)
	defer a.Close()

	// Snapshot equals the initial baseline: settling issues no write.
	a.Snapshot(workflow.NewContent(workflow.StepFormText))

	time.Sleep(3 * testQuiet)
	assert.Equal(t, 0, saver.callCount())
}

func TestAutosaveCoalescesWhileInFlight(t *testing.T) {
	release := make(chan struct{})
	saver := &recordingSaver{release: release}
	a := newTestAutosaver(saver)
	defer a.Close()

	// First settle starts a write that blocks on the release channel.
	a.Snapshot(formText("v1"))
	time.Sleep(2 * testQuiet)

	// Two more settles while the write is outstanding: they queue, coalesced.
	a.Snapshot(formText("v2"))
	time.Sleep(2 * testQuiet)
	a.Snapshot(formText("v3"))
	time.Sleep(2 * testQuiet)

	saver.mu.Lock()
	saver.release = nil
	saver.mu.Unlock()
	close(release)

	require.Eventually(t, func() bool { return saver.callCount() == 2 },
		time.Second, 5*time.Millisecond)
	assert.Equal(t, "v1", saver.call(0).Value)
	assert.Equal(t, "v3", saver.lastCall().Value, "queued write carries the most recent snapshot")

	time.Sleep(3 * testQuiet)
	assert.Equal(t, 2, saver.callCount())
}

func TestAutosaveFailureKeepsBaselineForRetry(t *testing.T) {
	saver := &recordingSaver{err: context.DeadlineExceeded}
	a := newTestAutosaver(saver)
	defer a.Close()

	a.Snapshot(formText("v1"))
	require.Eventually(t, func() bool { return saver.callCount() == 1 },
		time.Second, 5*time.Millisecond)

	// Same content settles again: the baseline did not advance, so it retries.
	saver.mu.Lock()
	saver.err = nil
	saver.mu.Unlock()
	a.Snapshot(formText("v1"))
	require.Eventually(t, func() bool { return saver.callCount() == 2 },
		time.Second, 5*time.Millisecond)
	assert.Equal(t, "v1", saver.lastCall().Value)
}

func TestAutosaveCloseCancelsPendingTimer(t *testing.T) {
	saver := &recordingSaver{}
	a := newTestAutosaver(saver)

	a.Snapshot(formText("about to navigate away"))
	a.Close()

	time.Sleep(3 * testQuiet)
	assert.Equal(t, 0, saver.callCount())
}

func TestAutosaveInertWhenNotEditable(t *testing.T) {
	saver := &recordingSaver{}
	a := NewStepAutosaver("s1", workflow.StatusSubmitted,
		workflow.NewContent(workflow.StepFormText), saver, logger.Nop(), testQuiet, testTimeout)
	defer a.Close()

	a.Snapshot(formText("should not save"))

	time.Sleep(3 * testQuiet)
	assert.Equal(t, 0, saver.callCount())
}

func TestAutosaveManagerReleaseCancels(t *testing.T) {
	saver := &recordingSaver{}
	m := NewAutosaveManager(saver, logger.Nop(), testQuiet, testTimeout)
	defer m.CloseAll()

	baseline := workflow.NewContent(workflow.StepFormText)
	m.Snapshot("s1", workflow.StatusPending, baseline, formText("v1"))
	m.Release("s1")

	time.Sleep(3 * testQuiet)
	assert.Equal(t, 0, saver.callCount())

	// A new snapshot after release starts a fresh autosaver.
	m.Snapshot("s1", workflow.StatusPending, baseline, formText("v2"))
	require.Eventually(t, func() bool { return saver.callCount() == 1 },
		time.Second, 5*time.Millisecond)
	assert.Equal(t, "v2", saver.lastCall().Value)
}
