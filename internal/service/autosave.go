package service

import (
	"context"
	"sync"
	"time"

	"github.com/pesio-ai/be-pd-compliance/internal/logger"
	"github.com/pesio-ai/be-pd-compliance/internal/workflow"
)

// DraftSaver is the persistence call the autosave controller issues once a
// snapshot has settled. The production implementation is
// WorkflowService.SaveDraft bound to the vendor role.
type DraftSaver interface {
	SaveDraft(ctx context.Context, stepID string, content workflow.Content) error
}

// DraftSaverFunc adapts a function to DraftSaver.
type DraftSaverFunc func(ctx context.Context, stepID string, content workflow.Content) error

func (f DraftSaverFunc) SaveDraft(ctx context.Context, stepID string, content workflow.Content) error {
	return f(ctx, stepID, content)
}

// StepAutosaver debounces content snapshots for one step and persists the
// settled snapshot when it differs from the last known persisted content.
//
// It is a small state machine over two flags:
//
//	idle                 — no timer, no write in flight
//	pending timer        — a snapshot is waiting out the quiet period
//	in flight            — a write is outstanding
//	in flight + queued   — a snapshot settled during the write; it fires
//	                       after the write resolves, coalesced to the most
//	                       recent snapshot at resolution time
//
// At most one write is in flight at a time. Persistence failures are logged
// and swallowed: the baseline is not advanced, so the next settle retries
// with the same or newer content. Close cancels the pending timer so a stale
// write never lands after the editing surface is gone.
type StepAutosaver struct {
	stepID  string
	saver   DraftSaver
	log     *logger.Logger
	quiet   time.Duration
	timeout time.Duration

	mu       sync.Mutex
	status   workflow.Status
	timer    *time.Timer
	pending  workflow.Content // most recent snapshot
	baseline workflow.Content // last known persisted content
	inFlight bool
	queued   bool
	closed   bool
}

// NewStepAutosaver creates an autosaver for one step. The baseline is the
// step's current server-side content; status gates whether snapshots are
// accepted at all.
func NewStepAutosaver(
	stepID string,
	status workflow.Status,
	baseline workflow.Content,
	saver DraftSaver,
	log *logger.Logger,
	quiet, timeout time.Duration,
) *StepAutosaver {
	return &StepAutosaver{
		stepID:   stepID,
		saver:    saver,
		log:      log,
		quiet:    quiet,
		timeout:  timeout,
		status:   status,
		baseline: baseline.Clone(),
	}
}

// Snapshot records an in-progress edit. Each call resets the quiet period;
// only the final snapshot after the edits stop is considered settled. The
// controller is inert while the step is not editable.
func (a *StepAutosaver) Snapshot(content workflow.Content) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed || !a.status.Editable() {
		return
	}

	a.pending = content.Clone()
	if a.timer != nil {
		a.timer.Stop()
	}
	a.timer = time.AfterFunc(a.quiet, a.settle)
}

// SetStatus tracks the step's server-side status. Once the step leaves the
// editable states the controller stops accepting snapshots.
func (a *StepAutosaver) SetStatus(status workflow.Status) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.status = status
}

// Close cancels any pending timer and stops the controller. An already
// outstanding write is left to resolve; no further write starts.
func (a *StepAutosaver) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.closed = true
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
}

// settle fires when the quiet period elapses with no further snapshot.
func (a *StepAutosaver) settle() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.timer = nil
	if a.closed {
		return
	}
	if a.pending.Equal(a.baseline) {
		// Nothing changed since the last persisted content: skip the write.
		return
	}
	if a.inFlight {
		a.queued = true
		return
	}
	a.startWrite(a.pending)
}

// startWrite launches the persistence call. Caller holds a.mu.
func (a *StepAutosaver) startWrite(snapshot workflow.Content) {
	a.inFlight = true

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
		err := a.saver.SaveDraft(ctx, a.stepID, snapshot)
		cancel()

		a.mu.Lock()
		defer a.mu.Unlock()

		a.inFlight = false
		if err != nil {
			// Best-effort: keep the old baseline so the next settle retries.
			a.log.Warn().Err(err).Str("step_id", a.stepID).Msg("Autosave failed")
		} else {
			a.baseline = snapshot
		}

		if a.queued {
			a.queued = false
			if !a.closed && !a.pending.Equal(a.baseline) {
				a.startWrite(a.pending)
			}
		}
	}()
}

// AutosaveManager owns one StepAutosaver per step being edited. Release
// cancels a single step's debounce when its editing surface goes away;
// CloseAll runs at shutdown.
type AutosaveManager struct {
	saver   DraftSaver
	log     *logger.Logger
	quiet   time.Duration
	timeout time.Duration

	mu     sync.Mutex
	active map[string]*StepAutosaver
}

// NewAutosaveManager creates an AutosaveManager.
func NewAutosaveManager(saver DraftSaver, log *logger.Logger, quiet, timeout time.Duration) *AutosaveManager {
	return &AutosaveManager{
		saver:   saver,
		log:     log,
		quiet:   quiet,
		timeout: timeout,
		active:  map[string]*StepAutosaver{},
	}
}

// Snapshot feeds an edit snapshot for a step, creating its autosaver on
// first contact.
func (m *AutosaveManager) Snapshot(stepID string, status workflow.Status, baseline, content workflow.Content) {
	m.mu.Lock()
	a, ok := m.active[stepID]
	if !ok {
		a = NewStepAutosaver(stepID, status, baseline, m.saver, m.log, m.quiet, m.timeout)
		m.active[stepID] = a
	}
	m.mu.Unlock()

	a.SetStatus(status)
	a.Snapshot(content)
}

// Release cancels the autosaver for one step.
func (m *AutosaveManager) Release(stepID string) {
	m.mu.Lock()
	a, ok := m.active[stepID]
	delete(m.active, stepID)
	m.mu.Unlock()

	if ok {
		a.Close()
	}
}

// CloseAll cancels every active autosaver.
func (m *AutosaveManager) CloseAll() {
	m.mu.Lock()
	active := m.active
	m.active = map[string]*StepAutosaver{}
	m.mu.Unlock()

	for _, a := range active {
		a.Close()
	}
}
