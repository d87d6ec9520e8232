package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/pesio-ai/be-pd-compliance/internal/errors"
	"github.com/pesio-ai/be-pd-compliance/internal/logger"
	"github.com/pesio-ai/be-pd-compliance/internal/repository"
	"github.com/pesio-ai/be-pd-compliance/internal/service"
	"github.com/pesio-ai/be-pd-compliance/internal/workflow"
)

// HTTPHandler handles HTTP requests. The submitter family of routes acts
// with the vendor capability; the /admin family acts with the admin
// capability. Both run through the same workflow service.
type HTTPHandler struct {
	service  *service.WorkflowService
	autosave *service.AutosaveManager
	log      *logger.Logger
}

// NewHTTPHandler creates a new HTTP handler.
func NewHTTPHandler(svc *service.WorkflowService, autosave *service.AutosaveManager, log *logger.Logger) *HTTPHandler {
	return &HTTPHandler{
		service:  svc,
		autosave: autosave,
		log:      log,
	}
}

// ── wire types ────────────────────────────────────────────────────────────────

type stepContentRequest struct {
	StepID          string                   `json:"step_id"`
	FormData        map[string]string        `json:"formData"`
	ChecklistItems  []workflow.ChecklistItem `json:"checklistItems"`
	DynamicListData []workflow.ListEntry     `json:"dynamicListData"`
	FileURL         string                   `json:"fileUrl"`
}

type stepResponse struct {
	ID              string                   `json:"id"`
	DeliverableID   string                   `json:"deliverableId"`
	Position        int                      `json:"position"`
	Name            string                   `json:"name"`
	Description     string                   `json:"description"`
	StepType        workflow.StepType        `json:"stepType"`
	Status          workflow.Status          `json:"status"`
	FormData        map[string]string        `json:"formData,omitempty"`
	ChecklistItems  []workflow.ChecklistItem `json:"checklistItems,omitempty"`
	DynamicListData []workflow.ListEntry     `json:"dynamicListData,omitempty"`
	FileURL         *string                  `json:"fileUrl,omitempty"`
	AdminFeedback   *string                  `json:"adminFeedback,omitempty"`
	ReviewedAt      *time.Time               `json:"reviewedAt,omitempty"`
}

func toStepResponse(s *repository.ComplianceStep) stepResponse {
	return stepResponse{
		ID:              s.ID,
		DeliverableID:   s.DeliverableID,
		Position:        s.Position,
		Name:            s.Name,
		Description:     s.Description,
		StepType:        s.StepType,
		Status:          s.Status,
		FormData:        s.FormData,
		ChecklistItems:  s.ChecklistItems,
		DynamicListData: s.DynamicListData,
		FileURL:         s.FileURL,
		AdminFeedback:   s.AdminFeedback,
		ReviewedAt:      s.ReviewedAt,
	}
}

// contentFromRequest assembles the typed content union for the step's type
// from the open wire shape.
func contentFromRequest(t workflow.StepType, req *stepContentRequest) workflow.Content {
	c := workflow.Content{
		Type:    t,
		Value:   workflow.FormValue(req.FormData),
		Items:   req.ChecklistItems,
		Entries: req.DynamicListData,
		FileURL: req.FileURL,
	}
	c.Normalize()
	return c
}

// ── submitter routes ──────────────────────────────────────────────────────────

// GetSteps handles GET /api/v1/deliverables/steps?deliverable_id=&role=
func (h *HTTPHandler) GetSteps(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	deliverableID := r.URL.Query().Get("deliverable_id")
	if deliverableID == "" {
		http.Error(w, "Deliverable ID is required", http.StatusBadRequest)
		return
	}

	role := workflow.Role(r.URL.Query().Get("role"))
	if role == "" {
		role = workflow.RoleVendor
	}

	view, err := h.service.GetSteps(r.Context(), deliverableID, role)
	if err != nil {
		h.writeError(w, err)
		return
	}

	steps := make([]stepResponse, len(view.Steps))
	for i, s := range view.Steps {
		steps[i] = toStepResponse(s)
	}

	resp := map[string]interface{}{
		"deliverableId":  view.DeliverableID,
		"steps":          steps,
		"progress":       view.Progress,
		"uploadUnlocked": view.UploadUnlocked,
	}
	if view.ActionableStep != nil {
		resp["actionableStepId"] = view.ActionableStep.ID
	}

	h.writeJSON(w, http.StatusOK, resp)
}

// GetProgress handles GET /api/v1/deliverables/progress?deliverable_id=
func (h *HTTPHandler) GetProgress(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	deliverableID := r.URL.Query().Get("deliverable_id")
	if deliverableID == "" {
		http.Error(w, "Deliverable ID is required", http.StatusBadRequest)
		return
	}

	progress, unlocked, err := h.service.GetProgress(r.Context(), deliverableID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"deliverableId":  deliverableID,
		"progress":       progress,
		"uploadUnlocked": unlocked,
	})
}

// SaveDraft handles POST /api/v1/steps/draft.
//
// Draft writes are best-effort: the snapshot goes into the autosave
// controller, which debounces and persists it once settled. The endpoint
// acknowledges acceptance, not persistence.
func (h *HTTPHandler) SaveDraft(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req stepContentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.StepID == "" {
		http.Error(w, "Step ID is required", http.StatusBadRequest)
		return
	}

	step, err := h.service.GetStep(r.Context(), req.StepID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.autosave.Snapshot(step.ID, step.Status, step.Content(), contentFromRequest(step.StepType, &req))

	h.writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

// ReleaseDraft handles POST /api/v1/steps/draft/release, called when the
// editing surface for a step closes, so its pending debounce timer cannot
// fire a stale write afterwards.
func (h *HTTPHandler) ReleaseDraft(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		StepID string `json:"step_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.StepID == "" {
		http.Error(w, "Step ID is required", http.StatusBadRequest)
		return
	}

	h.autosave.Release(req.StepID)
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "released"})
}

// Submit handles POST /api/v1/steps/submit. Submission carries the freshest
// content directly and never waits on a pending autosave.
func (h *HTTPHandler) Submit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req stepContentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.StepID == "" {
		http.Error(w, "Step ID is required", http.StatusBadRequest)
		return
	}

	step, err := h.service.GetStep(r.Context(), req.StepID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	updated, err := h.service.Submit(r.Context(), req.StepID, workflow.RoleVendor,
		contentFromRequest(step.StepType, &req))
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, toStepResponse(updated))
}

// ── admin routes ──────────────────────────────────────────────────────────────

// Approve handles POST /api/v1/admin/steps/approve.
func (h *HTTPHandler) Approve(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		StepID string `json:"step_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.StepID == "" {
		http.Error(w, "Step ID is required", http.StatusBadRequest)
		return
	}

	updated, err := h.service.Approve(r.Context(), req.StepID, workflow.RoleAdmin)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, toStepResponse(updated))
}

// Reject handles POST /api/v1/admin/steps/reject.
func (h *HTTPHandler) Reject(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		StepID   string `json:"step_id"`
		Feedback string `json:"feedback"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.StepID == "" {
		http.Error(w, "Step ID is required", http.StatusBadRequest)
		return
	}

	updated, err := h.service.Reject(r.Context(), req.StepID, workflow.RoleAdmin, req.Feedback)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, toStepResponse(updated))
}

// ── response helpers ──────────────────────────────────────────────────────────

func (h *HTTPHandler) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.log.Warn().Err(err).Msg("Failed to encode response")
	}
}

func (h *HTTPHandler) writeError(w http.ResponseWriter, err error) {
	status := errors.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		h.log.Error().Err(err).Msg("Request failed")
	}
	h.writeJSON(w, status, map[string]string{
		"error": err.Error(),
		"code":  string(errors.CodeOf(err)),
	})
}
