package repository

import (
	"time"

	"github.com/pesio-ai/be-pd-compliance/internal/workflow"
)

// ── Domain records for the compliance workflow ───────────────────────────────

// ComplianceStep is one ordered entry in a deliverable's compliance workflow.
// Content columns (form_data, checklist_items, dynamic_list_data) are JSONB.
type ComplianceStep struct {
	ID              string
	DeliverableID   string
	Position        int // array index; defines display order
	Name            string
	Description     string
	StepType        workflow.StepType
	Status          workflow.Status
	FormData        map[string]string
	ChecklistItems  []workflow.ChecklistItem
	DynamicListData []workflow.ListEntry
	FileURL         *string
	AdminFeedback   *string // present only while status is rejected
	ReviewedAt      *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Content assembles the typed content union for the step, normalized so no
// field is nil for its type.
func (s *ComplianceStep) Content() workflow.Content {
	c := workflow.Content{
		Type:    s.StepType,
		Value:   workflow.FormValue(s.FormData),
		Items:   s.ChecklistItems,
		Entries: s.DynamicListData,
	}
	if s.FileURL != nil {
		c.FileURL = *s.FileURL
	}
	c.Normalize()
	return c
}

// ApplyContent writes a content union back onto the record's storage fields.
func (s *ComplianceStep) ApplyContent(c workflow.Content) {
	c.Normalize()
	switch c.Type {
	case workflow.StepFormText, workflow.StepFormTextarea:
		s.FormData = map[string]string{"value": c.Value}
	case workflow.StepChecklist:
		s.ChecklistItems = c.Items
	case workflow.StepDynamicList, workflow.StepCorrectionList:
		s.DynamicListData = c.Entries
	case workflow.StepFileUpload:
		if c.FileURL != "" {
			url := c.FileURL
			s.FileURL = &url
		}
	}
}

// Deliverable owns a compliance workflow and caches its derived progress.
type Deliverable struct {
	ID                 string
	ProjectID          string
	Name               string
	ComplianceProgress int // derived projection of step statuses, never set directly
	CreatedAt          time.Time
	UpdatedAt          time.Time
}
