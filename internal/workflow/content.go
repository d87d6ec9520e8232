package workflow

import (
	"github.com/google/uuid"

	"github.com/pesio-ai/be-pd-compliance/internal/errors"
)

// StepType fixes the content shape of a compliance step. Immutable once the
// step is created.
type StepType string

const (
	StepFormText       StepType = "form_text"
	StepFormTextarea   StepType = "form_textarea"
	StepChecklist      StepType = "checklist"
	StepDynamicList    StepType = "dynamic_list"
	StepFileUpload     StepType = "file_upload"
	StepApproval       StepType = "approval"
	StepCorrectionList StepType = "correction_list"
)

// Valid reports whether t is a known step type.
func (t StepType) Valid() bool {
	switch t {
	case StepFormText, StepFormTextarea, StepChecklist, StepDynamicList,
		StepFileUpload, StepApproval, StepCorrectionList:
		return true
	}
	return false
}

// VendorEditable reports whether the submitting party may mutate this step's
// content at all. Approval steps are observed by the vendor, never edited.
func (t StepType) VendorEditable() bool {
	return t != StepApproval
}

// ChecklistItem is one independently toggleable entry of a checklist step.
type ChecklistItem struct {
	ID      string `json:"id"`
	Label   string `json:"label"`
	Checked bool   `json:"checked"`
}

// ListEntry is one free-text entry of a dynamic or correction list step.
type ListEntry struct {
	ID    string `json:"id"`
	Value string `json:"value"`
}

// Content is the tagged union of per-type step payloads. Only the fields
// belonging to Type carry meaning; Normalize zeroes the rest.
type Content struct {
	Type    StepType
	Value   string          // form_text, form_textarea
	Items   []ChecklistItem // checklist
	Entries []ListEntry     // dynamic_list, correction_list
	FileURL string          // file_upload
}

// NewContent returns the empty content for a step type.
func NewContent(t StepType) Content {
	c := Content{Type: t}
	c.Normalize()
	return c
}

// Normalize substitutes empty defaults for absent values and drops fields
// that do not belong to the step type, so downstream code never branches on
// nil.
func (c *Content) Normalize() {
	switch c.Type {
	case StepFormText, StepFormTextarea:
		c.Items, c.Entries, c.FileURL = nil, nil, ""
	case StepChecklist:
		if c.Items == nil {
			c.Items = []ChecklistItem{}
		}
		c.Value, c.Entries, c.FileURL = "", nil, ""
	case StepDynamicList, StepCorrectionList:
		if c.Entries == nil {
			c.Entries = []ListEntry{}
		}
		c.Value, c.Items, c.FileURL = "", nil, ""
	case StepFileUpload:
		c.Value, c.Items, c.Entries = "", nil, nil
	case StepApproval:
		c.Value, c.Items, c.Entries, c.FileURL = "", nil, nil, ""
	}
}

// Validate checks the content against its step type.
func (c Content) Validate() error {
	if !c.Type.Valid() {
		return errors.InvalidInput("stepType", "unknown step type '"+string(c.Type)+"'")
	}
	switch c.Type {
	case StepApproval:
		if c.Value != "" || len(c.Items) > 0 || len(c.Entries) > 0 || c.FileURL != "" {
			return errors.InvalidInput("content", "approval steps carry no submitter content")
		}
	case StepChecklist:
		for _, item := range c.Items {
			if item.ID == "" {
				return errors.InvalidInput("checklistItems", "checklist item is missing an id")
			}
		}
	case StepDynamicList, StepCorrectionList:
		for _, entry := range c.Entries {
			if entry.ID == "" {
				return errors.InvalidInput("dynamicListData", "list entry is missing an id")
			}
		}
	}
	return nil
}

// Equal reports structural equality across all content fields. The autosave
// controller uses it to skip writes when nothing changed.
func (c Content) Equal(other Content) bool {
	if c.Type != other.Type || c.Value != other.Value || c.FileURL != other.FileURL {
		return false
	}
	if len(c.Items) != len(other.Items) || len(c.Entries) != len(other.Entries) {
		return false
	}
	for i, item := range c.Items {
		if item != other.Items[i] {
			return false
		}
	}
	for i, entry := range c.Entries {
		if entry != other.Entries[i] {
			return false
		}
	}
	return true
}

// Clone returns a deep copy, so held snapshots are not aliased to caller
// slices.
func (c Content) Clone() Content {
	out := c
	if c.Items != nil {
		out.Items = make([]ChecklistItem, len(c.Items))
		copy(out.Items, c.Items)
	}
	if c.Entries != nil {
		out.Entries = make([]ListEntry, len(c.Entries))
		copy(out.Entries, c.Entries)
	}
	return out
}

// ── checklist operations ──────────────────────────────────────────────────────

// Toggle flips the checked flag of one checklist item.
func (c *Content) Toggle(itemID string) error {
	for i := range c.Items {
		if c.Items[i].ID == itemID {
			c.Items[i].Checked = !c.Items[i].Checked
			return nil
		}
	}
	return errors.NotFound("checklist_item", itemID)
}

// CheckedCount returns checked and total item counts for the in-step
// progress indicator. This is unrelated to deliverable-level progress.
func (c Content) CheckedCount() (checked, total int) {
	for _, item := range c.Items {
		if item.Checked {
			checked++
		}
	}
	return checked, len(c.Items)
}

// ── dynamic list operations ───────────────────────────────────────────────────

// AppendEntry adds a new free-text entry with a fresh identifier and returns it.
func (c *Content) AppendEntry(value string) ListEntry {
	entry := ListEntry{ID: uuid.NewString(), Value: value}
	c.Entries = append(c.Entries, entry)
	return entry
}

// EditEntry replaces the text of an existing entry.
func (c *Content) EditEntry(entryID, value string) error {
	for i := range c.Entries {
		if c.Entries[i].ID == entryID {
			c.Entries[i].Value = value
			return nil
		}
	}
	return errors.NotFound("list_entry", entryID)
}

// RemoveEntry deletes an entry by identifier, preserving order.
func (c *Content) RemoveEntry(entryID string) error {
	for i := range c.Entries {
		if c.Entries[i].ID == entryID {
			c.Entries = append(c.Entries[:i], c.Entries[i+1:]...)
			return nil
		}
	}
	return errors.NotFound("list_entry", entryID)
}

// FormValue extracts the conventional single value from a stored form data
// map ({"value": "..."}).
func FormValue(formData map[string]string) string {
	return formData["value"]
}
