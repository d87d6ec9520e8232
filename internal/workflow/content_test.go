package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pesio-ai/be-pd-compliance/internal/errors"
)

func TestNormalizeSubstitutesEmptyDefaults(t *testing.T) {
	c := Content{Type: StepChecklist}
	c.Normalize()
	require.NotNil(t, c.Items)
	assert.Empty(t, c.Items)

	c = Content{Type: StepDynamicList}
	c.Normalize()
	require.NotNil(t, c.Entries)
	assert.Empty(t, c.Entries)
}

func TestNormalizeDropsForeignFields(t *testing.T) {
	c := Content{
		Type:    StepFormText,
		Value:   "hello",
		Items:   []ChecklistItem{{ID: "1", Label: "x"}},
		Entries: []ListEntry{{ID: "2", Value: "y"}},
		FileURL: "https://example.com/f.pdf",
	}
	c.Normalize()

	assert.Equal(t, "hello", c.Value)
	assert.Nil(t, c.Items)
	assert.Nil(t, c.Entries)
	assert.Empty(t, c.FileURL)
}

func TestValidateApprovalRejectsContent(t *testing.T) {
	c := Content{Type: StepApproval, Value: "sneaky"}
	err := c.Validate()
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeValidation, errors.CodeOf(err))

	assert.NoError(t, NewContent(StepApproval).Validate())
}

func TestValidateUnknownType(t *testing.T) {
	c := Content{Type: "mystery"}
	err := c.Validate()
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeValidation, errors.CodeOf(err))
}

func TestValidateChecklistRequiresItemIDs(t *testing.T) {
	c := Content{Type: StepChecklist, Items: []ChecklistItem{{Label: "no id"}}}
	err := c.Validate()
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeValidation, errors.CodeOf(err))
}

func TestToggleAndCheckedCount(t *testing.T) {
	c := Content{Type: StepChecklist, Items: []ChecklistItem{
		{ID: "a", Label: "sign NDA"},
		{ID: "b", Label: "upload insurance"},
	}}

	require.NoError(t, c.Toggle("a"))
	checked, total := c.CheckedCount()
	assert.Equal(t, 1, checked)
	assert.Equal(t, 2, total)

	require.NoError(t, c.Toggle("a"))
	checked, _ = c.CheckedCount()
	assert.Equal(t, 0, checked)

	err := c.Toggle("missing")
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeNotFound, errors.CodeOf(err))
}

func TestDynamicListOperations(t *testing.T) {
	c := NewContent(StepDynamicList)

	first := c.AppendEntry("fix header")
	second := c.AppendEntry("fix footer")
	require.NotEmpty(t, first.ID)
	require.NotEqual(t, first.ID, second.ID)
	require.Len(t, c.Entries, 2)

	require.NoError(t, c.EditEntry(first.ID, "fix header typo"))
	assert.Equal(t, "fix header typo", c.Entries[0].Value)

	require.NoError(t, c.RemoveEntry(first.ID))
	require.Len(t, c.Entries, 1)
	assert.Equal(t, second.ID, c.Entries[0].ID)

	err := c.RemoveEntry(first.ID)
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeNotFound, errors.CodeOf(err))
}

func TestContentEqual(t *testing.T) {
	a := Content{Type: StepChecklist, Items: []ChecklistItem{{ID: "1", Label: "x", Checked: true}}}
	b := a.Clone()
	assert.True(t, a.Equal(b))

	b.Items[0].Checked = false
	assert.False(t, a.Equal(b))
	// Clone must not alias the original slice.
	assert.True(t, a.Items[0].Checked)

	assert.False(t, a.Equal(Content{Type: StepFormText, Value: "x"}))
}

func TestFormValue(t *testing.T) {
	assert.Equal(t, "hi", FormValue(map[string]string{"value": "hi"}))
	assert.Empty(t, FormValue(nil))
}
