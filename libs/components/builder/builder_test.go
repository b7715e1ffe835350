package builder

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matapang/platform/libs/components/schema"
	"github.com/matapang/platform/libs/shared/errs"
)

func requireCode(t *testing.T, err error, code string) {
	t.Helper()
	ve, ok := errs.AsValidation(err)
	require.True(t, ok, "expected validation error, got %v", err)
	assert.Equal(t, code, ve.Code, ve.Message)
}

func validSession(t *testing.T) *Session {
	t.Helper()
	s := New("Daily Safety Audit")
	sec := s.AddSection("General Info")
	_, err := s.AddField(sec, schema.TypeDate, "Audit Date")
	require.NoError(t, err)
	idx, err := s.AddField(sec, schema.TypeRadio, "Shift")
	require.NoError(t, err)
	require.NoError(t, s.SetOptions(sec, idx, []string{"A", "B"}))
	s.AddApprovalLevel("u1")
	return s
}

func TestValidationOrder(t *testing.T) {
	s := New("")
	requireCode(t, s.Validate(), CodeFormName)

	s.Rename("  ")
	s.AddSection("")
	requireCode(t, s.Validate(), CodeFormName)

	s.Rename("Audit")
	requireCode(t, s.Validate(), CodeNoFields)

	_, err := s.AddField(0, schema.TypeDropdown, "")
	require.NoError(t, err)
	s.AddApprovalLevel("")
	requireCode(t, s.Validate(), CodeApprover)

	require.NoError(t, s.SetApprover(0, "u1"))
	requireCode(t, s.Validate(), CodeSection)

	require.NoError(t, s.SetSectionTitle(0, "Main"))
	requireCode(t, s.Validate(), CodeFieldLabel)

	require.NoError(t, s.SetFieldLabel(0, 0, "Line"))
	requireCode(t, s.Validate(), CodeOptions)

	require.NoError(t, s.SetOptions(0, 0, []string{" ", "L1"}))
	_, err = s.AddField(0, schema.TypeText, "line")
	require.NoError(t, err)
	requireCode(t, s.Validate(), CodeFieldID)

	require.NoError(t, s.SetFieldLabel(0, 1, "Line Notes"))
	assert.NoError(t, s.Validate())
}

func TestValidationCoversNestedColumnFields(t *testing.T) {
	s := validSession(t)
	idx, err := s.AddField(0, schema.TypeColumns2, "Pair")
	require.NoError(t, err)
	require.NoError(t, s.SetColumnFields(0, idx, []schema.Field{
		schema.NewField(schema.TypeMultiSelect, "Crew"),
	}))
	requireCode(t, s.Validate(), CodeOptions)

	require.NoError(t, s.SetColumnFields(0, idx, []schema.Field{
		schema.NewField(schema.TypeText, "Audit Date"),
	}))
	requireCode(t, s.Validate(), CodeFieldID)
}

func TestDecorationFieldsGetDefaultLabels(t *testing.T) {
	s := validSession(t)
	idx, err := s.AddField(0, schema.TypeSectionDivider, "")
	require.NoError(t, err)
	assert.Equal(t, "Section Divider", s.Form().Sections[0].Fields[idx].Label)

	_, err = s.AddField(0, schema.TypeSpacer, "")
	require.NoError(t, err)
	assert.NoError(t, s.Validate(), "decorations do not collide on ids")
}

func TestSaveAssignsIdentifiers(t *testing.T) {
	s := validSession(t)
	s.AddApprovalLevel("u2")
	require.NoError(t, s.RemoveApprovalLevel(0))

	form, err := s.Save()
	require.NoError(t, err)
	assert.Equal(t, "daily_safety_audit", form.FormID)
	assert.Equal(t, "general_info", form.Sections[0].SectionID)
	assert.Equal(t, "audit_date", form.Sections[0].Fields[0].FieldID)
	assert.Equal(t, []schema.ApprovalLevel{{Level: 1, ApproverID: "u2"}}, form.ApprovalFlow)
	assert.Equal(t, schema.FormDraft, form.Status)
	assert.Empty(t, form.Fields)
}

func TestSaveKeepsExistingIDs(t *testing.T) {
	existing := schema.Form{
		FormID:   "legacy_id",
		FormName: "Renamed Form",
		Status:   schema.FormPublished,
		Sections: []schema.Section{{Title: "S", Fields: []schema.Field{
			{FieldID: "kept", Type: schema.TypeText, Label: "Anything", Config: schema.InputConfig{}},
			{Type: schema.TypeText, Label: "Fresh One", Config: schema.InputConfig{}},
		}}},
	}
	s := Load(existing)
	form, err := s.Save()
	require.NoError(t, err)
	assert.Equal(t, "legacy_id", form.FormID)
	assert.Equal(t, "s", form.Sections[0].SectionID)
	assert.Equal(t, "kept", form.Sections[0].Fields[0].FieldID)
	assert.Equal(t, "fresh_one", form.Sections[0].Fields[1].FieldID)
	assert.Equal(t, schema.FormPublished, form.Status)
	assert.Equal(t, "", existing.Sections[0].Fields[1].FieldID, "loaded form must not be mutated")
}

func TestSetFieldTypeDropsIncompatibleConfig(t *testing.T) {
	s := validSession(t)

	require.NoError(t, s.SetFieldType(0, 1, schema.TypeDropdown))
	assert.Equal(t, []string{"A", "B"}, s.Form().Sections[0].Fields[1].Options(), "choice to choice keeps options")

	require.NoError(t, s.SetFieldType(0, 1, schema.TypeText))
	f := s.Form().Sections[0].Fields[1]
	assert.Equal(t, schema.InputConfig{}, f.Config)

	require.NoError(t, s.SetFieldType(0, 1, schema.TypeCheckbox))
	assert.Empty(t, s.Form().Sections[0].Fields[1].Options())

	idx, err := s.AddField(0, schema.TypeTable, "Readings")
	require.NoError(t, err)
	require.NoError(t, s.SetTableConfig(0, idx, 3, 2, []string{"Time"}))
	table, ok := s.Form().Sections[0].Fields[idx].Table()
	require.True(t, ok)
	assert.Equal(t, []string{"Time", "Column 2"}, table.Headings)

	require.NoError(t, s.SetFieldType(0, idx, schema.TypeSpacer))
	_, ok = s.Form().Sections[0].Fields[idx].Table()
	assert.False(t, ok)
	assert.Equal(t, schema.DecorationConfig{}, s.Form().Sections[0].Fields[idx].Config)
}

func TestTypedSettersRejectWrongTypes(t *testing.T) {
	s := validSession(t)
	assert.ErrorIs(t, s.SetOptions(0, 0, []string{"x"}), errs.ErrInvalid)
	assert.ErrorIs(t, s.SetTableConfig(0, 0, 1, 1, nil), errs.ErrInvalid)
	assert.ErrorIs(t, s.SetGrid(0, 0, nil, nil), errs.ErrInvalid)
	assert.ErrorIs(t, s.SetChecklist(0, 0, nil), errs.ErrInvalid)
	assert.ErrorIs(t, s.SetNumeric(0, 0, nil, nil, nil), errs.ErrInvalid)
	assert.ErrorIs(t, s.SetColumnFields(0, 0, nil), errs.ErrInvalid)
	assert.ErrorIs(t, s.SetFieldType(0, 0, "signature"), errs.ErrInvalid)
	assert.ErrorIs(t, s.SetRequired(5, 0, true), errs.ErrInvalid)
	assert.ErrorIs(t, s.RemoveField(0, 9), errs.ErrInvalid)
	assert.ErrorIs(t, s.SetApprover(3, "x"), errs.ErrInvalid)
}

func TestMoveIsPureReorder(t *testing.T) {
	s := New("Order")
	sec := s.AddSection("S")
	for _, label := range []string{"A", "B", "C", "D"} {
		_, err := s.AddField(sec, schema.TypeText, label)
		require.NoError(t, err)
	}

	labels := func() []string {
		var out []string
		for _, f := range s.Form().Sections[sec].Fields {
			out = append(out, f.FieldID)
		}
		return out
	}

	require.NoError(t, s.MoveField(sec, 0, 2))
	assert.Equal(t, []string{"b", "c", "a", "d"}, labels())
	require.NoError(t, s.MoveField(sec, 3, 0))
	assert.Equal(t, []string{"d", "b", "c", "a"}, labels())
	require.NoError(t, s.RemoveField(sec, 1))
	assert.Equal(t, []string{"d", "c", "a"}, labels())

	s.AddSection("T")
	require.NoError(t, s.MoveSection(1, 0))
	assert.Equal(t, "T", s.Form().Sections[0].Title)
	require.NoError(t, s.RemoveSection(0))
	assert.Len(t, s.Form().Sections, 1)
}

func TestFailedEditLeavesFieldUntouched(t *testing.T) {
	s := validSession(t)
	idx, err := s.AddField(0, schema.TypeNumber, "Temp")
	require.NoError(t, err)

	lo, hi := 10.0, 1.0
	assert.ErrorIs(t, s.SetNumeric(0, idx, &lo, &hi, nil), errs.ErrInvalid)
	assert.Equal(t, schema.NumericConfig{}, s.Form().Sections[0].Fields[idx].Config)
}
