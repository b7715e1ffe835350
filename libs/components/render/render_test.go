package render

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matapang/platform/libs/components/schema"
	"github.com/matapang/platform/libs/shared/errs"
)

func ptr(f float64) *float64 { return &f }

func auditForm() schema.Form {
	return schema.Form{
		FormID:   "daily_audit",
		FormName: "Daily Audit",
		Sections: []schema.Section{{
			SectionID: "general",
			Title:     "General",
			Fields: []schema.Field{
				{FieldID: "audit_date", Type: schema.TypeDate, Label: "Audit Date", Required: true, Config: schema.InputConfig{}},
				{FieldID: "shift", Type: schema.TypeRadio, Label: "Shift", Config: schema.ChoiceConfig{Options: []string{"A", "B"}}},
				{FieldID: "ppe", Type: schema.TypeChecklist, Label: "PPE", Config: schema.ChecklistConfig{Items: []schema.Item{
					{ID: "helmet", Question: "Helmet"}, {FieldID: "gloves", Label: "Gloves"}, {Name: "Boots"},
				}}},
				{FieldID: "guards", Type: schema.TypeGridTable, Label: "Guards", Config: schema.GridConfig{
					Columns: []schema.Column{{ID: "c1", Label: "OK"}, {ID: "c2", Header: "Notes"}},
					Items:   []schema.Item{{ID: "r1", Question: "Press"}, {ID: "r2", Question: "Lathe"}},
				}},
				{FieldID: "pair", Type: schema.TypeColumns2, Config: schema.ColumnsConfig{Fields: []schema.Field{
					{FieldID: "temp", Type: schema.TypeNumber, Label: "Temp", Config: schema.NumericConfig{Min: ptr(0), Max: ptr(100), Step: ptr(0.5)}},
					{FieldID: "notes", Type: schema.TypeTextarea, Label: "Notes", Config: schema.InputConfig{}},
				}}},
				{Type: schema.TypeSectionDivider, Config: schema.DecorationConfig{}},
			},
		}},
	}
}

func TestSetCellIsolatesRowsAndColumns(t *testing.T) {
	current := map[string]any{
		"r1": map[string]any{"c1": "a", "c2": "b"},
		"r2": map[string]any{"c1": "x"},
	}
	got := SetCell(current, "r2", "c2", "y")

	assert.Equal(t, map[string]any{
		"r1": map[string]any{"c1": "a", "c2": "b"},
		"r2": map[string]any{"c1": "x", "c2": "y"},
	}, got)
	assert.Equal(t, map[string]any{"c1": "x"}, current["r2"], "input must not be mutated")
}

func TestSetCellOnNonObject(t *testing.T) {
	got := SetCell("garbage", "r1", "c1", "v")
	assert.Equal(t, map[string]any{"r1": map[string]any{"c1": "v"}}, got)

	got = SetCell(map[string]any{"r1": 5}, "r1", "c1", "v")
	assert.Equal(t, map[string]any{"r1": map[string]any{"c1": "v"}}, got)
}

func TestToggleItem(t *testing.T) {
	start := []any{"a", "b", "c"}
	off := ToggleItem(start, "b")
	assert.Equal(t, []string{"a", "c"}, off)

	on := ToggleItem(off, "b")
	assert.ElementsMatch(t, []string{"a", "b", "c"}, on)
	assert.Equal(t, []string{"a", "c", "b"}, on)

	assert.Equal(t, []string{"x"}, ToggleItem(nil, "x"))
}

func TestSetCellDecodesStoredJSON(t *testing.T) {
	stored := `{"r1":{"c1":"a","c2":"b"},"r2":{"c1":"x"}}`
	got := SetCell(stored, "r2", "c2", "y")

	assert.Equal(t, map[string]any{
		"r1": map[string]any{"c1": "a", "c2": "b"},
		"r2": map[string]any{"c1": "x", "c2": "y"},
	}, got)

	got = SetCell(map[string]any{"r1": `{"c1":"a"}`}, "r1", "c2", "b")
	assert.Equal(t, map[string]any{"r1": map[string]any{"c1": "a", "c2": "b"}}, got)
}

func TestToggleItemDecodesStoredJSON(t *testing.T) {
	assert.Equal(t, []string{"tax", "nda"}, ToggleItem(`["tax"]`, "nda"))
	assert.Equal(t, []string{}, ToggleItem(` ["tax"] `, "tax"))
	assert.Equal(t, []string{"tax", "nda"}, ToggleItem("tax", "nda"))
	assert.Equal(t, []string{"[broken", "x"}, ToggleItem("[broken", "x"))
}

func TestCell(t *testing.T) {
	v := map[string]any{"r1": map[string]any{"c1": 3.5, "c2": true}, "r2": "oops"}
	assert.Equal(t, "3.5", Cell(v, "r1", "c1"))
	assert.Equal(t, "true", Cell(v, "r1", "c2"))
	assert.Equal(t, "", Cell(v, "r2", "c1"))
	assert.Equal(t, "", Cell(nil, "r1", "c1"))
}

func TestRenderFieldDispatch(t *testing.T) {
	form := auditForm()
	values := Values{
		"audit_date": "2024-01-01",
		"shift":      "B",
		"ppe":        []any{"gloves"},
		"guards":     map[string]any{"r1": map[string]any{"c1": "yes"}, "r2": "bad"},
		"temp":       21.5,
	}

	view := Renderer{}.RenderForm(form, values)
	require.Len(t, view.Sections, 1)
	controls := view.Sections[0].Controls
	require.Len(t, controls, 6)

	assert.Equal(t, "2024-01-01", controls[0].Display)
	assert.Equal(t, []Option{{"A", false}, {"B", true}}, controls[1].Options)

	assert.Equal(t, []CheckItem{
		{Key: "helmet", Text: "Helmet"},
		{Key: "gloves", Text: "Gloves", Checked: true},
		{Key: "2", Text: "Boots"},
	}, controls[2].Items)

	grid := controls[3]
	assert.Equal(t, "yes", grid.Cells["r1"]["c1"])
	assert.Equal(t, "", grid.Cells["r1"]["c2"])
	assert.Equal(t, "", grid.Cells["r2"]["c1"])
	assert.Equal(t, "Notes", grid.Columns[1].Label)

	pair := controls[4]
	assert.Equal(t, 2, pair.Width)
	require.Len(t, pair.Children, 2)
	assert.Equal(t, 21.5, pair.Children[0].Value)
	assert.Equal(t, 100.0, *pair.Children[0].Max)
	assert.Nil(t, pair.Value)

	assert.Equal(t, "decoration", controls[5].Kind)
}

func TestRenderEmptyGridShowsPlaceholder(t *testing.T) {
	f := schema.Field{FieldID: "g", Type: schema.TypeGridTable, Config: schema.GridConfig{
		Columns: []schema.Column{{ID: "c"}},
	}}
	c := Renderer{ReadOnly: true}.RenderField(f, Values{"g": "whatever"})
	assert.Equal(t, EmptyGridMessage, c.Empty)
	assert.True(t, c.ReadOnly)
	assert.Nil(t, c.Cells)
}

func TestRenderDecodesStoredValues(t *testing.T) {
	form := auditForm()
	guards, _ := form.FindField("guards")
	c := Renderer{ReadOnly: true}.RenderField(guards, Values{"guards": `{"r1":{"c1":"yes","c2":"oiled"}}`})
	assert.Equal(t, "yes", c.Cells["r1"]["c1"])
	assert.Equal(t, "oiled", c.Cells["r1"]["c2"])
	assert.Equal(t, "", c.Cells["r2"]["c1"])

	ppe, _ := form.FindField("ppe")
	c = Renderer{}.RenderField(ppe, Values{"ppe": `["helmet"]`})
	require.Len(t, c.Items, 3)
	assert.True(t, c.Items[0].Checked)
	assert.False(t, c.Items[1].Checked)
}

func TestRenderMultiChoiceDisplay(t *testing.T) {
	f := schema.Field{FieldID: "m", Type: schema.TypeMultiSelect, Config: schema.ChoiceConfig{Options: []string{"x", "y", "z"}}}
	c := Renderer{ReadOnly: true}.RenderField(f, Values{"m": []any{"z", "x"}})
	assert.Equal(t, "x, z", c.Display)
	assert.Equal(t, []string{"z", "x"}, c.Value)
}

func TestValidateValue(t *testing.T) {
	form := auditForm()
	get := func(id string) schema.Field {
		f, ok := form.FindField(id)
		require.True(t, ok, id)
		return f
	}

	cases := []struct {
		field string
		value any
		code  string
	}{
		{"audit_date", nil, "required"},
		{"audit_date", "01/02/2024", "date"},
		{"audit_date", "2024-02-01", ""},
		{"shift", "", ""},
		{"shift", "C", "option"},
		{"shift", []any{"A"}, "type"},
		{"ppe", []any{"helmet", "2"}, ""},
		{"ppe", []any{"visor"}, "checklist"},
		{"guards", "x", "matrix"},
		{"guards", map[string]any{"r1": "x"}, "matrix"},
		{"guards", `{"r1": {"c1": "yes"}}`, ""},
		{"guards", `{"r1": 3}`, "matrix"},
		{"ppe", `["helmet"]`, ""},
		{"ppe", `["visor"]`, "checklist"},
		{"temp", 101.0, "max"},
		{"temp", -1.0, "min"},
		{"temp", 20.25, "step"},
		{"temp", "20.5", ""},
		{"temp", "hot", "number"},
	}
	for _, tc := range cases {
		err := ValidateValue(get(tc.field), tc.value)
		if tc.code == "" {
			assert.NoError(t, err, "%s=%v", tc.field, tc.value)
			continue
		}
		ve, ok := errs.AsValidation(err)
		require.True(t, ok, "%s=%v: %v", tc.field, tc.value, err)
		assert.Equal(t, tc.code, ve.Code, "%s=%v", tc.field, tc.value)
	}
}

func TestValidateKeepsTextAnswersAsText(t *testing.T) {
	notes := schema.Field{FieldID: "n", Type: schema.TypeTextarea, Required: true, Config: schema.InputConfig{}}
	assert.NoError(t, ValidateValue(notes, "true"))
	assert.NoError(t, ValidateValue(notes, "[]"))

	multi := schema.Field{FieldID: "m", Type: schema.TypeMultiSelect, Required: true, Config: schema.ChoiceConfig{Options: []string{"x", "y"}}}
	assert.NoError(t, ValidateValue(multi, `["x","y"]`))
	ve, ok := errs.AsValidation(ValidateValue(multi, `[]`))
	require.True(t, ok)
	assert.Equal(t, "required", ve.Code)
}

func TestValidateInputFormats(t *testing.T) {
	email := schema.Field{FieldID: "e", Type: schema.TypeEmail, Config: schema.InputConfig{}}
	assert.NoError(t, ValidateValue(email, "ops@plant.example"))
	assert.Error(t, ValidateValue(email, "Ops <ops@plant.example>"))
	assert.Error(t, ValidateValue(email, "nope"))

	color := schema.Field{FieldID: "c", Type: schema.TypeColor, Config: schema.InputConfig{}}
	assert.NoError(t, ValidateValue(color, "#a1B2c3"))
	assert.Error(t, ValidateValue(color, "red"))

	file := schema.Field{FieldID: "f", Type: schema.TypeFile, Config: schema.FileConfig{}}
	assert.NoError(t, ValidateValue(file, map[string]any{"url": "/u/1", "filename": "a.pdf"}))
	assert.Error(t, ValidateValue(file, map[string]any{"filename": "a.pdf"}))
}

func TestFillRoutesWritesThroughUpdate(t *testing.T) {
	var seen []string
	fill := NewFill(auditForm(), Values{"ppe": []any{"helmet"}}, func(id string, _ any) {
		seen = append(seen, id)
	})

	require.NoError(t, fill.Set("audit_date", "2024-01-01"))
	require.NoError(t, fill.SetCell("guards", "r1", "c2", "loose"))
	require.NoError(t, fill.SetCell("guards", "r2", "c1", "yes"))
	require.NoError(t, fill.Toggle("ppe", "gloves"))
	require.NoError(t, fill.Toggle("ppe", "helmet"))

	assert.Equal(t, []string{"audit_date", "guards", "guards", "ppe", "ppe"}, seen)

	values := fill.Values()
	assert.Equal(t, []string{"gloves"}, values["ppe"])
	assert.Equal(t, map[string]any{
		"r1": map[string]any{"c2": "loose"},
		"r2": map[string]any{"c1": "yes"},
	}, values["guards"])

	assert.ErrorIs(t, fill.Set("nope", 1), errs.ErrInvalid)
	assert.ErrorIs(t, fill.SetCell("shift", "r", "c", 1), errs.ErrInvalid)
	assert.ErrorIs(t, fill.Toggle("audit_date", "x"), errs.ErrInvalid)
	assert.ErrorIs(t, fill.Set("pair", 1), errs.ErrInvalid, "layout fields hold no value")
}

func TestFillValidate(t *testing.T) {
	fill := NewFill(auditForm(), Values{"shift": "Z", "temp": 3.0}, nil)
	problems := fill.Validate()
	require.Len(t, problems, 2)
	assert.Equal(t, "audit_date", problems[0].FieldID)
	assert.Equal(t, "required", problems[0].Code)
	assert.Equal(t, "Audit Date is required", problems[0].Message)
	assert.Equal(t, "shift", problems[1].FieldID)

	require.NoError(t, fill.Set("audit_date", "2024-03-04"))
	require.NoError(t, fill.Set("shift", "A"))
	assert.Empty(t, fill.Validate())
}
