// Package render turns form schemas and submission values into control view
// models and applies fill-time edits.
package render

import (
	"strings"

	"github.com/matapang/platform/libs/components/schema"
)

// EmptyGridMessage is shown by grid-tables without rows or columns.
const EmptyGridMessage = "No rows defined"

// Option is one selectable choice.
type Option struct {
	Value    string `json:"value"`
	Selected bool   `json:"selected"`
}

// CheckItem is one checklist question.
type CheckItem struct {
	Key     string `json:"key"`
	Text    string `json:"text"`
	Checked bool   `json:"checked"`
}

// Control is the view model of one rendered field.
type Control struct {
	FieldID     string                       `json:"fieldId,omitempty"`
	Type        schema.FieldType             `json:"type"`
	Kind        string                       `json:"kind"`
	Label       string                       `json:"label,omitempty"`
	Required    bool                         `json:"required,omitempty"`
	ReadOnly    bool                         `json:"readOnly,omitempty"`
	Placeholder string                       `json:"placeholder,omitempty"`
	Value       any                          `json:"value,omitempty"`
	Display     string                       `json:"display,omitempty"`
	Min         *float64                     `json:"min,omitempty"`
	Max         *float64                     `json:"max,omitempty"`
	Step        *float64                     `json:"step,omitempty"`
	Options     []Option                     `json:"options,omitempty"`
	Items       []CheckItem                  `json:"items,omitempty"`
	Rows        []schema.Axis                `json:"rows,omitempty"`
	Columns     []schema.Axis                `json:"columns,omitempty"`
	Cells       map[string]map[string]string `json:"cells,omitempty"`
	Empty       string                       `json:"empty,omitempty"`
	Width       int                          `json:"width,omitempty"`
	Children    []Control                    `json:"children,omitempty"`
}

// SectionView is a rendered section.
type SectionView struct {
	SectionID string    `json:"sectionId"`
	Title     string    `json:"title"`
	Controls  []Control `json:"controls"`
}

// FormView is a rendered form.
type FormView struct {
	FormID   string        `json:"formId"`
	FormName string        `json:"formName"`
	ReadOnly bool          `json:"readOnly"`
	Controls []Control     `json:"controls,omitempty"`
	Sections []SectionView `json:"sections"`
}

// Renderer builds controls for editing or, with ReadOnly, for display.
type Renderer struct {
	ReadOnly bool
}

// RenderForm renders the legacy root fields and every section.
func (r Renderer) RenderForm(form schema.Form, values Values) FormView {
	view := FormView{
		FormID:   form.FormID,
		FormName: form.FormName,
		ReadOnly: r.ReadOnly,
		Sections: make([]SectionView, 0, len(form.Sections)),
	}
	for _, f := range form.Fields {
		view.Controls = append(view.Controls, r.RenderField(f, values))
	}
	for _, s := range form.Sections {
		sv := SectionView{SectionID: s.SectionID, Title: s.Title, Controls: make([]Control, 0, len(s.Fields))}
		for _, f := range s.Fields {
			sv.Controls = append(sv.Controls, r.RenderField(f, values))
		}
		view.Sections = append(view.Sections, sv)
	}
	return view
}

// RenderField renders one field against the current values.
func (r Renderer) RenderField(f schema.Field, values Values) Control {
	c := Control{
		FieldID:     f.FieldID,
		Type:        f.Type,
		Kind:        f.Type.Kind().String(),
		Label:       f.Label,
		Required:    f.Required,
		ReadOnly:    r.ReadOnly,
		Placeholder: f.Placeholder,
	}

	var current any
	if f.HoldsValue() {
		current = values[f.FieldID]
	}

	switch cfg := f.Config.(type) {
	case schema.InputConfig:
		c.Value = current
		c.Display = scalarString(current)
	case schema.NumericConfig:
		c.Value = current
		c.Display = scalarString(current)
		c.Min, c.Max, c.Step = cfg.Min, cfg.Max, cfg.Step
	case schema.ChoiceConfig:
		r.renderChoice(&c, f.Type, cfg, current)
	case schema.FileConfig:
		c.Value = current
		if name, ok := asObject(current)["filename"]; ok {
			c.Display = scalarString(name)
		}
	case schema.ChecklistConfig:
		r.renderChecklist(&c, cfg, current)
	case schema.TableConfig, schema.GridConfig:
		r.renderMatrix(&c, f, current)
	case schema.ColumnsConfig:
		c.Width = f.Type.ColumnCount()
		for _, sub := range cfg.Fields {
			c.Children = append(c.Children, r.RenderField(sub, values))
		}
	case schema.DecorationConfig:
		// Headers, dividers and spacers carry nothing beyond their label.
	}
	return c
}

func (r Renderer) renderChoice(c *Control, t schema.FieldType, cfg schema.ChoiceConfig, current any) {
	var selected map[string]bool
	if t.Kind() == schema.KindMultiChoice {
		picked := asStrings(current)
		selected = make(map[string]bool, len(picked))
		for _, p := range picked {
			selected[p] = true
		}
		c.Value = picked
	} else {
		s := scalarString(current)
		selected = map[string]bool{s: s != ""}
		c.Value = current
	}

	var shown []string
	for _, opt := range cfg.Options {
		c.Options = append(c.Options, Option{Value: opt, Selected: selected[opt]})
		if selected[opt] {
			shown = append(shown, opt)
		}
	}
	c.Display = strings.Join(shown, ", ")
}

func (r Renderer) renderChecklist(c *Control, cfg schema.ChecklistConfig, current any) {
	checked := make(map[string]bool)
	for _, key := range asStrings(current) {
		checked[key] = true
	}
	for i, item := range cfg.Items {
		key := schema.ChecklistKey(item, i)
		c.Items = append(c.Items, CheckItem{
			Key:     key,
			Text:    schema.ChecklistText(item, i),
			Checked: checked[key],
		})
	}
	c.Value = asStrings(current)
}

func (r Renderer) renderMatrix(c *Control, f schema.Field, current any) {
	rows, cols := schema.MatrixAxes(f)
	c.Rows, c.Columns = rows, cols
	if len(rows) == 0 || len(cols) == 0 {
		c.Empty = EmptyGridMessage
		return
	}

	c.Cells = make(map[string]map[string]string, len(rows))
	for _, row := range rows {
		line := make(map[string]string, len(cols))
		for _, col := range cols {
			line[col.Key] = Cell(current, row.Key, col.Key)
		}
		c.Cells[row.Key] = line
	}
}

