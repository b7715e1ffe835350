package render

import (
	"github.com/matapang/platform/libs/components/schema"
	"github.com/matapang/platform/libs/shared/errs"
)

// Fill is an editing session over one form's values. Every write goes
// through the update callback after the session's own map is updated.
type Fill struct {
	form   schema.Form
	fields map[string]schema.Field
	values Values
	update UpdateFunc
}

// NewFill starts a session from initial values. update may be nil.
func NewFill(form schema.Form, initial Values, update UpdateFunc) *Fill {
	fields := make(map[string]schema.Field)
	for _, f := range form.ValueFields() {
		fields[f.FieldID] = f
	}
	values := initial.Clone()
	if update == nil {
		update = func(string, any) {}
	}
	return &Fill{form: form, fields: fields, values: values, update: update}
}

// Values returns a copy of the current values.
func (s *Fill) Values() Values {
	return s.values.Clone()
}

// Set stores a whole value for a field.
func (s *Fill) Set(fieldID string, value any) error {
	if _, err := s.field(fieldID); err != nil {
		return err
	}
	s.write(fieldID, value)
	return nil
}

// SetCell edits one cell of a table or grid-table field.
func (s *Fill) SetCell(fieldID, row, col string, value any) error {
	f, err := s.field(fieldID)
	if err != nil {
		return err
	}
	if !f.Type.IsMatrix() {
		return errs.Invalid("not_matrix", "field %q is not a table", fieldID)
	}
	s.write(fieldID, SetCell(s.values[fieldID], row, col, value))
	return nil
}

// Toggle flips one entry of a checklist, checkbox or multi-select field.
func (s *Fill) Toggle(fieldID, key string) error {
	f, err := s.field(fieldID)
	if err != nil {
		return err
	}
	switch f.Type.Kind() {
	case schema.KindChecklist, schema.KindMultiChoice:
	default:
		return errs.Invalid("not_toggle", "field %q does not hold a selection", fieldID)
	}
	s.write(fieldID, ToggleItem(s.values[fieldID], key))
	return nil
}

// Validate checks every value-holding field and returns the problems found,
// in form order.
func (s *Fill) Validate() []Problem {
	var problems []Problem
	for _, f := range s.form.ValueFields() {
		if err := ValidateValue(f, s.values[f.FieldID]); err != nil {
			p := Problem{FieldID: f.FieldID, Label: labelOf(f), Message: err.Error()}
			if ve, ok := errs.AsValidation(err); ok {
				p.Code = ve.Code
			}
			problems = append(problems, p)
		}
	}
	return problems
}

func (s *Fill) field(fieldID string) (schema.Field, error) {
	f, ok := s.fields[fieldID]
	if !ok {
		return schema.Field{}, errs.Invalid("unknown_field", "form has no field %q", fieldID)
	}
	return f, nil
}

func (s *Fill) write(fieldID string, value any) {
	s.values[fieldID] = value
	s.update(fieldID, value)
}
