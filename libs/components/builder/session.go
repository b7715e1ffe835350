// Package builder is the authoring session for form schemas.
package builder

import (
	"fmt"
	"strings"

	"github.com/matapang/platform/libs/components/display"
	"github.com/matapang/platform/libs/components/schema"
	"github.com/matapang/platform/libs/shared/errs"
)

// Session edits a private copy of a form. Nothing is visible to callers
// until Save returns the validated document.
type Session struct {
	form schema.Form
}

// New starts an empty draft.
func New(name string) *Session {
	return &Session{form: schema.Form{
		FormName: name,
		Status:   schema.FormDraft,
		IsActive: true,
	}}
}

// Load starts a session from an existing form.
func Load(form schema.Form) *Session {
	return &Session{form: form.Clone()}
}

// Form returns a copy of the form being edited.
func (s *Session) Form() schema.Form {
	return s.form.Clone()
}

// Rename sets the form name. The formId is kept once assigned.
func (s *Session) Rename(name string) {
	s.form.FormName = name
}

// SetDescription sets the form description.
func (s *Session) SetDescription(description string) {
	s.form.Description = description
}

// SetTemplate marks the form as a reusable template.
func (s *Session) SetTemplate(template bool) {
	s.form.IsTemplate = template
}

// AddSection appends a section and returns its index.
func (s *Session) AddSection(title string) int {
	s.form.Sections = append(s.form.Sections, schema.Section{
		SectionID: schema.DeriveID(title),
		Title:     title,
	})
	return len(s.form.Sections) - 1
}

// RemoveSection drops a section with its fields.
func (s *Session) RemoveSection(idx int) error {
	if err := s.checkSection(idx); err != nil {
		return err
	}
	s.form.Sections = remove(s.form.Sections, idx)
	return nil
}

// MoveSection moves a section from one index to another.
func (s *Session) MoveSection(from, to int) error {
	if err := s.checkSection(from); err != nil {
		return err
	}
	if err := s.checkSection(to); err != nil {
		return err
	}
	s.form.Sections = move(s.form.Sections, from, to)
	return nil
}

// SetSectionTitle renames a section and re-derives its id.
func (s *Session) SetSectionTitle(idx int, title string) error {
	if err := s.checkSection(idx); err != nil {
		return err
	}
	s.form.Sections[idx].Title = title
	s.form.Sections[idx].SectionID = schema.DeriveID(title)
	return nil
}

// AddField appends a field of type t to a section and returns its index.
// Decoration fields without a label are named after their type.
func (s *Session) AddField(section int, t schema.FieldType, label string) (int, error) {
	if err := s.checkSection(section); err != nil {
		return 0, err
	}
	if !t.Valid() {
		return 0, errs.Invalid("field_type", "unknown field type %q", t)
	}
	if strings.TrimSpace(label) == "" && t.Kind() == schema.KindDecoration {
		label = display.TitleCase(string(t))
	}
	sec := &s.form.Sections[section]
	sec.Fields = append(sec.Fields, schema.NewField(t, label))
	return len(sec.Fields) - 1, nil
}

// RemoveField drops a field from a section.
func (s *Session) RemoveField(section, idx int) error {
	if err := s.checkField(section, idx); err != nil {
		return err
	}
	sec := &s.form.Sections[section]
	sec.Fields = remove(sec.Fields, idx)
	return nil
}

// MoveField reorders a field inside its section.
func (s *Session) MoveField(section, from, to int) error {
	if err := s.checkField(section, from); err != nil {
		return err
	}
	if err := s.checkField(section, to); err != nil {
		return err
	}
	sec := &s.form.Sections[section]
	sec.Fields = move(sec.Fields, from, to)
	return nil
}

// SetFieldLabel relabels a field and re-derives its id.
func (s *Session) SetFieldLabel(section, idx int, label string) error {
	return s.edit(section, idx, func(f *schema.Field) error {
		f.Label = label
		f.FieldID = schema.DeriveID(label)
		return nil
	})
}

// SetFieldType changes a field's type. Configuration survives only when the
// new type uses the same variant, so options and table settings never leak
// into an incompatible type.
func (s *Session) SetFieldType(section, idx int, t schema.FieldType) error {
	if !t.Valid() {
		return errs.Invalid("field_type", "unknown field type %q", t)
	}
	return s.edit(section, idx, func(f *schema.Field) error {
		f.Type = t
		if !schema.Matches(t, f.Config) {
			f.Config = schema.DefaultConfig(t)
		}
		return nil
	})
}

// SetRequired toggles the required flag.
func (s *Session) SetRequired(section, idx int, required bool) error {
	return s.edit(section, idx, func(f *schema.Field) error {
		f.Required = required
		return nil
	})
}

// SetPlaceholder sets the hint text.
func (s *Session) SetPlaceholder(section, idx int, placeholder string) error {
	return s.edit(section, idx, func(f *schema.Field) error {
		f.Placeholder = placeholder
		return nil
	})
}

// SetOptions replaces the options of a choice field.
func (s *Session) SetOptions(section, idx int, options []string) error {
	return s.edit(section, idx, func(f *schema.Field) error {
		if !f.Type.IsChoice() {
			return wrongType(f, "options")
		}
		f.Config = schema.ChoiceConfig{Options: append([]string(nil), options...)}
		return nil
	})
}

// SetNumeric sets the bounds of a number or range field.
func (s *Session) SetNumeric(section, idx int, min, max, step *float64) error {
	return s.edit(section, idx, func(f *schema.Field) error {
		if f.Type.Kind() != schema.KindNumeric {
			return wrongType(f, "numeric bounds")
		}
		if min != nil && max != nil && *min > *max {
			return errs.Invalid("numeric_bounds", "min must not exceed max")
		}
		f.Config = schema.NumericConfig{Min: min, Max: max, Step: step}
		return nil
	})
}

// SetTableConfig sizes a table. Headings are padded or cut to the column
// count.
func (s *Session) SetTableConfig(section, idx, rows, columns int, headings []string) error {
	return s.edit(section, idx, func(f *schema.Field) error {
		if f.Type != schema.TypeTable {
			return wrongType(f, "table configuration")
		}
		if rows < 0 || columns < 0 {
			return errs.Invalid("table_size", "table rows and columns must not be negative")
		}
		fitted := make([]string, columns)
		for i := 0; i < columns; i++ {
			if i < len(headings) {
				fitted[i] = headings[i]
			} else {
				fitted[i] = fmt.Sprintf("Column %d", i+1)
			}
		}
		f.Config = schema.TableConfig{Rows: rows, Columns: columns, Headings: fitted}
		return nil
	})
}

// SetGrid replaces the columns and rows of a grid-table.
func (s *Session) SetGrid(section, idx int, columns []schema.Column, items []schema.Item) error {
	return s.edit(section, idx, func(f *schema.Field) error {
		if f.Type != schema.TypeGridTable {
			return wrongType(f, "grid columns")
		}
		f.Config = schema.GridConfig{
			Columns: append([]schema.Column(nil), columns...),
			Items:   append([]schema.Item(nil), items...),
		}
		return nil
	})
}

// SetChecklist replaces the questions of a checklist.
func (s *Session) SetChecklist(section, idx int, items []schema.Item) error {
	return s.edit(section, idx, func(f *schema.Field) error {
		if f.Type != schema.TypeChecklist {
			return wrongType(f, "checklist items")
		}
		f.Config = schema.ChecklistConfig{Items: append([]schema.Item(nil), items...)}
		return nil
	})
}

// SetColumnFields replaces the nested fields of a columns layout.
func (s *Session) SetColumnFields(section, idx int, fields []schema.Field) error {
	return s.edit(section, idx, func(f *schema.Field) error {
		if f.Type.Kind() != schema.KindColumns {
			return wrongType(f, "nested fields")
		}
		subs := make([]schema.Field, len(fields))
		for i, sub := range fields {
			subs[i] = sub.Clone()
		}
		f.Config = schema.ColumnsConfig{Fields: subs}
		return nil
	})
}

// AddApprovalLevel appends a level bound to approverID and returns its
// 1-based number.
func (s *Session) AddApprovalLevel(approverID string) int {
	n := len(s.form.ApprovalFlow) + 1
	s.form.ApprovalFlow = append(s.form.ApprovalFlow, schema.ApprovalLevel{Level: n, ApproverID: approverID})
	return n
}

// RemoveApprovalLevel drops the level at idx and renumbers the rest.
func (s *Session) RemoveApprovalLevel(idx int) error {
	if idx < 0 || idx >= len(s.form.ApprovalFlow) {
		return outOfRange("approval level", idx)
	}
	s.form.ApprovalFlow = remove(s.form.ApprovalFlow, idx)
	renumber(s.form.ApprovalFlow)
	return nil
}

// SetApprover rebinds the level at idx.
func (s *Session) SetApprover(idx int, approverID string) error {
	if idx < 0 || idx >= len(s.form.ApprovalFlow) {
		return outOfRange("approval level", idx)
	}
	s.form.ApprovalFlow[idx].ApproverID = approverID
	return nil
}

// Save validates the form, fills in missing identifiers and returns the
// document to persist. The session is left unchanged on failure.
func (s *Session) Save() (schema.Form, error) {
	if err := s.Validate(); err != nil {
		return schema.Form{}, err
	}

	out := s.form.Clone()
	out.FormName = strings.TrimSpace(out.FormName)
	if out.FormID == "" {
		out.FormID = schema.DeriveID(out.FormName)
	}
	if !out.Status.Valid() {
		out.Status = schema.FormDraft
	}
	for i := range out.Sections {
		sec := &out.Sections[i]
		if sec.SectionID == "" {
			sec.SectionID = schema.DeriveID(sec.Title)
		}
		assignIDs(sec.Fields)
	}
	assignIDs(out.Fields)
	renumber(out.ApprovalFlow)
	return out, nil
}

func assignIDs(fields []schema.Field) {
	for i := range fields {
		f := &fields[i]
		if f.FieldID == "" {
			f.FieldID = schema.DeriveID(f.Label)
		}
		if cfg, ok := f.Config.(schema.ColumnsConfig); ok {
			assignIDs(cfg.Fields)
		}
	}
}

func (s *Session) edit(section, idx int, fn func(*schema.Field) error) error {
	if err := s.checkField(section, idx); err != nil {
		return err
	}
	f := s.form.Sections[section].Fields[idx].Clone()
	if err := fn(&f); err != nil {
		return err
	}
	s.form.Sections[section].Fields[idx] = f
	return nil
}

func (s *Session) checkSection(idx int) error {
	if idx < 0 || idx >= len(s.form.Sections) {
		return outOfRange("section", idx)
	}
	return nil
}

func (s *Session) checkField(section, idx int) error {
	if err := s.checkSection(section); err != nil {
		return err
	}
	if idx < 0 || idx >= len(s.form.Sections[section].Fields) {
		return outOfRange("field", idx)
	}
	return nil
}

func outOfRange(what string, idx int) error {
	return fmt.Errorf("builder: %s %d out of range: %w", what, idx, errs.ErrInvalid)
}

func wrongType(f *schema.Field, what string) error {
	return errs.Invalid("field_type", "%s fields have no %s", f.Type, what)
}

func renumber(flow []schema.ApprovalLevel) {
	for i := range flow {
		flow[i].Level = i + 1
	}
}

func remove[T any](items []T, idx int) []T {
	out := make([]T, 0, len(items)-1)
	out = append(out, items[:idx]...)
	return append(out, items[idx+1:]...)
}

func move[T any](items []T, from, to int) []T {
	if from == to {
		return items
	}
	item := items[from]
	out := remove(items, from)
	out = append(out, item)
	copy(out[to+1:], out[to:len(out)-1])
	out[to] = item
	return out
}
