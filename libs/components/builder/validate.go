package builder

import (
	"strings"

	"github.com/matapang/platform/libs/components/schema"
	"github.com/matapang/platform/libs/shared/errs"
)

// Validation codes, reported in the order the checks run.
const (
	CodeFormName   = "form_name"
	CodeNoFields   = "no_fields"
	CodeApprover   = "approver"
	CodeSection    = "section_title"
	CodeFieldLabel = "field_label"
	CodeOptions    = "options"
	CodeFieldID    = "field_id"
)

// Validate runs the save checks and returns the first failure as an
// *errs.ValidationError.
func (s *Session) Validate() error {
	return Validate(s.form)
}

// Validate checks a form the way Save does.
func Validate(form schema.Form) error {
	if strings.TrimSpace(form.FormName) == "" {
		return errs.Invalid(CodeFormName, "Please enter a form name")
	}
	if form.FieldCount() == 0 {
		return errs.Invalid(CodeNoFields, "Please add at least one field")
	}
	for i, level := range form.ApprovalFlow {
		if strings.TrimSpace(level.ApproverID) == "" {
			return errs.Invalid(CodeApprover, "Please select an approver for level %d", i+1)
		}
	}
	for i, sec := range form.Sections {
		if strings.TrimSpace(sec.Title) == "" {
			return errs.Invalid(CodeSection, "Section %d needs a title", i+1)
		}
	}

	all := form.AllFields()
	for _, f := range all {
		if strings.TrimSpace(f.Label) == "" {
			return errs.Invalid(CodeFieldLabel, "Every field needs a label")
		}
	}
	for _, f := range all {
		if !f.Type.IsChoice() {
			continue
		}
		if !hasOption(f.Options()) {
			return errs.Invalid(CodeOptions, "%q needs at least one option", f.Label)
		}
	}

	seen := make(map[string]string)
	for _, f := range all {
		if !f.HoldsValue() {
			continue
		}
		id := f.FieldID
		if id == "" {
			id = schema.DeriveID(f.Label)
		}
		if id == "" {
			return errs.Invalid(CodeFieldID, "%q does not produce a usable field id", f.Label)
		}
		if other, dup := seen[id]; dup {
			return errs.Invalid(CodeFieldID, "%q and %q share the field id %q", other, f.Label, id)
		}
		seen[id] = f.Label
	}
	return nil
}

func hasOption(options []string) bool {
	for _, o := range options {
		if strings.TrimSpace(o) != "" {
			return true
		}
	}
	return false
}
