package schema

import "strings"

// FormStatus is the publication state of a form.
type FormStatus string

const (
	FormDraft     FormStatus = "DRAFT"
	FormApproved  FormStatus = "APPROVED"
	FormPublished FormStatus = "PUBLISHED"
	FormArchived  FormStatus = "ARCHIVED"
)

// Valid reports whether s is a known status.
func (s FormStatus) Valid() bool {
	switch s {
	case FormDraft, FormApproved, FormPublished, FormArchived:
		return true
	}
	return false
}

// Section groups fields under a title.
type Section struct {
	SectionID string  `json:"sectionId"`
	Title     string  `json:"title"`
	Fields    []Field `json:"fields"`
}

// SectionDoc is the document-store shape of a section.
type SectionDoc struct {
	SectionID string     `bson:"sectionId"`
	Title     string     `bson:"title"`
	Fields    []FieldDoc `bson:"fields"`
}

// Doc converts the section for document storage.
func (s Section) Doc() SectionDoc {
	doc := SectionDoc{SectionID: s.SectionID, Title: s.Title, Fields: make([]FieldDoc, 0, len(s.Fields))}
	for _, f := range s.Fields {
		doc.Fields = append(doc.Fields, f.Doc())
	}
	return doc
}

// Section rebuilds the typed section.
func (d SectionDoc) Section() (Section, error) {
	fields, err := FieldsFromDocs(d.Fields)
	if err != nil {
		return Section{}, err
	}
	return Section{SectionID: d.SectionID, Title: d.Title, Fields: fields}, nil
}

// FieldsFromDocs rebuilds a list of typed fields.
func FieldsFromDocs(docs []FieldDoc) ([]Field, error) {
	out := make([]Field, 0, len(docs))
	for _, d := range docs {
		f, err := d.Field()
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}

// ApprovalLevel binds a 1-based level to an approver reference.
type ApprovalLevel struct {
	Level      int    `json:"level" bson:"level"`
	ApproverID string `json:"approverId" bson:"approverId"`
}

// Form is the persisted schema document.
type Form struct {
	FormID       string          `json:"formId"`
	FormName     string          `json:"formName"`
	Description  string          `json:"description,omitempty"`
	Sections     []Section       `json:"sections"`
	Fields       []Field         `json:"fields,omitempty"`
	ApprovalFlow []ApprovalLevel `json:"approvalFlow"`
	Status       FormStatus      `json:"status"`
	IsTemplate   bool            `json:"isTemplate"`
	IsActive     bool            `json:"isActive"`
}

// AllFields flattens the legacy root fields followed by every section's
// fields. Sub-fields of column layouts follow their container.
func (f Form) AllFields() []Field {
	var out []Field
	out = appendFlat(out, f.Fields)
	for _, section := range f.Sections {
		out = appendFlat(out, section.Fields)
	}
	return out
}

func appendFlat(out, fields []Field) []Field {
	for _, field := range fields {
		out = append(out, field)
		if subs := field.SubFields(); len(subs) > 0 {
			out = appendFlat(out, subs)
		}
	}
	return out
}

// ValueFields returns the fields that store data, de-duplicated by fieldId
// with the first occurrence kept.
func (f Form) ValueFields() []Field {
	seen := make(map[string]struct{})
	var out []Field
	for _, field := range f.AllFields() {
		if !field.HoldsValue() || field.FieldID == "" {
			continue
		}
		if _, dup := seen[field.FieldID]; dup {
			continue
		}
		seen[field.FieldID] = struct{}{}
		out = append(out, field)
	}
	return out
}

// FindField returns the first field carrying id.
func (f Form) FindField(id string) (Field, bool) {
	for _, field := range f.AllFields() {
		if field.FieldID == id {
			return field, true
		}
	}
	return Field{}, false
}

// FieldCount counts every field across sections and the legacy root list,
// layout fields included.
func (f Form) FieldCount() int {
	n := len(f.Fields)
	for _, section := range f.Sections {
		n += len(section.Fields)
	}
	return n
}

// Approvers returns the approver ids in level order.
func (f Form) Approvers() []string {
	out := make([]string, 0, len(f.ApprovalFlow))
	for _, level := range f.ApprovalFlow {
		out = append(out, strings.TrimSpace(level.ApproverID))
	}
	return out
}

// Clone returns a deep copy of the form.
func (f Form) Clone() Form {
	out := f
	out.Fields = cloneFields(f.Fields)
	out.Sections = make([]Section, len(f.Sections))
	for i, s := range f.Sections {
		out.Sections[i] = Section{SectionID: s.SectionID, Title: s.Title, Fields: cloneFields(s.Fields)}
	}
	out.ApprovalFlow = append([]ApprovalLevel(nil), f.ApprovalFlow...)
	return out
}

func cloneFields(fields []Field) []Field {
	if fields == nil {
		return nil
	}
	out := make([]Field, len(fields))
	for i, f := range fields {
		out[i] = f.Clone()
	}
	return out
}
