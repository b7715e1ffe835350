package form

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/matapang/platform/libs/components/schema"
)

// Form is a persisted form schema. Sections, legacy fields and the approval
// flow are stored as JSON documents and replaced as a whole.
type Form struct {
	ID           string         `json:"id" gorm:"type:uuid;primaryKey"`
	FormID       string         `json:"formId" gorm:"index;not null"`
	FormName     string         `json:"formName" gorm:"not null"`
	Description  string         `json:"description"`
	Sections     datatypes.JSON `json:"sections" gorm:"type:jsonb"`
	Fields       datatypes.JSON `json:"fields" gorm:"type:jsonb"`
	ApprovalFlow datatypes.JSON `json:"approvalFlow" gorm:"type:jsonb"`
	Status       string         `json:"status" gorm:"not null;index"`
	IsTemplate   bool           `json:"isTemplate" gorm:"index"`
	IsActive     bool           `json:"isActive"`
	CreatedAt    time.Time      `json:"createdAt"`
	UpdatedAt    time.Time      `json:"updatedAt"`
}

// BeforeCreate assigns a UUID when missing.
func (f *Form) BeforeCreate(tx *gorm.DB) error {
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	return nil
}

// FromSchema builds an entity from a schema document.
func FromSchema(doc schema.Form) (*Form, error) {
	entity := &Form{}
	if err := entity.Apply(doc); err != nil {
		return nil, err
	}
	return entity, nil
}

// Apply replaces every schema-derived column with doc.
func (f *Form) Apply(doc schema.Form) error {
	sections, err := marshalOr(doc.Sections, "[]")
	if err != nil {
		return fmt.Errorf("form: encode sections: %w", err)
	}
	fields, err := marshalOr(doc.Fields, "[]")
	if err != nil {
		return fmt.Errorf("form: encode fields: %w", err)
	}
	flow, err := marshalOr(doc.ApprovalFlow, "[]")
	if err != nil {
		return fmt.Errorf("form: encode approval flow: %w", err)
	}

	f.FormID = doc.FormID
	f.FormName = doc.FormName
	f.Description = doc.Description
	f.Sections = sections
	f.Fields = fields
	f.ApprovalFlow = flow
	f.Status = string(doc.Status)
	f.IsTemplate = doc.IsTemplate
	f.IsActive = doc.IsActive
	return nil
}

// Schema decodes the stored document.
func (f Form) Schema() (schema.Form, error) {
	doc := schema.Form{
		FormID:      f.FormID,
		FormName:    f.FormName,
		Description: f.Description,
		Status:      schema.FormStatus(f.Status),
		IsTemplate:  f.IsTemplate,
		IsActive:    f.IsActive,
	}
	if err := unmarshalIf(f.Sections, &doc.Sections); err != nil {
		return schema.Form{}, fmt.Errorf("form %s: decode sections: %w", f.ID, err)
	}
	if err := unmarshalIf(f.Fields, &doc.Fields); err != nil {
		return schema.Form{}, fmt.Errorf("form %s: decode fields: %w", f.ID, err)
	}
	if err := unmarshalIf(f.ApprovalFlow, &doc.ApprovalFlow); err != nil {
		return schema.Form{}, fmt.Errorf("form %s: decode approval flow: %w", f.ID, err)
	}
	return doc, nil
}

// ToDTO converts the form into its API shape.
func (f Form) ToDTO() map[string]any {
	dto := map[string]any{
		"id":           f.ID,
		"formId":       f.FormID,
		"formName":     f.FormName,
		"description":  f.Description,
		"status":       f.Status,
		"isTemplate":   f.IsTemplate,
		"isActive":     f.IsActive,
		"sections":     rawOr(f.Sections),
		"fields":       rawOr(f.Fields),
		"approvalFlow": rawOr(f.ApprovalFlow),
		"createdAt":    f.CreatedAt,
		"updatedAt":    f.UpdatedAt,
	}
	return dto
}

func marshalOr(v any, empty string) (datatypes.JSON, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	if string(b) == "null" {
		b = []byte(empty)
	}
	return datatypes.JSON(b), nil
}

func unmarshalIf(raw datatypes.JSON, v any) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	return json.Unmarshal(raw, v)
}

func rawOr(raw datatypes.JSON) json.RawMessage {
	if len(raw) == 0 {
		return json.RawMessage("[]")
	}
	return json.RawMessage(raw)
}
