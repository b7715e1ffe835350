package schema

import (
	"encoding/json"
	"fmt"
)

// Field is one input definition. Config always holds the variant matching Type.
type Field struct {
	FieldID     string
	Type        FieldType
	Label       string
	Required    bool
	Placeholder string
	Config      Config
}

// NewField builds a field with the default configuration for t and an id
// derived from label.
func NewField(t FieldType, label string) Field {
	return Field{
		FieldID: DeriveID(label),
		Type:    t,
		Label:   label,
		Config:  DefaultConfig(t),
	}
}

// HoldsValue reports whether the field stores an entry in submission data.
func (f Field) HoldsValue() bool {
	return f.Type.Valid() && !f.Type.IsLayout()
}

// Options returns the configured options of a choice field.
func (f Field) Options() []string {
	if c, ok := f.Config.(ChoiceConfig); ok {
		return c.Options
	}
	return nil
}

// Numeric returns the numeric bounds of number and range fields.
func (f Field) Numeric() (NumericConfig, bool) {
	c, ok := f.Config.(NumericConfig)
	return c, ok
}

// Table returns the table configuration of a table field.
func (f Field) Table() (TableConfig, bool) {
	c, ok := f.Config.(TableConfig)
	return c, ok
}

// Checklist returns the items of a checklist field.
func (f Field) Checklist() (ChecklistConfig, bool) {
	c, ok := f.Config.(ChecklistConfig)
	return c, ok
}

// Grid returns the rows and columns of a grid-table field.
func (f Field) Grid() (GridConfig, bool) {
	c, ok := f.Config.(GridConfig)
	return c, ok
}

// SubFields returns the nested fields of a columns layout.
func (f Field) SubFields() []Field {
	if c, ok := f.Config.(ColumnsConfig); ok {
		return c.Fields
	}
	return nil
}

// FieldDoc is the flat persisted shape of a field, shared by the JSON API and
// document storage.
type FieldDoc struct {
	FieldID     string       `json:"fieldId" bson:"fieldId"`
	Type        FieldType    `json:"type" bson:"type"`
	Label       string       `json:"label" bson:"label"`
	Required    bool         `json:"required" bson:"required"`
	Placeholder string       `json:"placeholder,omitempty" bson:"placeholder,omitempty"`
	Options     []string     `json:"options,omitempty" bson:"options,omitempty"`
	Min         *float64     `json:"min,omitempty" bson:"min,omitempty"`
	Max         *float64     `json:"max,omitempty" bson:"max,omitempty"`
	Step        *float64     `json:"step,omitempty" bson:"step,omitempty"`
	TableConfig *TableConfig `json:"tableConfig,omitempty" bson:"tableConfig,omitempty"`
	Items       []Item       `json:"items,omitempty" bson:"items,omitempty"`
	Columns     []Column     `json:"columns,omitempty" bson:"columns,omitempty"`
	Fields      []FieldDoc   `json:"fields,omitempty" bson:"fields,omitempty"`
}

// Doc flattens the field into its persisted shape. Only the configuration of
// the current variant is written.
func (f Field) Doc() FieldDoc {
	doc := FieldDoc{
		FieldID:     f.FieldID,
		Type:        f.Type,
		Label:       f.Label,
		Required:    f.Required,
		Placeholder: f.Placeholder,
	}

	switch c := f.Config.(type) {
	case ChoiceConfig:
		doc.Options = c.Options
	case NumericConfig:
		doc.Min, doc.Max, doc.Step = c.Min, c.Max, c.Step
	case TableConfig:
		tc := c
		doc.TableConfig = &tc
	case ChecklistConfig:
		doc.Items = c.Items
	case GridConfig:
		doc.Columns = c.Columns
		doc.Items = c.Items
	case ColumnsConfig:
		doc.Fields = make([]FieldDoc, 0, len(c.Fields))
		for _, sub := range c.Fields {
			doc.Fields = append(doc.Fields, sub.Doc())
		}
	}
	return doc
}

// Field rebuilds the typed field. Keys that do not belong to the field's type
// are dropped.
func (d FieldDoc) Field() (Field, error) {
	if !d.Type.Valid() {
		return Field{}, fmt.Errorf("schema: unknown field type %q", d.Type)
	}

	f := Field{
		FieldID:     d.FieldID,
		Type:        d.Type,
		Label:       d.Label,
		Required:    d.Required,
		Placeholder: d.Placeholder,
	}

	switch d.Type.Kind() {
	case KindInput:
		f.Config = InputConfig{}
	case KindNumeric:
		f.Config = NumericConfig{Min: d.Min, Max: d.Max, Step: d.Step}
	case KindSingleChoice, KindMultiChoice:
		f.Config = ChoiceConfig{Options: d.Options}
	case KindFile:
		f.Config = FileConfig{}
	case KindTable:
		tc := TableConfig{}
		if d.TableConfig != nil {
			tc = *d.TableConfig
		}
		f.Config = tc
	case KindChecklist:
		f.Config = ChecklistConfig{Items: d.Items}
	case KindGridTable:
		f.Config = GridConfig{Columns: d.Columns, Items: d.Items}
	case KindColumns:
		subs := make([]Field, 0, len(d.Fields))
		for i, sd := range d.Fields {
			sub, err := sd.Field()
			if err != nil {
				return Field{}, fmt.Errorf("schema: %s sub-field %d: %w", d.Type, i, err)
			}
			subs = append(subs, sub)
		}
		f.Config = ColumnsConfig{Fields: subs}
	case KindDecoration:
		f.Config = DecorationConfig{}
	}
	return f, nil
}

// MarshalJSON writes the flat persisted shape.
func (f Field) MarshalJSON() ([]byte, error) {
	return json.Marshal(f.Doc())
}

// UnmarshalJSON reads the flat persisted shape.
func (f *Field) UnmarshalJSON(data []byte) error {
	var doc FieldDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	parsed, err := doc.Field()
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}

// Clone returns a deep copy of the field.
func (f Field) Clone() Field {
	out := f
	switch c := f.Config.(type) {
	case NumericConfig:
		out.Config = NumericConfig{Min: cloneFloat(c.Min), Max: cloneFloat(c.Max), Step: cloneFloat(c.Step)}
	case ChoiceConfig:
		out.Config = ChoiceConfig{Options: append([]string(nil), c.Options...)}
	case TableConfig:
		out.Config = TableConfig{Rows: c.Rows, Columns: c.Columns, Headings: append([]string(nil), c.Headings...)}
	case ChecklistConfig:
		out.Config = ChecklistConfig{Items: append([]Item(nil), c.Items...)}
	case GridConfig:
		out.Config = GridConfig{Columns: append([]Column(nil), c.Columns...), Items: append([]Item(nil), c.Items...)}
	case ColumnsConfig:
		subs := make([]Field, len(c.Fields))
		for i, sub := range c.Fields {
			subs[i] = sub.Clone()
		}
		out.Config = ColumnsConfig{Fields: subs}
	}
	return out
}

func cloneFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	n := *v
	return &n
}
