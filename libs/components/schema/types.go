// Package schema defines the form schema model: field types, their
// type-specific configuration, sections, forms and the identifiers derived
// from human labels.
package schema

// FieldType is the closed set of input units a form can contain.
type FieldType string

const (
	TypeText           FieldType = "text"
	TypeEmail          FieldType = "email"
	TypeNumber         FieldType = "number"
	TypeRadio          FieldType = "radio"
	TypeCheckbox       FieldType = "checkbox"
	TypeFile           FieldType = "file"
	TypeDate           FieldType = "date"
	TypeRange          FieldType = "range"
	TypeColor          FieldType = "color"
	TypeTable          FieldType = "table"
	TypeTextarea       FieldType = "textarea"
	TypeDropdown       FieldType = "dropdown"
	TypeMultiSelect    FieldType = "multi-select"
	TypeChecklist      FieldType = "checklist"
	TypeGridTable      FieldType = "grid-table"
	TypeSectionHeader  FieldType = "section-header"
	TypeSectionDivider FieldType = "section-divider"
	TypeSpacer         FieldType = "spacer"
	TypeColumns2       FieldType = "columns-2"
	TypeColumns3       FieldType = "columns-3"
)

var allTypes = []FieldType{
	TypeText, TypeEmail, TypeNumber, TypeRadio, TypeCheckbox, TypeFile, TypeDate,
	TypeRange, TypeColor, TypeTable, TypeTextarea, TypeDropdown, TypeMultiSelect,
	TypeChecklist, TypeGridTable, TypeSectionHeader, TypeSectionDivider, TypeSpacer,
	TypeColumns2, TypeColumns3,
}

// AllTypes returns every field type in declaration order.
func AllTypes() []FieldType {
	out := make([]FieldType, len(allTypes))
	copy(out, allTypes)
	return out
}

// Kind groups field types that share configuration and value shape.
type Kind int

const (
	KindUnknown Kind = iota
	// KindInput holds a single scalar typed by the user.
	KindInput
	// KindNumeric holds a number bounded by min/max/step.
	KindNumeric
	// KindSingleChoice holds one selected option.
	KindSingleChoice
	// KindMultiChoice holds an array of selected options.
	KindMultiChoice
	// KindFile holds an uploaded file descriptor.
	KindFile
	// KindTable holds a row -> column -> scalar mapping over a fixed-size table.
	KindTable
	// KindChecklist holds an array of checked item identifiers.
	KindChecklist
	// KindGridTable holds a row -> column -> scalar mapping over declared items and columns.
	KindGridTable
	// KindColumns lays out nested fields in a grid and holds no value itself.
	KindColumns
	// KindDecoration is purely presentational.
	KindDecoration
)

func (k Kind) String() string {
	switch k {
	case KindInput:
		return "input"
	case KindNumeric:
		return "numeric"
	case KindSingleChoice:
		return "single-choice"
	case KindMultiChoice:
		return "multi-choice"
	case KindFile:
		return "file"
	case KindTable:
		return "table"
	case KindChecklist:
		return "checklist"
	case KindGridTable:
		return "grid-table"
	case KindColumns:
		return "columns"
	case KindDecoration:
		return "decoration"
	default:
		return "unknown"
	}
}

// Kind classifies the field type.
func (t FieldType) Kind() Kind {
	switch t {
	case TypeText, TypeEmail, TypeDate, TypeColor, TypeTextarea:
		return KindInput
	case TypeNumber, TypeRange:
		return KindNumeric
	case TypeRadio, TypeDropdown:
		return KindSingleChoice
	case TypeCheckbox, TypeMultiSelect:
		return KindMultiChoice
	case TypeFile:
		return KindFile
	case TypeTable:
		return KindTable
	case TypeChecklist:
		return KindChecklist
	case TypeGridTable:
		return KindGridTable
	case TypeColumns2, TypeColumns3:
		return KindColumns
	case TypeSectionHeader, TypeSectionDivider, TypeSpacer:
		return KindDecoration
	default:
		return KindUnknown
	}
}

// Valid reports whether t is one of the known field types.
func (t FieldType) Valid() bool {
	return t.Kind() != KindUnknown
}

// IsLayout reports whether the type is presentational and never stores a value.
func (t FieldType) IsLayout() bool {
	k := t.Kind()
	return k == KindColumns || k == KindDecoration
}

// IsChoice reports whether the type is configured with options.
func (t FieldType) IsChoice() bool {
	k := t.Kind()
	return k == KindSingleChoice || k == KindMultiChoice
}

// IsMatrix reports whether values are stored as row -> column -> scalar.
func (t FieldType) IsMatrix() bool {
	k := t.Kind()
	return k == KindTable || k == KindGridTable
}

// ColumnCount returns the grid width of a columns layout, or 0.
func (t FieldType) ColumnCount() int {
	switch t {
	case TypeColumns2:
		return 2
	case TypeColumns3:
		return 3
	default:
		return 0
	}
}
