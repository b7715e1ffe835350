package schema

// Config is the type-specific configuration of a field. The set of
// implementations is closed: each Kind has exactly one variant.
type Config interface {
	kind() Kind
}

// InputConfig configures free-text style inputs.
type InputConfig struct{}

// NumericConfig configures number and range inputs.
type NumericConfig struct {
	Min  *float64
	Max  *float64
	Step *float64
}

// ChoiceConfig configures radio, dropdown, checkbox and multi-select fields.
// Options keep their authored order; duplicates are allowed.
type ChoiceConfig struct {
	Options []string
}

// FileConfig configures file uploads.
type FileConfig struct{}

// TableConfig configures a fixed-size table. len(Headings) should equal Columns.
type TableConfig struct {
	Rows     int      `json:"rows" bson:"rows"`
	Columns  int      `json:"columns" bson:"columns"`
	Headings []string `json:"headings" bson:"headings"`
}

// ChecklistConfig configures a checklist of questions.
type ChecklistConfig struct {
	Items []Item
}

// GridConfig configures a grid-table: one row per item, one cell per column.
type GridConfig struct {
	Columns []Column
	Items   []Item
}

// ColumnsConfig holds the sub-fields rendered inside a columns layout.
type ColumnsConfig struct {
	Fields []Field
}

// DecorationConfig configures headers, dividers and spacers.
type DecorationConfig struct{}

func (InputConfig) kind() Kind      { return KindInput }
func (NumericConfig) kind() Kind    { return KindNumeric }
func (ChoiceConfig) kind() Kind     { return KindSingleChoice }
func (FileConfig) kind() Kind       { return KindFile }
func (TableConfig) kind() Kind      { return KindTable }
func (ChecklistConfig) kind() Kind  { return KindChecklist }
func (GridConfig) kind() Kind       { return KindGridTable }
func (ColumnsConfig) kind() Kind    { return KindColumns }
func (DecorationConfig) kind() Kind { return KindDecoration }

// DefaultConfig returns the empty configuration variant for t.
func DefaultConfig(t FieldType) Config {
	switch t.Kind() {
	case KindInput:
		return InputConfig{}
	case KindNumeric:
		return NumericConfig{}
	case KindSingleChoice, KindMultiChoice:
		return ChoiceConfig{}
	case KindFile:
		return FileConfig{}
	case KindTable:
		return TableConfig{}
	case KindChecklist:
		return ChecklistConfig{}
	case KindGridTable:
		return GridConfig{}
	case KindColumns:
		return ColumnsConfig{}
	case KindDecoration:
		return DecorationConfig{}
	default:
		return nil
	}
}

// Matches reports whether cfg is the variant expected for t.
func Matches(t FieldType, cfg Config) bool {
	if cfg == nil {
		return false
	}
	want := t.Kind()
	if want == KindMultiChoice {
		want = KindSingleChoice
	}
	return cfg.kind() == want
}

// Item is a checklist question or a grid-table row. Authoring tools have used
// several key names over time, so every alias is kept and resolved on read.
type Item struct {
	ID       string `json:"id,omitempty" bson:"id,omitempty"`
	FieldID  string `json:"fieldId,omitempty" bson:"fieldId,omitempty"`
	Question string `json:"question,omitempty" bson:"question,omitempty"`
	Label    string `json:"label,omitempty" bson:"label,omitempty"`
	Name     string `json:"name,omitempty" bson:"name,omitempty"`
	Title    string `json:"title,omitempty" bson:"title,omitempty"`
}

// Column is a grid-table column.
type Column struct {
	ID      string `json:"id,omitempty" bson:"id,omitempty"`
	FieldID string `json:"fieldId,omitempty" bson:"fieldId,omitempty"`
	Label   string `json:"label,omitempty" bson:"label,omitempty"`
	Header  string `json:"header,omitempty" bson:"header,omitempty"`
	Name    string `json:"name,omitempty" bson:"name,omitempty"`
	Title   string `json:"title,omitempty" bson:"title,omitempty"`
}
