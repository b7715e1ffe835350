// Package display maps stored submission data back to labeled rows for
// read-only views and exports.
package display

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/dustin/go-humanize"

	"github.com/matapang/platform/libs/components/schema"
)

// Kind classifies a stored value for presentation.
type Kind string

const (
	KindFile    Kind = "file"
	KindList    Kind = "list"
	KindBoolean Kind = "boolean"
	KindGrid    Kind = "grid"
	KindObject  Kind = "object"
	KindScalar  Kind = "scalar"
)

// File describes an uploaded file value.
type File struct {
	URL      string `json:"url"`
	Filename string `json:"filename,omitempty"`
	Size     int64  `json:"size,omitempty"`
	SizeText string `json:"sizeText,omitempty"`
	MimeType string `json:"mimetype,omitempty"`
}

// GridRow is one rendered row of a matrix value.
type GridRow struct {
	Key   string   `json:"key"`
	Label string   `json:"label"`
	Cells []string `json:"cells"`
}

// Grid is a matrix value with resolved labels.
type Grid struct {
	Columns []schema.Axis `json:"columns"`
	Rows    []GridRow     `json:"rows"`
}

// Entry is one key/value pair of a generic object.
type Entry struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// Value is a classified, renderable value.
type Value struct {
	Kind    Kind     `json:"kind"`
	Text    string   `json:"text,omitempty"`
	Items   []string `json:"items,omitempty"`
	Bool    bool     `json:"bool,omitempty"`
	File    *File    `json:"file,omitempty"`
	Grid    *Grid    `json:"grid,omitempty"`
	Entries []Entry  `json:"entries,omitempty"`
}

// Row is one labeled value.
type Row struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Value Value  `json:"value"`
}

// Build maps data using the form's field definitions. Layout fields are
// skipped, duplicate fieldIds keep their first definition and missing or
// empty values are omitted. Without usable field definitions it falls back
// to BuildFromKeys.
func Build(data map[string]any, form *schema.Form) []Row {
	if form == nil {
		return BuildFromKeys(data)
	}
	fields := form.ValueFields()
	if len(fields) == 0 {
		return BuildFromKeys(data)
	}

	rows := make([]Row, 0, len(fields))
	for _, f := range fields {
		raw, ok := data[f.FieldID]
		if !ok || isBlank(raw) {
			continue
		}
		field := f
		label := f.Label
		if strings.TrimSpace(label) == "" {
			label = TitleCase(f.FieldID)
		}
		rows = append(rows, Row{Key: f.FieldID, Label: label, Value: Classify(reparseFor(raw, &field), &field)})
	}
	return rows
}

// BuildFromKeys maps data without a schema. Labels are derived from the keys
// and rows are ordered by key.
func BuildFromKeys(data map[string]any) []Row {
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	rows := make([]Row, 0, len(keys))
	for _, k := range keys {
		raw := data[k]
		if isBlank(raw) {
			continue
		}
		rows = append(rows, Row{Key: k, Label: TitleCase(k), Value: Classify(Reparse(raw), nil)})
	}
	return rows
}

// Reparse decodes strings holding serialized objects, arrays or booleans.
// Anything else, including malformed JSON, is returned unchanged.
func Reparse(v any) any {
	return schema.Reparse(v)
}

// reparseFor keeps text answers as text: a text field holding "true" is
// not a boolean.
func reparseFor(raw any, field *schema.Field) any {
	if field != nil && field.Type.Kind() == schema.KindInput {
		return schema.StoredStructure(raw)
	}
	return Reparse(raw)
}

// Classify picks the presentation of v. field may be nil.
func Classify(v any, field *schema.Field) Value {
	switch val := v.(type) {
	case bool:
		text := "No"
		if val {
			text = "Yes"
		}
		return Value{Kind: KindBoolean, Bool: val, Text: text}
	case []any:
		return Value{Kind: KindList, Items: listItems(val, field)}
	case []string:
		items := make([]any, len(val))
		for i, s := range val {
			items[i] = s
		}
		return Value{Kind: KindList, Items: listItems(items, field)}
	case map[string]any:
		if _, ok := val["url"]; ok {
			return Value{Kind: KindFile, File: fileOf(val)}
		}
		if isMatrix(val) {
			return Value{Kind: KindGrid, Grid: gridOf(val, field)}
		}
		return Value{Kind: KindObject, Entries: entriesOf(val)}
	default:
		return Value{Kind: KindScalar, Text: scalarText(v)}
	}
}

func listItems(values []any, field *schema.Field) []string {
	labels := map[string]string{}
	if field != nil {
		if cfg, ok := field.Checklist(); ok {
			for i, item := range cfg.Items {
				labels[schema.ChecklistKey(item, i)] = schema.ChecklistText(item, i)
			}
		}
	}

	out := make([]string, 0, len(values))
	for _, v := range values {
		s := scalarText(v)
		if label, ok := labels[s]; ok {
			s = label
		}
		out = append(out, s)
	}
	return out
}

func fileOf(m map[string]any) *File {
	f := &File{
		URL:      scalarText(m["url"]),
		Filename: scalarText(m["filename"]),
		MimeType: scalarText(m["mimetype"]),
	}
	switch size := m["size"].(type) {
	case float64:
		f.Size = int64(size)
	case int64:
		f.Size = size
	case int:
		f.Size = int64(size)
	}
	if f.Size > 0 {
		f.SizeText = humanize.Bytes(uint64(f.Size))
	}
	return f
}

func isMatrix(m map[string]any) bool {
	if len(m) == 0 {
		return false
	}
	for _, v := range m {
		if _, ok := v.(map[string]any); !ok {
			return false
		}
	}
	return true
}

func gridOf(m map[string]any, field *schema.Field) *Grid {
	var rowAxes, colAxes []schema.Axis
	if field != nil {
		rowAxes, colAxes = schema.MatrixAxes(*field)
	}

	rows := mergeAxes(rowAxes, sortedKeys(m), rowLabel)

	var colKeys []string
	seen := map[string]bool{}
	for _, rk := range sortedKeys(m) {
		for _, ck := range sortedKeys(m[rk].(map[string]any)) {
			if !seen[ck] {
				seen[ck] = true
				colKeys = append(colKeys, ck)
			}
		}
	}
	cols := mergeAxes(colAxes, colKeys, columnLabel)

	grid := &Grid{Columns: cols, Rows: make([]GridRow, 0, len(rows))}
	for _, row := range rows {
		cells, ok := m[row.Key].(map[string]any)
		if !ok {
			continue
		}
		line := GridRow{Key: row.Key, Label: row.Label, Cells: make([]string, 0, len(cols))}
		for _, col := range cols {
			line.Cells = append(line.Cells, scalarText(cells[col.Key]))
		}
		grid.Rows = append(grid.Rows, line)
	}
	return grid
}

// mergeAxes keeps declared axes in order and appends undeclared keys found in
// the data with synthesized labels.
func mergeAxes(declared []schema.Axis, keys []string, synth func(string) string) []schema.Axis {
	out := append([]schema.Axis(nil), declared...)
	known := make(map[string]bool, len(declared))
	for _, a := range declared {
		known[a.Key] = true
	}
	for _, k := range keys {
		if !known[k] {
			known[k] = true
			out = append(out, schema.Axis{Key: k, Label: synth(k)})
		}
	}
	return out
}

var (
	colKey = regexp.MustCompile(`(?i)^col(?:umn)?[-_ ]?(\d+)$`)
	rowKey = regexp.MustCompile(`(?i)^row[-_ ]?(\d+)$`)
)

func columnLabel(key string) string {
	if m := colKey.FindStringSubmatch(key); m != nil {
		return "Column " + m[1]
	}
	return TitleCase(key)
}

func rowLabel(key string) string {
	if m := rowKey.FindStringSubmatch(key); m != nil {
		return "Row " + m[1]
	}
	return TitleCase(key)
}

func entriesOf(m map[string]any) []Entry {
	out := make([]Entry, 0, len(m))
	for _, k := range sortedKeys(m) {
		v := m[k]
		text := scalarText(v)
		switch v.(type) {
		case map[string]any, []any:
			if b, err := json.Marshal(v); err == nil {
				text = string(b)
			}
		}
		out = append(out, Entry{Label: TitleCase(k), Value: text})
	}
	return out
}

// TitleCase humanizes a data key: camelCase, snake_case and kebab-case words
// are split and capitalized.
func TitleCase(key string) string {
	var words []string
	var current []rune
	flush := func() {
		if len(current) > 0 {
			words = append(words, string(current))
			current = current[:0]
		}
	}

	runes := []rune(key)
	for i, r := range runes {
		switch {
		case r == '_' || r == '-' || unicode.IsSpace(r):
			flush()
			continue
		case unicode.IsUpper(r) && i > 0:
			prev := runes[i-1]
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
				flush()
			}
		}
		current = append(current, r)
	}
	flush()

	for i, w := range words {
		r := []rune(w)
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func isBlank(v any) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && s == ""
}

func scalarText(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case bool:
		if s {
			return "Yes"
		}
		return "No"
	default:
		return fmt.Sprint(v)
	}
}
