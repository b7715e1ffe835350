package render

import (
	"fmt"
	"strconv"

	"github.com/matapang/platform/libs/components/schema"
)

// Values is the submission data map keyed by fieldId.
type Values map[string]any

// Clone returns a shallow copy of v.
func (v Values) Clone() Values {
	out := make(Values, len(v))
	for k, val := range v {
		out[k] = val
	}
	return out
}

// UpdateFunc receives every value written by a fill session.
type UpdateFunc func(fieldID string, value any)

// SetCell returns a new row -> column mapping with exactly one cell set.
// Other rows and the other columns of the edited row are carried over as-is.
// A mapping stored as serialized JSON is decoded first; any other current
// value that is not a mapping is treated as empty.
func SetCell(current any, row, col string, value any) map[string]any {
	rows := asObject(current)
	out := make(map[string]any, len(rows)+1)
	for k, v := range rows {
		out[k] = v
	}

	cells := asObject(rows[row])
	edited := make(map[string]any, len(cells)+1)
	for k, v := range cells {
		edited[k] = v
	}
	edited[col] = value
	out[row] = edited
	return out
}

// ToggleItem adds key to the selection when missing and removes it when
// present. Remaining selections keep their order. A selection stored as a
// serialized JSON array is decoded first.
func ToggleItem(current any, key string) []string {
	selected := asStrings(current)
	out := make([]string, 0, len(selected)+1)
	found := false
	for _, s := range selected {
		if s == key {
			found = true
			continue
		}
		out = append(out, s)
	}
	if !found {
		out = append(out, key)
	}
	return out
}

// Cell reads one cell, returning "" when the row or value is not a mapping.
func Cell(current any, row, col string) string {
	v, ok := asObject(asObject(current)[row])[col]
	if !ok || v == nil {
		return ""
	}
	return scalarString(v)
}

func asObject(v any) map[string]any {
	switch m := schema.StoredStructure(v).(type) {
	case map[string]any:
		return m
	case Values:
		return m
	case map[string]map[string]any:
		out := make(map[string]any, len(m))
		for k, inner := range m {
			out[k] = inner
		}
		return out
	case map[string]string:
		out := make(map[string]any, len(m))
		for k, s := range m {
			out[k] = s
		}
		return out
	default:
		return nil
	}
}

func asStrings(v any) []string {
	switch s := schema.StoredStructure(v).(type) {
	case []string:
		return s
	case []any:
		out := make([]string, 0, len(s))
		for _, item := range s {
			out = append(out, scalarString(item))
		}
		return out
	case string:
		if s == "" {
			return nil
		}
		return []string{s}
	default:
		return nil
	}
}

func scalarString(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(s)
	default:
		return fmt.Sprint(v)
	}
}

func isEmpty(v any) bool {
	switch s := v.(type) {
	case nil:
		return true
	case string:
		return s == ""
	case []any:
		return len(s) == 0
	case []string:
		return len(s) == 0
	case map[string]any:
		return len(s) == 0
	default:
		return false
	}
}
