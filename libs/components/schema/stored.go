package schema

import (
	"encoding/json"
	"strings"
)

// Reparse decodes a stored string that holds a serialized object, array or
// boolean. Anything else, including malformed JSON, is returned unchanged.
func Reparse(v any) any {
	s, ok := v.(string)
	if !ok {
		return v
	}
	trimmed := strings.TrimSpace(s)
	switch {
	case trimmed == "true":
		return true
	case trimmed == "false":
		return false
	case trimmed == "" || (trimmed[0] != '{' && trimmed[0] != '['):
		return v
	}
	var parsed any
	if err := json.Unmarshal([]byte(trimmed), &parsed); err != nil {
		return v
	}
	return parsed
}

// StoredStructure is Reparse limited to objects and arrays, for callers that
// need a mapping or a selection list.
func StoredStructure(v any) any {
	switch parsed := Reparse(v).(type) {
	case map[string]any, []any:
		return parsed
	default:
		return v
	}
}
