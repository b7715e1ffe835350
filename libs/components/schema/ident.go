package schema

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	nonIDChars = regexp.MustCompile(`[^a-z0-9 ]`)
	spaceRuns  = regexp.MustCompile(` +`)
)

// DeriveID turns a label into a stable identifier: lower-cased, every
// character outside [a-z0-9 ] removed, each run of spaces replaced by one
// underscore. It does not detect collisions.
func DeriveID(label string) string {
	id := strings.ToLower(label)
	id = nonIDChars.ReplaceAllString(id, "")
	return spaceRuns.ReplaceAllString(id, "_")
}

// Accessor reads one optional candidate from v.
type Accessor[T any] func(v T) string

// FirstOf returns the first accessor result that is not blank.
func FirstOf[T any](v T, accessors ...Accessor[T]) (string, bool) {
	for _, get := range accessors {
		if value := get(v); strings.TrimSpace(value) != "" {
			return value, true
		}
	}
	return "", false
}

// Item and column accessors, one per historical key name.
var (
	ItemID       Accessor[Item]   = func(i Item) string { return i.ID }
	ItemFieldID  Accessor[Item]   = func(i Item) string { return i.FieldID }
	ItemQuestion Accessor[Item]   = func(i Item) string { return i.Question }
	ItemLabel    Accessor[Item]   = func(i Item) string { return i.Label }
	ItemName     Accessor[Item]   = func(i Item) string { return i.Name }
	ItemTitle    Accessor[Item]   = func(i Item) string { return i.Title }
	ColumnID     Accessor[Column] = func(c Column) string { return c.ID }
	ColumnField  Accessor[Column] = func(c Column) string { return c.FieldID }
	ColumnLabel  Accessor[Column] = func(c Column) string { return c.Label }
	ColumnHeader Accessor[Column] = func(c Column) string { return c.Header }
	ColumnName   Accessor[Column] = func(c Column) string { return c.Name }
	ColumnTitle  Accessor[Column] = func(c Column) string { return c.Title }
)

// ChecklistKey resolves a checklist item identifier: id, fieldId, then the
// positional index.
func ChecklistKey(item Item, idx int) string {
	if key, ok := FirstOf(item, ItemID, ItemFieldID); ok {
		return key
	}
	return strconv.Itoa(idx)
}

// ChecklistText resolves the question shown for a checklist item.
func ChecklistText(item Item, idx int) string {
	if text, ok := FirstOf(item, ItemQuestion, ItemLabel, ItemName); ok {
		return text
	}
	return "Item " + strconv.Itoa(idx+1)
}

// RowKey resolves a grid row identifier, falling back to "row-{idx}".
func RowKey(item Item, idx int) string {
	if key, ok := FirstOf(item, ItemID, ItemFieldID); ok {
		return key
	}
	return SyntheticRowKey(idx)
}

// RowLabel resolves a grid row label, falling back to "Row N".
func RowLabel(item Item, idx int) string {
	if label, ok := FirstOf(item, ItemQuestion, ItemLabel, ItemName, ItemTitle); ok {
		return label
	}
	return "Row " + strconv.Itoa(idx+1)
}

// ColumnKey resolves a grid column identifier, falling back to "col-{idx}".
func ColumnKey(col Column, idx int) string {
	if key, ok := FirstOf(col, ColumnID, ColumnField); ok {
		return key
	}
	return SyntheticColumnKey(idx)
}

// ColumnText resolves a grid column label, falling back to "Column N".
func ColumnText(col Column, idx int) string {
	if label, ok := FirstOf(col, ColumnLabel, ColumnHeader, ColumnName, ColumnTitle); ok {
		return label
	}
	return "Column " + strconv.Itoa(idx+1)
}

// SyntheticRowKey is the positional key of a row without an identifier.
func SyntheticRowKey(idx int) string { return "row-" + strconv.Itoa(idx) }

// SyntheticColumnKey is the positional key of a column without an identifier.
func SyntheticColumnKey(idx int) string { return "col-" + strconv.Itoa(idx) }
