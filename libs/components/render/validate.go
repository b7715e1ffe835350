package render

import (
	"encoding/json"
	"math"
	"net/mail"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/matapang/platform/libs/components/schema"
	"github.com/matapang/platform/libs/shared/errs"
)

const dateLayout = "2006-01-02"

var colorPattern = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// Problem is fill-time feedback for one field.
type Problem struct {
	FieldID string `json:"fieldId"`
	Label   string `json:"label"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ValidateValue checks one stored value against its field definition.
// Optional empty values are accepted.
func ValidateValue(f schema.Field, value any) error {
	if !f.HoldsValue() {
		return nil
	}
	value = decodeStored(f, value)
	if isEmpty(value) {
		if f.Required {
			return errs.Invalid("required", "%s is required", labelOf(f))
		}
		return nil
	}

	switch cfg := f.Config.(type) {
	case schema.InputConfig:
		return validateInput(f, value)
	case schema.NumericConfig:
		return validateNumber(f, cfg, value)
	case schema.ChoiceConfig:
		return validateChoice(f, cfg, value)
	case schema.FileConfig:
		if _, ok := asObject(value)["url"]; !ok {
			return errs.Invalid("file", "%s must reference an uploaded file", labelOf(f))
		}
	case schema.ChecklistConfig:
		allowed := make(map[string]bool, len(cfg.Items))
		for i, item := range cfg.Items {
			allowed[schema.ChecklistKey(item, i)] = true
		}
		for _, key := range asStrings(value) {
			if !allowed[key] {
				return errs.Invalid("checklist", "%s has no item %q", labelOf(f), key)
			}
		}
	case schema.TableConfig, schema.GridConfig:
		rows := asObject(value)
		if rows == nil {
			return errs.Invalid("matrix", "%s must map rows to columns", labelOf(f))
		}
		for row, cells := range rows {
			if cells != nil && asObject(cells) == nil {
				return errs.Invalid("matrix", "%s row %q must map columns to values", labelOf(f), row)
			}
		}
	case schema.ColumnsConfig, schema.DecorationConfig:
	}
	return nil
}

// decodeStored unwraps structured values saved as JSON text. Scalar kinds
// keep their text as typed.
func decodeStored(f schema.Field, value any) any {
	switch f.Type.Kind() {
	case schema.KindMultiChoice, schema.KindFile, schema.KindTable, schema.KindChecklist, schema.KindGridTable:
		return schema.StoredStructure(value)
	default:
		return value
	}
}

func validateInput(f schema.Field, value any) error {
	text, ok := value.(string)
	if !ok {
		return errs.Invalid("type", "%s must be text", labelOf(f))
	}
	switch f.Type {
	case schema.TypeEmail:
		if addr, err := mail.ParseAddress(text); err != nil || addr.Address != text {
			return errs.Invalid("email", "%s must be a valid email address", labelOf(f))
		}
	case schema.TypeDate:
		if _, err := time.Parse(dateLayout, text); err != nil {
			return errs.Invalid("date", "%s must be a date in YYYY-MM-DD form", labelOf(f))
		}
	case schema.TypeColor:
		if !colorPattern.MatchString(text) {
			return errs.Invalid("color", "%s must be a #rrggbb color", labelOf(f))
		}
	}
	return nil
}

func validateNumber(f schema.Field, cfg schema.NumericConfig, value any) error {
	n, ok := toFloat(value)
	if !ok {
		return errs.Invalid("number", "%s must be a number", labelOf(f))
	}
	if cfg.Min != nil && n < *cfg.Min {
		return errs.Invalid("min", "%s must be at least %s", labelOf(f), formatFloat(*cfg.Min))
	}
	if cfg.Max != nil && n > *cfg.Max {
		return errs.Invalid("max", "%s must be at most %s", labelOf(f), formatFloat(*cfg.Max))
	}
	if cfg.Step != nil && *cfg.Step > 0 {
		base := 0.0
		if cfg.Min != nil {
			base = *cfg.Min
		}
		steps := (n - base) / *cfg.Step
		if math.Abs(steps-math.Round(steps)) > 1e-9 {
			return errs.Invalid("step", "%s must be a multiple of %s", labelOf(f), formatFloat(*cfg.Step))
		}
	}
	return nil
}

func validateChoice(f schema.Field, cfg schema.ChoiceConfig, value any) error {
	allowed := make(map[string]bool, len(cfg.Options))
	for _, opt := range cfg.Options {
		allowed[opt] = true
	}

	var picked []string
	if f.Type.Kind() == schema.KindMultiChoice {
		switch value.(type) {
		case []any, []string:
		default:
			return errs.Invalid("type", "%s must be a list of options", labelOf(f))
		}
		picked = asStrings(value)
	} else {
		s, ok := value.(string)
		if !ok {
			return errs.Invalid("type", "%s must be a single option", labelOf(f))
		}
		picked = []string{s}
	}

	for _, p := range picked {
		if !allowed[p] {
			return errs.Invalid("option", "%s has no option %q", labelOf(f), p)
		}
	}
	return nil
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func labelOf(f schema.Field) string {
	if strings.TrimSpace(f.Label) != "" {
		return f.Label
	}
	return f.FieldID
}
