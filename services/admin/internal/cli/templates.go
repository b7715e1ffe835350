package cli

import (
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/matapang/platform/libs/components/builder"
	"github.com/matapang/platform/libs/components/schema"
)

// TemplateFile is the YAML layout accepted by seed-templates.
type TemplateFile struct {
	Templates []Template `yaml:"templates"`
}

// Template describes one reusable form.
type Template struct {
	Name        string            `yaml:"name"`
	Description string            `yaml:"description"`
	Sections    []TemplateSection `yaml:"sections"`
	Approvers   []string          `yaml:"approvers"`
}

// TemplateSection groups template fields.
type TemplateSection struct {
	Title  string          `yaml:"title"`
	Fields []TemplateField `yaml:"fields"`
}

// TemplateField is a field in authoring shorthand.
type TemplateField struct {
	Type        string          `yaml:"type"`
	Label       string          `yaml:"label"`
	Required    bool            `yaml:"required"`
	Placeholder string          `yaml:"placeholder"`
	Options     []string        `yaml:"options"`
	Min         *float64        `yaml:"min"`
	Max         *float64        `yaml:"max"`
	Step        *float64        `yaml:"step"`
	Rows        int             `yaml:"rows"`
	Columns     int             `yaml:"columns"`
	Headings    []string        `yaml:"headings"`
	Items       []schema.Item   `yaml:"items"`
	GridColumns []schema.Column `yaml:"gridColumns"`
}

// ParseTemplates decodes a template file.
func ParseTemplates(r io.Reader) ([]Template, error) {
	var file TemplateFile
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(&file); err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return file.Templates, nil
}

// Build runs a template through a builder session, so templates obey the
// same authoring rules as forms saved from the builder.
func (t Template) Build() (schema.Form, error) {
	s := builder.New(strings.TrimSpace(t.Name))
	s.SetDescription(t.Description)
	s.SetTemplate(true)

	for _, sec := range t.Sections {
		si := s.AddSection(sec.Title)
		for _, tf := range sec.Fields {
			if err := addField(s, si, tf); err != nil {
				return schema.Form{}, fmt.Errorf("template %q: %w", t.Name, err)
			}
		}
	}
	for _, approver := range t.Approvers {
		s.AddApprovalLevel(approver)
	}

	form, err := s.Save()
	if err != nil {
		return schema.Form{}, fmt.Errorf("template %q: %w", t.Name, err)
	}
	return form, nil
}

func addField(s *builder.Session, section int, tf TemplateField) error {
	t := schema.FieldType(strings.TrimSpace(tf.Type))
	if !t.Valid() {
		return fmt.Errorf("unknown field type %q", tf.Type)
	}
	idx, err := s.AddField(section, t, tf.Label)
	if err != nil {
		return err
	}

	if err := s.SetRequired(section, idx, tf.Required); err != nil {
		return err
	}
	if tf.Placeholder != "" {
		if err := s.SetPlaceholder(section, idx, tf.Placeholder); err != nil {
			return err
		}
	}

	switch t.Kind() {
	case schema.KindSingleChoice, schema.KindMultiChoice:
		return s.SetOptions(section, idx, tf.Options)
	case schema.KindNumeric:
		return s.SetNumeric(section, idx, tf.Min, tf.Max, tf.Step)
	case schema.KindTable:
		if tf.Rows > 0 || tf.Columns > 0 {
			return s.SetTableConfig(section, idx, tf.Rows, tf.Columns, tf.Headings)
		}
	case schema.KindChecklist:
		return s.SetChecklist(section, idx, tf.Items)
	case schema.KindGridTable:
		return s.SetGrid(section, idx, tf.GridColumns, tf.Items)
	}
	return nil
}
