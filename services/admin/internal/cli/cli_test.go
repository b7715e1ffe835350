package cli

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matapang/platform/libs/components/form"
	"github.com/matapang/platform/libs/components/schema"
	"github.com/matapang/platform/libs/shared/database"
	"github.com/matapang/platform/libs/shared/errs"
)

const templatesYAML = `templates:
  - name: Purchase Request
    description: Standard purchase approval
    approvers: [u1, u2]
    sections:
      - title: Request
        fields:
          - type: text
            label: Item
            required: true
          - type: dropdown
            label: Priority
            options: [Low, High]
          - type: number
            label: Quantity
            min: 1
          - type: checklist
            label: Checks
            items:
              - id: budget
                question: Budget confirmed
  - name: Visitor Log
    sections:
      - title: Visit
        fields:
          - type: table
            label: Visitors
            rows: 2
            columns: 2
            headings: [Name, Company]
`

func newRepo(t *testing.T) *form.GormRepository {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := database.Open("admin-test", sqlite.Open(dsn), nil)
	require.NoError(t, err)
	repo := form.NewGormRepository(db)
	require.NoError(t, repo.AutoMigrate())
	return repo
}

func opener(repo form.Repository) OpenForms {
	return func(context.Context) (form.Repository, func() error, error) {
		return repo, func() error { return nil }, nil
	}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func run(t *testing.T, open OpenForms, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := NewRootCommand(open, nil)
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestParseTemplatesBuildsForms(t *testing.T) {
	templates, err := ParseTemplates(strings.NewReader(templatesYAML))
	require.NoError(t, err)
	require.Len(t, templates, 2)

	doc, err := templates[0].Build()
	require.NoError(t, err)
	assert.Equal(t, "purchase_request", doc.FormID)
	assert.True(t, doc.IsTemplate)
	require.Len(t, doc.ApprovalFlow, 2)
	assert.Equal(t, 2, doc.ApprovalFlow[1].Level)

	fields := doc.Sections[0].Fields
	require.Len(t, fields, 4)
	assert.Equal(t, "item", fields[0].FieldID)
	assert.True(t, fields[0].Required)
	assert.Equal(t, []string{"Low", "High"}, fields[1].Options())
}

func TestParseTemplatesRejectsUnknownKeys(t *testing.T) {
	_, err := ParseTemplates(strings.NewReader("templates:\n  - name: X\n    colour: red\n"))
	assert.Error(t, err)
}

func TestTemplateBuildRejectsUnknownType(t *testing.T) {
	tmpl := Template{Name: "Bad", Sections: []TemplateSection{{
		Title:  "S",
		Fields: []TemplateField{{Type: "hologram", Label: "X"}},
	}}}
	_, err := tmpl.Build()
	assert.ErrorContains(t, err, "hologram")
}

func TestTemplateBuildRequiresOptions(t *testing.T) {
	tmpl := Template{Name: "Choice", Sections: []TemplateSection{{
		Title:  "S",
		Fields: []TemplateField{{Type: "radio", Label: "Pick"}},
	}}}
	_, err := tmpl.Build()
	ve, ok := errs.AsValidation(err)
	require.True(t, ok)
	assert.Equal(t, "options", ve.Code)
}

func TestSeedTemplatesIsIdempotent(t *testing.T) {
	repo := newRepo(t)
	path := writeFile(t, "templates.yaml", templatesYAML)

	out, err := run(t, opener(repo), "seed-templates", "--file", path)
	require.NoError(t, err)
	assert.Contains(t, out, "seeded 2 of 2 templates")

	stored, err := repo.FindByFormID(context.Background(), "visitor_log")
	require.NoError(t, err)
	assert.True(t, stored.IsTemplate)
	assert.True(t, stored.IsActive)

	out, err = run(t, opener(repo), "seed-templates", "--file", path)
	require.NoError(t, err)
	assert.Contains(t, out, "skip purchase_request: already exists")
	assert.Contains(t, out, "seeded 0 of 2 templates")

	count, err := repo.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestSeedTemplatesDryRunDoesNotOpenStore(t *testing.T) {
	path := writeFile(t, "templates.yaml", templatesYAML)
	failing := func(context.Context) (form.Repository, func() error, error) {
		return nil, nil, fmt.Errorf("store should not be opened")
	}

	out, err := run(t, failing, "seed-templates", "--dry-run", "--file", path)
	require.NoError(t, err)
	assert.Contains(t, out, "would seed purchase_request (Purchase Request)")
}

func TestValidateCommand(t *testing.T) {
	good := writeFile(t, "good.json", `{"formName": "Leave Request", "sections": [
		{"title": "Dates", "fields": [{"type": "date", "label": "Start"}]}
	], "approvalFlow": [{"level": 1, "approverId": "u1"}]}`)
	out, err := run(t, opener(nil), "validate", "--file", good)
	require.NoError(t, err)
	assert.Contains(t, out, "ok: leave_request (1 sections, 1 approval levels)")

	bad := writeFile(t, "bad.json", `{"formName": "", "sections": []}`)
	_, err = run(t, opener(nil), "validate", "--file", bad)
	require.Error(t, err)
	_, ok := errs.AsValidation(err)
	assert.True(t, ok)
}

func TestDeriveIDCommand(t *testing.T) {
	out, err := run(t, opener(nil), "derive-id", "Vendor Name (Legal)")
	require.NoError(t, err)
	assert.Equal(t, schema.DeriveID("Vendor Name (Legal)")+"\n", out)

	_, err = run(t, opener(nil), "derive-id", "!!!")
	assert.Error(t, err)

	_, err = run(t, opener(nil), "derive-id")
	assert.Error(t, err)
}
