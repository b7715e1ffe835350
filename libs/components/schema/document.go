package schema

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed form.schema.json
var formSchemaJSON []byte

var (
	compileOnce sync.Once
	compiled    *gojsonschema.Schema
	compileErr  error
)

// DocumentError lists every structural problem found in a form document.
type DocumentError struct {
	Problems []string
}

func (e *DocumentError) Error() string {
	return "schema: invalid form document: " + strings.Join(e.Problems, "; ")
}

func formSchema() (*gojsonschema.Schema, error) {
	compileOnce.Do(func() {
		compiled, compileErr = gojsonschema.NewSchema(gojsonschema.NewBytesLoader(formSchemaJSON))
	})
	return compiled, compileErr
}

// ValidateDocument checks the structure of a raw JSON form document. It
// catches shape errors such as unknown field types or non-string options
// before the document is decoded; authoring rules are checked separately.
func ValidateDocument(raw []byte) error {
	s, err := formSchema()
	if err != nil {
		return fmt.Errorf("schema: compile form schema: %w", err)
	}

	result, err := s.Validate(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return &DocumentError{Problems: []string{err.Error()}}
	}
	if result.Valid() {
		return nil
	}

	problems := make([]string, 0, len(result.Errors()))
	for _, re := range result.Errors() {
		problems = append(problems, re.String())
	}
	return &DocumentError{Problems: problems}
}
