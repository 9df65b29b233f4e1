package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// Issue describes a single validation failure. Path holds the instance
// location segments from the document root; an empty Path means the
// root value itself failed.
type Issue struct {
	Path    []string
	Message string
}

// compiled caches the result of compiling a schema, including a failure,
// so a broken schema is not recompiled on every request.
type compiled struct {
	schema *jsonschema.Schema
	err    error
}

// compiledCache maps *Schema identity to its compiled form. Route schemas
// are built at startup and never mutated afterwards, so identity is a
// stable key.
var compiledCache sync.Map

func (s *Schema) compile() *compiled {
	if c, ok := compiledCache.Load(s); ok {
		return c.(*compiled)
	}

	c := &compiled{}
	c.schema, c.err = compileDocument(s)
	actual, _ := compiledCache.LoadOrStore(s, c)
	return actual.(*compiled)
}

func compileDocument(s *Schema) (*jsonschema.Schema, error) {
	raw, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}

	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("decode schema document: %w", err)
	}

	compiler := jsonschema.NewCompiler()
	compiler.AssertFormat()
	compiler.AssertContent()

	const url = "schema.json"
	if err := compiler.AddResource(url, doc); err != nil {
		return nil, fmt.Errorf("add schema resource: %w", err)
	}

	out, err := compiler.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return out, nil
}

// Validate checks a decoded JSON value (maps, slices, strings, float64,
// bool, nil) against the schema and returns one Issue per leaf failure.
// A nil or empty return means the value is valid. Validate never panics;
// a schema that fails to compile reports a single root issue.
func (s *Schema) Validate(value any) []Issue {
	if s == nil {
		return nil
	}

	c := s.compile()
	if c.err != nil {
		return []Issue{{Message: c.err.Error()}}
	}

	err := c.schema.Validate(value)
	if err == nil {
		return nil
	}

	verr, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return []Issue{{Message: err.Error()}}
	}

	var issues []Issue
	collectIssues(verr, &issues)
	return issues
}

// collectIssues flattens the validation error tree; leaves carry the
// actionable messages.
func collectIssues(verr *jsonschema.ValidationError, issues *[]Issue) {
	if verr == nil {
		return
	}

	if len(verr.Causes) == 0 {
		*issues = append(*issues, Issue{
			Path:    verr.InstanceLocation,
			Message: verr.Error(),
		})
		return
	}

	for _, cause := range verr.Causes {
		collectIssues(cause, issues)
	}
}
