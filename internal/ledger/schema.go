package ledger

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed ledger.schema.json
var schemaJSON string

const schemaURL = "https://github.com/nibzard/agileflow-go/ledger.schema.json"

var compiledSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020
	if err := compiler.AddResource(schemaURL, strings.NewReader(schemaJSON)); err != nil {
		return nil, fmt.Errorf("add ledger schema: %w", err)
	}
	return compiler.Compile(schemaURL)
})

// ValidationResult contains validation results.
type ValidationResult struct {
	Valid    bool
	Errors   []error
	Warnings []string
}

// Validate checks the ledger against the canonical shape: TASK-NNN ids,
// lifecycle statuses, P0..P3 priorities, a title or description, and unique
// ids. The store itself never enforces these.
func (l *Ledger) Validate() *ValidationResult {
	result := &ValidationResult{
		Valid:    true,
		Errors:   make([]error, 0),
		Warnings: make([]string, 0),
	}

	schema, err := compiledSchema()
	if err != nil {
		result.Warnings = append(result.Warnings, fmt.Sprintf("schema unavailable: %v", err))
	} else {
		// Marshal the ledger back to JSON for validation
		data, err := json.Marshal(l)
		if err != nil {
			result.Valid = false
			result.Errors = append(result.Errors, &ValidationError{Err: fmt.Errorf("marshal ledger for validation: %w", err)})
			return result
		}
		var doc any
		if err := json.Unmarshal(data, &doc); err != nil {
			result.Valid = false
			result.Errors = append(result.Errors, &ValidationError{Err: fmt.Errorf("unmarshal ledger for validation: %w", err)})
			return result
		}
		if err := schema.Validate(doc); err != nil {
			result.Valid = false
			appendSchemaErrors(result, err)
		}
	}

	seen := make(map[string]int, len(l.Tasks))
	for i, task := range l.Tasks {
		id := task.ID()
		if id == "" {
			continue
		}
		if first, dup := seen[id]; dup {
			result.Valid = false
			result.Errors = append(result.Errors, &ValidationError{
				Path: fmt.Sprintf("tasks[%d].id", i),
				Err:  fmt.Errorf("duplicate id %q (first at tasks[%d])", id, first),
			})
			continue
		}
		seen[id] = i
	}

	return result
}

func appendSchemaErrors(result *ValidationResult, err error) {
	ve, ok := err.(*jsonschema.ValidationError)
	if !ok {
		result.Errors = append(result.Errors, err)
		return
	}
	collectSchemaErrors(result, ve)
}

func collectSchemaErrors(result *ValidationResult, err *jsonschema.ValidationError) {
	if len(err.Causes) == 0 {
		result.Errors = append(result.Errors, &ValidationError{
			Path: jsonPointerToPath(err.InstanceLocation),
			Err:  fmt.Errorf("%s", err.Message),
		})
		return
	}
	for _, cause := range err.Causes {
		collectSchemaErrors(result, cause)
	}
}

func jsonPointerToPath(ptr string) string {
	ptr = strings.TrimPrefix(ptr, "#")
	ptr = strings.TrimPrefix(ptr, "/")
	if ptr == "" {
		return ""
	}

	var b strings.Builder
	for _, part := range strings.Split(ptr, "/") {
		part = strings.ReplaceAll(part, "~1", "/")
		part = strings.ReplaceAll(part, "~0", "~")
		if part == "" {
			continue
		}
		if idx, err := strconv.Atoi(part); err == nil {
			fmt.Fprintf(&b, "[%d]", idx)
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('.')
		}
		b.WriteString(part)
	}
	return b.String()
}
