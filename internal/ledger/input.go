package ledger

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// AddUsage describes the accepted add arguments.
const AddUsage = "add <P0|P1|P2|P3> <description> | add <task.json> | add '<json object>'"

// ResolveAddArgs turns add arguments into a candidate task. A single
// argument naming an existing file is read as a task file; a single argument
// starting with "{" is parsed as an inline JSON object; anything else is a
// priority followed by a free-text description.
func ResolveAddArgs(args []string) (*Task, error) {
	if len(args) == 0 || strings.TrimSpace(args[0]) == "" {
		return nil, invalidArgument("usage: %s", AddUsage)
	}

	if len(args) == 1 {
		arg := args[0]
		if info, err := os.Stat(arg); err == nil && !info.IsDir() {
			return checkPriority(ReadTaskFile(arg))
		}
		if strings.HasPrefix(strings.TrimSpace(arg), "{") {
			return checkPriority(ParseTaskJSON([]byte(arg)))
		}
	}

	candidate := NewTask()
	candidate.setString(FieldPriority, strings.TrimSpace(args[0]))
	if description := strings.TrimSpace(strings.Join(args[1:], " ")); description != "" {
		candidate.setString(FieldDescription, description)
	}
	return checkPriority(candidate, nil)
}

// checkPriority rejects a candidate whose priority is set to anything other
// than P0..P3. A structured candidate may leave priority out.
func checkPriority(candidate *Task, err error) (*Task, error) {
	if err != nil {
		return nil, err
	}
	if candidate.Has(FieldPriority) && !candidate.Priority().IsCanonical() {
		raw, _ := candidate.Raw(FieldPriority)
		return nil, invalidArgument("priority %s must be one of P0, P1, P2, P3", raw)
	}
	return candidate, nil
}

// ParseTaskJSON parses a JSON object into a candidate task.
func ParseTaskJSON(data []byte) (*Task, error) {
	if !isObject(data) {
		return nil, invalidArgument("task input must be a JSON object")
	}
	task := NewTask()
	if err := json.Unmarshal(data, task); err != nil {
		return nil, invalidArgument("parse task JSON: %v", err)
	}
	return task, nil
}

// ReadTaskFile reads a candidate task from a JSON or YAML file. Files ending
// in .yaml or .yml are decoded as YAML; everything else as JSON.
func ReadTaskFile(path string) (*Task, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read task file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return parseTaskYAML(data)
	default:
		return ParseTaskJSON(data)
	}
}

// parseTaskYAML decodes a YAML mapping, keeping top-level key order.
func parseTaskYAML(data []byte) (*Task, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, invalidArgument("parse task YAML: %v", err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 || doc.Content[0].Kind != yaml.MappingNode {
		return nil, invalidArgument("task YAML must be a mapping")
	}

	mapping := doc.Content[0]
	task := NewTask()
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		key := mapping.Content[i].Value
		var value any
		if err := mapping.Content[i+1].Decode(&value); err != nil {
			return nil, invalidArgument("task YAML field %s: %v", key, err)
		}
		if err := task.Set(key, value); err != nil {
			return nil, invalidArgument("task YAML field %s: %v", key, err)
		}
	}
	return task, nil
}
