package ledger

import (
	"bytes"
	"encoding/json"
	"fmt"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Status represents a task status.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "inProgress"
	StatusTesting    Status = "testing"
	StatusTested     Status = "tested"
	StatusBug        Status = "bug"
	StatusCompleted  Status = "completed"
)

// Statuses lists the canonical statuses in lifecycle order.
var Statuses = []Status{
	StatusPending,
	StatusInProgress,
	StatusTesting,
	StatusTested,
	StatusBug,
	StatusCompleted,
}

// IsCanonical reports whether s is one of the six lifecycle statuses.
func (s Status) IsCanonical() bool {
	for _, c := range Statuses {
		if s == c {
			return true
		}
	}
	return false
}

// Priority represents a task priority. P0 is the most urgent.
type Priority string

const (
	PriorityP0 Priority = "P0"
	PriorityP1 Priority = "P1"
	PriorityP2 Priority = "P2"
	PriorityP3 Priority = "P3"
)

// Priorities lists the priorities from most to least urgent.
var Priorities = []Priority{PriorityP0, PriorityP1, PriorityP2, PriorityP3}

// IsCanonical reports whether p is one of P0..P3.
func (p Priority) IsCanonical() bool {
	for _, c := range Priorities {
		if p == c {
			return true
		}
	}
	return false
}

// Known task field names.
const (
	FieldID          = "id"
	FieldStatus      = "status"
	FieldPriority    = "priority"
	FieldTitle       = "title"
	FieldDescription = "description"
)

// UntitledTitle is used when a new task has neither a title nor a description.
const UntitledTitle = "Untitled"

type fieldMap = orderedmap.OrderedMap[string, json.RawMessage]

func newFieldMap() *fieldMap {
	return orderedmap.New[string, json.RawMessage]()
}

// Task is a single ledger entry. It keeps every field it was decoded with, in
// order, and exposes the known ones through accessors.
type Task struct {
	fields *fieldMap
}

// NewTask returns an empty task.
func NewTask() *Task {
	return &Task{fields: newFieldMap()}
}

func (t *Task) ensure() {
	if t.fields == nil {
		t.fields = newFieldMap()
	}
}

// ID returns the task id, or "" if it is missing or not a string.
func (t *Task) ID() string {
	return t.String(FieldID)
}

// Status returns the task status as stored.
func (t *Task) Status() Status {
	return Status(t.String(FieldStatus))
}

// Priority returns the task priority as stored.
func (t *Task) Priority() Priority {
	return Priority(t.String(FieldPriority))
}

// Title returns the display title, falling back to the description.
func (t *Task) Title() string {
	if title := t.String(FieldTitle); title != "" {
		return title
	}
	return t.String(FieldDescription)
}

// String returns a string field, or "" if it is missing or not a string.
func (t *Task) String(key string) string {
	raw, ok := t.Raw(key)
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

// Raw returns the raw JSON value of a field.
func (t *Task) Raw(key string) (json.RawMessage, bool) {
	if t == nil || t.fields == nil {
		return nil, false
	}
	return t.fields.Get(key)
}

// Has reports whether the field is present and neither null nor "".
func (t *Task) Has(key string) bool {
	raw, ok := t.Raw(key)
	if !ok {
		return false
	}
	trimmed := bytes.TrimSpace(raw)
	return !bytes.Equal(trimmed, []byte("null")) && !bytes.Equal(trimmed, []byte(`""`))
}

// Set stores a field, keeping its position if it already exists.
func (t *Task) Set(key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode field %s: %w", key, err)
	}
	t.ensure()
	t.fields.Set(key, raw)
	return nil
}

func (t *Task) setString(key, value string) {
	raw, _ := json.Marshal(value)
	t.ensure()
	t.fields.Set(key, raw)
}

// Keys returns the field names in order.
func (t *Task) Keys() []string {
	if t == nil || t.fields == nil {
		return nil
	}
	keys := make([]string, 0, t.fields.Len())
	for pair := t.fields.Oldest(); pair != nil; pair = pair.Next() {
		keys = append(keys, pair.Key)
	}
	return keys
}

// Clone returns a deep copy of the task.
func (t *Task) Clone() *Task {
	c := NewTask()
	if t == nil || t.fields == nil {
		return c
	}
	for pair := t.fields.Oldest(); pair != nil; pair = pair.Next() {
		c.fields.Set(pair.Key, append(json.RawMessage(nil), pair.Value...))
	}
	return c
}

// MarshalJSON encodes the task with its fields in order.
func (t *Task) MarshalJSON() ([]byte, error) {
	if t == nil || t.fields == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(t.fields)
}

// UnmarshalJSON decodes a JSON object, keeping every field.
func (t *Task) UnmarshalJSON(data []byte) error {
	if !isObject(data) {
		return fmt.Errorf("task must be a JSON object")
	}
	fields := newFieldMap()
	if err := json.Unmarshal(data, fields); err != nil {
		return err
	}
	t.fields = fields
	return nil
}

func isObject(data []byte) bool {
	trimmed := bytes.TrimSpace(data)
	return len(trimmed) > 0 && trimmed[0] == '{'
}
