package ledger

import (
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
)

const (
	keyIteration = "iteration"
	keyTasks     = "tasks"

	// IDPrefix prefixes every generated task id.
	IDPrefix = "TASK-"
)

// statusRanking orders statuses for GetNext: fix bugs, finish in-flight work,
// then pull new work.
var statusRanking = []Status{
	StatusBug,
	StatusInProgress,
	StatusTesting,
	StatusTested,
	StatusPending,
}

// Ledger is the root task document.
type Ledger struct {
	Iteration int
	Tasks     []*Task

	// extra holds unknown root fields in their original order.
	extra *fieldMap
}

// New returns an empty ledger at iteration 1.
func New() *Ledger {
	return &Ledger{Iteration: 1, Tasks: []*Task{}}
}

// MarshalJSON writes iteration and tasks first, then any unknown root fields.
func (l *Ledger) MarshalJSON() ([]byte, error) {
	root := newFieldMap()

	iteration, err := json.Marshal(l.Iteration)
	if err != nil {
		return nil, err
	}
	tasks := l.Tasks
	if tasks == nil {
		tasks = []*Task{}
	}
	tasksRaw, err := json.Marshal(tasks)
	if err != nil {
		return nil, err
	}
	root.Set(keyIteration, iteration)
	root.Set(keyTasks, tasksRaw)

	if l.extra != nil {
		for pair := l.extra.Oldest(); pair != nil; pair = pair.Next() {
			root.Set(pair.Key, pair.Value)
		}
	}
	return json.Marshal(root)
}

// UnmarshalJSON decodes a ledger document. The document must be an object
// with a tasks array of objects; a missing iteration defaults to 1.
func (l *Ledger) UnmarshalJSON(data []byte) error {
	if !isObject(data) {
		return fmt.Errorf("ledger must be a JSON object")
	}
	root := newFieldMap()
	if err := json.Unmarshal(data, root); err != nil {
		return err
	}

	doc := Ledger{Iteration: 1, extra: newFieldMap()}
	sawTasks := false
	for pair := root.Oldest(); pair != nil; pair = pair.Next() {
		switch pair.Key {
		case keyIteration:
			if err := json.Unmarshal(pair.Value, &doc.Iteration); err != nil {
				return fmt.Errorf("iteration: %w", err)
			}
		case keyTasks:
			sawTasks = true
			if err := json.Unmarshal(pair.Value, &doc.Tasks); err != nil {
				return fmt.Errorf("tasks: %w", err)
			}
		default:
			doc.extra.Set(pair.Key, pair.Value)
		}
	}
	if !sawTasks || doc.Tasks == nil {
		return fmt.Errorf("tasks: missing array")
	}
	for i, task := range doc.Tasks {
		if task == nil {
			return fmt.Errorf("tasks[%d]: expected an object", i)
		}
	}

	*l = doc
	return nil
}

// ParseID returns the numeric suffix of a TASK-<digits> id.
func ParseID(id string) (int, bool) {
	suffix, ok := strings.CutPrefix(id, IDPrefix)
	if !ok || suffix == "" {
		return 0, false
	}
	for _, c := range suffix {
		if c < '0' || c > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(suffix)
	if err != nil {
		return 0, false
	}
	return n, true
}

// FormatID formats a numeric id as TASK-NNN.
func FormatID(n int) string {
	return fmt.Sprintf("%s%03d", IDPrefix, n)
}

// NextID returns the id after the largest numeric id in the ledger.
// Ids that do not parse are ignored. It fails when the largest id is
// already math.MaxInt.
func (l *Ledger) NextID() (string, error) {
	highest := 0
	for _, task := range l.Tasks {
		if n, ok := ParseID(task.ID()); ok && n > highest {
			highest = n
		}
	}
	if highest == math.MaxInt {
		return "", invalidArgument("no id above %s is available", FormatID(highest))
	}
	return FormatID(highest + 1), nil
}

// Add assigns the next id to a copy of candidate, fills in defaults, and
// appends it. Any id in candidate is replaced.
func (l *Ledger) Add(candidate *Task) (*Task, error) {
	id, err := l.NextID()
	if err != nil {
		return nil, err
	}
	task := NewTask()
	task.setString(FieldID, id)
	if candidate != nil && candidate.fields != nil {
		for pair := candidate.fields.Oldest(); pair != nil; pair = pair.Next() {
			if pair.Key == FieldID {
				continue
			}
			task.fields.Set(pair.Key, append(json.RawMessage(nil), pair.Value...))
		}
	}

	if !task.Has(FieldStatus) {
		task.setString(FieldStatus, string(StatusPending))
	}
	if !task.Has(FieldTitle) {
		title := task.String(FieldDescription)
		if title == "" {
			title = UntitledTitle
		}
		task.setString(FieldTitle, title)
	}

	l.Tasks = append(l.Tasks, task)
	return task, nil
}

// Get returns the task with the given id.
func (l *Ledger) Get(id string) (*Task, error) {
	for _, task := range l.Tasks {
		if task.ID() == id {
			return task, nil
		}
	}
	return nil, notFound(id)
}

// GetStatus returns the status of the task with the given id.
func (l *Ledger) GetStatus(id string) (Status, error) {
	task, err := l.Get(id)
	if err != nil {
		return "", err
	}
	return task.Status(), nil
}

// SetStatus overwrites a task's status. Any string is accepted.
func (l *Ledger) SetStatus(id string, status Status) error {
	task, err := l.Get(id)
	if err != nil {
		return err
	}
	task.setString(FieldStatus, string(status))
	return nil
}

// ByStatus returns the tasks whose status exactly equals status, in ledger order.
func (l *Ledger) ByStatus(status Status) []*Task {
	var matched []*Task
	for _, task := range l.Tasks {
		if raw, ok := task.Raw(FieldStatus); ok && isJSONString(raw) && task.Status() == status {
			matched = append(matched, task)
		}
	}
	return matched
}

// Next returns the task to work on next: lowest status rank, then lowest
// priority rank, skipping completed tasks. Statuses and priorities outside
// the rankings sort after all ranked ones. The ledger's order is not changed.
func (l *Ledger) Next() (*Task, bool) {
	ordered := slices.Clone(l.Tasks)
	slices.SortStableFunc(ordered, func(a, b *Task) int {
		if d := StatusRank(a.Status()) - StatusRank(b.Status()); d != 0 {
			return d
		}
		return PriorityRank(a.Priority()) - PriorityRank(b.Priority())
	})
	for _, task := range ordered {
		if task.Status() != StatusCompleted {
			return task, true
		}
	}
	return nil, false
}

// StatusRank returns the position of s in the GetNext ranking, or
// len(ranking) when s is not ranked.
func StatusRank(s Status) int {
	if i := slices.Index(statusRanking, s); i >= 0 {
		return i
	}
	return len(statusRanking)
}

// PriorityRank returns 0 for P0 through 3 for P3, and 4 for anything else.
func PriorityRank(p Priority) int {
	if i := slices.Index(Priorities, p); i >= 0 {
		return i
	}
	return len(Priorities)
}

// Stats summarizes the ledger for read-only consumers.
type Stats struct {
	Iteration int            `json:"iteration"`
	Total     int            `json:"total"`
	Completed int            `json:"completed"`
	Progress  int            `json:"progress"`
	Counts    map[Status]int `json:"counts"`
	Other     int            `json:"other"`
}

// Count returns the number of tasks in a status.
func (s Stats) Count(status Status) int {
	return s.Counts[status]
}

// Ratio returns completed/total, or 0 for an empty ledger.
func (s Stats) Ratio() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Completed) / float64(s.Total)
}

// Stats counts tasks per canonical status. Progress is the rounded
// completion percentage.
func (l *Ledger) Stats() Stats {
	stats := Stats{
		Iteration: l.Iteration,
		Total:     len(l.Tasks),
		Counts:    make(map[Status]int, len(Statuses)),
	}
	for _, status := range Statuses {
		stats.Counts[status] = 0
	}
	for _, task := range l.Tasks {
		status := task.Status()
		if status.IsCanonical() {
			stats.Counts[status]++
		} else {
			stats.Other++
		}
	}
	stats.Completed = stats.Counts[StatusCompleted]
	stats.Progress = int(math.Round(stats.Ratio() * 100))
	return stats
}

func isJSONString(raw json.RawMessage) bool {
	for _, c := range raw {
		switch c {
		case ' ', '\t', '\n', '\r':
			continue
		case '"':
			return true
		default:
			return false
		}
	}
	return false
}
