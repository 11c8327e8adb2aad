package ledger

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func mustParse(t *testing.T, doc string) *Ledger {
	t.Helper()
	var l Ledger
	if err := json.Unmarshal([]byte(doc), &l); err != nil {
		t.Fatalf("parse ledger: %v", err)
	}
	return &l
}

func writeLedger(t *testing.T, doc string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ai-docs", "TASKS.json")
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(doc), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestParseID(t *testing.T) {
	tests := []struct {
		id     string
		want   int
		wantOK bool
	}{
		{"TASK-001", 1, true},
		{"TASK-042", 42, true},
		{"TASK-1000", 1000, true},
		{"TASK-abc", 0, false},
		{"TASK-12abc", 0, false},
		{"TASK--3", 0, false},
		{"TASK-", 0, false},
		{"T001", 0, false},
		{"", 0, false},
		{"TASK-99999999999999999999999", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			got, ok := ParseID(tt.id)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("ParseID(%q): got (%d, %v), want (%d, %v)", tt.id, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestNextIDIgnoresMalformed(t *testing.T) {
	l := mustParse(t, `{"iteration":1,"tasks":[
		{"id":"TASK-abc","status":"pending"},
		{"id":"TASK-007","status":"pending"},
		{"id":42,"status":"pending"},
		{"status":"pending"},
		{"id":"TASK-003","status":"pending"}
	]}`)

	if got, err := l.NextID(); err != nil || got != "TASK-008" {
		t.Errorf("NextID: got %s, %v, want TASK-008", got, err)
	}
	if got, err := New().NextID(); err != nil || got != "TASK-001" {
		t.Errorf("NextID on empty ledger: got %s, %v, want TASK-001", got, err)
	}

	// The largest representable id leaves nothing above it.
	full := mustParse(t, `{"iteration":1,"tasks":[{"id":"TASK-9223372036854775807"}]}`)
	if got, err := full.NextID(); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("NextID after max id: got %q, %v, want ErrInvalidArgument", got, err)
	}
	if _, err := full.Add(NewTask()); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("Add after max id: got %v, want ErrInvalidArgument", err)
	}
	if len(full.Tasks) != 1 {
		t.Errorf("failed Add appended a task: %d tasks", len(full.Tasks))
	}
}

func mustAdd(t *testing.T, l *Ledger, candidate *Task) *Task {
	t.Helper()
	task, err := l.Add(candidate)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	return task
}

func TestAddIDsStrictlyIncrease(t *testing.T) {
	l := mustParse(t, `{"iteration":1,"tasks":[{"id":"TASK-abc"},{"id":"TASK-010"}]}`)

	prev := 10
	for i := 0; i < 5; i++ {
		candidate, err := ResolveAddArgs([]string{"P2", "task"})
		if err != nil {
			t.Fatal(err)
		}
		task := mustAdd(t, l, candidate)
		n, ok := ParseID(task.ID())
		if !ok {
			t.Fatalf("assigned id %q does not parse", task.ID())
		}
		if n <= prev {
			t.Fatalf("id %d not greater than %d", n, prev)
		}
		prev = n
	}
}

func TestAddDefaults(t *testing.T) {
	t.Run("priority and description", func(t *testing.T) {
		candidate, err := ResolveAddArgs([]string{"P1", "fix", "bug"})
		if err != nil {
			t.Fatal(err)
		}
		task := mustAdd(t, New(), candidate)
		if task.ID() != "TASK-001" {
			t.Errorf("ID: got %s", task.ID())
		}
		if task.Title() != "fix bug" || task.String(FieldTitle) != "fix bug" {
			t.Errorf("Title: got %q", task.String(FieldTitle))
		}
		if task.Status() != StatusPending {
			t.Errorf("Status: got %s", task.Status())
		}
		if task.Priority() != PriorityP1 {
			t.Errorf("Priority: got %s", task.Priority())
		}
		if task.Keys()[0] != FieldID {
			t.Errorf("id should be the first field, got %v", task.Keys())
		}
	})

	t.Run("priority only is untitled", func(t *testing.T) {
		candidate, err := ResolveAddArgs([]string{"P3"})
		if err != nil {
			t.Fatal(err)
		}
		task := mustAdd(t, New(), candidate)
		if task.Title() != UntitledTitle {
			t.Errorf("Title: got %q, want %q", task.Title(), UntitledTitle)
		}
	})

	t.Run("structured keeps status and title", func(t *testing.T) {
		candidate, err := ParseTaskJSON([]byte(`{"id":"TASK-900","priority":"P0","status":"bug","title":"crash","context":{"file":"a.go"}}`))
		if err != nil {
			t.Fatal(err)
		}
		task := mustAdd(t, New(), candidate)
		if task.ID() != "TASK-001" {
			t.Errorf("supplied id must be overridden, got %s", task.ID())
		}
		if task.Status() != StatusBug || task.Title() != "crash" {
			t.Errorf("got status %s title %q", task.Status(), task.Title())
		}
		raw, ok := task.Raw("context")
		if !ok || string(raw) != `{"file":"a.go"}` {
			t.Errorf("context: got %s", raw)
		}
	})
}

func TestUpdatePreservesUnknownFields(t *testing.T) {
	path := writeLedger(t, `{
  "iteration": 2,
  "tasks": [
    {"id": "TASK-001", "status": "pending", "priority": "P1", "title": "a",
     "implementation": {"files": ["x.go"], "notes": "keep me"}, "zeta": 1, "alpha": [1, 2]}
  ],
  "owner": "team"
}`)

	store := NewStore(path)
	if err := store.Update("TASK-001", StatusInProgress); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	l, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	task := l.Tasks[0]
	if task.Status() != StatusInProgress {
		t.Errorf("Status: got %s", task.Status())
	}

	var impl map[string]any
	raw, _ := task.Raw("implementation")
	if err := json.Unmarshal(raw, &impl); err != nil {
		t.Fatal(err)
	}
	if impl["notes"] != "keep me" {
		t.Errorf("implementation lost: %s", raw)
	}

	wantKeys := []string{"id", "status", "priority", "title", "implementation", "zeta", "alpha"}
	if got := strings.Join(task.Keys(), ","); got != strings.Join(wantKeys, ",") {
		t.Errorf("Keys: got %s, want %s", got, strings.Join(wantKeys, ","))
	}
	if l.Iteration != 2 {
		t.Errorf("Iteration: got %d, want 2", l.Iteration)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"owner": "team"`) {
		t.Errorf("unknown root field lost:\n%s", data)
	}
}

func TestLoadCreatesEmptyLedger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "ai-docs", "TASKS.json")

	l, err := NewStore(path).List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if l.Iteration != 1 || len(l.Tasks) != 0 {
		t.Errorf("got iteration %d with %d tasks", l.Iteration, len(l.Tasks))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ledger not created: %v", err)
	}
	want := "{\n  \"iteration\": 1,\n  \"tasks\": []\n}\n"
	if string(data) != want {
		t.Errorf("file content:\ngot  %q\nwant %q", data, want)
	}
}

func TestLoadCorruptDocument(t *testing.T) {
	docs := map[string]string{
		"not json":      `{"iteration": 1, "tasks": [`,
		"array":         `[]`,
		"no tasks":      `{"iteration": 1}`,
		"null task":     `{"iteration": 1, "tasks": [null]}`,
		"scalar task":   `{"iteration": 1, "tasks": ["TASK-001"]}`,
		"bad iteration": `{"iteration": "one", "tasks": []}`,
	}

	for name, doc := range docs {
		t.Run(name, func(t *testing.T) {
			path := writeLedger(t, doc)
			_, err := Load(path)
			if !errors.Is(err, ErrCorruptDocument) {
				t.Fatalf("expected ErrCorruptDocument, got %v", err)
			}
			data, _ := os.ReadFile(path)
			if string(data) != doc {
				t.Errorf("corrupt ledger was modified: %q", data)
			}
		})
	}
}

func TestUpdateMissingIDLeavesFileUntouched(t *testing.T) {
	doc := `{"iteration": 1, "tasks": [{"id": "TASK-001", "status": "pending"}]}`
	path := writeLedger(t, doc)

	old := time.Now().Add(-time.Hour).Truncate(time.Second)
	if err := os.Chtimes(path, old, old); err != nil {
		t.Fatal(err)
	}

	err := NewStore(path).Update("TASK-999", StatusCompleted)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != doc {
		t.Errorf("content changed: %q", data)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if !info.ModTime().Equal(old) {
		t.Errorf("mtime changed: got %v, want %v", info.ModTime(), old)
	}
}

func TestUpdateAcceptsAnyStatus(t *testing.T) {
	path := writeLedger(t, `{"iteration": 1, "tasks": [{"id": "TASK-001", "status": "pending"}]}`)
	store := NewStore(path)

	if err := store.Update("TASK-001", "blocked-on-review"); err != nil {
		t.Fatal(err)
	}
	status, err := store.GetStatus("TASK-001")
	if err != nil {
		t.Fatal(err)
	}
	if status != "blocked-on-review" {
		t.Errorf("GetStatus: got %q", status)
	}

	if err := store.Update("", StatusCompleted); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestNextStatusDominatesPriority(t *testing.T) {
	l := mustParse(t, `{"iteration":1,"tasks":[
		{"id":"TASK-001","status":"bug","priority":"P2"},
		{"id":"TASK-002","status":"pending","priority":"P0"},
		{"id":"TASK-003","status":"inProgress","priority":"P1"}
	]}`)

	task, ok := l.Next()
	if !ok {
		t.Fatal("expected a task")
	}
	if task.ID() != "TASK-001" {
		t.Errorf("Next: got %s, want TASK-001", task.ID())
	}
	if l.Tasks[0].ID() != "TASK-001" || l.Tasks[1].ID() != "TASK-002" || l.Tasks[2].ID() != "TASK-003" {
		t.Error("Next reordered the ledger")
	}
}

func TestNextOrdering(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{
			name: "priority breaks status ties",
			doc: `{"iteration":1,"tasks":[
				{"id":"TASK-001","status":"pending","priority":"P2"},
				{"id":"TASK-002","status":"pending","priority":"P1"}]}`,
			want: "TASK-002",
		},
		{
			name: "in-flight work before new work",
			doc: `{"iteration":1,"tasks":[
				{"id":"TASK-001","status":"pending","priority":"P0"},
				{"id":"TASK-002","status":"tested","priority":"P3"}]}`,
			want: "TASK-002",
		},
		{
			name: "unknown status sorts after pending",
			doc: `{"iteration":1,"tasks":[
				{"id":"TASK-001","status":"blocked","priority":"P0"},
				{"id":"TASK-002","status":"pending","priority":"P3"}]}`,
			want: "TASK-002",
		},
		{
			name: "unknown status still returned when nothing else remains",
			doc: `{"iteration":1,"tasks":[
				{"id":"TASK-001","status":"completed","priority":"P0"},
				{"id":"TASK-002","status":"blocked","priority":"P1"}]}`,
			want: "TASK-002",
		},
		{
			name: "unknown priority sorts last",
			doc: `{"iteration":1,"tasks":[
				{"id":"TASK-001","status":"pending","priority":"urgent"},
				{"id":"TASK-002","status":"pending","priority":"P3"}]}`,
			want: "TASK-002",
		},
		{
			name: "ledger order breaks full ties",
			doc: `{"iteration":1,"tasks":[
				{"id":"TASK-005","status":"testing","priority":"P1"},
				{"id":"TASK-002","status":"testing","priority":"P1"}]}`,
			want: "TASK-005",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			task, ok := mustParse(t, tt.doc).Next()
			if !ok {
				t.Fatal("expected a task")
			}
			if task.ID() != tt.want {
				t.Errorf("Next: got %s, want %s", task.ID(), tt.want)
			}
		})
	}
}

func TestNextExhausted(t *testing.T) {
	path := writeLedger(t, `{"iteration":1,"tasks":[
		{"id":"TASK-001","status":"completed","priority":"P0"},
		{"id":"TASK-002","status":"completed","priority":"P1"}]}`)

	task, ok, err := NewStore(path).Next()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if ok || task != nil {
		t.Errorf("expected no pending work, got %v", task)
	}
}

func TestByStatusExactMatch(t *testing.T) {
	l := mustParse(t, `{"iteration":1,"tasks":[
		{"id":"TASK-001","status":"inProgress"},
		{"id":"TASK-002","status":"InProgress"},
		{"id":"TASK-003","status":"inProgress "},
		{"id":"TASK-004","status":"inProgress"},
		{"id":"TASK-005"}]}`)

	got := l.ByStatus(StatusInProgress)
	if len(got) != 2 || got[0].ID() != "TASK-001" || got[1].ID() != "TASK-004" {
		ids := make([]string, 0, len(got))
		for _, task := range got {
			ids = append(ids, task.ID())
		}
		t.Errorf("ByStatus: got %v", ids)
	}
	if len(l.ByStatus("")) != 0 {
		t.Error("empty status must not match tasks without a status")
	}
}

func TestGetDetailAndStatus(t *testing.T) {
	path := writeLedger(t, `{"iteration":1,"tasks":[{"id":"TASK-001","status":"testing","description":"legacy"}]}`)
	store := NewStore(path)

	task, err := store.Get("TASK-001")
	if err != nil {
		t.Fatal(err)
	}
	if task.Title() != "legacy" {
		t.Errorf("Title should fall back to description, got %q", task.Title())
	}

	if _, err := store.Get("TASK-002"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get: expected ErrNotFound, got %v", err)
	}
	if _, err := store.GetStatus("TASK-002"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetStatus: expected ErrNotFound, got %v", err)
	}
}

func TestStoreAdd(t *testing.T) {
	path := writeLedger(t, `{"iteration":1,"tasks":[{"id":"TASK-004","status":"pending","priority":"P1","title":"old"}]}`)
	store := NewStore(path)

	if _, err := store.Add(nil); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument, got %v", err)
	}

	candidate, err := ResolveAddArgs([]string{"P0", "ship", "it"})
	if err != nil {
		t.Fatal(err)
	}
	task, err := store.Add(candidate)
	if err != nil {
		t.Fatal(err)
	}
	if task.ID() != "TASK-005" {
		t.Errorf("ID: got %s, want TASK-005", task.ID())
	}

	l, err := store.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(l.Tasks) != 2 || l.Tasks[1].ID() != "TASK-005" {
		t.Errorf("task not appended: %d tasks", len(l.Tasks))
	}
}

func TestStats(t *testing.T) {
	l := mustParse(t, `{"iteration":3,"tasks":[
		{"id":"TASK-001","status":"completed"},
		{"id":"TASK-002","status":"completed"},
		{"id":"TASK-003","status":"bug"},
		{"id":"TASK-004","status":"weird"}]}`)

	stats := l.Stats()
	if stats.Iteration != 3 || stats.Total != 4 || stats.Completed != 2 {
		t.Errorf("got %+v", stats)
	}
	if stats.Progress != 50 {
		t.Errorf("Progress: got %d, want 50", stats.Progress)
	}
	if stats.Count(StatusBug) != 1 || stats.Count(StatusPending) != 0 || stats.Other != 1 {
		t.Errorf("Counts: got %v other %d", stats.Counts, stats.Other)
	}
	if New().Stats().Progress != 0 {
		t.Error("empty ledger progress should be 0")
	}
}

func TestSaveIsIndented(t *testing.T) {
	path := filepath.Join(t.TempDir(), "TASKS.json")
	l := New()
	candidate, _ := ResolveAddArgs([]string{"P1", "a <b> & c"})
	mustAdd(t, l, candidate)
	if err := l.Save(path); err != nil {
		t.Fatal(err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Tasks[0].Title() != "a <b> & c" {
		t.Errorf("Title: got %q", loaded.Tasks[0].Title())
	}

	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("temporary files left behind: %d entries", len(entries))
	}
}
