package ui

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nibzard/agileflow-go/internal/ledger"
)

const sampleLedger = `{
  "iteration": 3,
  "tasks": [
    {"id": "TASK-001", "title": "Set up repo", "status": "completed", "priority": "P1"},
    {"id": "TASK-002", "title": "Login form", "status": "pending", "priority": "P2"},
    {"id": "TASK-003", "title": "Fix crash", "status": "bug", "priority": "P0"},
    {"id": "TASK-004", "title": "Parked", "status": "blocked", "priority": "P3"}
  ]
}
`

func writeLedger(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "TASKS.json")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write ledger: %v", err)
	}
	return path
}

func key(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestBoardView(t *testing.T) {
	m := newBoardModel(writeLedger(t, sampleLedger))
	m.refresh()

	view := m.View()
	for _, want := range []string{
		"Iteration",
		"1/4 (25%)",
		"TASK-003",
		"Fix crash",
		"bug (1)",
		"pending (1)",
		"other (1)",
		"[blocked]",
	} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}

	if m.data.next == nil || m.data.next.ID() != "TASK-003" {
		t.Fatalf("next task: got %v, want TASK-003", m.data.next)
	}
}

func TestBoardFilter(t *testing.T) {
	m := newBoardModel(writeLedger(t, sampleLedger))
	m.refresh()

	m.Update(key("5"))
	if m.filter != ledger.StatusBug {
		t.Fatalf("filter: got %q, want %q", m.filter, ledger.StatusBug)
	}
	view := m.View()
	if !strings.Contains(view, "Filter: bug") {
		t.Errorf("view missing filter line:\n%s", view)
	}
	if strings.Contains(view, "pending (1)") {
		t.Errorf("filtered view shows pending section:\n%s", view)
	}

	m.Update(key("0"))
	if m.filter != "" {
		t.Errorf("filter after clear: got %q, want empty", m.filter)
	}
}

func TestBoardKeys(t *testing.T) {
	m := newBoardModel(writeLedger(t, sampleLedger))
	m.refresh()

	m.Update(key("?"))
	if !m.showHelp || !strings.Contains(m.View(), "Keyboard Shortcuts") {
		t.Error("help not shown after ?")
	}
	m.Update(key("h"))
	if m.showHelp {
		t.Error("help still shown after h")
	}

	_, cmd := m.Update(key("q"))
	if cmd == nil {
		t.Fatal("q returned no command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("q did not quit")
	}
}

func TestBoardMissingLedger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ai-docs", "TASKS.json")
	m := newBoardModel(path)
	m.refresh()

	if !strings.Contains(m.View(), "No ledger yet") {
		t.Errorf("view:\n%s", m.View())
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("board created the ledger: %v", err)
	}
}

func TestBoardCorruptLedger(t *testing.T) {
	m := newBoardModel(writeLedger(t, "{not json"))
	m.refresh()

	if m.loadErr == nil {
		t.Fatal("expected load error")
	}
	if !strings.Contains(m.View(), "Error loading ledger") {
		t.Errorf("view:\n%s", m.View())
	}
}

func TestBoardReload(t *testing.T) {
	path := writeLedger(t, sampleLedger)
	m := newBoardModel(path)
	m.refresh()

	updated := strings.Replace(sampleLedger, `"status": "pending"`, `"status": "completed"`, 1)
	if err := os.WriteFile(path, []byte(updated), 0644); err != nil {
		t.Fatal(err)
	}
	m.Update(tickMsg(time.Now()))

	if got := m.data.stats.Completed; got != 2 {
		t.Errorf("completed after reload: got %d, want 2", got)
	}
}

func TestFormatTaskTruncates(t *testing.T) {
	m := newBoardModel("unused")
	m.Update(tea.WindowSizeMsg{Width: 20, Height: 10})

	task := ledger.NewTask()
	if err := task.Set(ledger.FieldTitle, strings.Repeat("x", 50)); err != nil {
		t.Fatal(err)
	}
	line := m.formatTask(task)
	if n := len([]rune(line)); n != 20 {
		t.Errorf("line width: got %d, want 20", n)
	}
	if !strings.HasSuffix(line, "...") {
		t.Errorf("line: got %q, want ... suffix", line)
	}
}

func TestProgressBar(t *testing.T) {
	tests := []struct {
		ratio float64
		full  int
	}{
		{0, 0},
		{0.5, 5},
		{1, 10},
		{1.5, 10},
	}
	for _, tt := range tests {
		bar := progressBar(tt.ratio, 10)
		if got := strings.Count(bar, "█"); got != tt.full {
			t.Errorf("progressBar(%v): got %d filled, want %d", tt.ratio, got, tt.full)
		}
		if got := strings.Count(bar, "█") + strings.Count(bar, "░"); got != 10 {
			t.Errorf("progressBar(%v): got width %d, want 10", tt.ratio, got)
		}
	}
}

func TestWatchLedger(t *testing.T) {
	path := writeLedger(t, sampleLedger)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, err := watchLedger(ctx, path)
	if err != nil {
		t.Skipf("watcher unavailable: %v", err)
	}

	// Unrelated files in the directory are ignored.
	if err := os.WriteFile(filepath.Join(filepath.Dir(path), "other.txt"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(sampleLedger), 0644); err != nil {
		t.Fatal(err)
	}

	select {
	case <-events:
	case <-time.After(5 * time.Second):
		t.Fatal("no event after ledger write")
	}

	cancel()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case _, ok := <-events:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("events channel not closed after cancel")
		}
	}
}
