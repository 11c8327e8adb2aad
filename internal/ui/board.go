// Package ui provides the read-only terminal board.
package ui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"

	"github.com/nibzard/agileflow-go/internal/ledger"
)

const (
	progressWidth   = 30
	defaultInterval = 5 * time.Second
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("62"))
	headingStyle = lipgloss.NewStyle().Bold(true)
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	errStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	barStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))

	statusStyles = map[ledger.Status]lipgloss.Style{
		ledger.StatusPending:    lipgloss.NewStyle().Foreground(lipgloss.Color("252")),
		ledger.StatusInProgress: lipgloss.NewStyle().Foreground(lipgloss.Color("39")),
		ledger.StatusTesting:    lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		ledger.StatusTested:     lipgloss.NewStyle().Foreground(lipgloss.Color("86")),
		ledger.StatusBug:        lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
		ledger.StatusCompleted:  lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
	}
)

// BoardOption configures the board.
type BoardOption func(*boardModel)

// WithRefreshInterval sets the polling interval used alongside file events.
func WithRefreshInterval(d time.Duration) BoardOption {
	return func(m *boardModel) {
		if d > 0 {
			m.tickInterval = d
		}
	}
}

// RunBoard shows the ledger at path until the user quits or ctx ends.
// The ledger is reloaded whenever the file changes.
func RunBoard(ctx context.Context, path string, opts ...BoardOption) error {
	if !IsTTY(os.Stdout) {
		return fmt.Errorf("board requires a TTY")
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	model := newBoardModel(path, opts...)
	if events, err := watchLedger(ctx, path); err == nil {
		model.events = events
	} else {
		model.watchErr = err
	}

	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := program.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

type boardModel struct {
	path         string
	tickInterval time.Duration
	events       <-chan struct{}
	watchErr     error

	data     *boardData
	loadErr  error
	loadedAt time.Time
	filter   ledger.Status
	showHelp bool
	width    int
}

type boardData struct {
	missing bool
	stats   ledger.Stats
	next    *ledger.Task
	groups  map[ledger.Status][]*ledger.Task
	other   []*ledger.Task
}

type tickMsg time.Time

type reloadMsg struct{}

func newBoardModel(path string, opts ...BoardOption) *boardModel {
	m := &boardModel{path: path, tickInterval: defaultInterval}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *boardModel) Init() tea.Cmd {
	m.refresh()
	cmds := []tea.Cmd{tickCmd(m.tickInterval)}
	if m.events != nil {
		cmds = append(cmds, waitForReload(m.events))
	}
	return tea.Batch(cmds...)
}

func (m *boardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch key := msg.String(); key {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "r", "f5":
			m.refresh()
		case "h", "?":
			m.showHelp = !m.showHelp
		case "0":
			m.filter = ""
		case "1", "2", "3", "4", "5", "6":
			m.filter = ledger.Statuses[key[0]-'1']
		}
		return m, nil
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil
	case tickMsg:
		m.refresh()
		return m, tickCmd(m.tickInterval)
	case reloadMsg:
		m.refresh()
		return m, waitForReload(m.events)
	}
	return m, nil
}

func (m *boardModel) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("agileflow board") + "\n")
	b.WriteString(dimStyle.Render(m.path) + "\n\n")

	if m.showHelp {
		writeHelp(&b)
		m.writeFooter(&b)
		return b.String()
	}

	switch {
	case m.loadErr != nil:
		b.WriteString(errStyle.Render("Error loading ledger:") + "\n")
		b.WriteString("  " + m.loadErr.Error() + "\n\n")
	case m.data == nil:
		b.WriteString("Loading...\n\n")
	case m.data.missing:
		b.WriteString("No ledger yet. Add a task to create it.\n\n")
	default:
		m.writeHeader(&b)
		m.writeNext(&b)
		m.writeSections(&b)
	}
	m.writeFooter(&b)
	return b.String()
}

func (m *boardModel) refresh() {
	m.loadedAt = time.Now()
	if _, err := os.Stat(m.path); errors.Is(err, fs.ErrNotExist) {
		m.loadErr = nil
		m.data = &boardData{missing: true}
		return
	}
	l, err := ledger.Load(m.path)
	if err != nil {
		m.loadErr = err
		m.data = nil
		return
	}
	m.loadErr = nil
	m.data = buildBoardData(l)
}

func buildBoardData(l *ledger.Ledger) *boardData {
	data := &boardData{
		stats:  l.Stats(),
		groups: make(map[ledger.Status][]*ledger.Task, len(ledger.Statuses)),
	}
	for _, task := range l.Tasks {
		if status := task.Status(); status.IsCanonical() {
			data.groups[status] = append(data.groups[status], task)
		} else {
			data.other = append(data.other, task)
		}
	}
	if next, ok := l.Next(); ok {
		data.next = next
	}
	return data
}

func (m *boardModel) writeHeader(b *strings.Builder) {
	s := m.data.stats
	fmt.Fprintf(b, "%s %d   %s %d/%d (%d%%)\n",
		headingStyle.Render("Iteration"), s.Iteration,
		progressBar(s.Ratio(), progressWidth), s.Completed, s.Total, s.Progress)

	parts := make([]string, 0, len(ledger.Statuses)+1)
	for _, status := range ledger.Statuses {
		parts = append(parts, statusStyles[status].Render(fmt.Sprintf("%s: %d", status, s.Count(status))))
	}
	if s.Other > 0 {
		parts = append(parts, fmt.Sprintf("other: %d", s.Other))
	}
	b.WriteString("  " + strings.Join(parts, "  ") + "\n\n")

	if m.filter != "" {
		fmt.Fprintf(b, "Filter: %s (0 to clear)\n\n", m.filter)
	}
}

func (m *boardModel) writeNext(b *strings.Builder) {
	b.WriteString(headingStyle.Render("Next Task") + "\n")
	if m.data.next == nil {
		b.WriteString("  No pending tasks\n\n")
		return
	}
	b.WriteString(m.formatTask(m.data.next) + "\n\n")
}

func (m *boardModel) writeSections(b *strings.Builder) {
	for _, status := range ledger.Statuses {
		if m.filter != "" && status != m.filter {
			continue
		}
		tasks := m.data.groups[status]
		heading := fmt.Sprintf("%s (%d)", status, len(tasks))
		b.WriteString(statusStyles[status].Bold(true).Render(heading) + "\n")
		if len(tasks) == 0 {
			b.WriteString(dimStyle.Render("  none") + "\n")
		}
		for _, task := range tasks {
			b.WriteString(m.formatTask(task) + "\n")
		}
		b.WriteString("\n")
	}
	if m.filter == "" && len(m.data.other) > 0 {
		b.WriteString(headingStyle.Render(fmt.Sprintf("other (%d)", len(m.data.other))) + "\n")
		for _, task := range m.data.other {
			b.WriteString(m.formatTask(task) + dimStyle.Render(" ["+string(task.Status())+"]") + "\n")
		}
		b.WriteString("\n")
	}
}

func (m *boardModel) writeFooter(b *strings.Builder) {
	status := fmt.Sprintf("refreshing every %s", m.tickInterval)
	if m.events != nil {
		status = "watching for changes"
	}
	if m.watchErr != nil {
		status += " (watch unavailable)"
	}
	if !m.loadedAt.IsZero() {
		status += " | updated " + m.loadedAt.Format("15:04:05")
	}
	b.WriteString(dimStyle.Render(fmt.Sprintf("Press ? for help | q to quit | %s", status)) + "\n")
}

func (m *boardModel) formatTask(t *ledger.Task) string {
	line := fmt.Sprintf("  %-9s %-3s %s", t.ID(), t.Priority(), t.Title())
	if m.width > 0 && len([]rune(line)) > m.width {
		runes := []rune(line)
		if m.width > 3 {
			line = string(runes[:m.width-3]) + "..."
		} else {
			line = string(runes[:m.width])
		}
	}
	return line
}

func writeHelp(b *strings.Builder) {
	b.WriteString(headingStyle.Render("Keyboard Shortcuts") + "\n\n")
	b.WriteString("  q, ctrl+c    Quit\n")
	b.WriteString("  r, F5        Reload the ledger\n")
	b.WriteString("  h, ?         Toggle this help screen\n")
	for i, status := range ledger.Statuses {
		fmt.Fprintf(b, "  %d            Show only %s\n", i+1, status)
	}
	b.WriteString("  0            Clear filter\n\n")
}

func progressBar(ratio float64, width int) string {
	if ratio < 0 {
		ratio = 0
	}
	if ratio > 1 {
		ratio = 1
	}
	filled := int(ratio*float64(width) + 0.5)
	return "[" + barStyle.Render(strings.Repeat("█", filled)) + dimStyle.Render(strings.Repeat("░", width-filled)) + "]"
}

func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func waitForReload(ch <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		if _, ok := <-ch; !ok {
			return nil
		}
		return reloadMsg{}
	}
}

// IsTTY returns true if w is a terminal.
func IsTTY(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
