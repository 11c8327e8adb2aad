package dashboard

import (
	"html"

	"github.com/nibzard/agileflow-go/internal/ledger"
)

// Entry is a task as shown on the board. Text fields are HTML-escaped.
type Entry struct {
	ID          string `json:"id"`
	Priority    string `json:"priority"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Summary is the /api/dashboard payload.
type Summary struct {
	Iteration  int                   `json:"iteration"`
	Total      int                   `json:"total"`
	Completed  int                   `json:"completed"`
	Progress   int                   `json:"progress"`
	Counts     map[ledger.Status]int `json:"counts"`
	Other      int                   `json:"other"`
	Pending    []Entry               `json:"pending"`
	InProgress []Entry               `json:"inProgress"`
	Testing    []Entry               `json:"testing"`
	Tested     []Entry               `json:"tested"`
	Bug        []Entry               `json:"bug"`
	Done       []Entry               `json:"completed"`
}

// Summarize groups the ledger's tasks by canonical status, in ledger order.
// Tasks with other statuses are only counted.
func Summarize(l *ledger.Ledger) Summary {
	stats := l.Stats()
	s := Summary{
		Iteration:  stats.Iteration,
		Total:      stats.Total,
		Completed:  stats.Completed,
		Progress:   stats.Progress,
		Counts:     stats.Counts,
		Other:      stats.Other,
		Pending:    []Entry{},
		InProgress: []Entry{},
		Testing:    []Entry{},
		Tested:     []Entry{},
		Bug:        []Entry{},
		Done:       []Entry{},
	}
	for _, task := range l.Tasks {
		bucket := s.bucket(task.Status())
		if bucket == nil {
			continue
		}
		*bucket = append(*bucket, newEntry(task))
	}
	return s
}

func (s *Summary) bucket(status ledger.Status) *[]Entry {
	switch status {
	case ledger.StatusPending:
		return &s.Pending
	case ledger.StatusInProgress:
		return &s.InProgress
	case ledger.StatusTesting:
		return &s.Testing
	case ledger.StatusTested:
		return &s.Tested
	case ledger.StatusBug:
		return &s.Bug
	case ledger.StatusCompleted:
		return &s.Done
	}
	return nil
}

func newEntry(task *ledger.Task) Entry {
	return Entry{
		ID:          html.EscapeString(task.ID()),
		Priority:    html.EscapeString(string(task.Priority())),
		Title:       html.EscapeString(task.Title()),
		Description: html.EscapeString(task.String(ledger.FieldDescription)),
	}
}
