package ledger

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/nibzard/agileflow-go/internal/utils"
)

// Init creates an empty ledger at path if no file exists there.
// It reports whether a file was created.
func Init(path string) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return false, fmt.Errorf("stat ledger: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return false, fmt.Errorf("create ledger dir: %w", err)
	}
	if err := New().Save(path); err != nil {
		return false, err
	}
	return true, nil
}

// Load reads and parses the ledger at path, creating an empty one first if
// the file does not exist. Malformed content is reported as
// ErrCorruptDocument and the file is left untouched.
func Load(path string) (*Ledger, error) {
	if _, err := Init(path); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read ledger: %w", err)
	}

	var l Ledger
	if err := json.Unmarshal(data, &l); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrCorruptDocument, path, err)
	}
	return &l, nil
}

// Save writes the ledger to path with 2-space indentation and a trailing
// newline. The document is written to a temporary file in the same directory
// and renamed into place, so readers never see a partial write.
func (l *Ledger) Save(path string) error {
	data, err := json.MarshalIndent(l, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal ledger: %w", err)
	}
	data = append(data, '\n')

	if err := utils.WriteFileAtomic(path, data, 0644); err != nil {
		return fmt.Errorf("write ledger: %w", err)
	}
	return nil
}

// Store runs operations against the ledger file at Path. Each call is one
// load-mutate-save cycle; nothing is cached between calls.
type Store struct {
	Path string
}

// NewStore returns a store for the ledger at path.
func NewStore(path string) *Store {
	return &Store{Path: path}
}

// View loads the ledger and passes it to fn. The ledger is not saved.
func (s *Store) View(fn func(*Ledger) error) error {
	l, err := Load(s.Path)
	if err != nil {
		return err
	}
	return fn(l)
}

// Mutate loads the ledger, applies fn, and saves the result. If fn returns
// an error nothing is written.
func (s *Store) Mutate(fn func(*Ledger) error) error {
	l, err := Load(s.Path)
	if err != nil {
		return err
	}
	if err := fn(l); err != nil {
		return err
	}
	return l.Save(s.Path)
}

// List returns the whole ledger.
func (s *Store) List() (*Ledger, error) {
	return Load(s.Path)
}

// Add resolves candidate into a new task, appends it, and returns it.
func (s *Store) Add(candidate *Task) (*Task, error) {
	if candidate == nil {
		return nil, invalidArgument("add requires a priority and description, a JSON object, or a task file")
	}
	var added *Task
	err := s.Mutate(func(l *Ledger) error {
		var err error
		added, err = l.Add(candidate)
		return err
	})
	if err != nil {
		return nil, err
	}
	return added, nil
}

// Update sets the status of the task with the given id.
func (s *Store) Update(id string, status Status) error {
	if id == "" || status == "" {
		return invalidArgument("update requires a task id and a status")
	}
	return s.Mutate(func(l *Ledger) error {
		return l.SetStatus(id, status)
	})
}

// Next returns the next task to work on; ok is false when no work remains.
func (s *Store) Next() (task *Task, ok bool, err error) {
	err = s.View(func(l *Ledger) error {
		task, ok = l.Next()
		return nil
	})
	return task, ok, err
}

// ByStatus returns the tasks with exactly the given status.
func (s *Store) ByStatus(status Status) ([]*Task, error) {
	if status == "" {
		return nil, invalidArgument("a status is required")
	}
	var tasks []*Task
	err := s.View(func(l *Ledger) error {
		tasks = l.ByStatus(status)
		return nil
	})
	return tasks, err
}

// Get returns the task with the given id.
func (s *Store) Get(id string) (*Task, error) {
	if id == "" {
		return nil, invalidArgument("a task id is required")
	}
	var task *Task
	err := s.View(func(l *Ledger) error {
		var err error
		task, err = l.Get(id)
		return err
	})
	return task, err
}

// GetStatus returns the status of the task with the given id.
func (s *Store) GetStatus(id string) (Status, error) {
	task, err := s.Get(id)
	if err != nil {
		return "", err
	}
	return task.Status(), nil
}

// Stats returns aggregate counts for the ledger.
func (s *Store) Stats() (Stats, error) {
	var stats Stats
	err := s.View(func(l *Ledger) error {
		stats = l.Stats()
		return nil
	})
	return stats, err
}
