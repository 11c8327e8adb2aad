package ledger

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound reports a task id that does not exist in the ledger.
	ErrNotFound = errors.New("task not found")

	// ErrInvalidArgument reports missing or malformed operation input.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrCorruptDocument reports a ledger file that exists but cannot be parsed.
	ErrCorruptDocument = errors.New("corrupt ledger document")
)

// ValidationError represents a validation error with context.
type ValidationError struct {
	Path string // JSON path to the error location
	Err  error  // Underlying error
}

func (e *ValidationError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s", e.Path, e.Err)
	}
	return e.Err.Error()
}

// Unwrap returns the underlying error.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

func notFound(id string) error {
	return fmt.Errorf("%w: %s", ErrNotFound, id)
}

func invalidArgument(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}
