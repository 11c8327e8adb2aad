// Package hooks runs the external command configured to follow ledger mutations.
package hooks

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"
)

// Environment variables exported to the hook process.
const (
	EnvTaskID    = "AGILEFLOW_TASK_ID"
	EnvStatus    = "AGILEFLOW_STATUS"
	EnvLedger    = "AGILEFLOW_LEDGER"
	EnvOperation = "AGILEFLOW_OPERATION"
)

// waitDelay bounds how long Wait blocks on output pipes held open by
// grandchildren after the hook is killed.
const waitDelay = 2 * time.Second

// Options describes one hook invocation.
type Options struct {
	// Command is the hook executable, optionally followed by fixed arguments.
	Command string

	TaskID     string
	Status     string
	LedgerPath string
	Operation  string

	// WorkDir defaults to the current directory.
	WorkDir string

	// Stdout and Stderr receive the hook output. Nil discards stdout and
	// captures stderr into the returned error.
	Stdout io.Writer
	Stderr io.Writer
}

// Result reports what happened.
type Result struct {
	Ran      bool
	TaskID   string
	Status   string
	ExitCode int
}

// Invoke runs the hook as
//
//	<command> <task id> <status> <ledger path> <operation>
//
// An empty command is a no-op. A non-zero exit is an error carrying the exit
// code in the result.
func Invoke(ctx context.Context, opts Options) (Result, error) {
	result := Result{TaskID: opts.TaskID, Status: opts.Status}

	argv := strings.Fields(opts.Command)
	if len(argv) == 0 {
		return result, nil
	}
	if opts.TaskID == "" {
		return result, fmt.Errorf("hook: task id is empty")
	}

	args := append(argv[1:], opts.TaskID, opts.Status, opts.LedgerPath, opts.Operation)
	cmd := exec.CommandContext(ctx, argv[0], args...)
	cmd.Dir = opts.WorkDir
	cmd.WaitDelay = waitDelay
	cmd.Env = append(os.Environ(),
		EnvTaskID+"="+opts.TaskID,
		EnvStatus+"="+opts.Status,
		EnvLedger+"="+opts.LedgerPath,
		EnvOperation+"="+opts.Operation,
	)

	var stderr bytes.Buffer
	cmd.Stdout = opts.Stdout
	if opts.Stderr != nil {
		cmd.Stderr = opts.Stderr
	} else {
		cmd.Stderr = &stderr
	}

	if err := cmd.Start(); err != nil {
		return result, fmt.Errorf("hook: start %s: %w", argv[0], err)
	}
	result.Ran = true

	err := cmd.Wait()
	if err == nil {
		return result, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		result.ExitCode = exitErr.ExitCode()
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return result, fmt.Errorf("hook: %w", ctxErr)
	}
	if msg := strings.TrimSpace(stderr.String()); msg != "" {
		return result, fmt.Errorf("hook exited with code %d: %s", result.ExitCode, msg)
	}
	return result, fmt.Errorf("hook exited with code %d", result.ExitCode)
}
