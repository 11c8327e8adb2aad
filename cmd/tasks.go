package cmd

import (
	"context"
	"fmt"

	"github.com/nibzard/agileflow-go/internal/hooks"
	"github.com/nibzard/agileflow-go/internal/ledger"
)

func (a *app) listCommand(args []string) error {
	if err := expectArgs(args, 0, "list"); err != nil {
		return err
	}
	l, err := a.store.List()
	if err != nil {
		return err
	}
	return writeJSON(a.stdout, l)
}

func (a *app) addCommand(ctx context.Context, args []string) error {
	candidate, err := ledger.ResolveAddArgs(args)
	if err != nil {
		return err
	}
	task, err := a.store.Add(candidate)
	if err != nil {
		return err
	}
	a.logger.Debug("task added", "task", task.ID(), "priority", task.Priority())
	fmt.Fprintln(a.stdout, task.ID())
	return a.runHook(ctx, task.ID(), string(task.Status()), "add")
}

func (a *app) updateCommand(ctx context.Context, args []string) error {
	if err := expectArgs(args, 2, "update <id> <status>"); err != nil {
		return err
	}
	id, status := args[0], ledger.Status(args[1])
	if err := a.store.Update(id, status); err != nil {
		return err
	}
	if !status.IsCanonical() {
		a.logger.Warn("status is not one of the lifecycle statuses", "task", id, "status", status)
	}
	fmt.Fprintf(a.stdout, "Updated %s to %s\n", id, status)
	return a.runHook(ctx, id, string(status), "update")
}

func (a *app) getNextCommand(args []string) error {
	if err := expectArgs(args, 0, "get-next"); err != nil {
		return err
	}
	task, ok, err := a.store.Next()
	if err != nil {
		return err
	}
	if !ok {
		fmt.Fprintln(a.stdout, "No pending tasks")
		return nil
	}
	fmt.Fprintln(a.stdout, formatTaskLine(task))
	return nil
}

func (a *app) getByStatusCommand(args []string) error {
	if err := expectArgs(args, 1, "get-by-status <status>"); err != nil {
		return err
	}
	tasks, err := a.store.ByStatus(ledger.Status(args[0]))
	if err != nil {
		return err
	}
	for _, task := range tasks {
		fmt.Fprintln(a.stdout, formatTaskLine(task))
	}
	return nil
}

func (a *app) getDetailCommand(args []string) error {
	if err := expectArgs(args, 1, "get-detail <id>"); err != nil {
		return err
	}
	task, err := a.store.Get(args[0])
	if err != nil {
		return err
	}
	return writeJSON(a.stdout, task)
}

func (a *app) getStatusCommand(args []string) error {
	if err := expectArgs(args, 1, "get-status <id>"); err != nil {
		return err
	}
	status, err := a.store.GetStatus(args[0])
	if err != nil {
		return err
	}
	fmt.Fprintln(a.stdout, status)
	return nil
}

func (a *app) statsCommand(args []string) error {
	if err := expectArgs(args, 0, "stats"); err != nil {
		return err
	}
	stats, err := a.store.Stats()
	if err != nil {
		return err
	}
	return writeJSON(a.stdout, stats)
}

func (a *app) validateCommand(args []string) error {
	if err := expectArgs(args, 0, "validate"); err != nil {
		return err
	}
	l, err := a.store.List()
	if err != nil {
		return err
	}
	result := l.Validate()
	for _, w := range result.Warnings {
		fmt.Fprintf(a.stdout, "warning: %s\n", w)
	}
	if result.Valid {
		fmt.Fprintf(a.stdout, "Valid: %s (%d tasks)\n", a.store.Path, len(l.Tasks))
		return nil
	}
	fmt.Fprintf(a.stdout, "Invalid: %s\n", a.store.Path)
	for _, e := range result.Errors {
		fmt.Fprintf(a.stdout, "  - %v\n", e)
	}
	return fmt.Errorf("ledger has %d problem(s)", len(result.Errors))
}

// runHook runs the configured hook after a successful mutation. Hook output
// goes to stderr so stdout carries only the command result.
func (a *app) runHook(ctx context.Context, taskID, status, operation string) error {
	if a.cfg.HookCommand == "" {
		return nil
	}
	result, err := hooks.Invoke(ctx, hooks.Options{
		Command:    a.cfg.HookCommand,
		TaskID:     taskID,
		Status:     status,
		LedgerPath: a.store.Path,
		Operation:  operation,
		WorkDir:    a.cfg.ProjectRoot,
		Stdout:     a.stderr,
	})
	if err != nil {
		return fmt.Errorf("hook after %s: %w", operation, err)
	}
	a.logger.Debug("hook finished", "task", result.TaskID, "exit", result.ExitCode)
	return nil
}

// formatTaskLine renders a task as id|priority|title.
func formatTaskLine(t *ledger.Task) string {
	return fmt.Sprintf("%s|%s|%s", t.ID(), t.Priority(), t.Title())
}
