// Package cmd implements the CLI command structure for agileflow.
package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/nibzard/agileflow-go/internal/config"
	"github.com/nibzard/agileflow-go/internal/ledger"
	"github.com/nibzard/agileflow-go/internal/logging"
)

// Version is set via ldflags at build time.
var Version = "dev"

// app carries what every command needs.
type app struct {
	cfg     *config.Config
	sources *config.ConfigWithSources
	store   *ledger.Store
	logger  *log.Logger
	stdout  io.Writer
	stderr  io.Writer
}

// Run executes the agileflow CLI.
func Run(ctx context.Context, args []string) error {
	return run(ctx, args, os.Stdout, os.Stderr)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	// Create a flag set for global options
	fs := flag.NewFlagSet("agileflow", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		printUsage(fs, stderr)
	}
	help := fs.Bool("help", false, "Show help")
	fs.BoolVar(help, "h", false, "Show help")
	showVersion := fs.Bool("version", false, "Show version")
	fs.BoolVar(showVersion, "v", false, "Show version")

	// Global flags
	cws, err := config.LoadWithSources(fs, args)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if *help {
		printUsage(fs, stdout)
		return nil
	}
	if *showVersion {
		return versionCommand(stdout)
	}

	cfg := cws.Config
	opts := logging.DefaultOptions()
	opts.Level = cfg.LogLevel
	opts.Format = cfg.LogFormat
	opts.Timestamps = cfg.LogTimestamps
	opts.Caller = cfg.LogCaller

	a := &app{
		cfg:     cfg,
		sources: cws,
		store:   ledger.NewStore(cfg.LedgerPath()),
		logger:  logging.New(stderr, opts),
		stdout:  stdout,
		stderr:  stderr,
	}
	a.logger.Debug("ledger located", "path", cfg.LedgerPath(), "rule", cfg.Location.Rule)

	// Determine the subcommand; "list" is the default
	subcommand := "list"
	remainingArgs := fs.Args()
	if len(remainingArgs) > 0 {
		subcommand = remainingArgs[0]
		remainingArgs = remainingArgs[1:]
	}

	switch subcommand {
	case "list":
		return a.listCommand(remainingArgs)
	case "add":
		return a.addCommand(ctx, remainingArgs)
	case "update":
		return a.updateCommand(ctx, remainingArgs)
	case "get-next":
		return a.getNextCommand(remainingArgs)
	case "get-by-status":
		return a.getByStatusCommand(remainingArgs)
	case "get-detail":
		return a.getDetailCommand(remainingArgs)
	case "get-status":
		return a.getStatusCommand(remainingArgs)
	case "stats":
		return a.statsCommand(remainingArgs)
	case "validate":
		return a.validateCommand(remainingArgs)
	case "req", "requirements":
		return a.reqCommand(remainingArgs)
	case "serve":
		return a.serveCommand(ctx, remainingArgs)
	case "observe":
		return a.observeCommand(ctx, remainingArgs)
	case "board":
		return a.boardCommand(ctx, remainingArgs)
	case "config":
		return a.configCommand(remainingArgs)
	case "version":
		return versionCommand(stdout)
	case "help":
		printUsage(fs, stdout)
		return nil
	default:
		printUsage(fs, stderr)
		return fmt.Errorf("unknown command: %s", subcommand)
	}
}

func versionCommand(w io.Writer) error {
	fmt.Fprintf(w, "agileflow version %s\n", Version)
	return nil
}

func printUsage(fs *flag.FlagSet, w io.Writer) {
	fmt.Fprintln(w, "agileflow - task ledger for an agile development loop")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  agileflow [global options] [command] [args]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Task commands:")
	fmt.Fprintln(w, "  list                      Print the ledger as JSON (default command)")
	fmt.Fprintln(w, "  add <P0-P3> <description> Add a task with a priority and description")
	fmt.Fprintln(w, "  add <task.json|task.yaml> Add a task read from a file")
	fmt.Fprintln(w, "  add '<json object>'       Add a task from inline JSON")
	fmt.Fprintln(w, "  update <id> <status>      Set the status of a task")
	fmt.Fprintln(w, "  get-next                  Print the next task to work on")
	fmt.Fprintln(w, "  get-by-status <status>    Print tasks with a status")
	fmt.Fprintln(w, "  get-detail <id>           Print a task as JSON")
	fmt.Fprintln(w, "  get-status <id>           Print the status of a task")
	fmt.Fprintln(w, "  stats                     Print ledger statistics as JSON")
	fmt.Fprintln(w, "  validate                  Check the ledger shape")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Requirement commands:")
	fmt.Fprintln(w, "  req add <text>            Append a requirement to PRD.md")
	fmt.Fprintln(w, "  req list [-pending]       List requirements")
	fmt.Fprintln(w, "  req convert <text>        Mark a requirement as converted")
	fmt.Fprintln(w, "  req delete <text>         Remove a requirement")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Services:")
	fmt.Fprintln(w, "  serve [-host] [-port]     Run the dashboard API")
	fmt.Fprintln(w, "  observe [-once] [-interval seconds]")
	fmt.Fprintln(w, "                            Run the observer")
	fmt.Fprintln(w, "  board                     Show the live terminal board")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Other:")
	fmt.Fprintln(w, "  config [example]          Show the effective configuration")
	fmt.Fprintln(w, "  version                   Show version information")
	fmt.Fprintln(w, "  help                      Show this help message")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Statuses: "+joinStatuses(ledger.Statuses))
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Global Options:")
	fs.SetOutput(w)
	fs.PrintDefaults()
}

func joinStatuses(statuses []ledger.Status) string {
	parts := make([]string, len(statuses))
	for i, s := range statuses {
		parts[i] = string(s)
	}
	return strings.Join(parts, ", ")
}

// writeJSON prints v with 2-space indentation.
func writeJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

// expectArgs checks the positional argument count for a command.
func expectArgs(args []string, n int, usage string) error {
	if len(args) < n {
		return fmt.Errorf("%w: usage: agileflow %s", ledger.ErrInvalidArgument, usage)
	}
	if len(args) > n {
		return fmt.Errorf("%w: unexpected arguments: %v", ledger.ErrInvalidArgument, args[n:])
	}
	return nil
}

// parseSubFlags parses command flags, treating -h as success.
func parseSubFlags(fs *flag.FlagSet, args []string, stderr io.Writer) (bool, error) {
	fs.SetOutput(stderr)
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return true, nil
		}
		return false, err
	}
	return false, nil
}
