package cmd

import (
	"flag"
	"fmt"
	"strings"

	"github.com/nibzard/agileflow-go/internal/ledger"
	"github.com/nibzard/agileflow-go/internal/requirements"
)

const reqUsage = "req add|list|convert|delete [text]"

func (a *app) reqCommand(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: usage: agileflow %s", ledger.ErrInvalidArgument, reqUsage)
	}
	pool := requirements.NewPool(a.cfg.RequirementsPath())
	action, rest := args[0], args[1:]

	switch action {
	case "list", "ls":
		return a.reqListCommand(pool, rest)
	case "add":
		req, err := pool.Append(strings.Join(rest, " "))
		if err != nil {
			return err
		}
		fmt.Fprintf(a.stdout, "Added requirement %s\n", req.Timestamp)
		return nil
	case "convert":
		if err := pool.MarkConverted(strings.Join(rest, " ")); err != nil {
			return err
		}
		fmt.Fprintln(a.stdout, "Requirement marked as converted")
		return nil
	case "delete", "rm":
		if err := pool.Delete(strings.Join(rest, " ")); err != nil {
			return err
		}
		fmt.Fprintln(a.stdout, "Requirement deleted")
		return nil
	default:
		return fmt.Errorf("%w: unknown req action %q (usage: agileflow %s)", ledger.ErrInvalidArgument, action, reqUsage)
	}
}

func (a *app) reqListCommand(pool *requirements.Pool, args []string) error {
	fs := flag.NewFlagSet("agileflow req list", flag.ContinueOnError)
	pendingOnly := fs.Bool("pending", false, "Only show requirements not yet converted")
	asJSON := fs.Bool("json", false, "Print as JSON")
	if done, err := parseSubFlags(fs, args, a.stderr); done || err != nil {
		return err
	}

	var (
		reqs []requirements.Requirement
		err  error
	)
	if *pendingOnly {
		reqs, err = pool.Pending()
	} else {
		reqs, err = pool.List()
	}
	if err != nil {
		return err
	}

	if *asJSON {
		if reqs == nil {
			reqs = []requirements.Requirement{}
		}
		return writeJSON(a.stdout, reqs)
	}
	if len(reqs) == 0 {
		fmt.Fprintln(a.stdout, "No requirements")
		return nil
	}
	for _, r := range reqs {
		state := "pending"
		if r.Converted {
			state = "converted"
		}
		first, _, _ := strings.Cut(r.Text, "\n")
		fmt.Fprintf(a.stdout, "%s  %-9s  %s\n", r.Timestamp, state, first)
	}
	return nil
}
