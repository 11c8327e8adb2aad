package cmd

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net"
	"strconv"
	"time"

	"github.com/nibzard/agileflow-go/internal/dashboard"
	"github.com/nibzard/agileflow-go/internal/logging"
	"github.com/nibzard/agileflow-go/internal/observer"
	"github.com/nibzard/agileflow-go/internal/requirements"
	"github.com/nibzard/agileflow-go/internal/ui"
)

// serveCommand runs the dashboard API until interrupted. Log output is also
// appended to the server log so the observer can inspect it.
func (a *app) serveCommand(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("agileflow serve", flag.ContinueOnError)
	host := fs.String("host", a.cfg.Dashboard.Host, "Listen host")
	port := fs.Int("port", a.cfg.Dashboard.Port, "Listen port")
	if done, err := parseSubFlags(fs, args, a.stderr); done || err != nil {
		return err
	}
	if fs.NArg() > 0 {
		return fmt.Errorf("unexpected arguments: %v", fs.Args())
	}

	logFile, err := logging.OpenAppend(a.cfg.Observer.ServerLog)
	if err != nil {
		return err
	}
	defer logFile.Close()
	logger := a.logger.With()
	logger.SetOutput(io.MultiWriter(a.stderr, logFile))

	srv := dashboard.New(dashboard.Options{
		Store:        a.store,
		Requirements: requirements.NewPool(a.cfg.RequirementsPath()),
		Logger:       logger,
		Version:      Version,
	})
	addr := net.JoinHostPort(*host, strconv.Itoa(*port))
	logger.Info("starting dashboard", "addr", addr, "ledger", a.store.Path, "log", logFile.Name())
	return srv.ListenAndServe(ctx, addr)
}

// observeCommand runs the observer on a schedule, or a single round with
// -once.
func (a *app) observeCommand(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("agileflow observe", flag.ContinueOnError)
	once := fs.Bool("once", false, "Run a single round and exit")
	interval := fs.Int("interval", a.cfg.Observer.IntervalSeconds, "Seconds between rounds")
	if done, err := parseSubFlags(fs, args, a.stderr); done || err != nil {
		return err
	}
	if fs.NArg() > 0 {
		return fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	if *interval <= 0 {
		return fmt.Errorf("interval must be positive, got %d", *interval)
	}

	roundLog, err := logging.OpenJSONL(a.cfg.Observer.ObserverLog)
	if err != nil {
		return err
	}
	defer roundLog.Close()

	obs := observer.New(observer.Options{
		APIBase:     a.cfg.Observer.APIBase,
		WebAppURL:   a.cfg.Observer.WebAppURL,
		WebAppDir:   a.cfg.Observer.WebAppDir,
		ProjectDir:  a.cfg.ProjectRoot,
		AIDocsDir:   a.cfg.Location.Dir,
		ServerLog:   a.cfg.Observer.ServerLog,
		ObserverLog: a.cfg.Observer.ObserverLog,
		BackendLog:  a.cfg.Observer.BackendLog,
		Interval:    time.Duration(*interval) * time.Second,
		Logger:      a.logger,
		RoundLog:    roundLog,
	})

	if *once {
		round := obs.RunRound(ctx)
		for _, o := range round.Observations {
			fmt.Fprintf(a.stdout, "%s [%s] %s\n", o.Priority, o.Type, o.Title)
		}
		fmt.Fprintf(a.stdout, "Found %d, submitted %d, duplicates %d, failed %d\n",
			round.Found, round.Submitted, round.Duplicates, round.Failed)
		return nil
	}
	return obs.Run(ctx)
}

func (a *app) boardCommand(ctx context.Context, args []string) error {
	if err := expectArgs(args, 0, "board"); err != nil {
		return err
	}
	return ui.RunBoard(ctx, a.store.Path)
}
