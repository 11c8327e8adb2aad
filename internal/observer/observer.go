// Package observer periodically probes the project and its running services
// and files what it finds as requirements through the dashboard API.
package observer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/nibzard/agileflow-go/internal/logging"
	"github.com/nibzard/agileflow-go/internal/parallel"
)

// DefaultInterval is the time between rounds.
const DefaultInterval = 60 * time.Second

const submitTimeout = 10 * time.Second

// Options configures an Observer.
type Options struct {
	APIBase     string
	WebAppURL   string
	WebAppDir   string
	ProjectDir  string
	AIDocsDir   string
	ServerLog   string
	ObserverLog string
	BackendLog  string

	Interval   time.Duration
	Thresholds Thresholds
	// Workers bounds how many checks run at once. Zero runs all together.
	Workers int

	Client *http.Client
	Logger *log.Logger
	// RoundLog receives one record per round when set.
	RoundLog *logging.JSONL
}

// Round is the outcome of one observation pass.
type Round struct {
	RunID        string        `json:"run_id"`
	Started      time.Time     `json:"started"`
	Duration     time.Duration `json:"duration_ns"`
	Observations []Observation `json:"-"`
	Found        int           `json:"found"`
	Submitted    int           `json:"submitted"`
	Duplicates   int           `json:"duplicates"`
	Failed       int           `json:"failed"`
	FailedChecks []string      `json:"failed_checks,omitempty"`
}

// Observer runs checks and submits new observations.
type Observer struct {
	opts       Options
	thresholds Thresholds
	client     *http.Client
	logger     *log.Logger
	seen       *memory
	checks     []Check
}

// New creates an observer with the standard checks.
func New(opts Options) *Observer {
	o := &Observer{
		opts:       opts,
		thresholds: opts.Thresholds,
		client:     opts.Client,
		logger:     opts.Logger,
		seen:       newMemory(MaxRemembered),
	}
	if o.thresholds == (Thresholds{}) {
		o.thresholds = DefaultThresholds()
	}
	if o.client == nil {
		o.client = &http.Client{}
	}
	if o.logger == nil {
		o.logger = logging.Discard()
	}
	if o.opts.Interval <= 0 {
		o.opts.Interval = DefaultInterval
	}
	o.checks = o.Checks()
	return o
}

// Run executes a round immediately and then one per interval until ctx is
// cancelled. A round still running when the next is due is skipped.
func (o *Observer) Run(ctx context.Context) error {
	o.logger.Info("observer started", "interval", o.opts.Interval, "api", o.opts.APIBase)
	o.RunRound(ctx)

	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cronLogger{o.logger})))
	if _, err := c.AddFunc("@every "+o.opts.Interval.String(), func() {
		o.RunRound(ctx)
	}); err != nil {
		return fmt.Errorf("schedule observer: %w", err)
	}
	c.Start()

	<-ctx.Done()
	o.logger.Info("observer stopping")
	<-c.Stop().Done()
	return nil
}

// RunRound runs every check concurrently, then submits the new observations
// in priority order.
func (o *Observer) RunRound(ctx context.Context) Round {
	round := Round{RunID: uuid.NewString(), Started: time.Now()}
	logger := o.logger.With("run", round.RunID[:8])

	pool := parallel.NewPool[[]Observation](ctx, o.opts.Workers, false)
	for _, check := range o.checks {
		pool.Submit(check.Name, check.Run)
	}
	for _, r := range pool.Wait() {
		if r.Err != nil {
			logger.Warn("check failed", "check", r.Name, "err", r.Err)
			round.FailedChecks = append(round.FailedChecks, r.Name)
		}
		round.Observations = append(round.Observations, r.Value...)
	}
	sortByPriority(round.Observations)
	round.Found = len(round.Observations)

	for _, obs := range round.Observations {
		if ctx.Err() != nil {
			break
		}
		if o.seen.Has(obs.Key()) {
			round.Duplicates++
			continue
		}
		if err := o.submit(ctx, obs); err != nil {
			round.Failed++
			logger.Warn("submit failed", "priority", obs.Priority, "title", obs.Title, "err", err)
			continue
		}
		o.seen.Add(obs.Key())
		round.Submitted++
		logger.Info("submitted", "priority", obs.Priority, "title", obs.Title)
	}

	round.Duration = time.Since(round.Started)
	if round.Found == 0 {
		logger.Info("no problems found")
	} else {
		logger.Info("round complete", "found", round.Found, "submitted", round.Submitted, "duplicates", round.Duplicates)
	}
	if o.opts.RoundLog != nil {
		if err := o.opts.RoundLog.Write(round); err != nil {
			logger.Warn("round log write failed", "err", err)
		}
	}
	return round
}

func (o *Observer) submit(ctx context.Context, obs Observation) error {
	body, err := json.Marshal(map[string]string{"requirement": obs.Requirement()})
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, submitTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.opts.APIBase+"/api/requirement", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := o.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if !ok(resp.StatusCode) {
		return fmt.Errorf("status code %d", resp.StatusCode)
	}
	return nil
}

// cronLogger adapts the console logger to cron.Logger.
type cronLogger struct {
	l *log.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...any) {
	c.l.Debug("cron: "+msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...any) {
	c.l.Error("cron: "+msg, append(keysAndValues, "err", err)...)
}
