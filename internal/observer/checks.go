package observer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/nibzard/agileflow-go/internal/aidocs"
	"github.com/nibzard/agileflow-go/internal/ledger"
	"github.com/nibzard/agileflow-go/internal/logging"
)

// Thresholds configures when checks report. Zero values are replaced by
// DefaultThresholds.
type Thresholds struct {
	WebAppTimeout    time.Duration
	WebAppSlow       time.Duration
	WebAppVerySlow   time.Duration
	HealthTimeout    time.Duration
	HealthSlow       time.Duration
	DashboardTimeout time.Duration
	DashboardSlow    time.Duration

	ConsoleErrors int
	ConsoleWarns  int
	ScanDepth     int

	ServerLogErrors   int
	ServerLogWarns    int
	ObserverLogErrors int
	BackendTailLines  int
	BackendErrors     int

	PendingBacklog int
	BugBacklog     int
	InProgressMax  int
	SlowProgress   float64
	SlowProgressOn int
}

// DefaultThresholds returns the standard limits.
func DefaultThresholds() Thresholds {
	return Thresholds{
		WebAppTimeout:    5 * time.Second,
		WebAppSlow:       1000 * time.Millisecond,
		WebAppVerySlow:   2000 * time.Millisecond,
		HealthTimeout:    3 * time.Second,
		HealthSlow:       500 * time.Millisecond,
		DashboardTimeout: 5 * time.Second,
		DashboardSlow:    1000 * time.Millisecond,

		ConsoleErrors: 10,
		ConsoleWarns:  20,
		ScanDepth:     5,

		ServerLogErrors:   5,
		ServerLogWarns:    10,
		ObserverLogErrors: 3,
		BackendTailLines:  50,
		BackendErrors:     3,

		PendingBacklog: 15,
		BugBacklog:     5,
		InProgressMax:  3,
		SlowProgress:   30,
		SlowProgressOn: 10,
	}
}

// RequiredDocs must exist in the ai-docs directory.
var RequiredDocs = []string{"API.md", "ACCEPTANCE.md", "CONTEXT.md"}

var frontendExts = map[string]bool{".vue": true, ".ts": true, ".js": true}

// Check is one named probe.
type Check struct {
	Name string
	Run  func(ctx context.Context) ([]Observation, error)
}

// Checks returns the standard probe set.
func (o *Observer) Checks() []Check {
	return []Check{
		{Name: "webapp", Run: o.checkWebApp},
		{Name: "api", Run: o.checkAPI},
		{Name: "logs", Run: o.checkLogs},
		{Name: "code-quality", Run: o.checkCodeQuality},
		{Name: "project", Run: o.checkProject},
	}
}

func (o *Observer) checkWebApp(ctx context.Context) ([]Observation, error) {
	t := o.thresholds
	elapsed, _, err := o.probe(ctx, http.MethodHead, o.opts.WebAppURL, t.WebAppTimeout)
	if err != nil {
		if isTimeout(err) {
			return []Observation{{TypeAvailability, ledger.PriorityP0, "Web app timed out",
				fmt.Sprintf("no response within %s", t.WebAppTimeout)}}, nil
		}
		return []Observation{{TypeAvailability, ledger.PriorityP1, "Web app is not running",
			fmt.Sprintf("cannot reach %s", o.opts.WebAppURL)}}, nil
	}

	var obs []Observation
	switch {
	case elapsed > t.WebAppVerySlow:
		obs = append(obs, Observation{TypePerformance, ledger.PriorityP1, "Web app responds slowly",
			fmt.Sprintf("home page took %dms", elapsed.Milliseconds())})
	case elapsed > t.WebAppSlow:
		obs = append(obs, Observation{TypePerformance, ledger.PriorityP2, "Web app response could be faster",
			fmt.Sprintf("home page took %dms", elapsed.Milliseconds())})
	}

	consoleErrors, consoleWarns, err := countConsoleCalls(filepath.Join(o.opts.WebAppDir, "src"), t.ScanDepth)
	if err != nil {
		return obs, err
	}
	if consoleErrors > t.ConsoleErrors {
		obs = append(obs, Observation{TypeCodeQuality, ledger.PriorityP1, "Frontend has many console.error calls",
			fmt.Sprintf("found %d", consoleErrors)})
	}
	if consoleWarns > t.ConsoleWarns {
		obs = append(obs, Observation{TypeCodeQuality, ledger.PriorityP2, "Frontend has many console.warn calls",
			fmt.Sprintf("found %d", consoleWarns)})
	}
	return obs, nil
}

func (o *Observer) checkAPI(ctx context.Context) ([]Observation, error) {
	t := o.thresholds
	var obs []Observation

	elapsed, status, err := o.probe(ctx, http.MethodGet, o.opts.APIBase+"/health", t.HealthTimeout)
	if err != nil {
		if isTimeout(err) {
			return []Observation{{TypeAvailability, ledger.PriorityP0, "API timed out", "the API did not respond in time"}}, nil
		}
		return []Observation{{TypeAvailability, ledger.PriorityP0, "API is unavailable", err.Error()}}, nil
	}
	if !ok(status) {
		obs = append(obs, Observation{TypeAvailability, ledger.PriorityP0, "Dashboard API is unhealthy",
			fmt.Sprintf("status code %d", status)})
	}
	if elapsed > t.HealthSlow {
		obs = append(obs, Observation{TypePerformance, ledger.PriorityP2, "API responds slowly",
			fmt.Sprintf("%dms", elapsed.Milliseconds())})
	}

	elapsed, status, err = o.probe(ctx, http.MethodGet, o.opts.APIBase+"/api/dashboard", t.DashboardTimeout)
	if err != nil {
		if isTimeout(err) {
			return append(obs, Observation{TypeAvailability, ledger.PriorityP0, "API timed out", "the API did not respond in time"}), nil
		}
		return append(obs, Observation{TypeAvailability, ledger.PriorityP0, "API is unavailable", err.Error()}), nil
	}
	if !ok(status) {
		obs = append(obs, Observation{TypeAvailability, ledger.PriorityP1, "Dashboard data endpoint is failing",
			fmt.Sprintf("status code %d", status)})
	}
	if elapsed > t.DashboardSlow {
		obs = append(obs, Observation{TypePerformance, ledger.PriorityP2, "Dashboard data loads slowly",
			fmt.Sprintf("%dms", elapsed.Milliseconds())})
	}
	return obs, nil
}

func (o *Observer) checkLogs(ctx context.Context) ([]Observation, error) {
	t := o.thresholds
	var obs []Observation

	if content, found, err := readOptional(o.opts.ServerLog); err != nil {
		return nil, err
	} else if found {
		lower := strings.ToLower(content)
		if n := strings.Count(lower, "error"); n > t.ServerLogErrors {
			obs = append(obs, Observation{TypeStability, ledger.PriorityP1, "Server log reports errors",
				fmt.Sprintf("%d errors", n)})
		}
		if n := strings.Count(lower, "warn"); n > t.ServerLogWarns {
			obs = append(obs, Observation{TypeStability, ledger.PriorityP2, "Server log reports warnings",
				fmt.Sprintf("%d warnings", n)})
		}
	}

	if content, found, err := readOptional(o.opts.ObserverLog); err != nil {
		return nil, err
	} else if found {
		if n := strings.Count(strings.ToLower(content), "error"); n > t.ObserverLogErrors {
			obs = append(obs, Observation{TypeStability, ledger.PriorityP2, "Observer log reports errors",
				fmt.Sprintf("%d errors", n)})
		}
	}

	if o.opts.BackendLog != "" {
		lines, err := logging.TailLines(o.opts.BackendLog, t.BackendTailLines)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
		recent := 0
		for _, line := range lines {
			if strings.Contains(strings.ToLower(line), "error") {
				recent++
			}
		}
		if recent > t.BackendErrors {
			obs = append(obs, Observation{TypeStability, ledger.PriorityP0, "Backend log reports errors",
				fmt.Sprintf("%d errors in the last %d lines", recent, t.BackendTailLines)})
		}
	}
	return obs, nil
}

type packageJSON struct {
	Dependencies    map[string]any `json:"dependencies"`
	DevDependencies map[string]any `json:"devDependencies"`
}

func (o *Observer) checkCodeQuality(ctx context.Context) ([]Observation, error) {
	var obs []Observation

	if data, found, err := readOptional(filepath.Join(o.opts.WebAppDir, "package.json")); err != nil {
		return nil, err
	} else if found {
		var pkg packageJSON
		if err := json.Unmarshal([]byte(data), &pkg); err != nil {
			return nil, fmt.Errorf("parse package.json: %w", err)
		}
		_, devLint := pkg.DevDependencies["eslint"]
		_, depLint := pkg.Dependencies["eslint"]
		if !devLint && !depLint {
			obs = append(obs, Observation{TypeCodeQuality, ledger.PriorityP2, "Frontend has no ESLint",
				"consider adding ESLint"})
		}
		hasTests := false
		for _, name := range []string{"vitest", "jest", "@vue/test-utils"} {
			if _, found := pkg.DevDependencies[name]; found {
				hasTests = true
			}
		}
		if !hasTests {
			obs = append(obs, Observation{TypeTesting, ledger.PriorityP1, "Frontend has no test framework",
				"consider adding Vitest or Jest"})
		}
	}

	if content, found, err := readOptional(filepath.Join(o.opts.ProjectDir, "pyproject.toml")); err != nil {
		return nil, err
	} else if found {
		if !strings.Contains(content, "pytest") {
			obs = append(obs, Observation{TypeTesting, ledger.PriorityP1, "Backend has no pytest",
				"consider adding pytest"})
		}
		if !strings.Contains(content, "ruff") {
			obs = append(obs, Observation{TypeCodeQuality, ledger.PriorityP2, "Backend has no linter",
				"consider adding ruff"})
		}
	}
	return obs, nil
}

func (o *Observer) checkProject(ctx context.Context) ([]Observation, error) {
	t := o.thresholds
	var obs []Observation

	ledgerPath := filepath.Join(o.opts.AIDocsDir, aidocs.LedgerFile)
	if _, err := os.Stat(ledgerPath); err == nil {
		stats, err := ledger.NewStore(ledgerPath).Stats()
		if err != nil {
			return nil, err
		}
		if n := stats.Count(ledger.StatusPending); n > t.PendingBacklog {
			obs = append(obs, Observation{TypeProcess, ledger.PriorityP1, "Pending backlog is piling up",
				fmt.Sprintf("%d pending", n)})
		}
		if n := stats.Count(ledger.StatusBug); n > t.BugBacklog {
			obs = append(obs, Observation{TypeQuality, ledger.PriorityP0, "Bug backlog is piling up",
				fmt.Sprintf("%d bugs", n)})
		}
		if n := stats.Count(ledger.StatusInProgress); n > t.InProgressMax {
			obs = append(obs, Observation{TypeProcess, ledger.PriorityP2, "Too many tasks in progress",
				fmt.Sprintf("%d in progress", n)})
		}
		if pct := stats.Ratio() * 100; pct < t.SlowProgress && stats.Total > t.SlowProgressOn {
			obs = append(obs, Observation{TypeProcess, ledger.PriorityP2, "Project progress is slow",
				fmt.Sprintf("%.1f%% complete", pct)})
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	for _, doc := range RequiredDocs {
		if _, err := os.Stat(filepath.Join(o.opts.AIDocsDir, doc)); errors.Is(err, fs.ErrNotExist) {
			obs = append(obs, Observation{TypeDocumentation, ledger.PriorityP2, "Missing document " + doc,
				"not found in the ai-docs directory"})
		}
	}
	return obs, nil
}

// probe issues a request with its own timeout and reports elapsed time and
// status code.
func (o *Observer) probe(ctx context.Context, method, url string, timeout time.Duration) (time.Duration, int, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return 0, 0, err
	}
	start := time.Now()
	resp, err := o.client.Do(req)
	if err != nil {
		return 0, 0, err
	}
	resp.Body.Close()
	return time.Since(start), resp.StatusCode, nil
}

// countConsoleCalls counts console.error and console.warn in frontend sources
// under root, descending at most maxDepth directories and skipping
// node_modules. A missing root counts nothing.
func countConsoleCalls(root string, maxDepth int) (errs, warns int, err error) {
	if _, statErr := os.Stat(root); errors.Is(statErr, fs.ErrNotExist) {
		return 0, 0, nil
	}
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			if path == root {
				return walkErr
			}
			return nil
		}
		if d.IsDir() {
			if path == root {
				return nil
			}
			if d.Name() == "node_modules" || depth(root, path) > maxDepth {
				return filepath.SkipDir
			}
			return nil
		}
		if !frontendExts[filepath.Ext(path)] {
			return nil
		}
		data, readErr := os.ReadFile(path)
		if readErr != nil {
			return nil
		}
		errs += strings.Count(string(data), "console.error")
		warns += strings.Count(string(data), "console.warn")
		return nil
	})
	return errs, warns, err
}

func depth(root, path string) int {
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == "." {
		return 0
	}
	return len(strings.Split(rel, string(filepath.Separator)))
}

func readOptional(path string) (string, bool, error) {
	if path == "" {
		return "", false, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return string(data), true, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func ok(status int) bool {
	return status >= 200 && status < 300
}
