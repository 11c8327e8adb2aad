package config

import (
	"fmt"
	"time"

	"github.com/nibzard/agileflow-go/internal/aidocs"
)

// ConfigSource represents where a configuration value came from.
type ConfigSource string

const (
	SourceDefault  ConfigSource = "default"
	SourceUserFile ConfigSource = "user file"
	SourceProjFile ConfigSource = "project file"
	SourceEnv      ConfigSource = "environment"
	SourceFlag     ConfigSource = "flag"
)

// ConfigWithSources holds configuration along with source information for each field.
type ConfigWithSources struct {
	Config  *Config
	Sources map[string]ConfigSource
	Files   []string
}

// Default values.
const (
	DefaultLogDir          = "~/.agileflow/logs"
	DefaultLogLevel        = "info"
	DefaultLogFormat       = "text"
	DefaultHost            = "127.0.0.1"
	DefaultPort            = 3737
	DefaultObserveInterval = 60
	DefaultWebAppURL       = "http://localhost:5173"
	DefaultWebAppDir       = "webapp-vue"
	DefaultBackendLog      = "logs/app.log"
)

// Config holds the full configuration for agileflow.
type Config struct {
	// Paths
	AIDocsPath  string `toml:"ai_docs_path"`
	ProjectRoot string `toml:"project_root"`
	LogDir      string `toml:"log_dir"`

	// Hook run after each ledger mutation
	HookCommand string `toml:"hook_command"`

	// Logging configuration
	LogLevel      string `toml:"log_level"`
	LogFormat     string `toml:"log_format"`
	LogTimestamps bool   `toml:"log_timestamps"`
	LogCaller     bool   `toml:"log_caller"`

	Dashboard DashboardConfig `toml:"dashboard"`
	Observer  ObserverConfig  `toml:"observer"`

	// Resolved ai-docs location (computed)
	Location aidocs.Location `toml:"-"`
}

// DashboardConfig configures the HTTP dashboard.
type DashboardConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// Addr returns host:port.
func (d DashboardConfig) Addr() string {
	return fmt.Sprintf("%s:%d", d.Host, d.Port)
}

// ObserverConfig configures the observer.
type ObserverConfig struct {
	IntervalSeconds int    `toml:"interval_seconds"`
	APIBase         string `toml:"api_base"`
	WebAppURL       string `toml:"webapp_url"`
	WebAppDir       string `toml:"webapp_dir"`
	ServerLog       string `toml:"server_log"`
	ObserverLog     string `toml:"observer_log"`
	BackendLog      string `toml:"backend_log"`
}

// Interval returns the observation interval.
func (o ObserverConfig) Interval() time.Duration {
	if o.IntervalSeconds <= 0 {
		return DefaultObserveInterval * time.Second
	}
	return time.Duration(o.IntervalSeconds) * time.Second
}

// LedgerPath returns the resolved TASKS.json path.
func (c *Config) LedgerPath() string {
	return c.Location.LedgerPath()
}

// RequirementsPath returns the resolved PRD.md path.
func (c *Config) RequirementsPath() string {
	return c.Location.RequirementsPath()
}
