package config

import (
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/golobby/cast"
)

// Environment variable names.
const (
	EnvAIDocsPath      = "AI_DOCS_PATH"
	EnvProjectRoot     = "CLAUDE_PROJECT_ROOT"
	EnvLogDir          = "AGILEFLOW_LOG_DIR"
	EnvLogLevel        = "AGILEFLOW_LOG_LEVEL"
	EnvLogFormat       = "AGILEFLOW_LOG_FORMAT"
	EnvLogTimestamps   = "AGILEFLOW_LOG_TIMESTAMPS"
	EnvLogCaller       = "AGILEFLOW_LOG_CALLER"
	EnvHook            = "AGILEFLOW_HOOK"
	EnvHost            = "AGILEFLOW_HOST"
	EnvPort            = "AGILEFLOW_PORT"
	EnvDashboardAPI    = "DASHBOARD_API"
	EnvWebAppURL       = "WEBAPP_URL"
	EnvObserveInterval = "AGILEFLOW_OBSERVE_INTERVAL"
)

// loadFromEnv overrides config from environment variables and updates source
// tracking. Empty variables are ignored.
func loadFromEnv(cfg *Config, sources map[string]ConfigSource) error {
	str := func(env, field string, target *string) {
		if v := os.Getenv(env); v != "" {
			*target = v
			sources[field] = SourceEnv
		}
	}
	str(EnvAIDocsPath, "ai_docs_path", &cfg.AIDocsPath)
	str(EnvProjectRoot, "project_root", &cfg.ProjectRoot)
	str(EnvLogDir, "log_dir", &cfg.LogDir)
	str(EnvLogLevel, "log_level", &cfg.LogLevel)
	str(EnvLogFormat, "log_format", &cfg.LogFormat)
	str(EnvHook, "hook_command", &cfg.HookCommand)
	str(EnvHost, "dashboard.host", &cfg.Dashboard.Host)
	str(EnvDashboardAPI, "observer.api_base", &cfg.Observer.APIBase)
	str(EnvWebAppURL, "observer.webapp_url", &cfg.Observer.WebAppURL)

	if set, err := intFromEnv(EnvPort, "port", &cfg.Dashboard.Port); err != nil {
		return err
	} else if set {
		sources["dashboard.port"] = SourceEnv
	}
	if set, err := intFromEnv(EnvObserveInterval, "interval", &cfg.Observer.IntervalSeconds); err != nil {
		return err
	} else if set {
		sources["observer.interval_seconds"] = SourceEnv
	}
	if v := os.Getenv(EnvLogTimestamps); v != "" {
		cfg.LogTimestamps = boolFromString(v)
		sources["log_timestamps"] = SourceEnv
	}
	if v := os.Getenv(EnvLogCaller); v != "" {
		cfg.LogCaller = boolFromString(v)
		sources["log_caller"] = SourceEnv
	}
	return nil
}

// intFromEnv converts an integer variable into target and reports whether
// it was set.
func intFromEnv(env, what string, target *int) (bool, error) {
	v := strings.TrimSpace(os.Getenv(env))
	if v == "" {
		return false, nil
	}
	converted, err := cast.FromType(v, reflect.TypeOf(*target))
	if err != nil {
		return false, fmt.Errorf("%s: invalid %s %q", env, what, v)
	}
	*target = int(reflect.ValueOf(converted).Int())
	return true, nil
}

// boolFromString parses common truthy values. Anything else is false.
func boolFromString(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}
