package config

import (
	"flag"
)

// flagToSource maps flag names to the config fields they set.
var flagToSource = map[string]string{
	"ai-docs":        "ai_docs_path",
	"project-root":   "project_root",
	"log-dir":        "log_dir",
	"hook":           "hook_command",
	"log-level":      "log_level",
	"log-format":     "log_format",
	"log-timestamps": "log_timestamps",
	"log-caller":     "log_caller",
	"api":            "observer.api_base",
	"webapp-url":     "observer.webapp_url",
}

// parseFlags defines the global CLI flags on fs, parses args and records
// explicitly set flags in sources. Remaining arguments are left in fs.Args().
func parseFlags(cfg *Config, fs *flag.FlagSet, args []string, sources map[string]ConfigSource) error {
	if fs == nil {
		fs = flag.NewFlagSet("agileflow", flag.ContinueOnError)
	}

	// Paths
	fs.StringVar(&cfg.AIDocsPath, "ai-docs", cfg.AIDocsPath, "ai-docs directory (overrides discovery)")
	fs.StringVar(&cfg.ProjectRoot, "project-root", cfg.ProjectRoot, "Project root used for discovery")
	fs.StringVar(&cfg.LogDir, "log-dir", cfg.LogDir, "Log directory")

	// Hook
	fs.StringVar(&cfg.HookCommand, "hook", cfg.HookCommand, "Command run after add and update")

	// Logging
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level (debug, info, warn, error)")
	fs.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "Log format (text, json, logfmt)")
	fs.BoolVar(&cfg.LogTimestamps, "log-timestamps", cfg.LogTimestamps, "Include timestamps in log output")
	fs.BoolVar(&cfg.LogCaller, "log-caller", cfg.LogCaller, "Include caller location in log output")

	// Observer endpoints
	fs.StringVar(&cfg.Observer.APIBase, "api", cfg.Observer.APIBase, "Dashboard API base URL used by the observer")
	fs.StringVar(&cfg.Observer.WebAppURL, "webapp-url", cfg.Observer.WebAppURL, "Web app URL probed by the observer")

	if err := fs.Parse(args); err != nil {
		return err
	}

	fs.Visit(func(f *flag.Flag) {
		if field, ok := flagToSource[f.Name]; ok {
			sources[field] = SourceFlag
		}
	})
	return nil
}
