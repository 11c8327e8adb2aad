package config

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/nibzard/agileflow-go/internal/aidocs"
	"github.com/nibzard/agileflow-go/internal/logging"
)

// Load loads configuration from multiple sources in priority order:
// 1. Defaults
// 2. User config file (~/.agileflow/agileflow.toml or OS-specific config dir)
// 3. Project config file (agileflow.toml or .agileflow.toml in current directory)
// 4. Environment variables
// 5. CLI flags
func Load(fs *flag.FlagSet, args []string) (*Config, error) {
	cws, err := LoadWithSources(fs, args)
	if err != nil {
		return nil, err
	}
	return cws.Config, nil
}

// LoadWithSources loads configuration and tracks the source of each value.
// Returns ConfigWithSources containing the config and a map of field names to their sources.
func LoadWithSources(fs *flag.FlagSet, args []string) (*ConfigWithSources, error) {
	sources := make(map[string]ConfigSource)
	cfg := &Config{}
	var files []string

	// 1. Set defaults (all fields start with default source)
	setDefaults(cfg)
	for _, field := range configFields() {
		sources[field] = SourceDefault
	}

	// 2. Try to load from user config file
	if userConfigFile := findUserConfigFile(); userConfigFile != "" {
		if err := loadConfigFile(cfg, userConfigFile, sources, SourceUserFile); err != nil {
			return nil, fmt.Errorf("loading user config file %s: %w", userConfigFile, err)
		}
		files = append(files, userConfigFile)
	}

	// 3. Try to load from project config file (overrides user config)
	if projectConfigFile := findProjectConfigFile(); projectConfigFile != "" {
		if err := loadConfigFile(cfg, projectConfigFile, sources, SourceProjFile); err != nil {
			return nil, fmt.Errorf("loading project config file %s: %w", projectConfigFile, err)
		}
		files = append(files, projectConfigFile)
	}

	// 4. Override from environment
	if err := loadFromEnv(cfg, sources); err != nil {
		return nil, fmt.Errorf("reading environment: %w", err)
	}

	// 5. Parse CLI flags (they override everything)
	if err := parseFlags(cfg, fs, args, sources); err != nil {
		return nil, fmt.Errorf("parsing flags: %w", err)
	}

	// 6. Compute derived values
	if err := finalizeConfig(cfg); err != nil {
		return nil, fmt.Errorf("finalizing config: %w", err)
	}

	return &ConfigWithSources{
		Config:  cfg,
		Sources: sources,
		Files:   files,
	}, nil
}

// configFields returns the list of configurable field names for source tracking.
// Names match the TOML keys, with nested tables joined by a dot.
func configFields() []string {
	return []string{
		"ai_docs_path",
		"project_root",
		"log_dir",
		"hook_command",
		"log_level",
		"log_format",
		"log_timestamps",
		"log_caller",
		"dashboard.host",
		"dashboard.port",
		"observer.interval_seconds",
		"observer.api_base",
		"observer.webapp_url",
		"observer.webapp_dir",
		"observer.server_log",
		"observer.observer_log",
		"observer.backend_log",
	}
}

// loadConfigFile decodes a TOML file on top of cfg. Only keys present in the
// file are overwritten, and those keys are attributed to source.
func loadConfigFile(cfg *Config, path string, sources map[string]ConfigSource, source ConfigSource) error {
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return err
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, key := range undecoded {
			keys = append(keys, key.String())
		}
		return fmt.Errorf("unknown keys: %s", strings.Join(keys, ", "))
	}
	for _, field := range configFields() {
		if md.IsDefined(strings.Split(field, ".")...) {
			sources[field] = source
		}
	}
	return nil
}

// setDefaults sets default values on the config.
func setDefaults(cfg *Config) {
	cfg.LogDir = DefaultLogDir
	cfg.LogLevel = DefaultLogLevel
	cfg.LogFormat = DefaultLogFormat

	cfg.Dashboard.Host = DefaultHost
	cfg.Dashboard.Port = DefaultPort

	cfg.Observer.IntervalSeconds = DefaultObserveInterval
	cfg.Observer.WebAppURL = DefaultWebAppURL
	cfg.Observer.WebAppDir = DefaultWebAppDir
	cfg.Observer.BackendLog = DefaultBackendLog
}

// finalizeConfig validates values and computes derived paths.
func finalizeConfig(cfg *Config) error {
	cfg.LogLevel = strings.ToLower(strings.TrimSpace(cfg.LogLevel))
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log_level %q (want debug, info, warn or error)", cfg.LogLevel)
	}
	cfg.LogFormat = strings.ToLower(strings.TrimSpace(cfg.LogFormat))
	switch cfg.LogFormat {
	case "text", "json", "logfmt":
	default:
		return fmt.Errorf("invalid log_format %q (want text, json or logfmt)", cfg.LogFormat)
	}
	if cfg.Dashboard.Port < 0 || cfg.Dashboard.Port > 65535 {
		return fmt.Errorf("invalid dashboard port %d", cfg.Dashboard.Port)
	}
	if cfg.Observer.IntervalSeconds <= 0 {
		return fmt.Errorf("invalid observer interval_seconds %d (must be positive)", cfg.Observer.IntervalSeconds)
	}

	cfg.LogDir = expandPath(cfg.LogDir)
	cfg.AIDocsPath = expandPath(cfg.AIDocsPath)

	root := expandPath(cfg.ProjectRoot)
	if root == "" {
		wd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("get working directory: %w", err)
		}
		root = wd
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return fmt.Errorf("resolve project root: %w", err)
	}
	cfg.ProjectRoot = abs
	cfg.LogDir = resolveIn(cfg.ProjectRoot, cfg.LogDir)

	loc, err := aidocs.Resolve(cfg.AIDocsPath, cfg.ProjectRoot)
	if err != nil {
		return err
	}
	cfg.Location = loc

	if cfg.Observer.APIBase == "" {
		cfg.Observer.APIBase = "http://" + cfg.Dashboard.Addr()
	}
	cfg.Observer.APIBase = strings.TrimRight(cfg.Observer.APIBase, "/")
	cfg.Observer.WebAppDir = resolveIn(cfg.ProjectRoot, expandPath(cfg.Observer.WebAppDir))
	cfg.Observer.BackendLog = resolveIn(cfg.ProjectRoot, expandPath(cfg.Observer.BackendLog))
	projectLogDir := logging.ProjectDir(cfg.LogDir, cfg.ProjectRoot)
	if cfg.Observer.ServerLog == "" {
		cfg.Observer.ServerLog = filepath.Join(projectLogDir, "server.log")
	}
	if cfg.Observer.ObserverLog == "" {
		cfg.Observer.ObserverLog = filepath.Join(projectLogDir, "observer.jsonl")
	}
	cfg.Observer.ServerLog = expandPath(cfg.Observer.ServerLog)
	cfg.Observer.ObserverLog = expandPath(cfg.Observer.ObserverLog)
	return nil
}

func resolveIn(base, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}
