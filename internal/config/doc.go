// Package config handles configuration loading and defaults.
//
// Configuration is loaded from multiple sources in priority order:
// 1. Built-in defaults
// 2. User config file (~/.agileflow/agileflow.toml or OS-specific config directory)
// 3. Project config file (agileflow.toml or .agileflow.toml in the working directory)
// 4. Environment variables (AI_DOCS_PATH, CLAUDE_PROJECT_ROOT, AGILEFLOW_*, ...)
// 5. CLI flags
//
// Each level overrides the previous one, so CLI flags take precedence.
//
// User-level config locations:
// - ~/.agileflow/agileflow.toml (preferred)
// - Windows: %APPDATA%\agileflow\agileflow.toml
// - macOS: ~/Library/Application Support/agileflow/agileflow.toml
// - Linux/BSD: $XDG_CONFIG_HOME/agileflow/agileflow.toml or ~/.config/agileflow/agileflow.toml
//
// After loading, the ai-docs directory is resolved with aidocs.Resolve using
// ai_docs_path as the override and the project root as the starting point.
package config
