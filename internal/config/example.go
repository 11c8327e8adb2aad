package config

// ExampleConfig returns an example configuration showing all available options.
func ExampleConfig() string {
	return `# agileflow configuration file
# Values can be overridden by environment variables or CLI flags

# ai-docs directory holding TASKS.json and PRD.md.
# When unset it is discovered from the project root (AI_DOCS_PATH overrides).
# ai_docs_path = "./ai-docs"

# Project root used for discovery (CLAUDE_PROJECT_ROOT overrides)
# project_root = "."

# Log directory (supports ~ expansion and %VAR% on Windows)
log_dir = "~/.agileflow/logs"

# Command run after each add or update:
#   <hook_command> <task id> <status> <ledger path> <operation>
# hook_command = "/path/to/hook.sh"

# Logging
log_level = "info"      # debug, info, warn, error
log_format = "text"     # text, json, logfmt
log_timestamps = false
log_caller = false

[dashboard]
host = "127.0.0.1"
port = 3737

[observer]
interval_seconds = 60
# api_base defaults to the dashboard address
# api_base = "http://127.0.0.1:3737"
webapp_url = "http://localhost:5173"
webapp_dir = "webapp-vue"
# server_log and observer_log default to a per-project directory under log_dir
# server_log = "~/.agileflow/logs/myproject-1a2b3c4d/server.log"
# observer_log = "~/.agileflow/logs/myproject-1a2b3c4d/observer.jsonl"
backend_log = "logs/app.log"
`
}
