package cmd

import (
	"fmt"
	"sort"

	"github.com/BurntSushi/toml"

	"github.com/nibzard/agileflow-go/internal/config"
)

// configCommand prints the effective configuration with the source of each
// value, or an example file with "config example".
func (a *app) configCommand(args []string) error {
	if len(args) > 0 {
		switch args[0] {
		case "example":
			fmt.Fprint(a.stdout, config.ExampleConfig())
			return nil
		default:
			return fmt.Errorf("unknown config action: %s", args[0])
		}
	}

	fmt.Fprintln(a.stdout, "# Effective configuration")
	if len(a.sources.Files) == 0 {
		fmt.Fprintln(a.stdout, "# No config files found")
	}
	for _, f := range a.sources.Files {
		fmt.Fprintf(a.stdout, "# Loaded: %s\n", f)
	}
	fmt.Fprintf(a.stdout, "# ai-docs: %s (%s)\n", a.cfg.Location.Dir, a.cfg.Location.Rule)
	fmt.Fprintln(a.stdout)

	if err := toml.NewEncoder(a.stdout).Encode(a.cfg); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	keys := make([]string, 0, len(a.sources.Sources))
	for k, src := range a.sources.Sources {
		if src != config.SourceDefault {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		return nil
	}
	sort.Strings(keys)
	fmt.Fprintln(a.stdout)
	fmt.Fprintln(a.stdout, "# Overrides")
	for _, k := range keys {
		fmt.Fprintf(a.stdout, "# %s: %s\n", k, a.sources.Sources[k])
	}
	return nil
}
