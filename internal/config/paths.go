package config

import (
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
)

var windowsEnvRef = regexp.MustCompile(`%([^%]+)%`)

// expandPath expands environment variables and a leading ~ in p.
// On Windows %VAR% references are expanded too; unknown ones are kept.
func expandPath(p string) string {
	if p == "" {
		return p
	}

	p = os.ExpandEnv(p)
	if runtime.GOOS == "windows" {
		p = windowsEnvRef.ReplaceAllStringFunc(p, func(ref string) string {
			if v, ok := os.LookupEnv(strings.Trim(ref, "%")); ok {
				return v
			}
			return ref
		})
	}

	if p != "~" && !strings.HasPrefix(p, "~/") && !strings.HasPrefix(p, `~\`) {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	if p == "~" {
		return home
	}
	return filepath.Join(home, p[2:])
}
