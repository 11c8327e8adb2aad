// Package aidocs provides constants and discovery for the ai-docs directory.
package aidocs

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	// Dir is the name of the directory holding the ledger and its documents.
	Dir = "ai-docs"

	// LedgerFile is the task ledger file name (inside ai-docs).
	LedgerFile = "TASKS.json"

	// RequirementsFile is the requirement pool file name (inside ai-docs).
	RequirementsFile = "PRD.md"

	// PlanFile is the iteration plan file name (inside ai-docs).
	PlanFile = "PLAN.md"

	// vcsMarker marks a version-control root.
	vcsMarker = ".git"
)

// Rule identifies which discovery rule produced a Location.
type Rule string

const (
	RuleOverride    Rule = "override"
	RuleVCSExisting Rule = "vcs root"
	RuleAncestor    Rule = "ancestor"
	RuleVCSFallback Rule = "vcs root (new)"
	RuleWorkingDir  Rule = "working directory"
)

// Location is a resolved ai-docs directory and the files derived from it.
type Location struct {
	Dir  string
	Rule Rule
}

// LedgerPath returns the full path to TASKS.json.
func (l Location) LedgerPath() string {
	return filepath.Join(l.Dir, LedgerFile)
}

// RequirementsPath returns the full path to PRD.md.
func (l Location) RequirementsPath() string {
	return filepath.Join(l.Dir, RequirementsFile)
}

// PlanPath returns the full path to PLAN.md.
func (l Location) PlanPath() string {
	return filepath.Join(l.Dir, PlanFile)
}

// ProjectDir returns the directory containing ai-docs.
func (l Location) ProjectDir() string {
	return filepath.Dir(l.Dir)
}

// Resolve locates the ai-docs directory. In order of precedence:
//  1. override, when non-empty
//  2. <vcs root>/ai-docs, when it exists
//  3. the nearest ancestor of startDir containing ai-docs
//  4. <vcs root>/ai-docs, even if it does not exist yet
//  5. startDir/ai-docs
//
// Relative paths are resolved against the process working directory.
func Resolve(override, startDir string) (Location, error) {
	if override != "" {
		abs, err := filepath.Abs(override)
		if err != nil {
			return Location{}, fmt.Errorf("resolve ai-docs override: %w", err)
		}
		return Location{Dir: abs, Rule: RuleOverride}, nil
	}

	if startDir == "" {
		startDir = "."
	}
	start, err := filepath.Abs(startDir)
	if err != nil {
		return Location{}, fmt.Errorf("resolve start directory: %w", err)
	}

	vcsRoot := FindVCSRoot(start)
	if vcsRoot != "" && isDir(filepath.Join(vcsRoot, Dir)) {
		return Location{Dir: filepath.Join(vcsRoot, Dir), Rule: RuleVCSExisting}, nil
	}

	if dir := findAncestorWith(start, Dir); dir != "" {
		return Location{Dir: filepath.Join(dir, Dir), Rule: RuleAncestor}, nil
	}

	if vcsRoot != "" {
		return Location{Dir: filepath.Join(vcsRoot, Dir), Rule: RuleVCSFallback}, nil
	}

	return Location{Dir: filepath.Join(start, Dir), Rule: RuleWorkingDir}, nil
}

// FindVCSRoot returns the nearest ancestor of dir (inclusive) containing a
// .git entry, or "" if there is none. A .git file (worktrees, submodules)
// counts as well as a directory.
func FindVCSRoot(dir string) string {
	for cur := dir; ; {
		if _, err := os.Stat(filepath.Join(cur, vcsMarker)); err == nil {
			return cur
		}
		parent := filepath.Dir(cur)
		if parent == cur {
			return ""
		}
		cur = parent
	}
}

func findAncestorWith(dir, name string) string {
	for cur := dir; ; {
		if isDir(filepath.Join(cur, name)) {
			return cur
		}
		parent := filepath.Dir(cur)
		if parent == cur {
			return ""
		}
		cur = parent
	}
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
