package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

type ResolvedPaths struct {
	ProjectRoot  string
	SourceRoot   string
	OutputDir    string
	DevOutputDir string
	Manifest     string
	HistoryPath  string
}

// OutputRoot returns the directory the active mode writes into.
func (p ResolvedPaths) OutputRoot(mode Mode) string {
	if mode == ModeDevelopment {
		return p.DevOutputDir
	}
	return p.OutputDir
}

func ResolvePaths(cfg *Config, cwd string) (ResolvedPaths, error) {
	if strings.TrimSpace(cwd) == "" {
		return ResolvedPaths{}, fmt.Errorf("cwd must not be empty")
	}

	projectRoot := strings.TrimSpace(cfg.Paths.ProjectRoot)
	if projectRoot != "" {
		projectRoot = ResolveRelative(cwd, projectRoot)
	} else {
		root, err := DetectProjectRoot([]string{cwd})
		if err != nil {
			return ResolvedPaths{}, err
		}
		projectRoot = root
	}

	resolved := ResolvedPaths{
		ProjectRoot:  filepath.Clean(projectRoot),
		SourceRoot:   ResolveRelative(projectRoot, cfg.Paths.SourceRoot),
		OutputDir:    ResolveRelative(projectRoot, cfg.Paths.OutputDir),
		DevOutputDir: ResolveRelative(projectRoot, cfg.Paths.DevOutputDir),
		Manifest:     ResolveRelative(projectRoot, cfg.Package.Manifest),
		HistoryPath:  ResolveRelative(projectRoot, cfg.History.Path),
	}
	if within(resolved.SourceRoot, resolved.OutputDir) || within(resolved.SourceRoot, resolved.DevOutputDir) {
		return ResolvedPaths{}, fmt.Errorf("output directories must not live inside the source root %q", resolved.SourceRoot)
	}
	return resolved, nil
}

func ResolveRelative(base, value string) string {
	raw := strings.TrimSpace(value)
	if raw == "" {
		return filepath.Clean(base)
	}
	if filepath.IsAbs(raw) {
		return filepath.Clean(raw)
	}
	return filepath.Clean(filepath.Join(base, raw))
}

func within(parent, child string) bool {
	rel, err := filepath.Rel(parent, child)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

// DetectProjectRoot walks up from each candidate until a directory holding one
// of the project markers is found, falling back to the working directory.
func DetectProjectRoot(candidates []string) (string, error) {
	markers := []string{
		"libpack.toml",
		"package.json",
		".git",
	}

	for _, candidate := range candidates {
		if strings.TrimSpace(candidate) == "" {
			continue
		}

		abs, err := filepath.Abs(candidate)
		if err != nil {
			continue
		}
		root := abs
		if info, err := os.Stat(abs); err == nil && !info.IsDir() {
			root = filepath.Dir(abs)
		}

		for {
			for _, marker := range markers {
				if _, err := os.Stat(filepath.Join(root, marker)); err == nil {
					return filepath.Clean(root), nil
				}
			}
			parent := filepath.Dir(root)
			if parent == root {
				break
			}
			root = parent
		}
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return filepath.Clean(cwd), nil
}
