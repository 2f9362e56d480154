package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// projectMarkers are directories that indicate a project root.
var projectMarkers = []string{".git", ProjectConfigDir}

// Resolve returns the paths with relative entries joined to basePath.
// An empty basePath means the current working directory.
func (p PathsConfig) Resolve(basePath string) (PathsConfig, error) {
	if basePath == "" {
		var err error
		basePath, err = os.Getwd()
		if err != nil {
			return p, fmt.Errorf("get working directory: %w", err)
		}
	}

	resolve := func(path string) string {
		if filepath.IsAbs(path) {
			return path
		}
		return filepath.Join(basePath, path)
	}

	return PathsConfig{
		Log:      resolve(p.Log),
		Activity: resolve(p.Activity),
		State:    resolve(p.State),
	}, nil
}

// FindProjectRoot walks up from startDir to the nearest directory holding
// a .git or .mindmesh directory. Without a marker it returns startDir made
// absolute.
func FindProjectRoot(startDir string) string {
	if startDir == "" {
		var err error
		startDir, err = os.Getwd()
		if err != nil {
			return "."
		}
	}

	absDir, err := filepath.Abs(startDir)
	if err != nil {
		return startDir
	}

	dir := absDir
	for {
		for _, marker := range projectMarkers {
			if info, err := os.Stat(filepath.Join(dir, marker)); err == nil && info.IsDir() {
				return dir
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return absDir
		}
		dir = parent
	}
}
