package chart

import (
	"fmt"
	"path/filepath"
	"strings"
)

// validatePathWithin ensures path is inside root and returns its absolute form.
func validatePathWithin(path, root string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("path cannot be empty")
	}

	absPath, err := filepath.Abs(filepath.Clean(path))
	if err != nil {
		return "", fmt.Errorf("invalid path: %w", err)
	}
	absRoot, err := filepath.Abs(filepath.Clean(root))
	if err != nil {
		return "", fmt.Errorf("invalid root: %w", err)
	}

	rel, err := filepath.Rel(absRoot, absPath)
	if err != nil {
		return "", fmt.Errorf("path outside chart directory: %s", absPath)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path outside chart directory: %s (dir: %s)", absPath, absRoot)
	}
	return absPath, nil
}

// hasParentTraversal reports whether a path contains a parent directory segment.
func hasParentTraversal(cleanPath string) bool {
	if cleanPath == ".." {
		return true
	}
	for _, part := range strings.Split(cleanPath, string(filepath.Separator)) {
		if part == ".." {
			return true
		}
	}
	return false
}
