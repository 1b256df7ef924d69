// Package preflight provides read-only checks that run before a transfer
// begins. They give friendlier errors than letting the tool or os.MkdirAll
// fail halfway through a run, and they never change the filesystem.
package preflight

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// CheckBaseAccessible verifies that basePath can hold the destination.
//
// The checks include:
//  1. On Windows, verifies that the drive or network share (e.g., "Z:", "\\Server\Share") exists.
//  2. If the base path exists, confirms it is a directory.
//  3. If it does not exist, confirms the deepest existing ancestor is a
//     directory, so that all missing segments can be created.
func CheckBaseAccessible(basePath string) error {
	// --- 1. Check if the Volume/Drive exists, windows only ---
	if err := checkVolumeExists(basePath); err != nil {
		return err
	}

	// --- 2. Check existence and type ---
	info, err := os.Stat(basePath)
	if err == nil {
		if !info.IsDir() {
			return fmt.Errorf("base path exists but is not a directory: %s", basePath)
		}
		return nil
	}
	if !os.IsNotExist(err) {
		return fmt.Errorf("cannot access base path: %w", err)
	}

	// --- 3. Find the Deepest Existing Ancestor ---
	ancestor := basePath
	for {
		parent := filepath.Dir(ancestor)
		if parent == ancestor {
			return fmt.Errorf("no existing ancestor found for base path: %s", basePath)
		}
		ancestor = parent

		info, err := os.Stat(ancestor)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return fmt.Errorf("cannot access ancestor directory %s: %w", ancestor, err)
		}
		if !info.IsDir() {
			return fmt.Errorf("cannot create base path %s: %s is not a directory", basePath, ancestor)
		}
		return nil
	}
}

// CheckPathNesting rejects a base path that equals or lies inside one of the
// sources. The tool would otherwise copy its own output on every run.
// All paths must be absolute and cleaned.
func CheckPathNesting(basePath string, sources []string) error {
	for _, src := range sources {
		if isWithin(basePath, src) {
			return fmt.Errorf("base path %s is inside source %s", basePath, src)
		}
	}
	return nil
}

// isWithin reports whether path equals dir or is below it.
func isWithin(path, dir string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}
