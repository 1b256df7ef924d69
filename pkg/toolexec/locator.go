// Package toolexec locates and runs the external transfer tool.
package toolexec

import (
	"os/exec"
	"strings"

	"github.com/paulschiretz/pgl-snapsync/pkg/util"
)

// Locator maps a tool name to something the process runner can execute.
type Locator interface {
	Resolve(tool string) (string, error)
}

// PathLocator resolves bare names through PATH and checks explicit paths
// for execute permission.
type PathLocator struct {
	// lookPath allows mocking PATH lookups in tests.
	lookPath func(file string) (string, error)
}

var _ Locator = (*PathLocator)(nil)

// NewPathLocator creates a PathLocator backed by exec.LookPath.
func NewPathLocator() *PathLocator {
	return &PathLocator{lookPath: exec.LookPath}
}

// Resolve implements Locator. Failures are returned as *ToolResolutionError.
func (l *PathLocator) Resolve(tool string) (string, error) {
	if strings.TrimSpace(tool) == "" {
		return "", &ToolResolutionError{Tool: tool, Err: exec.ErrNotFound}
	}

	if !strings.ContainsAny(tool, `/\`) && !strings.HasPrefix(tool, "~") {
		resolved, err := l.lookPath(tool)
		if err != nil {
			return "", &ToolResolutionError{Tool: tool, Err: err}
		}
		return resolved, nil
	}

	abs, err := util.AbsPath(tool)
	if err != nil {
		return "", &ToolResolutionError{Tool: tool, Err: err}
	}
	if err := checkExecutable(abs); err != nil {
		return "", &ToolResolutionError{Tool: tool, Err: err}
	}
	return abs, nil
}
