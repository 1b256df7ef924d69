package toolexec

import (
	"fmt"
	"strings"
)

// ToolResolutionError is returned when the transfer tool cannot be located.
type ToolResolutionError struct {
	Tool string
	Err  error
}

func (e *ToolResolutionError) Error() string {
	return fmt.Sprintf("transfer tool %q could not be located: %v", e.Tool, e.Err)
}

func (e *ToolResolutionError) Unwrap() error { return e.Err }

// ExecutionError is returned when the transfer tool ran but did not succeed.
// ExitCode is -1 when the process could not be started or did not exit normally.
type ExecutionError struct {
	Command  string
	ExitCode int
	Output   string
	Err      error
}

func (e *ExecutionError) Error() string {
	msg := fmt.Sprintf("command %q failed with exit status %d", e.Command, e.ExitCode)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if tail := lastLine(e.Output); tail != "" {
		msg += " (" + tail + ")"
	}
	return msg
}

func (e *ExecutionError) Unwrap() error { return e.Err }

func lastLine(s string) string {
	s = strings.TrimRight(s, "\r\n")
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	return strings.TrimSpace(s)
}
