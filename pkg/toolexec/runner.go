package toolexec

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"sync"

	"github.com/paulschiretz/pgl-snapsync/pkg/transfer"
)

// Result is the outcome of a finished tool run.
type Result struct {
	ExitCode int
	Output   string // combined stdout and stderr
}

// Runner executes an invocation and blocks until it exits.
type Runner interface {
	Run(ctx context.Context, inv transfer.Invocation) (Result, error)
}

// ProcessRunner runs invocations as child processes.
type ProcessRunner struct {
	// commandContext allows mocking os/exec for testing.
	commandContext func(ctx context.Context, name string, arg ...string) *exec.Cmd
	shell          bool
	output         io.Writer
}

var _ Runner = (*ProcessRunner)(nil)

// NewProcessRunner creates a runner. When shell is true the invocation is
// passed to the platform shell as one command line; otherwise the program is
// started directly with its argument list. Tool output is echoed to stdout.
func NewProcessRunner(commandContext func(ctx context.Context, name string, arg ...string) *exec.Cmd, shell bool) *ProcessRunner {
	return &ProcessRunner{
		commandContext: commandContext,
		shell:          shell,
		output:         os.Stdout,
	}
}

// SetOutput redirects the live tool output. A nil writer silences it; the
// combined output is still captured in the Result.
func (r *ProcessRunner) SetOutput(w io.Writer) {
	r.output = w
}

// lockedBuffer serialises writes from the stdout and stderr copiers.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// Run implements Runner. A non-success exit status is returned as
// *ExecutionError. Cancellation returns the context's error.
func (r *ProcessRunner) Run(ctx context.Context, inv transfer.Invocation) (Result, error) {
	cmd := r.createCommand(ctx, inv)

	var captured lockedBuffer
	var w io.Writer = &captured
	if r.output != nil {
		w = io.MultiWriter(&captured, r.output)
	}
	cmd.Stdout = w
	cmd.Stderr = w

	err := cmd.Run()
	res := Result{ExitCode: 0, Output: captured.String()}
	if err == nil {
		return res, nil
	}

	// Check if the context was canceled, which can cause cmd.Wait() to return an error.
	// If so, we should return the context's error to be more specific.
	if ctxErr := ctx.Err(); ctxErr != nil {
		res.ExitCode = -1
		return res, ctxErr
	}

	if exitErr, ok := errors.AsType[*exec.ExitError](err); ok {
		res.ExitCode = exitErr.ExitCode()
		if inv.IsSuccess(res.ExitCode) {
			return res, nil
		}
		return res, &ExecutionError{Command: inv.String(), ExitCode: res.ExitCode, Output: res.Output}
	}

	res.ExitCode = -1
	return res, &ExecutionError{Command: inv.String(), ExitCode: -1, Output: res.Output, Err: err}
}
