//go:build !windows

package toolexec

import (
	"context"
	"os/exec"

	"golang.org/x/sys/unix"

	"github.com/paulschiretz/pgl-snapsync/pkg/transfer"
)

// createCommand creates an exec.Cmd for an invocation on Unix-like systems.
func (r *ProcessRunner) createCommand(ctx context.Context, inv transfer.Invocation) *exec.Cmd {
	var cmd *exec.Cmd
	if r.shell {
		cmd = r.commandContext(ctx, "/bin/sh", "-c", inv.String())
	} else {
		cmd = r.commandContext(ctx, inv.Program(), inv.Args()...)
	}
	// Run the tool in its own process group so cancellation can signal the
	// whole tree (rsync forks a receiver and a generator).
	cmd.SysProcAttr = &unix.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		if cmd.Process == nil {
			return nil
		}
		return unix.Kill(-cmd.Process.Pid, unix.SIGTERM)
	}
	return cmd
}
