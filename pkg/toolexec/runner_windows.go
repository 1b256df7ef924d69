//go:build windows

package toolexec

import (
	"context"
	"os/exec"

	"golang.org/x/sys/windows"

	"github.com/paulschiretz/pgl-snapsync/pkg/transfer"
)

// createCommand creates an exec.Cmd for an invocation on Windows.
func (r *ProcessRunner) createCommand(ctx context.Context, inv transfer.Invocation) *exec.Cmd {
	var cmd *exec.Cmd
	if r.shell {
		cmd = r.commandContext(ctx, "cmd", "/C", inv.String())
	} else {
		cmd = r.commandContext(ctx, inv.Program(), inv.Args()...)
	}
	// On Windows, create a new process group to ensure that when the context is
	// canceled, the entire process tree is terminated, not just the parent.
	cmd.SysProcAttr = &windows.SysProcAttr{CreationFlags: windows.CREATE_NEW_PROCESS_GROUP}
	return cmd
}
