package hook

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/paulschiretz/pgl-snapsync/pkg/hints"
	"github.com/paulschiretz/pgl-snapsync/pkg/plog"
)

var ErrNothingToExecute = hints.New("nothing to execute")
var ErrDisabled = hints.New("hook execution is disabled")

// waitDelay bounds how long a finished hook may keep its output pipes open
// through background children.
const waitDelay = 5 * time.Second

type HookExecutor struct {
	// commandContext allows mocking os/exec for testing hooks.
	commandContext func(ctx context.Context, name string, arg ...string) *exec.Cmd
}

// NewHookExecutor creates a new HookExecutor.
func NewHookExecutor(commandContext func(ctx context.Context, name string, arg ...string) *exec.Cmd) *HookExecutor {
	return &HookExecutor{
		commandContext: commandContext,
	}
}

// RunPreHook runs the pre-sync commands. env is appended to the process
// environment of every command.
func (e *HookExecutor) RunPreHook(ctx context.Context, hookName string, p *Plan, env []string) error {
	if !p.Enabled {
		return ErrDisabled
	}
	if len(p.PreSyncCommands) <= 0 {
		return ErrNothingToExecute
	}

	plog.Info(fmt.Sprintf("Running Pre-%s hook commands", hookName))
	return e.runCommands(ctx, p, p.PreSyncCommands, env)
}

// RunPostHook runs the post-sync commands. env is appended to the process
// environment of every command.
func (e *HookExecutor) RunPostHook(ctx context.Context, hookName string, p *Plan, env []string) error {
	if !p.Enabled {
		return ErrDisabled
	}
	if len(p.PostSyncCommands) <= 0 {
		return ErrNothingToExecute
	}

	plog.Info(fmt.Sprintf("Running Post-%s hook commands", hookName))
	return e.runCommands(ctx, p, p.PostSyncCommands, env)
}

func (e *HookExecutor) runCommands(ctx context.Context, p *Plan, commands []string, env []string) error {
	for _, hookCommand := range commands {

		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if p.DryRun {
			plog.Info("[DRY RUN] Executing command", "command", hookCommand)
			continue
		}
		plog.Info("Executing command", "command", hookCommand)

		cmd := e.createCommand(ctx, hookCommand)
		if len(env) > 0 {
			base := cmd.Env
			if base == nil {
				base = os.Environ()
			}
			cmd.Env = append(base, env...)
		}

		// Pipe output to our logger for visibility
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr

		if err := cmd.Run(); err != nil {
			// Check if the context was canceled, which can cause cmd.Wait() to return an error.
			// If so, we should return the context's error to be more specific.
			if ctx.Err() == context.Canceled {
				return context.Canceled
			}
			if p.FailFast {
				return fmt.Errorf("command '%s' failed: %w", hookCommand, err)
			}
			plog.Warn("Hook command failed", "command", hookCommand, "error", err)
		}
	}
	return nil
}
