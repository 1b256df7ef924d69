package cmd

import (
	"fmt"
	"os/exec"

	"github.com/paulschiretz/pgl-snapsync/pkg/config"
	"github.com/paulschiretz/pgl-snapsync/pkg/engine"
	"github.com/paulschiretz/pgl-snapsync/pkg/flagparse"
	"github.com/paulschiretz/pgl-snapsync/pkg/hook"
	"github.com/paulschiretz/pgl-snapsync/pkg/pathretention"
	"github.com/paulschiretz/pgl-snapsync/pkg/plog"
	"github.com/paulschiretz/pgl-snapsync/pkg/snapshot"
	"github.com/paulschiretz/pgl-snapsync/pkg/toolexec"
)

// loadRunConfig loads the config file, merges the flag values over it,
// validates the result and applies the logging settings.
func loadRunConfig(command flagparse.Command, flagMap map[string]any) (config.Config, error) {
	configPath, _ := flagMap["config"].(string)

	loadedConfig, err := config.Load(configPath)
	if err != nil {
		return config.Config{}, fmt.Errorf("failed to load configuration: %w", err)
	}

	// Merge the flag values over the loaded config.
	runConfig := config.MergeConfigWithFlags(command, loadedConfig, flagMap)

	// CRITICAL: Validate the config for the run
	if err := runConfig.Validate(); err != nil {
		return config.Config{}, err
	}

	// Validate has already rejected unknown levels.
	level, _ := plog.LevelFromString(runConfig.LogLevel)
	plog.SetLevel(level)
	plog.SetQuiet(runConfig.Runtime.Quiet)
	if err := plog.SetLogFile(runConfig.LogFile); err != nil {
		return config.Config{}, fmt.Errorf("failed to open log file: %w", err)
	}

	runConfig.LogSummary()
	return runConfig, nil
}

// newRunner wires the runner with the process based leaf workers.
func newRunner(runConfig config.Config) *engine.Runner {
	quiet := runConfig.Runtime.Quiet
	newExecutor := func(shell bool) toolexec.Runner {
		r := toolexec.NewProcessRunner(exec.CommandContext, shell)
		if quiet {
			r.SetOutput(nil)
		}
		return r
	}

	return engine.NewRunner(
		toolexec.NewPathLocator(),
		newExecutor,
		pathretention.NewPathRetainer(),
		hook.NewHookExecutor(exec.CommandContext),
		snapshot.SystemClock{},
	)
}
