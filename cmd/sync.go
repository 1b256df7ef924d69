package cmd

import (
	"context"
	"time"

	"github.com/paulschiretz/pgl-snapsync/pkg/buildinfo"
	"github.com/paulschiretz/pgl-snapsync/pkg/flagparse"
	"github.com/paulschiretz/pgl-snapsync/pkg/planner"
	"github.com/paulschiretz/pgl-snapsync/pkg/plog"
)

// RunSync handles the logic for the sync command.
func RunSync(ctx context.Context, flagMap map[string]any) error {
	runConfig, err := loadRunConfig(flagparse.Sync, flagMap)
	if err != nil {
		return err
	}

	// Create the runner and feed it with our leaf workers
	runner := newRunner(runConfig)

	// Get the Plan
	runPlan, err := planner.GenerateRunPlan(runConfig)
	if err != nil {
		return err
	}

	// Execute the plan
	startTime := time.Now()
	_, err = runner.ExecuteJobs(ctx, runPlan)
	duration := time.Since(startTime).Round(time.Millisecond)
	if err != nil {
		return err
	}
	plog.Info(buildinfo.Name+" sync finished successfully.", "jobs", len(runPlan.Jobs), "duration", duration)
	return nil
}
