package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/paulschiretz/pgl-snapsync/pkg/buildinfo"
	"github.com/paulschiretz/pgl-snapsync/pkg/flagparse"
	"github.com/paulschiretz/pgl-snapsync/pkg/planner"
	"github.com/paulschiretz/pgl-snapsync/pkg/plog"
)

// RunPrune handles the logic for the prune command.
func RunPrune(ctx context.Context, flagMap map[string]any) error {
	runConfig, err := loadRunConfig(flagparse.Prune, flagMap)
	if err != nil {
		return err
	}

	// Get the Plan
	prunePlan, err := planner.GeneratePrunePlan(runConfig)
	if err != nil {
		return err
	}

	enabled := 0
	for _, job := range prunePlan.Jobs {
		if job.Retention.Enabled {
			enabled++
		}
	}
	if enabled == 0 {
		plog.Info("No snapshot job has a retention count configured. Nothing to prune.")
		return nil
	}

	if !runConfig.Runtime.DryRun && !runConfig.Runtime.Force {
		fmt.Printf("This operation will permanently delete outdated snapshots based on the configured retention policy:\n")
		for _, job := range prunePlan.Jobs {
			if !job.Retention.Enabled {
				continue
			}
			name := job.Name
			if name == "" {
				name = "(unnamed)"
			}
			fmt.Printf("  %-12s keep the newest %d snapshots in %s\n", name, job.Retention.Keep, job.BasePath)
		}

		if !PromptForConfirmation("Are you sure you want to continue?", false) {
			plog.Info(buildinfo.Name + " prune operation canceled.")
			return nil
		}
	}

	// Create the runner and feed it with our leaf workers
	runner := newRunner(runConfig)

	// Execute the plan
	startTime := time.Now()
	_, err = runner.ExecutePrune(ctx, prunePlan)
	duration := time.Since(startTime).Round(time.Millisecond)
	if err != nil {
		return err
	}
	plog.Info(buildinfo.Name+" prune finished successfully.", "duration", duration)
	return nil
}
