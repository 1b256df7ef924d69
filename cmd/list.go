package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/paulschiretz/pgl-snapsync/pkg/buildinfo"
	"github.com/paulschiretz/pgl-snapsync/pkg/engine"
	"github.com/paulschiretz/pgl-snapsync/pkg/flagparse"
	"github.com/paulschiretz/pgl-snapsync/pkg/planner"
	"github.com/paulschiretz/pgl-snapsync/pkg/plog"
)

// RunList handles the logic for the list command.
func RunList(ctx context.Context, flagMap map[string]any) error {
	sortOrder := planner.Desc
	if s, ok := flagMap["sort"].(string); ok {
		var err error
		if sortOrder, err = planner.ParseSortOrder(s); err != nil {
			return err
		}
	}

	runConfig, err := loadRunConfig(flagparse.List, flagMap)
	if err != nil {
		return err
	}

	// Create the runner and feed it with our leaf workers
	runner := newRunner(runConfig)

	// Get the Plan
	listPlan, err := planner.GenerateListPlan(runConfig, sortOrder)
	if err != nil {
		return err
	}
	if len(listPlan.Jobs) == 0 {
		plog.Info("No snapshot jobs configured. Nothing to list.")
		return nil
	}

	// Execute the plan
	startTime := time.Now()
	listings, err := runner.ExecuteList(ctx, listPlan)
	duration := time.Since(startTime).Round(time.Millisecond)
	if err != nil {
		return err
	}
	printListings(os.Stdout, listings)
	plog.Info(buildinfo.Name+" list finished successfully.", "duration", duration)
	return nil
}

// printListings writes one block per job. The snapshot the next run would
// hard-link against is marked.
func printListings(w io.Writer, listings []engine.Listing) {
	for i, l := range listings {
		if i > 0 {
			fmt.Fprintln(w)
		}
		name := l.Name
		if name == "" {
			name = "(unnamed)"
		}
		fmt.Fprintf(w, "Job %s: %s (%d snapshots)\n", name, l.BasePath, len(l.Snapshots))
		for _, s := range l.Snapshots {
			if s.Name == l.LinkReference {
				fmt.Fprintf(w, "  %s  <- next link reference\n", s.Name)
				continue
			}
			fmt.Fprintf(w, "  %s\n", s.Name)
		}
	}
}
