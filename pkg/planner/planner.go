package planner

import (
	"fmt"
	"slices"

	"github.com/paulschiretz/pgl-snapsync/pkg/config"
	"github.com/paulschiretz/pgl-snapsync/pkg/hook"
	"github.com/paulschiretz/pgl-snapsync/pkg/pathretention"
	"github.com/paulschiretz/pgl-snapsync/pkg/transfer"
)

// SyncPlan is the immutable description of one job's run.
type SyncPlan struct {
	Name     string
	BasePath string
	Mode     Mode

	Engine  transfer.Engine
	Tool    string
	Shell   bool
	Options transfer.Options

	DryRun   bool
	FailFast bool
	Metrics  bool

	Hooks     *hook.Plan
	Retention *pathretention.Plan
}

// RunPlan holds the sync plans of all selected jobs.
type RunPlan struct {
	Jobs         []*SyncPlan
	ParallelJobs int
	DryRun       bool
	FailFast     bool
}

// PruneJob is one base path to apply retention to.
type PruneJob struct {
	Name      string
	BasePath  string
	Retention *pathretention.Plan
}

type PrunePlan struct {
	Jobs     []PruneJob
	DryRun   bool
	FailFast bool
	Metrics  bool
}

// ListJob is one base path whose snapshots are listed.
type ListJob struct {
	Name     string
	BasePath string
	// LinkReference is true when the next run would hard-link against the
	// newest snapshot.
	LinkReference bool
}

type ListPlan struct {
	Jobs      []ListJob
	SortOrder SortOrder
}

// GenerateSyncPlan translates a job of cfg into a SyncPlan. Sources are deep
// copied so later changes to cfg cannot reach the plan.
func GenerateSyncPlan(cfg config.Config, job config.JobConfig) (*SyncPlan, error) {

	// Global Flags
	dryRun := cfg.Runtime.DryRun
	failFast := cfg.FailFast
	metrics := cfg.Metrics

	if _, err := transfer.ParseEngine(job.Engine.String()); err != nil {
		return nil, fmt.Errorf("job %s: %w", job.DisplayName(), err)
	}

	sources := make([]transfer.Source, 0, len(job.Directories))
	for _, d := range job.Directories {
		sources = append(sources, transfer.Source{Path: d.Path, Excludes: slices.Clone(d.Excludes)})
	}

	return &SyncPlan{
		Name:     job.Name,
		BasePath: job.Path,
		Mode:     ModeOf(job.Snapshot),

		Engine: job.Engine,
		Tool:   job.Tool,
		Shell:  job.Shell,
		Options: transfer.Options{
			Sources:           sources,
			Archive:           job.Archive,
			Mirror:            job.Mirror,
			AdditionalOptions: slices.Clone(job.AdditionalOptions),
		},

		DryRun:   dryRun,
		FailFast: failFast,
		Metrics:  metrics,

		Hooks: &hook.Plan{
			Enabled:          true,
			PreSyncCommands:  slices.Clone(job.Hooks.PreSync),
			PostSyncCommands: slices.Clone(job.Hooks.PostSync),
			// Global Flags
			DryRun:   dryRun,
			FailFast: true, // A failed pre-sync hook must stop the job.
		},
		Retention: &pathretention.Plan{
			Enabled: job.Snapshot && job.KeepSnapshots > 0,
			Keep:    job.KeepSnapshots,
			// Global Flags
			DryRun:  dryRun,
			Metrics: metrics,
		},
	}, nil
}

// GenerateRunPlan builds a SyncPlan for every selected job.
func GenerateRunPlan(cfg config.Config) (*RunPlan, error) {
	selected := cfg.SelectedJobs()
	plan := &RunPlan{
		Jobs:         make([]*SyncPlan, 0, len(selected)),
		ParallelJobs: max(cfg.ParallelJobs, 1),
		DryRun:       cfg.Runtime.DryRun,
		FailFast:     cfg.FailFast,
	}
	for _, job := range selected {
		p, err := GenerateSyncPlan(cfg, job)
		if err != nil {
			return nil, err
		}
		plan.Jobs = append(plan.Jobs, p)
	}
	return plan, nil
}

// GeneratePrunePlan selects the snapshot jobs of cfg. Jobs without snapshots
// have nothing to prune and are left out.
func GeneratePrunePlan(cfg config.Config) (*PrunePlan, error) {

	// Global Flags
	dryRun := cfg.Runtime.DryRun
	failFast := cfg.FailFast
	metrics := cfg.Metrics

	plan := &PrunePlan{
		DryRun:   dryRun,
		FailFast: failFast,
		Metrics:  metrics,
	}
	for _, job := range cfg.SelectedJobs() {
		if !job.Snapshot {
			continue
		}
		plan.Jobs = append(plan.Jobs, PruneJob{
			Name:     job.Name,
			BasePath: job.Path,
			Retention: &pathretention.Plan{
				Enabled: job.KeepSnapshots > 0,
				Keep:    job.KeepSnapshots,
				// Global Flags
				DryRun:  dryRun,
				Metrics: metrics,
			},
		})
	}
	return plan, nil
}

// GenerateListPlan selects the snapshot jobs of cfg.
func GenerateListPlan(cfg config.Config, order SortOrder) (*ListPlan, error) {
	if _, err := ParseSortOrder(order.String()); err != nil {
		return nil, err
	}
	plan := &ListPlan{SortOrder: order}
	for _, job := range cfg.SelectedJobs() {
		if !job.Snapshot {
			continue
		}
		plan.Jobs = append(plan.Jobs, ListJob{
			Name:          job.Name,
			BasePath:      job.Path,
			LinkReference: job.Engine.SupportsLinkReference(),
		})
	}
	return plan, nil
}
