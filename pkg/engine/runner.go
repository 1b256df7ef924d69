package engine

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/paulschiretz/pgl-snapsync/pkg/hints"
	"github.com/paulschiretz/pgl-snapsync/pkg/hook"
	"github.com/paulschiretz/pgl-snapsync/pkg/pathresolve"
	"github.com/paulschiretz/pgl-snapsync/pkg/pathretention"
	"github.com/paulschiretz/pgl-snapsync/pkg/planner"
	"github.com/paulschiretz/pgl-snapsync/pkg/preflight"
	"github.com/paulschiretz/pgl-snapsync/pkg/plog"
	"github.com/paulschiretz/pgl-snapsync/pkg/snapshot"
	"github.com/paulschiretz/pgl-snapsync/pkg/toolexec"
	"github.com/paulschiretz/pgl-snapsync/pkg/transfer"
	"github.com/paulschiretz/pgl-snapsync/pkg/util"
)

// --- ARCHITECTURAL OVERVIEW: One Sync Run ---
//
// A run is strictly sequential:
//
//  1. Resolve   - compute the destination, appending a timestamp in snapshot mode.
//  2. Locate    - find the transfer tool before anything touches the disk,
//                 then check that the base path is usable and not inside a source.
//  3. Reference - in snapshot mode pick the newest existing snapshot as link reference.
//  4. Build     - turn the plan into an ordered argument list.
//  5. Transfer  - create the destination and run the tool, blocking until it exits.
//  6. Retention - only after a successful transfer, delete all but the newest N snapshots.
//
// Any failure before step 6 aborts the run and skips retention. Retention
// failures are reported but do not fail an otherwise successful run unless
// fail-fast is set.

// Environment variables passed to hook commands.
const (
	EnvJob         = "SNAPSYNC_JOB"
	EnvBasePath    = "SNAPSYNC_BASE_PATH"
	EnvDestination = "SNAPSYNC_DESTINATION"
	EnvStatus      = "SNAPSYNC_STATUS"
)

// HookRunner runs the commands of a hook plan.
type HookRunner interface {
	RunPreHook(ctx context.Context, hookName string, p *hook.Plan, env []string) error
	RunPostHook(ctx context.Context, hookName string, p *hook.Plan, env []string) error
}

// ExecutorFactory returns the process runner for a job. shell selects the
// shell form of the invocation.
type ExecutorFactory func(shell bool) toolexec.Runner

// Runner executes sync, prune and list plans.
type Runner struct {
	locator     toolexec.Locator
	newExecutor ExecutorFactory
	retainer    pathretention.RetentionManager
	hooks       HookRunner
	clock       snapshot.Clock
}

// NewRunner creates a Runner. A nil clock means the system clock.
func NewRunner(locator toolexec.Locator, newExecutor ExecutorFactory, retainer pathretention.RetentionManager, hooks HookRunner, clock snapshot.Clock) *Runner {
	if clock == nil {
		clock = snapshot.SystemClock{}
	}
	return &Runner{
		locator:     locator,
		newExecutor: newExecutor,
		retainer:    retainer,
		hooks:       hooks,
		clock:       clock,
	}
}

// SyncReport describes what a sync run did.
type SyncReport struct {
	Name          string
	Destination   pathresolve.Destination
	LinkReference string
	Command       string
	Result        toolexec.Result
	Retention     pathretention.Result
}

// label is the syncer id used in the Started/Finished log lines.
func label(p *planner.SyncPlan) string {
	if p.Name == "" {
		return p.Engine.DisplayName()
	}
	return fmt.Sprintf("%s (%s)", p.Engine.DisplayName(), p.Name)
}

// ExecuteSync runs one job. The returned report is never nil; it holds as
// much as was done before a failure.
func (r *Runner) ExecuteSync(ctx context.Context, p *planner.SyncPlan) (report *SyncReport, err error) {
	report = &SyncReport{Name: p.Name}

	// Check for cancellation at the very beginning.
	select {
	case <-ctx.Done():
		return report, ctx.Err()
	default:
	}

	id := label(p)
	plog.Info(id + " Started...")

	// Reject an empty job before any hook, filesystem or subprocess work.
	if len(p.Options.Sources) == 0 {
		return report, fmt.Errorf("%s: %w", id, transfer.ErrNoSources)
	}

	dest, err := pathresolve.Resolve(p.BasePath, p.Mode == planner.Snapshot, r.clock)
	if err != nil {
		return report, err
	}
	report.Destination = dest

	hookEnv := []string{EnvJob + "=" + p.Name, EnvBasePath + "=" + dest.BasePath, EnvDestination + "=" + dest.Path}

	// --- Pre-Sync Hooks ---
	if err := r.hooks.RunPreHook(ctx, "Sync", p.Hooks, hookEnv); err != nil && !hints.IsHint(err) {
		// All pre-sync hook errors are fatal. We wrap the error with a message
		// that distinguishes between a cancellation and a failure.
		errMsg := "pre-sync hook failed"
		if errors.Is(err, context.Canceled) {
			errMsg = "pre-sync hook canceled"
		}
		return report, fmt.Errorf("%s: %w", errMsg, err)
	}

	// --- Post-Sync Hooks (deferred) ---
	// These will run at the end of the function, even if the sync fails.
	defer func() {
		status := "success"
		if err != nil {
			status = "failure"
		}
		env := append(slices.Clone(hookEnv), EnvStatus+"="+status)
		if hookErr := r.hooks.RunPostHook(ctx, "Sync", p.Hooks, env); hookErr != nil && !hints.IsHint(hookErr) {
			if errors.Is(hookErr, context.Canceled) {
				plog.Info("post-sync hooks skipped due to cancellation.")
			} else {
				plog.Warn("post-sync hook failed", "error", hookErr)
			}
		}
	}()

	tool := p.Tool
	if tool == "" {
		tool = p.Engine.DefaultTool()
	}
	program, err := r.locator.Resolve(tool)
	if err != nil {
		return report, err
	}

	// --- Preflight ---
	// Runs after the pre-sync hook, which may be what mounts the base path.
	if err := preflight.CheckBaseAccessible(dest.BasePath); err != nil {
		return report, fmt.Errorf("%s: %w", id, err)
	}
	sources := make([]string, 0, len(p.Options.Sources))
	for _, src := range p.Options.Sources {
		absSrc, err := util.AbsPath(src.Path)
		if err != nil {
			return report, fmt.Errorf("%s: %w", id, err)
		}
		sources = append(sources, absSrc)
	}
	if err := preflight.CheckPathNesting(dest.BasePath, sources); err != nil {
		return report, fmt.Errorf("%s: %w", id, err)
	}

	if p.Mode == planner.Snapshot && p.Engine.SupportsLinkReference() {
		latest, ok, err := snapshot.Latest(ctx, dest.BasePath, dest.SnapshotName)
		if err != nil {
			return report, fmt.Errorf("failed to determine link reference: %w", err)
		}
		if ok {
			report.LinkReference = latest.Path
			plog.Debug("Using link reference", "path", latest.Path)
		} else {
			plog.Debug("No previous snapshot, transferring everything", "path", dest.BasePath)
		}
	}

	builder, err := transfer.NewBuilder(p.Engine)
	if err != nil {
		return report, err
	}
	inv, err := builder.Build(transfer.Request{
		Tool:          program,
		Options:       p.Options,
		Destination:   dest.Path,
		LinkReference: report.LinkReference,
	})
	if err != nil {
		return report, fmt.Errorf("%s: %w", id, err)
	}
	report.Command = inv.String()

	if p.DryRun {
		plog.Info("[DRY RUN] Would execute", "command", report.Command)
	} else {
		if err := pathresolve.Prepare(dest); err != nil {
			return report, err
		}
		plog.Info("Executing", "command", report.Command)
		result, err := r.newExecutor(p.Shell).Run(ctx, inv)
		report.Result = result
		if err != nil {
			return report, fmt.Errorf("%s: %w", id, err)
		}
	}

	if p.Retention.Enabled {
		// The snapshot written by this run is never a deletion candidate.
		rp := *p.Retention
		rp.ExcludeDir = dest.SnapshotName
		res, err := r.retainer.Apply(ctx, dest.BasePath, &rp)
		report.Retention = res
		if err != nil && !hints.IsHint(err) {
			if errors.Is(err, context.Canceled) || p.FailFast {
				return report, fmt.Errorf("error during retention: %w", err)
			}
			plog.Warn("Error during retention, skipping", "error", err)
		}
	}

	plog.Info(id + " Finished!")
	return report, nil
}

// ExecuteJobs runs every job of the plan with at most ParallelJobs running at
// once. With FailFast the first failure cancels the remaining jobs; otherwise
// all jobs run and their errors are joined. Reports are in plan order.
func (r *Runner) ExecuteJobs(ctx context.Context, rp *planner.RunPlan) ([]*SyncReport, error) {
	reports := make([]*SyncReport, len(rp.Jobs))

	var g *errgroup.Group
	gctx := ctx
	if rp.FailFast {
		g, gctx = errgroup.WithContext(ctx)
	} else {
		g = &errgroup.Group{}
	}
	g.SetLimit(max(rp.ParallelJobs, 1))

	var mu sync.Mutex
	var errs []error

	for i, job := range rp.Jobs {
		g.Go(func() error {
			report, err := r.ExecuteSync(gctx, job)
			reports[i] = report
			if err == nil {
				return nil
			}
			if job.Name != "" {
				err = fmt.Errorf("job %s: %w", job.Name, err)
			}
			if rp.FailFast {
				return err
			}
			mu.Lock()
			errs = append(errs, err)
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return reports, err
	}
	return reports, errors.Join(errs...)
}

// ExecutePrune applies retention to every job of the plan without syncing.
func (r *Runner) ExecutePrune(ctx context.Context, p *planner.PrunePlan) ([]pathretention.Result, error) {
	results := make([]pathretention.Result, 0, len(p.Jobs))
	var errs []error

	for _, job := range p.Jobs {
		// Check for cancellation before each job.
		select {
		case <-ctx.Done():
			return results, ctx.Err()
		default:
		}

		absBasePath, err := util.AbsPath(job.BasePath)
		if err != nil {
			return results, fmt.Errorf("could not resolve base path of job %s: %w", job.Name, err)
		}

		plog.Info("Starting prune", "job", job.Name, "path", absBasePath, "keep", job.Retention.Keep)
		res, err := r.retainer.Apply(ctx, absBasePath, job.Retention)
		results = append(results, res)
		if err != nil {
			if hints.IsHint(err) {
				plog.Info("Retention not configured, skipping", "job", job.Name, "reason", err)
				continue
			}
			err = fmt.Errorf("prune of job %s failed: %w", job.Name, err)
			if errors.Is(err, context.Canceled) || p.FailFast {
				return results, err
			}
			plog.Warn("Prune failed, continuing with next job", "error", err)
			errs = append(errs, err)
			continue
		}
		plog.Info("Prune completed", "job", job.Name, "kept", len(res.Kept), "deleted", len(res.Deleted), "warnings", len(res.Warnings))
	}
	return results, errors.Join(errs...)
}

// Listing is the snapshot inventory of one job.
type Listing struct {
	Name      string
	BasePath  string
	Snapshots []snapshot.Directory
	// LinkReference names the snapshot the next run would hard-link against.
	LinkReference string
}

// ExecuteList lists the snapshots of every job of the plan.
func (r *Runner) ExecuteList(ctx context.Context, p *planner.ListPlan) ([]Listing, error) {
	listings := make([]Listing, 0, len(p.Jobs))
	for _, job := range p.Jobs {
		absBasePath, err := util.AbsPath(job.BasePath)
		if err != nil {
			return nil, fmt.Errorf("could not resolve base path of job %s: %w", job.Name, err)
		}

		dirs, err := snapshot.List(ctx, absBasePath)
		if err != nil {
			return nil, err
		}

		l := Listing{Name: job.Name, BasePath: absBasePath, Snapshots: dirs}
		if job.LinkReference && len(dirs) > 0 {
			l.LinkReference = dirs[0].Name
		}
		if p.SortOrder == planner.Asc {
			slices.Reverse(l.Snapshots)
		}
		listings = append(listings, l)
	}
	return listings, nil
}
