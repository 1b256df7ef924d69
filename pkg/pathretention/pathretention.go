// --- ARCHITECTURAL OVERVIEW: Retention Strategy ---
//
// Retention is count based. Snapshot directories are named by their UTC
// timestamp, so sorting names in descending order puts the newest first.
// The walk keeps the first Keep entries and removes every entry after them.
//
// The snapshot written by the current run is passed as ExcludeDir. It is
// never deleted and never counted, so a clock that steps backwards cannot
// cause the run to prune its own output.

// Package pathretention deletes old snapshot directories beyond a retention count.
package pathretention

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/paulschiretz/pgl-snapsync/pkg/hints"
	"github.com/paulschiretz/pgl-snapsync/pkg/pathretentionmetrics"
	"github.com/paulschiretz/pgl-snapsync/pkg/plog"
	"github.com/paulschiretz/pgl-snapsync/pkg/snapshot"
)

var ErrDisabled = hints.New("retention is disabled")

// DeletionWarning records a snapshot that could not be removed. It is not
// fatal; the walk continues with the next candidate.
type DeletionWarning struct {
	Path string
	Err  error
}

func (w DeletionWarning) Error() string {
	return fmt.Sprintf("failed to delete snapshot %s: %v", w.Path, w.Err)
}

func (w DeletionWarning) Unwrap() error { return w.Err }

// Result lists what a retention pass kept and removed, newest first.
type Result struct {
	Kept     []string
	Deleted  []string
	Warnings []DeletionWarning
}

// RetentionManager defines the interface for a component that applies a retention plan to snapshots.
type RetentionManager interface {
	Apply(ctx context.Context, basePath string, p *Plan) (Result, error)
}

// PathRetainer applies count based retention to a snapshot base directory.
type PathRetainer struct {
	// removeAll allows mocking directory removal in tests.
	removeAll func(path string) error
}

// Statically assert that *PathRetainer implements the RetentionManager interface.
var _ RetentionManager = (*PathRetainer)(nil)

// NewPathRetainer creates a PathRetainer that removes directories with os.RemoveAll.
func NewPathRetainer() *PathRetainer {
	return &PathRetainer{removeAll: os.RemoveAll}
}

// Apply lists the snapshots below basePath and deletes all but the newest
// p.Keep of them. Failed deletions are collected as warnings.
func (r *PathRetainer) Apply(ctx context.Context, basePath string, p *Plan) (Result, error) {
	if !p.Enabled || p.Keep <= 0 {
		return Result{}, ErrDisabled
	}

	var m pathretentionmetrics.Metrics
	if p.Metrics {
		m = &pathretentionmetrics.RetentionMetrics{}
	} else {
		m = &pathretentionmetrics.NoopMetrics{}
	}

	snapshots, err := snapshot.List(ctx, basePath)
	if err != nil {
		return Result{}, fmt.Errorf("failed to list snapshots for retention: %w", err)
	}

	var res Result
	var toDelete []snapshot.Directory
	count := 0
	for _, s := range snapshots {
		if s.Name == p.ExcludeDir {
			res.Kept = append(res.Kept, s.Name)
			continue
		}
		count++
		if count > p.Keep {
			toDelete = append(toDelete, s)
		} else {
			res.Kept = append(res.Kept, s.Name)
		}
	}
	m.AddSnapshotsKept(int64(len(res.Kept)))
	plog.Debug("Retention plan", "keep", p.Keep, "kept", len(res.Kept), "to_delete", len(toDelete))

	if len(toDelete) == 0 {
		if p.DryRun {
			plog.Debug("[DRY RUN] No snapshots need deletion", "path", basePath)
		} else {
			plog.Debug("No snapshots need deletion", "path", basePath)
		}
		return res, nil
	}

	plog.Info("Deleting outdated snapshots", "path", basePath, "count", len(toDelete))

	m.StartProgress("Delete progress", 10*time.Second)
	defer func() {
		m.StopProgress()
		m.LogSummary("Delete finished")
	}()

	for _, s := range toDelete {
		// Check for cancellation before each deletion.
		select {
		case <-ctx.Done():
			return res, ctx.Err()
		default:
		}

		if p.DryRun {
			plog.Notice("[DRY RUN] DELETE", "path", s.Path)
			res.Deleted = append(res.Deleted, s.Name)
			continue
		}

		plog.Notice("DELETE", "path", s.Path)
		if err := r.removeAll(s.Path); err != nil {
			m.AddSnapshotsFailed(1)
			w := DeletionWarning{Path: s.Path, Err: err}
			res.Warnings = append(res.Warnings, w)
			plog.Warn("Failed to delete outdated snapshot directory", "path", s.Path, "error", err)
			continue
		}
		m.AddSnapshotsDeleted(1)
		res.Deleted = append(res.Deleted, s.Name)
		plog.Notice("DELETED", "path", s.Path)
	}

	return res, nil
}
