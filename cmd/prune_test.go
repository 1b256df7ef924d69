package cmd_test

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/paulschiretz/pgl-snapsync/cmd"
	"github.com/paulschiretz/pgl-snapsync/pkg/config"
	"github.com/paulschiretz/pgl-snapsync/pkg/plog"
)

func dirNames(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("failed to read %s: %v", dir, err)
	}
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestRunPrune(t *testing.T) {
	plog.SetOutput(io.Discard)
	defer plog.SetOutput(os.Stderr)

	all := []string{"2023-01-01-00-00-00", "2023-02-01-00-00-00", "2023-03-01-00-00-00"}

	tests := []struct {
		name      string
		keep      int
		flags     map[string]any
		remaining []string
	}{
		{
			name:      "Force deletes beyond keep",
			keep:      2,
			flags:     map[string]any{"force": true},
			remaining: []string{"2023-02-01-00-00-00", "2023-03-01-00-00-00"},
		},
		{
			name:      "Keep flag overrides config",
			keep:      2,
			flags:     map[string]any{"force": true, "keep": 1},
			remaining: []string{"2023-03-01-00-00-00"},
		},
		{
			name:      "Dry run deletes nothing",
			keep:      1,
			flags:     map[string]any{"dry-run": true},
			remaining: all,
		},
		{
			name:      "No retention configured",
			keep:      0,
			flags:     map[string]any{"force": true},
			remaining: all,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			dir := t.TempDir()
			base := filepath.Join(dir, "home")
			mkSnapshots(t, base, all...)
			configPath := writeConfig(t, dir, snapshotJob("home", base, tc.keep))

			flags := map[string]any{"config": configPath}
			for k, v := range tc.flags {
				flags[k] = v
			}
			if err := cmd.RunPrune(context.Background(), flags); err != nil {
				t.Fatalf("RunPrune failed: %v", err)
			}
			if diff := cmp.Diff(tc.remaining, dirNames(t, base)); diff != "" {
				t.Errorf("remaining snapshots mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestRunPrune_SkipsDirectJobs(t *testing.T) {
	plog.SetOutput(io.Discard)
	defer plog.SetOutput(os.Stderr)

	dir := t.TempDir()
	mirrorBase := filepath.Join(dir, "mirror")
	snapBase := filepath.Join(dir, "snaps")
	mkSnapshots(t, mirrorBase, "2023-01-01-00-00-00", "2023-02-01-00-00-00")
	mkSnapshots(t, snapBase, "2023-01-01-00-00-00", "2023-02-01-00-00-00")

	mirror := config.NewDefaultJob()
	mirror.Name = "mirror"
	mirror.Path = mirrorBase
	configPath := writeConfig(t, dir, mirror, snapshotJob("snaps", snapBase, 1))

	if err := cmd.RunPrune(context.Background(), map[string]any{"config": configPath, "force": true}); err != nil {
		t.Fatalf("RunPrune failed: %v", err)
	}
	if got := dirNames(t, mirrorBase); len(got) != 2 {
		t.Errorf("direct job was pruned, remaining: %v", got)
	}
	if diff := cmp.Diff([]string{"2023-02-01-00-00-00"}, dirNames(t, snapBase)); diff != "" {
		t.Errorf("remaining snapshots mismatch (-want +got):\n%s", diff)
	}
}

func TestRunPrune_UnknownJob(t *testing.T) {
	plog.SetOutput(io.Discard)
	defer plog.SetOutput(os.Stderr)

	dir := t.TempDir()
	configPath := writeConfig(t, dir, snapshotJob("home", filepath.Join(dir, "home"), 1))

	if err := cmd.RunPrune(context.Background(), map[string]any{"config": configPath, "job": []string{"work"}, "force": true}); err == nil {
		t.Error("expected an error for an unknown job")
	}
}
