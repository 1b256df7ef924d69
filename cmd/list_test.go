package cmd_test

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/paulschiretz/pgl-snapsync/cmd"
	"github.com/paulschiretz/pgl-snapsync/pkg/config"
	"github.com/paulschiretz/pgl-snapsync/pkg/plog"
	"github.com/paulschiretz/pgl-snapsync/pkg/transfer"
)

// writeConfig generates a config file holding jobs in dir and returns its path.
func writeConfig(t *testing.T, dir string, jobs ...config.JobConfig) string {
	t.Helper()
	cfg := config.NewDefault()
	cfg.Jobs = jobs
	configPath := filepath.Join(dir, config.ConfigFileName)
	if err := config.Generate(configPath, cfg); err != nil {
		t.Fatalf("Failed to generate config: %v", err)
	}
	return configPath
}

func snapshotJob(name, path string, keep int) config.JobConfig {
	job := config.NewDefaultJob()
	job.Name = name
	job.Path = path
	job.Snapshot = true
	job.KeepSnapshots = keep
	return job
}

func mkSnapshots(t *testing.T, base string, names ...string) {
	t.Helper()
	for _, name := range names {
		if err := os.MkdirAll(filepath.Join(base, name), 0755); err != nil {
			t.Fatal(err)
		}
	}
}

// captureStdout runs fn with os.Stdout redirected and returns what it wrote.
func captureStdout(t *testing.T, fn func()) string {
	t.Helper()
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	orig := os.Stdout
	os.Stdout = w
	defer func() { os.Stdout = orig }()

	done := make(chan string)
	go func() {
		var buf bytes.Buffer
		_, _ = io.Copy(&buf, r)
		done <- buf.String()
	}()

	fn()
	_ = w.Close()
	return <-done
}

func TestRunList_Sort(t *testing.T) {
	plog.SetOutput(io.Discard)
	defer plog.SetOutput(os.Stderr)

	dir := t.TempDir()
	base := filepath.Join(dir, "home")
	mkSnapshots(t, base, "2023-01-01-00-00-00", "2023-02-01-00-00-00", "2023-03-01-00-00-00", "notes")
	configPath := writeConfig(t, dir, snapshotJob("home", base, 0))

	tests := []struct {
		name          string
		flags         map[string]any
		expectedOrder []string
	}{
		{
			name:          "Sort Desc (Default)",
			flags:         map[string]any{"config": configPath},
			expectedOrder: []string{"2023-03-01-00-00-00", "2023-02-01-00-00-00", "2023-01-01-00-00-00"},
		},
		{
			name:          "Sort Asc",
			flags:         map[string]any{"config": configPath, "sort": "asc"},
			expectedOrder: []string{"2023-01-01-00-00-00", "2023-02-01-00-00-00", "2023-03-01-00-00-00"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var runErr error
			output := captureStdout(t, func() {
				runErr = cmd.RunList(context.Background(), tc.flags)
			})
			if runErr != nil {
				t.Fatalf("RunList failed: %v", runErr)
			}

			// Verify order by finding the indices of the names in the output.
			lastIndex := -1
			for _, name := range tc.expectedOrder {
				idx := strings.Index(output, name)
				if idx == -1 {
					t.Errorf("Expected snapshot %s not found in output", name)
				}
				if idx < lastIndex {
					t.Errorf("Snapshot %s appeared out of order (index %d < %d)", name, idx, lastIndex)
				}
				lastIndex = idx
			}

			if strings.Contains(output, "notes") {
				t.Errorf("non-snapshot entry listed:\n%s", output)
			}
			if !strings.Contains(output, "2023-03-01-00-00-00  <- next link reference") {
				t.Errorf("newest snapshot not marked as link reference:\n%s", output)
			}
			if !strings.Contains(output, "Job home:") {
				t.Errorf("job header missing:\n%s", output)
			}
		})
	}
}

func TestRunList_InvalidSort(t *testing.T) {
	plog.SetOutput(io.Discard)
	defer plog.SetOutput(os.Stderr)

	dir := t.TempDir()
	configPath := writeConfig(t, dir, snapshotJob("home", filepath.Join(dir, "home"), 0))

	if err := cmd.RunList(context.Background(), map[string]any{"config": configPath, "sort": "sideways"}); err == nil {
		t.Error("expected an error for an invalid sort order")
	}
}

func TestRunList_RobocopyHasNoLinkReference(t *testing.T) {
	plog.SetOutput(io.Discard)
	defer plog.SetOutput(os.Stderr)

	dir := t.TempDir()
	base := filepath.Join(dir, "win")
	mkSnapshots(t, base, "2023-01-01-00-00-00")
	job := snapshotJob("win", base, 0)
	job.Engine = transfer.Robocopy
	configPath := writeConfig(t, dir, job)

	var runErr error
	output := captureStdout(t, func() {
		runErr = cmd.RunList(context.Background(), map[string]any{"config": configPath})
	})
	if runErr != nil {
		t.Fatalf("RunList failed: %v", runErr)
	}
	if strings.Contains(output, "link reference") {
		t.Errorf("robocopy job must not show a link reference:\n%s", output)
	}
}
