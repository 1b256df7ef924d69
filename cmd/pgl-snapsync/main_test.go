package main

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/paulschiretz/pgl-snapsync/pkg/config"
	"github.com/paulschiretz/pgl-snapsync/pkg/plog"
)

func TestRun(t *testing.T) {
	plog.SetOutput(io.Discard)
	defer plog.SetOutput(os.Stderr)

	dir := t.TempDir()
	configPath := filepath.Join(dir, config.ConfigFileName)

	testCases := []struct {
		name      string
		args      []string
		expectErr string
	}{
		{"No Arguments", nil, ""},
		{"Help", []string{"help"}, ""},
		{"Version", []string{"version"}, ""},
		{"Subcommand Help", []string{"sync", "-h"}, ""},
		{"Unknown Command", []string{"backup"}, "invalid command"},
		{"Unknown Flag", []string{"list", "-bogus"}, "flag provided but not defined"},
		{"Stray Argument", []string{"sync", "extra"}, "unexpected arguments"},
		{"Invalid Keep", []string{"prune", "-keep", "-1"}, "Must not be negative"},
		{"Sync Without Jobs", []string{"sync", "-config", filepath.Join(dir, "absent.yaml")}, "no jobs configured"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := run(context.Background(), tc.args)
			if tc.expectErr == "" {
				if err != nil {
					t.Fatalf("expected no error, got %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tc.expectErr) {
				t.Fatalf("expected error containing %q, got %v", tc.expectErr, err)
			}
		})
	}

	t.Run("Init Then List", func(t *testing.T) {
		if err := run(context.Background(), []string{"init", "-config", configPath, "-path", filepath.Join(dir, "snaps"), "-sources", filepath.Join(dir, "src"), "-snapshot", "-keep", "2"}); err != nil {
			t.Fatalf("init failed: %v", err)
		}
		if err := run(context.Background(), []string{"list", "-config", configPath}); err != nil {
			t.Fatalf("list failed: %v", err)
		}
		if err := run(context.Background(), []string{"init", "-config", configPath}); err == nil {
			t.Error("expected init to refuse overwriting an existing config")
		}
	})
}
