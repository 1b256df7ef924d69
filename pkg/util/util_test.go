package util

import (
	"os"
	"path/filepath"
	"testing"
)

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skipf("no home directory available: %v", err)
	}

	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "Bare tilde", input: "~", expected: home},
		{name: "Tilde with subdir", input: "~/backups", expected: filepath.Join(home, "backups")},
		{name: "Absolute path", input: "/var/backups", expected: "/var/backups"},
		{name: "Relative path", input: "backups", expected: "backups"},
		{name: "Named user is left alone", input: "~other/backups", expected: "~other/backups"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ExpandPath(tc.input)
			if err != nil {
				t.Fatalf("ExpandPath(%q) returned error: %v", tc.input, err)
			}
			if got != tc.expected {
				t.Errorf("ExpandPath(%q) = %q, want %q", tc.input, got, tc.expected)
			}
		})
	}
}

func TestAbsPath(t *testing.T) {
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd failed: %v", err)
	}

	t.Run("Relative path is resolved against the working directory", func(t *testing.T) {
		got, err := AbsPath("some/dir")
		if err != nil {
			t.Fatalf("AbsPath returned error: %v", err)
		}
		if want := filepath.Join(wd, "some", "dir"); got != want {
			t.Errorf("AbsPath = %q, want %q", got, want)
		}
	})

	t.Run("Trailing separator is stripped", func(t *testing.T) {
		dir := t.TempDir()
		got, err := AbsPath(dir + string(filepath.Separator))
		if err != nil {
			t.Fatalf("AbsPath returned error: %v", err)
		}
		if got != dir {
			t.Errorf("AbsPath = %q, want %q", got, dir)
		}
	})

	t.Run("Deterministic for the same input", func(t *testing.T) {
		first, _ := AbsPath("~/backups")
		second, _ := AbsPath("~/backups")
		if first != second {
			t.Errorf("AbsPath not deterministic: %q != %q", first, second)
		}
	})
}

func TestShellQuote(t *testing.T) {
	testCases := []struct {
		input    string
		expected string
	}{
		{"/some/directory", "'/some/directory'"},
		{"*~", "'*~'"},
		{"with space", "'with space'"},
		{"it's", `'it'\''s'`},
		{"", "''"},
	}

	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			if got := ShellQuote(tc.input); got != tc.expected {
				t.Errorf("ShellQuote(%q) = %s, want %s", tc.input, got, tc.expected)
			}
		})
	}
}

func TestInvertMap(t *testing.T) {
	inv := InvertMap(map[int]string{1: "one", 2: "two"})
	if len(inv) != 2 || inv["one"] != 1 || inv["two"] != 2 {
		t.Errorf("unexpected inverted map: %v", inv)
	}
}
