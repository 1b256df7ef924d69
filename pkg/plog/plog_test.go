package plog

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestPlogLevels(t *testing.T) {
	// --- Setup: Redirect plog output to capture log output ---
	var logBuf bytes.Buffer
	SetOutput(&logBuf)
	t.Cleanup(func() { SetOutput(os.Stderr) }) // Restore original output after test.

	t.Run("Logs all levels when level is Debug", func(t *testing.T) {
		logBuf.Reset()
		SetLevel(LevelDebug)

		Debug("debug message", "key", "val1")
		Info("info message", "key", "val2")
		Warn("warn message") // Should be in the buffer now, as SetOutput captures all levels.

		output := logBuf.String()

		if !strings.Contains(output, "level=DEBUG msg=\"debug message\" key=val1") {
			t.Errorf("expected debug message to be logged, but it wasn't. Got: %s", output)
		}
		if !strings.Contains(output, "level=INFO msg=\"info message\" key=val2") {
			t.Errorf("expected info message to be logged, but it wasn't. Got: %s", output)
		}
		if !strings.Contains(output, "level=WARN msg=\"warn message\"") {
			t.Errorf("expected warn message to be logged, but it wasn't. Got: %s", output)
		}
	})

	t.Run("Suppresses lower levels when level is Warn", func(t *testing.T) {
		logBuf.Reset()
		SetLevel(LevelWarn) // Set level to Warn, which should suppress Debug and Info

		Debug("debug message")
		Info("info message")

		output := logBuf.String()

		if strings.Contains(output, "level=DEBUG") || strings.Contains(output, "level=INFO") {
			t.Errorf("expected no debug or info output at warn level, but got: %s", output)
		}
	})

	t.Run("Logs Notice and above, but suppresses Debug", func(t *testing.T) {
		logBuf.Reset()
		SetLevel(LevelNotice) // Set level to Notice

		Debug("debug message")
		Notice("notice message", "key", "val1")
		Info("info message", "key", "val2")
		Warn("warn message")

		output := logBuf.String()

		if strings.Contains(output, "level=DEBUG msg=\"debug message\"") {
			t.Errorf("expected debug message to be suppressed at notice level, but it was logged. Got: %s", output)
		}
		if !strings.Contains(output, "level=NOTICE msg=\"notice message\" key=val1") {
			t.Errorf("expected notice message to be logged, but it wasn't. Got: %s", output)
		}
		if !strings.Contains(output, "level=INFO msg=\"info message\" key=val2") {
			t.Errorf("expected info message to be logged, but it wasn't. Got: %s", output)
		}
	})
}

func TestQuietMode(t *testing.T) {
	var logBuf bytes.Buffer
	SetOutput(&logBuf)
	SetLevel(LevelDebug)
	t.Cleanup(func() {
		SetQuiet(false)
		SetLevel(LevelInfo)
		SetOutput(os.Stderr)
	})

	SetQuiet(true)
	if !IsQuiet() {
		t.Fatal("expected IsQuiet to report true")
	}

	Notice("notice message")
	Info("info message")
	Warn("warn message")

	output := logBuf.String()
	if strings.Contains(output, "notice message") || strings.Contains(output, "info message") {
		t.Errorf("expected notice and info to be suppressed in quiet mode, got: %s", output)
	}
	if !strings.Contains(output, "level=WARN msg=\"warn message\"") {
		t.Errorf("expected warn to be logged in quiet mode, got: %s", output)
	}
}

func TestLevelFromString(t *testing.T) {
	testCases := []struct {
		input   string
		want    slog.Level
		wantErr bool
	}{
		{"debug", LevelDebug, false},
		{"NOTICE", LevelNotice, false},
		{"info", LevelInfo, false},
		{"", LevelInfo, false},
		{"Warn", LevelWarn, false},
		{"warning", LevelWarn, false},
		{"error", LevelError, false},
		{"verbose", LevelInfo, true},
	}

	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			got, err := LevelFromString(tc.input)
			if (err != nil) != tc.wantErr {
				t.Fatalf("LevelFromString(%q) error = %v, wantErr %v", tc.input, err, tc.wantErr)
			}
			if got != tc.want {
				t.Errorf("LevelFromString(%q) = %v, want %v", tc.input, got, tc.want)
			}
		})
	}
}

func TestSetLogFile(t *testing.T) {
	var logBuf bytes.Buffer
	SetOutput(&logBuf)
	SetLevel(LevelInfo)

	logPath := filepath.Join(t.TempDir(), "snapsync.log")
	if err := SetLogFile(logPath); err != nil {
		t.Fatalf("SetLogFile failed: %v", err)
	}
	t.Cleanup(func() {
		SetLogFile("")
		SetOutput(os.Stderr)
	})

	Info("written twice", "job", "home")

	if err := SetLogFile(""); err != nil {
		t.Fatalf("disabling log file failed: %v", err)
	}

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("failed to read log file: %v", err)
	}
	if !strings.Contains(string(content), "msg=\"written twice\" job=home") {
		t.Errorf("expected record in log file, got: %s", content)
	}
	if !strings.Contains(logBuf.String(), "msg=\"written twice\" job=home") {
		t.Errorf("expected record on console output, got: %s", logBuf.String())
	}
}
