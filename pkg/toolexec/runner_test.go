package toolexec_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/paulschiretz/pgl-snapsync/pkg/toolexec"
	"github.com/paulschiretz/pgl-snapsync/pkg/transfer"
)

// TestHelperProcess is a helper for testing exec.
// It echoes its arguments and exits with the code given by an --exit=N argument.
func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}
	args := os.Args
	for i, arg := range args {
		if arg == "--" {
			args = args[i+1:]
			break
		}
	}
	fmt.Fprintf(os.Stdout, "ran: %s\n", strings.Join(args, " "))
	for _, arg := range args {
		if arg == "--sleep" {
			time.Sleep(10 * time.Second)
		}
		if code, ok := strings.CutPrefix(arg, "--exit="); ok {
			n, _ := strconv.Atoi(code)
			fmt.Fprintln(os.Stderr, "helper failing")
			os.Exit(n)
		}
	}
	os.Exit(0)
}

type recorded struct {
	name string
	args []string
}

func helperCommand(calls *[]recorded) func(ctx context.Context, name string, arg ...string) *exec.Cmd {
	return func(ctx context.Context, name string, arg ...string) *exec.Cmd {
		*calls = append(*calls, recorded{name: name, args: append([]string(nil), arg...)})
		cs := append([]string{"-test.run=TestHelperProcess", "--", name}, arg...)
		cmd := exec.CommandContext(ctx, os.Args[0], cs...)
		cmd.Env = []string{"GO_WANT_HELPER_PROCESS=1"}
		return cmd
	}
}

func buildInvocation(t *testing.T, builder transfer.Builder, extra ...string) transfer.Invocation {
	t.Helper()
	inv, err := builder.Build(transfer.Request{
		Tool: "rsync",
		Options: transfer.Options{
			Archive:           true,
			AdditionalOptions: extra,
			Sources:           []transfer.Source{{Path: "/src"}},
		},
		Destination: "/dst",
	})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	return inv
}

func TestProcessRunner_ArrayForm(t *testing.T) {
	var calls []recorded
	runner := toolexec.NewProcessRunner(helperCommand(&calls), false)
	runner.SetOutput(nil)

	inv := buildInvocation(t, transfer.RsyncBuilder{})
	res, err := runner.Run(context.Background(), inv)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if res.ExitCode != 0 {
		t.Errorf("ExitCode = %d, want 0", res.ExitCode)
	}
	if !strings.Contains(res.Output, "ran: rsync --archive /src /dst") {
		t.Errorf("unexpected output: %q", res.Output)
	}

	want := []recorded{{name: "rsync", args: []string{"--archive", "/src", "/dst"}}}
	if diff := cmp.Diff(want, calls, cmp.AllowUnexported(recorded{})); diff != "" {
		t.Errorf("command mismatch (-want +got):\n%s", diff)
	}
}

func TestProcessRunner_ShellForm(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell form uses /bin/sh on Unix-like systems")
	}
	var calls []recorded
	runner := toolexec.NewProcessRunner(helperCommand(&calls), true)
	runner.SetOutput(nil)

	inv := buildInvocation(t, transfer.RsyncBuilder{})
	if _, err := runner.Run(context.Background(), inv); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	want := []recorded{{name: "/bin/sh", args: []string{"-c", "rsync --archive '/src' '/dst'"}}}
	if diff := cmp.Diff(want, calls, cmp.AllowUnexported(recorded{})); diff != "" {
		t.Errorf("command mismatch (-want +got):\n%s", diff)
	}
}

func TestProcessRunner_Failure(t *testing.T) {
	var calls []recorded
	runner := toolexec.NewProcessRunner(helperCommand(&calls), false)
	runner.SetOutput(nil)

	inv := buildInvocation(t, transfer.RsyncBuilder{}, "--exit=23")
	res, err := runner.Run(context.Background(), inv)

	execErr, ok := errors.AsType[*toolexec.ExecutionError](err)
	if !ok {
		t.Fatalf("expected *ExecutionError, got %T: %v", err, err)
	}
	if execErr.ExitCode != 23 || res.ExitCode != 23 {
		t.Errorf("ExitCode = %d / %d, want 23", execErr.ExitCode, res.ExitCode)
	}
	if execErr.Command != inv.String() {
		t.Errorf("Command = %q, want %q", execErr.Command, inv.String())
	}
	if !strings.Contains(execErr.Output, "helper failing") {
		t.Errorf("expected captured stderr in output, got %q", execErr.Output)
	}
	if !strings.Contains(err.Error(), "exit status 23") {
		t.Errorf("unexpected message: %v", err)
	}
}

func TestProcessRunner_RobocopySuccessCodes(t *testing.T) {
	var calls []recorded
	runner := toolexec.NewProcessRunner(helperCommand(&calls), false)
	runner.SetOutput(nil)

	inv := buildInvocation(t, transfer.RobocopyBuilder{}, "--exit=3")
	res, err := runner.Run(context.Background(), inv)
	if err != nil {
		t.Fatalf("expected exit code 3 to be a robocopy success, got %v", err)
	}
	if res.ExitCode != 3 {
		t.Errorf("ExitCode = %d, want 3", res.ExitCode)
	}

	inv = buildInvocation(t, transfer.RobocopyBuilder{}, "--exit=8")
	if _, err := runner.Run(context.Background(), inv); err == nil {
		t.Error("expected exit code 8 to be a robocopy failure")
	}
}

func TestProcessRunner_Cancellation(t *testing.T) {
	var calls []recorded
	runner := toolexec.NewProcessRunner(helperCommand(&calls), false)
	runner.SetOutput(nil)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := runner.Run(ctx, buildInvocation(t, transfer.RsyncBuilder{}, "--sleep"))
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected context.DeadlineExceeded, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("cancellation took too long: %v", elapsed)
	}
}

func TestProcessRunner_StartFailure(t *testing.T) {
	runner := toolexec.NewProcessRunner(exec.CommandContext, false)
	runner.SetOutput(nil)

	inv, err := transfer.RsyncBuilder{}.Build(transfer.Request{
		Tool:        "/nonexistent/rsync-binary",
		Options:     transfer.Options{Sources: []transfer.Source{{Path: "/src"}}},
		Destination: "/dst",
	})
	if err != nil {
		t.Fatal(err)
	}

	_, err = runner.Run(context.Background(), inv)
	execErr, ok := errors.AsType[*toolexec.ExecutionError](err)
	if !ok {
		t.Fatalf("expected *ExecutionError, got %T: %v", err, err)
	}
	if execErr.ExitCode != -1 || execErr.Err == nil {
		t.Errorf("expected start failure with exit code -1, got %+v", execErr)
	}
}
