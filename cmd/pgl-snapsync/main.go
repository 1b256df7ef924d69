package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"github.com/paulschiretz/pgl-snapsync/cmd"
	"github.com/paulschiretz/pgl-snapsync/pkg/buildinfo"
	"github.com/paulschiretz/pgl-snapsync/pkg/flagparse"
	"github.com/paulschiretz/pgl-snapsync/pkg/plog"
)

// run encapsulates the main application logic and returns an error if something
// goes wrong, allowing the main function to handle exit codes.
func run(ctx context.Context, args []string) error {
	command, flagMap, err := flagparse.Parse(args)
	if err != nil {
		// -h on a subcommand has already printed its usage.
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}

	switch command {
	case flagparse.None:
		return nil
	case flagparse.Version:
		return cmd.RunVersion(buildinfo.Name, buildinfo.Version)
	}

	plog.Info("Starting "+buildinfo.Name, "version", buildinfo.Version, "command", command.String(), "pid", os.Getpid())
	switch command {
	case flagparse.Sync:
		return cmd.RunSync(ctx, flagMap)
	case flagparse.Prune:
		return cmd.RunPrune(ctx, flagMap)
	case flagparse.List:
		return cmd.RunList(ctx, flagMap)
	case flagparse.Init:
		return cmd.RunInit(ctx, flagMap)
	default:
		return fmt.Errorf("internal error: unknown command %d", command)
	}
}

func main() {
	// The context is canceled when an interrupt signal is received.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)

	err := run(ctx, os.Args[1:])
	stop()

	// Flush and close the log file, if one was opened.
	_ = plog.SetLogFile("")

	if err != nil {
		plog.Error(buildinfo.Name+" exited with error", "error", err)
		os.Exit(1)
	}
}
