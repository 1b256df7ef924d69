package flagparse

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/paulschiretz/pgl-snapsync/pkg/buildinfo"
	"github.com/paulschiretz/pgl-snapsync/pkg/transfer"
)

// cliFlags holds pointers to all possible command-line flags.
// Fields are pointers so we can distinguish between "not registered for this command" (nil)
// and "registered but not set by user" (non-nil pointer to zero value).
type cliFlags struct {
	// Global
	ConfigPath *string
	LogLevel   *string
	LogFile    *string
	Quiet      *bool
	DryRun     *bool
	Metrics    *bool

	// Job selection: Sync / Prune / List
	Jobs *string

	// Shared: Sync / Init
	Path              *string
	Sources           *string
	Excludes          *string
	Mirror            *bool
	Archive           *bool
	Snapshot          *bool
	Keep              *int
	AdditionalOptions *string
	Engine            *string
	Tool              *string
	Shell             *bool
	PreSyncHooks      *string
	PostSyncHooks     *string

	// Sync specific
	ParallelJobs *int
	FailFast     *bool

	// Init / Prune specific
	Force *bool

	// List specific
	Sort *string
}

func registerGlobalFlags(fs *flag.FlagSet, f *cliFlags) {
	f.ConfigPath = fs.String("config", "", "Path to the configuration file. Defaults to 'pgl-snapsync.yaml' in the working directory.")
	f.LogLevel = fs.String("log-level", "info", "Set the logging level: 'debug', 'notice', 'info', 'warn', 'error'.")
	f.LogFile = fs.String("log-file", "", "Additionally write logs to this file (rotated automatically).")
	f.Quiet = fs.Bool("quiet", false, "Suppress all console output below warnings.")
	f.DryRun = fs.Bool("dry-run", false, "Show what would be done without making any changes.")
	f.Metrics = fs.Bool("metrics", false, "Enable retention metrics and progress reporting.")
}

func registerJobSelectionFlags(fs *flag.FlagSet, f *cliFlags) {
	f.Jobs = fs.String("job", "", "Comma-separated list of job names to run. Defaults to all jobs.")
}

func registerJobFlags(fs *flag.FlagSet, f *cliFlags) {
	f.Path = fs.String("path", "", "Destination base directory. Replaces the configured jobs with a single job built from flags.")
	f.Sources = fs.String("sources", "", "Comma-separated list of source directories.")
	f.Excludes = fs.String("excludes", "", "Comma-separated list of exclude patterns applied to every source directory.")
	f.Mirror = fs.Bool("mirror", false, "Delete files in the destination that no longer exist in the source.")
	f.Archive = fs.Bool("archive", true, "Preserve permissions, times, symlinks and ownership.")
	f.Snapshot = fs.Bool("snapshot", false, "Write each run into a new timestamped directory, hard-linking unchanged files.")
	f.Keep = fs.Int("keep", 0, "Number of snapshots to keep. 0 disables retention.")
	f.AdditionalOptions = fs.String("options", "", "Additional options passed verbatim to the transfer tool.")
	f.Engine = fs.String("engine", "rsync", "Transfer engine: 'rsync' or 'robocopy'.")
	f.Tool = fs.String("tool", "", "Explicit path to the transfer tool executable.")
	f.Shell = fs.Bool("shell", false, "Run the transfer command through the system shell.")
	f.PreSyncHooks = fs.String("pre-sync-hooks", "", "Comma-separated list of commands to run before the sync.")
	f.PostSyncHooks = fs.String("post-sync-hooks", "", "Comma-separated list of commands to run after the sync.")
}

func registerSyncFlags(fs *flag.FlagSet, f *cliFlags) {
	registerJobSelectionFlags(fs, f)
	registerJobFlags(fs, f)
	f.ParallelJobs = fs.Int("parallel", 0, "Number of jobs to run concurrently.")
	f.FailFast = fs.Bool("fail-fast", false, "Stop all jobs on the first failure.")
}

func registerPruneFlags(fs *flag.FlagSet, f *cliFlags) {
	registerJobSelectionFlags(fs, f)
	f.Keep = fs.Int("keep", 0, "Override the number of snapshots to keep.")
	f.Force = fs.Bool("force", false, "Bypass confirmation prompts.")
}

func registerListFlags(fs *flag.FlagSet, f *cliFlags) {
	registerJobSelectionFlags(fs, f)
	f.Sort = fs.String("sort", "desc", "Sort order of the listing: 'desc' (newest first) or 'asc'.")
}

func registerInitFlags(fs *flag.FlagSet, f *cliFlags) {
	registerJobFlags(fs, f)
	f.Force = fs.Bool("force", false, "Overwrite an existing configuration file.")
}

var commandDescriptions = map[Command]string{
	Sync:  "Synchronize the configured directories, optionally into a new snapshot.",
	Prune: "Apply snapshot retention without synchronizing.",
	List:  "List the snapshots of every snapshot job, newest first.",
	Init:  "Write a new configuration file.",
}

var commandRegistrars = map[Command]func(fs *flag.FlagSet, f *cliFlags){
	Sync:  registerSyncFlags,
	Prune: registerPruneFlags,
	List:  registerListFlags,
	Init:  registerInitFlags,
}

// Parse parses the provided arguments (usually os.Args[1:]) and returns the command and flag map.
func Parse(args []string) (Command, map[string]interface{}, error) {
	// If no arguments provided, print help and exit.
	if len(args) == 0 {
		fs := flag.NewFlagSet("main", flag.ContinueOnError)
		printTopLevelUsage(fs)
		return None, nil, nil
	}

	cmdStr := strings.ToLower(args[0])

	if cmdStr == "help" || cmdStr == "-h" || cmdStr == "-help" || cmdStr == "--help" {
		fs := flag.NewFlagSet("main", flag.ContinueOnError)
		printTopLevelUsage(fs)
		return None, nil, nil
	}

	command, err := ParseCommand(cmdStr)
	if err != nil {
		return None, nil, err
	}

	if command == Version {
		return command, nil, nil
	}

	register, ok := commandRegistrars[command]
	if !ok {
		return None, nil, fmt.Errorf("unknown command: %s", args[0])
	}

	f := &cliFlags{}
	fs := flag.NewFlagSet(command.String(), flag.ContinueOnError)
	registerGlobalFlags(fs, f)
	register(fs, f)

	fs.Usage = func() {
		printSubcommandUsage(command, commandDescriptions[command], fs)
	}

	if err := fs.Parse(args[1:]); err != nil {
		return command, nil, err
	}
	if fs.NArg() > 0 {
		return command, nil, fmt.Errorf("unexpected arguments for %s: %s", command, strings.Join(fs.Args(), " "))
	}

	flagMap, err := flagsToMap(fs, f)
	return command, flagMap, err
}

func flagsToMap(fs *flag.FlagSet, f *cliFlags) (map[string]interface{}, error) {
	// Create a map of the flags that were explicitly set by the user, along with their values.
	// This map is used to selectively override the base configuration.
	usedFlags := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { usedFlags[f.Name] = true })

	flagMap := make(map[string]any)

	addIfUsed(flagMap, usedFlags, "config", f.ConfigPath)
	addIfUsed(flagMap, usedFlags, "log-level", f.LogLevel)
	addIfUsed(flagMap, usedFlags, "log-file", f.LogFile)
	addIfUsed(flagMap, usedFlags, "quiet", f.Quiet)
	addIfUsed(flagMap, usedFlags, "dry-run", f.DryRun)
	addIfUsed(flagMap, usedFlags, "metrics", f.Metrics)

	addIfUsed(flagMap, usedFlags, "path", f.Path)
	addIfUsed(flagMap, usedFlags, "mirror", f.Mirror)
	addIfUsed(flagMap, usedFlags, "archive", f.Archive)
	addIfUsed(flagMap, usedFlags, "snapshot", f.Snapshot)
	addIfUsed(flagMap, usedFlags, "keep", f.Keep)
	addIfUsed(flagMap, usedFlags, "tool", f.Tool)
	addIfUsed(flagMap, usedFlags, "shell", f.Shell)

	addIfUsed(flagMap, usedFlags, "parallel", f.ParallelJobs)
	addIfUsed(flagMap, usedFlags, "fail-fast", f.FailFast)
	addIfUsed(flagMap, usedFlags, "force", f.Force)
	addIfUsed(flagMap, usedFlags, "sort", f.Sort)

	if f.Keep != nil && usedFlags["keep"] && *f.Keep < 0 {
		return nil, fmt.Errorf("invalid value for -keep: %d. Must not be negative", *f.Keep)
	}
	if f.ParallelJobs != nil && usedFlags["parallel"] && *f.ParallelJobs < 1 {
		return nil, fmt.Errorf("invalid value for -parallel: %d. Must be at least 1", *f.ParallelJobs)
	}

	if f.Engine != nil && usedFlags["engine"] {
		engine, err := transfer.ParseEngine(strings.ToLower(*f.Engine))
		if err != nil {
			return nil, err
		}
		flagMap["engine"] = engine
	}

	// Handle flags that require parsing/validation.
	addParsedIfUsed(flagMap, usedFlags, "job", f.Jobs, ParseExcludeList)
	addParsedIfUsed(flagMap, usedFlags, "sources", f.Sources, ParseExcludeList)
	addParsedIfUsed(flagMap, usedFlags, "excludes", f.Excludes, ParseExcludeList)
	addParsedIfUsed(flagMap, usedFlags, "options", f.AdditionalOptions, strings.Fields)
	addParsedIfUsed(flagMap, usedFlags, "pre-sync-hooks", f.PreSyncHooks, ParseCmdList)
	addParsedIfUsed(flagMap, usedFlags, "post-sync-hooks", f.PostSyncHooks, ParseCmdList)

	return flagMap, nil
}

// addIfUsed adds the value of ptr to flagMap if ptr is not nil and the flag was set.
func addIfUsed[T any](flagMap map[string]interface{}, usedFlags map[string]bool, name string, ptr *T) {
	if ptr != nil && usedFlags[name] {
		flagMap[name] = *ptr
	}
}

// addParsedIfUsed adds the parsed value of ptr to flagMap if ptr is not nil and the flag was set.
func addParsedIfUsed(flagMap map[string]interface{}, usedFlags map[string]bool, name string, ptr *string, parser func(string) []string) {
	if ptr != nil && usedFlags[name] {
		flagMap[name] = parser(*ptr)
	}
}

// printTopLevelUsage prints the main help message.
func printTopLevelUsage(fs *flag.FlagSet) {

	execName := filepath.Base(os.Args[0])
	fmt.Fprintf(fs.Output(), "%s(%s) ", buildinfo.Name, buildinfo.Version)
	fmt.Fprintf(fs.Output(), "A local directory synchronizer with hard-link snapshots.\n\n")
	fmt.Fprintf(fs.Output(), "Usage: %s <command> [flags]\n\n", execName)
	fmt.Fprintf(fs.Output(), "Commands:\n")
	fmt.Fprintf(fs.Output(), "  sync        Synchronize the configured directories\n")
	fmt.Fprintf(fs.Output(), "  prune       Apply snapshot retention without synchronizing\n")
	fmt.Fprintf(fs.Output(), "  list        List existing snapshots\n")
	fmt.Fprintf(fs.Output(), "  init        Write a new configuration file\n")
	fmt.Fprintf(fs.Output(), "  version     Print the application version\n")
	fmt.Fprintf(fs.Output(), "\nRun '%s <command> -help' for more information on a command.\n", execName)
}

// printSubcommandUsage prints the help message for a specific subcommand.
func printSubcommandUsage(command Command, desc string, fs *flag.FlagSet) {

	execName := filepath.Base(os.Args[0])
	fmt.Fprintf(fs.Output(), "%s(%s) ", buildinfo.Name, buildinfo.Version)
	fmt.Fprintf(fs.Output(), "A local directory synchronizer with hard-link snapshots.\n\n")
	fmt.Fprintf(fs.Output(), "Usage of the %s command: %s %s [flags]\n\n", command, execName, command)
	fmt.Fprintf(fs.Output(), "%s\n\n", desc)
	fmt.Fprintf(fs.Output(), "Flags:\n")
	fs.PrintDefaults()
}

// ParseCmdList parses a comma-separated list of shell-like commands.
// It preserves quotes and handles backslash escapes so they can be interpreted by the shell.
func ParseCmdList(s string) []string {
	return parseListInternal(s, true, true)
}

// ParseExcludeList parses a comma-separated list of paths or patterns.
// It removes quotes, as they are only used for grouping items with spaces.
// It treats backslashes as literal characters for Windows path compatibility.
func ParseExcludeList(s string) []string {
	return parseListInternal(s, false, false)
}

// parseListInternal is the core implementation for parsing a comma-separated list. It supports
// both single (') and double (") quotes to allow items to contain commas or spaces.
// - `keepQuotes`: Preserves quote characters in the output.
// - `handleEscapes`: Treats backslashes as escape characters.
func parseListInternal(s string, keepQuotes, handleEscapes bool) []string {
	var list []string
	var current strings.Builder
	var quoteChar rune

	appendItem := func() {
		trimmed := strings.TrimSpace(current.String())
		if trimmed != "" {
			list = append(list, trimmed)
		}
		current.Reset()
	}

	var isEscaped bool
	for _, r := range s {
		if isEscaped {
			current.WriteRune(r)
			isEscaped = false
			continue
		}

		switch {
		case r == '\\' && handleEscapes:
			isEscaped = true
			// For commands, we also keep the backslash for the shell to interpret.
			current.WriteRune(r)
		case r == '\'' || r == '"':
			if quoteChar == 0 {
				quoteChar = r
				if keepQuotes {
					current.WriteRune(r)
				}
			} else if quoteChar == r {
				quoteChar = 0
				if keepQuotes {
					current.WriteRune(r)
				}
			} else {
				current.WriteRune(r)
			}
		case r == ',' && quoteChar == 0:
			appendItem()
		default:
			current.WriteRune(r)
		}
	}
	appendItem()
	return list
}
