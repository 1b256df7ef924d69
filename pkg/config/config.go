package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/paulschiretz/pgl-snapsync/pkg/buildinfo"
	"github.com/paulschiretz/pgl-snapsync/pkg/flagparse"
	"github.com/paulschiretz/pgl-snapsync/pkg/plog"
	"github.com/paulschiretz/pgl-snapsync/pkg/transfer"
	"github.com/paulschiretz/pgl-snapsync/pkg/util"
)

// ConfigFileName is the name of the configuration file looked up in the
// working directory when no -config flag is given.
const ConfigFileName = "pgl-snapsync.yaml"

type HooksConfig struct {
	// Note: omitempty is intentionally not used so that the hook fields
	// appear in the generated config file for better discoverability.
	// PreSync is a list of shell commands to execute before the transfer begins.
	// SECURITY: These commands are executed as provided. Ensure they are from a trusted source.
	PreSync []string `yaml:"preSync"`
	// PostSync is a list of shell commands to execute after the transfer, even if it failed.
	// SECURITY: These commands are executed as provided. Ensure they are from a trusted source.
	PostSync []string `yaml:"postSync"`
}

// JobConfig describes one destination and the directories synchronized into it.
type JobConfig struct {
	Name              string              `yaml:"name"`
	Path              string              `yaml:"path"`
	Engine            transfer.Engine     `yaml:"engine"`
	Tool              string              `yaml:"tool"`
	Mirror            bool                `yaml:"mirror"`
	Archive           bool                `yaml:"archive"`
	Snapshot          bool                `yaml:"snapshot"`
	KeepSnapshots     int                 `yaml:"keepSnapshots"`
	AdditionalOptions transfer.RawOptions `yaml:"additionalOptions"`
	Shell             bool                `yaml:"shell"`
	Directories       []transfer.Source   `yaml:"directories"`
	Hooks             HooksConfig         `yaml:"hooks"`
}

var jobFields = map[string]bool{
	"name": true, "path": true, "engine": true, "tool": true, "mirror": true,
	"archive": true, "snapshot": true, "keepSnapshots": true, "additionalOptions": true,
	"shell": true, "directories": true, "hooks": true,
}

// NewDefaultJob returns a job with archive mode on and everything else off.
func NewDefaultJob() JobConfig {
	return JobConfig{
		Engine:            transfer.Rsync,
		Archive:           true,
		AdditionalOptions: transfer.RawOptions{},
		Directories:       []transfer.Source{},
		Hooks: HooksConfig{
			PreSync:  []string{},
			PostSync: []string{},
		},
	}
}

// UnmarshalYAML starts from NewDefaultJob so that omitted fields keep their
// defaults. Node.Decode does not inherit the decoder's KnownFields setting,
// so unknown keys are rejected here.
func (j *JobConfig) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: job must be a mapping", value.Line)
	}
	for i := 0; i+1 < len(value.Content); i += 2 {
		key := value.Content[i]
		if !jobFields[key.Value] {
			return fmt.Errorf("line %d: field %s not found in job", key.Line, key.Value)
		}
	}

	type plain JobConfig
	p := plain(NewDefaultJob())
	if err := value.Decode(&p); err != nil {
		return err
	}
	*j = JobConfig(p)
	return nil
}

// DisplayName is the job name, or its path when the job is unnamed.
func (j JobConfig) DisplayName() string {
	if j.Name != "" {
		return j.Name
	}
	return j.Path
}

type RuntimeConfig struct {
	ConfigPath string
	DryRun     bool
	Quiet      bool
	Force      bool
	// Jobs restricts the run to the named jobs. Empty means all.
	Jobs []string
}

type Config struct {
	Version      string        `yaml:"version"`
	LogLevel     string        `yaml:"logLevel"`
	LogFile      string        `yaml:"logFile"`
	ParallelJobs int           `yaml:"parallelJobs"`
	FailFast     bool          `yaml:"failFast"`
	Metrics      bool          `yaml:"metrics"`
	Jobs         []JobConfig   `yaml:"jobs"`
	Runtime      RuntimeConfig `yaml:"-"` // Never added to config file
}

// NewDefault creates and returns a Config struct with sensible default values.
// It carries no jobs; they must come from the config file or from flags.
func NewDefault() Config {
	return Config{
		Version:      buildinfo.Version,
		LogLevel:     "info",
		LogFile:      "",
		ParallelJobs: 1,
		FailFast:     false,
		Metrics:      true,
		Jobs:         []JobConfig{},
	}
}

// DefaultPath returns the config file path in the current working directory.
func DefaultPath() (string, error) {
	wd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("could not determine working directory: %w", err)
	}
	return filepath.Join(wd, ConfigFileName), nil
}

// Load reads the configuration from configPath. An empty path means
// ConfigFileName in the working directory.
// If the file doesn't exist, it returns the default config without an error.
// If the file exists but fails to parse, it returns an error and a zero-value config.
func Load(configPath string) (Config, error) {
	if configPath == "" {
		var err error
		if configPath, err = DefaultPath(); err != nil {
			return Config{}, err
		}
	}

	absConfigPath, err := util.AbsPath(configPath)
	if err != nil {
		return Config{}, fmt.Errorf("could not determine absolute path for config file %s: %w", configPath, err)
	}

	file, err := os.Open(absConfigPath)
	if err != nil {
		if os.IsNotExist(err) {
			config := NewDefault()
			config.Runtime.ConfigPath = absConfigPath
			return config, nil // Config file doesn't exist, which is a normal case.
		}
		return Config{}, fmt.Errorf("error opening config file %s: %w", absConfigPath, err)
	}
	defer file.Close()

	plog.Info("Loading configuration", "path", absConfigPath)
	// Start with default values, then overwrite with the file's content.
	// NOTE: if config.Version differs from buildinfo.Version we can add a migration step here.
	config := NewDefault()
	decoder := yaml.NewDecoder(file)
	decoder.KnownFields(true)
	if err := decoder.Decode(&config); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("error parsing config file %s: %w", absConfigPath, err)
	}

	config.Runtime.ConfigPath = absConfigPath
	config.Version = buildinfo.Version
	return config, nil
}

const generatedHeader = `# %s configuration.
# Each job synchronizes its directories into path. With snapshot enabled every
# run writes a new timestamped directory below path and hard-links unchanged
# files against the previous snapshot. keepSnapshots > 0 deletes the oldest
# snapshots after a successful run. Exclude patterns are passed to the
# transfer tool verbatim and use its pattern syntax.
`

// Generate creates or overwrites the configuration file at configPath.
func Generate(configPath string, configToGenerate Config) error {
	absConfigPath, err := util.AbsPath(configPath)
	if err != nil {
		return fmt.Errorf("could not determine absolute path for config file %s: %w", configPath, err)
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, generatedHeader, buildinfo.Name)
	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(2)
	if err := encoder.Encode(configToGenerate); err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}
	if err := encoder.Close(); err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(absConfigPath), util.UserWritableDirPerms); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(absConfigPath, buf.Bytes(), util.UserWritableFilePerms); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	plog.Info("Successfully saved config file", "path", absConfigPath)
	return nil
}

// Validate checks the configuration for logical errors and inconsistencies.
// Jobs without directories pass; the transfer builder rejects them at run time.
func (c *Config) Validate() error {
	if _, err := plog.LevelFromString(c.LogLevel); err != nil {
		return fmt.Errorf("logLevel: %w", err)
	}
	if c.ParallelJobs < 1 {
		return fmt.Errorf("parallelJobs must be at least 1")
	}
	if len(c.Jobs) == 0 {
		return fmt.Errorf("no jobs configured. Add a job to %s or pass -path and -sources", ConfigFileName)
	}

	names := make(map[string]bool, len(c.Jobs))
	for i, job := range c.Jobs {
		field := fmt.Sprintf("jobs[%d]", i)
		if job.Name != "" {
			field = fmt.Sprintf("jobs[%s]", job.Name)
		}

		if job.Name == "" && len(c.Jobs) > 1 {
			return fmt.Errorf("%s.name cannot be empty when more than one job is configured", field)
		}
		if names[job.Name] {
			return fmt.Errorf("%s.name must be unique", field)
		}
		names[job.Name] = true

		if strings.TrimSpace(job.Path) == "" {
			return fmt.Errorf("%s.path cannot be empty", field)
		}
		if _, err := transfer.ParseEngine(job.Engine.String()); err != nil {
			return fmt.Errorf("%s.engine: %w", field, err)
		}
		if job.KeepSnapshots < 0 {
			return fmt.Errorf("%s.keepSnapshots cannot be negative", field)
		}
		if job.KeepSnapshots > 0 && !job.Snapshot {
			return fmt.Errorf("%s.keepSnapshots requires snapshot to be enabled", field)
		}
		if job.Engine == transfer.Robocopy && len(job.Directories) > 1 {
			return fmt.Errorf("%s.directories: robocopy supports a single directory per job", field)
		}
		for d, dir := range job.Directories {
			if strings.TrimSpace(dir.Path) == "" {
				return fmt.Errorf("%s.directories[%d].path cannot be empty", field, d)
			}
		}
	}

	for _, name := range c.Runtime.Jobs {
		if !names[name] {
			return fmt.Errorf("unknown job %q", name)
		}
	}

	// Parallel jobs writing to the same base path would race on the
	// snapshot listing and on retention.
	if c.ParallelJobs > 1 {
		seen := make(map[string]string, len(c.Jobs))
		for _, job := range c.SelectedJobs() {
			absPath, err := util.AbsPath(job.Path)
			if err != nil {
				return fmt.Errorf("could not expand path of job %s: %w", job.DisplayName(), err)
			}
			if other, ok := seen[absPath]; ok {
				return fmt.Errorf("jobs %s and %s share the path %s; this is not allowed with parallelJobs > 1", other, job.DisplayName(), absPath)
			}
			seen[absPath] = job.DisplayName()
		}
	}
	return nil
}

// SelectedJobs returns the jobs named in Runtime.Jobs, or all jobs when none
// are named, in configuration order.
func (c *Config) SelectedJobs() []JobConfig {
	if len(c.Runtime.Jobs) == 0 {
		return c.Jobs
	}
	var selected []JobConfig
	for _, job := range c.Jobs {
		if slices.Contains(c.Runtime.Jobs, job.Name) {
			selected = append(selected, job)
		}
	}
	return selected
}

// LogSummary prints a user-friendly summary of the configuration.
func (c *Config) LogSummary() {
	logArgs := []interface{}{
		"log_level", c.LogLevel,
		"dry_run", c.Runtime.DryRun,
		"parallel_jobs", c.ParallelJobs,
		"fail_fast", c.FailFast,
		"metrics", c.Metrics,
	}
	if c.LogFile != "" {
		logArgs = append(logArgs, "log_file", c.LogFile)
	}
	if len(c.Runtime.Jobs) > 0 {
		logArgs = append(logArgs, "selected_jobs", strings.Join(c.Runtime.Jobs, ", "))
	}
	plog.Info("Configuration loaded", logArgs...)

	for _, job := range c.SelectedJobs() {
		jobArgs := []interface{}{
			"name", job.Name,
			"path", job.Path,
			"engine", job.Engine,
			"mirror", job.Mirror,
			"archive", job.Archive,
		}
		if job.Tool != "" {
			jobArgs = append(jobArgs, "tool", job.Tool)
		}
		if job.Snapshot {
			snapshotSummary := "enabled (keep: all)"
			if job.KeepSnapshots > 0 {
				snapshotSummary = fmt.Sprintf("enabled (keep: %d)", job.KeepSnapshots)
			}
			jobArgs = append(jobArgs, "snapshot", snapshotSummary)
		}
		dirs := make([]string, 0, len(job.Directories))
		for _, d := range job.Directories {
			dirs = append(dirs, d.Path)
		}
		jobArgs = append(jobArgs, "directories", strings.Join(dirs, ", "))
		if len(job.AdditionalOptions) > 0 {
			jobArgs = append(jobArgs, "additional_options", strings.Join(job.AdditionalOptions, " "))
		}
		if len(job.Hooks.PreSync) > 0 {
			jobArgs = append(jobArgs, "pre_sync_hooks", strings.Join(job.Hooks.PreSync, "; "))
		}
		if len(job.Hooks.PostSync) > 0 {
			jobArgs = append(jobArgs, "post_sync_hooks", strings.Join(job.Hooks.PostSync, "; "))
		}
		plog.Info("Job configured", jobArgs...)
	}
}

// MergeConfigWithFlags overlays the configuration values from flags on top of a base
// configuration. It iterates over the setFlags map, which contains only the flags
// explicitly provided by the user on the command line.
//
// -path replaces the configured jobs with a single unnamed job. All other job
// flags apply to every job.
func MergeConfigWithFlags(command flagparse.Command, base Config, setFlags map[string]any) Config {
	merged := base
	merged.Jobs = slices.Clone(base.Jobs)
	merged.Runtime.Jobs = slices.Clone(base.Runtime.Jobs)

	// Order matters for these: the ad-hoc job must exist before any other job
	// flag is applied, and excludes apply to the final directory list.
	if v, ok := setFlags["path"]; ok {
		job := NewDefaultJob()
		job.Path = v.(string)
		merged.Jobs = []JobConfig{job}
		merged.Runtime.Jobs = nil
	}
	if v, ok := setFlags["sources"]; ok {
		for i := range merged.Jobs {
			var dirs []transfer.Source
			for _, p := range v.([]string) {
				dirs = append(dirs, transfer.Source{Path: p})
			}
			merged.Jobs[i].Directories = dirs
		}
	}
	if v, ok := setFlags["excludes"]; ok {
		for i := range merged.Jobs {
			dirs := make([]transfer.Source, len(merged.Jobs[i].Directories))
			for d, dir := range merged.Jobs[i].Directories {
				dirs[d] = transfer.Source{Path: dir.Path, Excludes: slices.Clone(v.([]string))}
			}
			merged.Jobs[i].Directories = dirs
		}
	}

	for name, value := range setFlags {
		switch name {
		case "path", "sources", "excludes":
			// Handled above.
		case "config":
			merged.Runtime.ConfigPath = value.(string)
		case "log-level":
			merged.LogLevel = value.(string)
		case "log-file":
			merged.LogFile = value.(string)
		case "quiet":
			merged.Runtime.Quiet = value.(bool)
		case "dry-run":
			merged.Runtime.DryRun = value.(bool)
		case "metrics":
			merged.Metrics = value.(bool)
		case "fail-fast":
			merged.FailFast = value.(bool)
		case "parallel":
			merged.ParallelJobs = value.(int)
		case "force":
			merged.Runtime.Force = value.(bool)
		case "job":
			if _, adHoc := setFlags["path"]; !adHoc {
				merged.Runtime.Jobs = value.([]string)
			}
		case "keep":
			// Applied after the loop, once -snapshot is known.
		case "mirror", "archive", "snapshot", "engine", "tool", "shell", "options", "pre-sync-hooks", "post-sync-hooks":
			switch command {
			case flagparse.Sync, flagparse.Init:
				for i := range merged.Jobs {
					applyJobFlag(&merged.Jobs[i], name, value)
				}
			default:
			}
		default:
			plog.Debug("unhandled flag in MergeConfigWithFlags", "flag", name)
		}
	}

	// -keep only reaches configured jobs that take snapshots. An ad-hoc job
	// always receives it so that validation can reject -keep without -snapshot.
	if v, ok := setFlags["keep"]; ok {
		_, adHoc := setFlags["path"]
		for i := range merged.Jobs {
			if adHoc || merged.Jobs[i].Snapshot {
				merged.Jobs[i].KeepSnapshots = v.(int)
			}
		}
	}
	return merged
}

func applyJobFlag(job *JobConfig, name string, value any) {
	switch name {
	case "mirror":
		job.Mirror = value.(bool)
	case "archive":
		job.Archive = value.(bool)
	case "snapshot":
		job.Snapshot = value.(bool)
	case "engine":
		job.Engine = value.(transfer.Engine)
	case "tool":
		job.Tool = value.(string)
	case "shell":
		job.Shell = value.(bool)
	case "options":
		job.AdditionalOptions = transfer.RawOptions(value.([]string))
	case "pre-sync-hooks":
		job.Hooks.PreSync = value.([]string)
	case "post-sync-hooks":
		job.Hooks.PostSync = value.([]string)
	}
}
