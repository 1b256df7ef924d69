package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/paulschiretz/pgl-snapsync/pkg/buildinfo"
	"github.com/paulschiretz/pgl-snapsync/pkg/config"
	"github.com/paulschiretz/pgl-snapsync/pkg/flagparse"
	"github.com/paulschiretz/pgl-snapsync/pkg/plog"
	"github.com/paulschiretz/pgl-snapsync/pkg/transfer"
	"github.com/paulschiretz/pgl-snapsync/pkg/util"
)

// RunInit handles the logic for the 'init' command. It writes a new config
// file built from the defaults and the job flags. Without -path a sample job
// is written.
func RunInit(ctx context.Context, flagMap map[string]any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	configPath, _ := flagMap["config"].(string)
	if configPath == "" {
		var err error
		if configPath, err = config.DefaultPath(); err != nil {
			return err
		}
	}
	absConfigPath, err := util.AbsPath(configPath)
	if err != nil {
		return fmt.Errorf("could not determine absolute path for config file %s: %w", configPath, err)
	}

	// Create a config from defaults merged with user flags.
	baseConfig := config.NewDefault()
	baseConfig.Runtime.ConfigPath = absConfigPath
	runConfig := config.MergeConfigWithFlags(flagparse.Init, baseConfig, flagMap)

	if len(runConfig.Jobs) == 0 {
		job := config.NewDefaultJob()
		job.Name = "default"
		job.Path = "./snapshots"
		job.Directories = []transfer.Source{{Path: "./data"}}
		runConfig.Jobs = []config.JobConfig{job}
	}

	// CRITICAL: Validate the config before it is written
	if err := runConfig.Validate(); err != nil {
		return err
	}

	if _, err := os.Stat(absConfigPath); err == nil && !runConfig.Runtime.Force {
		return fmt.Errorf("configuration file already exists at %s. Use -force to overwrite it", absConfigPath)
	}

	if runConfig.Runtime.DryRun {
		plog.Info("[DRY RUN] Would write configuration file", "path", absConfigPath, "jobs", len(runConfig.Jobs))
		return nil
	}

	startTime := time.Now()
	if err := config.Generate(absConfigPath, runConfig); err != nil {
		return fmt.Errorf("failed to generate config file: %w", err)
	}

	duration := time.Since(startTime).Round(time.Millisecond)
	plog.Info(buildinfo.Name+" configuration successfully initialized.", "duration", duration)
	return nil
}

// PromptForConfirmation prompts the user for a yes/no response.
func PromptForConfirmation(prompt string, defaultYes bool) bool {
	suffix := "[y/N]"
	if defaultYes {
		suffix = "[Y/n]"
	}
	fmt.Printf("%s %s: ", prompt, suffix)

	var response string
	_, _ = fmt.Scanln(&response)
	response = strings.ToLower(strings.TrimSpace(response))

	if response == "" {
		return defaultYes
	}
	return response == "y" || response == "yes"
}
