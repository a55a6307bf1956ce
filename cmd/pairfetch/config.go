package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
	"pairfetch/pkg/config"
	"pairfetch/pkg/errors"
	"pairfetch/pkg/ui"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration files",
	Long: `Manage pairfetch configuration files.

Configuration can be loaded from:
  - Command line flags (highest priority)
  - Environment variables (PAIRFETCH_*)
  - Configuration file
  - Default values (lowest priority)`,
}

// initCmd represents the config init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create an example configuration file",
	Long: `Create an example configuration file with all available options.

The file will be created in the current directory as 'pairfetch.yaml'
unless a different path is specified with the --config flag.`,
	RunE: runConfigInit,
}

// showCmd represents the config show command
var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long: `Show the effective configuration after merging the config file,
environment variables and defaults.`,
	RunE: runConfigShow,
}

// validateCmd represents the config validate command
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	Long: `Validate a configuration file for syntax errors and invalid values.

This command checks:
  - YAML syntax
  - Value types and ranges
  - That the manifest and hash file, when set, can be read`,
	RunE: runConfigValidate,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(initCmd)
	configCmd.AddCommand(showCmd)
	configCmd.AddCommand(validateCmd)
}

const exampleConfig = `# pairfetch configuration file
#
# Every option can also be set through environment variables prefixed with
# PAIRFETCH_, for example PAIRFETCH_OUT_DIR or PAIRFETCH_TIMEOUT.

input:
  # Manifest to mirror, usually given on the command line instead
  manifest: ""

  # JSON object mapping image filenames to expected perceptual hashes.
  # A missing file only disables verification.
  hash_file: ""

output:
  # Root of everything a run writes
  base_directory: "out"
  images_dir: "images"
  logs_dir: "logs"

  # Default destination of 'pairfetch stitch'
  stitched_dir: "stitched_images"

fetch:
  # Limit for one request, body included
  timeout: 2s

  # Identifying User-Agent header. Leave commented out to send the default
  # desktop browser string; an empty value is rejected.
  # user_agent: "pairfetch/1.0"

  # Bytes written per chunk while streaming a body to disk
  chunk_size: 1024

  max_redirects: 30

  # 0 disables pacing
  requests_per_second: 0

ui:
  progress: true
  color: true

logging:
  # debug, info, warn, error or disabled
  level: "info"

  # Optional JSON log file, written in addition to the console
  file: ""
`

func runConfigInit(cmd *cobra.Command, args []string) error {
	configPath := configFile
	if configPath == "" {
		configPath = "pairfetch.yaml"
	}

	if _, err := os.Stat(configPath); err == nil {
		fmt.Println("\nTo overwrite, first remove the existing file:")
		fmt.Printf("  rm %s\n", configPath)
		return &errors.Error{Type: errors.ErrorTypeConfig, Message: "configuration file already exists: " + configPath, Index: -1}
	}

	if err := os.WriteFile(configPath, []byte(exampleConfig), 0644); err != nil {
		return &errors.Error{Type: errors.ErrorTypeConfig, Message: "failed to create configuration file", Index: -1, Err: err}
	}

	ui.PrintSuccess(fmt.Sprintf("Created configuration file: %s", configPath))
	fmt.Println("\nNext steps:")
	fmt.Printf("  1. Adjust the output directory and timeout in %s\n", configPath)
	fmt.Println("  2. Run: pairfetch fetch <manifest.json>")
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile, map[string]interface{}{"log-level": logLevel})
	if err != nil {
		return &errors.Error{Type: errors.ErrorTypeConfig, Message: "failed to load configuration", Index: -1, Err: err}
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal configuration: %w", err)
	}

	ui.PrintHighlight("Current configuration:")
	fmt.Println()
	fmt.Print(string(data))
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	if configFile != "" {
		ui.PrintInfo("Validating", configFile)
	}

	cfg, err := config.Load(configFile, nil)
	if err != nil {
		return &errors.Error{Type: errors.ErrorTypeConfig, Message: "invalid configuration", Index: -1, Err: err}
	}

	var problems []error
	for label, path := range map[string]string{
		"manifest":  cfg.Input.Manifest,
		"hash file": cfg.Input.HashFile,
	} {
		if path == "" {
			continue
		}
		if _, err := os.Stat(path); err != nil {
			problems = append(problems, fmt.Errorf("%s: %w", label, err))
		}
	}
	if len(problems) > 0 {
		return &errors.Error{Type: errors.ErrorTypeConfig, Message: "configured inputs are not readable", Index: -1, Err: errors.Join(problems...)}
	}

	ui.PrintSuccess("Configuration is valid")
	ui.PrintInfo("Images", cfg.ImagesPath())
	ui.PrintInfo("Logs", cfg.LogsPath())
	ui.PrintInfo("Timeout", cfg.Fetch.Timeout.String())
	return nil
}
