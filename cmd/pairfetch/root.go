package main

import (
	"context"
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"
	"pairfetch/pkg/config"
	"pairfetch/pkg/errors"
	"pairfetch/pkg/logger"
	"pairfetch/pkg/ui"
)

var (
	// Version information
	version   = "1.0.0"
	gitCommit = "unknown"
	buildDate = "unknown"

	// Global flags
	configFile string
	logLevel   string
	noColor    bool
	quiet      bool
	verbose    bool
)

// rootCmd represents the base command when called without any subcommands.
// Given a manifest it behaves like fetch.
var rootCmd = &cobra.Command{
	Use:   "pairfetch [manifest.json]",
	Short: "Mirror the image pairs of a dataset manifest",
	Long: `pairfetch downloads the left and right image of every manifest entry into
a local directory, checks each image against an optional table of expected
perceptual hashes and keeps append-only logs so an interrupted run resumes
without requesting anything twice.

Every URL is attempted at most once per output directory: successes and
failures alike are recorded in {split}_checked_imgs.txt.`,
	Example: `  # Mirror the dev split into ./out
  pairfetch dev.json

  # Validate against reference hashes with a longer timeout
  pairfetch fetch train.json --hash-file hashes/train.json --timeout 5s

  # Show how far a split has come
  pairfetch status train.json`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
	Args:          cobra.MaximumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if noColor || !ui.IsTerminal(os.Stdout) {
			ui.SetColor(false)
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			return cmd.Help()
		}
		return runFetch(cmd, args)
	},
}

// Execute runs the command line and returns the process exit code
func Execute(ctx context.Context) int {
	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		ui.PrintError("Error", err.Error())
	}
	return exitCode(err)
}

// exitCode is 2 for malformed input, 1 for any other failure
func exitCode(err error) int {
	return errors.ExitCode(err)
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default is ./pairfetch.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress all output except errors")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log every request")

	addFetchFlags(rootCmd)

	rootCmd.SetVersionTemplate(`pairfetch {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// loadConfig resolves the configuration from every source and sets up logging
func loadConfig(flags map[string]interface{}) (*config.Config, error) {
	switch {
	case logLevel != "":
		flags["log-level"] = logLevel
	case verbose:
		flags["log-level"] = "debug"
	case quiet:
		flags["log-level"] = "error"
	}

	cfg, err := config.Load(configFile, flags)
	if err != nil {
		return nil, &errors.Error{Type: errors.ErrorTypeConfig, Message: "failed to load configuration", Index: -1, Err: err}
	}
	if !cfg.UI.Color {
		ui.SetColor(false)
	}

	if err := logger.Initialize(&cfg.Logging); err != nil {
		return nil, &errors.Error{Type: errors.ErrorTypeConfig, Message: "failed to initialize logger", Index: -1, Err: err}
	}

	return cfg, nil
}
