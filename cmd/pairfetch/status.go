package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"pairfetch/pkg/checkpoint"
	"pairfetch/pkg/failures"
	"pairfetch/pkg/manifest"
	"pairfetch/pkg/pipeline"
	"pairfetch/pkg/storage"
	"pairfetch/pkg/ui"
)

// statusCmd represents the status command
var statusCmd = &cobra.Command{
	Use:   "status <manifest.json>",
	Short: "Show the progress of a split without fetching anything",
	Long: `Read the logs a previous run left in the output directory and report
how many of the manifest's URLs were already attempted, how the failures
break down and how many images did not match their expected hash.`,
	Example: `  pairfetch status train.json
  pairfetch status dev.json --out-dir /data/nlvr`,
	Args: cobra.ExactArgs(1),
	RunE: runStatus,
}

var statusOutDir string

func init() {
	rootCmd.AddCommand(statusCmd)
	statusCmd.Flags().StringVarP(&statusOutDir, "out-dir", "o", "", "output directory of the run (default \"out\")")
}

func runStatus(cmd *cobra.Command, args []string) error {
	flags := map[string]interface{}{"manifest": args[0]}
	if cmd.Flags().Changed("out-dir") {
		flags["out-dir"] = statusOutDir
	}
	cfg, err := loadConfig(flags)
	if err != nil {
		return err
	}

	entries, err := manifest.Load(cfg.Input.Manifest)
	if err != nil {
		return err
	}

	split := manifest.SplitName(cfg.Input.Manifest)
	paths := pipeline.PathsFor(cfg.LogsPath(), split)

	info, err := checkpoint.GetCheckpointInfo(paths.Checked)
	if err != nil {
		return err
	}
	checked, err := checkpoint.Load(paths.Checked)
	if err != nil {
		return err
	}

	urls := make(map[string]struct{}, 2*len(entries))
	for _, e := range entries {
		for _, t := range e.Targets() {
			urls[t.URL] = struct{}{}
		}
	}
	remaining := 0
	for u := range urls {
		if _, ok := checked[u]; !ok {
			remaining++
		}
	}

	kinds, err := failures.Tally(paths.Failed)
	if err != nil {
		return err
	}
	mismatches, err := storage.ReadLines(paths.Mismatches)
	if err != nil {
		return err
	}

	ui.PrintInfo("Split", split)
	ui.PrintInfo("Entries", fmt.Sprintf("%d (%d unique URLs)", len(entries), len(urls)))
	if info.Exists {
		ui.PrintInfo("Attempted", fmt.Sprintf("%d, last updated %s", info.Attempted, info.UpdatedAt.Format("2006-01-02 15:04:05")))
	} else {
		ui.PrintInfo("Attempted", "0, no checkpoint yet")
	}
	ui.PrintInfo("Remaining", fmt.Sprintf("%d", remaining))
	ui.PrintInfo("Hash mismatches", fmt.Sprintf("%d", len(mismatches)))
	ui.PrintCounts(os.Stdout, "Failures by kind", kinds)
	return nil
}
