package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"
	"pairfetch/pkg/config"
	"pairfetch/pkg/logger"
	"pairfetch/pkg/manifest"
	"pairfetch/pkg/pipeline"
	"pairfetch/pkg/ui"
)

var (
	// Fetch command flags
	hashFile   string
	outDir     string
	timeout    time.Duration
	userAgent  string
	rate       float64
	noProgress bool
)

// fetchCmd represents the fetch command
var fetchCmd = &cobra.Command{
	Use:   "fetch <manifest.json>",
	Short: "Download and verify every image pair of a manifest",
	Long: `Download the images referenced by a manifest, one request at a time.

Images are written to {out-dir}/images as {image_id}-img0.png and
{image_id}-img1.png. Failed requests are listed in
{out-dir}/logs/{split}_failed_imgs.txt and hash mismatches in
{out-dir}/logs/{split}_failed_hashes.txt, where split is the manifest's
file name without extension.`,
	Example: `  pairfetch fetch dev.json
  pairfetch fetch train.json --hash-file train_hashes.json --out-dir /data/nlvr
  pairfetch fetch test1.json --rate 5 --no-progress`,
	Args: cobra.ExactArgs(1),
	RunE: runFetch,
}

func init() {
	rootCmd.AddCommand(fetchCmd)
	addFetchFlags(fetchCmd)
}

func addFetchFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&hashFile, "hash-file", "", "JSON file mapping image filenames to expected hashes")
	cmd.Flags().StringVarP(&outDir, "out-dir", "o", "", "output directory (default \"out\")")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "time limit for each request including the download (default 2s)")
	cmd.Flags().StringVar(&userAgent, "user-agent", "", "User-Agent header sent with every request")
	cmd.Flags().Float64Var(&rate, "rate", 0, "maximum requests per second, 0 for no limit")
	cmd.Flags().BoolVar(&noProgress, "no-progress", false, "disable the progress line")
}

// fetchFlags collects the flags the user actually set
func fetchFlags(cmd *cobra.Command, manifestPath string) map[string]interface{} {
	flags := map[string]interface{}{"manifest": manifestPath}
	changed := cmd.Flags().Changed

	if changed("hash-file") {
		flags["hash-file"] = hashFile
	}
	if changed("out-dir") {
		flags["out-dir"] = outDir
	}
	if changed("timeout") {
		flags["timeout"] = timeout
	}
	if changed("user-agent") {
		flags["user-agent"] = userAgent
	}
	if changed("rate") {
		flags["rate"] = rate
	}
	if changed("no-progress") {
		flags["progress"] = !noProgress
	}
	return flags
}

func runFetch(cmd *cobra.Command, args []string) error {
	flags := fetchFlags(cmd, args[0])

	showProgress := !quiet && !verbose && ui.IsTerminal(os.Stderr)
	if showProgress && logLevel == "" {
		// keep the console quiet while the progress line is drawn
		flags["log-level"] = "error"
	}

	cfg, err := loadConfig(flags)
	if err != nil {
		return err
	}
	showProgress = showProgress && cfg.UI.Progress

	if !quiet {
		ui.PrintBanner()
		ui.PrintInfo("Manifest", cfg.Input.Manifest)
		if cfg.Input.HashFile != "" {
			ui.PrintInfo("Hash file", cfg.Input.HashFile)
		}
	}

	var opts []pipeline.Option
	opts = append(opts, pipeline.WithLogger(logger.GetLogger()))
	if showProgress {
		opts = append(opts, pipeline.WithProgress(ui.NewProgressDisplay(os.Stderr, manifest.SplitName(cfg.Input.Manifest))))
	}

	summary, err := pipeline.Execute(cmd.Context(), cfg, opts...)
	if summary.RunID != "" {
		ui.PrintSummary(os.Stdout, layoutOf(cfg), summary)
	}
	if err != nil {
		return err
	}

	if !quiet {
		ui.PrintSuccess("Done in " + ui.FormatDuration(summary.Duration))
	}
	return nil
}

func layoutOf(cfg *config.Config) ui.Layout {
	return ui.Layout{
		OutputDir: cfg.Output.BaseDirectory,
		ImagesDir: cfg.ImagesPath(),
		LogsDir:   cfg.LogsPath(),
	}
}
