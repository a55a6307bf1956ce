package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
	"pairfetch/pkg/logger"
	"pairfetch/pkg/stitch"
	"pairfetch/pkg/ui"
)

// stitchCmd represents the stitch command
var stitchCmd = &cobra.Command{
	Use:   "stitch <images-dir>",
	Short: "Join each image pair side by side into one picture",
	Long: `Combine every {id}-img0.png with its {id}-img1.png into {id}-stitched.png.
Both images are scaled to the smaller of the two heights and separated by a
black strip. Pairs with a missing half are skipped.`,
	Example: `  pairfetch stitch out/images
  pairfetch stitch out/images --output previews`,
	Args: cobra.ExactArgs(1),
	RunE: runStitch,
}

var stitchOutput string

func init() {
	rootCmd.AddCommand(stitchCmd)
	stitchCmd.Flags().StringVarP(&stitchOutput, "output", "o", "", "destination directory (default {out-dir}/stitched_images)")
}

func runStitch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(map[string]interface{}{})
	if err != nil {
		return err
	}

	outputDir := stitchOutput
	if outputDir == "" {
		outputDir = cfg.StitchedPath()
	}

	report, err := stitch.Directory(cmd.Context(), args[0], outputDir, logger.GetLogger())

	for _, left := range report.Unpaired {
		ui.PrintWarning("Skipping: missing pair for " + left)
	}
	ids := make([]string, 0, len(report.Failed))
	for id := range report.Failed {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		ui.PrintWarning("Failed "+id, report.Failed[id])
	}
	if err != nil {
		return err
	}

	ui.PrintSuccess(fmt.Sprintf("Done. Total stitched images: %d", len(report.Stitched)))
	ui.PrintInfo("Output", outputDir)
	return nil
}
