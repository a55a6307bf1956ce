package ui

import (
	"fmt"
	"io"
	"sort"

	"pairfetch/pkg/pipeline"
)

// Layout names the directories a run wrote to
type Layout struct {
	OutputDir string
	ImagesDir string
	LogsDir   string
}

// PrintSummary writes the end of run report
func PrintSummary(w io.Writer, layout Layout, s pipeline.Summary) {
	fmt.Fprintf(w, "Output saved to '%s' directory\n", layout.OutputDir)
	fmt.Fprintf(w, "Images saved to '%s'\n", layout.ImagesDir)
	fmt.Fprintf(w, "Logs saved to '%s'\n", layout.LogsDir)
	fmt.Fprintf(w, "Number of missing images: %d\n", s.Failures)
	fmt.Fprintf(w, "Total number of requests: %d\n", s.Attempts)

	if s.Skipped > 0 {
		fmt.Fprintf(w, "  %s %d already checked\n", Dim("•"), s.Skipped)
	}
	if s.Mismatches > 0 {
		fmt.Fprintf(w, "  %s %d hash mismatches\n", Dim("•"), s.Mismatches)
	}
	for _, kind := range sortedKeys(s.FailuresByKind) {
		fmt.Fprintf(w, "  %s %s: %d\n", Dim("•"), kind, s.FailuresByKind[kind])
	}
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// PrintCounts writes a label per line followed by its count, sorted by label
func PrintCounts(w io.Writer, title string, counts map[string]int) {
	fmt.Fprintf(w, "%s\n", Cyan(title))
	if len(counts) == 0 {
		fmt.Fprintf(w, "  %s none\n", Dim("•"))
		return
	}
	for _, k := range sortedKeys(counts) {
		fmt.Fprintf(w, "  %s %s: %d\n", Dim("•"), k, counts[k])
	}
}
