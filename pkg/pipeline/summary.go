package pipeline

import (
	"fmt"
	"path/filepath"
	"time"
)

// Summary holds the counters of a run
type Summary struct {
	RunID   string
	Split   string
	Entries int
	// Attempts counts URLs processed in this run, including files found on disk
	Attempts int
	// Failures counts records appended to the failure log
	Failures int
	// Skipped counts URLs already present in the checkpoint log
	Skipped int
	// Mismatches counts records appended to the mismatch log
	Mismatches     int
	Cached         int
	FailuresByKind map[string]int
	Duration       time.Duration
}

func (s Summary) String() string {
	return fmt.Sprintf("%d attempts, %d failures, %d skipped, %d hash mismatches",
		s.Attempts, s.Failures, s.Skipped, s.Mismatches)
}

// LogPaths are the three append-only logs of a split
type LogPaths struct {
	Checked    string
	Failed     string
	Mismatches string
}

// PathsFor returns the log locations for split under logsDir
func PathsFor(logsDir, split string) LogPaths {
	return LogPaths{
		Checked:    filepath.Join(logsDir, split+"_checked_imgs.txt"),
		Failed:     filepath.Join(logsDir, split+"_failed_imgs.txt"),
		Mismatches: filepath.Join(logsDir, split+"_failed_hashes.txt"),
	}
}
