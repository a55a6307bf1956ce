package checkpoint

import (
	"fmt"
	"os"
	"strings"
	"time"

	"pairfetch/pkg/logger"
	"pairfetch/pkg/storage"
)

// Store is the set of URLs a job has already attempted, backed by an
// append-only log with one URL per line.
type Store struct {
	seen   map[string]struct{}
	log    *storage.AppendLog
	logger logger.Logger
}

// Open loads the URLs already recorded at path and opens the log so new
// attempts can be appended. A missing log is an empty set.
func Open(path string, log logger.Logger) (*Store, error) {
	log = logger.OrNop(log)

	seen, err := Load(path)
	if err != nil {
		return nil, err
	}

	appendLog, err := storage.OpenAppendLog(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open checkpoint log: %w", err)
	}

	log.InfoWithFields("Checkpoint loaded", map[string]interface{}{
		"path":      path,
		"attempted": len(seen),
	})

	return &Store{seen: seen, log: appendLog, logger: log}, nil
}

// Load reads the set of attempted URLs at path without opening it for writing
func Load(path string) (map[string]struct{}, error) {
	lines, err := storage.ReadLines(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read checkpoint log: %w", err)
	}

	seen := make(map[string]struct{}, len(lines))
	for _, url := range lines {
		seen[url] = struct{}{}
	}
	return seen, nil
}

// Contains reports whether url has been attempted before
func (s *Store) Contains(url string) bool {
	_, ok := s.seen[key(url)]
	return ok
}

// Mark records url as attempted. The line is on disk when Mark returns nil.
// Marking a URL that is already present writes nothing.
func (s *Store) Mark(url string) error {
	url = key(url)
	if s.Contains(url) {
		return nil
	}

	if err := s.log.WriteLine(url); err != nil {
		return fmt.Errorf("failed to record checkpoint: %w", err)
	}
	s.seen[url] = struct{}{}

	s.logger.DebugWithFields("Checkpoint recorded", map[string]interface{}{
		"url":       url,
		"attempted": len(s.seen),
	})
	return nil
}

// key is the form a URL takes in the log, which is read back trimmed
func key(url string) string {
	return strings.TrimSpace(url)
}

// Len returns the number of attempted URLs
func (s *Store) Len() int {
	return len(s.seen)
}

// Path returns the checkpoint log location
func (s *Store) Path() string {
	return s.log.Path()
}

// Close closes the checkpoint log
func (s *Store) Close() error {
	return s.log.Close()
}

// Info summarises a checkpoint log for display
type Info struct {
	Path      string
	Attempted int
	UpdatedAt time.Time
	Exists    bool
}

// GetCheckpointInfo describes the checkpoint log at path without modifying it
func GetCheckpointInfo(path string) (Info, error) {
	info := Info{Path: path}

	stat, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return info, nil
		}
		return info, fmt.Errorf("failed to stat checkpoint log: %w", err)
	}

	seen, err := Load(path)
	if err != nil {
		return info, err
	}

	info.Exists = true
	info.Attempted = len(seen)
	info.UpdatedAt = stat.ModTime()
	return info, nil
}
