package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// partialSuffix marks a download that has not been committed yet
const partialSuffix = ".part"

// Manager owns the directory finished images are written to. A file only
// appears under its final name once its content has been fully written.
type Manager struct {
	outputDir string
}

// NewManager creates the image directory and removes partial files left
// behind by an interrupted run.
func NewManager(outputDir string) (*Manager, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	manager := &Manager{outputDir: outputDir}

	if _, err := manager.SweepPartials(); err != nil {
		return nil, fmt.Errorf("failed to sweep partial downloads: %w", err)
	}

	return manager, nil
}

// SweepPartials deletes leftover partial downloads and reports how many it removed
func (m *Manager) SweepPartials() (int, error) {
	entries, err := os.ReadDir(m.outputDir)
	if err != nil {
		return 0, fmt.Errorf("failed to read directory: %w", err)
	}

	removed := 0
	for _, entry := range entries {
		if entry.IsDir() || !isPartial(entry.Name()) {
			continue
		}
		if err := os.Remove(filepath.Join(m.outputDir, entry.Name())); err != nil && !os.IsNotExist(err) {
			return removed, fmt.Errorf("failed to remove %s: %w", entry.Name(), err)
		}
		removed++
	}

	return removed, nil
}

func isPartial(name string) bool {
	return strings.HasPrefix(name, ".") && strings.HasSuffix(name, partialSuffix)
}

// Path returns where filename lives inside the image directory
func (m *Manager) Path(filename string) string {
	return filepath.Join(m.outputDir, filename)
}

// Exists reports whether a finished file named filename is present
func (m *Manager) Exists(filename string) bool {
	info, err := os.Stat(m.Path(filename))
	return err == nil && info.Mode().IsRegular()
}

// Create starts a new download of filename. Nothing is visible under the
// final name until Commit succeeds.
func (m *Manager) Create(filename string) (*Pending, error) {
	file, err := os.CreateTemp(m.outputDir, "."+filename+".*"+partialSuffix)
	if err != nil {
		return nil, fmt.Errorf("failed to create temporary file: %w", err)
	}

	return &Pending{file: file, target: m.Path(filename)}, nil
}

// GetOutputDir returns the image directory
func (m *Manager) GetOutputDir() string {
	return m.outputDir
}

// Count returns how many finished files the image directory holds
func (m *Manager) Count() (int, error) {
	entries, err := os.ReadDir(m.outputDir)
	if err != nil {
		return 0, fmt.Errorf("failed to read directory: %w", err)
	}

	count := 0
	for _, entry := range entries {
		if entry.Type().IsRegular() && !isPartial(entry.Name()) {
			count++
		}
	}
	return count, nil
}

// Pending is a download in progress. It only implements io.Writer so that
// copies into it honour the caller's buffer size.
type Pending struct {
	file   *os.File
	target string
	done   bool
}

var errFinished = errors.New("pending file already committed or aborted")

func (p *Pending) Write(b []byte) (int, error) {
	if p.done {
		return 0, errFinished
	}
	return p.file.Write(b)
}

// Commit syncs and closes the temporary file and renames it onto the target.
// On failure the temporary file is removed.
func (p *Pending) Commit() error {
	if p.done {
		return errFinished
	}
	p.done = true

	tmp := p.file.Name()
	if err := p.file.Sync(); err != nil {
		p.file.Close()
		os.Remove(tmp)
		return fmt.Errorf("failed to sync file: %w", err)
	}
	if err := p.file.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to close file: %w", err)
	}
	if err := os.Rename(tmp, p.target); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to rename temporary file: %w", err)
	}

	return nil
}

// Abort discards the download. It is safe to call after Commit, which makes
// it suitable for a deferred cleanup.
func (p *Pending) Abort() error {
	if p.done {
		return nil
	}
	p.done = true

	tmp := p.file.Name()
	closeErr := p.file.Close()
	if err := os.Remove(tmp); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove temporary file: %w", err)
	}
	return closeErr
}
