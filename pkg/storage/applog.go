package storage

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// AppendLog is a line-oriented log that is only ever appended to. Every
// line is synced to disk before WriteLine returns.
type AppendLog struct {
	path string
	file *os.File
	mu   sync.Mutex
}

// OpenAppendLog opens path for appending, creating it and its directory if needed
func OpenAppendLog(path string) (*AppendLog, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log %s: %w", path, err)
	}

	return &AppendLog{path: path, file: file}, nil
}

// WriteLine appends fields joined by tabs as a single line and syncs it
func (l *AppendLog) WriteLine(fields ...string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return fmt.Errorf("log %s is closed", l.path)
	}

	line := strings.Join(fields, "\t") + "\n"
	if _, err := l.file.WriteString(line); err != nil {
		return fmt.Errorf("failed to append to %s: %w", l.path, err)
	}
	if err := l.file.Sync(); err != nil {
		return fmt.Errorf("failed to sync %s: %w", l.path, err)
	}

	return nil
}

// Path returns the file backing the log
func (l *AppendLog) Path() string {
	return l.path
}

// Close closes the log. Closing twice is a no-op.
func (l *AppendLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

// ReadLines returns the non-blank lines of the log at path with surrounding
// whitespace trimmed. A missing file has no lines.
func ReadLines(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			lines = append(lines, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	return lines, nil
}
