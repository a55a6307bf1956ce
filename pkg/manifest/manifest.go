// Package manifest loads the list of image pairs a run mirrors and the
// optional table of expected perceptual hashes.
package manifest

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"pairfetch/pkg/errors"
)

const (
	// idComponents is how many leading dash-separated parts of an identifier form the image id
	idComponents = 3

	leftSuffix  = "-img0.png"
	rightSuffix = "-img1.png"
)

// Entry is one image pair of the manifest
type Entry struct {
	Identifier string `json:"identifier"`
	LeftURL    string `json:"left_url"`
	RightURL   string `json:"right_url"`
}

// Target is a single file to fetch
type Target struct {
	Filename string
	URL      string
}

// ImageID returns the first three dash-separated components of the identifier
func (e Entry) ImageID() string {
	parts := strings.Split(e.Identifier, "-")
	if len(parts) > idComponents {
		parts = parts[:idComponents]
	}
	return strings.Join(parts, "-")
}

// LeftFilename is the local name of the left image
func (e Entry) LeftFilename() string {
	return e.ImageID() + leftSuffix
}

// RightFilename is the local name of the right image
func (e Entry) RightFilename() string {
	return e.ImageID() + rightSuffix
}

// Targets returns the entry's two files, left first
func (e Entry) Targets() [2]Target {
	return [2]Target{
		{Filename: e.LeftFilename(), URL: e.LeftURL},
		{Filename: e.RightFilename(), URL: e.RightURL},
	}
}

func (e Entry) validate(index int) error {
	if len(strings.Split(e.Identifier, "-")) < idComponents {
		return errors.NewParseError(index,
			fmt.Sprintf("identifier %q has fewer than %d dash-separated components", e.Identifier, idComponents), nil)
	}
	// the image id becomes a file name inside the images directory
	if id := e.ImageID(); strings.ContainsAny(id, `/\`) || strings.Contains(id, "..") {
		return errors.NewParseError(index, fmt.Sprintf("identifier %q cannot be used as a file name", e.Identifier), nil)
	}
	if e.LeftURL == "" {
		return errors.NewParseError(index, "left_url is missing", nil)
	}
	if e.RightURL == "" {
		return errors.NewParseError(index, "right_url is missing", nil)
	}
	return nil
}

// Parse reads a JSON array of entries and validates every one of them.
// Surrounding whitespace is stripped from URLs so that the checkpoint log,
// which is read back trimmed, matches them on resume. Any problem is
// reported as a parsing error naming the entry index.
func Parse(r io.Reader) ([]Entry, error) {
	var entries []Entry
	if err := json.NewDecoder(r).Decode(&entries); err != nil {
		return nil, errors.NewParseError(-1, "manifest is not a JSON array of entries", err)
	}

	for i := range entries {
		entries[i].LeftURL = strings.TrimSpace(entries[i].LeftURL)
		entries[i].RightURL = strings.TrimSpace(entries[i].RightURL)
		if err := entries[i].validate(i); err != nil {
			return nil, err
		}
	}

	return entries, nil
}

// Load opens and parses the manifest at path
func Load(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open manifest: %w", err)
	}
	defer f.Close()

	return Parse(f)
}

// SplitName returns the manifest's base name without extension, used to
// namespace the log files of a run.
func SplitName(manifestPath string) string {
	base := filepath.Base(manifestPath)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
