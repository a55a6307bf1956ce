// Package failures records per-URL fetch failures in the failure log and
// keeps running counts by kind.
package failures

import (
	"fmt"
	"strings"

	"pairfetch/pkg/fetch"
	"pairfetch/pkg/logger"
	"pairfetch/pkg/storage"
)

// LineWriter appends one tab separated record
type LineWriter interface {
	WriteLine(fields ...string) error
}

// Record is one line of the failure log
type Record struct {
	Label    string
	Filename string
	URL      string
}

// Fields returns the record in log column order
func (r Record) Fields() []string {
	return []string{r.Label, r.Filename, r.URL}
}

// Classifier turns non-success outcomes into failure records
type Classifier struct {
	log    LineWriter
	logger logger.Logger
	total  int
	byKind map[string]int
}

// New creates a Classifier appending to log
func New(log LineWriter, l logger.Logger) *Classifier {
	return &Classifier{
		log:    log,
		logger: logger.OrNop(l),
		byKind: make(map[string]int),
	}
}

// Record appends the failure line for outcome. Success and Canceled
// outcomes are not failures and are rejected without writing.
func (c *Classifier) Record(o fetch.Outcome, filename, url string) error {
	switch o.Kind {
	case fetch.KindSuccess, fetch.KindCanceled:
		return fmt.Errorf("outcome %s is not a failure", o.Kind)
	}

	record := Record{Label: o.Label(), Filename: filename, URL: url}
	if err := c.log.WriteLine(record.Fields()...); err != nil {
		return fmt.Errorf("failed to record failure: %w", err)
	}

	c.total++
	c.byKind[record.Label]++

	c.logger.WithError(o.Err).InfoWithFields("Failure recorded", map[string]interface{}{
		"kind":     record.Label,
		"filename": filename,
		"url":      url,
	})

	return nil
}

// Count returns the number of failures recorded
func (c *Classifier) Count() int {
	return c.total
}

// ByKind returns a copy of the failure counts keyed by log label
func (c *Classifier) ByKind() map[string]int {
	out := make(map[string]int, len(c.byKind))
	for k, v := range c.byKind {
		out[k] = v
	}
	return out
}

// Tally counts the records of the failure log at path by label
func Tally(path string) (map[string]int, error) {
	lines, err := storage.ReadLines(path)
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int)
	for _, line := range lines {
		label, _, _ := strings.Cut(line, "\t")
		counts[label]++
	}
	return counts, nil
}
