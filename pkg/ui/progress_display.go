package ui

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"pairfetch/pkg/pipeline"
)

// ProgressDisplay renders a single progress line for a pipeline run
type ProgressDisplay struct {
	mu        sync.Mutex
	out       io.Writer
	label     string
	total     int
	done      int
	summary   pipeline.Summary
	startTime time.Time
}

// NewProgressDisplay creates a progress display writing to out
func NewProgressDisplay(out io.Writer, label string) *ProgressDisplay {
	return &ProgressDisplay{out: out, label: label}
}

// Start resets the display for a run over total entries
func (p *ProgressDisplay) Start(total int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.total = total
	p.done = 0
	p.startTime = time.Now()
	p.printProgress()
}

// Update redraws the line after an entry has been processed
func (p *ProgressDisplay) Update(done int, s pipeline.Summary) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.done = done
	p.summary = s
	p.printProgress()
}

// Finish draws the final state and ends the line
func (p *ProgressDisplay) Finish(s pipeline.Summary) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.summary = s
	p.printProgress()
	fmt.Fprintln(p.out)
}

func (p *ProgressDisplay) printProgress() {
	progress := 1.0
	if p.total > 0 {
		progress = float64(p.done) / float64(p.total)
	}
	barWidth := 20
	filled := int(progress * float64(barWidth))
	bar := strings.Repeat("━", filled) + strings.Repeat("─", barWidth-filled)

	line := fmt.Sprintf("%s [%s] %d/%d • %d requests • %s",
		Cyan(p.label),
		bar,
		p.done,
		p.total,
		p.summary.Attempts,
		p.calculateETA(),
	)
	if p.summary.Failures > 0 {
		line += " • " + Red(fmt.Sprintf("%d failed", p.summary.Failures))
	}
	if p.summary.Mismatches > 0 {
		line += " • " + Yellow(fmt.Sprintf("%d mismatched", p.summary.Mismatches))
	}

	fmt.Fprintf(p.out, "\r%s\r%s", strings.Repeat(" ", 100), line)
}

func (p *ProgressDisplay) calculateETA() string {
	if p.done == 0 {
		return "calculating..."
	}
	if p.done >= p.total {
		return FormatDuration(time.Since(p.startTime))
	}

	perEntry := time.Since(p.startTime) / time.Duration(p.done)
	return FormatDuration(perEntry*time.Duration(p.total-p.done)) + " left"
}

// FormatDuration formats a duration in a human-readable way
func FormatDuration(d time.Duration) string {
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	default:
		return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
	}
}
