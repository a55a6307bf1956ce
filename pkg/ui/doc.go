// Package ui holds the console output of pairfetch: colour helpers, the
// single line progress display and the end of run report.
package ui
