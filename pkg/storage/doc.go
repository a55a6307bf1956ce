// Package storage provides the two kinds of on-disk state a run keeps: the
// image directory, where downloads are written to a temporary file and renamed
// into place, and append-only line logs that are synced after every line.
package storage
