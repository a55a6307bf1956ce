package pipeline

import (
	"context"

	"pairfetch/pkg/fetch"
)

// Fetcher retrieves one URL into the image directory
type Fetcher interface {
	Fetch(ctx context.Context, filename, url string) fetch.Outcome
}

// Progress receives run progress. It is notified once per manifest entry.
type Progress interface {
	Start(total int)
	Update(done int, s Summary)
	Finish(s Summary)
}

type nopProgress struct{}

func (nopProgress) Start(int)           {}
func (nopProgress) Update(int, Summary) {}
func (nopProgress) Finish(Summary)      {}
