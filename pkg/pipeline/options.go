package pipeline

import (
	"github.com/google/uuid"
	"pairfetch/pkg/fetch"
	"pairfetch/pkg/logger"
)

type options struct {
	logger    logger.Logger
	progress  Progress
	fetcher   Fetcher
	fetchOpts []fetch.Option
	runID     string
}

// Option configures a Pipeline
type Option func(*options)

// WithLogger sets the logger every component of the run logs through
func WithLogger(log logger.Logger) Option {
	return func(o *options) {
		o.logger = log
	}
}

// WithProgress sets the progress receiver
func WithProgress(p Progress) Option {
	return func(o *options) {
		o.progress = p
	}
}

// WithFetcher replaces the HTTP fetcher
func WithFetcher(f Fetcher) Option {
	return func(o *options) {
		o.fetcher = f
	}
}

// WithFetchOptions passes options to the default fetcher
func WithFetchOptions(opts ...fetch.Option) Option {
	return func(o *options) {
		o.fetchOpts = append(o.fetchOpts, opts...)
	}
}

// WithRunID sets the identifier attached to every log line of the run
func WithRunID(id string) Option {
	return func(o *options) {
		o.runID = id
	}
}

func applyOptions(opts []Option) *options {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	o.logger = logger.OrNop(o.logger)
	if o.progress == nil {
		o.progress = nopProgress{}
	}
	if o.runID == "" {
		o.runID = uuid.NewString()
	}
	return o
}
