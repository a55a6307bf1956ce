package pipeline

import (
	"context"
	"fmt"
	"os"
	"time"

	"pairfetch/pkg/checkpoint"
	"pairfetch/pkg/config"
	"pairfetch/pkg/errors"
	"pairfetch/pkg/failures"
	"pairfetch/pkg/fetch"
	"pairfetch/pkg/logger"
	"pairfetch/pkg/manifest"
	"pairfetch/pkg/storage"
	"pairfetch/pkg/verify"
)

// Pipeline mirrors the images of one manifest split. It is not safe for
// concurrent use: entries are processed one URL at a time.
type Pipeline struct {
	cfg    *config.Config
	split  string
	hashes manifest.HashTable
	paths  LogPaths

	images      *storage.Manager
	checkpoints *checkpoint.Store
	failureLog  *storage.AppendLog
	mismatchLog *storage.AppendLog

	fetcher    Fetcher
	verifier   *verify.Verifier
	classifier *failures.Classifier
	progress   Progress
	logger     logger.Logger
	runID      string
}

// New prepares the output layout and opens the logs of split. If any step
// fails, everything opened so far is closed again.
func New(cfg *config.Config, split string, hashes manifest.HashTable, opts ...Option) (p *Pipeline, err error) {
	o := applyOptions(opts)
	if hashes == nil {
		hashes = manifest.HashTable{}
	}

	p = &Pipeline{
		cfg:      cfg,
		split:    split,
		hashes:   hashes,
		paths:    PathsFor(cfg.LogsPath(), split),
		progress: o.progress,
		runID:    o.runID,
		logger: o.logger.WithFields(map[string]interface{}{
			"run_id": o.runID,
			"split":  split,
		}),
	}

	defer func() {
		if err != nil {
			p.Close()
			p = nil
		}
	}()

	p.images, err = storage.NewManager(cfg.ImagesPath())
	if err != nil {
		return p, errors.NewStorageError("cannot prepare image directory", err)
	}
	existing, err := p.images.Count()
	if err != nil {
		return p, errors.NewStorageError("cannot read image directory", err)
	}
	p.logger.InfoWithFields("Image directory ready", map[string]interface{}{
		"path":  p.images.GetOutputDir(),
		"files": existing,
	})
	if err = os.MkdirAll(cfg.LogsPath(), 0755); err != nil {
		return p, errors.NewStorageError("cannot create logs directory", err)
	}

	if p.checkpoints, err = checkpoint.Open(p.paths.Checked, p.logger); err != nil {
		return p, errors.NewStorageError("cannot open checkpoint log", err)
	}
	if p.failureLog, err = storage.OpenAppendLog(p.paths.Failed); err != nil {
		return p, errors.NewStorageError("cannot open failure log", err)
	}
	if p.mismatchLog, err = storage.OpenAppendLog(p.paths.Mismatches); err != nil {
		return p, errors.NewStorageError("cannot open mismatch log", err)
	}

	p.verifier = verify.New(p.mismatchLog, p.logger)
	p.classifier = failures.New(p.failureLog, p.logger)

	p.fetcher = o.fetcher
	if p.fetcher == nil {
		fetchOpts := append([]fetch.Option{fetch.WithLogger(p.logger)}, o.fetchOpts...)
		p.fetcher = fetch.New(cfg.Fetch, p.images, fetchOpts...)
	}

	return p, nil
}

// Paths returns the log locations of the split
func (p *Pipeline) Paths() LogPaths {
	return p.paths
}

// Close closes every log the pipeline opened
func (p *Pipeline) Close() error {
	var errs []error
	if p.checkpoints != nil {
		errs = append(errs, p.checkpoints.Close())
	}
	if p.failureLog != nil {
		errs = append(errs, p.failureLog.Close())
	}
	if p.mismatchLog != nil {
		errs = append(errs, p.mismatchLog.Close())
	}
	return errors.Join(errs...)
}

// Run processes entries in order, left image before right. URLs already in
// the checkpoint log are skipped. Every other URL is fetched, verified,
// recorded as a failure if needed and then checkpointed.
//
// Per-URL failures never stop the run. An error is returned only when the
// logs cannot be written or ctx is done; the summary then covers the work
// completed so far.
func (p *Pipeline) Run(ctx context.Context, entries []manifest.Entry) (Summary, error) {
	start := time.Now()
	summary := Summary{RunID: p.runID, Split: p.split, Entries: len(entries)}

	logger.LogComponentStart(p.logger, "pipeline", map[string]interface{}{
		"entries":     len(entries),
		"checkpoints": p.checkpoints.Len(),
		"hashes":      len(p.hashes),
	})
	p.progress.Start(len(entries))

	var runErr error
loop:
	for i, entry := range entries {
		for _, target := range entry.Targets() {
			if err := ctx.Err(); err != nil {
				runErr = err
				break loop
			}

			if p.checkpoints.Contains(target.URL) {
				summary.Skipped++
				continue
			}

			if err := p.process(ctx, target, &summary); err != nil {
				runErr = err
				break loop
			}
		}

		p.progress.Update(i+1, p.snapshot(summary, start))
		logger.LogRunProgress(p.logger, p.split, i+1, len(entries))
	}

	summary = p.snapshot(summary, start)
	p.progress.Finish(summary)

	reason := "completed"
	if runErr != nil {
		reason = runErr.Error()
	}
	logger.LogComponentStop(p.logger, "pipeline", reason)
	p.logger.InfoWithFields("Run finished", map[string]interface{}{
		"attempts":   summary.Attempts,
		"failures":   summary.Failures,
		"skipped":    summary.Skipped,
		"mismatches": summary.Mismatches,
		"duration":   summary.Duration,
	})

	return summary, runErr
}

// process handles one URL that is not yet checkpointed
func (p *Pipeline) process(ctx context.Context, target manifest.Target, summary *Summary) error {
	outcome := p.fetcher.Fetch(ctx, target.Filename, target.URL)

	switch outcome.Kind {
	case fetch.KindCanceled:
		p.logger.WithField("url", target.URL).Warn("Run interrupted, leaving URL unrecorded")
		if err := ctx.Err(); err != nil {
			return err
		}
		return context.Canceled
	case fetch.KindSuccess:
		if outcome.Cached {
			summary.Cached++
		}
		var err error
		if outcome, err = p.verify(outcome, target); err != nil {
			return err
		}
	case fetch.KindHTTPError, fetch.KindTimeout, fetch.KindConnectionError,
		fetch.KindTooManyRedirects, fetch.KindTransferError, fetch.KindDecodeError,
		fetch.KindStorageError:
	default:
		return fmt.Errorf("unhandled fetch outcome %s", outcome.Kind)
	}

	if !outcome.OK() {
		if err := p.classifier.Record(outcome, target.Filename, target.URL); err != nil {
			return errors.NewStorageError("cannot write failure log", err)
		}
	}

	if err := p.checkpoints.Mark(target.URL); err != nil {
		return errors.NewStorageError("cannot write checkpoint log", err)
	}
	summary.Attempts++

	return nil
}

// verify hashes a successfully fetched file. A file that does not decode
// turns the outcome into a DecodeError.
func (p *Pipeline) verify(outcome fetch.Outcome, target manifest.Target) (fetch.Outcome, error) {
	path := p.images.Path(target.Filename)
	_, err := p.verifier.Verify(path, target.Filename, target.URL, p.hashes.Expected(target.Filename))

	switch {
	case err == nil:
		return outcome, nil
	case errors.Is(err, verify.ErrDecode):
		p.logger.WithError(err).WithField("filename", target.Filename).Warn("Downloaded file is not a valid image")
		return fetch.DecodeFailure(outcome, err), nil
	default:
		return outcome, errors.NewStorageError("cannot write mismatch log", err)
	}
}

func (p *Pipeline) snapshot(s Summary, start time.Time) Summary {
	s.Failures = p.classifier.Count()
	s.FailuresByKind = p.classifier.ByKind()
	s.Mismatches = p.verifier.Mismatches()
	s.Duration = time.Since(start)
	return s
}

// Execute runs the job described by cfg: it loads the manifest, which fails
// fast on malformed input before any log is opened, then the hash table,
// and mirrors every entry.
func Execute(ctx context.Context, cfg *config.Config, opts ...Option) (summary Summary, err error) {
	o := applyOptions(opts)

	if err := cfg.RequireManifest(); err != nil {
		return Summary{}, &errors.Error{Type: errors.ErrorTypeConfig, Message: err.Error(), Index: -1}
	}

	entries, err := manifest.Load(cfg.Input.Manifest)
	if err != nil {
		return Summary{}, err
	}

	hashes, err := manifest.LoadHashes(cfg.Input.HashFile, o.logger)
	if err != nil {
		return Summary{}, err
	}
	if len(hashes) > 0 {
		o.logger.WithField("hash_file", cfg.Input.HashFile).InfoWithFields("Loaded image hashes", map[string]interface{}{
			"count": len(hashes),
		})
	}

	// the run id is fixed here so New does not draw a second one
	p, err := New(cfg, manifest.SplitName(cfg.Input.Manifest), hashes, append(opts, WithRunID(o.runID))...)
	if err != nil {
		return Summary{}, err
	}
	defer func() {
		if closeErr := p.Close(); closeErr != nil && err == nil {
			err = errors.NewStorageError("cannot close logs", closeErr)
		}
	}()

	return p.Run(ctx, entries)
}
