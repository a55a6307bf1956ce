package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"golang.org/x/time/rate"
	"pairfetch/pkg/config"
	"pairfetch/pkg/logger"
	"pairfetch/pkg/storage"
)

var errTooManyRedirects = errors.New("stopped after too many redirects")

// ImageStore is where fetched files are written
type ImageStore interface {
	Exists(filename string) bool
	Create(filename string) (*storage.Pending, error)
}

// Fetcher downloads one URL at a time into an ImageStore. Each request,
// including the body transfer, is bounded by the configured timeout.
type Fetcher struct {
	httpClient   *http.Client
	images       ImageStore
	timeout      time.Duration
	userAgent    string
	chunkSize    int
	maxRedirects int
	limiter      *rate.Limiter
	logger       logger.Logger
}

// Option configures a Fetcher
type Option func(*Fetcher)

// WithHTTPClient replaces the HTTP client. The redirect limit is still enforced.
func WithHTTPClient(c *http.Client) Option {
	return func(f *Fetcher) {
		f.httpClient = c
	}
}

// WithLogger sets the logger
func WithLogger(log logger.Logger) Option {
	return func(f *Fetcher) {
		f.logger = log
	}
}

// WithLimiter paces requests with l instead of the configured rate
func WithLimiter(l *rate.Limiter) Option {
	return func(f *Fetcher) {
		f.limiter = l
	}
}

// New creates a Fetcher writing into images
func New(cfg config.FetchConfig, images ImageStore, opts ...Option) *Fetcher {
	f := &Fetcher{
		httpClient:   &http.Client{},
		images:       images,
		timeout:      cfg.Timeout,
		userAgent:    cfg.UserAgent,
		chunkSize:    cfg.ChunkSize,
		maxRedirects: cfg.MaxRedirects,
	}
	if cfg.RequestsPerSecond > 0 {
		f.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}
	if f.chunkSize <= 0 {
		f.chunkSize = 1024
	}

	for _, opt := range opts {
		opt(f)
	}
	f.logger = logger.OrNop(f.logger)

	client := *f.httpClient
	client.CheckRedirect = f.checkRedirect
	client.Timeout = 0
	f.httpClient = &client

	return f
}

func (f *Fetcher) checkRedirect(req *http.Request, via []*http.Request) error {
	if len(via) > f.maxRedirects {
		return fmt.Errorf("%w (%d)", errTooManyRedirects, f.maxRedirects)
	}
	return nil
}

type phase int

const (
	phaseRequest phase = iota
	phaseBody
)

// writeError marks a failure on the local side of the copy
type writeError struct {
	err error
}

func (e *writeError) Error() string { return e.err.Error() }
func (e *writeError) Unwrap() error { return e.err }

// Fetch downloads url to filename unless the file already exists.
// It never returns a Go error; every failure is described by the Outcome.
func (f *Fetcher) Fetch(ctx context.Context, filename, url string) Outcome {
	log := f.logger.WithFields(map[string]interface{}{
		"filename": filename,
		"url":      url,
	})

	if f.images.Exists(filename) {
		log.Debug("File already present, skipping download")
		return Outcome{Kind: KindSuccess, Cached: true}
	}

	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			return Outcome{Kind: KindCanceled, Err: err}
		}
	}

	reqCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	outcome := f.download(ctx, reqCtx, filename, url)
	if !outcome.OK() {
		log.WithError(outcome.Err).WarnWithFields("Fetch failed", map[string]interface{}{
			"kind": outcome.Label(),
		})
	}
	return outcome
}

func (f *Fetcher) download(ctx, reqCtx context.Context, filename, url string) Outcome {
	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, url, nil)
	if err != nil {
		return Outcome{Kind: KindConnectionError, Err: fmt.Errorf("invalid request: %w", err)}
	}
	req.Header.Set("User-Agent", f.userAgent)

	start := time.Now()
	resp, err := f.httpClient.Do(req)
	if err != nil {
		return f.classify(ctx, reqCtx, err, phaseRequest, 0)
	}
	defer resp.Body.Close()

	logger.LogRequest(f.logger, req.Method, url, resp.StatusCode, time.Since(start))

	if resp.StatusCode != http.StatusOK {
		return Outcome{
			Kind:       KindHTTPError,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("unexpected status code: %d", resp.StatusCode),
		}
	}

	pending, err := f.images.Create(filename)
	if err != nil {
		return Outcome{Kind: KindStorageError, StatusCode: resp.StatusCode, Err: err}
	}
	defer pending.Abort()

	written, err := f.copyChunks(pending, resp.Body)
	if err != nil {
		o := f.classify(ctx, reqCtx, err, phaseBody, resp.StatusCode)
		o.Bytes = written
		return o
	}

	if err := pending.Commit(); err != nil {
		return Outcome{Kind: KindStorageError, StatusCode: resp.StatusCode, Bytes: written, Err: err}
	}

	return Outcome{Kind: KindSuccess, StatusCode: resp.StatusCode, Bytes: written}
}

// copyChunks streams src to dst in chunkSize pieces
func (f *Fetcher) copyChunks(dst io.Writer, src io.Reader) (int64, error) {
	buf := make([]byte, f.chunkSize)
	var written int64

	for {
		n, readErr := src.Read(buf)
		if n > 0 {
			if _, err := dst.Write(buf[:n]); err != nil {
				return written, &writeError{err: err}
			}
			written += int64(n)
		}
		if readErr == io.EOF {
			return written, nil
		}
		if readErr != nil {
			return written, readErr
		}
	}
}

// classify maps a transport error to an Outcome. The order matters: a
// redirect limit is reported as such even though it surfaces as a request
// error, and an expired timeout window wins over whatever error the
// aborted connection produced.
func (f *Fetcher) classify(ctx, reqCtx context.Context, err error, p phase, status int) Outcome {
	o := Outcome{StatusCode: status, Err: err}

	var we *writeError
	var netErr net.Error

	switch {
	case errors.As(err, &we):
		o.Kind = KindStorageError
	case errors.Is(err, errTooManyRedirects):
		o.Kind = KindTooManyRedirects
	case ctx.Err() != nil:
		o.Kind = KindCanceled
	case errors.Is(reqCtx.Err(), context.DeadlineExceeded),
		errors.Is(err, context.DeadlineExceeded),
		errors.As(err, &netErr) && netErr.Timeout():
		o.Kind = KindTimeout
	case p == phaseRequest:
		o.Kind = KindConnectionError
	default:
		o.Kind = KindTransferError
	}

	return o
}
