package fetch

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
	"pairfetch/pkg/config"
	"pairfetch/pkg/logger"
	"pairfetch/pkg/storage"
)

func testConfig() config.FetchConfig {
	cfg := config.DefaultConfig().Fetch
	cfg.Timeout = 200 * time.Millisecond
	cfg.ChunkSize = 16
	return cfg
}

func newTestFetcher(t *testing.T, cfg config.FetchConfig, opts ...Option) (*Fetcher, *storage.Manager) {
	t.Helper()
	images, err := storage.NewManager(t.TempDir())
	require.NoError(t, err)
	opts = append([]Option{WithLogger(logger.NewNopLogger())}, opts...)
	return New(cfg, images, opts...), images
}

func dirEntries(t *testing.T, images *storage.Manager) []string {
	t.Helper()
	entries, err := os.ReadDir(images.GetOutputDir())
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestFetchSuccess(t *testing.T) {
	body := strings.Repeat("0123456789", 10)
	var userAgent string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userAgent = r.Header.Get("User-Agent")
		w.Write([]byte(body))
	}))
	defer server.Close()

	f, images := newTestFetcher(t, testConfig())
	outcome := f.Fetch(context.Background(), "a-b-c-img0.png", server.URL+"/img")

	require.True(t, outcome.OK(), outcome.String())
	assert.False(t, outcome.Cached)
	assert.Equal(t, http.StatusOK, outcome.StatusCode)
	assert.Equal(t, int64(len(body)), outcome.Bytes)
	assert.Equal(t, config.DefaultUserAgent, userAgent)

	data, err := os.ReadFile(images.Path("a-b-c-img0.png"))
	require.NoError(t, err)
	assert.Equal(t, body, string(data))
	assert.Equal(t, []string{"a-b-c-img0.png"}, dirEntries(t, images))
}

func TestFetchExistingFileMakesNoRequest(t *testing.T) {
	var requests int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		w.Write([]byte("fresh"))
	}))
	defer server.Close()

	f, images := newTestFetcher(t, testConfig())

	first := f.Fetch(context.Background(), "x-y-z-img1.png", server.URL)
	require.True(t, first.OK())
	second := f.Fetch(context.Background(), "x-y-z-img1.png", server.URL)
	require.True(t, second.OK())

	assert.True(t, second.Cached)
	assert.Equal(t, int32(1), atomic.LoadInt32(&requests))
	assert.True(t, images.Exists("x-y-z-img1.png"))
}

func TestFetchHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "missing", http.StatusNotFound)
	}))
	defer server.Close()

	f, images := newTestFetcher(t, testConfig())
	outcome := f.Fetch(context.Background(), "x-img0.png", server.URL)

	assert.Equal(t, KindHTTPError, outcome.Kind)
	assert.Equal(t, "404", outcome.Label())
	assert.Empty(t, dirEntries(t, images), "a non-200 body must never reach disk")
}

func TestFetchNonOKSuccessCodesAreErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	f, _ := newTestFetcher(t, testConfig())
	outcome := f.Fetch(context.Background(), "x-img0.png", server.URL)
	assert.Equal(t, "204", outcome.Label())
}

func TestFetchTimeoutBeforeHeaders(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer server.Close()

	f, images := newTestFetcher(t, testConfig())

	start := time.Now()
	outcome := f.Fetch(context.Background(), "slow-a-b-img0.png", server.URL)

	assert.Equal(t, KindTimeout, outcome.Kind)
	assert.Less(t, time.Since(start), time.Second)
	assert.Empty(t, dirEntries(t, images))
}

func TestFetchTimeoutDuringBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "1000")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(strings.Repeat("x", 100)))
		w.(http.Flusher).Flush()
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer server.Close()

	f, images := newTestFetcher(t, testConfig())
	outcome := f.Fetch(context.Background(), "slow-a-b-img1.png", server.URL)

	assert.Equal(t, KindTimeout, outcome.Kind)
	assert.Equal(t, http.StatusOK, outcome.StatusCode)
	assert.Empty(t, dirEntries(t, images), "partial body must be removed")
}

func TestFetchConnectionRefused(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := listener.Addr().String()
	require.NoError(t, listener.Close())

	f, _ := newTestFetcher(t, testConfig())
	outcome := f.Fetch(context.Background(), "x-img0.png", "http://"+addr+"/img")

	assert.Equal(t, KindConnectionError, outcome.Kind)
	assert.Equal(t, "ConnectionError", outcome.Label())
}

func TestFetchInvalidURL(t *testing.T) {
	f, _ := newTestFetcher(t, testConfig())
	outcome := f.Fetch(context.Background(), "x-img0.png", "://nope")
	assert.Equal(t, KindConnectionError, outcome.Kind)
}

func TestFetchRedirects(t *testing.T) {
	var requests int32
	mux := http.NewServeMux()
	mux.HandleFunc("/loop", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		http.Redirect(w, r, "/loop", http.StatusFound)
	})
	mux.HandleFunc("/moved", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/img", http.StatusMovedPermanently)
	})
	mux.HandleFunc("/img", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("image"))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	cfg := testConfig()
	cfg.MaxRedirects = 3
	f, images := newTestFetcher(t, cfg)

	loop := f.Fetch(context.Background(), "loop-a-b-img0.png", server.URL+"/loop")
	assert.Equal(t, KindTooManyRedirects, loop.Kind)
	assert.Equal(t, "TooManyRedirects", loop.Label())
	assert.Equal(t, int32(4), atomic.LoadInt32(&requests))
	assert.False(t, images.Exists("loop-a-b-img0.png"))

	moved := f.Fetch(context.Background(), "moved-a-b-img0.png", server.URL+"/moved")
	assert.True(t, moved.OK())
}

func TestFetchTruncatedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, buf, err := w.(http.Hijacker).Hijack()
		if err != nil {
			return
		}
		defer conn.Close()
		buf.WriteString("HTTP/1.1 200 OK\r\nContent-Length: 100\r\nContent-Type: image/png\r\n\r\npartial")
		buf.Flush()
	}))
	defer server.Close()

	f, images := newTestFetcher(t, testConfig())
	outcome := f.Fetch(context.Background(), "cut-a-b-img0.png", server.URL)

	assert.Equal(t, KindTransferError, outcome.Kind)
	assert.Empty(t, dirEntries(t, images))
}

func TestFetchBrokenContentEncoding(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Encoding", "gzip")
		w.Write([]byte("definitely not gzip"))
	}))
	defer server.Close()

	f, images := newTestFetcher(t, testConfig())
	outcome := f.Fetch(context.Background(), "gz-a-b-img0.png", server.URL)

	assert.Equal(t, KindTransferError, outcome.Kind)
	assert.Empty(t, dirEntries(t, images))
}

func TestFetchCanceled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("image"))
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f, images := newTestFetcher(t, testConfig())
	outcome := f.Fetch(ctx, "x-img0.png", server.URL)

	assert.Equal(t, KindCanceled, outcome.Kind)
	assert.Empty(t, dirEntries(t, images))
}

type failingStore struct{}

func (failingStore) Exists(string) bool { return false }
func (failingStore) Create(string) (*storage.Pending, error) {
	return nil, errors.New("read-only file system")
}

func TestFetchStorageError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("image"))
	}))
	defer server.Close()

	f := New(testConfig(), failingStore{})
	outcome := f.Fetch(context.Background(), "x-img0.png", server.URL)
	assert.Equal(t, KindStorageError, outcome.Kind)
	assert.Equal(t, "StorageError", outcome.Label())
}

func TestFetchPacing(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("image"))
	}))
	defer server.Close()

	limiter := rate.NewLimiter(rate.Every(100*time.Millisecond), 1)
	f, _ := newTestFetcher(t, testConfig(), WithLimiter(limiter))

	start := time.Now()
	require.True(t, f.Fetch(context.Background(), "p-a-b-img0.png", server.URL).OK())
	require.True(t, f.Fetch(context.Background(), "p-a-b-img1.png", server.URL).OK())
	assert.GreaterOrEqual(t, time.Since(start), 80*time.Millisecond)
}

func TestRateFromConfig(t *testing.T) {
	cfg := testConfig()
	cfg.RequestsPerSecond = 4
	f, _ := newTestFetcher(t, cfg)
	require.NotNil(t, f.limiter)
	assert.Equal(t, rate.Limit(4), f.limiter.Limit())

	f, _ = newTestFetcher(t, testConfig())
	assert.Nil(t, f.limiter)
}
