package logger

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pairfetch/pkg/config"
)

func newBufferLogger(buf *bytes.Buffer) *zerologLogger {
	zlog := zerolog.New(buf).Level(zerolog.DebugLevel)
	return &zerologLogger{logger: &zlog, fields: make(map[string]interface{})}
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *config.LoggingConfig
		wantErr bool
	}{
		{"info level", &config.LoggingConfig{Level: "info"}, false},
		{"debug level", &config.LoggingConfig{Level: "debug"}, false},
		{"invalid level", &config.LoggingConfig{Level: "invalid"}, true},
		{"file output", &config.LoggingConfig{Level: "info", File: filepath.Join(t.TempDir(), "logs", "run.log")}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log, err := New(tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, log)
		})
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		level    string
		expected zerolog.Level
		wantErr  bool
	}{
		{"debug", zerolog.DebugLevel, false},
		{"DEBUG", zerolog.DebugLevel, false},
		{"info", zerolog.InfoLevel, false},
		{"", zerolog.InfoLevel, false},
		{"warn", zerolog.WarnLevel, false},
		{"warning", zerolog.WarnLevel, false},
		{"error", zerolog.ErrorLevel, false},
		{"disabled", zerolog.Disabled, false},
		{"verbose", zerolog.InfoLevel, true},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			level, err := parseLogLevel(tt.level)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.expected, level)
		})
	}
}

func TestConsoleOutput(t *testing.T) {
	var buf bytes.Buffer
	log, err := NewWithWriter(&config.LoggingConfig{Level: "info"}, &buf)
	require.NoError(t, err)

	log.Debug("hidden")
	log.Info("fetch finished")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "| fetch finished")
}

func TestFileOutputIsJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pairfetch.log")
	var console bytes.Buffer
	log, err := NewWithWriter(&config.LoggingConfig{Level: "debug", File: path}, &console)
	require.NoError(t, err)

	log.WithField("split", "train").Info("run started")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"app":"pairfetch"`)
	assert.Contains(t, string(data), `"split":"train"`)
	assert.Contains(t, string(data), `"message":"run started"`)
}

func TestFieldChaining(t *testing.T) {
	var buf bytes.Buffer
	log := newBufferLogger(&buf)

	child := log.WithField("run_id", "abc").WithFields(map[string]interface{}{
		"attempts": 4,
		"cached":   true,
	})
	child.InfoWithFields("entry done", map[string]interface{}{"url": "http://example/y"})

	out := buf.String()
	assert.Contains(t, out, `"run_id":"abc"`)
	assert.Contains(t, out, `"attempts":4`)
	assert.Contains(t, out, `"cached":true`)
	assert.Contains(t, out, `"url":"http://example/y"`)

	buf.Reset()
	log.Info("parent untouched")
	assert.NotContains(t, buf.String(), "run_id")
}

func TestWithError(t *testing.T) {
	var buf bytes.Buffer
	log := newBufferLogger(&buf)

	assert.Same(t, log, log.WithError(nil))

	log.WithError(errors.New("disk full")).Error("append failed")
	assert.Contains(t, buf.String(), `"error":"disk full"`)
}

func TestFieldTypes(t *testing.T) {
	var buf bytes.Buffer
	log := newBufferLogger(&buf)

	log.WithFields(map[string]interface{}{
		"int64":    int64(456),
		"float":    0.5,
		"time":     time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
		"duration": 5 * time.Second,
		"strings":  []string{"a", "b"},
		"custom":   struct{ Name string }{Name: "x"},
	}).Info("typed")

	out := buf.String()
	assert.Contains(t, out, `"int64":456`)
	assert.Contains(t, out, `"strings":["a","b"]`)
	assert.Contains(t, out, `"custom":{"Name":"x"}`)
}

func TestGlobalLogger(t *testing.T) {
	require.NoError(t, Initialize(&config.LoggingConfig{Level: "disabled"}))
	assert.NotNil(t, GetLogger())

	Debug("debug message")
	Info("info message")
	Warn("warn message")
	Error("error message")
	WithField("key", "value").Info("with field")
	WithFields(map[string]interface{}{"k1": "v1"}).Info("with fields")
	WithError(errors.New("boom")).Error("with error")
}

func TestHelpers(t *testing.T) {
	log := NewTestLogger()

	LogRequest(log, "GET", "http://example/a", 200, 10*time.Millisecond)
	LogRequest(log, "GET", "http://example/b", 404, time.Millisecond)
	LogRequest(log, "GET", "http://example/c", 503, time.Millisecond)
	LogComponentStart(log, "pipeline", map[string]interface{}{"split": "val"})
	LogComponentStop(log, "pipeline", "completed")

	assert.Len(t, log.GetMessagesByLevel("DEBUG"), 1)
	assert.Len(t, log.GetMessagesByLevel("WARN"), 1)
	assert.Len(t, log.GetMessagesByLevel("ERROR"), 1)
	assert.True(t, log.HasError())

	started := log.GetMessagesByLevel("INFO")[0]
	assert.Equal(t, "Component started", started.Message)
	assert.Equal(t, "pipeline", started.Fields["component"])
	assert.Equal(t, "val", started.Fields["split"])
}

func TestTestLoggerSharesCapture(t *testing.T) {
	log := NewTestLogger()
	child := log.WithField("side", "left").WithError(errors.New("eof"))
	child.Warn("transfer failed")

	msgs := log.GetMessages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "left", msgs[0].Fields["side"])
	assert.EqualError(t, msgs[0].Error, "eof")
	assert.True(t, log.HasMessage("transfer failed"))

	log.Clear()
	assert.Empty(t, log.GetMessages())
}

func TestOrNop(t *testing.T) {
	assert.NotNil(t, OrNop(nil))
	log := NewTestLogger()
	assert.Equal(t, Logger(log), OrNop(log))
}
