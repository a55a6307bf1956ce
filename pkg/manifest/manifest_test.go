package manifest

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pairfetch/pkg/errors"
	"pairfetch/pkg/logger"
)

func TestDerivation(t *testing.T) {
	entry := Entry{Identifier: "a-b-c-d-e", LeftURL: "http://l", RightURL: "http://r"}

	assert.Equal(t, "a-b-c", entry.ImageID())
	assert.Equal(t, "a-b-c-img0.png", entry.LeftFilename())
	assert.Equal(t, "a-b-c-img1.png", entry.RightFilename())

	targets := entry.Targets()
	assert.Equal(t, Target{Filename: "a-b-c-img0.png", URL: "http://l"}, targets[0])
	assert.Equal(t, Target{Filename: "a-b-c-img1.png", URL: "http://r"}, targets[1])
}

func TestParse(t *testing.T) {
	input := `[
		{"identifier": "dev-1-0-1", "left_url": "http://a/1", "right_url": "http://a/2", "label": "True"},
		{"identifier": "dev-2-3", "left_url": "http://a/3", "right_url": "http://a/4"}
	]`

	entries, err := Parse(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "dev-1-0", entries[0].ImageID())
	assert.Equal(t, "dev-2-3", entries[1].ImageID())
	assert.Equal(t, "http://a/4", entries[1].RightURL)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantIndex int
		wantMsg   string
	}{
		{"malformed json", `[{"identifier":`, -1, "JSON"},
		{"object instead of array", `{"identifier": "a-b-c"}`, -1, "JSON"},
		{"short identifier", `[{"identifier": "a-b-c", "left_url": "x", "right_url": "y"}, {"identifier": "a-b", "left_url": "x", "right_url": "y"}]`, 1, "fewer than 3"},
		{"missing left", `[{"identifier": "a-b-c", "right_url": "y"}]`, 0, "left_url"},
		{"empty right", `[{"identifier": "a-b-c", "left_url": "x", "right_url": ""}]`, 0, "right_url"},
		{"blank left", `[{"identifier": "a-b-c", "left_url": "  ", "right_url": "y"}]`, 0, "left_url"},
		{"parent directory", `[{"identifier": "..-b-c-0", "left_url": "x", "right_url": "y"}]`, 0, "file name"},
		{"path separator", `[{"identifier": "a-b-c", "left_url": "x", "right_url": "y"}, {"identifier": "x/../../etc-b-c", "left_url": "x", "right_url": "y"}]`, 1, "file name"},
		{"backslash", `[{"identifier": "a\\b-c-d", "left_url": "x", "right_url": "y"}]`, 0, "file name"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tt.input))
			require.Error(t, err)
			assert.True(t, errors.IsParse(err))
			assert.Contains(t, err.Error(), tt.wantMsg)

			var typed *errors.Error
			require.True(t, errors.As(err, &typed))
			assert.Equal(t, tt.wantIndex, typed.Index)
		})
	}
}

func TestParseTrimsURLs(t *testing.T) {
	input := `[{"identifier": "dev-1-0-1", "left_url": " http://example/y.png ", "right_url": "http://example/z.png\n"}]`

	entries, err := Parse(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, entries, 1)

	targets := entries[0].Targets()
	assert.Equal(t, "http://example/y.png", targets[0].URL)
	assert.Equal(t, "http://example/z.png", targets[1].URL)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "val.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"identifier":"x-y-z-0","left_url":"u1","right_url":"u2"}]`), 0644))

	entries, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	_, err = Load(filepath.Join(t.TempDir(), "absent.json"))
	assert.Error(t, err)
	assert.False(t, errors.IsParse(err))
}

func TestSplitName(t *testing.T) {
	assert.Equal(t, "train", SplitName("/data/nlvr/train.json"))
	assert.Equal(t, "dev", SplitName("dev"))
	assert.Equal(t, "test1.v2", SplitName("test1.v2.json"))
}

func TestLoadHashes(t *testing.T) {
	dir := t.TempDir()

	t.Run("empty path", func(t *testing.T) {
		table, err := LoadHashes("", nil)
		require.NoError(t, err)
		assert.Empty(t, table)
	})

	t.Run("missing file warns", func(t *testing.T) {
		log := logger.NewTestLogger()
		table, err := LoadHashes(filepath.Join(dir, "nope.json"), log)
		require.NoError(t, err)
		assert.Empty(t, table)
		assert.Len(t, log.GetMessagesByLevel("WARN"), 1)
	})

	t.Run("valid", func(t *testing.T) {
		path := filepath.Join(dir, "hashes.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"a-b-c-img0.png": "ffff000000000000"}`), 0644))
		table, err := LoadHashes(path, nil)
		require.NoError(t, err)
		assert.Equal(t, "ffff000000000000", table.Expected("a-b-c-img0.png"))
		assert.Equal(t, "", table.Expected("a-b-c-img1.png"))
	})

	t.Run("malformed", func(t *testing.T) {
		path := filepath.Join(dir, "bad.json")
		require.NoError(t, os.WriteFile(path, []byte(`["not", "a", "map"]`), 0644))
		_, err := LoadHashes(path, nil)
		assert.True(t, errors.IsParse(err))
	})
}
