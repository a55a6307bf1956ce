package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorMessage(t *testing.T) {
	err := NewParseError(3, "identifier has fewer than three components", nil)
	assert.Equal(t, "parsing error (entry 3): identifier has fewer than three components", err.Error())

	cause := New("permission denied")
	storageErr := NewStorageError("cannot open log", cause)
	assert.Equal(t, "storage error: cannot open log: permission denied", storageErr.Error())
	assert.ErrorIs(t, storageErr, cause)
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, 0},
		{"parse", NewParseError(0, "bad", nil), 2},
		{"wrapped parse", fmt.Errorf("load manifest: %w", NewParseError(1, "bad", nil)), 2},
		{"storage", NewStorageError("disk", nil), 1},
		{"plain", New("boom"), 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExitCode(tt.err))
		})
	}
}

func TestIsType(t *testing.T) {
	err := fmt.Errorf("outer: %w", &Error{Type: ErrorTypeConfig, Message: "x", Index: -1})
	assert.True(t, IsType(err, ErrorTypeConfig))
	assert.False(t, IsType(err, ErrorTypeParsing))
	assert.False(t, IsParse(New("plain")))
}

func TestStandardHelpers(t *testing.T) {
	cause := New("disk full")
	wrapped := fmt.Errorf("write: %w", NewStorageError("cannot append", cause))

	assert.True(t, Is(wrapped, cause))

	var typed *Error
	assert.True(t, As(wrapped, &typed))
	assert.Equal(t, ErrorTypeStorage, typed.Type)

	assert.Nil(t, Join(nil, nil))
	assert.True(t, Is(Join(nil, cause), cause))
}
