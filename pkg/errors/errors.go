package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorType represents different types of fatal errors that can stop a run
type ErrorType string

const (
	ErrorTypeParsing ErrorType = "parsing"
	ErrorTypeConfig  ErrorType = "config"
	ErrorTypeStorage ErrorType = "storage"
	ErrorTypeUnknown ErrorType = "unknown"
)

// Error represents a typed error. Index is the zero-based position of the
// offending manifest entry, or -1 when the error is not tied to one.
type Error struct {
	Type    ErrorType
	Message string
	Index   int
	Err     error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s error: %s", e.Type, e.Message)
	if e.Index >= 0 {
		msg = fmt.Sprintf("%s error (entry %d): %s", e.Type, e.Index, e.Message)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewParseError builds a parsing error for the entry at index
func NewParseError(index int, message string, err error) *Error {
	return &Error{Type: ErrorTypeParsing, Message: message, Index: index, Err: err}
}

// NewStorageError builds a storage error not tied to a manifest entry
func NewStorageError(message string, err error) *Error {
	return &Error{Type: ErrorTypeStorage, Message: message, Index: -1, Err: err}
}

// IsType reports whether any error in err's chain is an *Error of type t
func IsType(err error, t ErrorType) bool {
	var typed *Error
	if stderrors.As(err, &typed) {
		return typed.Type == t
	}
	return false
}

// IsParse reports whether err is a parsing error
func IsParse(err error) bool {
	return IsType(err, ErrorTypeParsing)
}

// ExitCode maps a fatal error to the process exit code
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case IsParse(err):
		return 2
	default:
		return 1
	}
}

// As finds the first error in err's chain that matches target
func As(err error, target any) bool { return stderrors.As(err, target) }

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool { return stderrors.Is(err, target) }

// New returns an untyped error with the given text
func New(text string) error { return stderrors.New(text) }

// Join wraps errs into one error, discarding nils
func Join(errs ...error) error { return stderrors.Join(errs...) }
