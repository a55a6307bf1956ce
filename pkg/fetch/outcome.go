package fetch

import (
	"fmt"
	"strconv"
)

// Kind tags the result of fetching one URL
type Kind int

const (
	KindSuccess Kind = iota
	KindHTTPError
	KindTimeout
	KindConnectionError
	KindTooManyRedirects
	KindTransferError
	KindDecodeError
	KindStorageError
	// KindCanceled means the run was interrupted while the URL was in flight.
	// Such an attempt is neither logged nor checkpointed.
	KindCanceled
)

var kindNames = map[Kind]string{
	KindSuccess:          "Success",
	KindHTTPError:        "HTTPError",
	KindTimeout:          "Timeout",
	KindConnectionError:  "ConnectionError",
	KindTooManyRedirects: "TooManyRedirects",
	KindTransferError:    "TransferError",
	KindDecodeError:      "DecodeError",
	KindStorageError:     "StorageError",
	KindCanceled:         "Canceled",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Outcome is the tagged result of a fetch
type Outcome struct {
	Kind Kind
	// StatusCode is the final HTTP status, when a response was received
	StatusCode int
	// Cached is set on a Success that found the file already on disk
	Cached bool
	// Bytes is the size of the body written to disk
	Bytes int64
	// Err is the underlying cause of a failure
	Err error
}

// OK reports whether the outcome is a Success
func (o Outcome) OK() bool {
	return o.Kind == KindSuccess
}

// Label is the token written to the failure log: the status code for an
// HTTP error, otherwise the kind name.
func (o Outcome) Label() string {
	if o.Kind == KindHTTPError {
		return strconv.Itoa(o.StatusCode)
	}
	return o.Kind.String()
}

func (o Outcome) String() string {
	if o.Err != nil {
		return fmt.Sprintf("%s: %v", o.Label(), o.Err)
	}
	return o.Label()
}

// DecodeFailure turns a Success whose bytes are not a readable image into a DecodeError
func DecodeFailure(o Outcome, err error) Outcome {
	return Outcome{Kind: KindDecodeError, StatusCode: o.StatusCode, Bytes: o.Bytes, Err: err}
}
