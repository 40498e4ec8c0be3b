package evidence

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrNotFound          = errors.New("evidence: record not found")
	ErrInvalidTransition = errors.New("evidence: invalid status transition")
	ErrEmptyQuery        = errors.New("evidence: empty verification query")
	ErrSuperseded        = errors.New("evidence: lookup superseded by a newer query")
)

// Failure kinds recorded on errored records.
const (
	KindTransport = "transport"
	KindParse     = "parse"
	KindCanceled  = "canceled"
	KindInternal  = "internal"
)

// TransportError is a non-2xx response or a network failure while confirming.
type TransportError struct {
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("transport: status %d: %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("transport: %v", e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ParseError is a malformed confirmation response body.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string { return fmt.Sprintf("parse: %v", e.Err) }

func (e *ParseError) Unwrap() error { return e.Err }

// FailureKind classifies a confirmation error.
func FailureKind(err error) string {
	var te *TransportError
	var pe *ParseError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &pe):
		return KindParse
	case errors.As(err, &te):
		return KindTransport
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return KindCanceled
	default:
		return KindInternal
	}
}
