// Package failure classifies errors raised during a synchronization pass so
// callers can map them to a response without inspecting messages.
package failure

import (
	"errors"
	"fmt"
)

type Kind int

const (
	Internal Kind = iota
	InvalidRequest
	RecordNotFound
	RecordSourceFailure
	UpstreamAuthFailure
	SpreadsheetServiceFailure
)

func (k Kind) String() string {
	switch k {
	case InvalidRequest:
		return "invalid_request"
	case RecordNotFound:
		return "record_not_found"
	case RecordSourceFailure:
		return "record_source_failure"
	case UpstreamAuthFailure:
		return "upstream_auth_failure"
	case SpreadsheetServiceFailure:
		return "spreadsheet_service_failure"
	default:
		return "internal"
	}
}

// Error carries the failure kind and the operation that raised it.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s [%s]", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s [%s]: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New wraps err with a kind and operation name.
func New(kind Kind, op string, err error) error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Newf is New with a formatted cause.
func Newf(kind Kind, op, format string, args ...any) error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// KindOf returns the kind of the outermost *Error in err's chain, or
// Internal when there is none.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return Internal
}

// Is reports whether err is classified as kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
