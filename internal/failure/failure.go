// Package failure defines the closed set of error kinds surfaced to clients
// and the mapping from kind to HTTP status.
package failure

import (
	"errors"
	"net/http"
)

// Kind classifies an error for the caller.
type Kind int

const (
	Internal Kind = iota
	InvalidInput
	InvalidTaskType
	BracketMismatch
	InvalidID
	InvalidHelpfulFlag
	NotFound
	MissingCredential
	QuotaExceeded
	InvalidCredential
	AccessForbidden
	UpstreamError
	// InvalidCounters is only produced when strict stats counters are enabled.
	InvalidCounters
)

var kindNames = map[Kind]string{
	Internal:           "internal",
	InvalidInput:       "invalid_input",
	InvalidTaskType:    "invalid_task_type",
	BracketMismatch:    "bracket_mismatch",
	InvalidID:          "invalid_id",
	InvalidHelpfulFlag: "invalid_helpful_flag",
	NotFound:           "not_found",
	MissingCredential:  "missing_credential",
	QuotaExceeded:      "quota_exceeded",
	InvalidCredential:  "invalid_credential",
	AccessForbidden:    "access_forbidden",
	UpstreamError:      "upstream_error",
	InvalidCounters:    "invalid_counters",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "unknown"
}

// Status returns the HTTP status code a failure of this kind maps to.
func (k Kind) Status() int {
	switch k {
	case InvalidInput, InvalidTaskType, BracketMismatch, InvalidID, InvalidHelpfulFlag, InvalidCounters:
		return http.StatusBadRequest
	case NotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// Error is a classified failure. Msg is safe to show to clients.
type Error struct {
	Kind Kind
	Op   string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Kind.String()
}

func (e *Error) Unwrap() error { return e.Err }

// New returns a failure of the given kind with a client-facing message.
func New(kind Kind, op, msg string) *Error {
	return &Error{Kind: kind, Op: op, Msg: msg}
}

// Wrap classifies err. The message defaults to err's message.
func Wrap(kind Kind, op, msg string, err error) *Error {
	return &Error{Kind: kind, Op: op, Msg: msg, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain, or Internal.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return Internal
}

// OpOf returns the operation recorded on err, if any.
func OpOf(err error) string {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Op
	}
	return ""
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	var fe *Error
	return errors.As(err, &fe) && fe.Kind == kind
}
