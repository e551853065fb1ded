package prediction

import (
	"errors"
	"fmt"
)

// FailureMessage is the only failure text shown to users. The cause of a
// failure is logged and kept in Error.Err.
const FailureMessage = "Failed to get prediction from AI model. Please check the logs for details."

// Kind tells prediction failures apart
type Kind int

// Failure kinds
const (
	KindTransport Kind = iota + 1
	KindEmptyResponse
	KindParse
	KindInvalidFormat
)

func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "TransportError"
	case KindEmptyResponse:
		return "EmptyResponse"
	case KindParse:
		return "ParseError"
	case KindInvalidFormat:
		return "InvalidFormat"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Error is returned for every failed prediction. Its message is always
// FailureMessage regardless of Kind.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	return FailureMessage
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Detail describes the underlying cause, for logs only
func (e *Error) Detail() string {
	if e.Err == nil {
		return e.Kind.String()
	}
	return e.Kind.String() + ": " + e.Err.Error()
}

func newError(kind Kind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}

// KindOf returns the failure kind of err, if err is a prediction failure
func KindOf(err error) (Kind, bool) {
	var perr *Error
	if errors.As(err, &perr) {
		return perr.Kind, true
	}
	return 0, false
}
