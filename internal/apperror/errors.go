// Package apperror defines the error taxonomy shared by the search pipeline.
package apperror

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// Kind classifies a pipeline failure.
type Kind string

const (
	KindUnknown       Kind = "unknown"
	KindValidation    Kind = "validation"
	KindConfiguration Kind = "configuration"
	KindGeneration    Kind = "generation"
	KindUpstream      Kind = "upstream"
	KindTimeout       Kind = "timeout"
	KindExecution     Kind = "execution"
)

// Error is a classified failure. Status and Body are set when an
// upstream HTTP call answered with a non-2xx response.
type Error struct {
	Kind   Kind
	Op     string
	Status int
	Body   string
	Msg    string
	Err    error
}

func (e *Error) Error() string {
	switch {
	case e.Status != 0:
		return fmt.Sprintf("%s error: %d - %s", e.Op, e.Status, e.Body)
	case e.Msg != "" && e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	case e.Msg != "":
		return e.Msg
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	default:
		return string(e.Kind) + " error"
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Validation reports a malformed request.
func Validation(msg string) *Error {
	return &Error{Kind: KindValidation, Msg: msg}
}

// Configuration reports missing or unusable deployment configuration.
func Configuration(format string, args ...any) *Error {
	return &Error{Kind: KindConfiguration, Msg: fmt.Sprintf(format, args...)}
}

// Generation reports a model response that could not be turned into SQL.
func Generation(msg string, err error) *Error {
	return &Error{Kind: KindGeneration, Op: "generation", Msg: msg, Err: err}
}

// Upstream reports a non-2xx answer from the text-generation endpoint.
func Upstream(op string, status int, body string) *Error {
	return &Error{Kind: KindUpstream, Op: op, Status: status, Body: body}
}

// Timeout reports an outbound call that exceeded its deadline.
func Timeout(op string, err error) *Error {
	return &Error{Kind: KindTimeout, Op: op, Msg: op + " request timed out", Err: err}
}

// Execution reports a failed database query.
func Execution(msg string, err error) *Error {
	return &Error{Kind: KindExecution, Op: "execution", Msg: msg, Err: err}
}

// ExecutionStatus reports a non-2xx answer from a database query API.
func ExecutionStatus(op string, status int, body string) *Error {
	return &Error{Kind: KindExecution, Op: op, Status: status, Body: body}
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// HTTPStatus maps an error to the status the search endpoint answers with.
func HTTPStatus(err error) int {
	if KindOf(err) == KindValidation {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// IsTimeout recognizes deadline expiry from contexts and net/http clients.
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
