package analysis

import (
	"context"
	"errors"
	"fmt"
)

// Backend is an interpretation strategy the orchestrator can select
type Backend interface {
	// Name returns the stable identifier used in Result.Source and status reports
	Name() string

	// Priority orders backends; higher values are tried first
	Priority() int

	// IsAvailable reports whether the backend should be attempted at all.
	// It must be cheap and must not perform the analysis itself.
	IsAvailable(ctx context.Context) bool

	// TryAnalyze performs one analysis attempt
	TryAnalyze(ctx context.Context, req Request) Outcome
}

// Outcome is the result of a single TryAnalyze call: either a complete Result
// or the error that prevented one.
type Outcome struct {
	result Result
	err    error
	ok     bool
}

// Succeeded wraps a complete result
func Succeeded(result Result) Outcome {
	return Outcome{result: result, ok: true}
}

// Failed wraps the error of a failed attempt
func Failed(err error) Outcome {
	if err == nil {
		err = errors.New("analysis failed without an error")
	}
	return Outcome{err: err}
}

// OK reports whether the attempt produced a result
func (o Outcome) OK() bool {
	return o.ok
}

// Result returns the produced result. It is the zero value when OK is false.
func (o Outcome) Result() Result {
	return o.result
}

// Err returns the failure cause, or nil on success
func (o Outcome) Err() error {
	return o.err
}

// Error codes carried by BackendError
const (
	CodeUnavailable       = "unavailable"
	CodeHTTPStatus        = "http_status"
	CodeTransport         = "transport"
	CodeTimeout           = "timeout"
	CodeMalformedResponse = "malformed_response"
	CodeInvalidResult     = "invalid_result"
	CodePanic             = "panic"
)

// BackendError describes why a backend failed to analyze a request
type BackendError struct {
	// Backend that generated the error
	Backend string

	// Code is one of the Code* constants
	Code string

	// Message is the error message
	Message string

	// StatusCode is the upstream HTTP status (if applicable)
	StatusCode int

	// Cause is the underlying error
	Cause error
}

// Error implements the error interface
func (e *BackendError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Backend, e.Message)
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.StatusCode)
	}
	if e.Cause != nil {
		return msg + ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap implements error unwrapping
func (e *BackendError) Unwrap() error {
	return e.Cause
}

// NewBackendError creates a new backend error
func NewBackendError(backend, code, message string, statusCode int, cause error) *BackendError {
	return &BackendError{
		Backend:    backend,
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
		Cause:      cause,
	}
}

// ErrorCode extracts the BackendError code from err, or "" when err is not one
func ErrorCode(err error) string {
	var backendErr *BackendError
	if errors.As(err, &backendErr) {
		return backendErr.Code
	}
	return ""
}
