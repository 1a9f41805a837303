package concepts

import (
	"errors"
	"fmt"
)

// --------------------------------------------------------------------------
// Custom Error Type
// --------------------------------------------------------------------------

// RequestError is the uniform failure type attached to failed requests.
// It wraps a return code (of type ReqErrCode), a message and an optional
// underlying cause.
type RequestError struct {
	Code  ReqErrCode // The return code
	Msg   string     // The error message
	Cause error      // Optional underlying cause
}

// Error implements the error interface.
func (e *RequestError) Error() string {
	errorCode := ""
	switch e.Code {
	case ReqErrRuntime:
		errorCode = "Runtime"
	case ReqErrRetiredGeneration:
		errorCode = "RetiredGeneration"
	case ReqErrQueueOverflow:
		errorCode = "QueueOverflow"
	case ReqErrSequencing:
		errorCode = "Sequencing"
	default:
		errorCode = "Unknown"
	}

	if e.Cause != nil {
		return fmt.Sprintf("RequestError (code %s): %s: %v", errorCode, e.Msg, e.Cause)
	}
	return fmt.Sprintf("RequestError (code %s): %s", errorCode, e.Msg)
}

// Unwrap exposes the underlying cause to errors.Is/errors.As.
func (e *RequestError) Unwrap() error {
	return e.Cause
}

// --------------------------------------------------------------------------
// Constructors
// --------------------------------------------------------------------------

// NewRuntimeRequestError creates a RequestError wrapping an unexpected
// failure from a lower layer.
func NewRuntimeRequestError(msg string, cause error) *RequestError {
	return &RequestError{Code: ReqErrRuntime, Msg: msg, Cause: cause}
}

// NewRetiredGenerationError creates the terminal error a backend responds
// with when this client's generation has been superseded by a newer one.
func NewRetiredGenerationError(newGeneration uint64) *RequestError {
	return &RequestError{
		Code: ReqErrRetiredGeneration,
		Msg:  fmt.Sprintf("generation superseded by %d", newGeneration),
	}
}

// NewQueueOverflowError creates the backpressure error completed into an
// entry when a connection cannot buffer it.
func NewQueueOverflowError(limit int) *RequestError {
	return &RequestError{
		Code: ReqErrQueueOverflow,
		Msg:  fmt.Sprintf("connection queue exceeded %d entries", limit),
	}
}

// NewSequencingError creates a retryable error for out-of-sequence messages.
func NewSequencingError(msg string) *RequestError {
	return &RequestError{Code: ReqErrSequencing, Msg: msg}
}

// --------------------------------------------------------------------------
// Predicates
// --------------------------------------------------------------------------

// IsRetiredGeneration reports whether err is (or wraps) a retired-generation
// failure. This is the only per-request failure that is terminal for the
// whole client.
func IsRetiredGeneration(err error) bool {
	var re *RequestError
	if errors.As(err, &re) {
		return re.Code == ReqErrRetiredGeneration
	}
	return false
}

// AsRequestError coerces any error into a *RequestError. A nil error returns
// nil, a RequestError is returned unchanged and everything else is wrapped
// as a runtime request error.
func AsRequestError(err error) *RequestError {
	if err == nil {
		return nil
	}
	var re *RequestError
	if errors.As(err, &re) {
		return re
	}
	return NewRuntimeRequestError("unexpected failure", err)
}

// --------------------------------------------------------------------------
// Return Codes
// --------------------------------------------------------------------------

type ReqErrCode uint64

const (
	ReqErrRuntime           ReqErrCode = iota // 0: Unexpected failure in a lower layer.
	ReqErrRetiredGeneration                   // 1: Client generation superseded, terminal.
	ReqErrQueueOverflow                       // 2: Connection queue full, backpressure.
	ReqErrSequencing                          // 3: Out-of-sequence message, retryable.
)
