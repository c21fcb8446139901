package metrics

import (
	"fmt"
)

// ErrorCode identifies why a scrape could not be answered.
type ErrorCode string

// ErrorCode constants for scrape failures.
const (
	ErrWriteMetrics  ErrorCode = "WRITE_METRICS"
	ErrBuildResponse ErrorCode = "BUILD_RESPONSE"
)

// ServeError wraps the cause of a failed scrape. It is only ever logged; the
// client sees a bare 500.
type ServeError struct {
	Code  ErrorCode
	Cause error
}

func writeError(cause error) *ServeError {
	return &ServeError{Code: ErrWriteMetrics, Cause: cause}
}

func buildError(cause error) *ServeError {
	return &ServeError{Code: ErrBuildResponse, Cause: cause}
}

// Error implements the error interface.
func (e *ServeError) Error() string {
	msg := "error writing metrics"
	if e.Code == ErrBuildResponse {
		msg = "error constructing HTTP response"
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *ServeError) Unwrap() error {
	return e.Cause
}

// HasCode checks if the error matches a specific code.
func (e *ServeError) HasCode(code ErrorCode) bool {
	return e.Code == code
}
