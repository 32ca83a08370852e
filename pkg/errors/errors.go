// Package errors defines the sentinel failures of the summarization pipeline
// and maps them to HTTP status codes.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrInvalidParameter = errors.New("invalid parameter")
	ErrAnnotation       = errors.New("annotation failed")
	ErrStore            = errors.New("frequency store failure")
	ErrOracleTimeout    = errors.New("specificity oracle timed out")
)

// statuses is consulted in order when an error carries no explicit status.
var statuses = []struct {
	sentinel error
	status   int
}{
	{ErrInvalidParameter, http.StatusBadRequest},
	{ErrAnnotation, http.StatusBadGateway},
	{ErrStore, http.StatusServiceUnavailable},
	{ErrOracleTimeout, http.StatusGatewayTimeout},
}

// AppError attaches a message and an HTTP status to a sentinel.
type AppError struct {
	Err        error
	Message    string
	StatusCode int
}

func (e *AppError) Error() string {
	if e.Message == "" {
		return e.Err.Error()
	}
	return e.Err.Error() + ": " + e.Message
}

func (e *AppError) Unwrap() error { return e.Err }

func New(sentinel error, statusCode int, message string) *AppError {
	return &AppError{Err: sentinel, Message: message, StatusCode: statusCode}
}

func Newf(sentinel error, statusCode int, format string, args ...any) *AppError {
	return New(sentinel, statusCode, fmt.Sprintf(format, args...))
}

// InvalidParameterf reports a caller mistake as 400.
func InvalidParameterf(format string, args ...any) *AppError {
	return Newf(ErrInvalidParameter, http.StatusBadRequest, format, args...)
}

// HTTPStatusCode prefers the status of the outermost AppError, then the
// first matching sentinel, then 500.
func HTTPStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.StatusCode != 0 {
		return appErr.StatusCode
	}
	for _, s := range statuses {
		if errors.Is(err, s.sentinel) {
			return s.status
		}
	}
	return http.StatusInternalServerError
}

// ClientMessage returns what may be shown to the caller: the message of a
// 400, a fixed note for an oracle timeout, otherwise fallback.
func ClientMessage(err error, fallback string) string {
	var appErr *AppError
	if errors.As(err, &appErr) && HTTPStatusCode(err) == http.StatusBadRequest {
		return appErr.Message
	}
	if errors.Is(err, ErrOracleTimeout) {
		return "specificity lookups timed out"
	}
	return fallback
}
