// internal/crawler/errors.go
package crawler

import (
	"context"
	"errors"
	"fmt"
)

// Common crawl errors
var (
	ErrInsufficientCells = errors.New("row has fewer than 7 cells")
	ErrNoLink            = errors.New("listing has no detail link")
	ErrNoSurface         = errors.New("no detail surface opened")
	ErrNoMorePages       = errors.New("no further page")
	ErrSearchNotAccepted = errors.New("search form not found")
)

// ErrorCode classifies a crawl failure
type ErrorCode string

const (
	ErrCodeRowParse   ErrorCode = "ROW_PARSE"
	ErrCodeDetail     ErrorCode = "DETAIL"
	ErrCodePagination ErrorCode = "PAGINATION"
	ErrCodeSurface    ErrorCode = "SURFACE"
	ErrCodeTimeout    ErrorCode = "TIMEOUT"
)

// Error wraps a crawl failure with its code and context
type Error struct {
	Code       ErrorCode
	Message    string
	Underlying error
	Details    map[string]interface{}
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Underlying)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Underlying
}

// Is matches another *Error by code, otherwise defers to the underlying error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return errors.Is(e.Underlying, target)
}

// NewError creates a new Error
func NewError(code ErrorCode, message string, err error) *Error {
	return &Error{
		Code:       code,
		Message:    message,
		Underlying: err,
		Details:    make(map[string]interface{}),
	}
}

// WithDetail adds a detail to the error
func (e *Error) WithDetail(key string, value interface{}) *Error {
	e.Details[key] = value
	return e
}

// Code markers usable with errors.Is
var (
	RowParseError   = &Error{Code: ErrCodeRowParse}
	DetailError     = &Error{Code: ErrCodeDetail}
	PaginationError = &Error{Code: ErrCodePagination}
	SurfaceError    = &Error{Code: ErrCodeSurface}
)

// NewSurfaceError wraps a browsing surface failure. Deadline overruns are
// reported with the timeout code so callers can tell them apart.
func NewSurfaceError(op string, err error) *Error {
	if errors.Is(err, context.DeadlineExceeded) {
		return NewError(ErrCodeTimeout, op, err)
	}
	return NewError(ErrCodeSurface, op, err)
}

// IsSurfaceFailure reports whether err came from the browsing surface itself
func IsSurfaceFailure(err error) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Code == ErrCodeSurface || e.Code == ErrCodeTimeout
}
