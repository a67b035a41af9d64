// Package errs provides the API error type: a coded error that knows its
// HTTP status and encodes itself as the response body.
package errs

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// ErrCode classifies an API error and maps it to an HTTP status.
type ErrCode int

const (
	OK ErrCode = iota
	InvalidArgument
	NotFound
	AlreadyExists
	FailedPrecondition
	Internal
)

var codeNames = map[ErrCode]string{
	OK:                 "ok",
	InvalidArgument:    "invalid_argument",
	NotFound:           "not_found",
	AlreadyExists:      "already_exists",
	FailedPrecondition: "failed_precondition",
	Internal:           "internal",
}

var httpStatuses = map[ErrCode]int{
	OK:                 http.StatusOK,
	InvalidArgument:    http.StatusBadRequest,
	NotFound:           http.StatusNotFound,
	AlreadyExists:      http.StatusConflict,
	FailedPrecondition: http.StatusConflict,
	Internal:           http.StatusInternalServerError,
}

func (c ErrCode) String() string { return codeNames[c] }

// Error is the concrete error the API layer returns to clients.
type Error struct {
	Code    ErrCode `json:"-"`
	Message string  `json:"message"`
}

// New constructs an Error from a code and an underlying error.
func New(code ErrCode, err error) *Error {
	return &Error{Code: code, Message: err.Error()}
}

// Newf constructs an Error from a code and a format string.
func Newf(code ErrCode, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Error implements the error interface.
func (e *Error) Error() string { return e.Message }

// HTTPStatus returns the HTTP status for the error's code.
func (e *Error) HTTPStatus() int {
	if status, ok := httpStatuses[e.Code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// Encode implements the web.Encoder interface.
func (e *Error) Encode() ([]byte, string, error) {
	wire := struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}{
		Code:    e.Code.String(),
		Message: e.Message,
	}
	data, err := json.Marshal(wire)
	return data, "application/json", err
}

// IsError reports whether err is (or wraps) an *Error.
func IsError(err error) bool {
	var e *Error
	return errors.As(err, &e)
}

// GetError extracts the *Error from err, or wraps err as Internal.
func GetError(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return New(Internal, err)
}
