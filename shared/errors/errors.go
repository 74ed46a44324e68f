package errors

import (
	"errors"
	"net/http"
)

// default error is internal service error at handler level
// if error has different status code use ErrorWithStatusCode
type ErrorWithStatusCode struct {
	Message    string
	StatusCode int
	Code       string // provider error code, e.g. "auth/invalid-credential"
}

func (e *ErrorWithStatusCode) Error() string {
	return e.Message
}

func NotFound(message string) error {
	return &ErrorWithStatusCode{Message: message, StatusCode: http.StatusNotFound}
}

func NotAuthenticated() error {
	return &ErrorWithStatusCode{Message: "Not authenticated", StatusCode: http.StatusUnauthorized}
}

func Validation(message string) error {
	return &ErrorWithStatusCode{Message: message, StatusCode: http.StatusBadRequest}
}

func Forbidden(message string) error {
	return &ErrorWithStatusCode{Message: message, StatusCode: http.StatusForbidden}
}

func Conflict(message string) error {
	return &ErrorWithStatusCode{Message: message, StatusCode: http.StatusConflict}
}

// WithCode builds an identity provider error.
func WithCode(code, message string, statusCode int) error {
	return &ErrorWithStatusCode{Message: message, StatusCode: statusCode, Code: code}
}

// StatusCode returns the status code carried by err, or 500.
func StatusCode(err error) int {
	var e *ErrorWithStatusCode
	if errors.As(err, &e) {
		return e.StatusCode
	}
	return http.StatusInternalServerError
}

// Code returns the provider code carried by err, or "".
func Code(err error) string {
	var e *ErrorWithStatusCode
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

func IsNotFound(err error) bool {
	return StatusCode(err) == http.StatusNotFound
}

func IsNotAuthenticated(err error) bool {
	return StatusCode(err) == http.StatusUnauthorized
}

func IsValidation(err error) bool {
	return StatusCode(err) == http.StatusBadRequest
}
