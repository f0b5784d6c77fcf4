package service

import (
	"errors"
	"fmt"
)

// ErrorCode classifies store failures for the presentation layer.
type ErrorCode string

const (
	ErrCodeInvalid     ErrorCode = "INVALID"
	ErrCodeStorage     ErrorCode = "STORAGE"
	ErrCodeUnavailable ErrorCode = "UNAVAILABLE"
)

// Error is a classified store error.
type Error struct {
	Code    ErrorCode
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

func WrapError(code ErrorCode, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

var (
	ErrEmptyTitle      = NewError(ErrCodeInvalid, "title is required")
	ErrInvalidPriority = NewError(ErrCodeInvalid, "unknown priority")
	ErrNoTags          = NewError(ErrCodeInvalid, "at least one tag is required")
)

// IsError reports whether err carries the given code.
func IsError(err error, code ErrorCode) bool {
	var sErr *Error
	if errors.As(err, &sErr) {
		return sErr.Code == code
	}
	return false
}
