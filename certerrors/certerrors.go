// Package certerrors classifies certificate pipeline failures.
package certerrors

import "errors"

// Code identifies a failure kind independent of the transport that surfaces it.
type Code string

const (
	// CodeAssetDegraded is recovered locally and never returned to callers.
	CodeAssetDegraded        Code = "asset_resolution_degraded"
	CodeCompositionMalformed Code = "composition_malformed"
	CodeRasterizationFailed  Code = "rasterization_failed"
	CodeEncodingFailed       Code = "encoding_failed"
	CodeOutputTooSmall       Code = "output_too_small"
	CodePersistenceFailed    Code = "persistence_failed"
	CodeCanceled             Code = "canceled"
)

// Sentinels for errors.Is comparisons; matching is by code only.
var (
	ErrAssetDegraded        = &Error{Code: CodeAssetDegraded}
	ErrCompositionMalformed = &Error{Code: CodeCompositionMalformed}
	ErrRasterizationFailed  = &Error{Code: CodeRasterizationFailed}
	ErrEncodingFailed       = &Error{Code: CodeEncodingFailed}
	ErrOutputTooSmall       = &Error{Code: CodeOutputTooSmall}
	ErrPersistenceFailed    = &Error{Code: CodePersistenceFailed}
	ErrCanceled             = &Error{Code: CodeCanceled}
)

// Error wraps a pipeline failure with a stable code.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Code)
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error with the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// New creates an error with the given code and message.
func New(code Code, msg string) error {
	return &Error{Code: code, Message: msg}
}

// Wrap attaches code to err. An err that is already coded keeps its code.
func Wrap(err error, code Code, msg string) error {
	if err == nil {
		return nil
	}
	var existing *Error
	if errors.As(err, &existing) {
		return &Error{Code: existing.Code, Message: msg, Err: err}
	}
	return &Error{Code: code, Message: msg, Err: err}
}

// HasCode reports whether err carries code.
func HasCode(err error, code Code) bool {
	return CodeOf(err) == code
}

// CodeOf returns the code of err, or "" when err is not coded.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// Fatal reports whether the code aborts an operation.
func (c Code) Fatal() bool {
	return c != "" && c != CodeAssetDegraded
}
