// OTEAPI Services - Strategy Pipeline REST Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/oteapi-services

package models

import (
	"errors"
	"fmt"
)

// ErrorKind is the machine-checkable discriminant of a client-facing error.
type ErrorKind string

const (
	KindNotFound      ErrorKind = "not_found"
	KindTypeMismatch  ErrorKind = "type_mismatch"
	KindUnprocessable ErrorKind = "unprocessable"
	KindConflict      ErrorKind = "conflict"
	KindInvalid       ErrorKind = "invalid"
)

// Sentinels for errors.Is. Every *Error matches the sentinel of its kind.
var (
	ErrNotFound      = errors.New("not found")
	ErrTypeMismatch  = errors.New("type mismatch")
	ErrUnprocessable = errors.New("unprocessable")
	ErrConflict      = errors.New("conflict")
	ErrInvalid       = errors.New("invalid request")
)

var kindSentinels = map[ErrorKind]error{
	KindNotFound:      ErrNotFound,
	KindTypeMismatch:  ErrTypeMismatch,
	KindUnprocessable: ErrUnprocessable,
	KindConflict:      ErrConflict,
	KindInvalid:       ErrInvalid,
}

// Error carries the kind, the offending field and identifier, and a message.
type Error struct {
	Kind    ErrorKind
	Field   string
	ID      string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the sentinel for the error's kind.
func (e *Error) Is(target error) bool {
	return kindSentinels[e.Kind] == target
}

// NotFound reports an id that is absent from the cache.
func NotFound(field, id string) *Error {
	return &Error{
		Kind:    KindNotFound,
		Field:   field,
		ID:      id,
		Message: fmt.Sprintf("%s=%s not found in server cache.", field, id),
	}
}

// TypeMismatch reports a cached value or session field of the wrong shape.
func TypeMismatch(field, id, format string, args ...any) *Error {
	return &Error{
		Kind:    KindTypeMismatch,
		Field:   field,
		ID:      id,
		Message: fmt.Sprintf(format, args...),
	}
}

// Unprocessable reports a configuration that cannot select a strategy.
func Unprocessable(field, id, format string, args ...any) *Error {
	return &Error{
		Kind:    KindUnprocessable,
		Field:   field,
		ID:      id,
		Message: fmt.Sprintf(format, args...),
	}
}

// Conflict reports a stale version token on a session write.
func Conflict(field, id, format string, args ...any) *Error {
	return &Error{
		Kind:    KindConflict,
		Field:   field,
		ID:      id,
		Message: fmt.Sprintf(format, args...),
	}
}

// Invalid reports a malformed request body or parameter.
func Invalid(field, format string, args ...any) *Error {
	return &Error{
		Kind:    KindInvalid,
		Field:   field,
		Message: fmt.Sprintf(format, args...),
	}
}

// AsError extracts the first *Error in err's chain.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
