package services

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// ErrorKind categorizes failures so transports can map them to a status.
type ErrorKind string

const (
	KindValidation ErrorKind = "validation"
	KindNotFound   ErrorKind = "not_found"
	KindForbidden  ErrorKind = "forbidden"
	KindConflict   ErrorKind = "conflict"
)

// Error is returned for every locally recoverable failure of the engine.
type Error struct {
	Kind    ErrorKind
	Message string
	// Fields holds per-field validation messages, if any.
	Fields map[string]string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func Validation(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func Forbidden(format string, args ...any) *Error {
	return &Error{Kind: KindForbidden, Message: fmt.Sprintf(format, args...)}
}

func Conflict(format string, args ...any) *Error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

// KindOf returns the kind of a wrapped *Error, or "" for infrastructure errors.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

func IsValidation(err error) bool { return KindOf(err) == KindValidation }
func IsNotFound(err error) bool   { return KindOf(err) == KindNotFound }
func IsForbidden(err error) bool  { return KindOf(err) == KindForbidden }
func IsConflict(err error) bool   { return KindOf(err) == KindConflict }

// lookupErr turns a missing row into NotFound and wraps everything else.
func lookupErr(err error, what, id string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return NotFound("%s %s not found", what, id)
	}
	return fmt.Errorf("load %s %s: %w", what, id, err)
}
