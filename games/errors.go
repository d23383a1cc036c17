/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package games

import (
	"errors"
	"fmt"
)

// Kind classifies why an operation was rejected.
type Kind string

const (
	KindNotFound        Kind = "not_found"
	KindInvalidState    Kind = "invalid_state"
	KindInvalidArgument Kind = "invalid_argument"
	KindForbidden       Kind = "forbidden"
)

// Error is returned by every rejected catalog or session operation.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	return e.Message
}

func newError(kind Kind, format string, args ...any) *Error {
	return &Error{
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
	}
}

// KindOf returns the Kind of err, or "" if err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

func IsNotFound(err error) bool        { return KindOf(err) == KindNotFound }
func IsInvalidState(err error) bool    { return KindOf(err) == KindInvalidState }
func IsInvalidArgument(err error) bool { return KindOf(err) == KindInvalidArgument }
func IsForbidden(err error) bool       { return KindOf(err) == KindForbidden }
