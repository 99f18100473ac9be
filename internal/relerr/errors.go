package relerr

import (
	"errors"
	"fmt"
)

// Kind classifies relationship failures.
type Kind string

const (
	KindInvalidInput     Kind = "INVALID_INPUT"
	KindUserNotFound     Kind = "USER_NOT_FOUND"
	KindNotFound         Kind = "NOT_FOUND"
	KindForbidden        Kind = "FORBIDDEN"
	KindInvalidState     Kind = "INVALID_STATE"
	KindAlreadyExists    Kind = "ALREADY_EXISTS"
	KindDuplicatePending Kind = "DUPLICATE_PENDING"
	KindExpired          Kind = "EXPIRED"
	KindStoreFailure     Kind = "STORE_FAILURE"
)

// Error is a classified failure. Key selects a catalog template; Msg is the
// fallback text used when the catalog has no entry.
type Error struct {
	Kind  Kind
	Key   string
	Msg   string
	Data  map[string]string
	Cause error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Cause)
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Cause }

// Is matches copies produced by With against their sentinel.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind && t.Key == e.Key
}

// With returns a copy of e carrying template data and a rendered fallback.
func (e *Error) With(data map[string]string, msg string) *Error {
	out := *e
	out.Data = data
	out.Msg = msg
	return &out
}

// New builds a sentinel.
func New(kind Kind, key, msg string) *Error {
	return &Error{Kind: kind, Key: key, Msg: msg}
}

// Store wraps a persistence error. The message stays generic so storage
// details never reach users.
func Store(cause error) error {
	if cause == nil {
		return nil
	}
	var re *Error
	if errors.As(cause, &re) {
		return cause
	}
	return &Error{Kind: KindStoreFailure, Key: "common.store_failure", Msg: "Internal error, please try again later", Cause: cause}
}

// KindOf reports the kind of err; unclassified errors count as store failures.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var re *Error
	if errors.As(err, &re) {
		return re.Kind
	}
	return KindStoreFailure
}

// Is reports whether err is classified as kind.
func Is(err error, kind Kind) bool { return err != nil && KindOf(err) == kind }

// As returns the classified form of err, wrapping unknown errors as store failures.
func As(err error) *Error {
	if err == nil {
		return nil
	}
	var re *Error
	if errors.As(err, &re) {
		return re
	}
	var out *Error
	errors.As(Store(err), &out)
	return out
}
