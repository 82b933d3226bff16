// SPDX-License-Identifier: GPL-3.0-or-later

package ctapi

import (
	"errors"
	"fmt"
	"strings"
	"syscall"
)

// Kind is the category of an [*Error].
type Kind string

// Error kinds.
const (
	// KindSystem is a native failure carrying a Win32 error code.
	KindSystem = Kind("system")

	// KindDecoding means the native library returned text we cannot decode.
	KindDecoding = Kind("decoding")

	// KindInvalidParameter means an argument cannot be passed to the library.
	KindInvalidParameter = Kind("invalid_parameter")

	// KindTimeout means the operation did not complete in time.
	KindTimeout = Kind("timeout")

	// KindTagNotFound means a list does not contain the requested tag.
	KindTagNotFound = Kind("tag_not_found")

	// KindConnectionFailed means we could not reach the CtAPI server.
	KindConnectionFailed = Kind("connection_failed")

	// KindUnsupported means the operation is not available.
	KindUnsupported = Kind("unsupported")

	// KindOther is any other failure, including vendor error codes.
	KindOther = Kind("other")
)

// Error is the error type returned by this package.
//
// Use [errors.As] to inspect the fields and [errors.Is] with another
// [*Error] to match by [Kind]:
//
//	if errors.Is(err, &ctapi.Error{Kind: ctapi.KindTimeout}) { ... }
type Error struct {
	// Kind is the error category.
	Kind Kind

	// Op is the failed operation (e.g., "ctCicode").
	Op string

	// Code is the native error code, if any.
	Code syscall.Errno

	// Param and Value describe an offending argument.
	Param string
	Value string

	// Tag is the tag name involved, if any.
	Tag string

	// Detail is a human readable description.
	Detail string

	// Cause is the wrapped error, if any.
	Cause error
}

// Error implements error.
func (e *Error) Error() string {
	var sb strings.Builder
	sb.WriteString("ctapi: ")
	if e.Op != "" {
		sb.WriteString(e.Op)
		sb.WriteString(": ")
	}
	switch e.Kind {
	case KindSystem:
		fmt.Fprintf(&sb, "system error %d", uint32(e.Code))
		if e.Cause != nil {
			fmt.Fprintf(&sb, " (%s)", e.Cause.Error())
		}
		return sb.String()
	case KindInvalidParameter:
		fmt.Fprintf(&sb, "invalid parameter %s=%q", e.Param, e.Value)
	case KindTagNotFound:
		fmt.Fprintf(&sb, "tag not found: %q", e.Tag)
	default:
		sb.WriteString(string(e.Kind))
	}
	if e.Code != 0 {
		fmt.Fprintf(&sb, " (code %#x)", uint32(e.Code))
	}
	if e.Detail != "" {
		sb.WriteString(": ")
		sb.WriteString(e.Detail)
	}
	if e.Cause != nil && e.Kind != KindInvalidParameter {
		sb.WriteString(": ")
		sb.WriteString(e.Cause.Error())
	}
	return sb.String()
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an [*Error] with the same [Kind].
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// newNativeError maps the raw error of a native call to an [*Error].
//
// A zero code means the library failed without setting the last error.
func newNativeError(op string, err error) error {
	var errno syscall.Errno
	if !errors.As(err, &errno) {
		if err == nil {
			return &Error{Kind: KindOther, Op: op, Detail: "unspecified failure"}
		}
		return err
	}
	switch {
	case errno == 0:
		return &Error{Kind: KindOther, Op: op, Detail: "unspecified failure"}
	case uint32(errno) >= ErrorUserDefinedBase:
		return &Error{Kind: KindOther, Op: op, Code: errno, Detail: "vendor error"}
	default:
		return &Error{Kind: KindSystem, Op: op, Code: errno, Cause: errno}
	}
}

// newTimeoutError returns a [KindTimeout] error wrapping cause.
func newTimeoutError(op string, cause error) error {
	return &Error{Kind: KindTimeout, Op: op, Cause: cause}
}

// errnoOf returns the native code carried by err, if any.
func errnoOf(err error) (syscall.Errno, bool) {
	var e *Error
	if errors.As(err, &e) && e.Code != 0 {
		return e.Code, true
	}
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return errno, true
	}
	return 0, false
}

// IsCancelled reports whether err is the outcome of a cancelled operation.
func IsCancelled(err error) bool {
	code, ok := errnoOf(err)
	return ok && code == errOperationAborted
}

// IsTimeout reports whether err is a [KindTimeout] error.
func IsTimeout(err error) bool {
	return errors.Is(err, &Error{Kind: KindTimeout})
}

var (
	// ErrClientClosed is returned when using a closed [*Client].
	ErrClientClosed = errors.New("ctapi: client closed")

	// ErrListClosed is returned when using a closed [*List].
	ErrListClosed = errors.New("ctapi: list closed")

	// ErrFinderClosed is returned when using a closed [*Finder].
	ErrFinderClosed = errors.New("ctapi: finder closed")

	// ErrOperationInFlight is returned when an [*AsyncOperation] is still pending.
	ErrOperationInFlight = errors.New("ctapi: operation in flight")

	// ErrOperationClosed is returned when initiating a closed [*AsyncOperation].
	ErrOperationClosed = errors.New("ctapi: operation closed")

	// ErrOperationNotStarted is returned when retrieving the outcome of
	// an [*AsyncOperation] that was never initiated.
	ErrOperationNotStarted = errors.New("ctapi: operation not started")

	// ErrOperationNotReset is returned when initiating an [*AsyncOperation]
	// that completed but was not reset.
	ErrOperationNotReset = errors.New("ctapi: operation not reset")

	// ErrUnsupportedPlatform is returned by the native layer on platforms
	// where CtApi.dll is not available.
	ErrUnsupportedPlatform = &Error{Kind: KindUnsupported, Detail: "CtApi.dll requires windows"}
)
