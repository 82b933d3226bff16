// SPDX-License-Identifier: GPL-3.0-or-later

package ctapi

// SLogger abstracts the [*slog.Logger] behavior.
//
// By using an abstraction we allow for unit testing and alternative implementations.
//
// This package uses three log levels:
//   - Info for session and operation lifecycle events (openStart/openDone,
//     cicodeStart/cicodeDone, asyncStart/asyncDone, ...)
//   - Debug for polling a pending [*AsyncOperation]
//   - Warn for teardown failures that cannot be returned to the caller,
//     such as a completion event that fails to close
//
// The [*slog.Logger] type satisfies this interface.
type SLogger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}

// DefaultSLogger returns the [SLogger] used when the caller does not care
// about logs. It discards everything.
func DefaultSLogger() SLogger {
	return discardSLogger{}
}

type discardSLogger struct{}

var _ SLogger = discardSLogger{}

func (discardSLogger) Debug(msg string, args ...any) {}

func (discardSLogger) Info(msg string, args ...any) {}

func (discardSLogger) Warn(msg string, args ...any) {}
