// SPDX-License-Identifier: GPL-3.0-or-later

package ctapi

import (
	"github.com/bassosimone/runtimex"
	"github.com/google/uuid"
)

// NewSpanID returns a UUIDv7 representing a span.
//
// A span is a sequence of operations that can fail in a single, specific
// way. For example, opening a session or a single overlapped Cicode call
// from initiation to the retrieval of its outcome.
//
// Every [*AsyncOperation] gets a span ID, which is available through
// [AsyncOperation.ID] and appears in its log events as "asyncID".
//
// The span terminology is borrowed from OTel.
//
// This function panics if the system random number generator fails,
// which should only happen under extraordinary circumstances.
func NewSpanID() string {
	return runtimex.PanicOnError1(uuid.NewV7()).String()
}
