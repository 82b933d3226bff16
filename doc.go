// SPDX-License-Identifier: GPL-3.0-or-later

// Package ctapi is a client for CtAPI, the native library that exposes a
// Citect SCADA server to external programs.
//
// # Sessions
//
// [Open] (or [OpenEx]) returns a [*Client] wrapping a native session. The
// client offers thin synchronous wrappers for Cicode execution, tag reads and
// writes, tag properties and scaling conversions. [*List] reads many tags
// with a single request and [*Finder] iterates over server tables.
//
// Text crosses the native boundary in the GBK code page. See [EncodeString]
// and [DecodeString].
//
// # Overlapped Operations
//
// The core of the package is [*AsyncOperation], which tracks one overlapped
// native request at a time. Initiators bind it to a request:
//   - [Client.CicodeAsync]: executes a Cicode command
//   - [Client.TagWriteAsync]: writes a tag
//   - [List.ReadAsync]: reads every tag of a list
//   - [List.WriteAsync]: writes a tag of a list
//
// The outcome is retrieved with [AsyncOperation.Wait] (blocking) or
// [AsyncOperation.Poll] (non-blocking). [AsyncOperation.Cancel] requests a
// best-effort cancellation, after which the caller must still retrieve the
// outcome. A completed operation may be reused after [AsyncOperation.Reset].
//
// While a request is pending, the native library owns the result buffer and
// the control block of the operation. To keep this safe, the operation pins
// both, holds a lease on its [*Client] so that [Client.Close] defers the native
// close, and refuses to be reset or closed until the outcome is retrieved.
//
// # Pipelines
//
// Like the rest of the package, blocking operations are also available as
// [Func] values honouring a [context.Context]:
//   - [OpenFunc]: opens a [*Client] from [Credentials]
//   - [ProbeFunc]: checks that the server accepts TCP connections
//   - [CicodeFunc], [TagReadFunc], [TagWriteFunc], [ListReadFunc]
//
// Compose them with [Compose2], [Compose3] and [Compose4], or run them in
// background with [Go]. The native library has no timeout parameter: when the
// context is done these Funcs return a [KindTimeout] error, request a
// cancellation where possible, and let a background goroutine drain the request.
//
// # Observability
//
// All primitives support structured logging via [SLogger] (compatible with [log/slog]).
// By default, logging is disabled. Error classification is configurable via
// [ErrClassifier] and defaults to [DefaultErrClassifier].
//
// Span events come in *Start/*Done pairs (e.g., openStart/openDone and
// asyncWaitStart/asyncWaitDone). Completion events include t0 (start time),
// t (end time), err and errClass. Overlapped operation events carry the
// asyncID returned by [AsyncOperation.ID]. Teardown failures that cannot
// be returned, like closing a completion event, are logged at warning level.
//
// # Platforms
//
// CtApi.dll exists only on Windows. Elsewhere, [DefaultNativeAPI] fails every
// call with [ErrUnsupportedPlatform]; callers may inject a [NativeAPI] via
// [Config.API].
package ctapi
