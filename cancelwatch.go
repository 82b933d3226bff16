// SPDX-License-Identifier: GPL-3.0-or-later

package ctapi

import "context"

// WatchContext arranges for [AsyncOperation.Cancel] to be called when the
// context is done (cancelled or deadline exceeded). This provides responsive
// cancellation on external signals (e.g., SIGINT via signal.NotifyContext)
// since the native blocking wait has no timeout parameter.
//
// The returned stop function unregisters the watcher, with the same
// semantics as the function returned by [context.AfterFunc]. Call it once the
// outcome has been retrieved so that no goroutine outlives the operation.
//
// Cancellation is best-effort: the caller must still retrieve the outcome
// with [AsyncOperation.Wait], which returns either a cancelled error or the
// data of a request that completed before the cancellation took effect.
func (op *AsyncOperation) WatchContext(ctx context.Context) (stop func() bool) {
	return context.AfterFunc(ctx, func() {
		_, _ = op.Cancel()
	})
}
