// SPDX-License-Identifier: GPL-3.0-or-later

package ctapi

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bassosimone/runtimex"
)

// OperationState is the lifecycle state of an [*AsyncOperation].
type OperationState int32

const (
	// StateIdle means the operation is not bound to a native request.
	StateIdle OperationState = iota

	// StatePending means a native request is in flight.
	StatePending

	// StateComplete means the request completed successfully.
	StateComplete

	// StateCancelled means the request was aborted by a cancellation.
	StateCancelled

	// StateFailed means the request completed with an error.
	StateFailed
)

// String implements [fmt.Stringer].
func (s OperationState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePending:
		return "pending"
	case StateComplete:
		return "complete"
	case StateCancelled:
		return "cancelled"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("OperationState(%d)", int32(s))
	}
}

// AsyncOperation tracks exactly one overlapped native request at a time.
//
// It owns a result buffer and an OVERLAPPED control block, both allocated
// once by [NewAsyncOperation]. While a request is pending the native library
// writes into both asynchronously, so they are pinned and never reallocated,
// and the operation refuses to be reset or closed.
//
// The lifecycle is: create, initiate (e.g., [Client.CicodeAsync]), retrieve
// the outcome with [AsyncOperation.Wait] or [AsyncOperation.Poll], then
// either [AsyncOperation.Reset] for reuse or [AsyncOperation.Close].
//
// Methods are safe for concurrent use. In particular, [AsyncOperation.Cancel]
// may be called while another goroutine blocks in [AsyncOperation.Wait].
type AsyncOperation struct {
	api           NativeAPI
	buf           []byte
	client        *Client
	closed        bool
	err           error
	errClassifier ErrClassifier
	id            string
	list          *List
	logger        SLogger
	mu            sync.Mutex
	name          string
	ov            *Overlapped
	ownsEvent     bool
	pinner        runtime.Pinner
	result        string
	state         OperationState
	t0            time.Time
	timeNow       func() time.Time
}

// NewAsyncOperation creates a new [*AsyncOperation].
//
// The cfg argument contains the common configuration for ctapi operations.
//
// The bufferSize argument is the size of the result buffer. When it is
// zero or negative we use [Config.BufferSize].
//
// The logger argument is the [SLogger] to use for structured logging.
//
// When [Config.CompletionEvent] is true, we create a manual-reset, initially
// unset event and store it in the control block. Failing to create the event
// yields a [KindSystem] error.
func NewAsyncOperation(cfg *Config, bufferSize int, logger SLogger) (*AsyncOperation, error) {
	if bufferSize <= 0 {
		bufferSize = cfg.BufferSize
	}
	runtimex.Assert(bufferSize > 0)
	op := &AsyncOperation{
		api:           cfg.API,
		buf:           make([]byte, bufferSize),
		errClassifier: cfg.ErrClassifier,
		id:            NewSpanID(),
		logger:        logger,
		ov:            &Overlapped{},
		state:         StateIdle,
		timeNow:       cfg.TimeNow,
	}
	if cfg.CompletionEvent {
		event, err := cfg.API.CreateEvent()
		if err != nil {
			return nil, newNativeError("CreateEvent", err)
		}
		op.ov.HEvent = event
		op.ownsEvent = true
	}
	return op, nil
}

// ID returns the span ID identifying this operation in the logs.
func (op *AsyncOperation) ID() string {
	return op.id
}

// BufferSize returns the size of the result buffer.
func (op *AsyncOperation) BufferSize() int {
	return len(op.buf)
}

// State returns the current [OperationState].
func (op *AsyncOperation) State() OperationState {
	op.mu.Lock()
	defer op.mu.Unlock()
	return op.state
}

// String implements [fmt.Stringer].
func (op *AsyncOperation) String() string {
	return fmt.Sprintf("AsyncOperation{id=%s state=%s bufferSize=%d}", op.id, op.State(), len(op.buf))
}

// IsComplete reports whether the control block no longer signals a request
// in flight. A never-initiated operation is complete.
//
// This is a lock-free check suitable for cooperative polling. Use
// [AsyncOperation.Poll] to retrieve the outcome.
func (op *AsyncOperation) IsComplete() bool {
	return atomic.LoadUintptr(&op.ov.Internal) != statusPending
}

// issueFunc issues an overlapped native call using the buffer and control block.
type issueFunc func(h Handle, buf []byte, ov *Overlapped) error

// start binds the operation to c, and to l when the request refers to a
// list, and issues a native request.
//
// ERROR_IO_PENDING from issue means the request is in flight. Any other
// failure reverts the operation to [StateIdle].
func (op *AsyncOperation) start(c *Client, l *List, name string, issue issueFunc) error {
	op.mu.Lock()
	defer op.mu.Unlock()

	switch {
	case op.closed:
		return ErrOperationClosed
	case op.state == StatePending:
		return ErrOperationInFlight
	case op.state != StateIdle:
		return ErrOperationNotReset
	}

	h, err := c.acquire()
	if err != nil {
		return err
	}
	if l != nil {
		if err := l.acquire(); err != nil {
			c.release()
			return err
		}
	}

	op.pinner.Pin(&op.buf[0])
	op.pinner.Pin(op.ov)
	op.client = c
	op.list = l
	op.name = name
	op.state = StatePending
	op.t0 = op.timeNow()
	op.logAsyncStart()

	err = issue(h, op.buf, op.ov)
	if err != nil && !errors.Is(err, errIOPending) {
		op.pinner.Unpin()
		op.client = nil
		op.list = nil
		op.state = StateIdle
		if l != nil {
			l.release()
		}
		c.release()
		err = newNativeError(name, err)
		op.logAsyncDone(err)
		return err
	}
	op.logAsyncDone(nil)
	return nil
}

// Wait blocks until the pending request completes and returns its text.
//
// A failed request yields a [KindSystem] error wrapping the native code;
// use [IsCancelled] to detect a cancelled request. The outcome is cached,
// so calling Wait or Poll again returns it without native calls.
//
// Returns [ErrOperationNotStarted] when the operation was never initiated.
func (op *AsyncOperation) Wait() (string, error) {
	h, done, text, err := op.pendingHandle()
	if done {
		return text, err
	}
	t0 := op.timeNow()
	op.logWaitStart(t0)
	count, nerr := op.api.GetOverlappedResult(h, op.ov, true)
	text, err = op.finish(count, nerr)
	op.logWaitDone(t0, count, err)
	return text, err
}

// Poll is the non-blocking variant of [AsyncOperation.Wait].
//
// It returns done == false and a nil error while the request is in flight.
// Otherwise done is true and text and err are the same as Wait would return.
func (op *AsyncOperation) Poll() (text string, done bool, err error) {
	h, done, text, err := op.pendingHandle()
	if done {
		return text, true, err
	}
	count, nerr := op.api.GetOverlappedResult(h, op.ov, false)
	if nerr != nil && errors.Is(nerr, errIOIncomplete) {
		op.logger.Debug("asyncPoll", slog.String("asyncID", op.id), slog.String("op", op.name))
		return "", false, nil
	}
	text, err = op.finish(count, nerr)
	return text, true, err
}

// pendingHandle returns the client handle of a pending operation or,
// when the operation is not pending, the outcome to return right away.
func (op *AsyncOperation) pendingHandle() (h Handle, done bool, text string, err error) {
	op.mu.Lock()
	defer op.mu.Unlock()
	switch op.state {
	case StateIdle:
		return 0, true, "", ErrOperationNotStarted
	case StatePending:
		return op.client.handle, false, "", nil
	default:
		return 0, true, op.result, op.err
	}
}

// finish records the outcome of the native result retrieval and releases
// the resources held while pending. Only the first caller records it.
func (op *AsyncOperation) finish(count uint32, nerr error) (string, error) {
	op.mu.Lock()
	defer op.mu.Unlock()
	if op.state != StatePending {
		return op.result, op.err
	}
	if nerr != nil {
		op.err = newNativeError(op.name, nerr)
		op.state = StateFailed
		if IsCancelled(op.err) {
			op.state = StateCancelled
		}
	} else {
		op.result, op.err = decodeBuffer(op.buf, int(count))
		op.state = StateComplete
		if op.err != nil {
			op.state = StateFailed
		}
	}
	op.pinner.Unpin()
	if op.list != nil {
		op.list.release()
		op.list = nil
	}
	op.client.release()
	op.client = nil
	return op.result, op.err
}

// Cancel requests the cancellation of the pending request.
//
// It returns true when the native library accepted the request and false,
// with a nil error, when there is nothing to cancel. Cancellation is advisory:
// the request may still complete with data, so the caller must still
// retrieve the outcome using [AsyncOperation.Wait] or [AsyncOperation.Poll].
func (op *AsyncOperation) Cancel() (bool, error) {
	op.mu.Lock()
	defer op.mu.Unlock()
	if op.state != StatePending {
		return false, nil
	}
	err := op.api.CancelIO(op.client.handle, op.ov)
	if err != nil && errors.Is(err, errNotFound) {
		op.logCancel(false, nil)
		return false, nil
	}
	if err != nil {
		err = newNativeError("ctCancelIO", err)
		op.logCancel(false, err)
		return false, err
	}
	op.logCancel(true, nil)
	return true, nil
}

// Reset prepares a completed operation for reuse.
//
// It clears the control block while preserving the completion event,
// zeroes the buffer without reallocating it, and forgets the cached outcome.
// Returns [ErrOperationInFlight] while a request is pending.
func (op *AsyncOperation) Reset() error {
	op.mu.Lock()
	defer op.mu.Unlock()
	if op.state == StatePending {
		return ErrOperationInFlight
	}
	*op.ov = Overlapped{HEvent: op.ov.HEvent}
	clear(op.buf)
	op.result, op.err = "", nil
	op.name = ""
	op.state = StateIdle
	return nil
}

// Close releases the completion event, if any.
//
// Returns [ErrOperationInFlight] while a request is pending. Closing is
// idempotent and failures to close the event are logged but not returned.
func (op *AsyncOperation) Close() error {
	op.mu.Lock()
	defer op.mu.Unlock()
	if op.state == StatePending {
		return ErrOperationInFlight
	}
	if op.closed {
		return nil
	}
	op.closed = true
	if op.ownsEvent {
		if err := op.api.CloseEvent(op.ov.HEvent); err != nil {
			op.logger.Warn(
				"asyncCloseEvent",
				slog.String("asyncID", op.id),
				slog.Any("err", err),
				slog.String("errClass", op.errClassifier.Classify(err)),
			)
		}
		op.ov.HEvent = 0
		op.ownsEvent = false
	}
	return nil
}

func (op *AsyncOperation) logAsyncStart() {
	op.logger.Info(
		"asyncStart",
		slog.String("asyncID", op.id),
		slog.Int("bufferSize", len(op.buf)),
		slog.String("op", op.name),
		slog.Time("t", op.t0),
	)
}

func (op *AsyncOperation) logAsyncDone(err error) {
	op.logger.Info(
		"asyncDone",
		slog.String("asyncID", op.id),
		slog.Any("err", err),
		slog.String("errClass", op.errClassifier.Classify(err)),
		slog.String("op", op.name),
		slog.Time("t0", op.t0),
		slog.Time("t", op.timeNow()),
	)
}

func (op *AsyncOperation) logWaitStart(t0 time.Time) {
	op.logger.Info(
		"asyncWaitStart",
		slog.String("asyncID", op.id),
		slog.Time("t", t0),
	)
}

func (op *AsyncOperation) logWaitDone(t0 time.Time, count uint32, err error) {
	op.logger.Info(
		"asyncWaitDone",
		slog.String("asyncID", op.id),
		slog.Any("err", err),
		slog.String("errClass", op.errClassifier.Classify(err)),
		slog.Int("ioBytesCount", int(count)),
		slog.String("state", op.State().String()),
		slog.Time("t0", t0),
		slog.Time("t", op.timeNow()),
	)
}

func (op *AsyncOperation) logCancel(accepted bool, err error) {
	op.logger.Info(
		"asyncCancel",
		slog.Bool("accepted", accepted),
		slog.String("asyncID", op.id),
		slog.Any("err", err),
		slog.String("errClass", op.errClassifier.Classify(err)),
		slog.String("op", op.name),
		slog.Time("t", op.timeNow()),
	)
}
