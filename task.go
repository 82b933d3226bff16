// SPDX-License-Identifier: GPL-3.0-or-later

package ctapi

import (
	"context"
	"time"
)

// NewCicodeFunc returns a new [*CicodeFunc].
//
// The cfg argument contains the common configuration for ctapi operations.
//
// The client argument is the [*Client] executing the commands.
//
// The logger argument is the [SLogger] to use for structured logging.
func NewCicodeFunc(cfg *Config, client *Client, logger SLogger) *CicodeFunc {
	return &CicodeFunc{Client: client, Config: cfg, Logger: logger}
}

// CicodeFunc executes a Cicode command as an overlapped operation.
//
// Each call creates an [*AsyncOperation], initiates it and waits for its
// outcome in a worker goroutine. When the context is done first we request
// a best-effort cancellation and return a [KindTimeout] error wrapping the
// context error. The worker still retrieves the outcome and closes the
// operation, so its pinned buffer is never released while pending.
//
// All fields are safe to modify after construction but before first use.
type CicodeFunc struct {
	// Client is the [*Client] executing the commands.
	//
	// Set by [NewCicodeFunc] to the user-provided value.
	Client *Client

	// Config is used to create the operations.
	//
	// Set by [NewCicodeFunc] to the user-provided value.
	Config *Config

	// Logger is the [SLogger] to use.
	//
	// Set by [NewCicodeFunc] to the user-provided logger.
	Logger SLogger

	// Mode combines the Fmt* flags. Zero by default.
	Mode uint32

	// Window is the Cicode window. Zero by default.
	Window uint32
}

var _ Func[string, string] = &CicodeFunc{}

// Call implements [Func].
func (op *CicodeFunc) Call(ctx context.Context, cmd string) (string, error) {
	aop, err := NewAsyncOperation(op.Config, 0, op.Logger)
	if err != nil {
		return "", err
	}
	if err := op.Client.CicodeAsync(cmd, op.Window, op.Mode, aop); err != nil {
		_ = aop.Close()
		return "", err
	}
	return awaitOperation(ctx, "ctCicode", aop)
}

// awaitOperation waits for a pending operation honouring the context and
// closes it once the outcome is known.
func awaitOperation(ctx context.Context, name string, aop *AsyncOperation) (string, error) {
	type result struct {
		text string
		err  error
	}
	ch := make(chan result, 1)
	stop := aop.WatchContext(ctx)
	go func() {
		text, err := aop.Wait()
		stop()
		_ = aop.Close()
		ch <- result{text, err}
	}()
	var r result
	select {
	case r = <-ch:
	case <-ctx.Done():
		select {
		case r = <-ch:
		default:
			return "", newTimeoutError(name, ctx.Err())
		}
	}
	// a request we cancelled because of the context is a timeout
	if r.err != nil && ctx.Err() != nil && IsCancelled(r.err) {
		return "", newTimeoutError(name, ctx.Err())
	}
	return r.text, r.err
}

// TagValue is a tag name and the value to write into it.
type TagValue struct {
	Tag   string
	Value string
}

// NewTagReadFunc returns a new [*TagReadFunc].
func NewTagReadFunc(client *Client) *TagReadFunc {
	return &TagReadFunc{Client: client}
}

// TagReadFunc runs [Client.TagRead] in a goroutine honouring the context.
//
// The native read cannot be interrupted: when the context is done first it
// keeps running in background and its result is discarded.
type TagReadFunc struct {
	Client *Client
}

var _ Func[string, string] = &TagReadFunc{}

// Call implements [Func].
func (op *TagReadFunc) Call(ctx context.Context, tag string) (string, error) {
	return offload(ctx, "ctTagRead", func() (string, error) {
		return op.Client.TagRead(tag)
	})
}

// NewTagWriteFunc returns a new [*TagWriteFunc].
func NewTagWriteFunc(client *Client) *TagWriteFunc {
	return &TagWriteFunc{Client: client}
}

// TagWriteFunc runs [Client.TagWrite] in a goroutine honouring the context.
//
// As with [*TagReadFunc], a write that outlives the context still takes place.
type TagWriteFunc struct {
	Client *Client
}

var _ Func[TagValue, Unit] = &TagWriteFunc{}

// Call implements [Func].
func (op *TagWriteFunc) Call(ctx context.Context, tv TagValue) (Unit, error) {
	return offload(ctx, "ctTagWrite", func() (Unit, error) {
		return Unit{}, op.Client.TagWrite(tv.Tag, tv.Value)
	})
}

// offload runs a blocking call in a goroutine and returns early with a
// [KindTimeout] error when the context is done.
func offload[T any](ctx context.Context, name string, fx func() (T, error)) (T, error) {
	type result struct {
		value T
		err   error
	}
	if err := ctx.Err(); err != nil {
		var zero T
		return zero, newTimeoutError(name, err)
	}
	ch := make(chan result, 1)
	go func() {
		value, err := fx()
		ch <- result{value, err}
	}()
	select {
	case r := <-ch:
		return r.value, r.err
	case <-ctx.Done():
		var zero T
		return zero, newTimeoutError(name, ctx.Err())
	}
}

// NewListReadFunc returns a new [*ListReadFunc].
//
// The cfg argument contains the common configuration for ctapi operations.
//
// The logger argument is the [SLogger] to use for structured logging.
func NewListReadFunc(cfg *Config, logger SLogger) *ListReadFunc {
	return &ListReadFunc{Config: cfg, Logger: logger}
}

// ListReadFunc reads every tag of a [*List] as an overlapped operation.
//
// Instead of blocking a goroutine in [AsyncOperation.Wait], it checks
// [AsyncOperation.IsComplete] every [Config.PollInterval] and confirms the
// outcome with [AsyncOperation.Poll]. When the context is done we poll once
// more, so a read that already completed is reported as such. Otherwise we
// request a cancellation, hand the operation to a goroutine that drains and
// closes it, and return a [KindTimeout] error.
type ListReadFunc struct {
	// Config is used to create the operations.
	//
	// Set by [NewListReadFunc] to the user-provided value.
	Config *Config

	// Logger is the [SLogger] to use.
	//
	// Set by [NewListReadFunc] to the user-provided logger.
	Logger SLogger
}

var _ Func[*List, Unit] = &ListReadFunc{}

// Call implements [Func].
func (op *ListReadFunc) Call(ctx context.Context, list *List) (Unit, error) {
	aop, err := NewAsyncOperation(op.Config, 0, op.Logger)
	if err != nil {
		return Unit{}, err
	}
	if err := list.ReadAsync(aop); err != nil {
		_ = aop.Close()
		return Unit{}, err
	}

	ticker := time.NewTicker(op.Config.PollInterval)
	defer ticker.Stop()
	for {
		if aop.IsComplete() {
			if _, done, err := aop.Poll(); done {
				_ = aop.Close()
				return Unit{}, err
			}
		}
		select {
		case <-ctx.Done():
			if _, done, err := aop.Poll(); done {
				_ = aop.Close()
				return Unit{}, err
			}
			_, _ = aop.Cancel()
			go func() {
				_, _ = aop.Wait()
				_ = aop.Close()
			}()
			return Unit{}, newTimeoutError("ctListRead", ctx.Err())
		case <-ticker.C:
		}
	}
}

// Future is the eventual result of a [Func] running in background.
type Future[T any] struct {
	done  chan struct{}
	err   error
	value T
}

// Go runs fn with input in a new goroutine and returns its [*Future].
//
// Cancelling ctx only affects fn the way fn honours its context: the native
// request behind it has no cancellation hook beyond [AsyncOperation.Cancel].
func Go[A, B any](ctx context.Context, fn Func[A, B], input A) *Future[B] {
	f := &Future[B]{done: make(chan struct{})}
	go func() {
		defer close(f.done)
		f.value, f.err = fn.Call(ctx, input)
	}()
	return f
}

// Done returns a channel closed when the result is available.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Result blocks until the result is available and returns it.
func (f *Future[T]) Result() (T, error) {
	<-f.done
	return f.value, f.err
}
