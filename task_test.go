// SPDX-License-Identifier: GPL-3.0-or-later

package ctapi

import (
	"context"
	"errors"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newAutoCompleteAPI returns a device whose Cicode requests complete
// asynchronously with result.
func newAutoCompleteAPI(result string) (*funcAPI, *fakeDevice) {
	api, dev, _ := newDeviceAPI()
	api.CicodeFunc = func(h Handle, cmd []byte, window, mode uint32, buf []byte, ov *Overlapped) error {
		err := dev.issue(ov, buf)
		go dev.complete(ov, []byte(result+"\x00"))
		return err
	}
	return api, dev
}

// withEventCounter enables completion events on cfg counting their closes.
func withEventCounter(cfg *Config, api *funcAPI) *atomic.Int64 {
	closes := &atomic.Int64{}
	cfg.CompletionEvent = true
	api.CreateEventFunc = func() (Handle, error) { return Handle(9), nil }
	api.CloseEventFunc = func(event Handle) error {
		closes.Add(1)
		return nil
	}
	return closes
}

// NewCicodeFunc populates all fields.
func TestNewCicodeFunc(t *testing.T) {
	cfg := NewConfig()
	c := &Client{}
	fn := NewCicodeFunc(cfg, c, DefaultSLogger())
	assert.Equal(t, c, fn.Client)
	assert.Equal(t, cfg, fn.Config)
	assert.NotNil(t, fn.Logger)
	assert.Equal(t, uint32(0), fn.Window)
	assert.Equal(t, uint32(0), fn.Mode)
}

// CicodeFunc waits for the overlapped command and closes the operation.
func TestCicodeFunc(t *testing.T) {
	api, _ := newAutoCompleteAPI("7.20")
	cfg := newTestConfig(api)
	events := withEventCounter(cfg, api)
	c := newTestClient(t, cfg)

	fn := NewCicodeFunc(cfg, c, DefaultSLogger())
	got, err := fn.Call(context.Background(), "Version()")

	require.NoError(t, err)
	assert.Equal(t, "7.20", got)
	assert.Equal(t, int64(1), events.Load())
}

// CicodeFunc returns a timeout, cancels and still drains the operation.
func TestCicodeFuncTimeout(t *testing.T) {
	api, dev, closes := newDeviceAPI()
	cfg := newTestConfig(api)
	events := withEventCounter(cfg, api)
	c := newTestClient(t, cfg)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	fn := NewCicodeFunc(cfg, c, DefaultSLogger())
	got, err := fn.Call(ctx, "Sleep(60)")

	assert.Equal(t, "", got)
	assert.True(t, IsTimeout(err))
	require.ErrorIs(t, err, context.DeadlineExceeded)

	eventually(t, func() bool { return dev.cancelCount() == 1 })
	eventually(t, func() bool { return events.Load() == 1 })

	// the drained operation no longer holds a lease
	require.NoError(t, c.Close())
	assert.Equal(t, int64(1), closes.Load())
}

// CicodeFunc closes the operation when the initiation fails.
func TestCicodeFuncInitiationFailure(t *testing.T) {
	api, _, _ := newDeviceAPI()
	api.CicodeFunc = func(h Handle, cmd []byte, window, mode uint32, buf []byte, ov *Overlapped) error {
		return syscall.Errno(87)
	}
	cfg := newTestConfig(api)
	events := withEventCounter(cfg, api)
	c := newTestClient(t, cfg)

	_, err := NewCicodeFunc(cfg, c, DefaultSLogger()).Call(context.Background(), "Bad()")
	require.ErrorIs(t, err, syscall.Errno(87))
	assert.Equal(t, int64(1), events.Load())
}

// CicodeFunc reports event creation failures.
func TestCicodeFuncEventFailure(t *testing.T) {
	api, _, _ := newDeviceAPI()
	api.CreateEventFunc = func() (Handle, error) { return 0, syscall.Errno(8) }
	cfg := newTestConfig(api)
	cfg.CompletionEvent = true
	c := newTestClient(t, cfg)

	_, err := NewCicodeFunc(cfg, c, DefaultSLogger()).Call(context.Background(), "Version()")
	require.ErrorIs(t, err, &Error{Kind: KindSystem})
}

// TagReadFunc and TagWriteFunc offload the synchronous calls.
func TestTagReadWriteFunc(t *testing.T) {
	api, _ := newSessionAPI()
	api.TagReadFunc = func(h Handle, tag []byte, value []byte) error {
		copy(value, "3.14\x00")
		return nil
	}
	var written atomic.Value
	api.TagWriteFunc = func(h Handle, tag, value []byte) error {
		written.Store(string(tag) + "=" + string(value))
		return nil
	}
	c := newTestClient(t, newTestConfig(api))

	got, err := NewTagReadFunc(c).Call(context.Background(), "Pi")
	require.NoError(t, err)
	assert.Equal(t, "3.14", got)

	_, err = NewTagWriteFunc(c).Call(context.Background(), TagValue{Tag: "Pump1", Value: "1"})
	require.NoError(t, err)
	assert.Equal(t, "Pump1\x00=1\x00", written.Load())
}

// TagReadFunc returns early when the context is done.
func TestTagReadFuncTimeout(t *testing.T) {
	api, _ := newSessionAPI()
	release := make(chan struct{})
	api.TagReadFunc = func(h Handle, tag []byte, value []byte) error {
		<-release
		return nil
	}
	c := newTestClient(t, newTestConfig(api))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := NewTagReadFunc(c).Call(ctx, "Slow")
	assert.True(t, IsTimeout(err))
	close(release)

	cancelled, cancel2 := context.WithCancel(context.Background())
	cancel2()
	_, err = NewTagWriteFunc(c).Call(cancelled, TagValue{Tag: "Pump1", Value: "1"})
	assert.True(t, IsTimeout(err))
}

// ListReadFunc polls the overlapped list read until it completes.
func TestListReadFunc(t *testing.T) {
	api, dev := newListAPI()
	api.ListReadFunc = func(list Handle, ov *Overlapped) error {
		err := dev.issue(ov, nil)
		go func() {
			time.Sleep(5 * time.Millisecond)
			dev.complete(ov, nil)
		}()
		return err
	}
	var polls atomic.Int64
	api.GetOverlappedResultFunc = func(h Handle, ov *Overlapped, wait bool) (uint32, error) {
		assert.False(t, wait)
		polls.Add(1)
		return dev.getOverlappedResult(h, ov, wait)
	}
	cfg := newTestConfig(api)
	cfg.PollInterval = time.Millisecond
	c := newTestClient(t, cfg)
	list, err := c.NewList(0)
	require.NoError(t, err)
	defer list.Close()

	_, err = NewListReadFunc(cfg, DefaultSLogger()).Call(context.Background(), list)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, polls.Load(), int64(1))
}

// ListReadFunc cancels and drains the read when the context is done.
func TestListReadFuncTimeout(t *testing.T) {
	api, dev := newListAPI()
	cfg := newTestConfig(api)
	cfg.PollInterval = time.Millisecond
	events := withEventCounter(cfg, api)
	var frees atomic.Int64
	api.ListFreeFunc = func(list Handle) error {
		assert.Equal(t, 1, dev.cancelCount())
		frees.Add(1)
		return nil
	}
	c := newTestClient(t, cfg)
	list, err := c.NewList(0)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = NewListReadFunc(cfg, DefaultSLogger()).Call(ctx, list)
	assert.True(t, IsTimeout(err))

	// closing right away must not free the list under the draining read
	require.NoError(t, list.Close())
	assert.Equal(t, 1, dev.cancelCount())
	eventually(t, func() bool { return events.Load() == 1 })
	eventually(t, func() bool { return frees.Load() == 1 })
}

// ListReadFunc reports a read that completed before the context was done.
func TestListReadFuncCompletedBeforeContextDone(t *testing.T) {
	api, dev := newListAPI()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	api.ListReadFunc = func(list Handle, ov *Overlapped) error {
		err := dev.issue(ov, nil)
		go func() {
			dev.complete(ov, nil)
			cancel()
		}()
		return err
	}
	cfg := newTestConfig(api)
	cfg.PollInterval = time.Hour
	c := newTestClient(t, cfg)
	list, err := c.NewList(0)
	require.NoError(t, err)
	defer list.Close()

	_, err = NewListReadFunc(cfg, DefaultSLogger()).Call(ctx, list)
	require.NoError(t, err)
	assert.Equal(t, 0, dev.cancelCount())
}

// ListReadFunc refuses closed lists.
func TestListReadFuncClosedList(t *testing.T) {
	api, _ := newListAPI()
	cfg := newTestConfig(api)
	c := newTestClient(t, cfg)
	list, err := c.NewList(0)
	require.NoError(t, err)
	require.NoError(t, list.Close())

	_, err = NewListReadFunc(cfg, DefaultSLogger()).Call(context.Background(), list)
	require.ErrorIs(t, err, ErrListClosed)
}

// Go runs a Func in background and exposes its result.
func TestGo(t *testing.T) {
	release := make(chan struct{})
	fn := FuncAdapter[int, int](func(ctx context.Context, n int) (int, error) {
		<-release
		return n * 2, nil
	})

	future := Go(context.Background(), fn, 21)
	select {
	case <-future.Done():
		t.Fatal("future completed too early")
	default:
	}

	close(release)
	got, err := future.Result()
	require.NoError(t, err)
	assert.Equal(t, 42, got)

	wantErr := errors.New("mocked error")
	failing := FuncAdapter[int, int](func(ctx context.Context, n int) (int, error) {
		return 0, wantErr
	})
	_, err = Go(context.Background(), failing, 1).Result()
	require.ErrorIs(t, err, wantErr)
}

// The bridge Funcs compose into pipelines.
func TestPipeline(t *testing.T) {
	api, _ := newAutoCompleteAPI("ok")
	cfg := newTestConfig(api)

	pipeline := Compose4(
		NewCredentialsFunc(Credentials{}),
		NewProbeFunc(cfg, DefaultSLogger()),
		NewOpenFunc(cfg, DefaultSLogger()),
		FuncAdapter[*Client, string](func(ctx context.Context, c *Client) (string, error) {
			defer c.Close()
			return NewCicodeFunc(cfg, c, DefaultSLogger()).Call(ctx, "Ping()")
		}),
	)
	got, err := pipeline.Call(context.Background(), Unit{})
	require.NoError(t, err)
	assert.Equal(t, "ok", got)
}
