// SPDX-License-Identifier: GPL-3.0-or-later

package ctapi

import (
	"context"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bassosimone/netstub"
	"github.com/bassosimone/slogstub"
	"github.com/stretchr/testify/require"
)

// newCapturingLogger returns a logger that captures all log records into the
// returned slice. The caller can inspect the slice after exercising the code
// under test to verify which events were emitted.
func newCapturingLogger() (*slog.Logger, *[]slog.Record) {
	var (
		mu      sync.Mutex
		records []slog.Record
	)
	handler := &slogstub.FuncHandler{
		EnabledFunc: func(ctx context.Context, level slog.Level) bool {
			return true
		},
		HandleFunc: func(ctx context.Context, record slog.Record) error {
			mu.Lock()
			records = append(records, record)
			mu.Unlock()
			return nil
		},
	}
	return slog.New(handler), &records
}

// messages returns the messages of the captured records.
func messages(records []slog.Record) []string {
	var out []string
	for _, r := range records {
		out = append(out, r.Message)
	}
	return out
}

// newMinimalConn returns a [*netstub.FuncConn] with only LocalAddrFunc and
// RemoteAddrFunc set. This is the minimum needed for code that calls
// [safeconn.LocalAddr] and [safeconn.RemoteAddr].
func newMinimalConn() *netstub.FuncConn {
	return &netstub.FuncConn{
		LocalAddrFunc:  func() net.Addr { return &net.TCPAddr{} },
		RemoteAddrFunc: func() net.Addr { return &net.TCPAddr{} },
	}
}

// testClientHandle is the session handle returned by [newSessionAPI].
const testClientHandle = Handle(0x1000)

// newSessionAPI returns a [*funcAPI] that opens and closes sessions, counting
// the native close calls.
func newSessionAPI() (*funcAPI, *atomic.Int64) {
	closes := &atomic.Int64{}
	api := &funcAPI{
		OpenFunc: func(computer, user, password []byte, mode uint32) (Handle, error) {
			return testClientHandle, nil
		},
		CloseFunc: func(h Handle) error {
			closes.Add(1)
			return nil
		},
	}
	return api, closes
}

// newTestConfig returns a [*Config] using api and no completion event.
func newTestConfig(api NativeAPI) *Config {
	cfg := NewConfig()
	cfg.API = api
	cfg.CompletionEvent = false
	return cfg
}

// newTestClient opens a [*Client] using cfg.
func newTestClient(t *testing.T, cfg *Config) *Client {
	c, err := Open(cfg, Credentials{}, DefaultSLogger())
	require.NoError(t, err)
	return c
}

// fakeRequest is an overlapped request tracked by [*fakeDevice].
type fakeRequest struct {
	buf   []byte
	count uint32
	done  chan struct{}
	err   error
}

// fakeDevice simulates the overlapped behavior of the native library.
//
// Issuing a request marks the control block as pending and fails with
// ERROR_IO_PENDING. The test completes the request with complete or fail,
// which writes the buffer and the control block the way the library does.
type fakeDevice struct {
	mu       sync.Mutex
	cancels  int
	requests map[*Overlapped]*fakeRequest
}

func newFakeDevice() *fakeDevice {
	return &fakeDevice{requests: map[*Overlapped]*fakeRequest{}}
}

// issue registers a pending request for ov writing into buf.
func (d *fakeDevice) issue(ov *Overlapped, buf []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	atomic.StoreUintptr(&ov.Internal, statusPending)
	d.requests[ov] = &fakeRequest{buf: buf, done: make(chan struct{})}
	return errIOPending
}

// request returns the request registered for ov.
func (d *fakeDevice) request(ov *Overlapped) *fakeRequest {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.requests[ov]
}

// finishLocked completes req unless already completed.
func (d *fakeDevice) finishLocked(ov *Overlapped, req *fakeRequest, data []byte, err error) bool {
	select {
	case <-req.done:
		return false
	default:
	}
	n := copy(req.buf, data)
	req.count = uint32(n)
	req.err = err
	atomic.StoreUintptr(&ov.Internal, 0)
	close(req.done)
	return true
}

// complete completes the request of ov writing data into its buffer.
func (d *fakeDevice) complete(ov *Overlapped, data []byte) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.finishLocked(ov, d.requests[ov], data, nil)
}

// fail completes the request of ov with err.
func (d *fakeDevice) fail(ov *Overlapped, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.finishLocked(ov, d.requests[ov], nil, err)
}

// getOverlappedResult implements [NativeAPI.GetOverlappedResult].
func (d *fakeDevice) getOverlappedResult(h Handle, ov *Overlapped, wait bool) (uint32, error) {
	req := d.request(ov)
	if req == nil {
		return 0, errInvalidParameter
	}
	if wait {
		<-req.done
	} else {
		select {
		case <-req.done:
		default:
			return 0, errIOIncomplete
		}
	}
	return req.count, req.err
}

// cancelIO implements [NativeAPI.CancelIO].
func (d *fakeDevice) cancelIO(h Handle, ov *Overlapped) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	req := d.requests[ov]
	if req == nil || !d.finishLocked(ov, req, nil, errOperationAborted) {
		return errNotFound
	}
	d.cancels++
	return nil
}

// cancelCount returns the number of accepted cancellations.
func (d *fakeDevice) cancelCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cancels
}

// newDeviceAPI returns a [*funcAPI] backed by a [*fakeDevice] where Cicode,
// ListRead, ListWrite and TagWriteEx are overlapped when ov is not nil.
func newDeviceAPI() (*funcAPI, *fakeDevice, *atomic.Int64) {
	dev := newFakeDevice()
	api, closes := newSessionAPI()
	api.CicodeFunc = func(h Handle, cmd []byte, window, mode uint32, result []byte, ov *Overlapped) error {
		return dev.issue(ov, result)
	}
	api.TagWriteExFunc = func(h Handle, tag, value []byte, ov *Overlapped) error {
		return dev.issue(ov, nil)
	}
	api.ListReadFunc = func(list Handle, ov *Overlapped) error {
		return dev.issue(ov, nil)
	}
	api.ListWriteFunc = func(tag Handle, value []byte, ov *Overlapped) error {
		return dev.issue(ov, nil)
	}
	api.GetOverlappedResultFunc = dev.getOverlappedResult
	api.CancelIOFunc = dev.cancelIO
	return api, dev, closes
}

// eventually waits for cond to become true.
func eventually(t *testing.T, cond func() bool) {
	require.Eventually(t, cond, 2*time.Second, time.Millisecond)
}

// funcAPI is a [NativeAPI] whose methods delegate to the corresponding
// function fields. Calling a method whose field is nil panics.
type funcAPI struct {
	OpenFunc                func(computer, user, password []byte, mode uint32) (Handle, error)
	OpenExFunc              func(computer, user, password []byte, mode uint32, h Handle) error
	CloseFunc               func(h Handle) error
	CloseExFunc             func(h Handle, destroy bool) error
	ClientCreateFunc        func() (Handle, error)
	ClientDestroyFunc       func(h Handle) error
	CicodeFunc              func(h Handle, cmd []byte, window, mode uint32, result []byte, ov *Overlapped) error
	TagReadFunc             func(h Handle, tag []byte, value []byte) error
	TagReadExFunc           func(h Handle, tag []byte, value []byte, items []byte) error
	TagWriteFunc            func(h Handle, tag, value []byte) error
	TagWriteExFunc          func(h Handle, tag, value []byte, ov *Overlapped) error
	TagGetPropertyFunc      func(h Handle, tag, property []byte, data []byte, dbType DBType) error
	GetOverlappedResultFunc func(h Handle, ov *Overlapped, wait bool) (uint32, error)
	CancelIOFunc            func(h Handle, ov *Overlapped) error
	ListNewFunc             func(h Handle, mode uint32) (Handle, error)
	ListFreeFunc            func(list Handle) error
	ListAddFunc             func(list Handle, tag []byte) (Handle, error)
	ListAddExFunc           func(list Handle, tag []byte, raw bool, pollPeriodMS int32, deadband float64) (Handle, error)
	ListDeleteFunc          func(tag Handle) error
	ListReadFunc            func(list Handle, ov *Overlapped) error
	ListWriteFunc           func(tag Handle, value []byte, ov *Overlapped) error
	ListDataFunc            func(tag Handle, buffer []byte, mode uint32) error
	ListItemFunc            func(tag Handle, item uint32, buffer []byte, mode uint32) error
	FindFirstFunc           func(h Handle, table, filter, cluster []byte, object *Handle, flags uint32) (Handle, error)
	FindNextFunc            func(find Handle, object *Handle) error
	FindPrevFunc            func(find Handle, object *Handle) error
	FindScrollFunc          func(find Handle, mode uint32, offset int32, object *Handle) (uint32, error)
	FindNumRecordsFunc      func(find Handle) (int32, error)
	FindCloseFunc           func(find Handle) error
	GetPropertyFunc         func(object Handle, name []byte, data []byte, dbType DBType) (uint32, error)
	EngToRawFunc            func(value float64, scale *Scale, mode uint32) (float64, error)
	RawToEngFunc            func(value float64, scale *Scale, mode uint32) (float64, error)
	CreateEventFunc         func() (Handle, error)
	CloseEventFunc          func(event Handle) error
}

var _ NativeAPI = &funcAPI{}

func (a *funcAPI) Open(computer, user, password []byte, mode uint32) (Handle, error) {
	return a.OpenFunc(computer, user, password, mode)
}

func (a *funcAPI) OpenEx(computer, user, password []byte, mode uint32, h Handle) error {
	return a.OpenExFunc(computer, user, password, mode, h)
}

func (a *funcAPI) Close(h Handle) error {
	return a.CloseFunc(h)
}

func (a *funcAPI) CloseEx(h Handle, destroy bool) error {
	return a.CloseExFunc(h, destroy)
}

func (a *funcAPI) ClientCreate() (Handle, error) {
	return a.ClientCreateFunc()
}

func (a *funcAPI) ClientDestroy(h Handle) error {
	return a.ClientDestroyFunc(h)
}

func (a *funcAPI) Cicode(h Handle, cmd []byte, window, mode uint32, result []byte, ov *Overlapped) error {
	return a.CicodeFunc(h, cmd, window, mode, result, ov)
}

func (a *funcAPI) TagRead(h Handle, tag []byte, value []byte) error {
	return a.TagReadFunc(h, tag, value)
}

func (a *funcAPI) TagReadEx(h Handle, tag []byte, value []byte, items []byte) error {
	return a.TagReadExFunc(h, tag, value, items)
}

func (a *funcAPI) TagWrite(h Handle, tag, value []byte) error {
	return a.TagWriteFunc(h, tag, value)
}

func (a *funcAPI) TagWriteEx(h Handle, tag, value []byte, ov *Overlapped) error {
	return a.TagWriteExFunc(h, tag, value, ov)
}

func (a *funcAPI) TagGetProperty(h Handle, tag, property []byte, data []byte, dbType DBType) error {
	return a.TagGetPropertyFunc(h, tag, property, data, dbType)
}

func (a *funcAPI) GetOverlappedResult(h Handle, ov *Overlapped, wait bool) (uint32, error) {
	return a.GetOverlappedResultFunc(h, ov, wait)
}

func (a *funcAPI) CancelIO(h Handle, ov *Overlapped) error {
	return a.CancelIOFunc(h, ov)
}

func (a *funcAPI) ListNew(h Handle, mode uint32) (Handle, error) {
	return a.ListNewFunc(h, mode)
}

func (a *funcAPI) ListFree(list Handle) error {
	return a.ListFreeFunc(list)
}

func (a *funcAPI) ListAdd(list Handle, tag []byte) (Handle, error) {
	return a.ListAddFunc(list, tag)
}

func (a *funcAPI) ListAddEx(list Handle, tag []byte, raw bool, pollPeriodMS int32, deadband float64) (Handle, error) {
	return a.ListAddExFunc(list, tag, raw, pollPeriodMS, deadband)
}

func (a *funcAPI) ListDelete(tag Handle) error {
	return a.ListDeleteFunc(tag)
}

func (a *funcAPI) ListRead(list Handle, ov *Overlapped) error {
	return a.ListReadFunc(list, ov)
}

func (a *funcAPI) ListWrite(tag Handle, value []byte, ov *Overlapped) error {
	return a.ListWriteFunc(tag, value, ov)
}

func (a *funcAPI) ListData(tag Handle, buffer []byte, mode uint32) error {
	return a.ListDataFunc(tag, buffer, mode)
}

func (a *funcAPI) ListItem(tag Handle, item uint32, buffer []byte, mode uint32) error {
	return a.ListItemFunc(tag, item, buffer, mode)
}

func (a *funcAPI) FindFirst(h Handle, table, filter, cluster []byte, object *Handle, flags uint32) (Handle, error) {
	return a.FindFirstFunc(h, table, filter, cluster, object, flags)
}

func (a *funcAPI) FindNext(find Handle, object *Handle) error {
	return a.FindNextFunc(find, object)
}

func (a *funcAPI) FindPrev(find Handle, object *Handle) error {
	return a.FindPrevFunc(find, object)
}

func (a *funcAPI) FindScroll(find Handle, mode uint32, offset int32, object *Handle) (uint32, error) {
	return a.FindScrollFunc(find, mode, offset, object)
}

func (a *funcAPI) FindNumRecords(find Handle) (int32, error) {
	return a.FindNumRecordsFunc(find)
}

func (a *funcAPI) FindClose(find Handle) error {
	return a.FindCloseFunc(find)
}

func (a *funcAPI) GetProperty(object Handle, name []byte, data []byte, dbType DBType) (uint32, error) {
	return a.GetPropertyFunc(object, name, data, dbType)
}

func (a *funcAPI) EngToRaw(value float64, scale *Scale, mode uint32) (float64, error) {
	return a.EngToRawFunc(value, scale, mode)
}

func (a *funcAPI) RawToEng(value float64, scale *Scale, mode uint32) (float64, error) {
	return a.RawToEngFunc(value, scale, mode)
}

func (a *funcAPI) CreateEvent() (Handle, error) {
	return a.CreateEventFunc()
}

func (a *funcAPI) CloseEvent(event Handle) error {
	return a.CloseEventFunc(event)
}
