// SPDX-License-Identifier: GPL-3.0-or-later

package ctapi

// Handle is an opaque native handle returned by the CtAPI library.
//
// The zero value is the null handle.
type Handle uintptr

// Overlapped mirrors the memory layout of the Win32 OVERLAPPED structure.
//
// The native library writes Internal and InternalHigh asynchronously while
// a request is in flight, so these fields must only be read atomically.
type Overlapped struct {
	Internal     uintptr
	InternalHigh uintptr
	Offset       uint32
	OffsetHigh   uint32
	HEvent       Handle
}

// statusPending is the value of [Overlapped.Internal] while a request is in flight.
const statusPending = 259

// NativeAPI abstracts the CtAPI entry points used by this package.
//
// By using an abstraction we allow for unit testing without the vendor DLL
// and for building the package on platforms where the DLL does not exist.
//
// Text arguments are GBK-encoded NUL-terminated byte slices (nil where the
// native argument is optional). Result buffers are passed as slices whose
// length is the capacity communicated to the library.
//
// On failure every method returns the raw native error, which is a
// [syscall.Errno] for the Windows implementation.
type NativeAPI interface {
	// Open opens a session (ctOpen).
	Open(computer, user, password []byte, mode uint32) (Handle, error)

	// OpenEx opens a session on a client created with ClientCreate (ctOpenEx).
	OpenEx(computer, user, password []byte, mode uint32, h Handle) error

	// Close closes a session (ctClose).
	Close(h Handle) error

	// CloseEx closes a session optionally destroying the client (ctCloseEx).
	CloseEx(h Handle, destroy bool) error

	// ClientCreate creates an unconnected client (ctClientCreate).
	ClientCreate() (Handle, error)

	// ClientDestroy destroys a client created with ClientCreate (ctClientDestroy).
	ClientDestroy(h Handle) error

	// Cicode executes a Cicode command (ctCicode). When ov is not nil the
	// call is overlapped and result must stay valid until completion.
	Cicode(h Handle, cmd []byte, window, mode uint32, result []byte, ov *Overlapped) error

	// TagRead reads a tag value (ctTagRead).
	TagRead(h Handle, tag []byte, value []byte) error

	// TagReadEx reads a tag value and its extended items (ctTagReadEx).
	//
	// The items slice holds the vendor's packed CTTAGVALUEITEMS structure.
	TagReadEx(h Handle, tag []byte, value []byte, items []byte) error

	// TagWrite writes a tag value (ctTagWrite).
	TagWrite(h Handle, tag, value []byte) error

	// TagWriteEx writes a tag value, overlapped when ov is not nil (ctTagWriteEx).
	TagWriteEx(h Handle, tag, value []byte, ov *Overlapped) error

	// TagGetProperty reads a tag property (ctTagGetProperty).
	TagGetProperty(h Handle, tag, property []byte, data []byte, dbType DBType) error

	// GetOverlappedResult retrieves the outcome of an overlapped request
	// (ctGetOverlappedResult), blocking when wait is true.
	GetOverlappedResult(h Handle, ov *Overlapped, wait bool) (uint32, error)

	// CancelIO requests cancellation of an overlapped request (ctCancelIO).
	CancelIO(h Handle, ov *Overlapped) error

	// ListNew creates a tag list (ctListNew).
	ListNew(h Handle, mode uint32) (Handle, error)

	// ListFree releases a tag list (ctListFree).
	ListFree(list Handle) error

	// ListAdd adds a tag to a list (ctListAdd).
	ListAdd(list Handle, tag []byte) (Handle, error)

	// ListAddEx adds a tag with explicit polling options (ctListAddEx).
	ListAddEx(list Handle, tag []byte, raw bool, pollPeriodMS int32, deadband float64) (Handle, error)

	// ListDelete removes a tag from its list (ctListDelete).
	ListDelete(tag Handle) error

	// ListRead reads every tag of a list, overlapped when ov is not nil (ctListRead).
	ListRead(list Handle, ov *Overlapped) error

	// ListWrite writes a list tag, overlapped when ov is not nil (ctListWrite).
	ListWrite(tag Handle, value []byte, ov *Overlapped) error

	// ListData copies the last value read for a tag (ctListData).
	ListData(tag Handle, buffer []byte, mode uint32) error

	// ListItem copies an item of a tag, e.g. its timestamp (ctListItem).
	ListItem(tag Handle, item uint32, buffer []byte, mode uint32) error

	// FindFirst starts a search (ctFindFirst, or ctFindFirstEx when
	// cluster is not nil) storing the first object into object.
	FindFirst(h Handle, table, filter, cluster []byte, object *Handle, flags uint32) (Handle, error)

	// FindNext moves to the next object (ctFindNext).
	FindNext(find Handle, object *Handle) error

	// FindPrev moves to the previous object (ctFindPrev).
	FindPrev(find Handle, object *Handle) error

	// FindScroll moves to an arbitrary object (ctFindScroll).
	FindScroll(find Handle, mode uint32, offset int32, object *Handle) (uint32, error)

	// FindNumRecords returns the number of records (ctFindNumRecords).
	FindNumRecords(find Handle) (int32, error)

	// FindClose closes a search (ctFindClose).
	FindClose(find Handle) error

	// GetProperty reads a property of a search object (ctGetProperty).
	GetProperty(object Handle, name []byte, data []byte, dbType DBType) (uint32, error)

	// EngToRaw converts an engineering value to raw (ctEngToRaw).
	EngToRaw(value float64, scale *Scale, mode uint32) (float64, error)

	// RawToEng converts a raw value to engineering (ctRawToEng).
	RawToEng(value float64, scale *Scale, mode uint32) (float64, error)

	// CreateEvent creates a manual-reset, initially unset event.
	CreateEvent() (Handle, error)

	// CloseEvent closes an event created with CreateEvent.
	CloseEvent(event Handle) error
}
