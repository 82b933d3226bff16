//go:build windows

// SPDX-License-Identifier: GPL-3.0-or-later

package ctapi

import (
	"math"
	"unsafe"

	"golang.org/x/sys/windows"
)

// The vendor installs CtApi.dll next to the SCADA binaries, so we cannot
// restrict the search to the system directory.
var (
	ctapiDLL = windows.NewLazyDLL("CtApi.dll")

	procCtCancelIO            = ctapiDLL.NewProc("ctCancelIO")
	procCtCicode              = ctapiDLL.NewProc("ctCicode")
	procCtClientCreate        = ctapiDLL.NewProc("ctClientCreate")
	procCtClientDestroy       = ctapiDLL.NewProc("ctClientDestroy")
	procCtClose               = ctapiDLL.NewProc("ctClose")
	procCtCloseEx             = ctapiDLL.NewProc("ctCloseEx")
	procCtEngToRaw            = ctapiDLL.NewProc("ctEngToRaw")
	procCtFindClose           = ctapiDLL.NewProc("ctFindClose")
	procCtFindFirst           = ctapiDLL.NewProc("ctFindFirst")
	procCtFindFirstEx         = ctapiDLL.NewProc("ctFindFirstEx")
	procCtFindNext            = ctapiDLL.NewProc("ctFindNext")
	procCtFindNumRecords      = ctapiDLL.NewProc("ctFindNumRecords")
	procCtFindPrev            = ctapiDLL.NewProc("ctFindPrev")
	procCtFindScroll          = ctapiDLL.NewProc("ctFindScroll")
	procCtGetOverlappedResult = ctapiDLL.NewProc("ctGetOverlappedResult")
	procCtGetProperty         = ctapiDLL.NewProc("ctGetProperty")
	procCtListAdd             = ctapiDLL.NewProc("ctListAdd")
	procCtListAddEx           = ctapiDLL.NewProc("ctListAddEx")
	procCtListData            = ctapiDLL.NewProc("ctListData")
	procCtListDelete          = ctapiDLL.NewProc("ctListDelete")
	procCtListFree            = ctapiDLL.NewProc("ctListFree")
	procCtListItem            = ctapiDLL.NewProc("ctListItem")
	procCtListNew             = ctapiDLL.NewProc("ctListNew")
	procCtListRead            = ctapiDLL.NewProc("ctListRead")
	procCtListWrite           = ctapiDLL.NewProc("ctListWrite")
	procCtOpen                = ctapiDLL.NewProc("ctOpen")
	procCtOpenEx              = ctapiDLL.NewProc("ctOpenEx")
	procCtRawToEng            = ctapiDLL.NewProc("ctRawToEng")
	procCtTagGetProperty      = ctapiDLL.NewProc("ctTagGetProperty")
	procCtTagRead             = ctapiDLL.NewProc("ctTagRead")
	procCtTagReadEx           = ctapiDLL.NewProc("ctTagReadEx")
	procCtTagWrite            = ctapiDLL.NewProc("ctTagWrite")
	procCtTagWriteEx          = ctapiDLL.NewProc("ctTagWriteEx")
)

// DefaultNativeAPI returns the [NativeAPI] backed by CtApi.dll.
//
// The DLL is loaded lazily on the first call, so a missing DLL surfaces
// as an error from the first native call rather than at startup.
func DefaultNativeAPI() NativeAPI {
	return dllAPI{}
}

// dllAPI implements [NativeAPI] using CtApi.dll.
type dllAPI struct{}

var _ NativeAPI = dllAPI{}

// boolResult converts a Win32 BOOL return value into an error.
func boolResult(r1 uintptr, err error) error {
	if uint32(r1) != 0 {
		return nil
	}
	return err
}

// handleResult converts a HANDLE return value into a [Handle] or an error.
func handleResult(r1 uintptr, err error) (Handle, error) {
	if r1 == 0 {
		return 0, err
	}
	return Handle(r1), nil
}

// boolArg converts a Go bool into a Win32 BOOL argument.
func boolArg(v bool) uintptr {
	if v {
		return 1
	}
	return 0
}

// floatWords splits a double argument into stack slots.
//
// On 32-bit targets a double occupies two slots (lo, hi) and the callers
// pass both. On 64-bit targets lo holds the whole value. On amd64 the runtime
// mirrors the first four slots into XMM0-XMM3, which covers the register
// arguments of ctEngToRaw and ctRawToEng. On arm64 doubles travel in the
// floating point registers, which the syscall path never loads, so double
// arguments are not passed correctly there.
func floatWords(v float64) (lo, hi uintptr) {
	bits := math.Float64bits(v)
	if is32bit {
		return uintptr(uint32(bits)), uintptr(uint32(bits >> 32))
	}
	return uintptr(bits), 0
}

// is32bit is true when a double needs two argument slots.
const is32bit = unsafe.Sizeof(uintptr(0)) == 4

func (dllAPI) Open(computer, user, password []byte, mode uint32) (Handle, error) {
	r1, _, err := procCtOpen.Call(
		uintptr(unsafe.Pointer(unsafe.SliceData(computer))),
		uintptr(unsafe.Pointer(unsafe.SliceData(user))),
		uintptr(unsafe.Pointer(unsafe.SliceData(password))),
		uintptr(mode),
	)
	return handleResult(r1, err)
}

func (dllAPI) OpenEx(computer, user, password []byte, mode uint32, h Handle) error {
	r1, _, err := procCtOpenEx.Call(
		uintptr(unsafe.Pointer(unsafe.SliceData(computer))),
		uintptr(unsafe.Pointer(unsafe.SliceData(user))),
		uintptr(unsafe.Pointer(unsafe.SliceData(password))),
		uintptr(mode),
		uintptr(h),
	)
	return boolResult(r1, err)
}

func (dllAPI) Close(h Handle) error {
	r1, _, err := procCtClose.Call(uintptr(h))
	return boolResult(r1, err)
}

func (dllAPI) CloseEx(h Handle, destroy bool) error {
	r1, _, err := procCtCloseEx.Call(uintptr(h), boolArg(destroy))
	return boolResult(r1, err)
}

func (dllAPI) ClientCreate() (Handle, error) {
	r1, _, err := procCtClientCreate.Call()
	return handleResult(r1, err)
}

func (dllAPI) ClientDestroy(h Handle) error {
	r1, _, err := procCtClientDestroy.Call(uintptr(h))
	return boolResult(r1, err)
}

func (dllAPI) Cicode(h Handle, cmd []byte, window, mode uint32, result []byte, ov *Overlapped) error {
	r1, _, err := procCtCicode.Call(
		uintptr(h),
		uintptr(unsafe.Pointer(unsafe.SliceData(cmd))),
		uintptr(window),
		uintptr(mode),
		uintptr(unsafe.Pointer(unsafe.SliceData(result))),
		uintptr(len(result)),
		uintptr(unsafe.Pointer(ov)),
	)
	return boolResult(r1, err)
}

func (dllAPI) TagRead(h Handle, tag []byte, value []byte) error {
	r1, _, err := procCtTagRead.Call(
		uintptr(h),
		uintptr(unsafe.Pointer(unsafe.SliceData(tag))),
		uintptr(unsafe.Pointer(unsafe.SliceData(value))),
		uintptr(len(value)),
	)
	return boolResult(r1, err)
}

func (dllAPI) TagReadEx(h Handle, tag []byte, value []byte, items []byte) error {
	r1, _, err := procCtTagReadEx.Call(
		uintptr(h),
		uintptr(unsafe.Pointer(unsafe.SliceData(tag))),
		uintptr(unsafe.Pointer(unsafe.SliceData(value))),
		uintptr(len(value)),
		uintptr(unsafe.Pointer(unsafe.SliceData(items))),
	)
	return boolResult(r1, err)
}

func (dllAPI) TagWrite(h Handle, tag, value []byte) error {
	r1, _, err := procCtTagWrite.Call(
		uintptr(h),
		uintptr(unsafe.Pointer(unsafe.SliceData(tag))),
		uintptr(unsafe.Pointer(unsafe.SliceData(value))),
	)
	return boolResult(r1, err)
}

func (dllAPI) TagWriteEx(h Handle, tag, value []byte, ov *Overlapped) error {
	r1, _, err := procCtTagWriteEx.Call(
		uintptr(h),
		uintptr(unsafe.Pointer(unsafe.SliceData(tag))),
		uintptr(unsafe.Pointer(unsafe.SliceData(value))),
		uintptr(unsafe.Pointer(ov)),
	)
	return boolResult(r1, err)
}

func (dllAPI) TagGetProperty(h Handle, tag, property []byte, data []byte, dbType DBType) error {
	r1, _, err := procCtTagGetProperty.Call(
		uintptr(h),
		uintptr(unsafe.Pointer(unsafe.SliceData(tag))),
		uintptr(unsafe.Pointer(unsafe.SliceData(property))),
		uintptr(unsafe.Pointer(unsafe.SliceData(data))),
		uintptr(len(data)),
		uintptr(dbType),
	)
	return boolResult(r1, err)
}

func (dllAPI) GetOverlappedResult(h Handle, ov *Overlapped, wait bool) (uint32, error) {
	count := new(uint32)
	r1, _, err := procCtGetOverlappedResult.Call(
		uintptr(h),
		uintptr(unsafe.Pointer(ov)),
		uintptr(unsafe.Pointer(count)),
		boolArg(wait),
	)
	return *count, boolResult(r1, err)
}

func (dllAPI) CancelIO(h Handle, ov *Overlapped) error {
	r1, _, err := procCtCancelIO.Call(uintptr(h), uintptr(unsafe.Pointer(ov)))
	return boolResult(r1, err)
}

func (dllAPI) ListNew(h Handle, mode uint32) (Handle, error) {
	r1, _, err := procCtListNew.Call(uintptr(h), uintptr(mode))
	return handleResult(r1, err)
}

func (dllAPI) ListFree(list Handle) error {
	r1, _, err := procCtListFree.Call(uintptr(list))
	return boolResult(r1, err)
}

func (dllAPI) ListAdd(list Handle, tag []byte) (Handle, error) {
	r1, _, err := procCtListAdd.Call(
		uintptr(list),
		uintptr(unsafe.Pointer(unsafe.SliceData(tag))),
	)
	return handleResult(r1, err)
}

func (dllAPI) ListAddEx(list Handle, tag []byte, raw bool, pollPeriodMS int32, deadband float64) (Handle, error) {
	lo, hi := floatWords(deadband)
	var r1 uintptr
	var err error
	if is32bit {
		r1, _, err = procCtListAddEx.Call(
			uintptr(list),
			uintptr(unsafe.Pointer(unsafe.SliceData(tag))),
			boolArg(raw),
			uintptr(pollPeriodMS),
			lo, hi,
		)
	} else {
		r1, _, err = procCtListAddEx.Call(
			uintptr(list),
			uintptr(unsafe.Pointer(unsafe.SliceData(tag))),
			boolArg(raw),
			uintptr(pollPeriodMS),
			lo,
		)
	}
	return handleResult(r1, err)
}

func (dllAPI) ListDelete(tag Handle) error {
	r1, _, err := procCtListDelete.Call(uintptr(tag))
	return boolResult(r1, err)
}

func (dllAPI) ListRead(list Handle, ov *Overlapped) error {
	r1, _, err := procCtListRead.Call(uintptr(list), uintptr(unsafe.Pointer(ov)))
	return boolResult(r1, err)
}

func (dllAPI) ListWrite(tag Handle, value []byte, ov *Overlapped) error {
	r1, _, err := procCtListWrite.Call(
		uintptr(tag),
		uintptr(unsafe.Pointer(unsafe.SliceData(value))),
		uintptr(unsafe.Pointer(ov)),
	)
	return boolResult(r1, err)
}

func (dllAPI) ListData(tag Handle, buffer []byte, mode uint32) error {
	r1, _, err := procCtListData.Call(
		uintptr(tag),
		uintptr(unsafe.Pointer(unsafe.SliceData(buffer))),
		uintptr(len(buffer)),
		uintptr(mode),
	)
	return boolResult(r1, err)
}

func (dllAPI) ListItem(tag Handle, item uint32, buffer []byte, mode uint32) error {
	r1, _, err := procCtListItem.Call(
		uintptr(tag),
		uintptr(item),
		uintptr(unsafe.Pointer(unsafe.SliceData(buffer))),
		uintptr(len(buffer)),
		uintptr(mode),
	)
	return boolResult(r1, err)
}

func (dllAPI) FindFirst(h Handle, table, filter, cluster []byte, object *Handle, flags uint32) (Handle, error) {
	if cluster == nil {
		r1, _, err := procCtFindFirst.Call(
			uintptr(h),
			uintptr(unsafe.Pointer(unsafe.SliceData(table))),
			uintptr(unsafe.Pointer(unsafe.SliceData(filter))),
			uintptr(unsafe.Pointer(object)),
			uintptr(flags),
		)
		return handleResult(r1, err)
	}
	r1, _, err := procCtFindFirstEx.Call(
		uintptr(h),
		uintptr(unsafe.Pointer(unsafe.SliceData(table))),
		uintptr(unsafe.Pointer(unsafe.SliceData(filter))),
		uintptr(unsafe.Pointer(unsafe.SliceData(cluster))),
		uintptr(unsafe.Pointer(object)),
		uintptr(flags),
	)
	return handleResult(r1, err)
}

func (dllAPI) FindNext(find Handle, object *Handle) error {
	r1, _, err := procCtFindNext.Call(uintptr(find), uintptr(unsafe.Pointer(object)))
	return boolResult(r1, err)
}

func (dllAPI) FindPrev(find Handle, object *Handle) error {
	r1, _, err := procCtFindPrev.Call(uintptr(find), uintptr(unsafe.Pointer(object)))
	return boolResult(r1, err)
}

func (dllAPI) FindScroll(find Handle, mode uint32, offset int32, object *Handle) (uint32, error) {
	r1, _, err := procCtFindScroll.Call(
		uintptr(find),
		uintptr(mode),
		uintptr(offset),
		uintptr(unsafe.Pointer(object)),
	)
	if uint32(r1) == 0 {
		return 0, err
	}
	return uint32(r1), nil
}

func (dllAPI) FindNumRecords(find Handle) (int32, error) {
	r1, _, err := procCtFindNumRecords.Call(uintptr(find))
	if int32(r1) < 0 {
		return 0, err
	}
	return int32(r1), nil
}

func (dllAPI) FindClose(find Handle) error {
	r1, _, err := procCtFindClose.Call(uintptr(find))
	return boolResult(r1, err)
}

func (dllAPI) GetProperty(object Handle, name []byte, data []byte, dbType DBType) (uint32, error) {
	count := new(uint32)
	r1, _, err := procCtGetProperty.Call(
		uintptr(object),
		uintptr(unsafe.Pointer(unsafe.SliceData(name))),
		uintptr(unsafe.Pointer(unsafe.SliceData(data))),
		uintptr(len(data)),
		uintptr(unsafe.Pointer(count)),
		uintptr(dbType),
	)
	return *count, boolResult(r1, err)
}

func (dllAPI) EngToRaw(value float64, scale *Scale, mode uint32) (float64, error) {
	return scaleCall(procCtEngToRaw, value, scale, mode)
}

func (dllAPI) RawToEng(value float64, scale *Scale, mode uint32) (float64, error) {
	return scaleCall(procCtRawToEng, value, scale, mode)
}

// scaleCall invokes ctEngToRaw or ctRawToEng, which share a signature.
func scaleCall(proc *windows.LazyProc, value float64, scale *Scale, mode uint32) (float64, error) {
	var result float64
	lo, hi := floatWords(value)
	var r1 uintptr
	var err error
	if is32bit {
		r1, _, err = proc.Call(
			uintptr(unsafe.Pointer(&result)),
			lo, hi,
			uintptr(unsafe.Pointer(scale)),
			uintptr(mode),
		)
	} else {
		r1, _, err = proc.Call(
			uintptr(unsafe.Pointer(&result)),
			lo,
			uintptr(unsafe.Pointer(scale)),
			uintptr(mode),
		)
	}
	if err := boolResult(r1, err); err != nil {
		return 0, err
	}
	return result, nil
}

func (dllAPI) CreateEvent() (Handle, error) {
	event, err := windows.CreateEvent(nil, 1, 0, nil)
	if err != nil {
		return 0, err
	}
	return Handle(event), nil
}

func (dllAPI) CloseEvent(event Handle) error {
	return windows.CloseHandle(windows.Handle(event))
}
