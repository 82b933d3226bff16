//go:build !windows

// SPDX-License-Identifier: GPL-3.0-or-later

package ctapi

// DefaultNativeAPI returns the [NativeAPI] for the current platform.
//
// CtApi.dll only exists on Windows. On other platforms every method fails
// with [ErrUnsupportedPlatform], which keeps the package buildable and lets
// callers inject their own [NativeAPI] through [Config.API].
func DefaultNativeAPI() NativeAPI {
	return unsupportedAPI{}
}

// unsupportedAPI implements [NativeAPI] by failing every call.
type unsupportedAPI struct{}

var _ NativeAPI = unsupportedAPI{}

func (unsupportedAPI) Open(computer, user, password []byte, mode uint32) (Handle, error) {
	return 0, ErrUnsupportedPlatform
}

func (unsupportedAPI) OpenEx(computer, user, password []byte, mode uint32, h Handle) error {
	return ErrUnsupportedPlatform
}

func (unsupportedAPI) Close(h Handle) error {
	return ErrUnsupportedPlatform
}

func (unsupportedAPI) CloseEx(h Handle, destroy bool) error {
	return ErrUnsupportedPlatform
}

func (unsupportedAPI) ClientCreate() (Handle, error) {
	return 0, ErrUnsupportedPlatform
}

func (unsupportedAPI) ClientDestroy(h Handle) error {
	return ErrUnsupportedPlatform
}

func (unsupportedAPI) Cicode(h Handle, cmd []byte, window, mode uint32, result []byte, ov *Overlapped) error {
	return ErrUnsupportedPlatform
}

func (unsupportedAPI) TagRead(h Handle, tag []byte, value []byte) error {
	return ErrUnsupportedPlatform
}

func (unsupportedAPI) TagReadEx(h Handle, tag []byte, value []byte, items []byte) error {
	return ErrUnsupportedPlatform
}

func (unsupportedAPI) TagWrite(h Handle, tag, value []byte) error {
	return ErrUnsupportedPlatform
}

func (unsupportedAPI) TagWriteEx(h Handle, tag, value []byte, ov *Overlapped) error {
	return ErrUnsupportedPlatform
}

func (unsupportedAPI) TagGetProperty(h Handle, tag, property []byte, data []byte, dbType DBType) error {
	return ErrUnsupportedPlatform
}

func (unsupportedAPI) GetOverlappedResult(h Handle, ov *Overlapped, wait bool) (uint32, error) {
	return 0, ErrUnsupportedPlatform
}

func (unsupportedAPI) CancelIO(h Handle, ov *Overlapped) error {
	return ErrUnsupportedPlatform
}

func (unsupportedAPI) ListNew(h Handle, mode uint32) (Handle, error) {
	return 0, ErrUnsupportedPlatform
}

func (unsupportedAPI) ListFree(list Handle) error {
	return ErrUnsupportedPlatform
}

func (unsupportedAPI) ListAdd(list Handle, tag []byte) (Handle, error) {
	return 0, ErrUnsupportedPlatform
}

func (unsupportedAPI) ListAddEx(list Handle, tag []byte, raw bool, pollPeriodMS int32, deadband float64) (Handle, error) {
	return 0, ErrUnsupportedPlatform
}

func (unsupportedAPI) ListDelete(tag Handle) error {
	return ErrUnsupportedPlatform
}

func (unsupportedAPI) ListRead(list Handle, ov *Overlapped) error {
	return ErrUnsupportedPlatform
}

func (unsupportedAPI) ListWrite(tag Handle, value []byte, ov *Overlapped) error {
	return ErrUnsupportedPlatform
}

func (unsupportedAPI) ListData(tag Handle, buffer []byte, mode uint32) error {
	return ErrUnsupportedPlatform
}

func (unsupportedAPI) ListItem(tag Handle, item uint32, buffer []byte, mode uint32) error {
	return ErrUnsupportedPlatform
}

func (unsupportedAPI) FindFirst(h Handle, table, filter, cluster []byte, object *Handle, flags uint32) (Handle, error) {
	return 0, ErrUnsupportedPlatform
}

func (unsupportedAPI) FindNext(find Handle, object *Handle) error {
	return ErrUnsupportedPlatform
}

func (unsupportedAPI) FindPrev(find Handle, object *Handle) error {
	return ErrUnsupportedPlatform
}

func (unsupportedAPI) FindScroll(find Handle, mode uint32, offset int32, object *Handle) (uint32, error) {
	return 0, ErrUnsupportedPlatform
}

func (unsupportedAPI) FindNumRecords(find Handle) (int32, error) {
	return 0, ErrUnsupportedPlatform
}

func (unsupportedAPI) FindClose(find Handle) error {
	return ErrUnsupportedPlatform
}

func (unsupportedAPI) GetProperty(object Handle, name []byte, data []byte, dbType DBType) (uint32, error) {
	return 0, ErrUnsupportedPlatform
}

func (unsupportedAPI) EngToRaw(value float64, scale *Scale, mode uint32) (float64, error) {
	return 0, ErrUnsupportedPlatform
}

func (unsupportedAPI) RawToEng(value float64, scale *Scale, mode uint32) (float64, error) {
	return 0, ErrUnsupportedPlatform
}

func (unsupportedAPI) CreateEvent() (Handle, error) {
	return 0, ErrUnsupportedPlatform
}

func (unsupportedAPI) CloseEvent(event Handle) error {
	return ErrUnsupportedPlatform
}
