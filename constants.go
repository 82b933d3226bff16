// SPDX-License-Identifier: GPL-3.0-or-later

package ctapi

// ErrorUserDefinedBase is the first error code reserved for the vendor.
//
// Native errors at or above this value are CtAPI codes rather than Win32 codes.
const ErrorUserDefinedBase = 0x10000000

// Scaling modes for [Client.EngToRaw] and [Client.RawToEng].
const (
	ScaleRangeCheck  = 0x00000001
	ScaleClampLimit  = 0x00000002
	ScaleNoiseFactor = 0x00000004
)

// Format flags for tag reads, lists and Cicode calls.
const (
	FmtNoScale    = 0x00000001
	FmtNoFormat   = 0x00000002
	FmtLast       = 0x00000004
	FmtRangeCheck = 0x00000008
)

// Scroll modes for [Finder.Scroll].
const (
	FindScrollNext     = 0x00000001
	FindScrollPrev     = 0x00000002
	FindScrollFirst    = 0x00000003
	FindScrollLast     = 0x00000004
	FindScrollAbsolute = 0x00000005
	FindScrollRelative = 0x00000006
)

// Session open modes for [Credentials.Mode].
const (
	OpenCrypt     = 0x00000001
	OpenReconnect = 0x00000002
	OpenReadOnly  = 0x00000004
	OpenBatch     = 0x00000008
)

// List creation modes for [Client.NewList].
const (
	ListEvent           = 0x00000001
	ListLightweightMode = 0x00000002
)

// List event kinds.
const (
	ListEventNew    = 0x00000001
	ListEventStatus = 0x00000002
)

// Items for [List.Item].
const (
	ListValue                    = 0x00000001
	ListTimestamp                = 0x00000002
	ListValueTimestamp           = 0x00000003
	ListQualityTimestamp         = 0x00000004
	ListQualityGeneral           = 0x00000005
	ListQualitySubstatus         = 0x00000006
	ListQualityLimit             = 0x00000007
	ListQualityExtendedSubstatus = 0x00000008
	ListQualityDatasourceError   = 0x00000009
	ListQualityOverride          = 0x0000000A
	ListQualityControlMode       = 0x0000000B
)

// PropertyNameLen is the buffer size used for property values.
const PropertyNameLen = 256

// DBType is the OLE DB type requested for a property value.
type DBType uint32

// DBType values understood by the vendor library.
const (
	DBTypeEmpty       DBType = 0
	DBTypeNull        DBType = 1
	DBTypeI2          DBType = 2
	DBTypeI4          DBType = 3
	DBTypeR4          DBType = 4
	DBTypeR8          DBType = 5
	DBTypeCY          DBType = 6
	DBTypeDate        DBType = 7
	DBTypeBSTR        DBType = 8
	DBTypeIDispatch   DBType = 9
	DBTypeError       DBType = 10
	DBTypeBool        DBType = 11
	DBTypeVariant     DBType = 12
	DBTypeIUnknown    DBType = 13
	DBTypeDecimal     DBType = 14
	DBTypeI1          DBType = 16
	DBTypeUI1         DBType = 17
	DBTypeUI2         DBType = 18
	DBTypeUI4         DBType = 19
	DBTypeI8          DBType = 20
	DBTypeUI8         DBType = 21
	DBTypeGUID        DBType = 72
	DBTypeBytes       DBType = 128
	DBTypeStr         DBType = 129
	DBTypeWStr        DBType = 130
	DBTypeNumeric     DBType = 131
	DBTypeUDT         DBType = 132
	DBTypeDBDate      DBType = 133
	DBTypeDBTime      DBType = 134
	DBTypeDBTimestamp DBType = 135
	DBTypeVector      DBType = 0x1000
	DBTypeArray       DBType = 0x2000
	DBTypeByRef       DBType = 0x4000
	DBTypeReserved    DBType = 0x8000
)
