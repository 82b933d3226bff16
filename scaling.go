// SPDX-License-Identifier: GPL-3.0-or-later

package ctapi

import (
	"encoding/binary"
	"time"
)

// HScale is one side of a linear scale.
type HScale struct {
	Zero float64
	Full float64
}

// Scale maps the raw range of an I/O device onto engineering units.
//
// The layout matches the vendor CTSCALE structure.
type Scale struct {
	Raw HScale
	Eng HScale
}

// NewScale returns a [Scale] from its raw and engineering ranges.
func NewScale(rawZero, rawFull, engZero, engFull float64) Scale {
	return Scale{
		Raw: HScale{Zero: rawZero, Full: rawFull},
		Eng: HScale{Zero: engZero, Full: engFull},
	}
}

// tagValueItemsSize is the size of the packed CTTAGVALUEITEMS structure.
const tagValueItemsSize = 38

// TagValueItems contains the extended items returned by [Client.TagReadEx].
//
// Timestamps are Windows FILETIME values (100ns ticks since 1601).
type TagValueItems struct {
	Timestamp                uint64
	ValueTimestamp           uint64
	QualityTimestamp         uint64
	QualityGeneral           uint8
	QualitySubstatus         uint8
	QualityLimit             uint8
	QualityExtendedSubstatus uint8
	QualityDatasourceError   uint32
	Override                 bool
	ControlMode              bool
}

// newTagValueItemsBuffer returns a buffer ready to be filled by ctTagReadEx,
// with the leading length field already set as the library requires.
func newTagValueItemsBuffer() []byte {
	buf := make([]byte, tagValueItemsSize)
	binary.LittleEndian.PutUint32(buf, tagValueItemsSize)
	return buf
}

// decodeTagValueItems parses a buffer filled by ctTagReadEx.
func decodeTagValueItems(buf []byte) TagValueItems {
	return TagValueItems{
		Timestamp:                binary.LittleEndian.Uint64(buf[4:]),
		ValueTimestamp:           binary.LittleEndian.Uint64(buf[12:]),
		QualityTimestamp:         binary.LittleEndian.Uint64(buf[20:]),
		QualityGeneral:           buf[28],
		QualitySubstatus:         buf[29],
		QualityLimit:             buf[30],
		QualityExtendedSubstatus: buf[31],
		QualityDatasourceError:   binary.LittleEndian.Uint32(buf[32:]),
		Override:                 buf[36] != 0,
		ControlMode:              buf[37] != 0,
	}
}

// fileTimeEpochDelta is the number of 100ns ticks between 1601 and 1970.
const fileTimeEpochDelta = 116444736000000000

// FileTime converts a FILETIME value into a [time.Time]. Zero maps to the zero time.
func FileTime(ft uint64) time.Time {
	if ft == 0 {
		return time.Time{}
	}
	ticks := int64(ft - fileTimeEpochDelta)
	return time.Unix(ticks/1e7, (ticks%1e7)*100).UTC()
}

// Time returns the tag timestamp as a [time.Time].
func (tvi TagValueItems) Time() time.Time {
	return FileTime(tvi.Timestamp)
}
