// SPDX-License-Identifier: GPL-3.0-or-later

package ctapi

import (
	"bytes"
	"errors"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/simplifiedchinese"
)

// gbkEncoder substitutes runes outside GBK instead of failing.
var gbkEncoder = encoding.ReplaceUnsupported(simplifiedchinese.GBK.NewEncoder())

// EncodeString converts s into a NUL-terminated GBK byte string.
//
// Characters that GBK cannot represent are replaced, so the conversion
// is lossy but never fails for that reason. A string containing a NUL
// byte cannot be represented and causes an [KindInvalidParameter] error.
func EncodeString(s string) ([]byte, error) {
	if strings.IndexByte(s, 0) >= 0 {
		return nil, &Error{Kind: KindInvalidParameter, Op: "encode", Param: "string", Value: s, Detail: "embedded NUL"}
	}
	out, err := gbkEncoder.Bytes([]byte(s))
	if err != nil {
		return nil, &Error{Kind: KindInvalidParameter, Op: "encode", Param: "string", Value: s, Cause: err}
	}
	return append(out, 0), nil
}

// encodeParam is like [EncodeString] but names the operation and the parameter.
func encodeParam(op, param, value string) ([]byte, error) {
	out, err := EncodeString(value)
	if err != nil {
		var e *Error
		if errors.As(err, &e) {
			e.Op, e.Param = op, param
		}
		return nil, err
	}
	return out, nil
}

// DecodeString converts GBK bytes into a UTF-8 string.
//
// Invalid sequences decode to the Unicode replacement character.
func DecodeString(b []byte) string {
	out, err := simplifiedchinese.GBK.NewDecoder().Bytes(b)
	if err != nil {
		return string(b)
	}
	return string(out)
}

// decodeBuffer decodes the NUL-terminated text the native library wrote
// into the first n bytes of buf. When n is zero the whole buffer is scanned.
func decodeBuffer(buf []byte, n int) (string, error) {
	region := buf
	if n > 0 && n < len(buf) {
		region = buf[:n]
	}
	idx := bytes.IndexByte(region, 0)
	if idx < 0 {
		return "", &Error{Kind: KindDecoding, Op: "decode", Detail: "missing NUL terminator"}
	}
	return DecodeString(region[:idx]), nil
}
