// If you are AI: This file implements AMF0 encoding for RTMP commands and metadata.
// Values are appended to byte slices so command bodies are built in one buffer.

package amf0

import (
	"encoding/binary"
	"io"
	"math"
	"sort"

	"github.com/pkg/errors"
)

// AppendNumber appends an AMF0 number (big-endian IEEE-754 double).
func AppendNumber(buf []byte, num float64) []byte {
	buf = append(buf, TypeNumber)
	return binary.BigEndian.AppendUint64(buf, math.Float64bits(num))
}

// AppendBoolean appends an AMF0 boolean.
func AppendBoolean(buf []byte, b bool) []byte {
	if b {
		return append(buf, TypeBoolean, 1)
	}
	return append(buf, TypeBoolean, 0)
}

// AppendString appends an AMF0 string, switching to the long string form above 65535 bytes.
func AppendString(buf []byte, s string) []byte {
	if len(s) > maxShortString {
		buf = append(buf, TypeLongString)
		buf = binary.BigEndian.AppendUint32(buf, uint32(len(s)))
		return append(buf, s...)
	}
	buf = append(buf, TypeString)
	return appendKey(buf, s)
}

// AppendNull appends an AMF0 null.
func AppendNull(buf []byte) []byte {
	return append(buf, TypeNull)
}

// AppendObject appends an AMF0 object. Keys are written in sorted order.
func AppendObject(buf []byte, obj Object) ([]byte, error) {
	buf = append(buf, TypeObject)
	return appendProperties(buf, obj)
}

// AppendECMAArray appends an AMF0 ECMA array with its (informational) count prefix.
func AppendECMAArray(buf []byte, arr ECMAArray) ([]byte, error) {
	buf = append(buf, TypeECMAArray)
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(arr)))
	return appendProperties(buf, arr)
}

// AppendStrictArray appends an AMF0 strict array.
func AppendStrictArray(buf []byte, arr Array) ([]byte, error) {
	buf = append(buf, TypeStrictArray)
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(arr)))
	var err error
	for _, v := range arr {
		if buf, err = AppendValue(buf, v); err != nil {
			return nil, err
		}
	}
	return buf, nil
}

// AppendValue appends any supported Go value in its AMF0 form.
// Integer kinds are widened to AMF0 numbers.
func AppendValue(buf []byte, val Value) ([]byte, error) {
	switch v := val.(type) {
	case nil:
		return AppendNull(buf), nil
	case float64:
		return AppendNumber(buf, v), nil
	case float32:
		return AppendNumber(buf, float64(v)), nil
	case int:
		return AppendNumber(buf, float64(v)), nil
	case int32:
		return AppendNumber(buf, float64(v)), nil
	case int64:
		return AppendNumber(buf, float64(v)), nil
	case uint32:
		return AppendNumber(buf, float64(v)), nil
	case uint64:
		return AppendNumber(buf, float64(v)), nil
	case bool:
		return AppendBoolean(buf, v), nil
	case string:
		return AppendString(buf, v), nil
	case Object:
		return AppendObject(buf, v)
	case map[string]interface{}:
		return AppendObject(buf, Object(v))
	case ECMAArray:
		return AppendECMAArray(buf, v)
	case Array:
		return AppendStrictArray(buf, v)
	default:
		return nil, errors.Wrapf(ErrUnsupportedValue, "%T", val)
	}
}

// Encode writes a single AMF0 value to w.
func Encode(w io.Writer, val Value) error {
	buf, err := AppendValue(nil, val)
	if err != nil {
		return err
	}
	_, err = w.Write(buf)
	return err
}

// EncodeCommand encodes the values of an RTMP command body back to back.
// Command bodies are not wrapped in a strict array.
func EncodeCommand(arr Array) ([]byte, error) {
	buf := make([]byte, 0, 256)
	var err error
	for _, v := range arr {
		if buf, err = AppendValue(buf, v); err != nil {
			return nil, err
		}
	}
	return buf, nil
}

func appendKey(buf []byte, key string) []byte {
	buf = binary.BigEndian.AppendUint16(buf, uint16(len(key)))
	return append(buf, key...)
}

func appendProperties(buf []byte, props map[string]Value) ([]byte, error) {
	keys := make([]string, 0, len(props))
	for k := range props {
		if k == "" || len(k) > maxShortString {
			return nil, errors.Wrapf(ErrInvalidData, "property name length %d", len(k))
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var err error
	for _, k := range keys {
		buf = appendKey(buf, k)
		if buf, err = AppendValue(buf, props[k]); err != nil {
			return nil, errors.Wrapf(err, "property %q", k)
		}
	}
	return append(buf, 0, 0, TypeObjectEnd), nil
}
