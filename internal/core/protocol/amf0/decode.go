// If you are AI: This file implements AMF0 decoding over byte buffers.
// ErrShortBuffer signals truncated input; every other error is unrecoverable.

package amf0

import (
	"encoding/binary"
	"math"

	"github.com/pkg/errors"
)

// maxDepth bounds object nesting so hostile input cannot exhaust the stack.
const maxDepth = 32

// Decode walks up to n top-level values from data (all of them when n < 0).
// It returns the values, the bytes consumed, and an error.
// ErrShortBuffer means data ended inside a value; the values decoded before it are returned.
func Decode(data []byte, n int) ([]Value, int, error) {
	values := make([]Value, 0, 4)
	offset := 0
	for (n < 0 || len(values) < n) && offset < len(data) {
		v, size, err := decodeValue(data[offset:], 0)
		if err != nil {
			return values, offset, err
		}
		values = append(values, v)
		offset += size
	}
	if n > 0 && len(values) < n {
		return values, offset, ErrShortBuffer
	}
	return values, offset, nil
}

// DecodeValue decodes exactly one value from the front of data.
func DecodeValue(data []byte) (Value, int, error) {
	return decodeValue(data, 0)
}

// DecodeCommand decodes every value in a command or data message body.
func DecodeCommand(body []byte) (Array, error) {
	values, _, err := Decode(body, -1)
	if err != nil {
		return nil, err
	}
	return Array(values), nil
}

func decodeValue(data []byte, depth int) (Value, int, error) {
	if len(data) < 1 {
		return nil, 0, ErrShortBuffer
	}
	if depth > maxDepth {
		return nil, 0, errors.Wrap(ErrInvalidData, "nesting too deep")
	}

	marker := data[0]
	body := data[1:]
	switch marker {
	case TypeNumber:
		if len(body) < 8 {
			return nil, 0, ErrShortBuffer
		}
		return math.Float64frombits(binary.BigEndian.Uint64(body)), 9, nil

	case TypeBoolean:
		if len(body) < 1 {
			return nil, 0, ErrShortBuffer
		}
		return body[0] != 0, 2, nil

	case TypeString:
		s, size, err := decodeShortString(body)
		if err != nil {
			return nil, 0, err
		}
		return s, 1 + size, nil

	case TypeLongString, TypeXMLDocument:
		if len(body) < 4 {
			return nil, 0, ErrShortBuffer
		}
		length := binary.BigEndian.Uint32(body)
		if uint64(len(body)-4) < uint64(length) {
			return nil, 0, ErrShortBuffer
		}
		return string(body[4 : 4+length]), 5 + int(length), nil

	case TypeNull, TypeUndefined, TypeUnsupported:
		return nil, 1, nil

	case TypeObject:
		props, size, err := decodeProperties(body, depth)
		if err != nil {
			return nil, 0, err
		}
		return Object(props), 1 + size, nil

	case TypeECMAArray:
		if len(body) < 4 {
			return nil, 0, ErrShortBuffer
		}
		// The count prefix is informational; the end marker terminates the array.
		props, size, err := decodeProperties(body[4:], depth)
		if err != nil {
			return nil, 0, err
		}
		return ECMAArray(props), 5 + size, nil

	case TypeStrictArray:
		if len(body) < 4 {
			return nil, 0, ErrShortBuffer
		}
		count := binary.BigEndian.Uint32(body)
		if uint64(count) > uint64(len(body)) {
			// Every element needs at least one byte.
			return nil, 0, ErrShortBuffer
		}
		arr := make(Array, 0, count)
		offset := 4
		for i := uint32(0); i < count; i++ {
			v, size, err := decodeValue(body[offset:], depth+1)
			if err != nil {
				return nil, 0, err
			}
			arr = append(arr, v)
			offset += size
		}
		return arr, 1 + offset, nil

	case TypeDate:
		// 8-byte milliseconds since epoch + 2-byte timezone (ignored)
		if len(body) < 10 {
			return nil, 0, ErrShortBuffer
		}
		return math.Float64frombits(binary.BigEndian.Uint64(body)), 11, nil

	default:
		return nil, 0, errors.Wrapf(ErrUnexpectedType, "marker 0x%02x", marker)
	}
}

func decodeShortString(data []byte) (string, int, error) {
	if len(data) < 2 {
		return "", 0, ErrShortBuffer
	}
	length := int(binary.BigEndian.Uint16(data))
	if len(data)-2 < length {
		return "", 0, ErrShortBuffer
	}
	return string(data[2 : 2+length]), 2 + length, nil
}

// decodeProperties reads (name, value) pairs until the empty name + end marker.
func decodeProperties(data []byte, depth int) (map[string]Value, int, error) {
	props := make(map[string]Value)
	offset := 0
	for {
		key, size, err := decodeShortString(data[offset:])
		if err != nil {
			return nil, 0, err
		}
		offset += size
		if key == "" {
			if offset >= len(data) {
				return nil, 0, ErrShortBuffer
			}
			if data[offset] != TypeObjectEnd {
				return nil, 0, errors.Wrapf(ErrInvalidData, "object end marker 0x%02x", data[offset])
			}
			return props, offset + 1, nil
		}
		v, size, err := decodeValue(data[offset:], depth+1)
		if err != nil {
			return nil, 0, err
		}
		props[key] = v
		offset += size
	}
}
