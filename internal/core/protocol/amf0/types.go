// If you are AI: This file defines AMF0 type markers and the Go value model.

package amf0

import "github.com/pkg/errors"

// AMF0 type markers
const (
	TypeNumber      = 0x00
	TypeBoolean     = 0x01
	TypeString      = 0x02
	TypeObject      = 0x03
	TypeMovieClip   = 0x04
	TypeNull        = 0x05
	TypeUndefined   = 0x06
	TypeReference   = 0x07
	TypeECMAArray   = 0x08
	TypeObjectEnd   = 0x09
	TypeStrictArray = 0x0A
	TypeDate        = 0x0B
	TypeLongString  = 0x0C
	TypeUnsupported = 0x0D
	TypeXMLDocument = 0x0F
	TypeTypedObject = 0x10
	TypeAVMPlus     = 0x11
)

// maxShortString is the largest string that fits the 2-byte length form.
const maxShortString = 0xFFFF

var (
	// ErrShortBuffer means the input ended inside a value. More bytes may complete it.
	ErrShortBuffer = errors.New("amf0: short buffer")
	// ErrUnexpectedType is returned for markers outside the supported set.
	ErrUnexpectedType = errors.New("amf0: unexpected type marker")
	// ErrInvalidData is returned for structurally broken input.
	ErrInvalidData = errors.New("amf0: invalid data")
	// ErrUnsupportedValue is returned when encoding a Go value with no AMF0 form.
	ErrUnsupportedValue = errors.New("amf0: unsupported value")
)

// Value is a decoded AMF0 value: float64, bool, string, nil, Object, ECMAArray or Array.
type Value = interface{}

// Object is an AMF0 anonymous object. Key order is not significant.
type Object map[string]Value

// ECMAArray is an AMF0 associative array. It decodes like an Object.
type ECMAArray map[string]Value

// Array is an AMF0 strict array, and also the value list of a command body.
type Array []Value

// String returns the string at key or "" when absent or not a string.
func (o Object) String(key string) string {
	s, _ := o[key].(string)
	return s
}

// Number returns the number at key and whether it was present as a number.
func (o Object) Number(key string) (float64, bool) {
	f, ok := o[key].(float64)
	return f, ok
}

// AsObject converts an Object or ECMAArray value to Object. Other values yield nil.
func AsObject(v Value) Object {
	switch t := v.(type) {
	case Object:
		return t
	case ECMAArray:
		return Object(t)
	case map[string]interface{}:
		return Object(t)
	}
	return nil
}
