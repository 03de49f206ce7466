package protocol

import (
	"bytes"
	"fmt"
	"math"
)

// Value is a typed field value. The set of implementations is closed:
// Uint8, Uint16, Uint32, Uint64, Int8, Int16, Int32, Int64, Float32,
// Float64, String and Binary.
type Value interface {
	// Type returns the wire tag of the value.
	Type() DataType
	// Len returns the encoded size of the value in bytes.
	Len() int

	appendTo(dst []byte) []byte
}

type (
	Uint8   uint8
	Uint16  uint16
	Uint32  uint32
	Uint64  uint64
	Int8    int8
	Int16   int16
	Int32   int32
	Int64   int64
	Float32 float32
	Float64 float64
	String  string
	Binary  []byte
)

func (Uint8) Type() DataType { return TypeUint8 }
func (Uint16) Type() DataType { return TypeUint16 }
func (Uint32) Type() DataType { return TypeUint32 }
func (Uint64) Type() DataType { return TypeUint64 }
func (Int8) Type() DataType { return TypeInt8 }
func (Int16) Type() DataType { return TypeInt16 }
func (Int32) Type() DataType { return TypeInt32 }
func (Int64) Type() DataType { return TypeInt64 }
func (Float32) Type() DataType { return TypeFloat32 }
func (Float64) Type() DataType { return TypeFloat64 }
func (String) Type() DataType { return TypeString }
func (Binary) Type() DataType { return TypeBinary }

func (Uint8) Len() int { return 1 }
func (Uint16) Len() int { return 2 }
func (Uint32) Len() int { return 4 }
func (Uint64) Len() int { return 8 }
func (Int8) Len() int { return 1 }
func (Int16) Len() int { return 2 }
func (Int32) Len() int { return 4 }
func (Int64) Len() int { return 8 }
func (Float32) Len() int { return 4 }
func (Float64) Len() int { return 8 }
func (v String) Len() int { return len(v) }
func (v Binary) Len() int { return len(v) }

func (v Uint8) appendTo(dst []byte) []byte { return append(dst, byte(v)) }
func (v Uint16) appendTo(dst []byte) []byte { return wire.AppendUint16(dst, uint16(v)) }
func (v Uint32) appendTo(dst []byte) []byte { return wire.AppendUint32(dst, uint32(v)) }
func (v Uint64) appendTo(dst []byte) []byte { return wire.AppendUint64(dst, uint64(v)) }
func (v Int8) appendTo(dst []byte) []byte { return append(dst, byte(v)) }
func (v Int16) appendTo(dst []byte) []byte { return wire.AppendUint16(dst, uint16(v)) }
func (v Int32) appendTo(dst []byte) []byte { return wire.AppendUint32(dst, uint32(v)) }
func (v Int64) appendTo(dst []byte) []byte { return wire.AppendUint64(dst, uint64(v)) }
func (v Float32) appendTo(dst []byte) []byte { return wire.AppendUint32(dst, math.Float32bits(float32(v))) }
func (v Float64) appendTo(dst []byte) []byte { return wire.AppendUint64(dst, math.Float64bits(float64(v))) }
func (v String) appendTo(dst []byte) []byte { return append(dst, v...) }
func (v Binary) appendTo(dst []byte) []byte { return append(dst, v...) }

// decodeValue builds a value of type t from its wire bytes. data is copied.
func decodeValue(t DataType, data []byte) (Value, error) {
	if !t.Supported() {
		return nil, fmt.Errorf("%w: 0x%02x", ErrUnknownType, uint8(t))
	}
	if size := t.fixedSize(); size != 0 && len(data) != size {
		return nil, fmt.Errorf("%w: %s needs %d bytes, got %d", ErrTypeMismatch, t, size, len(data))
	}

	switch t {
	case TypeUint8:
		return Uint8(data[0]), nil
	case TypeUint16:
		return Uint16(wire.Uint16(data)), nil
	case TypeUint32:
		return Uint32(wire.Uint32(data)), nil
	case TypeUint64:
		return Uint64(wire.Uint64(data)), nil
	case TypeInt8:
		return Int8(data[0]), nil
	case TypeInt16:
		return Int16(wire.Uint16(data)), nil
	case TypeInt32:
		return Int32(wire.Uint32(data)), nil
	case TypeInt64:
		return Int64(wire.Uint64(data)), nil
	case TypeFloat32:
		return Float32(math.Float32frombits(wire.Uint32(data))), nil
	case TypeFloat64:
		return Float64(math.Float64frombits(wire.Uint64(data))), nil
	case TypeString:
		return String(data), nil
	case TypeBinary:
		return Binary(bytes.Clone(data)), nil
	}
	return nil, fmt.Errorf("%w: 0x%02x", ErrUnknownType, uint8(t))
}

// cloneValue returns a copy of v that shares no memory with it.
func cloneValue(v Value) Value {
	if b, ok := v.(Binary); ok {
		return Binary(bytes.Clone(b))
	}
	return v
}

// formatValue renders v for debug output.
func formatValue(v Value) string {
	switch v := v.(type) {
	case String:
		return fmt.Sprintf("%q", string(v))
	case Binary:
		if len(v) > 32 {
			return fmt.Sprintf("%x... (%d bytes)", []byte(v[:32]), len(v))
		}
		return fmt.Sprintf("%x", []byte(v))
	}
	return fmt.Sprintf("%v", v)
}
