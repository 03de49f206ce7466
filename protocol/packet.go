package protocol

import (
	"fmt"
	"strings"
)

// Header is the fixed 12-byte packet prefix.
type Header struct {
	Magic         uint32
	Version       uint8
	Flags         Flag
	Type          MessageType
	PayloadLength uint32
}

// Field is a named value in a packet.
type Field struct {
	Name  string
	Value Value
}

// Packet is a header plus an ordered set of uniquely named fields.
// Fields keep their insertion order; overwriting a field keeps its position.
type Packet struct {
	header Header
	fields []Field
	index  map[string]int
}

// NewPacket creates an empty packet of the given type.
func NewPacket(t MessageType) *Packet {
	return &Packet{
		header: Header{
			Magic:   Magic,
			Version: ProtocolVersion,
			Type:    t,
		},
	}
}

func (p *Packet) Header() Header { return p.header }
func (p *Packet) Type() MessageType { return p.header.Type }
func (p *Packet) SetType(t MessageType) { p.header.Type = t }
func (p *Packet) Flags() Flag { return p.header.Flags }
func (p *Packet) SetFlags(f Flag) { p.header.Flags = f }
func (p *Packet) AddFlag(f Flag) { p.header.Flags |= f }
func (p *Packet) RemoveFlag(f Flag) { p.header.Flags &^= f }
func (p *Packet) HasFlag(f Flag) bool { return p.header.Flags&f == f }
func (p *Packet) Version() uint8 { return p.header.Version }
func (p *Packet) PayloadLength() uint32 { return p.header.PayloadLength }

// IsValid reports whether the header carries the LPTF magic and a supported version.
func (p *Packet) IsValid() bool {
	return p.header.Magic == Magic && IsCompatibleVersion(p.header.Version)
}

// Size returns the encoded size of the packet, header included.
func (p *Packet) Size() int {
	return HeaderSize + p.payloadSize()
}

func (p *Packet) payloadSize() int {
	n := 0
	for _, f := range p.fields {
		n += 1 + len(f.Name) + 1 + 2 + f.Value.Len()
	}
	return n
}

// Len returns the number of fields.
func (p *Packet) Len() int { return len(p.fields) }

// Names returns the field names in order.
func (p *Packet) Names() []string {
	names := make([]string, len(p.fields))
	for i, f := range p.fields {
		names[i] = f.Name
	}
	return names
}

// Fields returns a copy of the field table in order.
func (p *Packet) Fields() []Field {
	out := make([]Field, len(p.fields))
	copy(out, p.fields)
	return out
}

func (p *Packet) Has(name string) bool {
	_, ok := p.index[name]
	return ok
}

func (p *Packet) Get(name string) (Value, bool) {
	i, ok := p.index[name]
	if !ok {
		return nil, false
	}
	return p.fields[i].Value, true
}

// Set stores v under name. A nil value removes the field.
func (p *Packet) Set(name string, v Value) {
	if v == nil {
		p.Del(name)
		return
	}
	if i, ok := p.index[name]; ok {
		p.fields[i].Value = v
		return
	}
	if p.index == nil {
		p.index = make(map[string]int)
	}
	p.index[name] = len(p.fields)
	p.fields = append(p.fields, Field{Name: name, Value: v})
}

// Del removes a field and reports whether it existed.
func (p *Packet) Del(name string) bool {
	i, ok := p.index[name]
	if !ok {
		return false
	}
	p.fields = append(p.fields[:i], p.fields[i+1:]...)
	delete(p.index, name)
	for j := i; j < len(p.fields); j++ {
		p.index[p.fields[j].Name] = j
	}
	return true
}

// Reset removes every field and clears the flags, keeping the type.
func (p *Packet) Reset() {
	p.fields = p.fields[:0]
	clear(p.index)
	p.header.Flags = FlagNone
	p.header.PayloadLength = 0
}

// Clone returns a deep copy of the packet.
func (p *Packet) Clone() *Packet {
	c := &Packet{header: p.header}
	for _, f := range p.fields {
		c.Set(f.Name, cloneValue(f.Value))
	}
	return c
}

func (p *Packet) SetUint8(name string, v uint8) { p.Set(name, Uint8(v)) }
func (p *Packet) SetUint16(name string, v uint16) { p.Set(name, Uint16(v)) }
func (p *Packet) SetUint32(name string, v uint32) { p.Set(name, Uint32(v)) }
func (p *Packet) SetUint64(name string, v uint64) { p.Set(name, Uint64(v)) }
func (p *Packet) SetInt8(name string, v int8) { p.Set(name, Int8(v)) }
func (p *Packet) SetInt16(name string, v int16) { p.Set(name, Int16(v)) }
func (p *Packet) SetInt32(name string, v int32) { p.Set(name, Int32(v)) }
func (p *Packet) SetInt64(name string, v int64) { p.Set(name, Int64(v)) }
func (p *Packet) SetFloat32(name string, v float32) { p.Set(name, Float32(v)) }
func (p *Packet) SetFloat64(name string, v float64) { p.Set(name, Float64(v)) }
func (p *Packet) SetString(name string, v string) { p.Set(name, String(v)) }
func (p *Packet) SetBinary(name string, v []byte) { p.Set(name, Binary(v)) }

func field[T Value](p *Packet, name string) (T, error) {
	var zero T
	v, ok := p.Get(name)
	if !ok {
		return zero, fmt.Errorf("%w: %q", ErrFieldNotFound, name)
	}
	tv, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("%w: %q is %s, not %s", ErrFieldType, name, v.Type(), zero.Type())
	}
	return tv, nil
}

func (p *Packet) Uint8(name string) (uint8, error) {
	v, err := field[Uint8](p, name)
	return uint8(v), err
}

func (p *Packet) Uint16(name string) (uint16, error) {
	v, err := field[Uint16](p, name)
	return uint16(v), err
}

func (p *Packet) Uint32(name string) (uint32, error) {
	v, err := field[Uint32](p, name)
	return uint32(v), err
}

func (p *Packet) Uint64(name string) (uint64, error) {
	v, err := field[Uint64](p, name)
	return uint64(v), err
}

func (p *Packet) Int8(name string) (int8, error) {
	v, err := field[Int8](p, name)
	return int8(v), err
}

func (p *Packet) Int16(name string) (int16, error) {
	v, err := field[Int16](p, name)
	return int16(v), err
}

func (p *Packet) Int32(name string) (int32, error) {
	v, err := field[Int32](p, name)
	return int32(v), err
}

func (p *Packet) Int64(name string) (int64, error) {
	v, err := field[Int64](p, name)
	return int64(v), err
}

func (p *Packet) Float32(name string) (float32, error) {
	v, err := field[Float32](p, name)
	return float32(v), err
}

func (p *Packet) Float64(name string) (float64, error) {
	v, err := field[Float64](p, name)
	return float64(v), err
}

func (p *Packet) String(name string) (string, error) {
	v, err := field[String](p, name)
	return string(v), err
}

// Binary returns the blob stored under name. The slice is shared with the packet.
func (p *Packet) Binary(name string) ([]byte, error) {
	v, err := field[Binary](p, name)
	return []byte(v), err
}

// Dump renders the header and every field for debugging.
func (p *Packet) Dump() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "LPTF packet {type=%s (0x%04x), version=%d, flags=0x%02x, payload=%d, fields=%d}",
		p.header.Type, uint16(p.header.Type), p.header.Version, uint8(p.header.Flags), p.payloadSize(), len(p.fields))
	for _, f := range p.fields {
		fmt.Fprintf(&sb, "\n  %s (%s) = %s", f.Name, f.Value.Type(), formatValue(f.Value))
	}
	return sb.String()
}
