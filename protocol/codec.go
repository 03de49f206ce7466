package protocol

import (
	"bytes"
	"fmt"
	"io"
)

// Encode serializes p into a new buffer. The payload length is recomputed
// from the field table and stored back on the packet.
func Encode(p *Packet) ([]byte, error) {
	return AppendPacket(make([]byte, 0, p.Size()), p)
}

// AppendPacket appends the wire form of p to dst.
func AppendPacket(dst []byte, p *Packet) ([]byte, error) {
	if err := p.validate(); err != nil {
		return dst, err
	}
	payload := p.payloadSize()
	if payload > MaxPayloadSize {
		return dst, fmt.Errorf("%w: %d bytes", ErrPayloadTooLarge, payload)
	}
	p.header.PayloadLength = uint32(payload)

	version := p.header.Version
	if version == 0 {
		version = ProtocolVersion
	}

	dst = wire.AppendUint32(dst, Magic)
	dst = append(dst, version, byte(p.header.Flags))
	dst = wire.AppendUint16(dst, uint16(p.header.Type))
	dst = wire.AppendUint32(dst, uint32(payload))

	for _, f := range p.fields {
		dst = append(dst, byte(len(f.Name)))
		dst = append(dst, f.Name...)
		dst = append(dst, byte(f.Value.Type()))
		dst = wire.AppendUint16(dst, uint16(f.Value.Len()))
		dst = f.Value.appendTo(dst)
	}
	return dst, nil
}

func (p *Packet) validate() error {
	for _, f := range p.fields {
		switch {
		case len(f.Name) == 0:
			return ErrEmptyName
		case len(f.Name) > MaxNameLength:
			return fmt.Errorf("%w: %d bytes", ErrNameTooLong, len(f.Name))
		case f.Value.Len() > MaxValueLength:
			return fmt.Errorf("%w: %q is %d bytes", ErrValueTooLarge, f.Name, f.Value.Len())
		}
	}
	return nil
}

// Decode parses a packet from data. Bytes after the packet are ignored.
func Decode(data []byte) (*Packet, error) {
	p, _, err := DecodePrefix(data)
	return p, err
}

// DecodePrefix parses the packet at the start of data and returns the
// number of bytes it occupies.
func DecodePrefix(data []byte) (*Packet, int, error) {
	h, err := parseHeader(data)
	if err != nil {
		return nil, 0, err
	}
	end := HeaderSize + int(h.PayloadLength)
	if len(data) < end {
		return nil, 0, fmt.Errorf("%w: need %d bytes, have %d", ErrShortBuffer, end, len(data))
	}

	p := &Packet{header: h}
	payload := data[HeaderSize:end]
	for off := 0; off < len(payload); {
		f, n, err := decodeField(payload[off:])
		if err != nil {
			return nil, 0, err
		}
		if p.Has(f.Name) {
			return nil, 0, fmt.Errorf("%w: %q", ErrDuplicateField, f.Name)
		}
		p.Set(f.Name, f.Value)
		off += n
	}
	return p, end, nil
}

func decodeField(b []byte) (Field, int, error) {
	if len(b) < 1 {
		return Field{}, 0, ErrTruncatedField
	}
	nameLen := int(b[0])
	// name, type tag and value length
	if len(b) < 1+nameLen+3 {
		return Field{}, 0, fmt.Errorf("%w: field header needs %d bytes, have %d", ErrTruncatedField, 1+nameLen+3, len(b))
	}
	name := string(b[1 : 1+nameLen])
	off := 1 + nameLen
	t := DataType(b[off])
	dataLen := int(wire.Uint16(b[off+1:]))
	off += 3
	if len(b) < off+dataLen {
		return Field{}, 0, fmt.Errorf("%w: %q needs %d value bytes, have %d", ErrTruncatedField, name, dataLen, len(b)-off)
	}
	v, err := decodeValue(t, b[off:off+dataLen])
	if err != nil {
		return Field{}, 0, fmt.Errorf("field %q: %w", name, err)
	}
	return Field{Name: name, Value: v}, off + dataLen, nil
}

// parseHeader validates the 12-byte header at the start of data.
func parseHeader(data []byte) (Header, error) {
	if len(data) < HeaderSize {
		return Header{}, fmt.Errorf("%w: need %d bytes, have %d", ErrShortBuffer, HeaderSize, len(data))
	}
	h := Header{
		Magic:         wire.Uint32(data),
		Version:       data[4],
		Flags:         Flag(data[5]),
		Type:          MessageType(wire.Uint16(data[6:])),
		PayloadLength: wire.Uint32(data[8:]),
	}
	if h.Magic != Magic {
		return Header{}, fmt.Errorf("%w: 0x%08x", ErrBadMagic, h.Magic)
	}
	if !IsCompatibleVersion(h.Version) {
		return Header{}, fmt.Errorf("%w: %d", ErrBadVersion, h.Version)
	}
	if h.PayloadLength > MaxPayloadSize {
		return Header{}, fmt.Errorf("%w: %d bytes", ErrPayloadTooLarge, h.PayloadLength)
	}
	return h, nil
}

// FrameLength returns the total size of the packet that starts data once its
// header is buffered. ErrShortBuffer means more bytes are needed; a wrong
// magic or version is reported as soon as those bytes are present.
func FrameLength(data []byte) (int, error) {
	if len(data) < HeaderSize {
		if len(data) >= 4 && !HasMagic(data) {
			return 0, fmt.Errorf("%w: 0x%08x", ErrBadMagic, wire.Uint32(data))
		}
		if len(data) >= 5 && !IsCompatibleVersion(data[4]) {
			return 0, fmt.Errorf("%w: %d", ErrBadVersion, data[4])
		}
	}
	h, err := parseHeader(data)
	if err != nil {
		return 0, err
	}
	return HeaderSize + int(h.PayloadLength), nil
}

var magicBytes = wire.AppendUint32(nil, Magic)

// HasMagic reports whether data begins with the LPTF magic.
func HasMagic(data []byte) bool {
	return len(data) >= 4 && wire.Uint32(data) == Magic
}

// SniffPacket reports whether a stream chunk begins a packet: the magic
// followed by a supported version. more is set when data is too short to
// decide but matches so far.
func SniffPacket(data []byte) (packet, more bool) {
	n := min(len(data), len(magicBytes))
	if !bytes.Equal(data[:n], magicBytes[:n]) {
		return false, false
	}
	if len(data) < len(magicBytes)+1 {
		return false, true
	}
	return IsCompatibleVersion(data[len(magicBytes)]), false
}

// TextPrefix returns how many leading bytes of data are text: the offset of
// the first complete, well formed packet embedded in data, or len(data).
// A magic that does not start a decodable packet is part of the text.
func TextPrefix(data []byte) int {
	for off := 0; off < len(data); {
		i := bytes.Index(data[off:], magicBytes)
		if i < 0 {
			break
		}
		at := off + i
		if _, _, err := DecodePrefix(data[at:]); err == nil {
			return at
		}
		off = at + 1
	}
	return len(data)
}

// WritePacket encodes p and writes it in a single call.
func WritePacket(w io.Writer, p *Packet) error {
	buf := GetBufferWithSize(p.Size())
	defer PutBuffer(buf)

	data, err := AppendPacket(buf.AvailableBuffer(), p)
	if err != nil {
		return fmt.Errorf("encode packet: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write packet: %w", err)
	}
	return nil
}

// ReadPacket reads exactly one packet from r.
func ReadPacket(r io.Reader) (*Packet, error) {
	var header [HeaderSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	h, err := parseHeader(header[:])
	if err != nil {
		return nil, err
	}

	frame := make([]byte, HeaderSize+int(h.PayloadLength))
	copy(frame, header[:])
	if _, err := io.ReadFull(r, frame[HeaderSize:]); err != nil {
		return nil, fmt.Errorf("read payload: %w", err)
	}
	return Decode(frame)
}
