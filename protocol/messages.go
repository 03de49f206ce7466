package protocol

import (
	"fmt"
	"slices"
)

// Chat is the decoded form of a chat packet.
type Chat struct {
	Username  string
	Message   string
	Timestamp uint64 // milliseconds since the Unix epoch
}

// NewChat builds a chat packet.
func NewChat(username, message string, timestamp uint64) *Packet {
	p := NewPacket(MsgTypeChat)
	p.SetString("username", username)
	p.SetString("message", message)
	p.SetUint64("timestamp", timestamp)
	return p
}

// ParseChat extracts the chat fields from p.
func ParseChat(p *Packet) (Chat, error) {
	if p.Type() != MsgTypeChat {
		return Chat{}, fmt.Errorf("not a chat packet: %s", p.Type())
	}
	var (
		c   Chat
		err error
	)
	if c.Username, err = p.String("username"); err != nil {
		return Chat{}, err
	}
	if c.Message, err = p.String("message"); err != nil {
		return Chat{}, err
	}
	if c.Timestamp, err = p.Uint64("timestamp"); err != nil {
		return Chat{}, err
	}
	return c, nil
}

// ProtocolInfo is the decoded form of a protocol-info packet.
type ProtocolInfo struct {
	Version     uint8
	Name        string
	Description string
	Supported   []MessageType
}

// NewProtocolInfo builds a protocol-info packet advertising the supported message types.
func NewProtocolInfo(version uint8, supported []MessageType) *Packet {
	p := NewPacket(MsgTypeProtocolInfo)
	p.SetUint8("version", version)
	p.SetString("protocol_name", "LPTF")
	p.SetString("description", "La Plateforme Transport Format")

	types := make([]byte, 0, 2*len(supported))
	for _, t := range supported {
		types = wire.AppendUint16(types, uint16(t))
	}
	p.SetBinary("supported_types", types)
	return p
}

func ParseProtocolInfo(p *Packet) (ProtocolInfo, error) {
	var (
		info ProtocolInfo
		err  error
	)
	if info.Version, err = p.Uint8("version"); err != nil {
		return ProtocolInfo{}, err
	}
	if info.Name, err = p.String("protocol_name"); err != nil {
		return ProtocolInfo{}, err
	}
	// description is informational
	info.Description, _ = p.String("description")

	types, err := p.Binary("supported_types")
	if err != nil {
		return ProtocolInfo{}, err
	}
	if len(types)%2 != 0 {
		return ProtocolInfo{}, fmt.Errorf("supported_types has odd length %d", len(types))
	}
	for i := 0; i < len(types); i += 2 {
		info.Supported = append(info.Supported, MessageType(wire.Uint16(types[i:])))
	}
	return info, nil
}

// Supports reports whether the peer advertised t.
func (i ProtocolInfo) Supports(t MessageType) bool {
	return slices.Contains(i.Supported, t)
}

// Error codes carried by error packets.
const (
	ErrCodeBadRequest     uint32 = 400
	ErrCodeForbidden      uint32 = 403
	ErrCodeInternal       uint32 = 500
	ErrCodeNotImplemented uint32 = 501
	ErrCodeUnavailable    uint32 = 503
)

// ErrorInfo is the decoded form of an error packet.
type ErrorInfo struct {
	Code    uint32
	Message string
}

func (e ErrorInfo) Error() string {
	return fmt.Sprintf("lptf error %d: %s", e.Code, e.Message)
}

func NewError(code uint32, message string) *Packet {
	p := NewPacket(MsgTypeError)
	p.SetUint32("error_code", code)
	p.SetString("error_message", message)
	return p
}

func ParseError(p *Packet) (ErrorInfo, error) {
	if p.Type() != MsgTypeError {
		return ErrorInfo{}, fmt.Errorf("not an error packet: %s", p.Type())
	}
	code, err := p.Uint32("error_code")
	if err != nil {
		return ErrorInfo{}, err
	}
	msg, err := p.String("error_message")
	if err != nil {
		return ErrorInfo{}, err
	}
	return ErrorInfo{Code: code, Message: msg}, nil
}

// NewAck acknowledges a packet of the given type.
func NewAck(of MessageType) *Packet {
	p := NewPacket(MsgTypeAck)
	p.SetUint16("ack_type", uint16(of))
	return p
}

func NewPing(timestamp uint64) *Packet {
	p := NewPacket(MsgTypePing)
	p.SetUint64("timestamp", timestamp)
	return p
}

func NewPong(timestamp uint64) *Packet {
	p := NewPacket(MsgTypePong)
	p.SetUint64("timestamp", timestamp)
	return p
}

// NewHello announces a username to the server.
func NewHello(username string) *Packet {
	p := NewPacket(MsgTypeHello)
	p.SetString("username", username)
	return p
}

func NewDisconnect(reason string) *Packet {
	p := NewPacket(MsgTypeDisconnect)
	if reason != "" {
		p.SetString("reason", reason)
	}
	return p
}
