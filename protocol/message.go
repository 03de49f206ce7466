package protocol

import "fmt"

const (
	Magic           uint32 = 0x4C505446 // "LPTF"
	ProtocolVersion uint8  = 1
	HeaderSize             = 12

	MaxNameLength  = 255
	MaxValueLength = 65535
	MaxPayloadSize = 10 * 1024 * 1024
)

// ProtocolName is advertised in protocol-info replies.
const ProtocolName = "LPTF (La Plateforme Transport Format) v1.0"

// MessageType identifies the kind of a packet.
type MessageType uint16

// Message types
const (
	MsgTypeHello              MessageType = 0x0001
	MsgTypeChat               MessageType = 0x0002
	MsgTypeDisconnect         MessageType = 0x0003
	MsgTypeProtocolInfo       MessageType = 0x0010
	MsgTypeCapabilityExchange MessageType = 0x0011
	MsgTypeAuthRequest        MessageType = 0x0020 // reserved
	MsgTypeAuthResponse       MessageType = 0x0021 // reserved
	MsgTypeFileTransfer       MessageType = 0x0030 // reserved
	MsgTypeGameState          MessageType = 0x0040 // reserved
	MsgTypeMediaStream        MessageType = 0x0050 // reserved

	// Remote control
	MsgTypeHostInfoRequest     MessageType = 0x0100
	MsgTypeHostInfoResponse    MessageType = 0x0101
	MsgTypeProcessListRequest  MessageType = 0x0102
	MsgTypeProcessListResponse MessageType = 0x0103
	MsgTypeExecCommandRequest  MessageType = 0x0104
	MsgTypeExecCommandResponse MessageType = 0x0105
	MsgTypeCaptureStart        MessageType = 0x0106
	MsgTypeCaptureStop         MessageType = 0x0107
	MsgTypeCaptureStatus       MessageType = 0x0108
	MsgTypeCaptureDataRequest  MessageType = 0x0109
	MsgTypeCaptureData         MessageType = 0x010A

	MsgTypePong  MessageType = 0xFFFC
	MsgTypePing  MessageType = 0xFFFD
	MsgTypeAck   MessageType = 0xFFFE
	MsgTypeError MessageType = 0xFFFF
)

var messageTypeNames = map[MessageType]string{
	MsgTypeHello:               "hello",
	MsgTypeChat:                "chat",
	MsgTypeDisconnect:          "disconnect",
	MsgTypeProtocolInfo:        "protocol_info",
	MsgTypeCapabilityExchange:  "capability_exchange",
	MsgTypeAuthRequest:         "auth_request",
	MsgTypeAuthResponse:        "auth_response",
	MsgTypeFileTransfer:        "file_transfer",
	MsgTypeGameState:           "game_state",
	MsgTypeMediaStream:         "media_stream",
	MsgTypeHostInfoRequest:     "host_info_request",
	MsgTypeHostInfoResponse:    "host_info_response",
	MsgTypeProcessListRequest:  "process_list_request",
	MsgTypeProcessListResponse: "process_list_response",
	MsgTypeExecCommandRequest:  "exec_command_request",
	MsgTypeExecCommandResponse: "exec_command_response",
	MsgTypeCaptureStart:        "capture_start",
	MsgTypeCaptureStop:         "capture_stop",
	MsgTypeCaptureStatus:       "capture_status",
	MsgTypeCaptureDataRequest:  "capture_data_request",
	MsgTypeCaptureData:         "capture_data",
	MsgTypePong:                "pong",
	MsgTypePing:                "ping",
	MsgTypeAck:                 "ack",
	MsgTypeError:               "error",
}

func (t MessageType) String() string {
	if name, ok := messageTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("unknown(0x%04x)", uint16(t))
}

// Known reports whether t is one of the defined message types.
func (t MessageType) Known() bool {
	_, ok := messageTypeNames[t]
	return ok
}

// IsRemoteRequest reports whether t is a request handled by the remote control facility.
func (t MessageType) IsRemoteRequest() bool {
	switch t {
	case MsgTypeHostInfoRequest, MsgTypeProcessListRequest, MsgTypeExecCommandRequest,
		MsgTypeCaptureStart, MsgTypeCaptureStop, MsgTypeCaptureDataRequest:
		return true
	}
	return false
}

func (t MessageType) IsRemoteResponse() bool {
	switch t {
	case MsgTypeHostInfoResponse, MsgTypeProcessListResponse, MsgTypeExecCommandResponse,
		MsgTypeCaptureStatus, MsgTypeCaptureData:
		return true
	}
	return false
}

// Reserved reports whether t is allocated but has no implementation.
func (t MessageType) Reserved() bool {
	switch t {
	case MsgTypeAuthRequest, MsgTypeAuthResponse, MsgTypeFileTransfer,
		MsgTypeGameState, MsgTypeMediaStream:
		return true
	}
	return false
}

// Flag is a header flag bit.
type Flag uint8

const (
	FlagNone         Flag = 0x00
	FlagCompressed   Flag = 0x01
	FlagEncrypted    Flag = 0x02
	FlagFragmented   Flag = 0x04
	FlagRequiresAck  Flag = 0x08
	FlagPriorityHigh Flag = 0x10
	FlagPriorityLow  Flag = 0x20
)

// DataType is the wire tag of a field value.
type DataType uint8

const (
	TypeUint8   DataType = 0x01
	TypeUint16  DataType = 0x02
	TypeUint32  DataType = 0x03
	TypeUint64  DataType = 0x04
	TypeInt8    DataType = 0x05
	TypeInt16   DataType = 0x06
	TypeInt32   DataType = 0x07
	TypeInt64   DataType = 0x08
	TypeFloat32 DataType = 0x09
	TypeFloat64 DataType = 0x0A
	TypeString  DataType = 0x0B
	TypeBinary  DataType = 0x0C
	TypeArray   DataType = 0x0D // reserved, rejected by the decoder
	TypeObject  DataType = 0x0E // reserved, rejected by the decoder
)

func (t DataType) String() string {
	switch t {
	case TypeUint8:
		return "uint8"
	case TypeUint16:
		return "uint16"
	case TypeUint32:
		return "uint32"
	case TypeUint64:
		return "uint64"
	case TypeInt8:
		return "int8"
	case TypeInt16:
		return "int16"
	case TypeInt32:
		return "int32"
	case TypeInt64:
		return "int64"
	case TypeFloat32:
		return "float32"
	case TypeFloat64:
		return "float64"
	case TypeString:
		return "string"
	case TypeBinary:
		return "binary"
	case TypeArray:
		return "array"
	case TypeObject:
		return "object"
	}
	return fmt.Sprintf("unknown(0x%02x)", uint8(t))
}

// Supported reports whether values of this type can be encoded and decoded.
func (t DataType) Supported() bool {
	return t >= TypeUint8 && t <= TypeBinary
}

// fixedSize returns the encoded size of numeric types, 0 for variable length ones.
func (t DataType) fixedSize() int {
	switch t {
	case TypeUint8, TypeInt8:
		return 1
	case TypeUint16, TypeInt16:
		return 2
	case TypeUint32, TypeInt32, TypeFloat32:
		return 4
	case TypeUint64, TypeInt64, TypeFloat64:
		return 8
	}
	return 0
}

// IsCompatibleVersion reports whether a peer speaking version v can be served.
func IsCompatibleVersion(v uint8) bool {
	return v == ProtocolVersion
}

// ProtocolInfoString describes the protocol for humans.
func ProtocolInfoString() string {
	return ProtocolName
}
