package server

import (
	"context"
	"time"

	"github.com/Mmx233/lptf/protocol"
)

// Facility answers remote control requests.
type Facility interface {
	Handle(ctx context.Context, req *protocol.Packet) (*protocol.Packet, error)
}

// SupportedTypes lists the message types the server handles.
var SupportedTypes = []protocol.MessageType{
	protocol.MsgTypeHello,
	protocol.MsgTypeChat,
	protocol.MsgTypeDisconnect,
	protocol.MsgTypeProtocolInfo,
	protocol.MsgTypeCapabilityExchange,
	protocol.MsgTypeHostInfoRequest,
	protocol.MsgTypeProcessListRequest,
	protocol.MsgTypeExecCommandRequest,
	protocol.MsgTypeCaptureStart,
	protocol.MsgTypeCaptureStop,
	protocol.MsgTypeCaptureDataRequest,
	protocol.MsgTypePing,
	protocol.MsgTypePong,
	protocol.MsgTypeAck,
	protocol.MsgTypeError,
}

// dispatch handles one complete packet from p.
func (s *Server) dispatch(p *Peer, pkt *protocol.Packet) {
	p.logger.Debug().
		Stringer("type", pkt.Type()).
		Int("fields", pkt.Len()).
		Msg("packet received")

	acked := false
	switch t := pkt.Type(); {
	case t == protocol.MsgTypeHello:
		if name, err := pkt.String("username"); err == nil && name != "" {
			p.nickname = name
			p.logger.Info().Str("nickname", name).Msg("client introduced")
		}
		s.sendPacket(p, protocol.NewAck(t))
		acked = true

	case t == protocol.MsgTypeChat:
		s.relayChat(p, pkt)

	case t == protocol.MsgTypeDisconnect:
		s.disconnect(p)
		return

	case t == protocol.MsgTypeProtocolInfo, t == protocol.MsgTypeCapabilityExchange:
		s.sendPacket(p, protocol.NewProtocolInfo(protocol.ProtocolVersion, SupportedTypes))

	case t == protocol.MsgTypePing:
		ts, _ := pkt.Uint64("timestamp")
		s.sendPacket(p, protocol.NewPong(ts))

	case t == protocol.MsgTypePong, t == protocol.MsgTypeAck:

	case t == protocol.MsgTypeError:
		if info, err := protocol.ParseError(pkt); err == nil {
			p.logger.Warn().Uint32("code", info.Code).Str("message", info.Message).Msg("client reported error")
		}

	case t.IsRemoteRequest():
		s.sendPacket(p, s.remoteCall(p, pkt))

	default:
		p.logger.Debug().Stringer("type", t).Msg("unsupported message type")
		s.sendPacket(p, protocol.NewError(protocol.ErrCodeNotImplemented, "unsupported message type: "+t.String()))
	}

	if pkt.HasFlag(protocol.FlagRequiresAck) && !acked {
		s.sendPacket(p, protocol.NewAck(pkt.Type()))
	}
}

// relayChat completes a chat packet and sends it to every peer.
func (s *Server) relayChat(p *Peer, pkt *protocol.Packet) {
	out := pkt.Clone()
	out.SetFlags(protocol.FlagNone)
	if name, err := out.String("username"); err != nil || name == "" {
		out.SetString("username", p.name())
	}
	if ts, err := out.Uint64("timestamp"); err != nil || ts == 0 {
		out.SetUint64("timestamp", uint64(time.Now().UnixMilli()))
	}
	if !out.Has("message") {
		out.SetString("message", "")
	}

	msg, _ := out.String("message")
	p.logger.Info().Str("text", msg).Msg("chat received")
	if err := s.BroadcastPacket(out, NoExclude); err != nil {
		p.logger.Warn().Err(err).Msg("relay chat")
	}
}

// remoteCall hands a remote control request to the facility.
func (s *Server) remoteCall(p *Peer, req *protocol.Packet) *protocol.Packet {
	if s.facility == nil {
		return protocol.NewError(protocol.ErrCodeNotImplemented, "remote control disabled")
	}
	resp, err := s.facility.Handle(s.ctx, req)
	if err != nil {
		p.logger.Warn().Err(err).Stringer("type", req.Type()).Msg("remote request failed")
		return protocol.NewError(protocol.ErrCodeInternal, err.Error())
	}
	p.logger.Info().
		Stringer("request", req.Type()).
		Stringer("response", resp.Type()).
		Msg("remote request served")
	return resp
}
