package server

import (
	"context"
	"testing"

	"github.com/Mmx233/lptf/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type facilityFunc func(ctx context.Context, req *protocol.Packet) (*protocol.Packet, error)

func (f facilityFunc) Handle(ctx context.Context, req *protocol.Packet) (*protocol.Packet, error) {
	return f(ctx, req)
}

// deliver feeds pkt to the server as if c had written it.
func deliver(t *testing.T, s *Server, c *mockConn, pkt *protocol.Packet) {
	t.Helper()
	s.handleData(peerOf(t, s, c), encode(t, pkt))
}

func onlyPacket(t *testing.T, c *mockConn) *protocol.Packet {
	t.Helper()
	got := c.takePackets(t)
	require.Len(t, got, 1)
	return got[0]
}

func errorCode(t *testing.T, pkt *protocol.Packet) uint32 {
	t.Helper()
	info, err := protocol.ParseError(pkt)
	require.NoError(t, err)
	return info.Code
}

func TestDispatch_Chat(t *testing.T) {
	s := newTestServer(t, nil)
	conns := join(t, s, 4, 5)

	deliver(t, s, conns[0], protocol.NewChat("alice", "hi all", 1690000000000))

	for _, c := range conns {
		chat, err := protocol.ParseChat(onlyPacket(t, c))
		require.NoError(t, err)
		assert.Equal(t, protocol.Chat{Username: "alice", Message: "hi all", Timestamp: 1690000000000}, chat)
	}
}

func TestDispatch_ChatFillsMissingFields(t *testing.T) {
	s := newTestServer(t, nil)
	c := join(t, s, 4)[0]

	pkt := protocol.NewPacket(protocol.MsgTypeChat)
	pkt.SetString("message", "anon")
	deliver(t, s, c, pkt)

	chat, err := protocol.ParseChat(onlyPacket(t, c))
	require.NoError(t, err)
	assert.Equal(t, c.addr, chat.Username)
	assert.Equal(t, "anon", chat.Message)
	assert.NotZero(t, chat.Timestamp)
}

func TestDispatch_HelloSetsNickname(t *testing.T) {
	s := newTestServer(t, nil)
	c := join(t, s, 4)[0]

	deliver(t, s, c, protocol.NewHello("bob"))
	ack := onlyPacket(t, c)
	require.Equal(t, protocol.MsgTypeAck, ack.Type())
	of, err := ack.Uint16("ack_type")
	require.NoError(t, err)
	assert.Equal(t, uint16(protocol.MsgTypeHello), of)
	assert.Equal(t, "bob", peerOf(t, s, c).Nickname())

	pkt := protocol.NewPacket(protocol.MsgTypeChat)
	pkt.SetString("message", "named")
	deliver(t, s, c, pkt)
	chat, err := protocol.ParseChat(onlyPacket(t, c))
	require.NoError(t, err)
	assert.Equal(t, "bob", chat.Username)
}

func TestDispatch_HelloWithAckFlagAcksOnce(t *testing.T) {
	s := newTestServer(t, nil)
	c := join(t, s, 4)[0]

	hello := protocol.NewHello("bob")
	hello.AddFlag(protocol.FlagRequiresAck)
	deliver(t, s, c, hello)
	assert.Equal(t, protocol.MsgTypeAck, onlyPacket(t, c).Type())
}

func TestDispatch_RequiresAck(t *testing.T) {
	s := newTestServer(t, nil)
	conns := join(t, s, 4, 5)

	chat := protocol.NewChat("alice", "ack me", 1)
	chat.AddFlag(protocol.FlagRequiresAck)
	deliver(t, s, conns[0], chat)

	got := conns[0].takePackets(t)
	require.Len(t, got, 2)
	assert.Equal(t, protocol.MsgTypeChat, got[0].Type())
	assert.Equal(t, protocol.FlagNone, got[0].Flags(), "relayed copy drops request flags")
	assert.Equal(t, protocol.MsgTypeAck, got[1].Type())

	other := onlyPacket(t, conns[1])
	assert.Equal(t, protocol.MsgTypeChat, other.Type())
}

func TestDispatch_ProtocolInfo(t *testing.T) {
	for _, typ := range []protocol.MessageType{protocol.MsgTypeProtocolInfo, protocol.MsgTypeCapabilityExchange} {
		t.Run(typ.String(), func(t *testing.T) {
			s := newTestServer(t, nil)
			c := join(t, s, 4)[0]

			deliver(t, s, c, protocol.NewPacket(typ))
			info, err := protocol.ParseProtocolInfo(onlyPacket(t, c))
			require.NoError(t, err)
			assert.Equal(t, protocol.ProtocolVersion, info.Version)
			assert.Equal(t, "LPTF", info.Name)
			assert.Equal(t, SupportedTypes, info.Supported)
			assert.True(t, info.Supports(protocol.MsgTypeChat))
			assert.False(t, info.Supports(protocol.MsgTypeFileTransfer))
		})
	}
}

func TestDispatch_Ping(t *testing.T) {
	s := newTestServer(t, nil)
	c := join(t, s, 4)[0]

	deliver(t, s, c, protocol.NewPing(123456))
	pong := onlyPacket(t, c)
	assert.Equal(t, protocol.MsgTypePong, pong.Type())
	ts, err := pong.Uint64("timestamp")
	require.NoError(t, err)
	assert.EqualValues(t, 123456, ts)
}

func TestDispatch_SilentTypes(t *testing.T) {
	s := newTestServer(t, nil)
	c := join(t, s, 4)[0]

	deliver(t, s, c, protocol.NewPong(1))
	deliver(t, s, c, protocol.NewAck(protocol.MsgTypeChat))
	deliver(t, s, c, protocol.NewError(protocol.ErrCodeBadRequest, "client side"))
	assert.Empty(t, c.take())
}

func TestDispatch_Unsupported(t *testing.T) {
	for _, typ := range []protocol.MessageType{protocol.MsgTypeFileTransfer, protocol.MsgTypeHostInfoResponse, 0x4242} {
		t.Run(typ.String(), func(t *testing.T) {
			s := newTestServer(t, nil)
			c := join(t, s, 4)[0]

			deliver(t, s, c, protocol.NewPacket(typ))
			reply := onlyPacket(t, c)
			assert.Equal(t, protocol.ErrCodeNotImplemented, errorCode(t, reply))
		})
	}
}

func TestDispatch_Disconnect(t *testing.T) {
	s := newTestServer(t, nil)
	conns := join(t, s, 4, 5)

	deliver(t, s, conns[0], protocol.NewDisconnect("bye"))

	assert.True(t, conns[0].isClosed())
	assert.Equal(t, "Client disconnected: "+conns[0].addr, conns[1].takeText())
	assert.Equal(t, 1, s.ClientCount())
}

func TestDispatch_DisconnectStopsDraining(t *testing.T) {
	s := newTestServer(t, nil)
	conns := join(t, s, 4, 5)

	data := append(encode(t, protocol.NewDisconnect("")), encode(t, protocol.NewChat("x", "late", 1))...)
	s.handleData(peerOf(t, s, conns[0]), data)

	assert.Equal(t, "Client disconnected: "+conns[0].addr, conns[1].takeText())
}

func TestDispatch_Remote(t *testing.T) {
	t.Run("no facility", func(t *testing.T) {
		s := newTestServer(t, nil)
		c := join(t, s, 4)[0]

		deliver(t, s, c, protocol.NewPacket(protocol.MsgTypeHostInfoRequest))
		assert.Equal(t, protocol.ErrCodeNotImplemented, errorCode(t, onlyPacket(t, c)))
	})

	t.Run("served", func(t *testing.T) {
		s := newTestServer(t, nil)
		var seen protocol.MessageType
		s.facility = facilityFunc(func(_ context.Context, req *protocol.Packet) (*protocol.Packet, error) {
			seen = req.Type()
			resp := protocol.NewPacket(protocol.MsgTypeHostInfoResponse)
			resp.SetString("hostname", "box")
			return resp, nil
		})
		conns := join(t, s, 4, 5)

		deliver(t, s, conns[0], protocol.NewPacket(protocol.MsgTypeHostInfoRequest))
		assert.Equal(t, protocol.MsgTypeHostInfoRequest, seen)

		resp := onlyPacket(t, conns[0])
		assert.Equal(t, protocol.MsgTypeHostInfoResponse, resp.Type())
		host, err := resp.String("hostname")
		require.NoError(t, err)
		assert.Equal(t, "box", host)
		assert.Empty(t, conns[1].take(), "responses go to the requester only")
	})

	t.Run("failure", func(t *testing.T) {
		s := newTestServer(t, nil)
		s.facility = facilityFunc(func(context.Context, *protocol.Packet) (*protocol.Packet, error) {
			return nil, errBoom
		})
		c := join(t, s, 4)[0]

		deliver(t, s, c, protocol.NewPacket(protocol.MsgTypeProcessListRequest))
		reply := onlyPacket(t, c)
		info, err := protocol.ParseError(reply)
		require.NoError(t, err)
		assert.Equal(t, protocol.ErrCodeInternal, info.Code)
		assert.Equal(t, "boom", info.Message)
	})
}
