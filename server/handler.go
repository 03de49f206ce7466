package server

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/Mmx233/lptf/config"
	"github.com/Mmx233/lptf/protocol"
	"github.com/Mmx233/lptf/socket"
)

const readableEvents = socket.PollIn | socket.PollHup | socket.PollErr | socket.PollNval

// poll runs one iteration of the event loop.
func (s *Server) poll() error {
	s.polls.Reset()

	// A full registry under the silent policy leaves connections in the
	// backlog; watching the listener then would wake the loop forever.
	watchListener := !(s.registry.Full() && s.config.FullPolicy == config.FullPolicySilent)
	if watchListener {
		s.polls.Add(s.listener.Fd(), socket.PollIn)
	}
	peers := s.registry.List()
	for _, p := range peers {
		s.polls.Add(p.fd, socket.PollIn)
	}

	n, err := s.polls.Wait(s.config.PollTimeout)
	if err != nil {
		return err
	}
	if n == 0 {
		return nil
	}

	offset := 0
	if watchListener {
		if s.polls.Revents(0)&socket.PollIn != 0 {
			s.acceptPeer()
		}
		offset = 1
	}
	for i, p := range peers {
		if s.polls.Revents(offset+i)&readableEvents == 0 {
			continue
		}
		// An earlier peer in this round may have caused its removal.
		if cur, ok := s.registry.Get(p.fd); !ok || cur != p {
			continue
		}
		s.handleReadable(p)
	}

	s.sweep()
	return nil
}

func (s *Server) acceptPeer() {
	if s.registry.Full() {
		s.refuse()
		return
	}

	conn, err := s.listener.Accept()
	if err != nil {
		if !errors.Is(err, socket.ErrWouldBlock) {
			s.logger.Error().Err(err).Msg("accept failed")
		}
		return
	}
	if err := conn.SetNonBlocking(true); err != nil {
		s.logger.Error().Err(err).Str("remote", conn.Addr()).Msg("configure peer socket")
		_ = conn.Close()
		return
	}
	if err := conn.SetOptions(socket.Options{
		RecvBuffer: s.config.Socket.RecvBuffer,
		SendBuffer: s.config.Socket.SendBuffer,
		NoDelay:    s.config.Socket.NoDelay,
	}); err != nil {
		s.logger.Warn().Err(err).Str("remote", conn.Addr()).Msg("set peer socket options")
	}

	if _, err := s.register(conn); err != nil {
		s.logger.Error().Err(err).Str("remote", conn.Addr()).Msg("register peer")
		_ = conn.Close()
	}
}

// register adds an accepted connection, greets it and announces it to the others.
func (s *Server) register(conn Conn) (*Peer, error) {
	p := newPeer(conn, s.config.RateLimit, s.logger)
	if err := s.registry.Add(p); err != nil {
		return nil, err
	}
	p.logger.Info().Int("clients", s.registry.Count()).Msg("client connected")

	s.send(p, []byte(s.config.WelcomeMessage))
	s.Broadcast("New client connected: "+p.display, p.fd)
	return p, nil
}

// refuse applies the full policy to a pending connection.
func (s *Server) refuse() {
	if s.config.FullPolicy != config.FullPolicyReject {
		s.logger.Debug().Int("clients", s.registry.Count()).Msg("registry full, leaving connection pending")
		return
	}

	conn, err := s.listener.Accept()
	if err != nil {
		return
	}
	defer conn.Close()

	data, err := protocol.Encode(protocol.NewError(protocol.ErrCodeUnavailable, "server full"))
	if err == nil {
		_, err = conn.Send(data)
	}
	s.logger.Warn().
		Err(err).
		Str("remote", conn.Addr()).
		Int("max_clients", s.registry.Capacity()).
		Msg("connection rejected, server full")
}

// handleReadable performs a single read from a ready peer.
func (s *Server) handleReadable(p *Peer) {
	n, err := p.conn.Receive(s.readBuf)
	switch {
	case n > 0:
		s.handleData(p, s.readBuf[:n])
	case n == 0 && err == nil:
		s.disconnect(p)
	case errors.Is(err, socket.ErrWouldBlock):
	default:
		// The sweep drops the peer once its handle is gone.
		p.logger.Warn().Err(err).Msg("receive failed")
		_ = p.conn.Close()
	}
}

// handleData routes one chunk read from p. A chunk opens a packet when it
// begins with the magic and a supported version. Otherwise it is text, up to
// the first complete packet it may carry.
func (s *Server) handleData(p *Peer, data []byte) {
	if len(p.pending) == 0 {
		if packet, _ := protocol.SniffPacket(data); !packet {
			n := protocol.TextPrefix(data)
			s.handleText(p, data[:n])
			if n == len(data) {
				return
			}
			data = data[n:]
		}
	}
	p.pending = append(p.pending, data...)
	s.drainPackets(p)
}

func (s *Server) handleText(p *Peer, data []byte) {
	if !p.allow() {
		p.logger.Warn().Int("bytes", len(data)).Msg("rate limit exceeded, message dropped")
		return
	}
	text := strings.ToValidUTF8(string(data), "\uFFFD")
	p.logger.Info().Str("text", strings.TrimRight(text, "\r\n")).Msg("message received")
	s.Broadcast(fmt.Sprintf("[%s]: %s", p.display, text), NoExclude)
}

// drainPackets dispatches every complete packet buffered for p. Bytes left
// after a packet that do not start another one are handled as text.
func (s *Server) drainPackets(p *Peer) {
	for len(p.pending) > 0 {
		packet, more := protocol.SniffPacket(p.pending)
		if more {
			return
		}
		if !packet {
			n := protocol.TextPrefix(p.pending)
			text := bytes.Clone(p.pending[:n])
			p.pending = append(p.pending[:0], p.pending[n:]...)
			s.handleText(p, text)
			continue
		}

		size, err := protocol.FrameLength(p.pending)
		if errors.Is(err, protocol.ErrShortBuffer) {
			return
		}
		if err != nil {
			p.logger.Debug().Err(err).Int("bytes", len(p.pending)).Msg("dropping malformed input")
			p.pending = nil
			return
		}
		if len(p.pending) < size {
			return
		}

		pkt, _, err := protocol.DecodePrefix(p.pending[:size])
		p.pending = append(p.pending[:0], p.pending[size:]...)
		if err != nil {
			p.logger.Debug().Err(err).Msg("dropping malformed packet")
			continue
		}
		if !p.allow() {
			p.logger.Warn().Stringer("type", pkt.Type()).Msg("rate limit exceeded, packet dropped")
			continue
		}

		s.dispatch(p, pkt)
		if cur, ok := s.registry.Get(p.fd); !ok || cur != p {
			return
		}
	}
	if len(p.pending) == 0 {
		p.pending = nil
	}
}

// Broadcast sends text to every registered peer with a valid handle except
// the one registered under exclude. Use NoExclude to reach everyone.
func (s *Server) Broadcast(text string, exclude int) {
	s.broadcast([]byte(text), exclude)
}

// BroadcastPacket sends an encoded packet with the same delivery rules as Broadcast.
func (s *Server) BroadcastPacket(pkt *protocol.Packet, exclude int) error {
	data, err := protocol.Encode(pkt)
	if err != nil {
		return fmt.Errorf("encode packet: %w", err)
	}
	s.broadcast(data, exclude)
	return nil
}

func (s *Server) broadcast(data []byte, exclude int) {
	for _, p := range s.registry.List() {
		if p.fd == exclude || !p.conn.Valid() {
			continue
		}
		s.send(p, data)
	}
}

// send writes data to p without blocking the loop. A delivery the kernel
// cannot take at all is dropped; one cut short after a partial write would
// leave the peer's stream mid-message, so the connection is closed and the
// sweep drops it.
func (s *Server) send(p *Peer, data []byte) {
	written := 0
	for written < len(data) {
		n, err := p.conn.Send(data[written:])
		if err != nil {
			switch {
			case !errors.Is(err, socket.ErrWouldBlock):
				p.logger.Warn().Err(err).Msg("send failed")
			case written == 0:
				p.logger.Warn().Int("bytes", len(data)).Msg("send buffer full, delivery dropped")
			default:
				p.logger.Warn().
					Int("written", written).
					Int("bytes", len(data)).
					Msg("send buffer full mid message, closing connection")
				_ = p.conn.Close()
			}
			return
		}
		written += n
	}
}

func (s *Server) sendPacket(p *Peer, pkt *protocol.Packet) {
	data, err := protocol.Encode(pkt)
	if err != nil {
		p.logger.Error().Err(err).Stringer("type", pkt.Type()).Msg("encode reply")
		return
	}
	s.send(p, data)
}

// disconnect announces the departure of p to the others, then drops it.
func (s *Server) disconnect(p *Peer) {
	s.Broadcast("Client disconnected: "+p.display, p.fd)
	s.remove(p)
	p.logger.Info().Int("clients", s.registry.Count()).Msg("client disconnected")
}

func (s *Server) remove(p *Peer) {
	s.registry.Remove(p.fd)
	if err := p.conn.Close(); err != nil {
		p.logger.Debug().Err(err).Msg("close peer")
	}
}

// sweep drops peers whose handle is closed or whose connection broke.
func (s *Server) sweep() {
	for _, p := range s.registry.List() {
		if p.conn.Valid() && p.conn.Connected() {
			continue
		}
		p.logger.Info().Msg("dropping dead connection")
		s.remove(p)
	}
}
