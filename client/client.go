//go:build unix

package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/Mmx233/lptf/config"
	"github.com/Mmx233/lptf/protocol"
	"github.com/Mmx233/lptf/socket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	ErrTimeout      = errors.New("receive timed out")
	ErrNotConnected = errors.New("client not connected")
)

// Message is one unit received from the server: either a decoded packet or
// a chunk of plain text.
type Message struct {
	Packet *protocol.Packet
	Text   string
}

func (m Message) IsPacket() bool { return m.Packet != nil }

// Client is a blocking LPTF client. Sends may run concurrently with a single
// goroutine calling Receive.
type Client struct {
	config *config.Client
	logger zerolog.Logger

	sendMu sync.Mutex
	sock   *socket.Socket

	// owned by the receiving goroutine
	buf     []byte
	pending []byte
	backlog []Message
}

// New creates a client. The connection is opened by Connect.
func New(conf *config.Client) (*Client, error) {
	// Apply defaults to ensure all required fields have values
	conf.ApplyDefaults()
	if err := conf.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Client{
		config: conf,
		logger: log.With().
			Str("com", "client").
			Str("username", conf.Username).
			Logger(),
		buf: make([]byte, conf.ReadBufferSize),
	}, nil
}

func (c *Client) Username() string { return c.config.Username }

// Connect resolves the server address and opens the connection.
func (c *Client) Connect(ctx context.Context) error {
	host, portStr, err := net.SplitHostPort(c.config.Server)
	if err != nil {
		return fmt.Errorf("parse server address: %w", err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return fmt.Errorf("parse server port: %w", err)
	}
	ip, err := resolveIPv4(ctx, host)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", host, err)
	}

	sock, err := socket.New(ip, port)
	if err != nil {
		return err
	}
	if err := sock.Create(); err != nil {
		return fmt.Errorf("create socket: %w", err)
	}
	if err := sock.Connect(); err != nil {
		_ = sock.Close()
		return err
	}

	c.sendMu.Lock()
	c.sock = sock
	c.sendMu.Unlock()
	c.logger.Info().Str("server", sock.Addr()).Msg("connected")
	return nil
}

func resolveIPv4(ctx context.Context, host string) (string, error) {
	if ip := net.ParseIP(host).To4(); ip != nil {
		return ip.String(), nil
	}
	ips, err := net.DefaultResolver.LookupIP(ctx, "ip4", host)
	if err != nil {
		return "", err
	}
	if len(ips) == 0 {
		return "", fmt.Errorf("no ipv4 address for %s", host)
	}
	return ips[0].String(), nil
}

// SendText writes raw text. The server broadcasts it to every client.
func (c *Client) SendText(text string) error {
	return c.send([]byte(text))
}

func (c *Client) SendPacket(p *protocol.Packet) error {
	data, err := protocol.Encode(p)
	if err != nil {
		return fmt.Errorf("encode packet: %w", err)
	}
	return c.send(data)
}

// Chat sends a chat packet from this client's username.
func (c *Client) Chat(message string) error {
	return c.SendPacket(protocol.NewChat(c.config.Username, message, uint64(time.Now().UnixMilli())))
}

// Hello announces the username to the server.
func (c *Client) Hello() error {
	return c.SendPacket(protocol.NewHello(c.config.Username))
}

func (c *Client) send(data []byte) error {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.sock == nil {
		return ErrNotConnected
	}
	if err := c.sock.SendAll(data); err != nil {
		return err
	}
	return nil
}

// Request sends p and waits for the first packet that is not a chat relay.
// Text and chat messages received meanwhile are returned by later Receive
// calls. It must not run concurrently with Receive.
func (c *Client) Request(p *protocol.Packet) (*protocol.Packet, error) {
	if err := c.SendPacket(p); err != nil {
		return nil, err
	}
	var held []Message
	defer func() { c.backlog = append(c.backlog, held...) }()

	for {
		msg, err := c.receive()
		if err != nil {
			return nil, err
		}
		if msg.IsPacket() && msg.Packet.Type() != protocol.MsgTypeChat {
			return msg.Packet, nil
		}
		held = append(held, msg)
	}
}

// Receive returns the next message from the server. It returns io.EOF once
// the server closed the connection and ErrTimeout when the configured
// receive timeout elapses.
func (c *Client) Receive() (Message, error) {
	if len(c.backlog) > 0 {
		msg := c.backlog[0]
		c.backlog = c.backlog[1:]
		return msg, nil
	}
	return c.receive()
}

func (c *Client) receive() (Message, error) {
	if c.sock == nil {
		return Message{}, ErrNotConnected
	}
	for {
		if msg, ok := c.nextMessage(); ok {
			return msg, nil
		}

		if c.config.ReceiveTimeout > 0 {
			ready, err := c.sock.WaitReadable(c.config.ReceiveTimeout)
			if err != nil {
				return Message{}, err
			}
			if !ready {
				return Message{}, ErrTimeout
			}
		}
		n, err := c.sock.Receive(c.buf)
		if err != nil {
			return Message{}, err
		}
		if n == 0 {
			return Message{}, io.EOF
		}

		data := c.buf[:n]
		if len(c.pending) == 0 {
			if packet, _ := protocol.SniffPacket(data); !packet {
				n := protocol.TextPrefix(data)
				c.pending = append(c.pending, data[n:]...)
				return Message{Text: string(data[:n])}, nil
			}
		}
		c.pending = append(c.pending, data...)
	}
}

// nextMessage takes the first complete message buffered in pending. Bytes
// that do not start a packet come back as text.
func (c *Client) nextMessage() (Message, bool) {
	for len(c.pending) > 0 {
		packet, more := protocol.SniffPacket(c.pending)
		if more {
			return Message{}, false
		}
		if !packet {
			n := protocol.TextPrefix(c.pending)
			text := string(c.pending[:n])
			c.pending = append(c.pending[:0], c.pending[n:]...)
			if len(c.pending) == 0 {
				c.pending = nil
			}
			return Message{Text: text}, true
		}

		size, err := protocol.FrameLength(c.pending)
		if errors.Is(err, protocol.ErrShortBuffer) {
			return Message{}, false
		}
		if err != nil {
			c.logger.Debug().Err(err).Int("bytes", len(c.pending)).Msg("dropping malformed input")
			c.pending = nil
			return Message{}, false
		}
		if len(c.pending) < size {
			return Message{}, false
		}

		pkt, _, err := protocol.DecodePrefix(c.pending[:size])
		c.pending = append(c.pending[:0], c.pending[size:]...)
		if err != nil {
			c.logger.Debug().Err(err).Msg("dropping malformed packet")
			continue
		}
		return Message{Packet: pkt}, true
	}
	return Message{}, false
}

// Disconnect tells the server this client is leaving.
func (c *Client) Disconnect(reason string) error {
	return c.SendPacket(protocol.NewDisconnect(reason))
}

// Shutdown unblocks a goroutine waiting in Receive. Close must still be called.
func (c *Client) Shutdown() error {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.sock == nil {
		return nil
	}
	return c.sock.Shutdown()
}

// Close releases the connection. Closing twice is a no-op.
func (c *Client) Close() error {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.sock == nil {
		return nil
	}
	err := c.sock.Close()
	c.sock = nil
	c.logger.Debug().Msg("connection closed")
	return err
}

// String describes a message for display.
func (m Message) String() string {
	if m.Packet == nil {
		return strings.TrimRight(m.Text, "\r\n")
	}
	return m.Packet.Dump()
}
