package server

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"sync"
	"testing"

	"github.com/Mmx233/lptf/config"
	"github.com/Mmx233/lptf/protocol"
	"github.com/Mmx233/lptf/socket"
	"github.com/stretchr/testify/require"
)

// mockConn is an in-memory Conn recording everything sent to it.
type mockConn struct {
	fd   int
	addr string

	mu        sync.Mutex
	sent      bytes.Buffer
	inbox     [][]byte
	recvErr   error
	sendErr   error
	limited   bool // accept at most room more bytes, then would block
	room      int
	closed    bool
	connected bool
}

func newMockConn(fd int) *mockConn {
	return &mockConn{
		fd:        fd,
		addr:      fmt.Sprintf("10.0.0.%d:%d", fd, 40000+fd),
		connected: true,
	}
}

func (m *mockConn) Fd() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return -1
	}
	return m.fd
}

func (m *mockConn) Addr() string { return m.addr }

func (m *mockConn) Send(b []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return -1, socket.ErrClosed
	}
	if m.sendErr != nil {
		return -1, m.sendErr
	}
	if m.limited {
		if m.room == 0 {
			return -1, socket.ErrWouldBlock
		}
		b = b[:min(len(b), m.room)]
		m.room -= len(b)
	}
	return m.sent.Write(b)
}

// limitSend makes the kernel buffer take only room more bytes.
func (m *mockConn) limitSend(room int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.limited = true
	m.room = room
}

// Receive pops one queued chunk. An empty queue reads as an orderly close.
func (m *mockConn) Receive(b []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return -1, socket.ErrClosed
	}
	if m.recvErr != nil {
		return -1, m.recvErr
	}
	if len(m.inbox) == 0 {
		m.connected = false
		return 0, nil
	}
	n := copy(b, m.inbox[0])
	if n == len(m.inbox[0]) {
		m.inbox = m.inbox[1:]
	} else {
		m.inbox[0] = m.inbox[0][n:]
	}
	return n, nil
}

func (m *mockConn) Valid() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return !m.closed
}

func (m *mockConn) Connected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected && !m.closed
}

func (m *mockConn) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	m.connected = false
	return nil
}

func (m *mockConn) queue(chunks ...[]byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inbox = append(m.inbox, chunks...)
}

func (m *mockConn) breakLink() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connected = false
}

func (m *mockConn) isClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// take returns and clears everything sent so far.
func (m *mockConn) take() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := bytes.Clone(m.sent.Bytes())
	m.sent.Reset()
	return out
}

func (m *mockConn) takeText() string { return string(m.take()) }

// takePackets decodes everything sent so far as a sequence of packets.
func (m *mockConn) takePackets(t *testing.T) []*protocol.Packet {
	t.Helper()
	data := m.take()
	var out []*protocol.Packet
	for len(data) > 0 {
		p, n, err := protocol.DecodePrefix(data)
		require.NoError(t, err)
		out = append(out, p)
		data = data[n:]
	}
	return out
}

func newTestServer(t *testing.T, mutate func(*config.Server)) *Server {
	t.Helper()
	conf := &config.Server{
		Listen:     config.Listen{IP: "127.0.0.1"},
		MaxClients: 3,
	}
	if mutate != nil {
		mutate(conf)
	}
	s := New(conf, nil)
	t.Cleanup(s.Stop)
	return s
}

// join registers fresh mock connections and discards the greeting traffic.
func join(t *testing.T, s *Server, fds ...int) []*mockConn {
	t.Helper()
	conns := make([]*mockConn, len(fds))
	for i, fd := range fds {
		conns[i] = newMockConn(fd)
		_, err := s.register(conns[i])
		require.NoError(t, err)
	}
	for _, c := range conns {
		c.take()
	}
	return conns
}

func peerOf(t *testing.T, s *Server, c *mockConn) *Peer {
	t.Helper()
	p, ok := s.registry.Get(c.fd)
	require.True(t, ok, "fd %d not registered", c.fd)
	return p
}

func encode(t *testing.T, p *protocol.Packet) []byte {
	t.Helper()
	data, err := protocol.Encode(p)
	require.NoError(t, err)
	return data
}

var errBoom = errors.New("boom")

func mustAtoi(t *testing.T, s string) int {
	t.Helper()
	n, err := strconv.Atoi(s)
	require.NoError(t, err)
	return n
}

// readAll drains c until EOF.
func readAll(c net.Conn) ([]byte, error) {
	return io.ReadAll(c)
}
