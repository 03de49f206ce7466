//go:build unix

// Package socket wraps a raw IPv4 TCP socket handle.
//
// A Socket is owned by a single goroutine; only Shutdown may be called from
// another one to unblock it. Send and Receive keep the return
// convention of the underlying system calls: Send returns the number of bytes
// written or -1, Receive returns a positive count for data, 0 with a nil
// error for an orderly shutdown by the peer, and -1 on failure.
package socket

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync/atomic"
	"time"

	"golang.org/x/sys/unix"
)

var (
	ErrWouldBlock   = errors.New("operation would block")
	ErrNotConnected = errors.New("socket not connected")
	ErrClosed       = errors.New("socket closed")
)

// Socket is one IPv4 stream socket. The zero value is not usable; use New.
type Socket struct {
	fd          int
	ip          [4]byte
	port        int
	nonBlocking bool
	connected   atomic.Bool // written by both directions of a connection
}

// New prepares a socket for ip:port. An empty ip means any address.
// No handle is allocated until Create.
func New(ip string, port int) (*Socket, error) {
	addr, err := parseIPv4(ip)
	if err != nil {
		return nil, err
	}
	if port < 0 || port > 65535 {
		return nil, fmt.Errorf("invalid port %d", port)
	}
	return &Socket{fd: -1, ip: addr, port: port}, nil
}

func parseIPv4(ip string) ([4]byte, error) {
	if ip == "" {
		return [4]byte{}, nil
	}
	parsed := net.ParseIP(ip).To4()
	if parsed == nil {
		return [4]byte{}, fmt.Errorf("invalid IPv4 address %q", ip)
	}
	return [4]byte(parsed), nil
}

// Create allocates the OS handle with SO_REUSEADDR set.
func (s *Socket) Create() error {
	if s.fd != -1 {
		return errors.New("socket already created")
	}
	fd, err := sysSocket()
	if err != nil {
		return fmt.Errorf("socket: %w", err)
	}
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		_ = unix.Close(fd)
		return fmt.Errorf("set SO_REUSEADDR: %w", err)
	}
	s.fd = fd
	return nil
}

// Bind assigns the configured address to the handle.
func (s *Socket) Bind() error {
	if s.fd == -1 {
		return ErrClosed
	}
	if err := unix.Bind(s.fd, s.sockaddr()); err != nil {
		return fmt.Errorf("bind %s: %w", s.Addr(), err)
	}
	return nil
}

func (s *Socket) Listen(backlog int) error {
	if s.fd == -1 {
		return ErrClosed
	}
	if err := unix.Listen(s.fd, backlog); err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	return nil
}

// Accept returns the next pending connection. On a non-blocking socket with
// nothing pending it returns ErrWouldBlock.
func (s *Socket) Accept() (*Socket, error) {
	if s.fd == -1 {
		return nil, ErrClosed
	}
	for {
		nfd, sa, err := sysAccept(s.fd)
		switch {
		case err == nil:
			peer := &Socket{fd: nfd}
			peer.connected.Store(true)
			if in4, ok := sa.(*unix.SockaddrInet4); ok {
				peer.ip = in4.Addr
				peer.port = in4.Port
			}
			return peer, nil
		case errors.Is(err, unix.EINTR):
			continue
		case errors.Is(err, unix.EAGAIN), errors.Is(err, unix.EWOULDBLOCK), errors.Is(err, unix.ECONNABORTED):
			return nil, ErrWouldBlock
		default:
			return nil, fmt.Errorf("accept: %w", err)
		}
	}
}

// Connect opens a connection to the configured address.
func (s *Socket) Connect() error {
	if s.fd == -1 {
		return ErrClosed
	}
	if err := unix.Connect(s.fd, s.sockaddr()); err != nil {
		return fmt.Errorf("connect %s: %w", s.Addr(), err)
	}
	s.connected.Store(true)
	return nil
}

// Send writes b and returns the number of bytes written, which may be less
// than len(b). A broken connection clears the connected flag.
func (s *Socket) Send(b []byte) (int, error) {
	if s.fd == -1 || !s.connected.Load() {
		return -1, ErrNotConnected
	}
	for {
		n, err := unix.Write(s.fd, b)
		switch {
		case err == nil:
			return n, nil
		case errors.Is(err, unix.EINTR):
			continue
		case errors.Is(err, unix.EAGAIN), errors.Is(err, unix.EWOULDBLOCK):
			return -1, ErrWouldBlock
		case errors.Is(err, unix.EPIPE), errors.Is(err, unix.ECONNRESET), errors.Is(err, unix.ENOTCONN):
			s.connected.Store(false)
		}
		return -1, fmt.Errorf("send: %w", err)
	}
}

// SendAll writes all of b, retrying partial writes.
func (s *Socket) SendAll(b []byte) error {
	for len(b) > 0 {
		n, err := s.Send(b)
		if err != nil {
			return err
		}
		b = b[n:]
	}
	return nil
}

// Receive reads into b. See the package documentation for the return convention.
func (s *Socket) Receive(b []byte) (int, error) {
	if s.fd == -1 {
		return -1, ErrClosed
	}
	if len(b) == 0 {
		return -1, errors.New("receive: empty buffer")
	}
	for {
		n, err := unix.Read(s.fd, b)
		switch {
		case err == nil:
			if n == 0 {
				s.connected.Store(false)
			}
			return n, nil
		case errors.Is(err, unix.EINTR):
			continue
		case errors.Is(err, unix.EAGAIN), errors.Is(err, unix.EWOULDBLOCK):
			return -1, ErrWouldBlock
		case errors.Is(err, unix.ECONNRESET), errors.Is(err, unix.ENOTCONN):
			s.connected.Store(false)
		}
		return -1, fmt.Errorf("receive: %w", err)
	}
}

func (s *Socket) SetNonBlocking(nonBlocking bool) error {
	if s.fd == -1 {
		return ErrClosed
	}
	if err := unix.SetNonblock(s.fd, nonBlocking); err != nil {
		return fmt.Errorf("set non-blocking: %w", err)
	}
	s.nonBlocking = nonBlocking
	return nil
}

func (s *Socket) NonBlocking() bool { return s.nonBlocking }

// ReadyToRead reports whether a read would not block right now.
func (s *Socket) ReadyToRead() bool {
	ok, _ := s.wait(unix.POLLIN, 0)
	return ok
}

// ReadyToWrite reports whether a write would not block right now.
func (s *Socket) ReadyToWrite() bool {
	ok, _ := s.wait(unix.POLLOUT, 0)
	return ok
}

// WaitReadable blocks until the socket is readable or timeout elapses.
// A negative timeout waits forever.
func (s *Socket) WaitReadable(timeout time.Duration) (bool, error) {
	return s.wait(unix.POLLIN, timeout)
}

func (s *Socket) wait(events int16, timeout time.Duration) (bool, error) {
	if s.fd == -1 {
		return false, ErrClosed
	}
	fds := []unix.PollFd{{Fd: int32(s.fd), Events: events}}
	n, err := poll(fds, timeout)
	if err != nil || n == 0 {
		return false, err
	}
	// Hangups and errors count as ready: the next call reports them.
	return fds[0].Revents&(events|unix.POLLHUP|unix.POLLERR) != 0, nil
}

func (s *Socket) Fd() int         { return s.fd }
func (s *Socket) Valid() bool     { return s.fd != -1 }
func (s *Socket) Connected() bool { return s.connected.Load() }
func (s *Socket) Port() int       { return s.port }

func (s *Socket) IP() string {
	return net.IP(s.ip[:]).String()
}

// Addr returns "ip:port" of the configured or peer address.
func (s *Socket) Addr() string {
	return net.JoinHostPort(s.IP(), strconv.Itoa(s.port))
}

// LocalAddr returns the bound address, resolving an ephemeral port.
func (s *Socket) LocalAddr() (string, error) {
	if s.fd == -1 {
		return "", ErrClosed
	}
	sa, err := unix.Getsockname(s.fd)
	if err != nil {
		return "", fmt.Errorf("getsockname: %w", err)
	}
	in4, ok := sa.(*unix.SockaddrInet4)
	if !ok {
		return "", fmt.Errorf("unexpected address family %T", sa)
	}
	return net.JoinHostPort(net.IP(in4.Addr[:]).String(), strconv.Itoa(in4.Port)), nil
}

// Shutdown disables further sends and receives without releasing the handle.
// A goroutine blocked in Receive returns with an orderly close.
func (s *Socket) Shutdown() error {
	if s.fd == -1 {
		return ErrClosed
	}
	if err := unix.Shutdown(s.fd, unix.SHUT_RDWR); err != nil && !errors.Is(err, unix.ENOTCONN) {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// Close releases the handle. Closing twice is a no-op.
func (s *Socket) Close() error {
	if s.fd == -1 {
		return nil
	}
	err := unix.Close(s.fd)
	s.fd = -1
	s.connected.Store(false)
	if err != nil {
		return fmt.Errorf("close: %w", err)
	}
	return nil
}

func (s *Socket) sockaddr() *unix.SockaddrInet4 {
	return &unix.SockaddrInet4{Port: s.port, Addr: s.ip}
}
