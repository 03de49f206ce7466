//go:build unix

package socket

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// Options are per-connection socket tunables. Zero values keep the OS defaults.
type Options struct {
	RecvBuffer int
	SendBuffer int
	NoDelay    bool
}

// SetOptions applies o to the handle.
func (s *Socket) SetOptions(o Options) error {
	if s.fd == -1 {
		return ErrClosed
	}
	if o.RecvBuffer > 0 {
		if err := unix.SetsockoptInt(s.fd, unix.SOL_SOCKET, unix.SO_RCVBUF, o.RecvBuffer); err != nil {
			return fmt.Errorf("set SO_RCVBUF: %w", err)
		}
	}
	if o.SendBuffer > 0 {
		if err := unix.SetsockoptInt(s.fd, unix.SOL_SOCKET, unix.SO_SNDBUF, o.SendBuffer); err != nil {
			return fmt.Errorf("set SO_SNDBUF: %w", err)
		}
	}
	if o.NoDelay {
		if err := unix.SetsockoptInt(s.fd, unix.IPPROTO_TCP, unix.TCP_NODELAY, 1); err != nil {
			return fmt.Errorf("set TCP_NODELAY: %w", err)
		}
	}
	return nil
}
