//go:build unix

package socket

import (
	"errors"
	"fmt"
	"time"

	"golang.org/x/sys/unix"
)

// Poll event bits.
const (
	PollIn   = unix.POLLIN
	PollOut  = unix.POLLOUT
	PollErr  = unix.POLLERR
	PollHup  = unix.POLLHUP
	PollNval = unix.POLLNVAL
)

// PollSet is a reusable set of handles for one readiness wait.
type PollSet struct {
	fds []unix.PollFd
}

// Reset empties the set, keeping its storage.
func (p *PollSet) Reset() {
	p.fds = p.fds[:0]
}

// Add registers fd for events and returns its index in the set.
func (p *PollSet) Add(fd int, events int16) int {
	p.fds = append(p.fds, unix.PollFd{Fd: int32(fd), Events: events})
	return len(p.fds) - 1
}

func (p *PollSet) Len() int { return len(p.fds) }

// Revents returns the events reported for the handle at index i by the last Wait.
func (p *PollSet) Revents(i int) int16 {
	return p.fds[i].Revents
}

// Wait blocks until a handle is ready or timeout elapses and returns the
// number of ready handles. A negative timeout waits forever.
func (p *PollSet) Wait(timeout time.Duration) (int, error) {
	for i := range p.fds {
		p.fds[i].Revents = 0
	}
	return poll(p.fds, timeout)
}

// poll wraps unix.Poll. An interrupted wait reports zero ready handles.
func poll(fds []unix.PollFd, timeout time.Duration) (int, error) {
	ms := -1
	if timeout >= 0 {
		ms = int(timeout / time.Millisecond)
	}
	n, err := unix.Poll(fds, ms)
	if err != nil {
		if errors.Is(err, unix.EINTR) {
			return 0, nil
		}
		return 0, fmt.Errorf("poll: %w", err)
	}
	return n, nil
}
