//go:build unix && !(linux || freebsd || netbsd || openbsd || dragonfly)

package socket

import (
	"syscall"

	"golang.org/x/sys/unix"
)

// Without SOCK_CLOEXEC the flag is set under ForkLock so no child inherits
// the handle in between.

func sysSocket() (int, error) {
	syscall.ForkLock.RLock()
	defer syscall.ForkLock.RUnlock()
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM, unix.IPPROTO_TCP)
	if err != nil {
		return -1, err
	}
	unix.CloseOnExec(fd)
	return fd, nil
}

func sysAccept(fd int) (int, unix.Sockaddr, error) {
	syscall.ForkLock.RLock()
	defer syscall.ForkLock.RUnlock()
	nfd, sa, err := unix.Accept(fd)
	if err != nil {
		return -1, nil, err
	}
	unix.CloseOnExec(nfd)
	return nfd, sa, nil
}
