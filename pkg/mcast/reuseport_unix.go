//go:build !windows

package mcast

import (
	"syscall"

	"golang.org/x/sys/unix"
)

// reuseAddrAndPort enables SO_REUSEADDR and SO_REUSEPORT on the socket
// before bind, so coexistence with other SSDP users on the host (and with
// a second instance of this process) is possible.
func reuseAddrAndPort(_, _ string, c syscall.RawConn) error {
	var sockErr error
	err := c.Control(func(fd uintptr) {
		if sockErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); sockErr != nil {
			return
		}
		sockErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEPORT, 1)
	})
	if err != nil {
		return err
	}
	return sockErr
}
