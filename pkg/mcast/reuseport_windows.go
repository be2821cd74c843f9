//go:build windows

package mcast

import (
	"syscall"

	"golang.org/x/sys/windows"
)

// reuseAddrAndPort enables SO_REUSEADDR on the socket before bind.
// SO_REUSEPORT has no Windows equivalent; SO_REUSEADDR alone is what lets
// multiple SSDP listeners coexist on the same host on this platform.
func reuseAddrAndPort(_, _ string, c syscall.RawConn) error {
	var sockErr error
	err := c.Control(func(fd uintptr) {
		sockErr = windows.SetsockoptInt(windows.Handle(fd), windows.SOL_SOCKET, windows.SO_REUSEADDR, 1)
	})
	if err != nil {
		return err
	}
	return sockErr
}
