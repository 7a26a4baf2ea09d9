package ioloop

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// SetNonblocking puts f's underlying descriptor into non-blocking mode,
// the mode the process interface to a child SUT requires on both ends
// of its pipe pair on the parent side. It operates through
// f.SyscallConn rather than f.Fd, since calling Fd directly forces the
// descriptor into blocking mode and detaches it from the runtime
// netpoller — exactly the integration this module relies on so a
// non-blocking descriptor's Read/Write still presents the ordinary
// blocking-looking os.File API to callers.
func SetNonblocking(f *os.File) error {
	sc, err := f.SyscallConn()
	if err != nil {
		return fmt.Errorf("ioloop: syscall conn for fd: %w", err)
	}
	var opErr error
	if err := sc.Control(func(fd uintptr) {
		opErr = unix.SetNonblock(int(fd), true)
	}); err != nil {
		return fmt.Errorf("ioloop: control fd: %w", err)
	}
	return opErr
}
