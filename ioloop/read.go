package ioloop

import (
	"errors"
	"io"
	"os"

	"github.com/mit-ll/SPARTA-sub001/knot"
)

// readChunkSize is the fixed upper bound on bytes read per syscall,
// matching the read loop's "reads in chunks (fixed upper bound per
// syscall)" contract.
const readChunkSize = 64 * 1024

// Watch spawns a goroutine that reads f until EOF or error, invoking
// onData on the Loop's read worker for each chunk (wrapped in a
// single-segment Knot) and onEOF, also on the read worker, when the
// descriptor closes. onEOF receives the error that ended the read loop;
// it is io.EOF on a clean close.
//
// f must already be in the mode the caller wants (blocking or
// non-blocking); Watch does not alter it. A non-blocking f still works
// correctly here because the Go runtime's netpoller parks the read
// goroutine without consuming an OS thread, giving the same end-to-end
// behavior the original's epoll-driven readable-readiness callback did.
func (l *Loop) Watch(f *os.File, onData func(*knot.Knot), onEOF func(error)) {
	go func() {
		buf := make([]byte, readChunkSize)
		for {
			n, err := f.Read(buf)
			if n > 0 {
				chunk := knot.New()
				chunk.AppendCopy(buf[:n])
				l.postRead(func() { onData(chunk) })
			}
			if err != nil {
				if errors.Is(err, io.EOF) {
					l.postRead(func() { onEOF(io.EOF) })
				} else {
					l.postRead(func() { onEOF(err) })
				}
				return
			}
		}
	}()
}
