// Package ioloop implements the two-thread I/O reactor: one goroutine
// serializes every read callback, another serializes every write
// callback, so a read callback can safely enqueue a write without
// risking deadlock against the writer. Each watched descriptor gets its
// own blocking-read goroutine backed by Go's runtime netpoller rather
// than a hand-rolled epoll/kqueue multiplexer: ordering and no-deadlock
// guarantees only require that reads and writes each funnel through a
// single serialization point, not that the multiplexing itself be
// implemented by this package.
package ioloop

import (
	"sync"

	"github.com/mit-ll/SPARTA-sub001/logx"
)

// Loop owns the two reactor goroutines. The zero value is not usable;
// construct with New.
type Loop struct {
	logger          *logx.Logger
	maxPendingBytes int

	readWork  chan func()
	writeWork chan func()

	writeQueuesMu sync.Mutex
	writeQueues   map[int]*WriteQueue

	wg   sync.WaitGroup
	done chan struct{}
}

// Option configures a Loop constructed by New.
type Option func(*Loop)

// WithLogger overrides the logger used for I/O diagnostics. Defaults to
// logx.Nop().
func WithLogger(l *logx.Logger) Option {
	return func(lp *Loop) { lp.logger = l }
}

// WithMaxPendingBytes overrides the default back-pressure threshold new
// WriteQueues are created with. Defaults to defaultMaxPendingBytes.
func WithMaxPendingBytes(n int) Option {
	return func(lp *Loop) { lp.maxPendingBytes = n }
}

// New starts a Loop's two reactor goroutines. Call Close to stop them.
func New(opts ...Option) *Loop {
	l := &Loop{
		logger:          logx.Nop(),
		maxPendingBytes: defaultMaxPendingBytes,
		readWork:        make(chan func(), 64),
		writeWork:       make(chan func(), 64),
		done:            make(chan struct{}),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.wg.Add(2)
	go l.runWorker(l.readWork)
	go l.runWorker(l.writeWork)
	return l
}

func (l *Loop) runWorker(work chan func()) {
	defer l.wg.Done()
	for {
		select {
		case fn := <-work:
			fn()
		case <-l.done:
			// drain whatever is already queued before returning, so a
			// read callback that enqueued a write isn't silently lost
			// by a concurrent Close.
			for {
				select {
				case fn := <-work:
					fn()
				default:
					return
				}
			}
		}
	}
}

// postRead schedules fn to run serialized with every other read
// callback this Loop has dispatched.
func (l *Loop) postRead(fn func()) {
	select {
	case l.readWork <- fn:
	case <-l.done:
	}
}

// postWrite schedules fn to run serialized with every other write
// callback this Loop has dispatched.
func (l *Loop) postWrite(fn func()) {
	select {
	case l.writeWork <- fn:
	case <-l.done:
	}
}

// Close signals both reactor goroutines to drain and exit. It does not
// block; call Wait to join them. Closing descriptors registered with
// this Loop is the caller's responsibility — a Loop does not own the
// descriptors it watches.
func (l *Loop) Close() {
	select {
	case <-l.done:
	default:
		close(l.done)
	}
}

// Wait blocks until both reactor goroutines have exited. Neither blocks
// indefinitely: Close causes a prompt, bounded drain-then-return.
func (l *Loop) Wait() {
	l.wg.Wait()
}
