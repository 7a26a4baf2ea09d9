// Package ready implements the ready-gated write scheduler: a FIFO of
// pending outbound payloads that releases exactly one item per READY
// signal from the peer, so writers never race the peer's ability to
// accept input.
package ready

import (
	"container/list"
	"sync"

	"github.com/mit-ll/SPARTA-sub001/knot"
	"github.com/mit-ll/SPARTA-sub001/logx"
	"github.com/mit-ll/SPARTA-sub001/protoext"
)

// Writer is the transport a Monitor hands released payloads to. It is
// satisfied by *ioloop.WriteQueue in production and by a recording
// fake in tests.
type Writer interface {
	Write(data []byte)
}

type sendItem struct {
	payload []byte
	onSent  func()
}

// Monitor tracks a peer's READY state and gates outbound writes on it.
// It implements protoext.Extension so it can be registered directly
// against a protoext.Manager for the "READY" trigger token. The zero
// value is not usable; construct with New.
type Monitor struct {
	writer Writer
	logger *logx.Logger

	mu    sync.Mutex
	cond  *sync.Cond
	ready bool
	queue list.List
}

var _ protoext.Extension = (*Monitor)(nil)

// Option configures a Monitor constructed by New.
type Option func(*Monitor)

// WithLogger sets the logger used for diagnostic messages. Defaults to
// logx.Nop().
func WithLogger(l *logx.Logger) Option {
	return func(m *Monitor) { m.logger = l }
}

// New constructs a Monitor that releases payloads onto writer.
func New(writer Writer, opts ...Option) *Monitor {
	m := &Monitor{
		writer: writer,
		logger: logx.Nop(),
	}
	m.cond = sync.NewCond(&m.mu)
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// OnProtocolStart implements protoext.Extension. A READY line carries
// no body, so it is handled entirely here and control is returned to
// the dispatcher immediately.
func (m *Monitor) OnProtocolStart(pm *protoext.Manager, startLine *knot.Knot) {
	m.onReadyReceived()
	pm.Done()
}

// LineReceived implements protoext.Extension. READY never has a body;
// any line received here would be a protocol violation from a peer
// that doesn't speak this protocol correctly.
func (m *Monitor) LineReceived(data *knot.Knot) {
	m.logger.Panic().Str("line", data.String()).Logf("ready: unexpected line while handling READY")
}

// RawReceived implements protoext.Extension. See LineReceived.
func (m *Monitor) RawReceived(data *knot.Knot) {
	m.logger.Panic().Logf("ready: unexpected raw data while handling READY")
}

// onReadyReceived implements the dispatcher side of the gate: if a
// payload is queued, release exactly one; otherwise remember that the
// peer is ready so the next ScheduleSend can bypass the queue.
func (m *Monitor) onReadyReceived() {
	m.mu.Lock()
	front := m.queue.Front()
	if front == nil {
		m.ready = true
		m.cond.Broadcast()
		m.mu.Unlock()
		return
	}
	m.queue.Remove(front)
	m.mu.Unlock()

	item := front.Value.(sendItem)
	m.deliver(item)
}

// ScheduleSend sends payload as soon as the peer is ready, without
// blocking. onSent, if non-nil, is invoked immediately before the
// payload reaches Writer.Write — before the write syscall it triggers,
// not after — so latency measurements capture the gap between a caller
// requesting a send and the peer actually being given the bytes, not
// scheduling jitter in the write path.
func (m *Monitor) ScheduleSend(payload []byte, onSent func()) {
	m.mu.Lock()
	if m.ready {
		m.ready = false
		m.mu.Unlock()
		m.deliver(sendItem{payload: payload, onSent: onSent})
		return
	}
	m.queue.PushBack(sendItem{payload: payload, onSent: onSent})
	m.mu.Unlock()
}

func (m *Monitor) deliver(item sendItem) {
	if item.onSent != nil {
		item.onSent()
	}
	m.writer.Write(item.payload)
}

// BlockUntilReadyAndSend blocks until the peer has signaled READY at
// least once since the last release, then sends payload.
func (m *Monitor) BlockUntilReadyAndSend(payload []byte) {
	m.WaitUntilReady()
	m.ScheduleSend(payload, nil)
}

// IsReady reports the current ready state. The result may be stale by
// the time the caller observes it.
func (m *Monitor) IsReady() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ready
}

// WaitUntilReady blocks until the peer is in the READY state. Intended
// for blocking on the initial READY before a test begins.
func (m *Monitor) WaitUntilReady() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for !m.ready {
		m.cond.Wait()
	}
}
