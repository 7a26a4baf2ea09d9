package numbered

import (
	"sync"

	"github.com/mit-ll/SPARTA-sub001/knot"
	"github.com/mit-ll/SPARTA-sub001/protoext"
	"github.com/mit-ll/SPARTA-sub001/ready"
)

// ResultCallback receives the Results of every RESULTS block for the
// command it was registered against, for as long as it stays
// registered.
type ResultCallback func(*Results)

// MultiSender is the persistent-callback numbered-command sender: a
// command may receive multiple RESULTS blocks over its lifetime (used
// for peers that report progress), so the registry entry survives
// ENDRESULTS and must be explicitly removed with RemoveCallback.
type MultiSender struct {
	state resultState

	ready *ready.Monitor

	mu      sync.Mutex
	pending map[int]ResultCallback

	curResults *Results
}

var _ protoext.Extension = (*MultiSender)(nil)

// NewMultiSender constructs a MultiSender that schedules outbound
// COMMAND frames through rm.
func NewMultiSender(rm *ready.Monitor, opts ...Option) *MultiSender {
	o := newOptions(opts)
	s := &MultiSender{
		ready:   rm,
		pending: make(map[int]ResultCallback),
	}
	s.state = resultState{
		logger:     o.logger,
		events:     o.events,
		onBodyLine: func(d *knot.Knot) { s.curResults.addLine(d) },
		onBodyRaw:  func(d *knot.Knot) { s.curResults.addRaw(d) },
		onDone:     s.finish,
	}
	return s
}

// SendCommand wraps payload in a COMMAND frame, assigns it a fresh id,
// registers cb to run for every RESULTS block received for that id
// until RemoveCallback(id) is called, and schedules the frame through
// the ready monitor. payload must already end in '\n'.
func (s *MultiSender) SendCommand(payload []byte, cb ResultCallback, sentCB SentCallback, eventCB EventCallback) int {
	s.mu.Lock()
	id := NextCommandID()
	if eventCB != nil && s.state.events != nil {
		s.state.events.RegisterCallback(id, eventCB)
	}
	s.pending[id] = cb
	wrapped := wrapCommand(id, payload)
	var onSent func()
	if sentCB != nil {
		onSent = func() { sentCB(id) }
	}
	s.ready.ScheduleSend(wrapped, onSent)
	s.mu.Unlock()
	return id
}

// RemoveCallback unregisters id, so a future RESULTS block for it (none
// should arrive; the peer is expected to stop sending them) is treated
// as a protocol violation rather than silently dispatched.
func (s *MultiSender) RemoveCallback(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pending, id)
	if s.state.events != nil {
		s.state.events.RemoveCallback(id)
	}
}

// OnProtocolStart implements protoext.Extension.
func (s *MultiSender) OnProtocolStart(m *protoext.Manager, startLine *knot.Knot) {
	s.state.start(m, startLine, func(id int) {
		s.curResults = &Results{CommandID: id}
	})
}

// LineReceived implements protoext.Extension.
func (s *MultiSender) LineReceived(data *knot.Knot) { s.state.lineReceived(data) }

// RawReceived implements protoext.Extension.
func (s *MultiSender) RawReceived(data *knot.Knot) { s.state.rawReceived(data) }

func (s *MultiSender) finish() {
	id := s.state.curID
	s.mu.Lock()
	cb, ok := s.pending[id]
	s.mu.Unlock()

	results := s.curResults
	s.curResults = nil

	if !ok {
		s.state.logger.Panic().Int("command", id).Logf("numbered: RESULTS for unregistered command id")
		return
	}
	cb(results)
}
