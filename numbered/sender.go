package numbered

import (
	"sync"

	"github.com/mit-ll/SPARTA-sub001/future"
	"github.com/mit-ll/SPARTA-sub001/knot"
	"github.com/mit-ll/SPARTA-sub001/protoext"
	"github.com/mit-ll/SPARTA-sub001/ready"
)

// ResultItem is one line or raw blob received inside a RESULTS block.
type ResultItem struct {
	Raw  bool
	Data *knot.Knot
}

// Results is the body of one command's RESULTS block, in the order its
// lines and raw blobs arrived.
type Results struct {
	CommandID int
	Items     []ResultItem
}

func (r *Results) addLine(data *knot.Knot) {
	r.Items = append(r.Items, ResultItem{Data: data})
}

func (r *Results) addRaw(data *knot.Knot) {
	r.Items = append(r.Items, ResultItem{Raw: true, Data: data})
}

// SentCallback is invoked, with the assigned command id, immediately
// before the wrapped COMMAND payload reaches the ready monitor's
// Writer.
type SentCallback func(commandID int)

// Sender is the single-shot numbered-command sender: each SendCommand
// call returns a Future that fires once, when that command's
// ENDRESULTS is observed, with the accumulated Results.
type Sender struct {
	state resultState

	ready *ready.Monitor

	mu      sync.Mutex
	pending map[int]future.Future[*Results]

	curResults *Results
}

var _ protoext.Extension = (*Sender)(nil)

// NewSender constructs a Sender that schedules outbound COMMAND frames
// through rm.
func NewSender(rm *ready.Monitor, opts ...Option) *Sender {
	o := newOptions(opts)
	s := &Sender{
		ready:   rm,
		pending: make(map[int]future.Future[*Results]),
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
// and schedules it through the ready monitor. payload must already end
// in '\n'.
func (s *Sender) SendCommand(payload []byte) future.Future[*Results] {
	f, _ := s.SendCommandWithCallbacks(payload, nil, nil)
	return f
}

// SendCommandWithCallbacks is SendCommand plus a callback invoked right
// before the payload is handed to the writer, and an EventCallback
// registered against this Sender's EventMonitor for the assigned id.
func (s *Sender) SendCommandWithCallbacks(payload []byte, sentCB SentCallback, eventCB EventCallback) (future.Future[*Results], int) {
	f := future.New[*Results]()

	s.mu.Lock()
	id := NextCommandID()
	if eventCB != nil && s.state.events != nil {
		s.state.events.RegisterCallback(id, eventCB)
	}
	s.pending[id] = f
	wrapped := wrapCommand(id, payload)
	var onSent func()
	if sentCB != nil {
		onSent = func() { sentCB(id) }
	}
	s.ready.ScheduleSend(wrapped, onSent)
	s.mu.Unlock()

	return f, id
}

// OnProtocolStart implements protoext.Extension.
func (s *Sender) OnProtocolStart(m *protoext.Manager, startLine *knot.Knot) {
	s.state.start(m, startLine, func(id int) {
		s.curResults = &Results{CommandID: id}
	})
}

// LineReceived implements protoext.Extension.
func (s *Sender) LineReceived(data *knot.Knot) { s.state.lineReceived(data) }

// RawReceived implements protoext.Extension.
func (s *Sender) RawReceived(data *knot.Knot) { s.state.rawReceived(data) }

func (s *Sender) finish() {
	id := s.state.curID
	s.mu.Lock()
	f, ok := s.pending[id]
	if ok {
		delete(s.pending, id)
	}
	if s.state.events != nil {
		s.state.events.RemoveCallback(id)
	}
	s.mu.Unlock()

	results := s.curResults
	s.curResults = nil

	if !ok {
		s.state.logger.Panic().Int("command", id).Logf("numbered: RESULTS for unknown command id")
		return
	}
	f.Fire(results)
}
