package numbered

import (
	"sync"

	"github.com/mit-ll/SPARTA-sub001/knot"
	"github.com/mit-ll/SPARTA-sub001/protoext"
	"github.com/mit-ll/SPARTA-sub001/ready"
)

// PartialAggregator is the producer-side interface AggSender drives as
// a command's RESULTS block streams in. *future.Aggregator[ResultT,
// *knot.Knot] satisfies this for any ResultT, which is how AggSender
// stays ignorant of what a caller is actually aggregating into (a byte
// count, a concatenated rope, a running hash) — exactly the separation
// spec.md's Aggregator section calls for.
type PartialAggregator interface {
	AddPartialResult(partial *knot.Knot)
	Done()
}

// AggSender is the aggregating numbered-command sender: rather than
// collecting a Results list, each line and raw blob of a command's
// RESULTS block is folded directly into a caller-supplied
// PartialAggregator as it arrives, and the aggregator is finalized
// (Done) when ENDRESULTS is observed.
type AggSender struct {
	state resultState

	ready *ready.Monitor

	mu      sync.Mutex
	pending map[int]PartialAggregator

	curAgg PartialAggregator
}

var _ protoext.Extension = (*AggSender)(nil)

// NewAggSender constructs an AggSender that schedules outbound COMMAND
// frames through rm.
func NewAggSender(rm *ready.Monitor, opts ...Option) *AggSender {
	o := newOptions(opts)
	s := &AggSender{
		ready:   rm,
		pending: make(map[int]PartialAggregator),
	}
	s.state = resultState{
		logger:     o.logger,
		events:     o.events,
		onBodyLine: func(d *knot.Knot) { s.curAgg.AddPartialResult(d) },
		onBodyRaw:  func(d *knot.Knot) { s.curAgg.AddPartialResult(d) },
		onDone:     s.finish,
	}
	return s
}

// SendCommand wraps payload in a COMMAND frame, assigns it a fresh id,
// registers aggregator to receive every line/raw blob of that id's
// RESULTS block, and schedules the frame through the ready monitor.
// payload must already end in '\n'.
func (s *AggSender) SendCommand(payload []byte, aggregator PartialAggregator, sentCB SentCallback, eventCB EventCallback) int {
	s.mu.Lock()
	id := NextCommandID()
	if eventCB != nil && s.state.events != nil {
		s.state.events.RegisterCallback(id, eventCB)
	}
	s.pending[id] = aggregator
	wrapped := wrapCommand(id, payload)
	var onSent func()
	if sentCB != nil {
		onSent = func() { sentCB(id) }
	}
	s.ready.ScheduleSend(wrapped, onSent)
	s.mu.Unlock()
	return id
}

// OnProtocolStart implements protoext.Extension.
func (s *AggSender) OnProtocolStart(m *protoext.Manager, startLine *knot.Knot) {
	s.state.start(m, startLine, func(id int) {
		s.mu.Lock()
		agg, ok := s.pending[id]
		s.mu.Unlock()
		if !ok {
			s.state.logger.Panic().Int("command", id).Logf("numbered: no aggregator registered for command")
			return
		}
		s.curAgg = agg
	})
}

// LineReceived implements protoext.Extension.
func (s *AggSender) LineReceived(data *knot.Knot) { s.state.lineReceived(data) }

// RawReceived implements protoext.Extension.
func (s *AggSender) RawReceived(data *knot.Knot) { s.state.rawReceived(data) }

func (s *AggSender) finish() {
	id := s.state.curID
	agg := s.curAgg
	s.curAgg = nil

	s.mu.Lock()
	delete(s.pending, id)
	s.mu.Unlock()
	if s.state.events != nil {
		s.state.events.RemoveCallback(id)
	}

	if agg != nil {
		agg.Done()
	}
}
