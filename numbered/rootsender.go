package numbered

import (
	"sync"

	"github.com/mit-ll/SPARTA-sub001/future"
	"github.com/mit-ll/SPARTA-sub001/knot"
	"github.com/mit-ll/SPARTA-sub001/logx"
	"github.com/mit-ll/SPARTA-sub001/protoext"
	"github.com/mit-ll/SPARTA-sub001/ready"
)

// RootSender sends root-mode commands: single-line tokens (SHUTDOWN,
// CLEARCACHE, ...) sent outside any COMMAND frame, still gated by the
// ready monitor, each answered with a bare DONE line. Unlike the
// numbered senders, root-mode commands carry no id; RootSender
// correlates replies to sends by arrival order, which the ready gate
// makes safe since at most one root-mode command can be outstanding
// between two READY signals the same way any other payload is.
type RootSender struct {
	ready  *ready.Monitor
	logger *logx.Logger

	mu      sync.Mutex
	pending []future.Future[struct{}]
}

var _ protoext.Extension = (*RootSender)(nil)

// NewRootSender constructs a RootSender that schedules outbound
// root-mode commands through rm. Register it against a protoext.Manager
// for the wire.Done trigger token.
func NewRootSender(rm *ready.Monitor, opts ...Option) *RootSender {
	o := newOptions(opts)
	return &RootSender{ready: rm, logger: o.logger}
}

// SendCommand sends token (e.g. "SHUTDOWN") as a root-mode command and
// returns a Future that fires once the corresponding DONE is received.
func (s *RootSender) SendCommand(token string) future.Future[struct{}] {
	f := future.New[struct{}]()
	s.mu.Lock()
	s.pending = append(s.pending, f)
	s.mu.Unlock()
	s.ready.ScheduleSend([]byte(token+"\n"), nil)
	return f
}

// OnProtocolStart implements protoext.Extension. DONE carries no body,
// so the reply is fully handled here.
func (s *RootSender) OnProtocolStart(m *protoext.Manager, startLine *knot.Knot) {
	s.mu.Lock()
	var f future.Future[struct{}]
	ok := len(s.pending) > 0
	if ok {
		f = s.pending[0]
		s.pending = s.pending[1:]
	}
	s.mu.Unlock()

	m.Done()

	if !ok {
		s.logger.Panic().Logf("numbered: unexpected DONE with no outstanding root-mode command")
		return
	}
	f.Fire(struct{}{})
}

// LineReceived implements protoext.Extension. DONE never has a body.
func (s *RootSender) LineReceived(data *knot.Knot) {
	s.logger.Panic().Str("line", data.String()).Logf("numbered: unexpected line while handling DONE")
}

// RawReceived implements protoext.Extension. DONE never has a body.
func (s *RootSender) RawReceived(data *knot.Knot) {
	s.logger.Panic().Logf("numbered: unexpected raw data while handling DONE")
}
