package numbered

import (
	"strconv"
	"strings"

	"github.com/mit-ll/SPARTA-sub001/knot"
	"github.com/mit-ll/SPARTA-sub001/logx"
	"github.com/mit-ll/SPARTA-sub001/protoext"
	"github.com/mit-ll/SPARTA-sub001/ready"
	"github.com/mit-ll/SPARTA-sub001/wire"
)

// CommandBody is the accumulated body of one received COMMAND block,
// handed to the SubHandler registered for its first token.
type CommandBody struct {
	CommandID int
	Items     []ResultItem
}

// SubHandler answers one COMMAND body, keyed by the first
// whitespace-delimited token of its first line (e.g. RUNSCRIPT,
// HARNESS_INFO), and returns the items to wrap as that command's
// RESULTS body.
type SubHandler interface {
	Handle(body *CommandBody) []ResultItem
}

// SubHandlerFunc adapts a plain function to SubHandler.
type SubHandlerFunc func(body *CommandBody) []ResultItem

func (f SubHandlerFunc) Handle(body *CommandBody) []ResultItem { return f(body) }

// Receiver is the receiving side of the numbered-command protocol: it
// parses COMMAND blocks, dispatches their body to a registered
// SubHandler by first token, and wraps the handler's output as that
// command's RESULTS block. Unlike the sender variants, a Receiver's
// outbound RESULTS and READY frames are not gated by a ready.Monitor:
// spec.md §4.5 has the receiver write them directly, whenever it is
// safe to do so (i.e. whenever the handler has something to say),
// since READY only ever flows receiver-to-sender in this protocol —
// nothing gates the receiver's own writes back.
type Receiver struct {
	writer ready.Writer
	logger *logx.Logger

	manager  *protoext.Manager
	handlers map[string]SubHandler

	curID    int
	curItems []ResultItem
}

var _ protoext.Extension = (*Receiver)(nil)

// NewReceiver constructs a Receiver that writes RESULTS and READY
// frames directly to w (typically an *ioloop.WriteQueue). Register it
// against a protoext.Manager for the wire.Command trigger token.
func NewReceiver(w ready.Writer, opts ...Option) *Receiver {
	o := newOptions(opts)
	return &Receiver{
		writer:   w,
		logger:   o.logger,
		handlers: make(map[string]SubHandler),
	}
}

// AddHandler registers h to answer COMMAND bodies whose first line's
// leading token equals token.
func (r *Receiver) AddHandler(token string, h SubHandler) {
	r.handlers[token] = h
}

// SendReady writes a READY line, signalling the peer may issue another
// command.
func (r *Receiver) SendReady() {
	r.writer.Write([]byte(wire.Ready + "\n"))
}

// OnProtocolStart implements protoext.Extension.
func (r *Receiver) OnProtocolStart(m *protoext.Manager, startLine *knot.Knot) {
	r.manager = m
	rest := strings.TrimPrefix(startLine.String(), wire.Command+" ")
	id, _ := strconv.Atoi(rest)
	r.curID = id
	r.curItems = nil
}

// LineReceived implements protoext.Extension.
func (r *Receiver) LineReceived(data *knot.Knot) {
	if data.String() == wire.EndCommand {
		r.dispatch()
		return
	}
	r.curItems = append(r.curItems, ResultItem{Data: data})
}

// RawReceived implements protoext.Extension.
func (r *Receiver) RawReceived(data *knot.Knot) {
	r.curItems = append(r.curItems, ResultItem{Raw: true, Data: data})
}

func (r *Receiver) dispatch() {
	id := r.curID
	items := r.curItems
	r.curItems = nil
	r.manager.Done()

	var response []ResultItem
	if len(items) > 0 && !items[0].Raw {
		token := leadingToken(items[0].Data.String())
		h, ok := r.handlers[token]
		if !ok {
			r.logger.Panic().Str("token", token).Logf("numbered: no handler registered for COMMAND token")
		} else {
			response = h.Handle(&CommandBody{CommandID: id, Items: items})
		}
	}
	r.WriteResults(id, response)
}

// WriteResults writes items as a RESULTS block for id. A SubHandler
// whose work outlives its Handle call (e.g. a long-running script) may
// call this again later, with the same id, to report completion as a
// second RESULTS block independent of the one Handle's return value
// produced.
func (r *Receiver) WriteResults(id int, items []ResultItem) {
	var body []byte
	for _, it := range items {
		if it.Raw {
			body = append(body, wire.Raw...)
			body = append(body, '\n')
			body = append(body, strconv.Itoa(it.Data.Size())...)
			body = append(body, '\n')
			body = append(body, it.Data.Bytes()...)
			body = append(body, wire.EndRaw...)
			body = append(body, '\n')
		} else {
			body = append(body, it.Data.Bytes()...)
			body = append(body, '\n')
		}
	}
	r.writer.Write(wrapResults(id, body))
}

func leadingToken(line string) string {
	if i := strings.IndexByte(line, ' '); i >= 0 {
		return line[:i]
	}
	return line
}
