package numbered

import (
	"github.com/mit-ll/SPARTA-sub001/knot"
	"github.com/mit-ll/SPARTA-sub001/logx"
	"github.com/mit-ll/SPARTA-sub001/protoext"
	"github.com/mit-ll/SPARTA-sub001/wire"
)

// resultState implements the RESULTS-block parsing shared by every
// sender variant: header/id parsing (including the trailing-text cases
// S2 exercises), ENDRESULTS/EVENTMSG classification, and the nested
// raw-block state machine. Each variant supplies onBodyLine/onBodyRaw
// (fold a piece of the result into whatever the variant accumulates)
// and onDone (finalize and deliver, once ENDRESULTS is seen and the
// dispatcher has already been released via manager.Done).
type resultState struct {
	logger *logx.Logger
	events *EventMonitor

	manager *protoext.Manager

	curID     int
	eventPend bool
	rawBlock  *rawBlockState

	onBodyLine func(*knot.Knot)
	onBodyRaw  func(*knot.Knot)
	onDone     func()
}

// start handles OnProtocolStart's shared portion. onStart is called
// with the parsed id before any remainder text is dispatched, so the
// variant can look up/initialize its per-command accumulator first.
func (r *resultState) start(m *protoext.Manager, startLine *knot.Knot, onStart func(id int)) {
	r.manager = m
	id, remainder, hasRemainder := parseResultsHeader(startLine.String())
	r.curID = id
	r.eventPend = false
	r.rawBlock = nil
	onStart(id)
	if hasRemainder && remainder != "" {
		r.handleRemainder(remainder)
	}
}

func (r *resultState) handleRemainder(remainder string) {
	if remainder == wire.Raw {
		r.rawBlock = &rawBlockState{}
		return
	}
	r.dispatchLine(knot.FromBytes([]byte(remainder)))
}

func (r *resultState) lineReceived(data *knot.Knot) {
	if r.rawBlock != nil {
		if r.rawBlock.handleLine(data, r.onBodyRaw) {
			r.rawBlock = nil
		}
		return
	}
	r.dispatchLine(data)
}

func (r *resultState) dispatchLine(data *knot.Knot) {
	switch classifyLine(data.String()) {
	case lineEndResults:
		r.manager.Done()
		r.onDone()
	case lineEventMarker:
		r.eventPend = true
	default:
		if r.eventPend {
			r.dispatchEvent(data.String())
			r.eventPend = false
		} else {
			r.onBodyLine(data)
		}
	}
}

func (r *resultState) dispatchEvent(line string) {
	cmdID, eventID, info := parseEventLine(line)
	if r.events == nil {
		return
	}
	if cb, ok := r.events.GetCallback(cmdID); ok {
		cb(cmdID, eventID, knot.FromBytes([]byte(info)))
	}
}

func (r *resultState) rawReceived(data *knot.Knot) {
	if r.eventPend {
		r.logger.Panic().Int("command", r.curID).Logf("numbered: raw data received mid EVENTMSG")
		return
	}
	r.onBodyRaw(data)
}
