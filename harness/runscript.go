package harness

import (
	"time"

	"github.com/mit-ll/SPARTA-sub001/knot"
	"github.com/mit-ll/SPARTA-sub001/logx"
	"github.com/mit-ll/SPARTA-sub001/numbered"
	"github.com/mit-ll/SPARTA-sub001/wire"
)

// ScriptRunner runs a named script with the given arguments, blocking
// until it completes. Run returns the time the script actually began
// executing (which may lag the RUNSCRIPT command's arrival if scripts
// are queued) and a non-nil error if the script failed. Concrete
// script classes are out of scope here; this is the seam a slave
// harness plugs its own script vocabulary into.
type ScriptRunner interface {
	Run(name string, args *knot.Knot) (startedAt time.Time, err error)
}

// RunScriptHandler is the receiving side of the RUNSCRIPT sub-protocol:
// a numbered.SubHandler that unpacks a RUNSCRIPT...ENDRUNSCRIPT body,
// starts the named script on a ScriptRunner, replies STARTED
// immediately, and later writes a second RESULTS block for the same
// command id — FINISHED or FAILED — once the script completes.
type RunScriptHandler struct {
	receiver *numbered.Receiver
	runner   ScriptRunner
	logger   *logx.Logger
}

var _ numbered.SubHandler = (*RunScriptHandler)(nil)

// NewRunScriptHandler constructs a RunScriptHandler that reports
// completion back through receiver. Register it with
// receiver.AddHandler(wire.RunScript, handler).
func NewRunScriptHandler(receiver *numbered.Receiver, runner ScriptRunner, logger *logx.Logger) *RunScriptHandler {
	if logger == nil {
		logger = logx.Nop()
	}
	return &RunScriptHandler{receiver: receiver, runner: runner, logger: logger}
}

// Handle implements numbered.SubHandler.
func (h *RunScriptHandler) Handle(body *numbered.CommandBody) []numbered.ResultItem {
	items := body.Items
	if len(items) < 3 || items[0].Raw || items[len(items)-1].Raw ||
		items[0].Data.String() != wire.RunScript ||
		items[len(items)-1].Data.String() != wire.EndRunScript {
		h.logger.Panic().Int("command_id", body.CommandID).Logf("harness: malformed RUNSCRIPT body")
		return nil
	}

	name := items[1].Data.String()
	args := knot.New()
	for _, it := range items[2 : len(items)-1] {
		args.AppendKnot(it.Data)
		args.AppendBorrowed([]byte("\n"))
	}

	id := body.CommandID
	go func() {
		_, err := h.runner.Run(name, args)
		if err != nil {
			h.logger.Warning().Str("script", name).Err(err).Logf("harness: script failed")
			h.receiver.WriteResults(id, []numbered.ResultItem{{Data: knot.FromBytes([]byte(wire.Failed))}})
			return
		}
		h.receiver.WriteResults(id, []numbered.ResultItem{{Data: knot.FromBytes([]byte(wire.Finished))}})
	}()

	return []numbered.ResultItem{{Data: knot.FromBytes([]byte(wire.Started))}}
}
