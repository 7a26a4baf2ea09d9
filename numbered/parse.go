package numbered

import (
	"strconv"
	"strings"

	"github.com/mit-ll/SPARTA-sub001/knot"
	"github.com/mit-ll/SPARTA-sub001/wire"
)

// wrapCommand frames payload as a numbered COMMAND block. payload must
// already end in '\n'.
func wrapCommand(id int, payload []byte) []byte {
	header := wire.Command + " " + strconv.Itoa(id) + "\n"
	out := make([]byte, 0, len(header)+len(payload)+len(wire.EndCommand)+1)
	out = append(out, header...)
	out = append(out, payload...)
	out = append(out, wire.EndCommand...)
	out = append(out, '\n')
	return out
}

// wrapResults frames body as a numbered RESULTS block, the receiving
// side's mirror of wrapCommand. body must already end in '\n', or be
// empty.
func wrapResults(id int, body []byte) []byte {
	header := wire.Results + " " + strconv.Itoa(id) + "\n"
	out := make([]byte, 0, len(header)+len(body)+len(wire.EndResults)+1)
	out = append(out, header...)
	out = append(out, body...)
	out = append(out, wire.EndResults...)
	out = append(out, '\n')
	return out
}

// parseResultsHeader splits a "RESULTS <id>[ <remainder>]" line into its
// id and whatever text follows the id on the same line.
func parseResultsHeader(line string) (id int, remainder string, hasRemainder bool) {
	rest := strings.TrimPrefix(line, wire.Results+" ")
	idStr, rem, cut := strings.Cut(rest, " ")
	id, _ = strconv.Atoi(idStr)
	return id, rem, cut
}

// parseEventLine parses the line following an EVENTMSG marker:
// "<cmd_id> <event_id>[ <info>]".
func parseEventLine(line string) (cmdID, eventID int, info string) {
	fields := strings.SplitN(line, " ", 3)
	if len(fields) > 0 {
		cmdID, _ = strconv.Atoi(fields[0])
	}
	if len(fields) > 1 {
		eventID, _ = strconv.Atoi(fields[1])
	}
	if len(fields) > 2 {
		info = fields[2]
	}
	return
}

type lineKind int

const (
	lineBody lineKind = iota
	lineEndResults
	lineEventMarker
)

func classifyLine(s string) lineKind {
	switch s {
	case wire.EndResults:
		return lineEndResults
	case wire.EventMsg:
		return lineEventMarker
	default:
		return lineBody
	}
}

// rawBlockState reproduces frame.Parser's RAW state machine one layer
// up, operating on already line-split Knot values instead of raw
// stream bytes. It exists for the one case where a RESULTS header
// line's trailing text is exactly "RAW": that text never passes
// through frame.Parser's own "whole line equals RAW" trigger check,
// because it arrives glued to the header line rather than as a
// standalone line, so frame.Parser never transitions into raw mode for
// it. The count and the raw bytes (plus whatever follows them on the
// same line, unseparated by a newline) still arrive as ordinary Line
// events once that point is reached, so the same count/bytes/ENDRAW
// algorithm applies, just driven by Knot values instead of bytes.
type rawBlockState struct {
	haveCount bool
	count     int
}

// handleLine processes one Line value while a rawBlockState is active.
// done reports whether this call closed the block (an ENDRAW line or
// ENDRAW trailing the final byte run was observed).
func (r *rawBlockState) handleLine(data *knot.Knot, emitRaw func(*knot.Knot)) (done bool) {
	if !r.haveCount {
		s := data.String()
		if s == wire.EndRaw {
			return true
		}
		n, _ := strconv.Atoi(s)
		r.count = n
		r.haveCount = true
		return false
	}

	cut := data.IteratorAt(r.count)
	payload := data.SubKnot(data.Begin(), cut)
	rest := data.SubKnot(cut, data.End())
	emitRaw(payload)

	restStr := rest.String()
	if restStr == wire.EndRaw {
		r.haveCount = false
		return true
	}
	n, _ := strconv.Atoi(restStr)
	r.count = n
	return false
}
