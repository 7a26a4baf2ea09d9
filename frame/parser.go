// Package frame implements the LINE/RAW framing state machine every
// peer in this protocol speaks over a byte stream: newline-terminated
// lines, plus an escape into raw binary mode bracketed by a "RAW" line
// and an "ENDRAW" count line, for payloads that may contain arbitrary
// bytes including newlines.
package frame

import (
	"strconv"

	"github.com/mit-ll/SPARTA-sub001/knot"
	"github.com/mit-ll/SPARTA-sub001/logx"
)

// Handler receives parsed frame events. LineReceived is called once per
// newline-terminated line (the terminating newline is not included in
// data). RawReceived is called once per bracketed RAW...ENDRAW block,
// with data holding the concatenation of every <count>\n<bytes> pair
// inside the block.
type Handler interface {
	LineReceived(data *knot.Knot)
	RawReceived(data *knot.Knot)
}

// HandlerFuncs adapts two plain functions to the Handler interface, for
// callers that don't want to declare a named type.
type HandlerFuncs struct {
	OnLine func(*knot.Knot)
	OnRaw  func(*knot.Knot)
}

func (h HandlerFuncs) LineReceived(data *knot.Knot) { h.OnLine(data) }
func (h HandlerFuncs) RawReceived(data *knot.Knot)  { h.OnRaw(data) }

type mode int

const (
	modeLine mode = iota
	modeRaw
)

const rawByteCountUnknown = -1

// Parser consumes arbitrarily-chunked byte slices and drives a Handler
// as complete lines and raw blocks become available. The zero value is
// not usable; construct with New.
type Parser struct {
	handler Handler
	logger  *logx.Logger

	buf     *knot.Knot
	scanPos int // byte offset into buf already scanned for '\n', never re-scanned

	mode mode

	rawByteCount int // rawByteCountUnknown until a count line is parsed
	rawData      *knot.Knot
}

// Option configures a Parser constructed by New.
type Option func(*Parser)

// WithLogger overrides the logger used for fatal framing violations
// (a malformed raw byte count). Defaults to logx.Nop(). The Parser has
// no end-of-stream input, so a RAW block cut short by EOF is not
// detected; its bytes simply stay buffered.
func WithLogger(l *logx.Logger) Option {
	return func(p *Parser) { p.logger = l }
}

// New constructs a Parser that drives handler as data arrives.
func New(handler Handler, opts ...Option) *Parser {
	p := &Parser{
		handler:      handler,
		logger:       logx.Nop(),
		buf:          knot.New(),
		mode:         modeLine,
		rawByteCount: rawByteCountUnknown,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// DataReceived appends data to the parser's internal buffer and drives
// the handler for every complete line or raw block now available. data
// is copied; the caller may reuse its backing array immediately.
func (p *Parser) DataReceived(data []byte) {
	p.buf.AppendCopy(data)
	p.pump()
}

func (p *Parser) pump() {
	for {
		switch p.mode {
		case modeLine:
			if !p.lineStep() {
				return
			}
		case modeRaw:
			if !p.rawStep() {
				return
			}
		}
	}
}

// lineStep consumes at most one line from buf. It returns false when no
// complete line is currently available, signaling pump to stop until
// more data arrives.
func (p *Parser) lineStep() bool {
	line, ok := p.takeLine()
	if !ok {
		return false
	}
	if line.Equal([]byte("RAW")) {
		p.mode = modeRaw
		p.rawByteCount = rawByteCountUnknown
		p.rawData = knot.New()
		return true
	}
	p.handler.LineReceived(line)
	return true
}

// rawStep consumes either a count/ENDRAW line or a chunk of raw payload
// bytes, whichever the current sub-state calls for. Returns false when
// the buffer doesn't yet hold enough data to make progress.
func (p *Parser) rawStep() bool {
	if p.rawByteCount == rawByteCountUnknown {
		line, ok := p.takeLine()
		if !ok {
			return false
		}
		if line.Equal([]byte("ENDRAW")) {
			p.handler.RawReceived(p.rawData)
			p.rawData = nil
			p.mode = modeLine
			return true
		}
		n, err := strconv.Atoi(line.String())
		if err != nil || n < 0 {
			p.logger.Panic().Str("line", line.String()).Logf("frame: malformed raw byte count %q", line.String())
		}
		p.rawByteCount = n
		return true
	}

	if p.buf.Size() < p.rawByteCount {
		return false
	}
	chunk := p.buf.Split(p.buf.IteratorAt(p.rawByteCount))
	p.scanPos = 0
	p.rawData.AppendKnot(chunk)
	p.rawByteCount = rawByteCountUnknown
	return true
}

// takeLine removes and returns the first newline-terminated line from
// buf (without the newline), or (nil, false) if buf has no complete
// line yet.
func (p *Parser) takeLine() (*knot.Knot, bool) {
	start := p.buf.IteratorAt(p.scanPos)
	nl := p.buf.Find('\n', start)
	if nl.IsEnd() {
		p.scanPos = p.buf.Size()
		return nil, false
	}
	line := p.buf.SubKnot(p.buf.Begin(), nl)
	p.buf.LeftErase(nl.Next())
	p.scanPos = 0
	return line, true
}

// InRawMode reports whether the parser is mid-way through a RAW block,
// useful for callers enforcing that protocol markers (like EVENTMSG)
// must not appear while raw data is pending — spec's "protocol
// violation" row for EVENTMSG mid-raw.
func (p *Parser) InRawMode() bool { return p.mode == modeRaw }

// Pending returns the number of bytes currently buffered and not yet
// handed to the Handler, for diagnostics.
func (p *Parser) Pending() int { return p.buf.Size() }
