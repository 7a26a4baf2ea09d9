// Package protoext implements the protocol extension dispatcher: a
// token-keyed handler table that, once a registered trigger line
// arrives, routes every subsequent frame.Handler event to that
// extension until the extension calls Done.
package protoext

import (
	"strings"

	"github.com/mit-ll/SPARTA-sub001/frame"
	"github.com/mit-ll/SPARTA-sub001/knot"
	"github.com/mit-ll/SPARTA-sub001/logx"
)

// Extension handles every frame event from the line that triggered it
// (inclusive) until it calls Manager.Done. Embed BaseExtension to get
// no-op defaults for the methods a given extension doesn't need.
type Extension interface {
	// OnProtocolStart is called with the full trigger line, and the
	// Manager the extension must call Done on to relinquish control.
	OnProtocolStart(m *Manager, startLine *knot.Knot)
	LineReceived(data *knot.Knot)
	RawReceived(data *knot.Knot)
}

// BaseExtension supplies no-op implementations of Extension, for types
// that only care about a subset of the callbacks.
type BaseExtension struct{}

func (BaseExtension) OnProtocolStart(*Manager, *knot.Knot) {}
func (BaseExtension) LineReceived(*knot.Knot)              {}
func (BaseExtension) RawReceived(*knot.Knot)               {}

// Manager implements frame.Handler, dispatching to registered
// Extensions by trigger token. The zero value is not usable; construct
// with New.
type Manager struct {
	logger   *logx.Logger
	handlers map[string]Extension
	current  Extension
}

var _ frame.Handler = (*Manager)(nil)

// Option configures a Manager constructed by New.
type Option func(*Manager)

// WithLogger overrides the logger used when an unrecognized trigger
// token, or raw data with no active extension, is received. Defaults
// to logx.Nop().
func WithLogger(l *logx.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// New constructs an empty Manager. Register extensions with AddHandler
// before connecting it to a frame.Parser.
func New(opts ...Option) *Manager {
	m := &Manager{
		logger:   logx.Nop(),
		handlers: make(map[string]Extension),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// AddHandler registers extension to activate whenever a line's first
// whitespace-delimited token equals triggerToken.
func (m *Manager) AddHandler(triggerToken string, extension Extension) {
	m.handlers[triggerToken] = extension
}

// Done relinquishes control of the currently active extension, so the
// next line received is again matched against the trigger table.
// Extensions call this on themselves via the Manager passed to
// OnProtocolStart.
func (m *Manager) Done() {
	m.current = nil
}

// LineReceived implements frame.Handler. While an extension is active
// it receives every line; otherwise the line's leading token is looked
// up in the trigger table and, on a match, the extension is activated.
func (m *Manager) LineReceived(data *knot.Knot) {
	if m.current != nil {
		m.current.LineReceived(data)
		return
	}
	token := leadingToken(data.String())
	ext, ok := m.handlers[token]
	if !ok {
		m.logger.Panic().Str("line", data.String()).Logf("protoext: no handler registered for token %q", token)
		return
	}
	m.current = ext
	ext.OnProtocolStart(m, data)
}

// RawReceived implements frame.Handler. Raw data with no active
// extension is a protocol violation: a peer should never enter RAW
// mode outside a registered extension's control.
func (m *Manager) RawReceived(data *knot.Knot) {
	if m.current == nil {
		m.logger.Panic().Logf("protoext: raw data received with no active extension")
		return
	}
	m.current.RawReceived(data)
}

func leadingToken(line string) string {
	if i := strings.IndexByte(line, ' '); i >= 0 {
		return line[:i]
	}
	return line
}
