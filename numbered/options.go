package numbered

import "github.com/mit-ll/SPARTA-sub001/logx"

// options collects the fields shared by every sender/receiver
// constructor in this package.
type options struct {
	events *EventMonitor
	logger *logx.Logger
}

// Option configures a Sender, MultiSender, AggSender, Receiver, or
// RootSender constructed in this package.
type Option func(*options)

// WithEventMonitor wires a shared EventMonitor, so EVENTMSG lines this
// sender receives dispatch through callbacks registered against it
// (possibly by a different sender instance — original_source shows one
// EventMonitor injected into all three sender variants).
func WithEventMonitor(m *EventMonitor) Option {
	return func(o *options) { o.events = m }
}

// WithLogger overrides the logger used for protocol-violation
// diagnostics. Defaults to logx.Nop().
func WithLogger(l *logx.Logger) Option {
	return func(o *options) { o.logger = l }
}

func newOptions(opts []Option) options {
	o := options{logger: logx.Nop()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
