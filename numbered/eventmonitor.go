package numbered

import (
	"sync"

	"github.com/mit-ll/SPARTA-sub001/knot"
)

// EventCallback receives an EVENTMSG interleaved inside some command's
// RESULTS block, correlated by the event's own embedded cmd_id — which
// need not match the id of the RESULTS block the EVENTMSG happened to
// arrive inside.
type EventCallback func(cmdID, eventID int, info *knot.Knot)

// EventMonitor is the registry EVENTMSG callbacks are registered
// against, factored out of the sender variants so the same instance can
// be shared across a Sender, MultiSender, and AggSender that all
// multiplex commands over one connection: an EVENTMSG is correlated by
// its own cmd_id regardless of which sender variant sent that command.
type EventMonitor struct {
	mu        sync.Mutex
	callbacks map[int]EventCallback
}

// NewEventMonitor returns an empty EventMonitor.
func NewEventMonitor() *EventMonitor {
	return &EventMonitor{callbacks: make(map[int]EventCallback)}
}

// RegisterCallback registers cb to run for every EVENTMSG whose
// embedded cmd_id equals id, until RemoveCallback(id) is called.
func (m *EventMonitor) RegisterCallback(id int, cb EventCallback) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callbacks[id] = cb
}

// GetCallback returns the callback registered for id, if any.
func (m *EventMonitor) GetCallback(id int) (EventCallback, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cb, ok := m.callbacks[id]
	return cb, ok
}

// RemoveCallback unregisters id's callback. A no-op if none is
// registered.
func (m *EventMonitor) RemoveCallback(id int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.callbacks, id)
}
