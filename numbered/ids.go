// Package numbered implements the numbered-command multiplexer: command
// ids assigned from a process-global counter, three sender variants
// sharing the same COMMAND/RESULTS wrapping and EVENTMSG interleaving
// rules, and the receiving side that answers COMMAND with RESULTS.
package numbered

import "sync/atomic"

var nextID atomic.Int64

// NextCommandID returns the next command id from the process-global
// counter, starting at 0. Every numbered-command sender in a process —
// regardless of which Sender/MultiSender/AggSender instance, or which
// connection it addresses — draws from this one counter, so ids stay
// unique across the whole process rather than per-sender.
func NextCommandID() int {
	return int(nextID.Add(1) - 1)
}
