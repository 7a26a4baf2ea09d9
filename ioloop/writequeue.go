package ioloop

import (
	"container/list"
	"errors"
	"os"
	"sync"
	"time"

	"github.com/joeycumines/go-catrate"
	"github.com/mit-ll/SPARTA-sub001/knot"
	"github.com/mit-ll/SPARTA-sub001/logx"
	"github.com/mit-ll/SPARTA-sub001/ready"
)

var _ ready.Writer = (*WriteQueue)(nil)

// ErrQueueRefused is returned by WriteQueue.WriteKnot when accepting the
// payload would exceed the queue's max pending bytes. The caller may
// retry, abandon, or apply its own policy.
var ErrQueueRefused = errors.New("ioloop: write queue refused, back-pressure limit exceeded")

// defaultMaxPendingBytes bounds how much unwritten data a WriteQueue
// will hold before refusing further writes.
const defaultMaxPendingBytes = 4 << 20

type writeItem struct {
	data   *knot.Knot
	onSent func()
}

// WriteQueue is a per-descriptor FIFO of pending writes. Call
// Loop.GetWriteQueue to obtain one; multiple calls for the same
// descriptor return the same instance, so every caller observes the
// same ordering.
type WriteQueue struct {
	loop    *Loop
	file    *os.File
	logger  *logx.Logger
	limiter *catrate.Limiter
	fd      int

	mu              sync.Mutex
	queue           list.List
	pendingBytes    int
	maxPendingBytes int
	draining        bool
}

// Write implements ready.Writer, so a WriteQueue can be handed directly
// to ready.New. ready.Monitor only ever releases one payload at a time
// gated on the peer's own READY signal, so a refusal here indicates the
// queue's back-pressure threshold is misconfigured relative to that
// gating, not a condition normal operation should hit; it is logged
// (throttled, see logRefusal) and the payload is dropped rather than
// surfaced as an error ready.Writer has no way to report.
func (q *WriteQueue) Write(data []byte) {
	k := knot.New()
	k.AppendCopy(data)
	_ = q.WriteKnot(k, nil)
}

// WriteKnot enqueues data for delivery to the underlying descriptor,
// refusing it with ErrQueueRefused if doing so would exceed the
// queue's max pending bytes. onSent, if non-nil, runs immediately
// before the write syscall that delivers data, on the Loop's write
// worker, regardless of how many other writes are ahead of it in the
// queue at the time WriteKnot is called.
func (q *WriteQueue) WriteKnot(data *knot.Knot, onSent func()) error {
	q.mu.Lock()
	if q.pendingBytes+data.Size() > q.maxPendingBytes {
		q.mu.Unlock()
		q.logRefusal()
		return ErrQueueRefused
	}
	q.pendingBytes += data.Size()
	q.queue.PushBack(writeItem{data: data, onSent: onSent})
	shouldDrain := !q.draining
	if shouldDrain {
		q.draining = true
	}
	q.mu.Unlock()

	if shouldDrain {
		q.loop.postWrite(q.drain)
	}
	return nil
}

// drain runs entirely on the write worker, writing every queued item
// in FIFO order until the queue empties. Running the whole drain
// inside one posted func (rather than reposting per item) is what
// gives this descriptor's writes priority over interleaving with other
// descriptors mid-drain, matching the "drain residue until EAGAIN or
// queue empty" contract.
func (q *WriteQueue) drain() {
	for {
		q.mu.Lock()
		front := q.queue.Front()
		if front == nil {
			q.draining = false
			q.mu.Unlock()
			return
		}
		q.queue.Remove(front)
		item := front.Value.(writeItem)
		q.pendingBytes -= item.data.Size()
		q.mu.Unlock()

		if item.onSent != nil {
			item.onSent()
		}
		if _, err := q.file.Write(item.data.Bytes()); err != nil {
			q.logger.Warning().Err(err).Int("fd", q.fd).Logf("ioloop: write failed")
		}
	}
}

// logRefusal emits a throttled WARNING so sustained back-pressure on
// one descriptor doesn't flood the log: at most once per the limiter's
// configured window, per descriptor.
func (q *WriteQueue) logRefusal() {
	if q.limiter == nil {
		q.logger.Warning().Int("fd", q.fd).Logf("ioloop: write queue refused, back-pressure limit exceeded")
		return
	}
	if _, ok := q.limiter.Allow(q.fd); ok {
		q.logger.Warning().Int("fd", q.fd).Logf("ioloop: write queue refused, back-pressure limit exceeded")
	}
}

// GetWriteQueue returns the stable WriteQueue handle for f, creating it
// on first use with this Loop's configured max pending bytes as its
// back-pressure threshold. Every subsequent call for the same
// underlying descriptor returns the same instance, so ordering across
// goroutines calling Write is preserved.
func (l *Loop) GetWriteQueue(f *os.File) *WriteQueue {
	// Read the descriptor number through SyscallConn rather than f.Fd,
	// which would switch a non-blocking descriptor back to blocking mode.
	fd := -1
	if sc, err := f.SyscallConn(); err == nil {
		_ = sc.Control(func(u uintptr) { fd = int(u) })
	}
	if fd < 0 {
		fd = int(f.Fd())
	}

	l.writeQueuesMu.Lock()
	defer l.writeQueuesMu.Unlock()
	if l.writeQueues == nil {
		l.writeQueues = make(map[int]*WriteQueue)
	}
	if q, ok := l.writeQueues[fd]; ok {
		return q
	}
	q := &WriteQueue{
		loop:            l,
		file:            f,
		logger:          l.logger,
		limiter:         catrate.NewLimiter(map[time.Duration]int{time.Second: 1}),
		fd:              fd,
		maxPendingBytes: l.maxPendingBytes,
	}
	l.writeQueues[fd] = q
	return q
}
