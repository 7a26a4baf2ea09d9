package ready_test

import (
	"sync"
	"testing"
	"time"

	"github.com/mit-ll/SPARTA-sub001/protoext"
	"github.com/mit-ll/SPARTA-sub001/ready"
	"github.com/stretchr/testify/require"
)

type recordingWriter struct {
	mu      sync.Mutex
	written [][]byte
}

func (w *recordingWriter) Write(data []byte) {
	w.mu.Lock()
	defer w.mu.Unlock()
	cp := make([]byte, len(data))
	copy(cp, data)
	w.written = append(w.written, cp)
}

func (w *recordingWriter) snapshot() [][]byte {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([][]byte(nil), w.written...)
}

func TestScheduleSendGatedUntilReady(t *testing.T) {
	w := &recordingWriter{}
	m := ready.New(w)

	m.ScheduleSend([]byte("first"), nil)
	m.ScheduleSend([]byte("second"), nil)
	m.ScheduleSend([]byte("third"), nil)
	require.Empty(t, w.snapshot())

	simulateReady(m)
	require.Equal(t, [][]byte{[]byte("first")}, w.snapshot())

	simulateReady(m)
	require.Equal(t, [][]byte{[]byte("first"), []byte("second")}, w.snapshot())

	simulateReady(m)
	require.Equal(t, [][]byte{[]byte("first"), []byte("second"), []byte("third")}, w.snapshot())
}

func TestScheduleSendBypassesQueueWhenAlreadyReady(t *testing.T) {
	w := &recordingWriter{}
	m := ready.New(w)

	simulateReady(m)
	m.ScheduleSend([]byte("immediate"), nil)
	require.Equal(t, [][]byte{[]byte("immediate")}, w.snapshot())
}

func TestOnSentFiresBeforeWrite(t *testing.T) {
	w := &recordingWriter{}
	m := ready.New(w)

	var order []string
	simulateReady(m)
	m.ScheduleSend([]byte("x"), func() { order = append(order, "sent-cb") })

	// onSent must have already run by the time Write observed the
	// payload, since deliver calls onSent then Writer.Write in order on
	// the same goroutine.
	require.Equal(t, []string{"sent-cb"}, order)
	require.Equal(t, [][]byte{[]byte("x")}, w.snapshot())
}

func TestWaitUntilReadyUnblocksOnSignal(t *testing.T) {
	w := &recordingWriter{}
	m := ready.New(w)

	done := make(chan struct{})
	go func() {
		m.WaitUntilReady()
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("WaitUntilReady returned before any READY signal")
	case <-time.After(20 * time.Millisecond):
	}

	simulateReady(m)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("WaitUntilReady did not unblock after READY")
	}
}

// simulateReady drives the same path protoext.Manager would, without
// requiring a full Manager wiring in every test.
func simulateReady(m *ready.Monitor) {
	m.OnProtocolStart(protoext.New(), nil)
}
