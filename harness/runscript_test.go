package harness_test

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/mit-ll/SPARTA-sub001/frame"
	"github.com/mit-ll/SPARTA-sub001/harness"
	"github.com/mit-ll/SPARTA-sub001/knot"
	"github.com/mit-ll/SPARTA-sub001/numbered"
	"github.com/mit-ll/SPARTA-sub001/protoext"
	"github.com/mit-ll/SPARTA-sub001/ready"
	"github.com/mit-ll/SPARTA-sub001/wire"
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

func (w *recordingWriter) waitFor(t *testing.T, n int) [][]byte {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		got := w.snapshot()
		if len(got) >= n {
			return got
		}
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %d writes, got %d", n, len(got))
		}
		time.Sleep(time.Millisecond)
	}
}

type runscriptRig struct {
	writer   *recordingWriter
	ready    *ready.Monitor
	pm       *protoext.Manager
	parser   *frame.Parser
	receiver *numbered.Receiver
}

func newRunscriptRig() *runscriptRig {
	w := &recordingWriter{}
	rm := ready.New(w)
	pm := protoext.New()
	pm.AddHandler(wire.Ready, rm)
	receiver := numbered.NewReceiver(w)
	pm.AddHandler(wire.Command, receiver)
	return &runscriptRig{writer: w, ready: rm, pm: pm, parser: frame.New(pm), receiver: receiver}
}

func (r *runscriptRig) feed(s string) { r.parser.DataReceived([]byte(s)) }

type gatedRunner struct {
	gate chan error

	mu       sync.Mutex
	lastName string
	lastArgs string
}

func newGatedRunner() *gatedRunner { return &gatedRunner{gate: make(chan error, 1)} }

func (r *gatedRunner) Run(name string, args *knot.Knot) (time.Time, error) {
	r.mu.Lock()
	r.lastName = name
	r.lastArgs = args.String()
	r.mu.Unlock()
	return time.Now(), <-r.gate
}

func TestRunScriptHandlerStartedThenFinished(t *testing.T) {
	rig := newRunscriptRig()
	runner := newGatedRunner()
	handler := harness.NewRunScriptHandler(rig.receiver, runner, nil)
	rig.receiver.AddHandler(wire.RunScript, handler)

	rig.feed("COMMAND 3\nRUNSCRIPT\nmy-script\narg-one\nENDRUNSCRIPT\nENDCOMMAND\n")

	got := rig.writer.waitFor(t, 1)
	require.Equal(t, []byte("RESULTS 3\nSTARTED\nENDRESULTS\n"), got[0])

	runner.mu.Lock()
	require.Equal(t, "my-script", runner.lastName)
	require.Equal(t, "arg-one\n", runner.lastArgs)
	runner.mu.Unlock()

	runner.gate <- nil
	got = rig.writer.waitFor(t, 2)
	require.Equal(t, []byte("RESULTS 3\nFINISHED\nENDRESULTS\n"), got[1])
}

func TestRunScriptHandlerFailure(t *testing.T) {
	rig := newRunscriptRig()
	runner := newGatedRunner()
	handler := harness.NewRunScriptHandler(rig.receiver, runner, nil)
	rig.receiver.AddHandler(wire.RunScript, handler)

	rig.feed("COMMAND 0\nRUNSCRIPT\nbroken\nENDRUNSCRIPT\nENDCOMMAND\n")
	rig.writer.waitFor(t, 1)

	runner.gate <- errors.New("boom")
	got := rig.writer.waitFor(t, 2)
	require.Equal(t, []byte("RESULTS 0\nFAILED\nENDRESULTS\n"), got[1])
}
