package harness_test

import (
	"os"
	"testing"
	"time"

	"github.com/mit-ll/SPARTA-sub001/harness"
	"github.com/mit-ll/SPARTA-sub001/ioloop"
	"github.com/mit-ll/SPARTA-sub001/numbered"
	"github.com/mit-ll/SPARTA-sub001/wire"
	"github.com/stretchr/testify/require"
)

// fakePipes stands in for a real child process: sutStdin is the end the
// test reads from (what the "SUT" would see as its stdin), sutStdout is
// the end the test writes to (what the "SUT" would write to its
// stdout).
type fakePipes struct {
	parentStdin  *os.File // harness writes here
	sutStdinRead *os.File // test reads here
	sutStdout    *os.File // test writes here
	parentStdout *os.File // harness reads here
}

func newFakePipes(t *testing.T) *fakePipes {
	t.Helper()
	sutStdinRead, parentStdin, err := os.Pipe()
	require.NoError(t, err)
	parentStdout, sutStdout, err := os.Pipe()
	require.NoError(t, err)
	t.Cleanup(func() {
		parentStdin.Close()
		sutStdinRead.Close()
		sutStdout.Close()
		parentStdout.Close()
	})
	return &fakePipes{
		parentStdin:  parentStdin,
		sutStdinRead: sutStdinRead,
		sutStdout:    sutStdout,
		parentStdout: parentStdout,
	}
}

func (p *fakePipes) setup() harness.PipeSetup {
	return func() (*os.File, *os.File, error) {
		return p.parentStdin, p.parentStdout, nil
	}
}

func readN(t *testing.T, f *os.File, n int) []byte {
	t.Helper()
	buf := make([]byte, n)
	var got int
	for got < n {
		m, err := f.Read(buf[got:])
		require.NoError(t, err)
		got += m
	}
	return buf
}

func TestSUTProcessReadyAndRoundTrip(t *testing.T) {
	pipes := newFakePipes(t)
	loop := ioloop.New()
	defer loop.Close()

	sut, err := harness.StartSUTAndBuildStack(loop, pipes.setup(), nil)
	require.NoError(t, err)

	sender := numbered.NewSender(sut.Ready())
	sut.Manager().AddHandler(wire.Results, sender)

	_, err = pipes.sutStdout.Write([]byte("READY\n"))
	require.NoError(t, err)
	sut.WaitUntilReady()

	f := sender.SendCommand([]byte("PING\n"))
	require.Equal(t, []byte("COMMAND 0\nPING\nENDCOMMAND\n"), readN(t, pipes.sutStdinRead, len("COMMAND 0\nPING\nENDCOMMAND\n")))

	_, err = pipes.sutStdout.Write([]byte("RESULTS 0\nPONG\nENDRESULTS\n"))
	require.NoError(t, err)
	results := f.Value()
	require.Equal(t, "PONG", results.Items[0].Data.String())
}

func TestSUTProcessUnexpectedEOFIsDied(t *testing.T) {
	pipes := newFakePipes(t)
	loop := ioloop.New()
	defer loop.Close()

	sut, err := harness.StartSUTAndBuildStack(loop, pipes.setup(), nil)
	require.NoError(t, err)

	require.NoError(t, pipes.sutStdout.Close())

	select {
	case <-waitFired(sut):
	case <-time.After(2 * time.Second):
		t.Fatal("termination future never fired")
	}
	term := sut.WaitUntilDies()
	require.Equal(t, harness.Died, term.Outcome)
}

func TestSUTProcessMarkShuttingDownIsShutdownComplete(t *testing.T) {
	pipes := newFakePipes(t)
	loop := ioloop.New()
	defer loop.Close()

	sut, err := harness.StartSUTAndBuildStack(loop, pipes.setup(), nil)
	require.NoError(t, err)

	sut.MarkShuttingDown()
	require.NoError(t, pipes.sutStdout.Close())

	term := sut.WaitUntilDies()
	require.Equal(t, harness.ShutdownComplete, term.Outcome)
	require.NoError(t, term.Err)
}

func waitFired(sut *harness.SUTProcess) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		sut.Terminated().Wait()
		close(done)
	}()
	return done
}
