// Package harness owns a SUT child process's pipe pair and mounts the
// framing, dispatch, and ready-gating layers above them, exposing
// "wait until ready" and "wait until dies" the way a slave harness
// component needs to drive a System Under Test. Command vocabularies
// and script classes are out of scope; this is the plumbing they plug
// into.
package harness

import (
	"errors"
	"io"
	"os"
	"os/exec"
	"sync/atomic"

	"github.com/mit-ll/SPARTA-sub001/frame"
	"github.com/mit-ll/SPARTA-sub001/future"
	"github.com/mit-ll/SPARTA-sub001/ioloop"
	"github.com/mit-ll/SPARTA-sub001/knot"
	"github.com/mit-ll/SPARTA-sub001/logx"
	"github.com/mit-ll/SPARTA-sub001/protoext"
	"github.com/mit-ll/SPARTA-sub001/ready"
	"github.com/mit-ll/SPARTA-sub001/wire"
)

// Outcome describes why a SUT's pipe connection ended.
type Outcome int

const (
	// Died means the SUT's stdout pipe hit EOF without a prior call to
	// MarkShuttingDown: an unexpected crash.
	Died Outcome = iota
	// ShutdownComplete means EOF followed a MarkShuttingDown call: the
	// harness asked the SUT to exit and it did.
	ShutdownComplete
)

// Termination is the value SUTProcess's Terminated future fires with.
type Termination struct {
	Outcome Outcome
	Err     error
}

// PipeSetup spawns or otherwise connects a SUT, returning the parent's
// end of its stdin (for writing commands) and stdout (for reading
// framed events). It mirrors SUTProtocolStack's PipeSetupFunction:
// callers that don't want to manage an *exec.Cmd directly can supply
// standalone pipes instead.
type PipeSetup func() (stdin, stdout *os.File, err error)

// CommandPipeSetup returns a PipeSetup that spawns cmd, connecting its
// stdin and stdout to parent-side pipes. cmd.Stdin/Stdout must not
// already be set.
func CommandPipeSetup(cmd *exec.Cmd) PipeSetup {
	return func() (*os.File, *os.File, error) {
		// cmd.StdinPipe wraps its write end in a type that is not an
		// *os.File, so the stdin pipe is created here directly.
		childStdin, stdinFile, err := os.Pipe()
		if err != nil {
			return nil, nil, err
		}
		cmd.Stdin = childStdin
		stdout, err := cmd.StdoutPipe()
		if err == nil {
			err = cmd.Start()
		}
		// After Start the child holds its own copy of the read end.
		childStdin.Close()
		if err != nil {
			stdinFile.Close()
			return nil, nil, err
		}
		// os/exec's StdoutPipe returns the *os.File read end itself.
		stdoutFile, ok := stdout.(*os.File)
		if !ok {
			panic("harness: exec stdout pipe was not *os.File")
		}
		return stdinFile, stdoutFile, nil
	}
}

// SUTProcess owns one SUT's pipe pair, the protocol stack mounted over
// it, and the shutdown/crash distinction an EOF on the read side needs.
// Construct with StartSUTAndBuildStack.
type SUTProcess struct {
	loop   *ioloop.Loop
	ready  *ready.Monitor
	pm     *protoext.Manager
	parser *frame.Parser
	wq     *ioloop.WriteQueue

	shuttingDown atomic.Bool
	terminated   future.Future[Termination]
}

// StartSUTAndBuildStack spawns the SUT via setup, connects its stdin
// and stdout as non-blocking pipes watched by loop, and builds the
// LINE/RAW framer, ready monitor, and dispatcher above them. logger,
// if non-nil, is handed to every layer; otherwise each layer's own
// default (logx.Nop) applies.
func StartSUTAndBuildStack(loop *ioloop.Loop, setup PipeSetup, logger *logx.Logger) (*SUTProcess, error) {
	stdin, stdout, err := setup()
	if err != nil {
		return nil, err
	}
	if err := ioloop.SetNonblocking(stdin); err != nil {
		return nil, err
	}
	if err := ioloop.SetNonblocking(stdout); err != nil {
		return nil, err
	}

	var futureOpts []future.Option[Termination]
	var readyOpts []ready.Option
	var pmOpts []protoext.Option
	if logger != nil {
		futureOpts = append(futureOpts, future.WithLogger[Termination](logger))
		readyOpts = append(readyOpts, ready.WithLogger(logger))
		pmOpts = append(pmOpts, protoext.WithLogger(logger))
	}

	s := &SUTProcess{
		loop:       loop,
		terminated: future.New(futureOpts...),
	}

	s.wq = loop.GetWriteQueue(stdin)

	s.ready = ready.New(s.wq, readyOpts...)
	s.pm = protoext.New(pmOpts...)
	s.pm.AddHandler(wire.Ready, s.ready)
	s.parser = frame.New(s.pm)

	loop.Watch(stdout, func(chunk *knot.Knot) {
		s.parser.DataReceived(chunk.Bytes())
	}, func(err error) {
		outcome := Died
		if s.shuttingDown.Load() {
			outcome = ShutdownComplete
		}
		if errors.Is(err, io.EOF) {
			err = nil
		}
		s.terminated.Fire(Termination{Outcome: outcome, Err: err})
	})
	return s, nil
}

// Manager returns the protocol extension dispatcher mounted over the
// SUT's stdout, so callers can register additional extensions (numbered
// senders, root senders) beyond the ready monitor this package already
// mounts for wire.Ready.
func (s *SUTProcess) Manager() *protoext.Manager { return s.pm }

// Ready returns the ready monitor backing this SUT's writes.
func (s *SUTProcess) Ready() *ready.Monitor { return s.ready }

// WaitUntilReady blocks until the SUT's first READY line arrives.
func (s *SUTProcess) WaitUntilReady() { s.ready.WaitUntilReady() }

// MarkShuttingDown records that the caller has issued a shutdown
// command and the next EOF on the SUT's stdout should be treated as
// ShutdownComplete rather than Died. Call this immediately before
// sending the shutdown root-mode command, per spec.md §7's "Peer
// disconnect" row.
func (s *SUTProcess) MarkShuttingDown() { s.shuttingDown.Store(true) }

// Terminated returns the Future that fires once the SUT's stdout pipe
// reaches EOF or a read error.
func (s *SUTProcess) Terminated() future.Future[Termination] { return s.terminated }

// WaitUntilDies blocks until the SUT's stdout pipe closes and returns
// why.
func (s *SUTProcess) WaitUntilDies() Termination { return s.terminated.Value() }
