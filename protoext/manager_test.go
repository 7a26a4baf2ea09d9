package protoext_test

import (
	"testing"

	"github.com/mit-ll/SPARTA-sub001/frame"
	"github.com/mit-ll/SPARTA-sub001/knot"
	"github.com/mit-ll/SPARTA-sub001/protoext"
	"github.com/stretchr/testify/require"
)

type echoExtension struct {
	protoext.BaseExtension
	started string
	lines   []string
	raws    []string
	done    bool
}

func (e *echoExtension) OnProtocolStart(m *protoext.Manager, startLine *knot.Knot) {
	e.started = startLine.String()
}

func (e *echoExtension) LineReceived(data *knot.Knot) {
	if data.Equal([]byte("STOP")) {
		e.done = true
		return
	}
	e.lines = append(e.lines, data.String())
}

func (e *echoExtension) RawReceived(data *knot.Knot) {
	e.raws = append(e.raws, data.String())
}

func TestManagerDispatchesUntilDone(t *testing.T) {
	ext := &echoExtension{}
	m := protoext.New()
	m.AddHandler("ECHO", ext)

	p := frame.New(m)
	p.DataReceived([]byte("ECHO hello\nfoo\nbar\nRAW\n3\nabcENDRAW\nSTOP\n"))

	require.Equal(t, "ECHO hello", ext.started)
	require.Equal(t, []string{"foo", "bar"}, ext.lines)
	require.Equal(t, []string{"abc"}, ext.raws)
	require.True(t, ext.done)
}

func TestManagerUnknownTokenPanics(t *testing.T) {
	m := protoext.New()
	p := frame.New(m)
	require.Panics(t, func() {
		p.DataReceived([]byte("NOSUCHTOKEN x\n"))
	})
}

func TestManagerRawWithoutExtensionPanics(t *testing.T) {
	m := protoext.New()
	p := frame.New(m)
	require.Panics(t, func() {
		p.DataReceived([]byte("RAW\n1\nxENDRAW\n"))
	})
}

func TestManagerReactivatesAfterDone(t *testing.T) {
	first := &doneOnSecondLine{}
	second := &echoExtension{}
	m := protoext.New()
	m.AddHandler("FIRST", first)
	m.AddHandler("SECOND", second)

	p := frame.New(m)
	p.DataReceived([]byte("FIRST go\ndone\nSECOND hi\n"))

	require.Equal(t, "SECOND hi", second.started)
}

type doneOnSecondLine struct {
	protoext.BaseExtension
	m *protoext.Manager
}

func (e *doneOnSecondLine) OnProtocolStart(m *protoext.Manager, startLine *knot.Knot) {
	e.m = m
}

func (e *doneOnSecondLine) LineReceived(data *knot.Knot) {
	e.m.Done()
}
