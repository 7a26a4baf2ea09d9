package ioloop_test

import (
	"net"
	"os"
	"testing"
	"time"

	"github.com/mit-ll/SPARTA-sub001/ioloop"
	"github.com/mit-ll/SPARTA-sub001/knot"
	"github.com/stretchr/testify/require"
)

func TestWatchDeliversDataThenEOF(t *testing.T) {
	r, w, err := os.Pipe()
	require.NoError(t, err)
	defer r.Close()

	l := ioloop.New()
	defer l.Close()

	var got []string
	done := make(chan struct{})
	eofCh := make(chan error, 1)
	l.Watch(r, func(k *knot.Knot) {
		got = append(got, k.String())
	}, func(err error) {
		eofCh <- err
		close(done)
	})

	_, err = w.Write([]byte("hello "))
	require.NoError(t, err)
	_, err = w.Write([]byte("world"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("EOF callback never fired")
	}

	require.Equal(t, "hello world", joinStrings(got))
}

func joinStrings(parts []string) string {
	out := ""
	for _, p := range parts {
		out += p
	}
	return out
}

func TestWriteQueueDrainsInOrder(t *testing.T) {
	r, w, err := os.Pipe()
	require.NoError(t, err)
	defer r.Close()
	defer w.Close()

	l := ioloop.New()
	defer l.Close()

	q := l.GetWriteQueue(w)
	require.Same(t, q, l.GetWriteQueue(w))

	var sentOrder []int
	for i := 0; i < 3; i++ {
		i := i
		k := knot.FromBytes([]byte{byte('A' + i)})
		require.NoError(t, q.WriteKnot(k, func() { sentOrder = append(sentOrder, i) }))
	}

	buf := make([]byte, 3)
	_, err = r.Read(buf)
	require.NoError(t, err)
	require.Equal(t, "ABC", string(buf))
	require.Equal(t, []int{0, 1, 2}, sentOrder)
}

func TestWriteQueueRefusesOverCapacity(t *testing.T) {
	_, w, err := os.Pipe()
	require.NoError(t, err)
	defer w.Close()

	l := ioloop.New(ioloop.WithMaxPendingBytes(4))
	defer l.Close()

	q := l.GetWriteQueue(w)
	err = q.WriteKnot(knot.FromBytes([]byte("toolong")), nil)
	require.ErrorIs(t, err, ioloop.ErrQueueRefused)
}

func TestListenAcceptsConnections(t *testing.T) {
	l := ioloop.New()
	defer l.Close()

	accepted := make(chan net.Conn, 1)
	lst, err := l.Listen("127.0.0.1:0", func(c net.Conn) { accepted <- c })
	require.NoError(t, err)
	defer lst.Close()

	conn, err := net.Dial("tcp", lst.Addr().String())
	require.NoError(t, err)
	defer conn.Close()

	select {
	case c := <-accepted:
		defer c.Close()
	case <-time.After(2 * time.Second):
		t.Fatal("connection never accepted")
	}
}
