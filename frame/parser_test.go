package frame_test

import (
	"testing"

	"github.com/mit-ll/SPARTA-sub001/frame"
	"github.com/mit-ll/SPARTA-sub001/knot"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	lines []string
	raws  []string
}

func (r *recorder) LineReceived(data *knot.Knot) { r.lines = append(r.lines, data.String()) }
func (r *recorder) RawReceived(data *knot.Knot)  { r.raws = append(r.raws, data.String()) }

func TestParserWholeBufferAtOnce(t *testing.T) {
	var r recorder
	p := frame.New(&r)
	p.DataReceived([]byte("Line 1\nLine 2\nRAW\n10\naaaaaaaaaaENDRAW\nLine 3\n"))

	require.Equal(t, []string{"Line 1", "Line 2", "Line 3"}, r.lines)
	require.Equal(t, []string{"aaaaaaaaaa"}, r.raws)
}

func TestParserByteAtATime(t *testing.T) {
	var r recorder
	p := frame.New(&r)
	input := []byte("Line 1\nLine 2\nRAW\n10\naaaaaaaaaaENDRAW\nLine 3\n")
	for _, b := range input {
		p.DataReceived([]byte{b})
	}

	require.Equal(t, []string{"Line 1", "Line 2", "Line 3"}, r.lines)
	require.Equal(t, []string{"aaaaaaaaaa"}, r.raws)
}

func TestParserConcatenatesMultipleRawPairs(t *testing.T) {
	var r recorder
	p := frame.New(&r)
	p.DataReceived([]byte("RAW\n3\nabc2\nzzENDRAW\n"))

	require.Empty(t, r.lines)
	require.Equal(t, []string{"abczz"}, r.raws)
}

func TestParserArbitrarySplits(t *testing.T) {
	input := []byte("RESULTS 0 r0\nRAW\n3\nabcENDRAW\nENDRESULTS\n")
	for split := 0; split <= len(input); split++ {
		var r recorder
		p := frame.New(&r)
		if split > 0 {
			p.DataReceived(input[:split])
		}
		if split < len(input) {
			p.DataReceived(input[split:])
		}
		require.Equal(t, []string{"RESULTS 0 r0", "ENDRESULTS"}, r.lines, "split at %d", split)
		require.Equal(t, []string{"abc"}, r.raws, "split at %d", split)
	}
}

func TestParserNotInRawModeByDefault(t *testing.T) {
	var r recorder
	p := frame.New(&r)
	require.False(t, p.InRawMode())
	p.DataReceived([]byte("RAW\n"))
	require.True(t, p.InRawMode())
}
