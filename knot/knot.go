// Package knot implements a rope-like byte buffer: a sequence of
// independently-owned byte slices ("strands") that supports O(1) append
// and cheap structural sharing, at the cost of O(log m) random access
// (m being the strand count). It is the L0 data model every higher layer
// in this module passes data through, so that a multi-megabyte buffer
// built from many small reads never needs an O(n) copy just to grow.
package knot

import "sort"

// Strand is one contiguous run of bytes inside a Knot. Data is never
// mutated in place once a Strand is appended; Owned distinguishes a
// slice this package is free to retain indefinitely (e.g. a read
// buffer that has been copied) from one aliasing memory the caller
// still owns and guarantees to keep valid and unmodified for as long as
// the Knot references it (e.g. a string literal, or a window into
// another Knot's strand).
type Strand struct {
	Data  []byte
	Owned bool
}

// Knot is a rope of Strands. The zero value is an empty Knot ready to
// use. Knots are passed by pointer: every holder of the same *Knot
// observes appends made through it. Copying a Knot struct value copies
// only the slice headers, so the copy shares backing arrays but not
// length and does not see later appends. Use Clone to take an
// independent snapshot before handing a Knot to code that will mutate
// it further.
type Knot struct {
	strands []Strand
	// cum[i] is the total length of strands[:i+1]; cum[len(strands)-1]
	// equals Size(). Kept parallel to strands instead of a single
	// (start,length) pair per strand because Go slices already provide
	// the windowing a hand-rolled offset field would duplicate.
	cum []int
}

// New returns an empty Knot.
func New() *Knot {
	return &Knot{}
}

// FromBytes returns a Knot wrapping a single owned strand containing a
// copy of data's bytes appended via AppendCopy's semantics.
func FromBytes(data []byte) *Knot {
	k := New()
	k.AppendCopy(data)
	return k
}

// Size returns the number of bytes across all strands. O(1).
func (k *Knot) Size() int {
	if len(k.cum) == 0 {
		return 0
	}
	return k.cum[len(k.cum)-1]
}

// Append adds data to the end of the Knot, taking ownership of the
// slice: the caller must not modify data afterward. O(1).
func (k *Knot) Append(data []byte) {
	if len(data) == 0 {
		return
	}
	k.appendStrand(Strand{Data: data, Owned: true})
}

// AppendCopy copies data and appends the copy, leaving the caller free
// to reuse its buffer immediately. O(len(data)).
func (k *Knot) AppendCopy(data []byte) {
	if len(data) == 0 {
		return
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	k.appendStrand(Strand{Data: cp, Owned: true})
}

// AppendBorrowed appends data without copying it and without taking
// ownership: the caller guarantees data remains valid and unmodified
// for the lifetime of the Knot. Intended for string literals and other
// effectively-static byte slices. O(1).
func (k *Knot) AppendBorrowed(data []byte) {
	if len(data) == 0 {
		return
	}
	k.appendStrand(Strand{Data: data, Owned: false})
}

// AppendKnot appends all of other's strands to k. If other has j
// strands this is O(j).
func (k *Knot) AppendKnot(other *Knot) {
	for _, s := range other.strands {
		k.appendStrand(s)
	}
}

func (k *Knot) appendStrand(s Strand) {
	k.strands = append(k.strands, s)
	total := len(s.Data)
	if n := len(k.cum); n > 0 {
		total += k.cum[n-1]
	}
	k.cum = append(k.cum, total)
}

// Clear empties the Knot. O(1): Go's garbage collector reclaims strand
// memory, there is no manual refcounting to do.
func (k *Knot) Clear() {
	k.strands = nil
	k.cum = nil
}

// Clone returns a Knot sharing the same underlying strand byte slices
// (no byte copying) but with an independent strand table, so appends
// to the clone do not affect k and vice versa. This is the explicit
// stand-in for a C++ copy constructor bumping a refcount: Go cannot
// intercept a plain struct copy, so callers that need copy-on-share
// semantics must call Clone deliberately.
func (k *Knot) Clone() *Knot {
	c := &Knot{
		strands: make([]Strand, len(k.strands)),
		cum:     make([]int, len(k.cum)),
	}
	copy(c.strands, k.strands)
	copy(c.cum, k.cum)
	return c
}

// Bytes copies the entire Knot into a single contiguous slice. O(n).
func (k *Knot) Bytes() []byte {
	out := make([]byte, k.Size())
	off := 0
	for _, s := range k.strands {
		off += copy(out[off:], s.Data)
	}
	return out
}

// String copies the entire Knot's bytes into a string. O(n).
func (k *Knot) String() string {
	return string(k.Bytes())
}

// strandForOffset returns the index of the strand containing byte
// offset idx (0-indexed into the whole Knot) and idx's offset within
// that strand. O(log m).
func (k *Knot) strandForOffset(idx int) (strandIdx, withinStrand int) {
	i := sort.Search(len(k.cum), func(i int) bool { return k.cum[i] > idx })
	start := 0
	if i > 0 {
		start = k.cum[i-1]
	}
	return i, idx - start
}

// ByteAt returns the byte at position idx (0-indexed). O(log m).
func (k *Knot) ByteAt(idx int) byte {
	si, wi := k.strandForOffset(idx)
	return k.strands[si].Data[wi]
}

// StartsWith reports whether the first len(prefix) bytes of k equal
// prefix. O(len(prefix)).
func (k *Knot) StartsWith(prefix []byte) bool {
	if k.Size() < len(prefix) {
		return false
	}
	it := k.Begin()
	for _, b := range prefix {
		c, ok := it.Byte()
		if !ok || c != b {
			return false
		}
		it = it.Next()
	}
	return true
}

// Equal reports whether k holds exactly the bytes in other. O(len(other)).
func (k *Knot) Equal(other []byte) bool {
	return k.Size() == len(other) && k.StartsWith(other)
}

// SubKnot returns a new Knot containing the bytes in [start, end),
// sharing strand storage with k (no byte copies), including for strands
// the range only partly covers, which are resliced. O(k) in the number
// of strands the range touches.
func (k *Knot) SubKnot(start, end Iterator) *Knot {
	out := New()
	if start.idx < 0 {
		return out
	}
	endStrandIdx, endWithin := end.strandIdx, end.within
	if end.IsEnd() {
		endStrandIdx, endWithin = len(k.strands), 0
		if endStrandIdx > 0 {
			endStrandIdx--
			endWithin = len(k.strands[endStrandIdx].Data)
		}
	}
	if start.strandIdx > endStrandIdx || (start.strandIdx == endStrandIdx && start.within > endWithin) {
		return out
	}
	for si := start.strandIdx; si <= endStrandIdx && si < len(k.strands); si++ {
		s := k.strands[si]
		lo, hi := 0, len(s.Data)
		if si == start.strandIdx {
			lo = start.within
		}
		if si == endStrandIdx {
			hi = endWithin
		}
		if lo < hi {
			out.appendStrand(Strand{Data: s.Data[lo:hi], Owned: false})
		}
	}
	return out
}

// LeftErase discards every byte before it, in place; LeftErase(End())
// empties the Knot. O(m) in the number of strands kept.
func (k *Knot) LeftErase(it Iterator) {
	if it.IsEnd() {
		k.Clear()
		return
	}
	if it.idx == 0 {
		return
	}
	if it.idx >= k.Size() {
		k.Clear()
		return
	}
	rest := k.SubKnot(it, k.End())
	k.strands = rest.strands
	k.cum = rest.cum
}

// Split returns SubKnot(Begin(), at) and mutates k in place to retain
// only the bytes from at onward (equivalent to LeftErase(at) on k
// after taking the prefix).
func (k *Knot) Split(at Iterator) *Knot {
	prefix := k.SubKnot(k.Begin(), at)
	k.LeftErase(at)
	return prefix
}
