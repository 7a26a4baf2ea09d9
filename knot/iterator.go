package knot

// Iterator is a bidirectional, character-wise cursor into a Knot. An
// Iterator obtained before a later Append remains valid afterward (the
// Knot only ever grows its strand table by appending; existing entries
// keep their index), which is what lets frame.Parser hold a search
// cursor across multiple reads without rescanning from the start.
type Iterator struct {
	k         *Knot
	idx       int // global byte offset, or -1 at End
	strandIdx int
	within    int
}

// Begin returns an Iterator at the first byte of k.
func (k *Knot) Begin() Iterator {
	if k.Size() == 0 {
		return k.End()
	}
	return Iterator{k: k, idx: 0, strandIdx: 0, within: 0}
}

// End returns the past-the-end Iterator, as returned by a failed Find.
func (k *Knot) End() Iterator {
	return Iterator{k: k, idx: -1, strandIdx: len(k.strands), within: 0}
}

// IteratorAt returns an Iterator pointing at the idx'th byte
// (0-indexed). O(log m).
func (k *Knot) IteratorAt(idx int) Iterator {
	if idx < 0 || idx >= k.Size() {
		return k.End()
	}
	si, wi := k.strandForOffset(idx)
	return Iterator{k: k, idx: idx, strandIdx: si, within: wi}
}

// LastCharIter returns an Iterator at the final byte of k, or End if k
// is empty.
func (k *Knot) LastCharIter() Iterator {
	if k.Size() == 0 {
		return k.End()
	}
	return k.IteratorAt(k.Size() - 1)
}

// IsEnd reports whether it is the past-the-end sentinel.
func (it Iterator) IsEnd() bool { return it.idx < 0 }

// Index returns it's global byte offset into its Knot, or -1 at End.
func (it Iterator) Index() int { return it.idx }

// Byte returns the byte it points at, and false if it is End.
func (it Iterator) Byte() (byte, bool) {
	if it.IsEnd() {
		return 0, false
	}
	return it.k.strands[it.strandIdx].Data[it.within], true
}

// Next returns an Iterator advanced by one byte, or End if it was
// already at the last byte.
func (it Iterator) Next() Iterator {
	if it.IsEnd() {
		return it
	}
	next := it.idx + 1
	if next >= it.k.Size() {
		return it.k.End()
	}
	si, wi := it.strandIdx, it.within+1
	for si < len(it.k.strands) && wi >= len(it.k.strands[si].Data) {
		si++
		wi = 0
	}
	return Iterator{k: it.k, idx: next, strandIdx: si, within: wi}
}

// Prev returns an Iterator stepped back by one byte. Prev on End
// returns LastCharIter.
func (it Iterator) Prev() Iterator {
	if it.IsEnd() {
		return it.k.LastCharIter()
	}
	if it.idx == 0 {
		return it.k.End()
	}
	return it.k.IteratorAt(it.idx - 1)
}

// Sub returns it.Index() - other.Index(), the number of bytes between
// the two positions. O(1): the whole point of tracking a global offset
// alongside the strand-local position.
func (it Iterator) Sub(other Iterator) int {
	a, b := it.idx, other.idx
	if a < 0 {
		a = it.k.Size()
	}
	if b < 0 {
		b = it.k.Size()
	}
	return a - b
}

// Find returns an Iterator at the first occurrence of target at or
// after start, or End if not found. O(n) in the bytes scanned.
func (k *Knot) Find(target byte, start Iterator) Iterator {
	for it := start; !it.IsEnd(); it = it.Next() {
		if b, _ := it.Byte(); b == target {
			return it
		}
	}
	return k.End()
}
