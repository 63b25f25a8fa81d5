package layout

// Slot describes one argument or return slot inside a call scratch buffer:
// its size and alignment requirement in bytes. Alignment is always a
// positive power of two supplied by a type descriptor.
type Slot struct {
	Size  uintptr
	Align uintptr
}

// AlignedOffset returns the smallest value >= offset that is a multiple of
// alignment. Pure and total: there are no error cases.
func AlignedOffset(offset, alignment uintptr) uintptr {
	overhang := offset % alignment
	if overhang == 0 {
		return offset
	}
	return offset - overhang + alignment
}

// Offsets computes the byte offset of every slot in sequence, applying the
// running alignment rule: each slot starts at the next offset that is a
// multiple of its alignment. The same accumulation must be used everywhere a
// slot address is derived, so offsets stay consistent with buffer sizing.
func Offsets(slots []Slot) []uintptr {
	out := make([]uintptr, len(slots))
	var off uintptr
	for i, s := range slots {
		off = AlignedOffset(off, s.Align)
		out[i] = off
		off += s.Size
	}
	return out
}

// ScratchSize returns the total bytes occupied by the slot sequence under
// the running alignment rule. Equal to the end of the last slot.
func ScratchSize(slots []Slot) uintptr {
	var off uintptr
	for _, s := range slots {
		off = AlignedOffset(off, s.Align)
		off += s.Size
	}
	return off
}

// MaxAlign returns the largest alignment among the slots, at least min.
func MaxAlign(slots []Slot, min uintptr) uintptr {
	max := min
	if max == 0 {
		max = 1
	}
	for _, s := range slots {
		if s.Align > max {
			max = s.Align
		}
	}
	return max
}
