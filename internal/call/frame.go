package call

import (
	"unsafe"

	"foreign/internal/ctype"
	"foreign/internal/layout"
)

// Frame is the transient storage of one call: a scratch region holding the
// argument and return slots, followed by the pointer array handed to the
// native call engine. A frame lives exactly as long as its call; writers
// and readers must not retain any address past the call's return.
type Frame struct {
	spec    *Spec
	buf     []byte
	offsets []uintptr
	ptrs    []unsafe.Pointer

	// Indirection cells and keep-alives for bound external byte data.
	cells []unsafe.Pointer
	bound [][]byte
}

// newFrame allocates the buffer and populates the pointer array from the
// slot offsets, recomputing them with the same running alignment rule used
// while the spec was built.
func newFrame(s *Spec) *Frame {
	total, arrayOff := s.frameSize()
	f := &Frame{
		spec:    s,
		buf:     make([]byte, total),
		offsets: layout.Offsets(s.slots()),
	}
	if n := len(s.args); n > 0 {
		f.ptrs = unsafe.Slice((*unsafe.Pointer)(unsafe.Pointer(&f.buf[arrayOff])), n)
		for i, off := range f.offsets {
			f.ptrs[i] = unsafe.Pointer(&f.buf[off])
		}
	}
	return f
}

// NumArgs reports the number of argument slots.
func (f *Frame) NumArgs() int { return len(f.offsets) }

// ArgType returns the descriptor of argument i.
func (f *Frame) ArgType(i int) *ctype.Type { return f.spec.args[i] }

// Offset returns the scratch-region byte offset of argument i's slot.
func (f *Frame) Offset(i int) uintptr { return f.offsets[i] }

// Slot returns the address of argument i's slot.
func (f *Frame) Slot(i int) unsafe.Pointer {
	return unsafe.Pointer(&f.buf[f.offsets[i]])
}

// BindBytes redirects argument i's pointer-array entry at externally-owned
// immutable byte data instead of the in-buffer slot. This is the only
// supported substitution and only for pointer-classified arguments (the
// pass-by-reference string case); anything else is ErrUnsupportedArgument.
func (f *Frame) BindBytes(i int, data []byte) error {
	if f.spec.args[i].Class != ctype.Pointer {
		return &Error{Kind: ErrUnsupportedArgument, Arg: i}
	}
	if len(data) == 0 {
		return &Error{Kind: ErrUnsupportedArgument, Arg: i}
	}
	if f.cells == nil {
		f.cells = make([]unsafe.Pointer, len(f.offsets))
	}
	f.cells[i] = unsafe.Pointer(&data[0])
	f.ptrs[i] = unsafe.Pointer(&f.cells[i])
	f.bound = append(f.bound, data)
	return nil
}

// retSlot is the address of the return slot.
func (f *Frame) retSlot() unsafe.Pointer {
	return unsafe.Pointer(&f.buf[f.spec.retOffset])
}

// RetOffset returns the scratch-region byte offset of the return slot.
func (f *Frame) RetOffset() uintptr { return f.spec.retOffset }
