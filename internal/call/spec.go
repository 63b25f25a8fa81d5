package call

import (
	"foreign/internal/ctype"
	"foreign/internal/engine"
	"foreign/internal/layout"
)

type specState uint8

const (
	stateBuilding specState = iota
	statePrepared
	stateClosed
)

// Backing storage for the argument list grows in fixed increments, not per
// argument.
const argIncrement = 8

// Spec is a call specification: a builder that accumulates argument types
// and, once prepared against an ABI and a return type, becomes an immutable
// description bound to an engine call interface. Arguments may be added
// only while building; calls and trampolines require a prepared spec.
// A prepared Spec is safe for concurrent dispatch: every call allocates its
// own transient buffer.
type Spec struct {
	host   *Host
	ctx    Context
	target layout.Target

	state      specState
	args       []*ctype.Type
	totalBytes uintptr
	maxAlign   uintptr

	retOffset uintptr
	retType   *ctype.Type
	iface     engine.Interface
}

// NewSpec starts a specification in the building state.
func (h *Host) NewSpec(ctx Context) *Spec {
	return &Spec{
		host:     h,
		ctx:      ctx,
		target:   layout.Native(),
		maxAlign: 1,
	}
}

func (s *Spec) mustBe(want specState, op string) {
	if s.state != want {
		states := [...]string{"building", "prepared", "closed"}
		violate("%s requires a %s specification (state: %s)",
			op, states[want], states[s.state])
	}
}

// Context returns the calling flags the spec was created with.
func (s *Spec) Context() Context { return s.ctx }

// NumArgs reports the number of arguments added so far.
func (s *Spec) NumArgs() int { return len(s.args) }

// AddArg appends one argument type and returns the byte offset assigned to
// its slot within the scratch region. Argument order is call order.
func (s *Spec) AddArg(t *ctype.Type) int {
	s.mustBe(stateBuilding, "AddArg")

	offset := layout.AlignedOffset(s.totalBytes, t.Align)
	s.totalBytes = offset + t.Size
	if t.Align > s.maxAlign {
		s.maxAlign = t.Align
	}

	if len(s.args) == cap(s.args) {
		grown := make([]*ctype.Type, len(s.args), cap(s.args)+argIncrement)
		copy(grown, s.args)
		s.args = grown
	}
	s.args = append(s.args, t)
	return int(offset)
}

// Prepare supplies the return type, finalizes the calling convention and
// builds the engine call interface. On success the spec transitions to the
// prepared state; on failure the spec is unusable and the error carries
// ErrInvalidInterface.
func (s *Spec) Prepare(abi engine.ABI, ret *ctype.Type) error {
	s.mustBe(stateBuilding, "Prepare")

	s.retOffset = layout.AlignedOffset(s.totalBytes, ret.Align)
	s.totalBytes = s.retOffset + ret.Size
	if ret.Align > s.maxAlign {
		s.maxAlign = ret.Align
	}

	// One pointer-sized slack word after the return slot: libffi can write
	// one word past the nominal return size (libffi issue #35).
	s.totalBytes = layout.AlignedOffset(s.totalBytes, s.target.PtrAlign)
	s.totalBytes += s.target.PtrSize

	iface, err := s.host.Engine.BuildInterface(abi, s.args, ret)
	if err != nil {
		return &Error{Kind: ErrInvalidInterface, Err: err}
	}
	s.iface = iface
	s.retType = ret
	s.state = statePrepared
	return nil
}

// Close releases the engine interface. A spec that was never prepared has
// nothing to release. Close is idempotent.
func (s *Spec) Close() {
	if s.state == stateClosed {
		return
	}
	if s.iface != nil {
		s.iface.Release()
		s.iface = nil
	}
	s.args = nil
	s.state = stateClosed
}

// frameSize is the layout-engine computation for one call: the byte length
// of a buffer holding the scratch region plus the trailing argument pointer
// array, and that array's offset.
func (s *Spec) frameSize() (total, arrayOffset uintptr) {
	s.mustBe(statePrepared, "frameSize")
	return layout.FrameSize(s.totalBytes, len(s.args), s.target)
}

// slots materializes the layout slots of the argument sequence.
func (s *Spec) slots() []layout.Slot {
	out := make([]layout.Slot, len(s.args))
	for i, a := range s.args {
		out[i] = a.Slot()
	}
	return out
}
