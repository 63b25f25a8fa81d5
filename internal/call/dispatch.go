package call

import (
	"runtime"
	"unsafe"
)

// ArgWriter serializes managed argument values into the frame's slots. It
// is the sole place argument bytes are produced. It may bind a pointer slot
// to externally-owned immutable bytes via Frame.BindBytes; any error it
// returns aborts the call before the native function runs.
type ArgWriter func(f *Frame) error

// RetReader consumes the return slot after a successful call.
type RetReader func(ret unsafe.Pointer)

// Call executes one native call through a prepared specification: allocate
// a transient frame, let the writer fill it, perform the call through the
// engine, and hand the return slot to the reader.
//
// When the spec releases the runtime lock, the release/reacquire pair
// brackets exactly the native call. When errno checking is on, the OS
// error-code cell is zeroed immediately before the call and read
// immediately after, before the lock is reacquired, so no managed code can
// perturb it; a non-zero value supersedes the result and surfaces as
// ErrErrno carrying name.
func (s *Spec) Call(fn uintptr, name string, writer ArgWriter, reader RetReader) error {
	s.mustBe(statePrepared, "Call")

	f := newFrame(s)
	if writer != nil {
		if err := writer(f); err != nil {
			return err
		}
	}

	eng := s.host.Engine
	lock := s.host.runtimeLock()

	if s.ctx.CheckErrno {
		// The errno cell is per OS thread; pin the goroutine so the
		// clear, the call and the capture all see the same cell.
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
	}
	if s.ctx.ReleaseRuntime {
		lock.Release()
	}
	if s.ctx.CheckErrno {
		eng.ClearErrno()
	}

	eng.Invoke(s.iface, fn, f.retSlot(), f.ptrs)

	saved := 0
	if s.ctx.CheckErrno {
		saved = eng.Errno()
	}
	if s.ctx.ReleaseRuntime {
		lock.Acquire()
	}

	if s.ctx.CheckErrno && saved != 0 {
		return &Error{Kind: ErrErrno, Code: saved, Name: name}
	}
	if reader != nil {
		reader(f.retSlot())
	}
	runtime.KeepAlive(f)
	return nil
}
