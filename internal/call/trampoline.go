package call

import (
	"fmt"
	"sync"
	"unsafe"

	"foreign/internal/engine"
)

// Trampoline is an executable block whose native entry point re-enters a
// managed closure. The closure is addressed by an integer key resolved
// fresh on every invocation, never held, so the host remains free to move
// or drop the closure. The block is exclusively owned by its creator and
// must be released with Close; there is no automatic collection here.
type Trampoline struct {
	host    *Host
	block   engine.Block
	entry   uintptr
	key     int64
	ctx     Context
	retSize uintptr

	mu     sync.Mutex
	closed bool
	err    error
}

// NewTrampoline allocates a trampoline over a prepared specification,
// embedding key and a copy of the spec's calling context, and registers the
// invocation handler with the engine. Allocation failure is ErrOutOfMemory.
func (s *Spec) NewTrampoline(key int64) (*Trampoline, error) {
	s.mustBe(statePrepared, "NewTrampoline")

	block, entry, err := s.host.Engine.AllocTrampoline()
	if err != nil {
		return nil, &Error{Kind: ErrOutOfMemory, Err: err}
	}
	t := &Trampoline{
		host:    s.host,
		block:   block,
		entry:   entry,
		key:     key,
		ctx:     s.ctx,
		retSize: s.retType.Size,
	}
	if err := s.host.Engine.RegisterHandler(block, s.iface, t.invoke); err != nil {
		s.host.Engine.FreeTrampoline(block)
		return nil, &Error{Kind: ErrInvalidInterface, Err: err}
	}
	return t, nil
}

// Entry is the native-callable function pointer.
func (t *Trampoline) Entry() uintptr { return t.entry }

// Key returns the closure key the trampoline was built over.
func (t *Trampoline) Key() int64 { return t.key }

// Err reports the last managed failure recorded during a native
// invocation, if any (see invoke), and clears it.
func (t *Trampoline) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	err := t.err
	t.err = nil
	return err
}

// Close releases the executable block. Calling the entry point afterwards
// is undefined and must be prevented by the owner. Idempotent.
func (t *Trampoline) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	t.closed = true
	t.host.Engine.FreeTrampoline(t.block)
}

// invoke runs when native code calls the entry point, possibly from a
// thread the host runtime has never seen. The runtime lock, when managed,
// is held for exactly the managed re-entry. An expired key panics with
// ErrExpiredClosure — loud by design, catchable where the caller is
// managed. A panic out of the closure itself must never unwind into native
// frames: it is recovered, the return slot is zeroed, and the failure is
// recorded for Err. Contract violations from the fold re-panic.
func (t *Trampoline) invoke(ret unsafe.Pointer, args []unsafe.Pointer) {
	if t.ctx.ReleaseRuntime {
		lock := t.host.runtimeLock()
		lock.Acquire()
		defer lock.Release()
	}

	b, ok := t.host.resolve(t.key)
	if !ok {
		panic(&Error{Kind: ErrExpiredClosure, Key: t.key})
	}

	defer func() {
		r := recover()
		if r == nil {
			return
		}
		if _, isContract := r.(contractViolation); isContract {
			panic(r)
		}
		zero(ret, t.retSize)
		err, isErr := r.(error)
		if !isErr {
			err = fmt.Errorf("closure panic: %v", r)
		}
		t.mu.Lock()
		t.err = err
		t.mu.Unlock()
	}()

	runBoxed(b, args, ret)
}

func zero(p unsafe.Pointer, n uintptr) {
	b := unsafe.Slice((*byte)(p), n)
	for i := range b {
		b[i] = 0
	}
}
