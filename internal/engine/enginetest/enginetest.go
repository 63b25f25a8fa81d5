// Package enginetest provides a deterministic, pure-Go call engine for
// exercising the call layer without libffi. Functions are Go closures
// registered under synthetic addresses; trampoline entry points land in the
// same address space, so a trampoline built by the call layer can be invoked
// back through Invoke exactly like a native function.
package enginetest

import (
	"fmt"
	"sync"
	"unsafe"

	"foreign/internal/ctype"
	"foreign/internal/engine"
)

// Func is a fake native function: it receives the return slot address and
// the argument pointer array, exactly as libffi would present them.
type Func func(ret unsafe.Pointer, args []unsafe.Pointer)

// Engine implements engine.Engine in process.
type Engine struct {
	mu        sync.Mutex
	nextAddr  uintptr
	funcs     map[uintptr]Func
	tramps    map[uintptr]*block
	errno     int
	allocErr  error
	ifaceErr  error
	liveIface int
	liveTramp int
}

type iface struct {
	eng      *Engine
	abi      engine.ABI
	args     []*ctype.Type
	ret      *ctype.Type
	released bool
}

func (i *iface) NumArgs() int { return len(i.args) }

func (i *iface) Release() {
	if i.released {
		panic("enginetest: interface released twice")
	}
	i.released = true
	i.eng.mu.Lock()
	i.eng.liveIface--
	i.eng.mu.Unlock()
}

type block struct {
	entry   uintptr
	handler engine.Handler
	freed   bool
}

// New returns an empty engine. Synthetic addresses start away from zero so
// a zero function address is always invalid.
func New() *Engine {
	return &Engine{
		nextAddr: 0x1000,
		funcs:    make(map[uintptr]Func),
		tramps:   make(map[uintptr]*block),
	}
}

// Define registers a fake native function and returns its address.
func (e *Engine) Define(f Func) uintptr {
	e.mu.Lock()
	defer e.mu.Unlock()
	addr := e.nextAddr
	e.nextAddr += 0x10
	e.funcs[addr] = f
	return addr
}

// FailNextInterface makes the next BuildInterface fail with err.
func (e *Engine) FailNextInterface(err error) {
	e.mu.Lock()
	e.ifaceErr = err
	e.mu.Unlock()
}

// FailNextAlloc makes the next AllocTrampoline fail with err.
func (e *Engine) FailNextAlloc(err error) {
	e.mu.Lock()
	e.allocErr = err
	e.mu.Unlock()
}

// SetErrno stores v in the simulated OS error-code cell. Fake functions use
// it to model natives that touch errno.
func (e *Engine) SetErrno(v int) {
	e.mu.Lock()
	e.errno = v
	e.mu.Unlock()
}

// LiveInterfaces reports interfaces built and not yet released.
func (e *Engine) LiveInterfaces() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.liveIface
}

// LiveTrampolines reports trampolines allocated and not yet freed.
func (e *Engine) LiveTrampolines() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.liveTramp
}

func (e *Engine) BuildInterface(abi engine.ABI, args []*ctype.Type, ret *ctype.Type) (engine.Interface, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.ifaceErr != nil {
		err := e.ifaceErr
		e.ifaceErr = nil
		return nil, err
	}
	e.liveIface++
	return &iface{
		eng:  e,
		abi:  abi,
		args: append([]*ctype.Type(nil), args...),
		ret:  ret,
	}, nil
}

func (e *Engine) Invoke(i engine.Interface, fn uintptr, retSlot unsafe.Pointer, argPtrs []unsafe.Pointer) {
	fi := i.(*iface)
	if fi.released {
		panic("enginetest: invoke through released interface")
	}
	if len(argPtrs) != len(fi.args) {
		panic(fmt.Sprintf("enginetest: %d argument pointers for %d-argument interface",
			len(argPtrs), len(fi.args)))
	}

	e.mu.Lock()
	f, ok := e.funcs[fn]
	var blk *block
	if !ok {
		blk, ok = e.tramps[fn]
	}
	e.mu.Unlock()

	switch {
	case f != nil:
		f(retSlot, argPtrs)
	case blk != nil:
		if blk.freed {
			panic(fmt.Sprintf("enginetest: call of freed trampoline %#x", fn))
		}
		blk.handler(retSlot, argPtrs)
	default:
		panic(fmt.Sprintf("enginetest: call of undefined address %#x", fn))
	}
}

func (e *Engine) AllocTrampoline() (engine.Block, uintptr, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.allocErr != nil {
		err := e.allocErr
		e.allocErr = nil
		return nil, 0, err
	}
	addr := e.nextAddr
	e.nextAddr += 0x10
	blk := &block{entry: addr}
	e.tramps[addr] = blk
	e.liveTramp++
	return blk, addr, nil
}

func (e *Engine) RegisterHandler(b engine.Block, _ engine.Interface, h engine.Handler) error {
	blk := b.(*block)
	blk.handler = h
	return nil
}

func (e *Engine) FreeTrampoline(b engine.Block) {
	blk := b.(*block)
	e.mu.Lock()
	defer e.mu.Unlock()
	if blk.freed {
		panic("enginetest: trampoline freed twice")
	}
	blk.freed = true
	e.liveTramp--
}

func (e *Engine) Errno() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.errno
}

func (e *Engine) ClearErrno() {
	e.mu.Lock()
	e.errno = 0
	e.mu.Unlock()
}
