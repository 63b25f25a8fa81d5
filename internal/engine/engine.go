// Package engine defines the native call engine contract: the external
// machinery that performs ABI-correct function invocation and builds
// native-callable trampolines given only type descriptors. The production
// implementation binds libffi (linux, cgo); tests use the pure-Go engine in
// the enginetest subpackage.
package engine

import (
	"unsafe"

	"foreign/internal/ctype"
)

// ABI selects a calling convention. Zero means the engine's default
// convention for the running platform; other values are passed to the
// engine verbatim.
type ABI int

// Default is the platform's default calling convention.
const Default ABI = 0

// Interface is an engine-owned, ABI-bound representation of a function
// signature. It is built once per call specification and released exactly
// once when the specification is destroyed.
type Interface interface {
	// NumArgs reports the number of fixed arguments in the signature.
	NumArgs() int
	// Release frees engine resources backing the interface. The interface
	// must not be used afterwards.
	Release()
}

// Handler is invoked when native code enters a trampoline. ret addresses
// the return slot; args holds one address per declared argument, in
// declaration order. Neither may be retained past the handler's return.
type Handler func(ret unsafe.Pointer, args []unsafe.Pointer)

// Block is an engine-owned executable trampoline allocation.
type Block interface{}

// Engine is the set of native call primitives the call layer consumes.
// Errno access lives here because only the engine can reach the OS
// error-code cell of the thread that performed the call.
type Engine interface {
	// BuildInterface prepares an ABI-bound interface for the signature.
	// Failure (bad type layout, unsupported ABI) is fatal to the interface:
	// retrying with the same inputs cannot succeed.
	BuildInterface(abi ABI, args []*ctype.Type, ret *ctype.Type) (Interface, error)

	// Invoke performs one native call through a prepared interface. retSlot
	// addresses the return slot; argPtrs holds one entry per argument,
	// each addressing that argument's value.
	Invoke(iface Interface, fn uintptr, retSlot unsafe.Pointer, argPtrs []unsafe.Pointer)

	// AllocTrampoline allocates one executable trampoline block and returns
	// it with its native entry point.
	AllocTrampoline() (Block, uintptr, error)

	// RegisterHandler binds a handler to an allocated trampoline block so
	// that native calls of the entry point reach it.
	RegisterHandler(b Block, iface Interface, h Handler) error

	// FreeTrampoline releases a trampoline block. The entry point must not
	// be called afterwards.
	FreeTrampoline(b Block)

	// Errno reports the calling thread's OS error-code cell.
	Errno() int
	// ClearErrno zeroes the calling thread's OS error-code cell.
	ClearErrno()
}
