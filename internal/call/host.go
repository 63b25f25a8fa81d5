// Package call builds and dispatches runtime-constructed native calls, and
// exposes managed closures as native function pointers. Signatures are not
// known until runtime: a Spec accumulates argument types, is prepared
// against an ABI, and then drives either direction — outward calls through
// a writer/reader pair, or inward calls through trampolines that fold a
// staged closure over the argument slots.
package call

import "foreign/internal/engine"

// Context carries the per-specification calling flags: whether the OS error
// code is captured around the call and whether the host runtime's global
// lock is released for the call's duration.
type Context struct {
	CheckErrno     bool
	ReleaseRuntime bool
}

// ResolveFunc resolves a closure key to its staged closure. The relation is
// looked up fresh on every trampoline invocation, never held: the host may
// relocate or drop closures between construction and invocation.
type ResolveFunc func(key int64) (Boxed, bool)

// RuntimeLock models the host runtime's global lock. Release and Acquire
// are strictly paired and non-reentrant.
type RuntimeLock interface {
	Release()
	Acquire()
}

type nopLock struct{}

func (nopLock) Release() {}
func (nopLock) Acquire() {}

// Host bundles the collaborators every specification needs: the native call
// engine, the closure resolver, and (optionally) the runtime lock.
type Host struct {
	Engine  engine.Engine
	Resolve ResolveFunc
	Lock    RuntimeLock
}

func (h *Host) runtimeLock() RuntimeLock {
	if h.Lock != nil {
		return h.Lock
	}
	return nopLock{}
}

func (h *Host) resolve(key int64) (Boxed, bool) {
	if h.Resolve == nil {
		return nil, false
	}
	return h.Resolve(key)
}
