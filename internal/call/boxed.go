package call

import "unsafe"

// Boxed is the staged form of a managed closure: a chain of Fn
// continuations, one per declared argument, ending in Done. A trampoline
// invocation folds the chain over the argument addresses in declaration
// order; Done receives the return slot address and performs the write.
type Boxed interface {
	boxed()
}

// Fn consumes one argument address and yields the next stage. A
// zero-argument closure is a single Fn invoked once with a nil unit signal.
type Fn func(arg unsafe.Pointer) Boxed

// Done writes the return value at ret.
type Done func(ret unsafe.Pointer)

func (Fn) boxed()   {}
func (Done) boxed() {}

// runBoxed drives the fold. Tag mismatches are contract violations: a Done
// reached before all arguments are consumed (or an Fn left after the last)
// would corrupt memory if tolerated, so they fail loudly instead.
func runBoxed(b Boxed, args []unsafe.Pointer, ret unsafe.Pointer) {
	if len(args) == 0 {
		fn, ok := b.(Fn)
		if !ok {
			violate("zero-argument closure must begin with Fn")
		}
		b = fn(nil)
	} else {
		for i, a := range args {
			fn, ok := b.(Fn)
			if !ok {
				violate("closure reached Done before argument %d was consumed", i)
			}
			b = fn(a)
		}
	}
	done, ok := b.(Done)
	if !ok {
		violate("closure did not end with Done after the final argument")
	}
	done(ret)
}
