package call_test

import (
	"errors"
	"sync"
	"testing"
	"unsafe"

	"golang.org/x/sync/errgroup"

	"foreign/internal/call"
	"foreign/internal/ctype"
	"foreign/internal/engine"
	"foreign/internal/engine/enginetest"
)

// recordingLock counts release/acquire transitions and fails on unpaired
// use.
type recordingLock struct {
	mu       sync.Mutex
	held     bool
	releases int
	acquires int
}

func newRecordingLock() *recordingLock { return &recordingLock{held: true} }

func (l *recordingLock) Release() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.held {
		panic("runtime lock released twice")
	}
	l.held = false
	l.releases++
}

func (l *recordingLock) Acquire() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held {
		panic("runtime lock acquired while held")
	}
	l.held = true
	l.acquires++
}

func sumInt32Spec(t *testing.T, host *call.Host, eng *enginetest.Engine, ctx call.Context, nargs int) (*call.Spec, uintptr) {
	t.Helper()
	spec := host.NewSpec(ctx)
	for i := 0; i < nargs; i++ {
		spec.AddArg(ctype.TSInt32)
	}
	if err := spec.Prepare(engine.Default, ctype.TSInt32); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	fn := eng.Define(func(ret unsafe.Pointer, args []unsafe.Pointer) {
		var sum int32
		for _, a := range args {
			sum += *(*int32)(a)
		}
		*(*int32)(ret) = sum
	})
	return spec, fn
}

func TestDispatchLayoutStableAcrossCalls(t *testing.T) {
	host, eng, _ := newHost(t)
	spec, fn := sumInt32Spec(t, host, eng, call.Context{}, 3)
	defer spec.Close()

	// The observable layout must reproduce exactly on every dispatch; the
	// backing storage is transient and the allocator's business.
	var prevOffsets []uintptr
	for n := 0; n < 5; n++ {
		var offsets []uintptr
		err := spec.Call(fn, "sum3", func(f *call.Frame) error {
			for i := 0; i < f.NumArgs(); i++ {
				offsets = append(offsets, f.Offset(i))
				*(*int32)(f.Slot(i)) = int32(i)
			}
			return nil
		}, nil)
		if err != nil {
			t.Fatalf("call %d: %v", n, err)
		}
		if prevOffsets != nil {
			for i := range offsets {
				if offsets[i] != prevOffsets[i] {
					t.Fatalf("call %d: offset %d changed: %d != %d", n, i, offsets[i], prevOffsets[i])
				}
			}
		}
		prevOffsets = offsets
	}
}

func TestErrnoCapturedAndReset(t *testing.T) {
	host, eng, _ := newHost(t)
	spec := host.NewSpec(call.Context{CheckErrno: true})
	defer spec.Close()
	if err := spec.Prepare(engine.Default, ctype.TSInt32); err != nil {
		t.Fatalf("Prepare: %v", err)
	}

	failing := eng.Define(func(ret unsafe.Pointer, _ []unsafe.Pointer) {
		eng.SetErrno(2) // ENOENT
		*(*int32)(ret) = -1
	})
	clean := eng.Define(func(ret unsafe.Pointer, _ []unsafe.Pointer) {
		*(*int32)(ret) = 0
	})

	err := spec.Call(failing, "open", nil, func(unsafe.Pointer) {
		t.Error("reader ran although errno superseded the result")
	})
	var cerr *call.Error
	if !errors.As(err, &cerr) || cerr.Kind != call.ErrErrno {
		t.Fatalf("expected ErrErrno, got %v", err)
	}
	if cerr.Code != 2 || cerr.Name != "open" {
		t.Fatalf("ErrErrno carries code=%d name=%q, want 2/open", cerr.Code, cerr.Name)
	}

	// A stale errno from the failed call must not leak into the next one:
	// the cell is zeroed immediately before each call.
	read := false
	if err := spec.Call(clean, "close", nil, func(unsafe.Pointer) { read = true }); err != nil {
		t.Fatalf("clean call surfaced stale errno: %v", err)
	}
	if !read {
		t.Fatal("reader did not run on clean call")
	}
}

func TestErrnoIgnoredWhenDisabled(t *testing.T) {
	host, eng, _ := newHost(t)
	spec := host.NewSpec(call.Context{})
	defer spec.Close()
	if err := spec.Prepare(engine.Default, ctype.TVoid); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	fn := eng.Define(func(unsafe.Pointer, []unsafe.Pointer) {
		eng.SetErrno(9)
	})
	if err := spec.Call(fn, "noisy", nil, nil); err != nil {
		t.Fatalf("errno checking disabled, got %v", err)
	}
}

func TestRuntimeLockPairedPerCall(t *testing.T) {
	lock := newRecordingLock()
	eng := enginetest.New()
	host := &call.Host{Engine: eng, Lock: lock}
	spec, fn := sumInt32Spec(t, host, eng, call.Context{ReleaseRuntime: true}, 1)
	defer spec.Close()

	const calls = 4
	for i := 0; i < calls; i++ {
		err := spec.Call(fn, "sum1", func(f *call.Frame) error {
			*(*int32)(f.Slot(0)) = 7
			return nil
		}, nil)
		if err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
	}
	if lock.releases != calls || lock.acquires != calls {
		t.Fatalf("lock pairs = %d/%d, want %d/%d", lock.releases, lock.acquires, calls, calls)
	}
	if !lock.held {
		t.Fatal("lock not held after dispatch returned")
	}
}

func TestBindBytesOnlyForPointerSlots(t *testing.T) {
	host, eng, _ := newHost(t)
	spec := host.NewSpec(call.Context{})
	defer spec.Close()
	spec.AddArg(ctype.TPointer)
	spec.AddArg(ctype.TSInt32)
	if err := spec.Prepare(engine.Default, ctype.TSInt64); err != nil {
		t.Fatalf("Prepare: %v", err)
	}

	data := []byte("hello\x00")
	fn := eng.Define(func(ret unsafe.Pointer, args []unsafe.Pointer) {
		// A bound slot's pointer-array entry addresses a cell holding the
		// external data address, exactly like a char* argument.
		p := *(*unsafe.Pointer)(args[0])
		n := *(*int32)(args[1])
		got := unsafe.Slice((*byte)(p), int(n))
		var sum int64
		for _, b := range got {
			sum += int64(b)
		}
		*(*int64)(ret) = sum
	})

	var want int64
	for _, b := range data[:5] {
		want += int64(b)
	}
	var got int64
	err := spec.Call(fn, "strsum", func(f *call.Frame) error {
		if err := f.BindBytes(0, data); err != nil {
			return err
		}
		*(*int32)(f.Slot(1)) = 5
		return nil
	}, func(ret unsafe.Pointer) { got = *(*int64)(ret) })
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if got != want {
		t.Fatalf("byte sum = %d, want %d", got, want)
	}

	// Binding a non-pointer slot is the unsupported indirection.
	err = spec.Call(fn, "strsum", func(f *call.Frame) error {
		return f.BindBytes(1, data)
	}, nil)
	var cerr *call.Error
	if !errors.As(err, &cerr) || cerr.Kind != call.ErrUnsupportedArgument {
		t.Fatalf("expected ErrUnsupportedArgument, got %v", err)
	}
	if cerr.Arg != 1 {
		t.Fatalf("ErrUnsupportedArgument.Arg = %d, want 1", cerr.Arg)
	}
}

func TestConcurrentDispatchSharedSpec(t *testing.T) {
	host, eng, _ := newHost(t)
	spec, fn := sumInt32Spec(t, host, eng, call.Context{}, 2)
	defer spec.Close()

	var g errgroup.Group
	for w := 0; w < 8; w++ {
		base := int32(w * 100)
		g.Go(func() error {
			for i := int32(0); i < 50; i++ {
				a, b := base+i, i*3
				var got int32
				err := spec.Call(fn, "sum2", func(f *call.Frame) error {
					*(*int32)(f.Slot(0)) = a
					*(*int32)(f.Slot(1)) = b
					return nil
				}, func(ret unsafe.Pointer) { got = *(*int32)(ret) })
				if err != nil {
					return err
				}
				if got != a+b {
					return errors.New("cross-call buffer interference detected")
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatal(err)
	}
}
