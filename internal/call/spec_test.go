package call_test

import (
	"errors"
	"testing"
	"unsafe"

	"foreign/internal/call"
	"foreign/internal/ctype"
	"foreign/internal/engine"
	"foreign/internal/engine/enginetest"
)

func newHost(t *testing.T) (*call.Host, *enginetest.Engine, *call.Registry) {
	t.Helper()
	eng := enginetest.New()
	reg := call.NewRegistry()
	return &call.Host{Engine: eng, Resolve: reg.Resolve}, eng, reg
}

func mustPanic(t *testing.T, op string, f func()) {
	t.Helper()
	defer func() {
		if recover() == nil {
			t.Fatalf("%s: expected contract-violation panic, got none", op)
		}
	}()
	f()
}

func TestAddArgOffsetsAlignedAndDisjoint(t *testing.T) {
	host, _, _ := newHost(t)
	spec := host.NewSpec(call.Context{})
	defer spec.Close()

	args := []*ctype.Type{
		ctype.TSInt8, ctype.TSInt32, ctype.TSInt8, ctype.TDouble,
		ctype.TSInt16, ctype.TSInt64, ctype.TUInt8,
	}
	prevEnd := 0
	for i, a := range args {
		off := spec.AddArg(a)
		if off%int(a.Align) != 0 {
			t.Errorf("arg %d (%s): offset %d not a multiple of %d", i, a, off, a.Align)
		}
		if off < prevEnd {
			t.Errorf("arg %d (%s): offset %d overlaps previous slot ending at %d", i, a, off, prevEnd)
		}
		prevEnd = off + int(a.Size)
	}
}

func TestPrepareReservesReturnAndSlack(t *testing.T) {
	host, _, _ := newHost(t)
	spec := host.NewSpec(call.Context{})
	defer spec.Close()
	spec.AddArg(ctype.TSInt32)
	spec.AddArg(ctype.TDouble)
	if err := spec.Prepare(engine.Default, ctype.TSInt64); err != nil {
		t.Fatalf("Prepare: %v", err)
	}

	// The return slot must be aligned for the return type; the writer error
	// aborts the call before any invoke happens.
	var retOffset uintptr
	err := spec.Call(0, "probe", func(f *call.Frame) error {
		retOffset = f.RetOffset()
		return errors.New("stop before invoke")
	}, nil)
	if err == nil {
		t.Fatal("expected writer error to abort the call")
	}
	if retOffset%8 != 0 {
		t.Errorf("return offset %d not aligned for sint64", retOffset)
	}
}

func TestPrepareFailureIsInvalidInterface(t *testing.T) {
	host, eng, _ := newHost(t)
	eng.FailNextInterface(errors.New("FFI_BAD_TYPEDEF"))
	spec := host.NewSpec(call.Context{})
	defer spec.Close()
	spec.AddArg(ctype.TSInt32)
	err := spec.Prepare(engine.Default, ctype.TVoid)
	if err == nil {
		t.Fatal("expected Prepare to fail")
	}
	var cerr *call.Error
	if !errors.As(err, &cerr) || cerr.Kind != call.ErrInvalidInterface {
		t.Fatalf("expected ErrInvalidInterface, got %v", err)
	}
	// A failed build must not leave a half-constructed interface behind.
	if n := eng.LiveInterfaces(); n != 0 {
		t.Fatalf("live interfaces after failed Prepare = %d, want 0", n)
	}
}

func TestStateMachineMisusePanics(t *testing.T) {
	host, _, _ := newHost(t)

	spec := host.NewSpec(call.Context{})
	if err := spec.Prepare(engine.Default, ctype.TVoid); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	mustPanic(t, "AddArg after Prepare", func() { spec.AddArg(ctype.TSInt32) })
	mustPanic(t, "double Prepare", func() { _ = spec.Prepare(engine.Default, ctype.TVoid) })
	spec.Close()

	building := host.NewSpec(call.Context{})
	defer building.Close()
	mustPanic(t, "Call while building", func() {
		_ = building.Call(0, "f", nil, nil)
	})
	mustPanic(t, "NewTrampoline while building", func() {
		_, _ = building.NewTrampoline(1)
	})
}

func TestCloseReleasesInterface(t *testing.T) {
	host, eng, _ := newHost(t)
	spec := host.NewSpec(call.Context{})
	spec.AddArg(ctype.TSInt32)
	if err := spec.Prepare(engine.Default, ctype.TSInt32); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if n := eng.LiveInterfaces(); n != 1 {
		t.Fatalf("live interfaces after Prepare = %d, want 1", n)
	}
	spec.Close()
	spec.Close() // idempotent
	if n := eng.LiveInterfaces(); n != 0 {
		t.Fatalf("live interfaces after Close = %d, want 0", n)
	}

	// Never-prepared specs close without touching the engine.
	host.NewSpec(call.Context{}).Close()
}

func TestManyArgumentsKeepOrder(t *testing.T) {
	host, eng, _ := newHost(t)
	spec := host.NewSpec(call.Context{})
	defer spec.Close()

	// More arguments than one growth increment to exercise list growth.
	const n = 21
	for i := 0; i < n; i++ {
		spec.AddArg(ctype.TSInt32)
	}
	if spec.NumArgs() != n {
		t.Fatalf("NumArgs = %d, want %d", spec.NumArgs(), n)
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

	var got int32
	err := spec.Call(fn, "sum", func(f *call.Frame) error {
		for i := 0; i < f.NumArgs(); i++ {
			*(*int32)(f.Slot(i)) = int32(i + 1)
		}
		return nil
	}, func(ret unsafe.Pointer) {
		got = *(*int32)(ret)
	})
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if want := int32(n * (n + 1) / 2); got != want {
		t.Fatalf("sum = %d, want %d", got, want)
	}
}
