//go:build linux && cgo

package engine

/*
#cgo pkg-config: libffi
#include <ffi.h>
#include <errno.h>
#include <stdlib.h>
#include <stdint.h>

// ffi_call wrapper accepting a plain uintptr_t so cgo does not have to
// express the generic function-pointer type at the call site.
static void foreign_ffi_call(ffi_cif* cif, uintptr_t fn, void* rvalue, void** avalue) {
	ffi_call(cif, (void (*)(void))fn, rvalue, avalue);
}

static int foreign_default_abi(void) { return FFI_DEFAULT_ABI; }

static int* foreign_errno_loc(void) {
#if defined(__GLIBC__)
	extern int* __errno_location(void);
	return __errno_location();
#else
	return &errno;
#endif
}

static void* foreign_closure_alloc(void** code) {
	return ffi_closure_alloc(sizeof(ffi_closure), code);
}
static void foreign_closure_free(void* closure) {
	ffi_closure_free((ffi_closure*)closure);
}

// The thunk binds the handler on the C side; user data carries an integer
// handle resolved back to a Go handler in foreignEngineInvoke.
extern void foreignEngineInvoke(ffi_cif*, void*, void**, uintptr_t);
static void foreign_closure_thunk(ffi_cif* cif, void* ret, void** args, void* user) {
	foreignEngineInvoke(cif, ret, args, (uintptr_t)user);
}
static ffi_status foreign_prep_closure(void* closure, ffi_cif* cif, uintptr_t user, void* code) {
	return ffi_prep_closure_loc((ffi_closure*)closure, cif, foreign_closure_thunk, (void*)user, code);
}
*/
import "C"

import (
	"fmt"
	"runtime/cgo"
	"unsafe"

	"foreign/internal/ctype"
)

// ffiEngine is the libffi-backed production engine.
type ffiEngine struct{}

// Native returns the process-wide libffi engine.
func Native() (Engine, error) {
	return ffiEngine{}, nil
}

// ffiInterface owns a C-heap cif plus the ffi_type vectors it references.
type ffiInterface struct {
	cif   *C.ffi_cif
	atype unsafe.Pointer // ffi_type** argument vector, C heap
	owned []unsafe.Pointer
	nargs int
}

func (i *ffiInterface) NumArgs() int { return i.nargs }

func (i *ffiInterface) Release() {
	if i == nil {
		return
	}
	for _, p := range i.owned {
		C.free(p)
	}
	i.owned = nil
	if i.atype != nil {
		C.free(i.atype)
		i.atype = nil
	}
	if i.cif != nil {
		C.free(unsafe.Pointer(i.cif))
		i.cif = nil
	}
}

func (ffiEngine) BuildInterface(abi ABI, args []*ctype.Type, ret *ctype.Type) (Interface, error) {
	iface := &ffiInterface{nargs: len(args)}

	rtype, err := iface.ffiType(ret)
	if err != nil {
		iface.Release()
		return nil, err
	}

	var atypes **C.ffi_type
	if n := len(args); n > 0 {
		mem := C.malloc(C.size_t(n) * C.size_t(unsafe.Sizeof(uintptr(0))))
		if mem == nil {
			iface.Release()
			return nil, fmt.Errorf("ffi: argument type vector: out of memory")
		}
		iface.atype = mem
		vec := unsafe.Slice((**C.ffi_type)(mem), n)
		for i2, a := range args {
			t, err := iface.ffiType(a)
			if err != nil {
				iface.Release()
				return nil, err
			}
			vec[i2] = t
		}
		atypes = (**C.ffi_type)(mem)
	}

	cabi := C.ffi_abi(abi)
	if abi == Default {
		cabi = C.ffi_abi(C.foreign_default_abi())
	}

	iface.cif = (*C.ffi_cif)(C.malloc(C.size_t(unsafe.Sizeof(C.ffi_cif{}))))
	if iface.cif == nil {
		iface.Release()
		return nil, fmt.Errorf("ffi: cif: out of memory")
	}
	status := C.ffi_prep_cif(iface.cif, cabi, C.uint(len(args)), rtype, atypes)
	if status != C.FFI_OK {
		iface.Release()
		return nil, ffiStatusError(status)
	}
	return iface, nil
}

func ffiStatusError(status C.ffi_status) error {
	switch status {
	case C.FFI_BAD_TYPEDEF:
		return fmt.Errorf("ffi_prep_cif: FFI_BAD_TYPEDEF")
	case C.FFI_BAD_ABI:
		return fmt.Errorf("ffi_prep_cif: FFI_BAD_ABI")
	default:
		return fmt.Errorf("ffi_prep_cif: status %d", int(status))
	}
}

// ffiType maps a descriptor to libffi's type object. Struct descriptors get
// a C-heap ffi_type with a null-terminated element vector, owned by the
// interface being built.
func (i *ffiInterface) ffiType(t *ctype.Type) (*C.ffi_type, error) {
	switch t.Class {
	case ctype.Void:
		return &C.ffi_type_void, nil
	case ctype.SInt8:
		return &C.ffi_type_sint8, nil
	case ctype.UInt8:
		return &C.ffi_type_uint8, nil
	case ctype.SInt16:
		return &C.ffi_type_sint16, nil
	case ctype.UInt16:
		return &C.ffi_type_uint16, nil
	case ctype.SInt32:
		return &C.ffi_type_sint32, nil
	case ctype.UInt32:
		return &C.ffi_type_uint32, nil
	case ctype.SInt64:
		return &C.ffi_type_sint64, nil
	case ctype.UInt64:
		return &C.ffi_type_uint64, nil
	case ctype.Float32:
		return &C.ffi_type_float, nil
	case ctype.Float64:
		return &C.ffi_type_double, nil
	case ctype.Pointer:
		return &C.ffi_type_pointer, nil
	case ctype.Struct:
		return i.structType(t)
	default:
		return nil, fmt.Errorf("ffi: unclassifiable type %s", t)
	}
}

func (i *ffiInterface) structType(t *ctype.Type) (*C.ffi_type, error) {
	n := len(t.Fields)
	elems := C.malloc(C.size_t(n+1) * C.size_t(unsafe.Sizeof(uintptr(0))))
	if elems == nil {
		return nil, fmt.Errorf("ffi: struct element vector: out of memory")
	}
	i.owned = append(i.owned, elems)
	vec := unsafe.Slice((**C.ffi_type)(elems), n+1)
	for j, f := range t.Fields {
		ft, err := i.ffiType(f)
		if err != nil {
			return nil, err
		}
		vec[j] = ft
	}
	vec[n] = nil

	st := (*C.ffi_type)(C.malloc(C.size_t(unsafe.Sizeof(C.ffi_type{}))))
	if st == nil {
		return nil, fmt.Errorf("ffi: struct type: out of memory")
	}
	i.owned = append(i.owned, unsafe.Pointer(st))
	st.size = 0 // libffi computes size/alignment from elements
	st.alignment = 0
	st._type = C.FFI_TYPE_STRUCT
	st.elements = (**C.ffi_type)(elems)
	return st, nil
}

// Invoke performs the call. The argument vector handed to ffi_call is built
// on the C heap with the slot addresses written as plain integers: storing
// the Go pointers themselves into C memory would trip the cgo pointer rules
// (GODEBUG=cgocheck2). The caller keeps the frame live for the duration of
// the call, so the addresses stay valid.
func (ffiEngine) Invoke(iface Interface, fn uintptr, retSlot unsafe.Pointer, argPtrs []unsafe.Pointer) {
	fi := iface.(*ffiInterface)
	var argv *unsafe.Pointer
	if n := len(argPtrs); n > 0 {
		mem := C.malloc(C.size_t(n) * C.size_t(unsafe.Sizeof(uintptr(0))))
		defer C.free(mem)
		vec := unsafe.Slice((*C.uintptr_t)(mem), n)
		for i, p := range argPtrs {
			vec[i] = C.uintptr_t(uintptr(p))
		}
		argv = (*unsafe.Pointer)(mem)
	}
	C.foreign_ffi_call(fi.cif, C.uintptr_t(fn), retSlot, argv)
}

// ffiBlock pairs the closure allocation with its handler handle and entry.
type ffiBlock struct {
	closure unsafe.Pointer
	entry   unsafe.Pointer
	handle  cgo.Handle
	bound   bool
}

// handlerCtx is what the closure thunk resolves its user data to.
type handlerCtx struct {
	h     Handler
	nargs int
}

func (ffiEngine) AllocTrampoline() (Block, uintptr, error) {
	var code unsafe.Pointer
	closure := C.foreign_closure_alloc(&code)
	if closure == nil {
		return nil, 0, fmt.Errorf("ffi_closure_alloc: out of memory")
	}
	return &ffiBlock{closure: closure, entry: code}, uintptr(code), nil
}

func (ffiEngine) RegisterHandler(b Block, iface Interface, h Handler) error {
	blk := b.(*ffiBlock)
	fi := iface.(*ffiInterface)
	blk.handle = cgo.NewHandle(&handlerCtx{h: h, nargs: fi.nargs})
	blk.bound = true
	status := C.foreign_prep_closure(blk.closure, fi.cif,
		C.uintptr_t(blk.handle), blk.entry)
	if status != C.FFI_OK {
		blk.handle.Delete()
		blk.bound = false
		return ffiStatusError(status)
	}
	return nil
}

func (ffiEngine) FreeTrampoline(b Block) {
	blk := b.(*ffiBlock)
	if blk.closure != nil {
		C.foreign_closure_free(blk.closure)
		blk.closure = nil
	}
	if blk.bound {
		blk.handle.Delete()
		blk.bound = false
	}
}

func (ffiEngine) Errno() int { return int(*C.foreign_errno_loc()) }

func (ffiEngine) ClearErrno() { *C.foreign_errno_loc() = 0 }

//export foreignEngineInvoke
func foreignEngineInvoke(_ *C.ffi_cif, ret unsafe.Pointer, args *unsafe.Pointer, user C.uintptr_t) {
	ctx := cgo.Handle(user).Value().(*handlerCtx)
	var argv []unsafe.Pointer
	if ctx.nargs > 0 && args != nil {
		argv = unsafe.Slice(args, ctx.nargs)
	}
	ctx.h(ret, argv)
}
