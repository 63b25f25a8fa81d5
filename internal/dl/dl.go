//go:build linux && cgo

// Package dl wraps the platform dynamic loader: open a shared library,
// resolve symbols to raw addresses, and close the handle. The zero-value
// distinction matters for dlsym — a symbol may legitimately resolve to
// NULL — so lookups clear and re-read dlerror instead of testing the
// pointer.
package dl

/*
#cgo LDFLAGS: -ldl

#include <dlfcn.h>
#include <stdlib.h>

static void* foreign_dlopen(const char* path) {
	return dlopen(path, RTLD_LAZY | RTLD_LOCAL);
}

static void* foreign_dlopen_self(void) {
	return dlopen(NULL, RTLD_LAZY | RTLD_LOCAL);
}

// Clear dlerror, resolve, and surface the error (if any) beside the symbol.
static void* foreign_dlsym(void* h, const char* name, char** err) {
	dlerror();
	void* p = dlsym(h, name);
	char* e = dlerror();
	if (err) *err = e;
	return e ? NULL : p;
}
*/
import "C"

import (
	"fmt"
	"unsafe"
)

// Library is an open shared-object handle.
type Library struct {
	path   string
	handle unsafe.Pointer
}

func lastError() string {
	if e := C.dlerror(); e != nil {
		return C.GoString(e)
	}
	return "unknown dlerror"
}

// Open loads the shared library at path. An empty path opens the running
// process image, making its exported symbols resolvable.
func Open(path string) (*Library, error) {
	var h unsafe.Pointer
	if path == "" {
		h = C.foreign_dlopen_self()
	} else {
		cs := C.CString(path)
		defer C.free(unsafe.Pointer(cs))
		h = C.foreign_dlopen(cs)
	}
	if h == nil {
		return nil, fmt.Errorf("dl: open %q: %s", path, lastError())
	}
	return &Library{path: path, handle: h}, nil
}

// Path returns the path the library was opened with.
func (l *Library) Path() string { return l.path }

// Symbol resolves name to its address.
func (l *Library) Symbol(name string) (uintptr, error) {
	cs := C.CString(name)
	defer C.free(unsafe.Pointer(cs))
	var cerr *C.char
	p := C.foreign_dlsym(l.handle, cs, &cerr)
	if cerr != nil {
		return 0, fmt.Errorf("dl: symbol %q in %q: %s", name, l.path, C.GoString(cerr))
	}
	return uintptr(p), nil
}

// Close releases the handle. The addresses previously resolved from it
// become invalid.
func (l *Library) Close() error {
	if l.handle == nil {
		return nil
	}
	if C.dlclose(l.handle) != 0 {
		return fmt.Errorf("dl: close %q: %s", l.path, lastError())
	}
	l.handle = nil
	return nil
}
