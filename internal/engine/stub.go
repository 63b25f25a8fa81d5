//go:build !linux || !cgo

package engine

import (
	"errors"
	"unsafe"

	"foreign/internal/ctype"
)

// ErrUnsupported reports that no native call engine is available in this
// build (non-linux platform or cgo disabled).
var ErrUnsupported = errors.New("native call engine not available in this build")

type stubEngine struct{}

// Native returns an error: the libffi engine requires linux and cgo.
func Native() (Engine, error) {
	return nil, ErrUnsupported
}

func (stubEngine) BuildInterface(ABI, []*ctype.Type, *ctype.Type) (Interface, error) {
	return nil, ErrUnsupported
}

func (stubEngine) Invoke(Interface, uintptr, unsafe.Pointer, []unsafe.Pointer) {
	panic("engine: invoke on stub engine")
}

func (stubEngine) AllocTrampoline() (Block, uintptr, error) { return nil, 0, ErrUnsupported }

func (stubEngine) RegisterHandler(Block, Interface, Handler) error { return ErrUnsupported }

func (stubEngine) FreeTrampoline(Block) {}

func (stubEngine) Errno() int  { return 0 }
func (stubEngine) ClearErrno() {}
