package layout

import "unsafe"

// Target describes the pointer properties of the machine the call frame is
// laid out for. The frame's trailing pointer array must satisfy PtrAlign.
type Target struct {
	Triple   string // e.g. "x86_64-linux-gnu"
	PtrSize  uintptr
	PtrAlign uintptr
}

// Native returns the target of the running process.
func Native() Target {
	ps := unsafe.Sizeof(uintptr(0))
	return Target{
		Triple:   "native",
		PtrSize:  ps,
		PtrAlign: ps,
	}
}

func X86_64LinuxGNU() Target {
	return Target{
		Triple:   "x86_64-linux-gnu",
		PtrSize:  8,
		PtrAlign: 8,
	}
}
