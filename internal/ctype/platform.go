package ctype

import "unsafe"

const ptrSize = unsafe.Sizeof(uintptr(0))
