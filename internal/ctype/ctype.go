// Package ctype holds the native type descriptors consumed by the call
// layer. Descriptors are immutable after construction and are always passed
// by reference; the call layer never owns them.
package ctype

import "foreign/internal/layout"

// Class is the opaque classification tag the native call engine uses to
// select an argument-passing strategy for a type.
type Class uint8

const (
	Void Class = iota
	SInt8
	UInt8
	SInt16
	UInt16
	SInt32
	UInt32
	SInt64
	UInt64
	Float32
	Float64
	Pointer
	Struct
)

// Type describes one native type: its storage size, alignment requirement
// and engine classification. Struct descriptors additionally carry their
// field descriptors and computed field offsets.
type Type struct {
	Name  string
	Size  uintptr
	Align uintptr
	Class Class

	// Struct-only:
	Fields       []*Type
	FieldOffsets []uintptr
}

// Slot returns the layout slot for this type.
func (t *Type) Slot() layout.Slot {
	return layout.Slot{Size: t.Size, Align: t.Align}
}

func (t *Type) String() string {
	if t == nil {
		return "<nil>"
	}
	return t.Name
}

func scalar(name string, size uintptr, class Class) *Type {
	return &Type{Name: name, Size: size, Align: size, Class: class}
}

// Primitive descriptors. These are shared singletons: callers must treat
// them as read-only.
var (
	TVoid    = &Type{Name: "void", Size: 0, Align: 1, Class: Void}
	TSInt8   = scalar("sint8", 1, SInt8)
	TUInt8   = scalar("uint8", 1, UInt8)
	TSInt16  = scalar("sint16", 2, SInt16)
	TUInt16  = scalar("uint16", 2, UInt16)
	TSInt32  = scalar("sint32", 4, SInt32)
	TUInt32  = scalar("uint32", 4, UInt32)
	TSInt64  = scalar("sint64", 8, SInt64)
	TUInt64  = scalar("uint64", 8, UInt64)
	TFloat   = scalar("float", 4, Float32)
	TDouble  = scalar("double", 8, Float64)
	TPointer = scalar("pointer", ptrSize, Pointer)
)

// StructOf builds a struct descriptor from field descriptors, computing
// field offsets, total size and alignment under the running alignment rule
// (each field starts at the next multiple of its alignment; total size is
// padded to the struct's own alignment).
func StructOf(name string, fields ...*Type) *Type {
	slots := make([]layout.Slot, len(fields))
	for i, f := range fields {
		slots[i] = f.Slot()
	}
	offsets := layout.Offsets(slots)
	align := layout.MaxAlign(slots, 1)
	size := layout.AlignedOffset(layout.ScratchSize(slots), align)
	return &Type{
		Name:         name,
		Size:         size,
		Align:        align,
		Class:        Struct,
		Fields:       fields,
		FieldOffsets: offsets,
	}
}
