package ctype_test

import (
	"testing"
	"unsafe"

	"foreign/internal/ctype"
)

func TestPrimitiveLayouts(t *testing.T) {
	cases := []struct {
		typ   *ctype.Type
		size  uintptr
		align uintptr
	}{
		{ctype.TVoid, 0, 1},
		{ctype.TSInt8, 1, 1},
		{ctype.TUInt16, 2, 2},
		{ctype.TSInt32, 4, 4},
		{ctype.TUInt64, 8, 8},
		{ctype.TFloat, 4, 4},
		{ctype.TDouble, 8, 8},
		{ctype.TPointer, unsafe.Sizeof(uintptr(0)), unsafe.Sizeof(uintptr(0))},
	}
	for _, c := range cases {
		if c.typ.Size != c.size || c.typ.Align != c.align {
			t.Errorf("%s: size/align = %d/%d, want %d/%d",
				c.typ, c.typ.Size, c.typ.Align, c.size, c.align)
		}
	}
}

func TestStructOf(t *testing.T) {
	// struct { int8; int32; int8; int16 } -> offsets 0, 4, 8, 10, size 12.
	s := ctype.StructOf("mixed", ctype.TSInt8, ctype.TSInt32, ctype.TSInt8, ctype.TSInt16)
	wantOffsets := []uintptr{0, 4, 8, 10}
	for i, w := range wantOffsets {
		if s.FieldOffsets[i] != w {
			t.Errorf("field %d: offset %d, want %d", i, s.FieldOffsets[i], w)
		}
	}
	if s.Size != 12 {
		t.Errorf("size = %d, want 12", s.Size)
	}
	if s.Align != 4 {
		t.Errorf("align = %d, want 4", s.Align)
	}
	if s.Class != ctype.Struct {
		t.Errorf("class = %v, want Struct", s.Class)
	}
}

func TestStructOfEmpty(t *testing.T) {
	s := ctype.StructOf("empty")
	if s.Size != 0 || s.Align != 1 {
		t.Errorf("empty struct size/align = %d/%d, want 0/1", s.Size, s.Align)
	}
}
